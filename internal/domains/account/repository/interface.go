package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"promotracker-backend/internal/domains/account/model"
)

// AccountRepository is the bookmaker-account store. Tx variants participate
// in a caller-managed transaction; tx may be nil outside tests only for the
// non-Tx methods.
type AccountRepository interface {
	Create(ctx context.Context, account *model.BookmakerAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.BookmakerAccount, error)
	FindByUserAndBookmaker(ctx context.Context, userID, bookmakerID uuid.UUID) (*model.BookmakerAccount, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.BookmakerAccount, error)

	// FindByUserAndBookmakerTx locks the account row for the duration of
	// the enclosing transaction.
	FindByUserAndBookmakerTx(ctx context.Context, tx pgx.Tx, userID, bookmakerID uuid.UUID) (*model.BookmakerAccount, error)

	// IncrementRealBalanceTx credits the account inside the caller's
	// transaction.
	IncrementRealBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) error
}
