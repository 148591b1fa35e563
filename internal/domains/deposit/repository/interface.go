package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"promotracker-backend/internal/domains/deposit/model"
)

// DepositRepository persists deposit event records. Deposits are
// append-only in the engine: removing one does not reverse any balance
// cascade that it caused.
type DepositRepository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, deposit *model.Deposit) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Deposit, error)
	ListByCondition(ctx context.Context, conditionID uuid.UUID) ([]model.Deposit, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Deposit, error)
}
