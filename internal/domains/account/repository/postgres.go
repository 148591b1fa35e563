package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"promotracker-backend/internal/domains/account/model"
)

type postgresAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &postgresAccountRepository{pool: pool}
}

const accountColumns = `
	id, user_id, bookmaker_id, bookmaker_name, username,
	real_balance, bonus_balance, created_at, updated_at
`

func (r *postgresAccountRepository) Create(ctx context.Context, account *model.BookmakerAccount) error {
	query := `
		INSERT INTO bookmaker_accounts (
			id, user_id, bookmaker_id, bookmaker_name, username,
			real_balance, bonus_balance
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.UserID,
		account.BookmakerID,
		account.BookmakerName,
		account.Username,
		account.RealBalance,
		account.BonusBalance,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create bookmaker account: %w", err)
	}
	return nil
}

func (r *postgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BookmakerAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bookmaker_accounts WHERE id = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get bookmaker account: %w", err)
	}
	return account, nil
}

func (r *postgresAccountRepository) FindByUserAndBookmaker(ctx context.Context, userID, bookmakerID uuid.UUID) (*model.BookmakerAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bookmaker_accounts WHERE user_id = $1 AND bookmaker_id = $2`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, userID, bookmakerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find bookmaker account: %w", err)
	}
	return account, nil
}

func (r *postgresAccountRepository) FindByUserAndBookmakerTx(ctx context.Context, tx pgx.Tx, userID, bookmakerID uuid.UUID) (*model.BookmakerAccount, error) {
	query := `SELECT ` + accountColumns + `
		FROM bookmaker_accounts
		WHERE user_id = $1 AND bookmaker_id = $2
		FOR UPDATE`

	account, err := scanAccount(tx.QueryRow(ctx, query, userID, bookmakerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to lock bookmaker account: %w", err)
	}
	return account, nil
}

func (r *postgresAccountRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.BookmakerAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM bookmaker_accounts WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmaker accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.BookmakerAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmaker account: %w", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err()
}

func (r *postgresAccountRepository) IncrementRealBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE bookmaker_accounts
		SET real_balance = real_balance + $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, accountID, amount)
	if err != nil {
		return fmt.Errorf("failed to increment real balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*model.BookmakerAccount, error) {
	var account model.BookmakerAccount
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.BookmakerID,
		&account.BookmakerName,
		&account.Username,
		&account.RealBalance,
		&account.BonusBalance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
