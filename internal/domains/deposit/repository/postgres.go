package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promotracker-backend/internal/domains/deposit/model"
)

type postgresDepositRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDepositRepository(pool *pgxpool.Pool) DepositRepository {
	return &postgresDepositRepository{pool: pool}
}

const depositColumns = `
	id, user_id, bookmaker_account_id, qualify_condition_id,
	amount, code, deposited_at, created_at
`

func (r *postgresDepositRepository) CreateTx(ctx context.Context, tx pgx.Tx, deposit *model.Deposit) error {
	query := `
		INSERT INTO deposits (
			id, user_id, bookmaker_account_id, qualify_condition_id,
			amount, code, deposited_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query,
		deposit.ID,
		deposit.UserID,
		deposit.BookmakerAccountID,
		deposit.QualifyConditionID,
		deposit.Amount,
		deposit.Code,
		deposit.DepositedAt,
	).Scan(&deposit.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}
	return nil
}

func (r *postgresDepositRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE id = $1`

	deposit, err := scanDeposit(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrDepositNotFound
		}
		return nil, fmt.Errorf("failed to get deposit: %w", err)
	}
	return deposit, nil
}

func (r *postgresDepositRepository) ListByCondition(ctx context.Context, conditionID uuid.UUID) ([]model.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE qualify_condition_id = $1 ORDER BY deposited_at`
	return r.list(ctx, query, conditionID)
}

func (r *postgresDepositRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits WHERE user_id = $1 ORDER BY deposited_at DESC LIMIT $2 OFFSET $3`
	return r.list(ctx, query, userID, limit, offset)
}

func (r *postgresDepositRepository) list(ctx context.Context, query string, args ...interface{}) ([]model.Deposit, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	var deposits []model.Deposit
	for rows.Next() {
		deposit, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, *deposit)
	}
	return deposits, rows.Err()
}

func scanDeposit(row pgx.Row) (*model.Deposit, error) {
	var deposit model.Deposit
	err := row.Scan(
		&deposit.ID,
		&deposit.UserID,
		&deposit.BookmakerAccountID,
		&deposit.QualifyConditionID,
		&deposit.Amount,
		&deposit.Code,
		&deposit.DepositedAt,
		&deposit.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}
