package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"promotracker-backend/internal/domains/promotion/model"
	"promotracker-backend/pkg/database"
)

// querier is the subset of pgx shared by pool and transaction, so the
// aggregate loaders work inside and outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type postgresTransactionManager struct {
	pool *pgxpool.Pool
}

func NewPostgresTransactionManager(pool *pgxpool.Pool) TransactionManager {
	return &postgresTransactionManager{pool: pool}
}

func (m *postgresTransactionManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (m *postgresTransactionManager) CommitTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (m *postgresTransactionManager) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

type postgresPromotionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPromotionRepository(pool *pgxpool.Pool) PromotionRepository {
	return &postgresPromotionRepository{pool: pool}
}

const promotionColumns = `
	id, bookmaker_id, bookmaker_name, name, description,
	cardinality, activation_method, status, timeframe, total_balance,
	activated_at, completed_at, expired_at, created_at, updated_at
`

func (r *postgresPromotionRepository) CreateAggregate(ctx context.Context, promotion *model.Promotion) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertPromotion(ctx, tx, promotion); err != nil {
			return err
		}
		for pi := range promotion.Phases {
			phase := &promotion.Phases[pi]
			if err := insertPhase(ctx, tx, phase); err != nil {
				return err
			}
			for ri := range phase.Rewards {
				reward := &phase.Rewards[ri]
				if err := insertReward(ctx, tx, reward); err != nil {
					return err
				}
				for ci := range reward.QualifyConditions {
					if err := insertQualifyCondition(ctx, tx, &reward.QualifyConditions[ci]); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

func insertPromotion(ctx context.Context, tx pgx.Tx, p *model.Promotion) error {
	timeframe, err := json.Marshal(p.Timeframe)
	if err != nil {
		return fmt.Errorf("failed to encode promotion timeframe: %w", err)
	}

	query := `
		INSERT INTO promotions (
			id, bookmaker_id, bookmaker_name, name, description,
			cardinality, activation_method, status, timeframe, total_balance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		p.ID, p.BookmakerID, p.BookmakerName, p.Name, p.Description,
		p.Cardinality, p.ActivationMethod, p.Status, timeframe, p.TotalBalance,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert promotion: %w", err)
	}
	return nil
}

func insertPhase(ctx context.Context, tx pgx.Tx, ph *model.Phase) error {
	timeframe, err := json.Marshal(ph.Timeframe)
	if err != nil {
		return fmt.Errorf("failed to encode phase timeframe: %w", err)
	}

	query := `
		INSERT INTO phases (
			id, promotion_id, name, description, activation_method,
			status, timeframe, position, total_balance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		ph.ID, ph.PromotionID, ph.Name, ph.Description, ph.ActivationMethod,
		ph.Status, timeframe, ph.Position, ph.TotalBalance,
	).Scan(&ph.CreatedAt, &ph.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert phase: %w", err)
	}
	return nil
}

func insertReward(ctx context.Context, tx pgx.Tx, rw *model.Reward) error {
	usage, err := json.Marshal(rw.UsageConditions)
	if err != nil {
		return fmt.Errorf("failed to encode usage conditions: %w", err)
	}

	query := `
		INSERT INTO rewards (
			id, phase_id, type, name, value, value_type,
			activation_method, claim_method, status, usage_conditions, total_balance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		rw.ID, rw.PhaseID, rw.Type, rw.Name, rw.Value, rw.ValueType,
		rw.ActivationMethod, rw.ClaimMethod, rw.Status, usage, rw.TotalBalance,
	).Scan(&rw.CreatedAt, &rw.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reward: %w", err)
	}
	return nil
}

func insertQualifyCondition(ctx context.Context, tx pgx.Tx, qc *model.QualifyCondition) error {
	spec, err := json.Marshal(qc.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode condition spec: %w", err)
	}
	timeframe, err := json.Marshal(qc.Timeframe)
	if err != nil {
		return fmt.Errorf("failed to encode condition timeframe: %w", err)
	}

	query := `
		INSERT INTO qualify_conditions (
			id, reward_id, type, conditions, timeframe,
			status, balance, depends_on_qualify_condition_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		qc.ID, qc.RewardID, qc.Type, spec, timeframe,
		qc.Status, qc.Balance, qc.DependsOnQualifyConditionID,
	).Scan(&qc.CreatedAt, &qc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert qualify condition: %w", err)
	}
	return nil
}

func (r *postgresPromotionRepository) GetAggregate(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	return loadAggregate(ctx, r.pool, id, false)
}

func (r *postgresPromotionRepository) GetAggregateByConditionTx(ctx context.Context, tx pgx.Tx, conditionID uuid.UUID) (*model.Promotion, error) {
	query := `
		SELECT ph.promotion_id
		FROM qualify_conditions qc
		JOIN rewards rw ON rw.id = qc.reward_id
		JOIN phases ph ON ph.id = rw.phase_id
		WHERE qc.id = $1
	`
	var promotionID uuid.UUID
	if err := tx.QueryRow(ctx, query, conditionID).Scan(&promotionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrConditionNotFound
		}
		return nil, fmt.Errorf("failed to resolve condition owner: %w", err)
	}
	return loadAggregate(ctx, tx, promotionID, true)
}

// loadAggregate reads the whole tree in four queries. With forUpdate the
// promotion row is locked, which serializes concurrent cascades against the
// same tree.
func loadAggregate(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	promotion, err := scanPromotion(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("failed to get promotion: %w", err)
	}

	if err := loadPhases(ctx, q, promotion); err != nil {
		return nil, err
	}
	return promotion, nil
}

func loadPhases(ctx context.Context, q querier, promotion *model.Promotion) error {
	query := `
		SELECT id, promotion_id, name, description, activation_method,
		       status, timeframe, position, total_balance,
		       activated_at, completed_at, expired_at, created_at, updated_at
		FROM phases
		WHERE promotion_id = $1
		ORDER BY position
	`
	rows, err := q.Query(ctx, query, promotion.ID)
	if err != nil {
		return fmt.Errorf("failed to list phases: %w", err)
	}
	defer rows.Close()

	phaseIndex := make(map[uuid.UUID]int)
	for rows.Next() {
		var ph model.Phase
		var timeframe []byte
		err := rows.Scan(
			&ph.ID, &ph.PromotionID, &ph.Name, &ph.Description, &ph.ActivationMethod,
			&ph.Status, &timeframe, &ph.Position, &ph.TotalBalance,
			&ph.ActivatedAt, &ph.CompletedAt, &ph.ExpiredAt, &ph.CreatedAt, &ph.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan phase: %w", err)
		}
		if err := json.Unmarshal(timeframe, &ph.Timeframe); err != nil {
			return fmt.Errorf("failed to decode phase timeframe: %w", err)
		}
		phaseIndex[ph.ID] = len(promotion.Phases)
		promotion.Phases = append(promotion.Phases, ph)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list phases: %w", err)
	}

	return loadRewards(ctx, q, promotion, phaseIndex)
}

func loadRewards(ctx context.Context, q querier, promotion *model.Promotion, phaseIndex map[uuid.UUID]int) error {
	query := `
		SELECT rw.id, rw.phase_id, rw.type, rw.name, rw.value, rw.value_type,
		       rw.activation_method, rw.claim_method, rw.status,
		       rw.usage_conditions, rw.usage_tracking, rw.total_balance,
		       rw.pending_to_claim_at, rw.claimed_at, rw.received_at,
		       rw.in_use_at, rw.used_at, rw.expired_at, rw.created_at, rw.updated_at
		FROM rewards rw
		JOIN phases ph ON ph.id = rw.phase_id
		WHERE ph.promotion_id = $1
		ORDER BY ph.position, rw.created_at
	`
	rows, err := q.Query(ctx, query, promotion.ID)
	if err != nil {
		return fmt.Errorf("failed to list rewards: %w", err)
	}
	defer rows.Close()

	rewardIndex := make(map[uuid.UUID][2]int)
	for rows.Next() {
		var rw model.Reward
		var usage, tracking []byte
		err := rows.Scan(
			&rw.ID, &rw.PhaseID, &rw.Type, &rw.Name, &rw.Value, &rw.ValueType,
			&rw.ActivationMethod, &rw.ClaimMethod, &rw.Status,
			&usage, &tracking, &rw.TotalBalance,
			&rw.PendingToClaimAt, &rw.ClaimedAt, &rw.ReceivedAt,
			&rw.InUseAt, &rw.UsedAt, &rw.ExpiredAt, &rw.CreatedAt, &rw.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan reward: %w", err)
		}
		rw.UsageConditions, err = model.UnmarshalUsageConditions(rw.Type, usage)
		if err != nil {
			return fmt.Errorf("reward %s: %w", rw.ID, err)
		}
		if tracking != nil {
			var ut model.UsageTracking
			if err := json.Unmarshal(tracking, &ut); err != nil {
				return fmt.Errorf("failed to decode usage tracking: %w", err)
			}
			rw.UsageTracking = &ut
		}

		pi, ok := phaseIndex[rw.PhaseID]
		if !ok {
			return fmt.Errorf("reward %s references unknown phase %s", rw.ID, rw.PhaseID)
		}
		phase := &promotion.Phases[pi]
		rewardIndex[rw.ID] = [2]int{pi, len(phase.Rewards)}
		phase.Rewards = append(phase.Rewards, rw)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list rewards: %w", err)
	}

	return loadQualifyConditions(ctx, q, promotion, rewardIndex)
}

func loadQualifyConditions(ctx context.Context, q querier, promotion *model.Promotion, rewardIndex map[uuid.UUID][2]int) error {
	query := `
		SELECT qc.id, qc.reward_id, qc.type, qc.conditions, qc.timeframe,
		       qc.status, qc.balance, qc.tracking_data, qc.depends_on_qualify_condition_id,
		       qc.started_at, qc.qualified_at, qc.failed_at, qc.expired_at,
		       qc.created_at, qc.updated_at
		FROM qualify_conditions qc
		JOIN rewards rw ON rw.id = qc.reward_id
		JOIN phases ph ON ph.id = rw.phase_id
		WHERE ph.promotion_id = $1
		ORDER BY qc.created_at
	`
	rows, err := q.Query(ctx, query, promotion.ID)
	if err != nil {
		return fmt.Errorf("failed to list qualify conditions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var qc model.QualifyCondition
		var spec, timeframe, tracking []byte
		err := rows.Scan(
			&qc.ID, &qc.RewardID, &qc.Type, &spec, &timeframe,
			&qc.Status, &qc.Balance, &tracking, &qc.DependsOnQualifyConditionID,
			&qc.StartedAt, &qc.QualifiedAt, &qc.FailedAt, &qc.ExpiredAt,
			&qc.CreatedAt, &qc.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan qualify condition: %w", err)
		}
		qc.Conditions, err = model.UnmarshalConditionSpec(qc.Type, spec)
		if err != nil {
			return fmt.Errorf("qualify condition %s: %w", qc.ID, err)
		}
		if err := json.Unmarshal(timeframe, &qc.Timeframe); err != nil {
			return fmt.Errorf("failed to decode condition timeframe: %w", err)
		}
		if tracking != nil {
			var qt model.QualifyTracking
			if err := json.Unmarshal(tracking, &qt); err != nil {
				return fmt.Errorf("failed to decode tracking data: %w", err)
			}
			qc.TrackingData = &qt
		}

		loc, ok := rewardIndex[qc.RewardID]
		if !ok {
			return fmt.Errorf("qualify condition %s references unknown reward %s", qc.ID, qc.RewardID)
		}
		reward := &promotion.Phases[loc[0]].Rewards[loc[1]]
		reward.QualifyConditions = append(reward.QualifyConditions, qc)
	}
	return rows.Err()
}

func (r *postgresPromotionRepository) List(ctx context.Context, limit, offset int) ([]model.Promotion, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM promotions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count promotions: %w", err)
	}

	query := `SELECT ` + promotionColumns + `
		FROM promotions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list promotions: %w", err)
	}
	defer rows.Close()

	var promotions []model.Promotion
	for rows.Next() {
		promotion, err := scanPromotion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan promotion: %w", err)
		}
		promotions = append(promotions, *promotion)
	}
	return promotions, total, rows.Err()
}

func (r *postgresPromotionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Phases, rewards and conditions go with the promotion via FK cascade.
	tag, err := r.pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete promotion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPromotionNotFound
	}
	return nil
}

var updateTables = map[EntityKind]string{
	KindPromotion:        "promotions",
	KindPhase:            "phases",
	KindReward:           "rewards",
	KindQualifyCondition: "qualify_conditions",
}

func (r *postgresPromotionRepository) ApplyUpdatesTx(ctx context.Context, tx pgx.Tx, updates []Update) error {
	for _, u := range updates {
		table, ok := updateTables[u.Kind]
		if !ok {
			return fmt.Errorf("%w: entity kind %q", model.ErrUnknownVariant, u.Kind)
		}
		query, args, err := buildUpdate(table, u)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update %s %s: %w", u.Kind, u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update %s %s matched no row", u.Kind, u.ID)
		}
	}
	return nil
}

func (r *postgresPromotionRepository) ApplyUpdates(ctx context.Context, updates []Update) error {
	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		return r.ApplyUpdatesTx(ctx, tx, updates)
	})
}

// buildUpdate turns one field-diff into an UPDATE statement. Field names are
// sorted so the generated SQL is deterministic.
func buildUpdate(table string, u Update) (string, []interface{}, error) {
	names := make([]string, 0, len(u.Fields))
	for name := range u.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]interface{}, 0, len(names)+1)
	for i, name := range names {
		value, err := encodeFieldValue(u.Fields[name])
		if err != nil {
			return "", nil, fmt.Errorf("field %s: %w", name, err)
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", name, i+1))
		args = append(args, value)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, u.ID)

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d",
		table, strings.Join(sets, ", "), len(args),
	)
	return query, args, nil
}

// encodeFieldValue JSON-encodes the model types stored in jsonb columns and
// passes everything else through to pgx as-is.
func encodeFieldValue(v interface{}) (interface{}, error) {
	switch tv := v.(type) {
	case model.Timeframe, *model.Timeframe,
		model.ConditionSpec, model.UsageConditions,
		*model.QualifyTracking, *model.UsageTracking:
		data, err := json.Marshal(tv)
		if err != nil {
			return nil, fmt.Errorf("failed to encode jsonb value: %w", err)
		}
		return data, nil
	default:
		return v, nil
	}
}

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var p model.Promotion
	var timeframe []byte
	err := row.Scan(
		&p.ID, &p.BookmakerID, &p.BookmakerName, &p.Name, &p.Description,
		&p.Cardinality, &p.ActivationMethod, &p.Status, &timeframe, &p.TotalBalance,
		&p.ActivatedAt, &p.CompletedAt, &p.ExpiredAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(timeframe, &p.Timeframe); err != nil {
		return nil, fmt.Errorf("failed to decode promotion timeframe: %w", err)
	}
	return &p, nil
}
