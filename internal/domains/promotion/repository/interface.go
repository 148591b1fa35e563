package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"promotracker-backend/internal/domains/promotion/model"
)

// EntityKind names the four levels of the promotion hierarchy for
// unit-of-work updates.
type EntityKind string

const (
	KindPromotion        EntityKind = "PROMOTION"
	KindPhase            EntityKind = "PHASE"
	KindReward           EntityKind = "REWARD"
	KindQualifyCondition EntityKind = "QUALIFY_CONDITION"
)

// Update is one field-diff against one entity. The services collect these
// and the repository applies the whole set in one transaction, so a cascade
// is never half-written.
type Update struct {
	Kind   EntityKind
	ID     uuid.UUID
	Fields map[string]interface{}
}

// UpdateSet accumulates updates, merging diffs that target the same entity.
type UpdateSet struct {
	updates []Update
}

// Add records a field-diff, merging into an existing entry for the same
// (kind, id) if one exists.
func (s *UpdateSet) Add(kind EntityKind, id uuid.UUID, fields map[string]interface{}) {
	for i := range s.updates {
		if s.updates[i].Kind == kind && s.updates[i].ID == id {
			for k, v := range fields {
				s.updates[i].Fields[k] = v
			}
			return
		}
	}
	copied := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.updates = append(s.updates, Update{Kind: kind, ID: id, Fields: copied})
}

// Updates returns the collected diffs.
func (s *UpdateSet) Updates() []Update {
	return s.updates
}

// Empty reports whether nothing was collected.
func (s *UpdateSet) Empty() bool {
	return len(s.updates) == 0
}

// TransactionManager hands out transactions for multi-repository units of
// work.
type TransactionManager interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CommitTx(ctx context.Context, tx pgx.Tx) error
	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

// PromotionRepository is the aggregate store: whole-tree reads and atomic
// multi-entity writes.
type PromotionRepository interface {
	// CreateAggregate persists a fully built promotion tree in one
	// transaction. All ids are generated by the caller beforehand.
	CreateAggregate(ctx context.Context, promotion *model.Promotion) error

	// GetAggregate loads the promotion with all nested phases, rewards and
	// qualify conditions in one consistent read.
	GetAggregate(ctx context.Context, id uuid.UUID) (*model.Promotion, error)

	// GetAggregateByConditionTx loads the aggregate owning the given
	// qualify condition inside tx, locking the promotion row so concurrent
	// cascades against the same tree serialize.
	GetAggregateByConditionTx(ctx context.Context, tx pgx.Tx, conditionID uuid.UUID) (*model.Promotion, error)

	List(ctx context.Context, limit, offset int) ([]model.Promotion, int, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ApplyUpdatesTx applies a unit of work inside the caller's
	// transaction.
	ApplyUpdatesTx(ctx context.Context, tx pgx.Tx, updates []Update) error

	// ApplyUpdates applies a unit of work in its own transaction.
	ApplyUpdates(ctx context.Context, updates []Update) error
}
