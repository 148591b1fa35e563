package service

import (
	"context"

	"github.com/google/uuid"

	depositmodel "promotracker-backend/internal/domains/deposit/model"
	"promotracker-backend/internal/domains/promotion/model"
)

// PromotionService manages the promotion aggregate lifecycle.
type PromotionService interface {
	CreatePromotion(ctx context.Context, req *model.CreatePromotionRequest) (*model.Promotion, error)
	GetPromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	ListPromotions(ctx context.Context, page, limit int) ([]model.PromotionListItem, int, error)
	DeletePromotion(ctx context.Context, id uuid.UUID) error

	// Lifecycle transitions. Each stamps the matching timestamp and then
	// reruns the timeframe resolver, since a fresh timestamp may be an
	// anchor some relative timeframe is waiting on.
	ActivatePromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	CompletePromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	ExpirePromotion(ctx context.Context, id uuid.UUID) (*model.Promotion, error)
	ActivatePhase(ctx context.Context, promotionID, phaseID uuid.UUID) (*model.Promotion, error)
	CompletePhase(ctx context.Context, promotionID, phaseID uuid.UUID) (*model.Promotion, error)
	ExpirePhase(ctx context.Context, promotionID, phaseID uuid.UUID) (*model.Promotion, error)
	AdvanceReward(ctx context.Context, promotionID, rewardID uuid.UUID) (*model.Promotion, error)
	ExpireReward(ctx context.Context, promotionID, rewardID uuid.UUID) (*model.Promotion, error)

	// RecalculatePromotionTimeframes resolves every anchor-dependent
	// timeframe in the tree from the currently stamped lifecycle
	// timestamps. Idempotent.
	RecalculatePromotionTimeframes(ctx context.Context, promotionID uuid.UUID) error
}

// QualificationService is the deposit qualification engine.
type QualificationService interface {
	// FulfillDepositCondition records a deposit against a DEPOSIT qualify
	// condition and runs the full evaluation and balance cascade in one
	// transaction.
	FulfillDepositCondition(ctx context.Context, userID, conditionID uuid.UUID, req *model.FulfillDepositRequest) (*model.FulfillmentResult, error)

	// RecordIndependentDeposit persists a deposit outside any promotion
	// and credits the bookmaker account, nothing else.
	RecordIndependentDeposit(ctx context.Context, userID uuid.UUID, req *depositmodel.IndependentDepositRequest) (*depositmodel.Deposit, error)
}
