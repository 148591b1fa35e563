package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	accountrepo "promotracker-backend/internal/domains/account/repository"
	depositmodel "promotracker-backend/internal/domains/deposit/model"
	depositrepo "promotracker-backend/internal/domains/deposit/repository"
	"promotracker-backend/internal/domains/promotion/model"
	"promotracker-backend/internal/domains/promotion/repository"
	"promotracker-backend/pkg/cache"
	"promotracker-backend/pkg/logger"
)

type qualificationService struct {
	txManager     repository.TransactionManager
	promotionRepo repository.PromotionRepository
	accountRepo   accountrepo.AccountRepository
	depositRepo   depositrepo.DepositRepository
	cache         cache.Cache
	calculator    *BonusCalculator
	now           func() time.Time
}

func NewQualificationService(
	txManager repository.TransactionManager,
	promotionRepo repository.PromotionRepository,
	accountRepo accountrepo.AccountRepository,
	depositRepo depositrepo.DepositRepository,
	cacheStore cache.Cache,
) QualificationService {
	return &qualificationService{
		txManager:     txManager,
		promotionRepo: promotionRepo,
		accountRepo:   accountRepo,
		depositRepo:   depositRepo,
		cache:         cacheStore,
		calculator:    NewBonusCalculator(),
		now:           time.Now,
	}
}

// FulfillDepositCondition runs the whole deposit evaluation and balance
// cascade in one transaction: record the deposit, credit the bookmaker
// account, update the condition, and push the amount up through reward,
// phase and promotion balances. Either everything commits or nothing does.
func (s *qualificationService) FulfillDepositCondition(ctx context.Context, userID, conditionID uuid.UUID, req *model.FulfillDepositRequest) (result *model.FulfillmentResult, err error) {
	if err = req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = s.txManager.RollbackTx(ctx, tx)
		}
	}()

	promotion, err := s.promotionRepo.GetAggregateByConditionTx(ctx, tx, conditionID)
	if err != nil {
		return nil, err
	}

	phase, reward, condition, ok := promotion.FindCondition(conditionID)
	if !ok {
		err = model.ErrConditionNotFound
		return nil, err
	}
	if condition.Type != model.ConditionTypeDeposit {
		err = fmt.Errorf("%w: condition %s has type %s", model.ErrNotDepositCondition, conditionID, condition.Type)
		return nil, err
	}
	if condition.Status.Terminal() {
		err = fmt.Errorf("%w: qualify condition is %s", model.ErrInvalidTransition, condition.Status)
		return nil, err
	}
	spec, ok := condition.Conditions.(model.DepositConditions)
	if !ok {
		err = fmt.Errorf("%w: condition spec %T on DEPOSIT condition", model.ErrUnknownVariant, condition.Conditions)
		return nil, err
	}

	// Account existence is a precondition. Locking the row here also
	// serializes the balance increment.
	account, err := s.accountRepo.FindByUserAndBookmakerTx(ctx, tx, userID, promotion.BookmakerID)
	if err != nil {
		return nil, err
	}

	fulfilled := evaluateDeposit(spec, req.Amount, req.DepositCode)
	now := s.now()

	deposit := &depositmodel.Deposit{
		ID:                 uuid.New(),
		UserID:             userID,
		BookmakerAccountID: account.ID,
		QualifyConditionID: &condition.ID,
		Amount:             req.Amount,
		Code:               req.DepositCode,
		DepositedAt:        req.DepositedAt,
	}
	if err = s.depositRepo.CreateTx(ctx, tx, deposit); err != nil {
		return nil, err
	}
	if err = s.accountRepo.IncrementRealBalanceTx(ctx, tx, account.ID, req.Amount); err != nil {
		return nil, err
	}

	updates := &repository.UpdateSet{}

	conditionFields := map[string]interface{}{}
	if fulfilled {
		if err = condition.Fulfill(now); err != nil {
			return nil, err
		}
		conditionFields["qualified_at"] = *condition.QualifiedAt
	} else if condition.Status == model.ConditionStatusPending {
		if err = condition.StartQualifying(now); err != nil {
			return nil, err
		}
		conditionFields["started_at"] = *condition.StartedAt
	}

	trackingStatus := model.TrackingStatusInProgress
	if fulfilled {
		trackingStatus = model.TrackingStatusCompleted
	}
	condition.Balance = condition.Balance.Add(req.Amount)
	condition.TrackingData = &model.QualifyTracking{
		DepositID:  &deposit.ID,
		Amount:     req.Amount,
		Code:       req.DepositCode,
		OccurredAt: req.DepositedAt,
		Status:     trackingStatus,
	}
	conditionFields["status"] = condition.Status
	conditionFields["balance"] = condition.Balance
	conditionFields["tracking_data"] = condition.TrackingData
	updates.Add(repository.KindQualifyCondition, condition.ID, conditionFields)

	// Unconditional three-level cascade of the raw amount.
	reward.TotalBalance = reward.TotalBalance.Add(req.Amount)
	phase.TotalBalance = phase.TotalBalance.Add(req.Amount)
	promotion.TotalBalance = promotion.TotalBalance.Add(req.Amount)

	rewardFields := map[string]interface{}{"total_balance": reward.TotalBalance}

	var rewardValue *decimal.Decimal
	if fulfilled && spec.ContributesToRewardValue && reward.ValueType == model.RewardValueCalculatedFromConditions {
		params, _ := spec.CalculatedParams()
		reward.Value = s.calculator.Calculate(params, req.Amount)
		rewardFields["value"] = reward.Value
		v := reward.Value
		rewardValue = &v
	}
	updates.Add(repository.KindReward, reward.ID, rewardFields)
	updates.Add(repository.KindPhase, phase.ID, map[string]interface{}{"total_balance": phase.TotalBalance})
	updates.Add(repository.KindPromotion, promotion.ID, map[string]interface{}{"total_balance": promotion.TotalBalance})

	if err = s.promotionRepo.ApplyUpdatesTx(ctx, tx, updates.Updates()); err != nil {
		return nil, err
	}
	if err = s.txManager.CommitTx(ctx, tx); err != nil {
		return nil, err
	}

	s.invalidatePromotion(ctx, promotion.ID)

	logger.Info("deposit condition processed", map[string]interface{}{
		"condition_id": condition.ID,
		"deposit_id":   deposit.ID,
		"amount":       req.Amount,
		"fulfilled":    fulfilled,
	})

	return &model.FulfillmentResult{
		ConditionID:      condition.ID,
		DepositID:        deposit.ID,
		Fulfilled:        fulfilled,
		ConditionStatus:  condition.Status,
		ConditionBalance: condition.Balance,
		CascadedAmount:   req.Amount,
		RewardValue:      rewardValue,
	}, nil
}

// RecordIndependentDeposit persists a deposit outside any promotion and
// credits the bookmaker account. No cascade, no condition updates.
func (s *qualificationService) RecordIndependentDeposit(ctx context.Context, userID uuid.UUID, req *depositmodel.IndependentDepositRequest) (deposit *depositmodel.Deposit, err error) {
	if err = req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.txManager.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = s.txManager.RollbackTx(ctx, tx)
		}
	}()

	account, err := s.accountRepo.FindByUserAndBookmakerTx(ctx, tx, userID, req.BookmakerID)
	if err != nil {
		return nil, err
	}

	deposit = &depositmodel.Deposit{
		ID:                 uuid.New(),
		UserID:             userID,
		BookmakerAccountID: account.ID,
		Amount:             req.Amount,
		Code:               req.Code,
		DepositedAt:        req.DepositedAt,
	}
	if err = s.depositRepo.CreateTx(ctx, tx, deposit); err != nil {
		return nil, err
	}
	if err = s.accountRepo.IncrementRealBalanceTx(ctx, tx, account.ID, req.Amount); err != nil {
		return nil, err
	}
	if err = s.txManager.CommitTx(ctx, tx); err != nil {
		return nil, err
	}
	return deposit, nil
}

// evaluateDeposit applies the mode-specific amount rule and the
// case-sensitive code gate.
func evaluateDeposit(spec model.DepositConditions, amount decimal.Decimal, code *string) bool {
	if spec.DepositCode != nil {
		if code == nil || *code != *spec.DepositCode {
			return false
		}
	}
	if spec.ContributesToRewardValue {
		// Excess above MaxAmount still fulfills; it is only excluded
		// from the bonus calculation.
		return amount.GreaterThanOrEqual(spec.MinAmount)
	}
	return amount.Equal(spec.TargetAmount)
}

func (s *qualificationService) invalidatePromotion(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Delete(ctx, promotionCacheKey(id)); err != nil {
		logger.Warn("failed to invalidate promotion cache", map[string]interface{}{
			"promotion_id": id,
			"error":        err.Error(),
		})
	}
}
