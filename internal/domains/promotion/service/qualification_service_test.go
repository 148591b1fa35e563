package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountmodel "promotracker-backend/internal/domains/account/model"
	depositmodel "promotracker-backend/internal/domains/deposit/model"
	"promotracker-backend/internal/domains/promotion/model"
	"promotracker-backend/internal/domains/promotion/repository"
)

type engineHarness struct {
	svc       *qualificationService
	tx        *fakeTxManager
	promoRepo *fakePromotionRepo
	accounts  *fakeAccountRepo
	deposits  *fakeDepositRepo
	cache     *fakeCache

	userID      uuid.UUID
	accountID   uuid.UUID
	conditionID uuid.UUID
}

// newEngineHarness wires the engine against a single-phase promotion whose
// only reward carries one DEPOSIT condition with the given spec, plus an
// existing bookmaker account for the user.
func newEngineHarness(t *testing.T, spec model.DepositConditions, valueType model.RewardValueType) *engineHarness {
	t.Helper()

	promotionID := uuid.New()
	phaseID := uuid.New()
	rewardID := uuid.New()
	conditionID := uuid.New()
	bookmakerID := uuid.New()
	userID := uuid.New()
	accountID := uuid.New()

	promotion := &model.Promotion{
		ID:            promotionID,
		BookmakerID:   bookmakerID,
		BookmakerName: "Bet365",
		Name:          "Welcome Offer",
		Cardinality:   model.CardinalitySingle,
		Status:        model.StatusActive,
		Timeframe:     model.AbsoluteTimeframe(time.Now().UTC().Add(-time.Hour), nil),
		TotalBalance:  decimal.Zero,
		Phases: []model.Phase{{
			ID:           phaseID,
			PromotionID:  promotionID,
			Name:         "Welcome Offer",
			Status:       model.StatusActive,
			Timeframe:    model.PromotionTimeframe(),
			TotalBalance: decimal.Zero,
			Rewards: []model.Reward{{
				ID:           rewardID,
				PhaseID:      phaseID,
				Type:         model.RewardTypeFreebet,
				Name:         "Welcome Freebet",
				Value:        decimal.Zero,
				ValueType:    valueType,
				Status:       model.RewardStatusQualifying,
				TotalBalance: decimal.Zero,
				UsageConditions: model.FreebetUsage{
					MinOdds:   decimal.NewFromFloat(1.5),
					Timeframe: model.PromotionTimeframe(),
				},
				QualifyConditions: []model.QualifyCondition{{
					ID:         conditionID,
					RewardID:   rewardID,
					Type:       model.ConditionTypeDeposit,
					Conditions: spec,
					Status:     model.ConditionStatusPending,
					Balance:    decimal.Zero,
					Timeframe:  model.PromotionTimeframe(),
				}},
			}},
		}},
	}

	h := &engineHarness{
		tx:        &fakeTxManager{},
		promoRepo: &fakePromotionRepo{aggregate: promotion},
		accounts:  newFakeAccountRepo(),
		deposits:  &fakeDepositRepo{},
		cache:     newFakeCache(),

		userID:      userID,
		accountID:   accountID,
		conditionID: conditionID,
	}
	h.accounts.add(&accountmodel.BookmakerAccount{
		ID:          accountID,
		UserID:      userID,
		BookmakerID: bookmakerID,
		RealBalance: decimal.Zero,
	})

	h.svc = &qualificationService{
		txManager:     h.tx,
		promotionRepo: h.promoRepo,
		accountRepo:   h.accounts,
		depositRepo:   h.deposits,
		cache:         h.cache,
		calculator:    NewBonusCalculator(),
		now:           func() time.Time { return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC) },
	}
	return h
}

func (h *engineHarness) aggregate() *model.Promotion {
	return h.promoRepo.aggregate
}

func fixedTargetSpec(target int64) model.DepositConditions {
	return model.DepositConditions{TargetAmount: decimal.NewFromInt(target)}
}

func calculatedSpec() model.DepositConditions {
	maxAmount := decimal.NewFromInt(100)
	return model.DepositConditions{
		ContributesToRewardValue: true,
		MinAmount:                decimal.NewFromInt(20),
		MaxAmount:                &maxAmount,
		BonusPercentage:          decimal.NewFromInt(50),
		MaxBonusAmount:           decimal.NewFromInt(40),
	}
}

func depositRequest(amount int64, code *string) *model.FulfillDepositRequest {
	return &model.FulfillDepositRequest{
		Amount:      decimal.NewFromInt(amount),
		DepositCode: code,
		DepositedAt: time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestFulfillDepositConditionExactMatch(t *testing.T) {
	ctx := context.Background()
	h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)

	result, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(50, nil))
	require.NoError(t, err)

	assert.True(t, result.Fulfilled)
	assert.Equal(t, model.ConditionStatusFulfilled, result.ConditionStatus)
	assert.True(t, result.ConditionBalance.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.CascadedAmount.Equal(decimal.NewFromInt(50)))
	assert.Nil(t, result.RewardValue)

	require.Len(t, h.deposits.deposits, 1)
	deposit := h.deposits.deposits[0]
	assert.Equal(t, result.DepositID, deposit.ID)
	require.NotNil(t, deposit.QualifyConditionID)
	assert.Equal(t, h.conditionID, *deposit.QualifyConditionID)

	require.Len(t, h.accounts.increments, 1)
	assert.Equal(t, h.accountID, h.accounts.increments[0].accountID)
	assert.True(t, h.accounts.increments[0].amount.Equal(decimal.NewFromInt(50)))

	assert.Equal(t, 1, h.tx.committed)
	assert.Zero(t, h.tx.rolledBack)
	assert.Contains(t, h.cache.deleted, promotionCacheKey(h.aggregate().ID))
}

func TestFulfillDepositConditionCascadesEveryLevel(t *testing.T) {
	ctx := context.Background()
	h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)

	_, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(50, nil))
	require.NoError(t, err)

	promotion := h.aggregate()
	phase := &promotion.Phases[0]
	reward := &phase.Rewards[0]
	condition := &reward.QualifyConditions[0]
	amount := decimal.NewFromInt(50)

	for _, level := range []struct {
		kind repository.EntityKind
		id   uuid.UUID
		got  decimal.Decimal
	}{
		{repository.KindQualifyCondition, condition.ID, condition.Balance},
		{repository.KindReward, reward.ID, reward.TotalBalance},
		{repository.KindPhase, phase.ID, phase.TotalBalance},
		{repository.KindPromotion, promotion.ID, promotion.TotalBalance},
	} {
		assert.True(t, level.got.Equal(amount), "%s balance: got %s", level.kind, level.got)
		_, ok := h.promoRepo.findApplied(level.kind, level.id)
		assert.True(t, ok, "no update applied for %s", level.kind)
	}

	update, _ := h.promoRepo.findApplied(repository.KindQualifyCondition, condition.ID)
	assert.Equal(t, model.ConditionStatusFulfilled, update.Fields["status"])
	assert.Contains(t, update.Fields, "qualified_at")
	assert.Contains(t, update.Fields, "tracking_data")

	require.NotNil(t, condition.TrackingData)
	assert.Equal(t, model.TrackingStatusCompleted, condition.TrackingData.Status)
}

func TestFulfillDepositConditionPartialProgress(t *testing.T) {
	ctx := context.Background()
	h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)

	result, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(30, nil))
	require.NoError(t, err)

	assert.False(t, result.Fulfilled)
	assert.Equal(t, model.ConditionStatusQualifying, result.ConditionStatus)
	assert.True(t, result.ConditionBalance.Equal(decimal.NewFromInt(30)))

	// The deposit is recorded and cascaded even though it missed the target.
	require.Len(t, h.deposits.deposits, 1)
	assert.True(t, h.aggregate().TotalBalance.Equal(decimal.NewFromInt(30)))

	condition := &h.aggregate().Phases[0].Rewards[0].QualifyConditions[0]
	require.NotNil(t, condition.TrackingData)
	assert.Equal(t, model.TrackingStatusInProgress, condition.TrackingData.Status)
	require.NotNil(t, condition.StartedAt)
	assert.Nil(t, condition.QualifiedAt)
}

func TestFulfillDepositConditionCalculatedValue(t *testing.T) {
	ctx := context.Background()

	t.Run("bonus derived from deposit", func(t *testing.T) {
		h := newEngineHarness(t, calculatedSpec(), model.RewardValueCalculatedFromConditions)

		result, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(90, nil))
		require.NoError(t, err)

		assert.True(t, result.Fulfilled)
		require.NotNil(t, result.RewardValue)
		assert.True(t, result.RewardValue.Equal(decimal.NewFromInt(40)))

		reward := &h.aggregate().Phases[0].Rewards[0]
		assert.True(t, reward.Value.Equal(decimal.NewFromInt(40)))

		update, ok := h.promoRepo.findApplied(repository.KindReward, reward.ID)
		require.True(t, ok)
		assert.Contains(t, update.Fields, "value")
	})

	t.Run("below minimum tracks progress without a value", func(t *testing.T) {
		h := newEngineHarness(t, calculatedSpec(), model.RewardValueCalculatedFromConditions)

		result, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(10, nil))
		require.NoError(t, err)

		assert.False(t, result.Fulfilled)
		assert.Nil(t, result.RewardValue)
		assert.True(t, result.ConditionBalance.Equal(decimal.NewFromInt(10)))

		reward := &h.aggregate().Phases[0].Rewards[0]
		assert.True(t, reward.Value.Equal(decimal.Zero))

		update, ok := h.promoRepo.findApplied(repository.KindReward, reward.ID)
		require.True(t, ok)
		assert.NotContains(t, update.Fields, "value")
	})
}

func TestFulfillDepositConditionCodeGate(t *testing.T) {
	ctx := context.Background()
	required := "WELCOME"

	spec := fixedTargetSpec(50)
	spec.DepositCode = &required

	t.Run("wrong code still records the deposit", func(t *testing.T) {
		h := newEngineHarness(t, spec, model.RewardValueFixed)
		other := "OTHER"

		result, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(50, &other))
		require.NoError(t, err)

		assert.False(t, result.Fulfilled)
		require.Len(t, h.deposits.deposits, 1)
		assert.True(t, h.aggregate().TotalBalance.Equal(decimal.NewFromInt(50)))
	})

	t.Run("missing code fails the gate", func(t *testing.T) {
		h := newEngineHarness(t, spec, model.RewardValueFixed)

		result, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(50, nil))
		require.NoError(t, err)
		assert.False(t, result.Fulfilled)
	})

	t.Run("matching code fulfills", func(t *testing.T) {
		h := newEngineHarness(t, spec, model.RewardValueFixed)
		code := "WELCOME"

		result, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(50, &code))
		require.NoError(t, err)
		assert.True(t, result.Fulfilled)
	})
}

func TestFulfillDepositConditionRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing account aborts before any write", func(t *testing.T) {
		h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)
		stranger := uuid.New()

		_, err := h.svc.FulfillDepositCondition(ctx, stranger, h.conditionID, depositRequest(50, nil))
		assert.ErrorIs(t, err, accountmodel.ErrAccountNotFound)

		assert.Empty(t, h.deposits.deposits)
		assert.Empty(t, h.accounts.increments)
		assert.Empty(t, h.promoRepo.applied)
		assert.Equal(t, 1, h.tx.rolledBack)
		assert.Zero(t, h.tx.committed)
	})

	t.Run("unknown condition", func(t *testing.T) {
		h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)

		_, err := h.svc.FulfillDepositCondition(ctx, h.userID, uuid.New(), depositRequest(50, nil))
		assert.ErrorIs(t, err, model.ErrConditionNotFound)
		assert.Equal(t, 1, h.tx.rolledBack)
	})

	t.Run("non-deposit condition", func(t *testing.T) {
		h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)
		condition := &h.aggregate().Phases[0].Rewards[0].QualifyConditions[0]
		condition.Type = model.ConditionTypeBet
		condition.Conditions = model.BetConditions{
			TargetAmount: decimal.NewFromInt(50),
			MinOdds:      decimal.NewFromInt(2),
		}

		_, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(50, nil))
		assert.ErrorIs(t, err, model.ErrNotDepositCondition)
		assert.Empty(t, h.deposits.deposits)
	})

	t.Run("terminal condition", func(t *testing.T) {
		h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)
		h.aggregate().Phases[0].Rewards[0].QualifyConditions[0].Status = model.ConditionStatusFulfilled

		_, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(50, nil))
		assert.ErrorIs(t, err, model.ErrInvalidTransition)
		assert.Empty(t, h.deposits.deposits)
	})

	t.Run("non-positive amount rejected before the transaction", func(t *testing.T) {
		h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)

		_, err := h.svc.FulfillDepositCondition(ctx, h.userID, h.conditionID, depositRequest(0, nil))
		assert.Error(t, err)
		assert.Zero(t, h.tx.begun)
	})
}

func TestRecordIndependentDeposit(t *testing.T) {
	ctx := context.Background()
	h := newEngineHarness(t, fixedTargetSpec(50), model.RewardValueFixed)

	req := &depositmodel.IndependentDepositRequest{
		BookmakerID: h.aggregate().BookmakerID,
		Amount:      decimal.NewFromInt(75),
		DepositedAt: time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
	}

	deposit, err := h.svc.RecordIndependentDeposit(ctx, h.userID, req)
	require.NoError(t, err)

	assert.Nil(t, deposit.QualifyConditionID)
	assert.Equal(t, h.accountID, deposit.BookmakerAccountID)

	require.Len(t, h.accounts.increments, 1)
	assert.True(t, h.accounts.increments[0].amount.Equal(decimal.NewFromInt(75)))

	// No promotion tree is touched.
	assert.Empty(t, h.promoRepo.applied)
	assert.True(t, h.aggregate().TotalBalance.Equal(decimal.Zero))
	assert.Equal(t, 1, h.tx.committed)
}
