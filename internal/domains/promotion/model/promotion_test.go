package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPromotion(cardinality PromotionCardinality, phaseCount int) *Promotion {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	p := &Promotion{
		ID:               uuid.New(),
		BookmakerID:      uuid.New(),
		BookmakerName:    "Bet365",
		Name:             "Welcome Offer",
		Cardinality:      cardinality,
		ActivationMethod: ActivationAutomatic,
		Status:           StatusDraft,
		Timeframe:        AbsoluteTimeframe(start, &end),
	}

	for i := 0; i < phaseCount; i++ {
		phase := Phase{
			ID:               uuid.New(),
			PromotionID:      p.ID,
			Name:             "Phase",
			ActivationMethod: ActivationAutomatic,
			Status:           StatusDraft,
			Timeframe:        PromotionTimeframe(),
			Position:         i,
			Rewards:          []Reward{testReward()},
		}
		p.Phases = append(p.Phases, phase)
	}
	return p
}

func testReward() Reward {
	rewardID := uuid.New()
	return Reward{
		ID:               rewardID,
		PhaseID:          uuid.New(),
		Type:             RewardTypeFreebet,
		Name:             "Free Bet",
		Value:            decimal.NewFromInt(30),
		ValueType:        RewardValueFixed,
		ActivationMethod: ActivationAutomatic,
		ClaimMethod:      ClaimAutomatic,
		Status:           RewardStatusQualifying,
		UsageConditions: FreebetUsage{
			MinOdds:   decimal.NewFromFloat(1.5),
			Timeframe: PromotionTimeframe(),
		},
		QualifyConditions: []QualifyCondition{
			{
				ID:       uuid.New(),
				RewardID: rewardID,
				Type:     ConditionTypeDeposit,
				Conditions: DepositConditions{
					TargetAmount: decimal.NewFromInt(50),
				},
				Timeframe: PromotionTimeframe(),
				Status:    ConditionStatusPending,
			},
		},
	}
}

func TestPromotionLifecycle(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	p := testPromotion(CardinalitySingle, 1)

	require.NoError(t, p.Activate(now))
	assert.Equal(t, StatusActive, p.Status)
	require.NotNil(t, p.ActivatedAt)
	assert.True(t, p.ActivatedAt.Equal(now))

	// Double activation is rejected.
	assert.ErrorIs(t, p.Activate(now), ErrInvalidTransition)

	later := now.Add(time.Hour)
	require.NoError(t, p.Complete(later))
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)

	assert.ErrorIs(t, p.Expire(later), ErrInvalidTransition)
}

func TestPhaseLifecycle(t *testing.T) {
	now := time.Now().UTC()
	phase := &Phase{Status: StatusDraft, Name: "Phase 1", Timeframe: PromotionTimeframe()}

	assert.ErrorIs(t, phase.Complete(now), ErrInvalidTransition)

	require.NoError(t, phase.Activate(now))
	require.NoError(t, phase.Complete(now.Add(time.Hour)))
	assert.ErrorIs(t, phase.Expire(now), ErrInvalidTransition)
}

func TestPromotionValidate(t *testing.T) {
	t.Run("valid single", func(t *testing.T) {
		p := testPromotion(CardinalitySingle, 1)
		assert.NoError(t, p.Validate())
	})

	t.Run("single with two phases", func(t *testing.T) {
		p := testPromotion(CardinalitySingle, 2)
		assert.ErrorIs(t, p.Validate(), ErrSinglePromotionPhaseCount)
	})

	t.Run("multiple with two phases", func(t *testing.T) {
		p := testPromotion(CardinalityMultiple, 2)
		assert.NoError(t, p.Validate())
	})

	t.Run("no phases", func(t *testing.T) {
		p := testPromotion(CardinalityMultiple, 0)
		assert.ErrorIs(t, p.Validate(), ErrPromotionNoPhases)
	})

	t.Run("relative promotion timeframe", func(t *testing.T) {
		p := testPromotion(CardinalitySingle, 1)
		p.Timeframe = RelativeTimeframe(Anchor{
			Entity: AnchorEntityPhase, EntityID: uuid.New(), Event: AnchorEventActivated,
		}, nil)
		assert.ErrorIs(t, p.Validate(), ErrPromotionTimeframeNotAbsolute)
	})

	t.Run("unknown cardinality", func(t *testing.T) {
		p := testPromotion(CardinalitySingle, 1)
		p.Cardinality = "TRIPLE"
		assert.ErrorIs(t, p.Validate(), ErrUnknownVariant)
	})
}

func TestPromotionSyncSinglePhase(t *testing.T) {
	p := testPromotion(CardinalitySingle, 1)
	desc := "spring special"
	p.Description = &desc
	p.Phases[0].Name = "stale"

	p.SyncSinglePhase()

	assert.Equal(t, p.Name, p.Phases[0].Name)
	assert.Equal(t, p.Description, p.Phases[0].Description)
	assert.Equal(t, p.ActivationMethod, p.Phases[0].ActivationMethod)
	assert.Equal(t, p.Timeframe, p.Phases[0].Timeframe)

	multi := testPromotion(CardinalityMultiple, 2)
	multi.Phases[0].Name = "untouched"
	multi.SyncSinglePhase()
	assert.Equal(t, "untouched", multi.Phases[0].Name)
}

func TestPromotionFindCondition(t *testing.T) {
	p := testPromotion(CardinalityMultiple, 2)
	want := p.Phases[1].Rewards[0].QualifyConditions[0].ID

	phase, reward, condition, ok := p.FindCondition(want)
	require.True(t, ok)
	assert.Equal(t, p.Phases[1].ID, phase.ID)
	assert.Equal(t, p.Phases[1].Rewards[0].ID, reward.ID)
	assert.Equal(t, want, condition.ID)

	_, _, _, ok = p.FindCondition(uuid.New())
	assert.False(t, ok)
}

func TestPromotionRecomputeBalances(t *testing.T) {
	p := testPromotion(CardinalityMultiple, 2)
	p.Phases[0].Rewards[0].QualifyConditions[0].Balance = decimal.NewFromInt(70)
	p.Phases[1].Rewards[0].QualifyConditions[0].Balance = decimal.NewFromInt(30)

	p.RecomputeBalances()

	assert.True(t, p.Phases[0].Rewards[0].TotalBalance.Equal(decimal.NewFromInt(70)))
	assert.True(t, p.Phases[0].TotalBalance.Equal(decimal.NewFromInt(70)))
	assert.True(t, p.Phases[1].TotalBalance.Equal(decimal.NewFromInt(30)))
	assert.True(t, p.TotalBalance.Equal(decimal.NewFromInt(100)))
}

func TestPromotionAnchorEntries(t *testing.T) {
	now := time.Now().UTC()
	p := testPromotion(CardinalitySingle, 1)
	require.NoError(t, p.Activate(now))
	require.NoError(t, p.Phases[0].Activate(now))

	qualifiedAt := now.Add(time.Minute)
	p.Phases[0].Rewards[0].QualifyConditions[0].QualifiedAt = &qualifiedAt

	entries := p.AnchorEntries()
	require.Len(t, entries, 3)

	byEntity := map[AnchorEntity]AnchorEntry{}
	for _, e := range entries {
		byEntity[e.Entity] = e
	}
	assert.Equal(t, AnchorEventActivated, byEntity[AnchorEntityPromotion].Event)
	assert.Equal(t, AnchorEventActivated, byEntity[AnchorEntityPhase].Event)
	assert.Equal(t, AnchorEventQualified, byEntity[AnchorEntityQualifyCondition].Event)
}
