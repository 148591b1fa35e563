package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contributingDepositCondition(rewardID uuid.UUID) QualifyCondition {
	maxAmount := decimal.NewFromInt(100)
	return QualifyCondition{
		ID:       uuid.New(),
		RewardID: rewardID,
		Type:     ConditionTypeDeposit,
		Conditions: DepositConditions{
			ContributesToRewardValue: true,
			MinAmount:                decimal.NewFromInt(20),
			MaxAmount:                &maxAmount,
			BonusPercentage:          decimal.NewFromInt(50),
			MaxBonusAmount:           decimal.NewFromInt(40),
		},
		Timeframe: PromotionTimeframe(),
		Status:    ConditionStatusPending,
	}
}

func TestRewardContributingCondition(t *testing.T) {
	t.Run("single contributing condition", func(t *testing.T) {
		r := testReward()
		r.QualifyConditions = append(r.QualifyConditions, contributingDepositCondition(r.ID))

		found, err := r.ContributingCondition()
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, r.QualifyConditions[1].ID, found.ID)
	})

	t.Run("no contributing condition", func(t *testing.T) {
		r := testReward()
		found, err := r.ContributingCondition()
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("two contributing conditions rejected", func(t *testing.T) {
		r := testReward()
		r.QualifyConditions = append(r.QualifyConditions,
			contributingDepositCondition(r.ID),
			contributingDepositCondition(r.ID),
		)

		_, err := r.ContributingCondition()
		assert.ErrorIs(t, err, ErrMultipleContributingConditions)
		assert.ErrorIs(t, r.Validate(), ErrMultipleContributingConditions)
	})
}

func TestRewardValidate(t *testing.T) {
	t.Run("calculated without contributing condition", func(t *testing.T) {
		r := testReward()
		r.ValueType = RewardValueCalculatedFromConditions
		assert.ErrorIs(t, r.Validate(), ErrNoContributingCondition)
	})

	t.Run("usage conditions must match reward type", func(t *testing.T) {
		r := testReward()
		r.UsageConditions = PlainBonusUsage{Timeframe: PromotionTimeframe()}
		assert.ErrorIs(t, r.Validate(), ErrConditionSpecMismatch)
	})

	t.Run("missing usage conditions", func(t *testing.T) {
		r := testReward()
		r.UsageConditions = nil
		assert.ErrorIs(t, r.Validate(), ErrRewardMissingUsageConditions)
	})

	t.Run("unknown reward type", func(t *testing.T) {
		r := testReward()
		r.Type = "LOOTBOX"
		assert.ErrorIs(t, r.Validate(), ErrUnknownVariant)
	})
}

func TestRewardAdvance(t *testing.T) {
	r := testReward()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	steps := []struct {
		status RewardStatus
		stamp  func() *time.Time
	}{
		{RewardStatusPendingToClaim, func() *time.Time { return r.PendingToClaimAt }},
		{RewardStatusClaimed, func() *time.Time { return r.ClaimedAt }},
		{RewardStatusReceived, func() *time.Time { return r.ReceivedAt }},
		{RewardStatusInUse, func() *time.Time { return r.InUseAt }},
		{RewardStatusUsed, func() *time.Time { return r.UsedAt }},
	}

	for _, step := range steps {
		now = now.Add(time.Hour)
		require.NoError(t, r.Advance(now))
		assert.Equal(t, step.status, r.Status)
		require.NotNil(t, step.stamp())
		assert.True(t, step.stamp().Equal(now))
	}

	// USED is terminal.
	assert.ErrorIs(t, r.Advance(now), ErrInvalidTransition)
	assert.ErrorIs(t, r.Expire(now), ErrInvalidTransition)
}

func TestRewardExpire(t *testing.T) {
	r := testReward()
	now := time.Now().UTC()

	require.NoError(t, r.Expire(now))
	assert.Equal(t, RewardStatusExpired, r.Status)
	assert.ErrorIs(t, r.Expire(now), ErrInvalidTransition)
}

func TestUnmarshalUsageConditions(t *testing.T) {
	t.Run("round trip per type", func(t *testing.T) {
		original := RolloverBonusUsage{
			RolloverMultiplier: decimal.NewFromInt(5),
			MinOdds:            decimal.NewFromFloat(1.8),
			Timeframe:          PromotionTimeframe(),
		}
		data, err := json.Marshal(original)
		require.NoError(t, err)

		decoded, err := UnmarshalUsageConditions(RewardTypeBonusWithRollover, data)
		require.NoError(t, err)

		rollover, ok := decoded.(RolloverBonusUsage)
		require.True(t, ok)
		assert.True(t, rollover.RolloverMultiplier.Equal(original.RolloverMultiplier))
	})

	t.Run("unknown discriminant fails loudly", func(t *testing.T) {
		_, err := UnmarshalUsageConditions("LOOTBOX", []byte(`{}`))
		assert.ErrorIs(t, err, ErrUnknownVariant)
	})
}

func TestRewardJSONRoundTrip(t *testing.T) {
	r := testReward()
	r.QualifyConditions = []QualifyCondition{contributingDepositCondition(r.ID)}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded Reward
	require.NoError(t, json.Unmarshal(data, &decoded))

	usage, ok := decoded.UsageConditions.(FreebetUsage)
	require.True(t, ok)
	assert.True(t, usage.MinOdds.Equal(decimal.NewFromFloat(1.5)))

	require.Len(t, decoded.QualifyConditions, 1)
	spec, ok := decoded.QualifyConditions[0].Conditions.(DepositConditions)
	require.True(t, ok)
	assert.True(t, spec.ContributesToRewardValue)
	assert.True(t, spec.MinAmount.Equal(decimal.NewFromInt(20)))
}
