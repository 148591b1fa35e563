package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositConditionsValidate(t *testing.T) {
	maxAmount := decimal.NewFromInt(100)
	lowMax := decimal.NewFromInt(10)

	tests := []struct {
		name    string
		spec    DepositConditions
		wantErr error
	}{
		{
			"calculated ok",
			DepositConditions{
				ContributesToRewardValue: true,
				MinAmount:                decimal.NewFromInt(20),
				MaxAmount:                &maxAmount,
				BonusPercentage:          decimal.NewFromInt(50),
				MaxBonusAmount:           decimal.NewFromInt(40),
			},
			nil,
		},
		{
			"calculated zero min amount",
			DepositConditions{
				ContributesToRewardValue: true,
				BonusPercentage:          decimal.NewFromInt(50),
				MaxBonusAmount:           decimal.NewFromInt(40),
			},
			ErrConditionInvalidAmount,
		},
		{
			"calculated max below min",
			DepositConditions{
				ContributesToRewardValue: true,
				MinAmount:                decimal.NewFromInt(20),
				MaxAmount:                &lowMax,
				BonusPercentage:          decimal.NewFromInt(50),
				MaxBonusAmount:           decimal.NewFromInt(40),
			},
			ErrConditionInvalidAmount,
		},
		{
			"calculated zero percentage",
			DepositConditions{
				ContributesToRewardValue: true,
				MinAmount:                decimal.NewFromInt(20),
				MaxBonusAmount:           decimal.NewFromInt(40),
			},
			ErrConditionInvalidPercentage,
		},
		{
			"fixed ok",
			DepositConditions{TargetAmount: decimal.NewFromInt(50)},
			nil,
		},
		{
			"fixed zero target",
			DepositConditions{},
			ErrConditionInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestQualifyConditionValidate(t *testing.T) {
	t.Run("spec type must match discriminant", func(t *testing.T) {
		c := QualifyCondition{
			Type:       ConditionTypeDeposit,
			Conditions: BetConditions{TargetAmount: decimal.NewFromInt(10), MinOdds: decimal.NewFromInt(2)},
			Timeframe:  PromotionTimeframe(),
		}
		assert.ErrorIs(t, c.Validate(), ErrConditionSpecMismatch)
	})

	t.Run("missing spec", func(t *testing.T) {
		c := QualifyCondition{Type: ConditionTypeDeposit, Timeframe: PromotionTimeframe()}
		assert.ErrorIs(t, c.Validate(), ErrConditionMissingSpec)
	})

	t.Run("unknown type", func(t *testing.T) {
		c := QualifyCondition{Type: "SPIN", Timeframe: PromotionTimeframe()}
		assert.ErrorIs(t, c.Validate(), ErrUnknownVariant)
	})
}

func TestQualifyConditionLifecycle(t *testing.T) {
	now := time.Now().UTC()

	t.Run("pending to qualifying to fulfilled", func(t *testing.T) {
		c := QualifyCondition{Status: ConditionStatusPending}
		require.NoError(t, c.StartQualifying(now))
		assert.Equal(t, ConditionStatusQualifying, c.Status)
		require.NotNil(t, c.StartedAt)

		require.NoError(t, c.Fulfill(now.Add(time.Hour)))
		assert.Equal(t, ConditionStatusFulfilled, c.Status)
		require.NotNil(t, c.QualifiedAt)
	})

	t.Run("fulfill directly from pending", func(t *testing.T) {
		c := QualifyCondition{Status: ConditionStatusPending}
		require.NoError(t, c.Fulfill(now))
		assert.Equal(t, ConditionStatusFulfilled, c.Status)
	})

	t.Run("terminal states reject transitions", func(t *testing.T) {
		for _, status := range []QualifyConditionStatus{
			ConditionStatusFulfilled, ConditionStatusFailed, ConditionStatusExpired,
		} {
			c := QualifyCondition{Status: status}
			assert.ErrorIs(t, c.Fulfill(now), ErrInvalidTransition)
			assert.ErrorIs(t, c.Fail(now), ErrInvalidTransition)
			assert.ErrorIs(t, c.Expire(now), ErrInvalidTransition)
		}
	})
}

func TestUnmarshalConditionSpec(t *testing.T) {
	t.Run("deposit round trip", func(t *testing.T) {
		code := "WELCOME"
		original := DepositConditions{TargetAmount: decimal.NewFromInt(50), DepositCode: &code}
		data, err := json.Marshal(original)
		require.NoError(t, err)

		decoded, err := UnmarshalConditionSpec(ConditionTypeDeposit, data)
		require.NoError(t, err)

		spec, ok := decoded.(DepositConditions)
		require.True(t, ok)
		assert.True(t, spec.TargetAmount.Equal(original.TargetAmount))
		require.NotNil(t, spec.DepositCode)
		assert.Equal(t, "WELCOME", *spec.DepositCode)
	})

	t.Run("unknown discriminant fails loudly", func(t *testing.T) {
		_, err := UnmarshalConditionSpec("SPIN", []byte(`{}`))
		assert.ErrorIs(t, err, ErrUnknownVariant)
	})
}
