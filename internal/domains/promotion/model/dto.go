package model

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -------------------------------------------------------------------
// REQUESTS
// -------------------------------------------------------------------

// TimeframeRequest is the wire shape of a timeframe. Relative anchors may
// reference entities by index path because ids do not exist yet at create
// time; the service resolves indices to generated ids.
type TimeframeRequest struct {
	Mode  string     `json:"mode"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`

	AnchorEntity   *string    `json:"anchor_entity,omitempty"`
	AnchorEntityID *uuid.UUID `json:"anchor_entity_id,omitempty"`
	AnchorEvent    *string    `json:"anchor_event,omitempty"`
	OffsetDays     *int       `json:"offset_days,omitempty"`
}

func (r TimeframeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode,
			validation.Required,
			validation.In(string(TimeframeModeAbsolute), string(TimeframeModeRelative), string(TimeframeModePromotion)),
		),
		validation.Field(&r.Start,
			validation.Required.When(r.Mode == string(TimeframeModeAbsolute)).Error("absolute timeframe requires start"),
		),
		validation.Field(&r.AnchorEntity,
			validation.Required.When(r.Mode == string(TimeframeModeRelative)).Error("relative timeframe requires anchor"),
		),
		validation.Field(&r.AnchorEvent,
			validation.Required.When(r.Mode == string(TimeframeModeRelative)).Error("relative timeframe requires anchor event"),
		),
		validation.Field(&r.OffsetDays,
			validation.Min(1).Error("offset_days must be positive"),
		),
	)
}

// ToTimeframe builds the model value. For RELATIVE mode the anchor entity id
// must already be resolved by the caller.
func (r TimeframeRequest) ToTimeframe() (Timeframe, error) {
	switch TimeframeMode(r.Mode) {
	case TimeframeModeAbsolute:
		if r.Start == nil {
			return Timeframe{}, ErrTimeframeMissingStart
		}
		return AbsoluteTimeframe(*r.Start, r.End), nil
	case TimeframeModeRelative:
		if r.AnchorEntity == nil || r.AnchorEvent == nil || r.AnchorEntityID == nil {
			return Timeframe{}, ErrTimeframeMissingAnchor
		}
		anchor := Anchor{
			Entity:   AnchorEntity(*r.AnchorEntity),
			EntityID: *r.AnchorEntityID,
			Event:    AnchorEvent(*r.AnchorEvent),
		}
		return RelativeTimeframe(anchor, r.OffsetDays), nil
	case TimeframeModePromotion:
		return PromotionTimeframe(), nil
	default:
		return Timeframe{}, fmt.Errorf("%w: timeframe mode %q", ErrUnknownVariant, r.Mode)
	}
}

// QualifyConditionRequest is the flat wire shape of one qualify condition;
// ToSpec picks the fields the discriminant needs.
type QualifyConditionRequest struct {
	Type                     string `json:"type"`
	ContributesToRewardValue bool   `json:"contributes_to_reward_value"`

	MinAmount       *decimal.Decimal `json:"min_amount,omitempty"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	BonusPercentage *decimal.Decimal `json:"bonus_percentage,omitempty"`
	MaxBonusAmount  *decimal.Decimal `json:"max_bonus_amount,omitempty"`
	TargetAmount    *decimal.Decimal `json:"target_amount,omitempty"`
	DepositCode     *string          `json:"deposit_code,omitempty"`

	MinOdds *decimal.Decimal `json:"min_odds,omitempty"`
	Market  *string          `json:"market,omitempty"`

	CashbackPercentage *decimal.Decimal `json:"cashback_percentage,omitempty"`
	MaxCashbackAmount  *decimal.Decimal `json:"max_cashback_amount,omitempty"`
	MinLosses          *decimal.Decimal `json:"min_losses,omitempty"`

	Timeframe TimeframeRequest `json:"timeframe"`

	// DependsOnIndex references a sibling condition by position, resolved to
	// the generated id during creation.
	DependsOnIndex *int `json:"depends_on_index,omitempty"`
}

func (r QualifyConditionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type,
			validation.Required,
			validation.In(string(ConditionTypeDeposit), string(ConditionTypeBet), string(ConditionTypeLossesCashback)),
		),
		validation.Field(&r.Timeframe),
	)
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// ToSpec builds the typed conditions object. Shape errors surface through
// the object's own Validate, called by the aggregate validation.
func (r QualifyConditionRequest) ToSpec() (ConditionSpec, error) {
	switch QualifyConditionType(r.Type) {
	case ConditionTypeDeposit:
		return DepositConditions{
			ContributesToRewardValue: r.ContributesToRewardValue,
			MinAmount:                deref(r.MinAmount),
			MaxAmount:                r.MaxAmount,
			BonusPercentage:          deref(r.BonusPercentage),
			MaxBonusAmount:           deref(r.MaxBonusAmount),
			TargetAmount:             deref(r.TargetAmount),
			DepositCode:              r.DepositCode,
		}, nil
	case ConditionTypeBet:
		return BetConditions{
			ContributesToRewardValue: r.ContributesToRewardValue,
			MinAmount:                deref(r.MinAmount),
			MaxAmount:                r.MaxAmount,
			BonusPercentage:          deref(r.BonusPercentage),
			MaxBonusAmount:           deref(r.MaxBonusAmount),
			TargetAmount:             deref(r.TargetAmount),
			MinOdds:                  deref(r.MinOdds),
			Market:                   r.Market,
		}, nil
	case ConditionTypeLossesCashback:
		return LossesCashbackConditions{
			CashbackPercentage: deref(r.CashbackPercentage),
			MaxCashbackAmount:  deref(r.MaxCashbackAmount),
			MinLosses:          deref(r.MinLosses),
		}, nil
	default:
		return nil, fmt.Errorf("%w: qualify condition type %q", ErrUnknownVariant, r.Type)
	}
}

// UsageConditionsRequest is the flat wire shape of usage conditions.
type UsageConditionsRequest struct {
	MinOdds            *decimal.Decimal `json:"min_odds,omitempty"`
	StakeReturned      bool             `json:"stake_returned"`
	RolloverMultiplier *decimal.Decimal `json:"rollover_multiplier,omitempty"`
	BoostedOdds        *decimal.Decimal `json:"boosted_odds,omitempty"`
	MaxStake           *decimal.Decimal `json:"max_stake,omitempty"`
	SpinCount          *int             `json:"spin_count,omitempty"`
	GameRestriction    *string          `json:"game_restriction,omitempty"`

	Timeframe TimeframeRequest `json:"timeframe"`
}

func (r UsageConditionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Timeframe),
	)
}

// ToUsage builds the usage-conditions variant matching the reward type.
func (r UsageConditionsRequest) ToUsage(t RewardType, tf Timeframe) (UsageConditions, error) {
	switch t {
	case RewardTypeFreebet:
		return FreebetUsage{MinOdds: deref(r.MinOdds), StakeReturned: r.StakeReturned, Timeframe: tf}, nil
	case RewardTypeBonusWithRollover:
		return RolloverBonusUsage{RolloverMultiplier: deref(r.RolloverMultiplier), MinOdds: deref(r.MinOdds), Timeframe: tf}, nil
	case RewardTypeBonusWithoutRollover:
		return PlainBonusUsage{Timeframe: tf}, nil
	case RewardTypeCashbackFreebet:
		return CashbackFreebetUsage{MinOdds: deref(r.MinOdds), Timeframe: tf}, nil
	case RewardTypeEnhancedOdds:
		return EnhancedOddsUsage{BoostedOdds: deref(r.BoostedOdds), MaxStake: deref(r.MaxStake), Timeframe: tf}, nil
	case RewardTypeCasinoSpins:
		count := 0
		if r.SpinCount != nil {
			count = *r.SpinCount
		}
		return CasinoSpinsUsage{SpinCount: count, GameRestriction: r.GameRestriction, Timeframe: tf}, nil
	default:
		return nil, fmt.Errorf("%w: reward type %q", ErrUnknownVariant, t)
	}
}

// RewardRequest is the wire shape of one reward and its owned conditions.
type RewardRequest struct {
	Type             string           `json:"type"`
	Name             string           `json:"name"`
	ValueType        string           `json:"value_type"`
	Value            *decimal.Decimal `json:"value,omitempty"`
	ActivationMethod string           `json:"activation_method"`
	ClaimMethod      string           `json:"claim_method"`

	QualifyConditions []QualifyConditionRequest `json:"qualify_conditions"`
	UsageConditions   UsageConditionsRequest    `json:"usage_conditions"`
}

func (r RewardRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Type,
			validation.Required,
			validation.In(
				string(RewardTypeFreebet), string(RewardTypeBonusWithRollover),
				string(RewardTypeBonusWithoutRollover), string(RewardTypeCashbackFreebet),
				string(RewardTypeEnhancedOdds), string(RewardTypeCasinoSpins),
			),
		),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.ValueType,
			validation.Required,
			validation.In(string(RewardValueFixed), string(RewardValueCalculatedFromConditions)),
		),
		validation.Field(&r.Value,
			validation.Required.When(r.ValueType == string(RewardValueFixed)).Error("fixed-value reward requires a value"),
			validation.Nil.When(r.ValueType == string(RewardValueCalculatedFromConditions)).Error("calculated value is derived, not set"),
		),
		validation.Field(&r.QualifyConditions),
		validation.Field(&r.UsageConditions),
	)
	if err != nil {
		return err
	}

	// At most one condition may drive the reward's value.
	contributing := 0
	for _, c := range r.QualifyConditions {
		if c.ContributesToRewardValue {
			contributing++
		}
	}
	if contributing > 1 {
		return ErrMultipleContributingConditions
	}
	if r.ValueType == string(RewardValueCalculatedFromConditions) && contributing == 0 {
		return ErrNoContributingCondition
	}
	return nil
}

// PhaseRequest is the wire shape of one phase.
type PhaseRequest struct {
	Name             string           `json:"name"`
	Description      *string          `json:"description,omitempty"`
	ActivationMethod string           `json:"activation_method"`
	Timeframe        TimeframeRequest `json:"timeframe"`
	Rewards          []RewardRequest  `json:"rewards"`
}

func (r PhaseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Timeframe),
		validation.Field(&r.Rewards, validation.Required, validation.Length(1, 50)),
	)
}

// CreatePromotionRequest is the full nested create payload.
type CreatePromotionRequest struct {
	BookmakerID      uuid.UUID  `json:"bookmaker_id"`
	BookmakerName    string     `json:"bookmaker_name"`
	Name             string     `json:"name"`
	Description      *string    `json:"description,omitempty"`
	Cardinality      string     `json:"cardinality"`
	ActivationMethod string     `json:"activation_method"`
	Start            time.Time  `json:"start"`
	End              *time.Time `json:"end,omitempty"`

	Phases []PhaseRequest `json:"phases"`
}

func (r CreatePromotionRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.BookmakerID, validation.Required),
		validation.Field(&r.BookmakerName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Cardinality,
			validation.Required,
			validation.In(string(CardinalitySingle), string(CardinalityMultiple)),
		),
		validation.Field(&r.Start, validation.Required),
		validation.Field(&r.Phases, validation.Required, validation.Length(1, 20)),
	)
	if err != nil {
		return err
	}

	if r.Cardinality == string(CardinalitySingle) && len(r.Phases) != 1 {
		return ErrSinglePromotionPhaseCount
	}
	return nil
}

// FulfillDepositRequest records a deposit against a qualify condition.
type FulfillDepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	DepositCode *string         `json:"deposit_code,omitempty"`
	DepositedAt time.Time       `json:"deposited_at"`
}

func (r FulfillDepositRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount,
			validation.Required,
			validation.By(func(interface{}) error {
				if r.Amount.LessThanOrEqual(decimal.Zero) {
					return ErrInvalidDepositAmount
				}
				return nil
			}),
		),
		validation.Field(&r.DepositedAt, validation.Required),
	)
}

// -------------------------------------------------------------------
// RESULTS
// -------------------------------------------------------------------

// FulfillmentResult is what the qualification engine reports back after a
// deposit has been recorded against a condition.
type FulfillmentResult struct {
	ConditionID     uuid.UUID              `json:"condition_id"`
	DepositID       uuid.UUID              `json:"deposit_id"`
	Fulfilled       bool                   `json:"fulfilled"`
	ConditionStatus QualifyConditionStatus `json:"condition_status"`

	ConditionBalance decimal.Decimal  `json:"condition_balance"`
	CascadedAmount   decimal.Decimal  `json:"cascaded_amount"`
	RewardValue      *decimal.Decimal `json:"reward_value,omitempty"`
}

// PromotionListItem is the compact list projection.
type PromotionListItem struct {
	ID            uuid.UUID            `json:"id"`
	BookmakerName string               `json:"bookmaker_name"`
	Name          string               `json:"name"`
	Cardinality   PromotionCardinality `json:"cardinality"`
	Status        LifecycleStatus      `json:"status"`
	TotalBalance  decimal.Decimal      `json:"total_balance"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ToListItem projects a promotion for list views.
func (p *Promotion) ToListItem() PromotionListItem {
	return PromotionListItem{
		ID:            p.ID,
		BookmakerName: p.BookmakerName,
		Name:          p.Name,
		Cardinality:   p.Cardinality,
		Status:        p.Status,
		TotalBalance:  p.TotalBalance,
		CreatedAt:     p.CreatedAt,
	}
}
