package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QualifyConditionType discriminates the qualify-condition variants.
type QualifyConditionType string

const (
	ConditionTypeDeposit        QualifyConditionType = "DEPOSIT"
	ConditionTypeBet            QualifyConditionType = "BET"
	ConditionTypeLossesCashback QualifyConditionType = "LOSSES_CASHBACK"
)

func (t QualifyConditionType) IsValid() bool {
	switch t {
	case ConditionTypeDeposit, ConditionTypeBet, ConditionTypeLossesCashback:
		return true
	}
	return false
}

// QualifyConditionStatus is the condition lifecycle.
type QualifyConditionStatus string

const (
	ConditionStatusPending    QualifyConditionStatus = "PENDING"
	ConditionStatusQualifying QualifyConditionStatus = "QUALIFYING"
	ConditionStatusFulfilled  QualifyConditionStatus = "FULFILLED"
	ConditionStatusFailed     QualifyConditionStatus = "FAILED"
	ConditionStatusExpired    QualifyConditionStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed.
func (s QualifyConditionStatus) Terminal() bool {
	switch s {
	case ConditionStatusFulfilled, ConditionStatusFailed, ConditionStatusExpired:
		return true
	}
	return false
}

// ConditionSpec is the sealed variant carrying type-specific requirement
// parameters. Exactly one concrete type exists per QualifyConditionType;
// the unexported marker keeps the set closed to this package.
type ConditionSpec interface {
	ConditionType() QualifyConditionType
	Validate() error
	conditionSpec()
}

// CalculatedValueParams are the parameters of calculated-value mode,
// shared by deposit and bet conditions.
type CalculatedValueParams struct {
	MinAmount       decimal.Decimal
	MaxAmount       *decimal.Decimal
	BonusPercentage decimal.Decimal
	MaxBonusAmount  decimal.Decimal
}

// DepositConditions are the requirements of a DEPOSIT condition.
//
// ContributesToRewardValue is the discriminator between the two shapes:
// when true the condition drives a calculated reward value and carries
// MinAmount/MaxAmount/BonusPercentage/MaxBonusAmount; when false it is an
// exact-match condition carrying only TargetAmount. This flag is the single
// place recording which condition drives a reward's value.
type DepositConditions struct {
	ContributesToRewardValue bool `json:"contributes_to_reward_value"`

	// Calculated-value mode
	MinAmount       decimal.Decimal  `json:"min_amount"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	BonusPercentage decimal.Decimal  `json:"bonus_percentage"`
	MaxBonusAmount  decimal.Decimal  `json:"max_bonus_amount"`

	// Fixed mode
	TargetAmount decimal.Decimal `json:"target_amount"`

	// Optional bonus code the deposit must carry, case-sensitive.
	DepositCode *string `json:"deposit_code,omitempty"`
}

func (DepositConditions) ConditionType() QualifyConditionType { return ConditionTypeDeposit }
func (DepositConditions) conditionSpec()                      {}

func (c DepositConditions) Validate() error {
	if c.ContributesToRewardValue {
		if c.MinAmount.LessThanOrEqual(decimal.Zero) {
			return ErrConditionInvalidAmount
		}
		if c.MaxAmount != nil && c.MaxAmount.LessThan(c.MinAmount) {
			return ErrConditionInvalidAmount
		}
		if c.BonusPercentage.LessThanOrEqual(decimal.Zero) {
			return ErrConditionInvalidPercentage
		}
		if c.MaxBonusAmount.LessThanOrEqual(decimal.Zero) {
			return ErrConditionInvalidAmount
		}
		return nil
	}
	if c.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return ErrConditionInvalidAmount
	}
	return nil
}

// CalculatedParams returns the calculated-value parameters when the
// condition is in calculated mode.
func (c DepositConditions) CalculatedParams() (CalculatedValueParams, bool) {
	if !c.ContributesToRewardValue {
		return CalculatedValueParams{}, false
	}
	return CalculatedValueParams{
		MinAmount:       c.MinAmount,
		MaxAmount:       c.MaxAmount,
		BonusPercentage: c.BonusPercentage,
		MaxBonusAmount:  c.MaxBonusAmount,
	}, true
}

// BetConditions are the requirements of a BET condition: stake a qualifying
// bet at or above minimum odds. Shares the contributes discriminator with
// deposit conditions.
type BetConditions struct {
	ContributesToRewardValue bool `json:"contributes_to_reward_value"`

	// Calculated-value mode
	MinAmount       decimal.Decimal  `json:"min_amount"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	BonusPercentage decimal.Decimal  `json:"bonus_percentage"`
	MaxBonusAmount  decimal.Decimal  `json:"max_bonus_amount"`

	// Fixed mode
	TargetAmount decimal.Decimal `json:"target_amount"`

	// Bet-specific requirements
	MinOdds decimal.Decimal `json:"min_odds"`
	Market  *string         `json:"market,omitempty"`
}

func (BetConditions) ConditionType() QualifyConditionType { return ConditionTypeBet }
func (BetConditions) conditionSpec()                      {}

func (c BetConditions) Validate() error {
	if c.MinOdds.LessThan(decimal.NewFromInt(1)) {
		return ErrConditionInvalidOdds
	}
	if c.ContributesToRewardValue {
		if c.MinAmount.LessThanOrEqual(decimal.Zero) {
			return ErrConditionInvalidAmount
		}
		if c.BonusPercentage.LessThanOrEqual(decimal.Zero) {
			return ErrConditionInvalidPercentage
		}
		return nil
	}
	if c.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return ErrConditionInvalidAmount
	}
	return nil
}

func (c BetConditions) CalculatedParams() (CalculatedValueParams, bool) {
	if !c.ContributesToRewardValue {
		return CalculatedValueParams{}, false
	}
	return CalculatedValueParams{
		MinAmount:       c.MinAmount,
		MaxAmount:       c.MaxAmount,
		BonusPercentage: c.BonusPercentage,
		MaxBonusAmount:  c.MaxBonusAmount,
	}, true
}

// LossesCashbackConditions refund a percentage of net losses accumulated
// over the condition's timeframe.
type LossesCashbackConditions struct {
	CashbackPercentage decimal.Decimal `json:"cashback_percentage"`
	MaxCashbackAmount  decimal.Decimal `json:"max_cashback_amount"`
	MinLosses          decimal.Decimal `json:"min_losses"`
}

func (LossesCashbackConditions) ConditionType() QualifyConditionType {
	return ConditionTypeLossesCashback
}
func (LossesCashbackConditions) conditionSpec() {}

func (c LossesCashbackConditions) Validate() error {
	if c.CashbackPercentage.LessThanOrEqual(decimal.Zero) ||
		c.CashbackPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return ErrConditionInvalidPercentage
	}
	if c.MaxCashbackAmount.LessThanOrEqual(decimal.Zero) {
		return ErrConditionInvalidAmount
	}
	if c.MinLosses.LessThan(decimal.Zero) {
		return ErrConditionInvalidAmount
	}
	return nil
}

// UnmarshalConditionSpec decodes the persisted conditions object for the
// given discriminant. An unknown discriminant is a data-integrity error,
// never silently defaulted.
func UnmarshalConditionSpec(t QualifyConditionType, data []byte) (ConditionSpec, error) {
	switch t {
	case ConditionTypeDeposit:
		var spec DepositConditions
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("decode deposit conditions: %w", err)
		}
		return spec, nil
	case ConditionTypeBet:
		var spec BetConditions
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("decode bet conditions: %w", err)
		}
		return spec, nil
	case ConditionTypeLossesCashback:
		var spec LossesCashbackConditions
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("decode losses-cashback conditions: %w", err)
		}
		return spec, nil
	default:
		return nil, fmt.Errorf("%w: qualify condition type %q", ErrUnknownVariant, t)
	}
}

// TrackingStatus is the state of a tracking snapshot.
type TrackingStatus string

const (
	TrackingStatusInProgress TrackingStatus = "IN_PROGRESS"
	TrackingStatusCompleted  TrackingStatus = "COMPLETED"
)

// QualifyTracking is the read-only snapshot of what actually happened
// against a condition. Written only by the qualification engine.
type QualifyTracking struct {
	DepositID  *uuid.UUID      `json:"deposit_id,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Code       *string         `json:"code,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Status     TrackingStatus  `json:"status"`
}

// QualifyCondition is one requirement a user must satisfy on the way to a
// reward. Owned exclusively by one reward.
type QualifyCondition struct {
	ID         uuid.UUID            `json:"id" db:"id"`
	RewardID   uuid.UUID            `json:"reward_id" db:"reward_id"`
	Type       QualifyConditionType `json:"type" db:"type"`
	Conditions ConditionSpec        `json:"conditions" db:"conditions"`
	Timeframe  Timeframe            `json:"timeframe" db:"timeframe"`

	Status       QualifyConditionStatus `json:"status" db:"status"`
	Balance      decimal.Decimal        `json:"balance" db:"balance"`
	TrackingData *QualifyTracking       `json:"tracking_data,omitempty" db:"tracking_data"`

	// Ordering dependency on a sibling condition.
	DependsOnQualifyConditionID *uuid.UUID `json:"depends_on_qualify_condition_id,omitempty" db:"depends_on_qualify_condition_id"`

	// Lifecycle timestamps, later usable as timeframe anchors.
	StartedAt   *time.Time `json:"started_at,omitempty" db:"started_at"`
	QualifiedAt *time.Time `json:"qualified_at,omitempty" db:"qualified_at"`
	FailedAt    *time.Time `json:"failed_at,omitempty" db:"failed_at"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty" db:"expired_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UnmarshalJSON restores the polymorphic Conditions field from its
// discriminant, so cached aggregates survive a JSON round trip.
func (c *QualifyCondition) UnmarshalJSON(data []byte) error {
	type alias QualifyCondition
	aux := struct {
		*alias
		Conditions json.RawMessage `json:"conditions"`
	}{alias: (*alias)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Conditions) == 0 || string(aux.Conditions) == "null" {
		return nil
	}

	spec, err := UnmarshalConditionSpec(c.Type, aux.Conditions)
	if err != nil {
		return err
	}
	c.Conditions = spec
	return nil
}

// ContributesToRewardValue reports whether this condition drives its
// reward's calculated value.
func (c *QualifyCondition) ContributesToRewardValue() (bool, error) {
	switch spec := c.Conditions.(type) {
	case DepositConditions:
		return spec.ContributesToRewardValue, nil
	case BetConditions:
		return spec.ContributesToRewardValue, nil
	case LossesCashbackConditions:
		return false, nil
	default:
		return false, fmt.Errorf("%w: condition spec %T", ErrUnknownVariant, c.Conditions)
	}
}

// Validate checks the condition's own shape.
func (c *QualifyCondition) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: qualify condition type %q", ErrUnknownVariant, c.Type)
	}
	if c.Conditions == nil {
		return ErrConditionMissingSpec
	}
	if c.Conditions.ConditionType() != c.Type {
		return fmt.Errorf("%w: spec type %q does not match condition type %q",
			ErrConditionSpecMismatch, c.Conditions.ConditionType(), c.Type)
	}
	if err := c.Conditions.Validate(); err != nil {
		return err
	}
	return c.Timeframe.Validate()
}

// StartQualifying moves PENDING -> QUALIFYING.
func (c *QualifyCondition) StartQualifying(now time.Time) error {
	if c.Status != ConditionStatusPending {
		return fmt.Errorf("%w: qualify condition %s -> %s", ErrInvalidTransition, c.Status, ConditionStatusQualifying)
	}
	c.Status = ConditionStatusQualifying
	c.StartedAt = &now
	c.UpdatedAt = now
	return nil
}

// Fulfill stamps the FULFILLED state. Allowed from PENDING or QUALIFYING;
// the engine fulfills directly from PENDING when the first deposit already
// satisfies the requirement.
func (c *QualifyCondition) Fulfill(now time.Time) error {
	if c.Status.Terminal() {
		return fmt.Errorf("%w: qualify condition %s -> %s", ErrInvalidTransition, c.Status, ConditionStatusFulfilled)
	}
	c.Status = ConditionStatusFulfilled
	c.QualifiedAt = &now
	c.UpdatedAt = now
	return nil
}

// Fail stamps the FAILED state.
func (c *QualifyCondition) Fail(now time.Time) error {
	if c.Status.Terminal() {
		return fmt.Errorf("%w: qualify condition %s -> %s", ErrInvalidTransition, c.Status, ConditionStatusFailed)
	}
	c.Status = ConditionStatusFailed
	c.FailedAt = &now
	c.UpdatedAt = now
	return nil
}

// Expire stamps the EXPIRED state.
func (c *QualifyCondition) Expire(now time.Time) error {
	if c.Status.Terminal() {
		return fmt.Errorf("%w: qualify condition %s -> %s", ErrInvalidTransition, c.Status, ConditionStatusExpired)
	}
	c.Status = ConditionStatusExpired
	c.ExpiredAt = &now
	c.UpdatedAt = now
	return nil
}

// AnchorEntries lists the condition's stamped lifecycle events.
func (c *QualifyCondition) AnchorEntries() []AnchorEntry {
	var entries []AnchorEntry
	if c.QualifiedAt != nil {
		entries = append(entries, AnchorEntry{
			Entity:    AnchorEntityQualifyCondition,
			EntityID:  c.ID,
			Event:     AnchorEventQualified,
			Timestamp: *c.QualifiedAt,
		})
	}
	return entries
}
