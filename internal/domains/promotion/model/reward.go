package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardType discriminates the reward variants.
type RewardType string

const (
	RewardTypeFreebet              RewardType = "FREEBET"
	RewardTypeBonusWithRollover    RewardType = "BONUS_WITH_ROLLOVER"
	RewardTypeBonusWithoutRollover RewardType = "BONUS_WITHOUT_ROLLOVER"
	RewardTypeCashbackFreebet      RewardType = "CASHBACK_FREEBET"
	RewardTypeEnhancedOdds         RewardType = "ENHANCED_ODDS"
	RewardTypeCasinoSpins          RewardType = "CASINO_SPINS"
)

func (t RewardType) IsValid() bool {
	switch t {
	case RewardTypeFreebet, RewardTypeBonusWithRollover, RewardTypeBonusWithoutRollover,
		RewardTypeCashbackFreebet, RewardTypeEnhancedOdds, RewardTypeCasinoSpins:
		return true
	}
	return false
}

// RewardValueType records whether the reward's value is authored or derived.
type RewardValueType string

const (
	RewardValueFixed                    RewardValueType = "FIXED"
	RewardValueCalculatedFromConditions RewardValueType = "CALCULATED_FROM_CONDITIONS"
)

// RewardStatus is the reward lifecycle.
type RewardStatus string

const (
	RewardStatusQualifying     RewardStatus = "QUALIFYING"
	RewardStatusPendingToClaim RewardStatus = "PENDING_TO_CLAIM"
	RewardStatusClaimed        RewardStatus = "CLAIMED"
	RewardStatusReceived       RewardStatus = "RECEIVED"
	RewardStatusInUse          RewardStatus = "IN_USE"
	RewardStatusUsed           RewardStatus = "USED"
	RewardStatusExpired        RewardStatus = "EXPIRED"
)

func (s RewardStatus) Terminal() bool {
	return s == RewardStatusUsed || s == RewardStatusExpired
}

// next returns the only forward transition allowed from s.
func (s RewardStatus) next() (RewardStatus, bool) {
	switch s {
	case RewardStatusQualifying:
		return RewardStatusPendingToClaim, true
	case RewardStatusPendingToClaim:
		return RewardStatusClaimed, true
	case RewardStatusClaimed:
		return RewardStatusReceived, true
	case RewardStatusReceived:
		return RewardStatusInUse, true
	case RewardStatusInUse:
		return RewardStatusUsed, true
	}
	return "", false
}

// ActivationMethod is how an offer/reward gets switched on.
type ActivationMethod string

const (
	ActivationAutomatic ActivationMethod = "AUTOMATIC"
	ActivationManual    ActivationMethod = "MANUAL"
	ActivationPromoCode ActivationMethod = "PROMO_CODE"
)

// ClaimMethod is how a qualified reward is collected.
type ClaimMethod string

const (
	ClaimAutomatic      ClaimMethod = "AUTOMATIC"
	ClaimManual         ClaimMethod = "MANUAL"
	ClaimContactSupport ClaimMethod = "CONTACT_SUPPORT"
)

// UsageConditions is the sealed variant describing how a reward may be spent
// once received. Each variant embeds its own timeframe; the resolver
// rewrites the whole object when that timeframe is anchor-dependent.
type UsageConditions interface {
	RewardType() RewardType
	UsageTimeframe() Timeframe
	WithTimeframe(Timeframe) UsageConditions
	Validate() error
	usageConditions()
}

// FreebetUsage governs spending a freebet.
type FreebetUsage struct {
	MinOdds       decimal.Decimal `json:"min_odds"`
	StakeReturned bool            `json:"stake_returned"`
	Timeframe     Timeframe       `json:"timeframe"`
}

func (FreebetUsage) RewardType() RewardType       { return RewardTypeFreebet }
func (u FreebetUsage) UsageTimeframe() Timeframe  { return u.Timeframe }
func (FreebetUsage) usageConditions()             {}
func (u FreebetUsage) WithTimeframe(t Timeframe) UsageConditions {
	u.Timeframe = t
	return u
}
func (u FreebetUsage) Validate() error {
	if u.MinOdds.LessThan(decimal.NewFromInt(1)) {
		return ErrConditionInvalidOdds
	}
	return u.Timeframe.Validate()
}

// RolloverBonusUsage governs a bonus that must be wagered through a
// rollover multiplier before withdrawal.
type RolloverBonusUsage struct {
	RolloverMultiplier decimal.Decimal `json:"rollover_multiplier"`
	MinOdds            decimal.Decimal `json:"min_odds"`
	Timeframe          Timeframe       `json:"timeframe"`
}

func (RolloverBonusUsage) RewardType() RewardType      { return RewardTypeBonusWithRollover }
func (u RolloverBonusUsage) UsageTimeframe() Timeframe { return u.Timeframe }
func (RolloverBonusUsage) usageConditions()            {}
func (u RolloverBonusUsage) WithTimeframe(t Timeframe) UsageConditions {
	u.Timeframe = t
	return u
}
func (u RolloverBonusUsage) Validate() error {
	if u.RolloverMultiplier.LessThanOrEqual(decimal.Zero) {
		return ErrConditionInvalidAmount
	}
	return u.Timeframe.Validate()
}

// PlainBonusUsage governs a bonus withdrawable without rollover.
type PlainBonusUsage struct {
	Timeframe Timeframe `json:"timeframe"`
}

func (PlainBonusUsage) RewardType() RewardType      { return RewardTypeBonusWithoutRollover }
func (u PlainBonusUsage) UsageTimeframe() Timeframe { return u.Timeframe }
func (PlainBonusUsage) usageConditions()            {}
func (u PlainBonusUsage) WithTimeframe(t Timeframe) UsageConditions {
	u.Timeframe = t
	return u
}
func (u PlainBonusUsage) Validate() error { return u.Timeframe.Validate() }

// CashbackFreebetUsage governs a freebet granted as losses cashback.
type CashbackFreebetUsage struct {
	MinOdds   decimal.Decimal `json:"min_odds"`
	Timeframe Timeframe       `json:"timeframe"`
}

func (CashbackFreebetUsage) RewardType() RewardType      { return RewardTypeCashbackFreebet }
func (u CashbackFreebetUsage) UsageTimeframe() Timeframe { return u.Timeframe }
func (CashbackFreebetUsage) usageConditions()            {}
func (u CashbackFreebetUsage) WithTimeframe(t Timeframe) UsageConditions {
	u.Timeframe = t
	return u
}
func (u CashbackFreebetUsage) Validate() error {
	if u.MinOdds.LessThan(decimal.NewFromInt(1)) {
		return ErrConditionInvalidOdds
	}
	return u.Timeframe.Validate()
}

// EnhancedOddsUsage governs a price-boost reward with a stake cap.
type EnhancedOddsUsage struct {
	BoostedOdds decimal.Decimal `json:"boosted_odds"`
	MaxStake    decimal.Decimal `json:"max_stake"`
	Timeframe   Timeframe       `json:"timeframe"`
}

func (EnhancedOddsUsage) RewardType() RewardType      { return RewardTypeEnhancedOdds }
func (u EnhancedOddsUsage) UsageTimeframe() Timeframe { return u.Timeframe }
func (EnhancedOddsUsage) usageConditions()            {}
func (u EnhancedOddsUsage) WithTimeframe(t Timeframe) UsageConditions {
	u.Timeframe = t
	return u
}
func (u EnhancedOddsUsage) Validate() error {
	if u.MaxStake.LessThanOrEqual(decimal.Zero) {
		return ErrConditionInvalidAmount
	}
	return u.Timeframe.Validate()
}

// CasinoSpinsUsage governs free casino spins.
type CasinoSpinsUsage struct {
	SpinCount       int       `json:"spin_count"`
	GameRestriction *string   `json:"game_restriction,omitempty"`
	Timeframe       Timeframe `json:"timeframe"`
}

func (CasinoSpinsUsage) RewardType() RewardType      { return RewardTypeCasinoSpins }
func (u CasinoSpinsUsage) UsageTimeframe() Timeframe { return u.Timeframe }
func (CasinoSpinsUsage) usageConditions()            {}
func (u CasinoSpinsUsage) WithTimeframe(t Timeframe) UsageConditions {
	u.Timeframe = t
	return u
}
func (u CasinoSpinsUsage) Validate() error {
	if u.SpinCount <= 0 {
		return ErrConditionInvalidAmount
	}
	return u.Timeframe.Validate()
}

// UnmarshalUsageConditions decodes the persisted usage-conditions object for
// the given reward type. Unknown discriminants fail loudly.
func UnmarshalUsageConditions(t RewardType, data []byte) (UsageConditions, error) {
	decode := func(dest UsageConditions) (UsageConditions, error) {
		if err := json.Unmarshal(data, dest); err != nil {
			return nil, fmt.Errorf("decode usage conditions for %s: %w", t, err)
		}
		return dest, nil
	}

	switch t {
	case RewardTypeFreebet:
		u, err := decode(&FreebetUsage{})
		if err != nil {
			return nil, err
		}
		return *u.(*FreebetUsage), nil
	case RewardTypeBonusWithRollover:
		u, err := decode(&RolloverBonusUsage{})
		if err != nil {
			return nil, err
		}
		return *u.(*RolloverBonusUsage), nil
	case RewardTypeBonusWithoutRollover:
		u, err := decode(&PlainBonusUsage{})
		if err != nil {
			return nil, err
		}
		return *u.(*PlainBonusUsage), nil
	case RewardTypeCashbackFreebet:
		u, err := decode(&CashbackFreebetUsage{})
		if err != nil {
			return nil, err
		}
		return *u.(*CashbackFreebetUsage), nil
	case RewardTypeEnhancedOdds:
		u, err := decode(&EnhancedOddsUsage{})
		if err != nil {
			return nil, err
		}
		return *u.(*EnhancedOddsUsage), nil
	case RewardTypeCasinoSpins:
		u, err := decode(&CasinoSpinsUsage{})
		if err != nil {
			return nil, err
		}
		return *u.(*CasinoSpinsUsage), nil
	default:
		return nil, fmt.Errorf("%w: reward type %q", ErrUnknownVariant, t)
	}
}

// RewardUsageStatus is the state of a usage-tracking snapshot.
type RewardUsageStatus string

const (
	UsageNotStarted RewardUsageStatus = "NOT_STARTED"
	UsageInProgress RewardUsageStatus = "IN_PROGRESS"
	UsageCompleted  RewardUsageStatus = "COMPLETED"
)

// UsageTracking is the read-only snapshot of how a reward has been spent.
// Computed elsewhere, never authored by the end user.
type UsageTracking struct {
	Status           RewardUsageStatus `json:"status"`
	AmountUsed       decimal.Decimal   `json:"amount_used"`
	RolloverProgress *decimal.Decimal  `json:"rollover_progress,omitempty"`
	SpinsUsed        *int              `json:"spins_used,omitempty"`
	LastEventAt      *time.Time        `json:"last_event_at,omitempty"`
}

// Reward is one grantable item inside a phase. Owned exclusively by one
// phase; its qualify conditions are owned exclusively by it.
type Reward struct {
	ID      uuid.UUID  `json:"id" db:"id"`
	PhaseID uuid.UUID  `json:"phase_id" db:"phase_id"`
	Type    RewardType `json:"type" db:"type"`
	Name    string     `json:"name" db:"name"`

	Value     decimal.Decimal `json:"value" db:"value"`
	ValueType RewardValueType `json:"value_type" db:"value_type"`

	ActivationMethod ActivationMethod `json:"activation_method" db:"activation_method"`
	ClaimMethod      ClaimMethod      `json:"claim_method" db:"claim_method"`

	Status RewardStatus `json:"status" db:"status"`

	QualifyConditions []QualifyCondition `json:"qualify_conditions"`
	UsageConditions   UsageConditions    `json:"usage_conditions" db:"usage_conditions"`
	UsageTracking     *UsageTracking     `json:"usage_tracking,omitempty" db:"usage_tracking"`

	// TotalBalance sums the balances of the contributing qualify conditions.
	TotalBalance decimal.Decimal `json:"total_balance" db:"total_balance"`

	// Lifecycle timestamps.
	PendingToClaimAt *time.Time `json:"pending_to_claim_at,omitempty" db:"pending_to_claim_at"`
	ClaimedAt        *time.Time `json:"claimed_at,omitempty" db:"claimed_at"`
	ReceivedAt       *time.Time `json:"received_at,omitempty" db:"received_at"`
	InUseAt          *time.Time `json:"in_use_at,omitempty" db:"in_use_at"`
	UsedAt           *time.Time `json:"used_at,omitempty" db:"used_at"`
	ExpiredAt        *time.Time `json:"expired_at,omitempty" db:"expired_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UnmarshalJSON restores the polymorphic UsageConditions field from the
// reward type discriminant.
func (r *Reward) UnmarshalJSON(data []byte) error {
	type alias Reward
	aux := struct {
		*alias
		UsageConditions json.RawMessage `json:"usage_conditions"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.UsageConditions) == 0 || string(aux.UsageConditions) == "null" {
		return nil
	}

	usage, err := UnmarshalUsageConditions(r.Type, aux.UsageConditions)
	if err != nil {
		return err
	}
	r.UsageConditions = usage
	return nil
}

// ContributingCondition returns the single qualify condition marked as
// driving this reward's calculated value, if any.
func (r *Reward) ContributingCondition() (*QualifyCondition, error) {
	var found *QualifyCondition
	for i := range r.QualifyConditions {
		contributes, err := r.QualifyConditions[i].ContributesToRewardValue()
		if err != nil {
			return nil, err
		}
		if !contributes {
			continue
		}
		if found != nil {
			return nil, ErrMultipleContributingConditions
		}
		found = &r.QualifyConditions[i]
	}
	return found, nil
}

// Validate checks the reward and its owned conditions, including the
// at-most-one contributing condition invariant.
func (r *Reward) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: reward type %q", ErrUnknownVariant, r.Type)
	}
	if r.ValueType != RewardValueFixed && r.ValueType != RewardValueCalculatedFromConditions {
		return fmt.Errorf("%w: reward value type %q", ErrUnknownVariant, r.ValueType)
	}
	if r.UsageConditions == nil {
		return ErrRewardMissingUsageConditions
	}
	if r.UsageConditions.RewardType() != r.Type {
		return fmt.Errorf("%w: usage conditions for %q on %q reward",
			ErrConditionSpecMismatch, r.UsageConditions.RewardType(), r.Type)
	}
	if err := r.UsageConditions.Validate(); err != nil {
		return err
	}

	contributing, err := r.ContributingCondition()
	if err != nil {
		return err
	}
	if r.ValueType == RewardValueCalculatedFromConditions && contributing == nil {
		return ErrNoContributingCondition
	}

	for i := range r.QualifyConditions {
		if err := r.QualifyConditions[i].Validate(); err != nil {
			return fmt.Errorf("qualify condition %s: %w", r.QualifyConditions[i].ID, err)
		}
	}
	return nil
}

// Advance moves the reward to the next lifecycle state and stamps the
// matching timestamp.
func (r *Reward) Advance(now time.Time) error {
	next, ok := r.Status.next()
	if !ok {
		return fmt.Errorf("%w: reward %s", ErrInvalidTransition, r.Status)
	}

	r.Status = next
	switch next {
	case RewardStatusPendingToClaim:
		r.PendingToClaimAt = &now
	case RewardStatusClaimed:
		r.ClaimedAt = &now
	case RewardStatusReceived:
		r.ReceivedAt = &now
	case RewardStatusInUse:
		r.InUseAt = &now
	case RewardStatusUsed:
		r.UsedAt = &now
	}
	r.UpdatedAt = now
	return nil
}

// Expire stamps the EXPIRED state from any non-terminal state.
func (r *Reward) Expire(now time.Time) error {
	if r.Status.Terminal() {
		return fmt.Errorf("%w: reward %s -> %s", ErrInvalidTransition, r.Status, RewardStatusExpired)
	}
	r.Status = RewardStatusExpired
	r.ExpiredAt = &now
	r.UpdatedAt = now
	return nil
}

// AnchorEntries lists the reward's stamped lifecycle events.
func (r *Reward) AnchorEntries() []AnchorEntry {
	var entries []AnchorEntry
	add := func(event AnchorEvent, ts *time.Time) {
		if ts != nil {
			entries = append(entries, AnchorEntry{
				Entity:    AnchorEntityReward,
				EntityID:  r.ID,
				Event:     event,
				Timestamp: *ts,
			})
		}
	}
	add(AnchorEventClaimed, r.ClaimedAt)
	add(AnchorEventReceived, r.ReceivedAt)
	add(AnchorEventUsed, r.UsedAt)
	return entries
}
