package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionCardinality records whether the promotion runs as one phase or
// several.
type PromotionCardinality string

const (
	CardinalitySingle   PromotionCardinality = "SINGLE"
	CardinalityMultiple PromotionCardinality = "MULTIPLE"
)

func (c PromotionCardinality) IsValid() bool {
	return c == CardinalitySingle || c == CardinalityMultiple
}

// LifecycleStatus is the shared promotion/phase lifecycle.
type LifecycleStatus string

const (
	StatusDraft     LifecycleStatus = "DRAFT"
	StatusActive    LifecycleStatus = "ACTIVE"
	StatusCompleted LifecycleStatus = "COMPLETED"
	StatusExpired   LifecycleStatus = "EXPIRED"
)

func (s LifecycleStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// Phase is one stage of a promotion, owned exclusively by it.
type Phase struct {
	ID          uuid.UUID `json:"id" db:"id"`
	PromotionID uuid.UUID `json:"promotion_id" db:"promotion_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`

	ActivationMethod ActivationMethod `json:"activation_method" db:"activation_method"`
	Status           LifecycleStatus  `json:"status" db:"status"`
	Timeframe        Timeframe        `json:"timeframe" db:"timeframe"`

	// Position preserves chronological intent, independent of creation order.
	Position int `json:"position" db:"position"`

	Rewards []Reward `json:"rewards"`

	// TotalBalance sums the reward balances.
	TotalBalance decimal.Decimal `json:"total_balance" db:"total_balance"`

	ActivatedAt *time.Time `json:"activated_at,omitempty" db:"activated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty" db:"expired_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Activate moves DRAFT -> ACTIVE and stamps ActivatedAt.
func (p *Phase) Activate(now time.Time) error {
	if p.Status != StatusDraft {
		return fmt.Errorf("%w: phase %s -> %s", ErrInvalidTransition, p.Status, StatusActive)
	}
	p.Status = StatusActive
	p.ActivatedAt = &now
	p.UpdatedAt = now
	return nil
}

// Complete moves ACTIVE -> COMPLETED and stamps CompletedAt.
func (p *Phase) Complete(now time.Time) error {
	if p.Status != StatusActive {
		return fmt.Errorf("%w: phase %s -> %s", ErrInvalidTransition, p.Status, StatusCompleted)
	}
	p.Status = StatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Expire stamps EXPIRED from any non-terminal state.
func (p *Phase) Expire(now time.Time) error {
	if p.Status.Terminal() {
		return fmt.Errorf("%w: phase %s -> %s", ErrInvalidTransition, p.Status, StatusExpired)
	}
	p.Status = StatusExpired
	p.ExpiredAt = &now
	p.UpdatedAt = now
	return nil
}

// Validate checks the phase and everything it owns.
func (p *Phase) Validate() error {
	if p.Name == "" {
		return ErrMissingName
	}
	if err := p.Timeframe.Validate(); err != nil {
		return err
	}
	for i := range p.Rewards {
		if err := p.Rewards[i].Validate(); err != nil {
			return fmt.Errorf("reward %s: %w", p.Rewards[i].ID, err)
		}
	}
	return nil
}

// AnchorEntries lists the phase's stamped lifecycle events.
func (p *Phase) AnchorEntries() []AnchorEntry {
	var entries []AnchorEntry
	if p.ActivatedAt != nil {
		entries = append(entries, AnchorEntry{
			Entity: AnchorEntityPhase, EntityID: p.ID,
			Event: AnchorEventActivated, Timestamp: *p.ActivatedAt,
		})
	}
	if p.CompletedAt != nil {
		entries = append(entries, AnchorEntry{
			Entity: AnchorEntityPhase, EntityID: p.ID,
			Event: AnchorEventCompleted, Timestamp: *p.CompletedAt,
		})
	}
	return entries
}

// Promotion is the root aggregate: a bookmaker offer, its phases, their
// rewards and qualify conditions.
type Promotion struct {
	ID            uuid.UUID `json:"id" db:"id"`
	BookmakerID   uuid.UUID `json:"bookmaker_id" db:"bookmaker_id"`
	BookmakerName string    `json:"bookmaker_name" db:"bookmaker_name"`
	Name          string    `json:"name" db:"name"`
	Description   *string   `json:"description,omitempty" db:"description"`

	Cardinality      PromotionCardinality `json:"cardinality" db:"cardinality"`
	ActivationMethod ActivationMethod     `json:"activation_method" db:"activation_method"`
	Status           LifecycleStatus      `json:"status" db:"status"`

	// The promotion's own timeframe is always absolute.
	Timeframe Timeframe `json:"timeframe" db:"timeframe"`

	// Phases in chronological order (Position).
	Phases []Phase `json:"phases"`

	// TotalBalance sums the phase balances.
	TotalBalance decimal.Decimal `json:"total_balance" db:"total_balance"`

	ActivatedAt *time.Time `json:"activated_at,omitempty" db:"activated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty" db:"expired_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Activate moves DRAFT -> ACTIVE and stamps ActivatedAt.
func (p *Promotion) Activate(now time.Time) error {
	if p.Status != StatusDraft {
		return fmt.Errorf("%w: promotion %s -> %s", ErrInvalidTransition, p.Status, StatusActive)
	}
	p.Status = StatusActive
	p.ActivatedAt = &now
	p.UpdatedAt = now
	return nil
}

// Complete moves ACTIVE -> COMPLETED and stamps CompletedAt.
func (p *Promotion) Complete(now time.Time) error {
	if p.Status != StatusActive {
		return fmt.Errorf("%w: promotion %s -> %s", ErrInvalidTransition, p.Status, StatusCompleted)
	}
	p.Status = StatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Expire stamps EXPIRED from any non-terminal state.
func (p *Promotion) Expire(now time.Time) error {
	if p.Status.Terminal() {
		return fmt.Errorf("%w: promotion %s -> %s", ErrInvalidTransition, p.Status, StatusExpired)
	}
	p.Status = StatusExpired
	p.ExpiredAt = &now
	p.UpdatedAt = now
	return nil
}

// Validate checks aggregate-wide invariants, including the SINGLE
// cardinality rule.
func (p *Promotion) Validate() error {
	if p.Name == "" {
		return ErrMissingName
	}
	if !p.Cardinality.IsValid() {
		return fmt.Errorf("%w: cardinality %q", ErrUnknownVariant, p.Cardinality)
	}
	if p.Timeframe.Mode != TimeframeModeAbsolute {
		return ErrPromotionTimeframeNotAbsolute
	}
	if err := p.Timeframe.Validate(); err != nil {
		return err
	}

	if len(p.Phases) == 0 {
		return ErrPromotionNoPhases
	}
	if p.Cardinality == CardinalitySingle && len(p.Phases) != 1 {
		return ErrSinglePromotionPhaseCount
	}

	for i := range p.Phases {
		if err := p.Phases[i].Validate(); err != nil {
			return fmt.Errorf("phase %s: %w", p.Phases[i].ID, err)
		}
	}
	return nil
}

// SyncSinglePhase mirrors the promotion's own fields onto its only phase.
// No-op for MULTIPLE cardinality.
func (p *Promotion) SyncSinglePhase() {
	if p.Cardinality != CardinalitySingle || len(p.Phases) != 1 {
		return
	}
	phase := &p.Phases[0]
	phase.Name = p.Name
	phase.Description = p.Description
	phase.ActivationMethod = p.ActivationMethod
	phase.Timeframe = p.Timeframe
}

// FindCondition locates a qualify condition anywhere in the tree, returning
// the owning phase and reward as well.
func (p *Promotion) FindCondition(conditionID uuid.UUID) (*Phase, *Reward, *QualifyCondition, bool) {
	for pi := range p.Phases {
		phase := &p.Phases[pi]
		for ri := range phase.Rewards {
			reward := &phase.Rewards[ri]
			for ci := range reward.QualifyConditions {
				if reward.QualifyConditions[ci].ID == conditionID {
					return phase, reward, &reward.QualifyConditions[ci], true
				}
			}
		}
	}
	return nil, nil, nil, false
}

// AnchorEntries collects every stamped lifecycle event in the whole tree.
func (p *Promotion) AnchorEntries() []AnchorEntry {
	var entries []AnchorEntry
	if p.ActivatedAt != nil {
		entries = append(entries, AnchorEntry{
			Entity: AnchorEntityPromotion, EntityID: p.ID,
			Event: AnchorEventActivated, Timestamp: *p.ActivatedAt,
		})
	}
	if p.CompletedAt != nil {
		entries = append(entries, AnchorEntry{
			Entity: AnchorEntityPromotion, EntityID: p.ID,
			Event: AnchorEventCompleted, Timestamp: *p.CompletedAt,
		})
	}
	for pi := range p.Phases {
		phase := &p.Phases[pi]
		entries = append(entries, phase.AnchorEntries()...)
		for ri := range phase.Rewards {
			reward := &phase.Rewards[ri]
			entries = append(entries, reward.AnchorEntries()...)
			for ci := range reward.QualifyConditions {
				entries = append(entries, reward.QualifyConditions[ci].AnchorEntries()...)
			}
		}
	}
	return entries
}

// RecomputeBalances rebuilds the aggregate balances bottom-up. Used by the
// nested-create path; the qualification engine increments in place instead.
func (p *Promotion) RecomputeBalances() {
	promoTotal := decimal.Zero
	for pi := range p.Phases {
		phase := &p.Phases[pi]
		phaseTotal := decimal.Zero
		for ri := range phase.Rewards {
			reward := &phase.Rewards[ri]
			rewardTotal := decimal.Zero
			for ci := range reward.QualifyConditions {
				rewardTotal = rewardTotal.Add(reward.QualifyConditions[ci].Balance)
			}
			reward.TotalBalance = rewardTotal
			phaseTotal = phaseTotal.Add(rewardTotal)
		}
		phase.TotalBalance = phaseTotal
		promoTotal = promoTotal.Add(phaseTotal)
	}
	p.TotalBalance = promoTotal
}
