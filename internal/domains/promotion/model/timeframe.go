package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeframeMode discriminates how a timeframe's bounds are obtained.
type TimeframeMode string

const (
	// TimeframeModeAbsolute has authored start/end dates.
	TimeframeModeAbsolute TimeframeMode = "ABSOLUTE"
	// TimeframeModeRelative is anchored to a lifecycle event elsewhere in the
	// promotion tree; start/end are resolver-cached, never authored.
	TimeframeModeRelative TimeframeMode = "RELATIVE"
	// TimeframeModePromotion inherits the owning promotion's own timeframe.
	TimeframeModePromotion TimeframeMode = "PROMOTION"
)

func (m TimeframeMode) IsValid() bool {
	switch m {
	case TimeframeModeAbsolute, TimeframeModeRelative, TimeframeModePromotion:
		return true
	}
	return false
}

// AnchorEntity names the kind of entity an anchor points at.
type AnchorEntity string

const (
	AnchorEntityPromotion        AnchorEntity = "PROMOTION"
	AnchorEntityPhase            AnchorEntity = "PHASE"
	AnchorEntityReward           AnchorEntity = "REWARD"
	AnchorEntityQualifyCondition AnchorEntity = "QUALIFY_CONDITION"
)

// AnchorEvent names a timestamped lifecycle milestone on an entity.
type AnchorEvent string

const (
	AnchorEventActivated AnchorEvent = "ACTIVATED"
	AnchorEventCompleted AnchorEvent = "COMPLETED"
	AnchorEventClaimed   AnchorEvent = "CLAIMED"
	AnchorEventReceived  AnchorEvent = "RECEIVED"
	AnchorEventUsed      AnchorEvent = "USED"
	AnchorEventQualified AnchorEvent = "QUALIFIED"
)

// Anchor references a named event on some entity in the promotion tree.
type Anchor struct {
	Entity   AnchorEntity `json:"entity" db:"anchor_entity"`
	EntityID uuid.UUID    `json:"entity_id" db:"anchor_entity_id"`
	Event    AnchorEvent  `json:"event" db:"anchor_event"`
}

// Matches reports whether the anchor points at the given entry tuple.
func (a Anchor) Matches(e AnchorEntry) bool {
	return a.Entity == e.Entity && a.EntityID == e.EntityID && a.Event == e.Event
}

// AnchorEntry is one concrete (entity, event, timestamp) tuple collected from
// the tree. Only entries with a stamped timestamp become anchors.
type AnchorEntry struct {
	Entity    AnchorEntity
	EntityID  uuid.UUID
	Event     AnchorEvent
	Timestamp time.Time
}

// Timeframe is the window in which an entity is live. For RELATIVE mode,
// Start/End are a cached projection of the anchor timestamp; the timeframe
// resolver is the only writer of those two fields.
type Timeframe struct {
	Mode       TimeframeMode `json:"mode"`
	Start      *time.Time    `json:"start,omitempty"`
	End        *time.Time    `json:"end,omitempty"`
	Anchor     *Anchor       `json:"anchor,omitempty"`
	OffsetDays *int          `json:"offset_days,omitempty"`
}

// AbsoluteTimeframe builds an ABSOLUTE timeframe. End may be nil (open-ended).
func AbsoluteTimeframe(start time.Time, end *time.Time) Timeframe {
	return Timeframe{
		Mode:  TimeframeModeAbsolute,
		Start: &start,
		End:   end,
	}
}

// RelativeTimeframe builds an unresolved RELATIVE timeframe.
func RelativeTimeframe(anchor Anchor, offsetDays *int) Timeframe {
	return Timeframe{
		Mode:       TimeframeModeRelative,
		Anchor:     &anchor,
		OffsetDays: offsetDays,
	}
}

// PromotionTimeframe builds the loose placeholder bound to the parent
// promotion's own duration.
func PromotionTimeframe() Timeframe {
	return Timeframe{Mode: TimeframeModePromotion}
}

// Validate checks mode-specific shape invariants.
func (t Timeframe) Validate() error {
	switch t.Mode {
	case TimeframeModeAbsolute:
		if t.Start == nil {
			return ErrTimeframeMissingStart
		}
		if t.End != nil && !t.End.After(*t.Start) {
			return ErrTimeframeEndBeforeStart
		}
		if t.Anchor != nil {
			return ErrTimeframeUnexpectedAnchor
		}
	case TimeframeModeRelative:
		if t.Anchor == nil {
			return ErrTimeframeMissingAnchor
		}
		if t.OffsetDays != nil && *t.OffsetDays <= 0 {
			return ErrTimeframeInvalidOffset
		}
	case TimeframeModePromotion:
		if t.Anchor != nil {
			return ErrTimeframeUnexpectedAnchor
		}
	default:
		return fmt.Errorf("%w: timeframe mode %q", ErrUnknownVariant, t.Mode)
	}
	return nil
}

// ResolveFrom recomputes the cached bounds of a RELATIVE timeframe from the
// anchor timestamp: start is the timestamp itself, end is start plus the
// offset when one is set, open-ended otherwise.
func (t Timeframe) ResolveFrom(anchorTs time.Time) Timeframe {
	resolved := t
	start := anchorTs
	resolved.Start = &start

	if t.OffsetDays != nil {
		end := start.AddDate(0, 0, *t.OffsetDays)
		resolved.End = &end
	} else {
		resolved.End = nil
	}
	return resolved
}

// SameResolution reports whether two timeframes carry identical cached
// bounds. Used by the resolver to detect modification.
func (t Timeframe) SameResolution(other Timeframe) bool {
	return equalTimePtr(t.Start, other.Start) && equalTimePtr(t.End, other.End)
}

// Contains reports whether ts falls inside the resolved window. An
// unresolved RELATIVE timeframe contains nothing.
func (t Timeframe) Contains(ts time.Time) bool {
	if t.Start == nil {
		return false
	}
	if ts.Before(*t.Start) {
		return false
	}
	if t.End != nil && ts.After(*t.End) {
		return false
	}
	return true
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
