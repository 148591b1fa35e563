package service

import (
	"time"

	"promotracker-backend/internal/domains/promotion/model"
	"promotracker-backend/internal/domains/promotion/repository"
)

// TimeframeResolver recomputes the cached start/end of every RELATIVE
// timeframe in a promotion tree from the lifecycle timestamps currently
// stamped on it. It is the only writer of those cached bounds.
type TimeframeResolver struct{}

func NewTimeframeResolver() *TimeframeResolver {
	return &TimeframeResolver{}
}

// Resolve walks the whole tree, rewrites in place every relative timeframe
// whose anchor has a stamped timestamp, and returns the field updates for
// the ones that actually changed. Running it twice without an intervening
// timestamp change yields an empty set.
func (r *TimeframeResolver) Resolve(promotion *model.Promotion) *repository.UpdateSet {
	entries := promotion.AnchorEntries()
	updates := &repository.UpdateSet{}

	for pi := range promotion.Phases {
		phase := &promotion.Phases[pi]

		if resolved, changed := resolveTimeframe(phase.Timeframe, entries); changed {
			phase.Timeframe = resolved
			updates.Add(repository.KindPhase, phase.ID, map[string]interface{}{
				"timeframe": resolved,
			})
		}

		for ri := range phase.Rewards {
			reward := &phase.Rewards[ri]

			// Usage conditions embed their timeframe, so a changed
			// resolution rewrites the whole object.
			if reward.UsageConditions != nil {
				usageTf := reward.UsageConditions.UsageTimeframe()
				if resolved, changed := resolveTimeframe(usageTf, entries); changed {
					reward.UsageConditions = reward.UsageConditions.WithTimeframe(resolved)
					updates.Add(repository.KindReward, reward.ID, map[string]interface{}{
						"usage_conditions": reward.UsageConditions,
					})
				}
			}

			for ci := range reward.QualifyConditions {
				condition := &reward.QualifyConditions[ci]
				if resolved, changed := resolveTimeframe(condition.Timeframe, entries); changed {
					condition.Timeframe = resolved
					updates.Add(repository.KindQualifyCondition, condition.ID, map[string]interface{}{
						"timeframe": resolved,
					})
				}
			}
		}
	}
	return updates
}

// resolveTimeframe projects one timeframe against the collected anchor
// entries. Non-relative timeframes and unanchored ones pass through
// untouched.
func resolveTimeframe(tf model.Timeframe, entries []model.AnchorEntry) (model.Timeframe, bool) {
	if tf.Mode != model.TimeframeModeRelative || tf.Anchor == nil {
		return tf, false
	}
	ts, ok := anchorTimestamp(*tf.Anchor, entries)
	if !ok {
		return tf, false
	}
	resolved := tf.ResolveFrom(ts)
	if tf.SameResolution(resolved) {
		return tf, false
	}
	return resolved, true
}

func anchorTimestamp(anchor model.Anchor, entries []model.AnchorEntry) (time.Time, bool) {
	for _, e := range entries {
		if anchor.Matches(e) {
			return e.Timestamp, true
		}
	}
	return time.Time{}, false
}
