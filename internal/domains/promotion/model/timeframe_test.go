package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeframeValidate(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	anchor := Anchor{Entity: AnchorEntityPhase, EntityID: uuid.New(), Event: AnchorEventActivated}
	badOffset := -3

	tests := []struct {
		name    string
		tf      Timeframe
		wantErr error
	}{
		{"absolute ok", AbsoluteTimeframe(start, &end), nil},
		{"absolute open end", AbsoluteTimeframe(start, nil), nil},
		{"absolute missing start", Timeframe{Mode: TimeframeModeAbsolute}, ErrTimeframeMissingStart},
		{"absolute end before start", AbsoluteTimeframe(end, &start), ErrTimeframeEndBeforeStart},
		{"absolute with anchor", Timeframe{Mode: TimeframeModeAbsolute, Start: &start, Anchor: &anchor}, ErrTimeframeUnexpectedAnchor},
		{"relative ok", RelativeTimeframe(anchor, nil), nil},
		{"relative missing anchor", Timeframe{Mode: TimeframeModeRelative}, ErrTimeframeMissingAnchor},
		{"relative bad offset", Timeframe{Mode: TimeframeModeRelative, Anchor: &anchor, OffsetDays: &badOffset}, ErrTimeframeInvalidOffset},
		{"promotion ok", PromotionTimeframe(), nil},
		{"unknown mode", Timeframe{Mode: "WEEKLY"}, ErrUnknownVariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tf.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTimeframeResolveFrom(t *testing.T) {
	anchor := Anchor{Entity: AnchorEntityPhase, EntityID: uuid.New(), Event: AnchorEventActivated}
	anchorTs := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	t.Run("with offset", func(t *testing.T) {
		offset := 7
		tf := RelativeTimeframe(anchor, &offset)

		resolved := tf.ResolveFrom(anchorTs)

		require.NotNil(t, resolved.Start)
		require.NotNil(t, resolved.End)
		assert.True(t, resolved.Start.Equal(anchorTs))
		assert.True(t, resolved.End.Equal(anchorTs.AddDate(0, 0, 7)))
	})

	t.Run("open-ended without offset", func(t *testing.T) {
		tf := RelativeTimeframe(anchor, nil)

		resolved := tf.ResolveFrom(anchorTs)

		require.NotNil(t, resolved.Start)
		assert.True(t, resolved.Start.Equal(anchorTs))
		assert.Nil(t, resolved.End)
	})

	t.Run("resolution comparison", func(t *testing.T) {
		offset := 7
		tf := RelativeTimeframe(anchor, &offset)

		first := tf.ResolveFrom(anchorTs)
		second := first.ResolveFrom(anchorTs)

		assert.True(t, first.SameResolution(second))
		assert.False(t, tf.SameResolution(first))

		moved := first.ResolveFrom(anchorTs.Add(time.Hour))
		assert.False(t, first.SameResolution(moved))
	})
}

func TestTimeframeContains(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)

	bounded := AbsoluteTimeframe(start, &end)
	assert.True(t, bounded.Contains(start))
	assert.True(t, bounded.Contains(start.AddDate(0, 0, 5)))
	assert.True(t, bounded.Contains(end))
	assert.False(t, bounded.Contains(start.Add(-time.Second)))
	assert.False(t, bounded.Contains(end.Add(time.Second)))

	open := AbsoluteTimeframe(start, nil)
	assert.True(t, open.Contains(start.AddDate(10, 0, 0)))

	unresolved := RelativeTimeframe(Anchor{Entity: AnchorEntityReward, EntityID: uuid.New(), Event: AnchorEventClaimed}, nil)
	assert.False(t, unresolved.Contains(start))
}

func TestAnchorMatches(t *testing.T) {
	id := uuid.New()
	anchor := Anchor{Entity: AnchorEntityPhase, EntityID: id, Event: AnchorEventActivated}

	assert.True(t, anchor.Matches(AnchorEntry{Entity: AnchorEntityPhase, EntityID: id, Event: AnchorEventActivated}))
	assert.False(t, anchor.Matches(AnchorEntry{Entity: AnchorEntityPhase, EntityID: id, Event: AnchorEventCompleted}))
	assert.False(t, anchor.Matches(AnchorEntry{Entity: AnchorEntityPhase, EntityID: uuid.New(), Event: AnchorEventActivated}))
	assert.False(t, anchor.Matches(AnchorEntry{Entity: AnchorEntityReward, EntityID: id, Event: AnchorEventActivated}))
}
