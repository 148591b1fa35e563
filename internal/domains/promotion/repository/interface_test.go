package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSetMergesSameEntity(t *testing.T) {
	set := &UpdateSet{}
	id := uuid.New()

	set.Add(KindReward, id, map[string]interface{}{"status": "CLAIMED"})
	set.Add(KindReward, id, map[string]interface{}{"total_balance": 50})
	set.Add(KindPhase, uuid.New(), map[string]interface{}{"total_balance": 50})

	updates := set.Updates()
	require.Len(t, updates, 2)
	assert.Equal(t, KindReward, updates[0].Kind)
	assert.Len(t, updates[0].Fields, 2)
}

func TestUpdateSetLaterFieldWins(t *testing.T) {
	set := &UpdateSet{}
	id := uuid.New()

	set.Add(KindPromotion, id, map[string]interface{}{"status": "ACTIVE"})
	set.Add(KindPromotion, id, map[string]interface{}{"status": "COMPLETED"})

	updates := set.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, "COMPLETED", updates[0].Fields["status"])
}

func TestUpdateSetCopiesCallerMap(t *testing.T) {
	set := &UpdateSet{}
	fields := map[string]interface{}{"status": "ACTIVE"}
	set.Add(KindPhase, uuid.New(), fields)

	fields["status"] = "EXPIRED"
	assert.Equal(t, "ACTIVE", set.Updates()[0].Fields["status"])
}

func TestUpdateSetEmpty(t *testing.T) {
	set := &UpdateSet{}
	assert.True(t, set.Empty())

	set.Add(KindQualifyCondition, uuid.New(), map[string]interface{}{"balance": 10})
	assert.False(t, set.Empty())
}
