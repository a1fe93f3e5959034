package session

import (
	"testing"

	"nsulife/internal/game/player"

	"github.com/stretchr/testify/assert"
)

func TestRegistryClaimRelease(t *testing.T) {
	r := NewRegistry(4)

	for want := 1; want <= 4; want++ {
		id, ok := r.Claim()
		assert.True(t, ok)
		assert.Equal(t, want, id)
	}
	_, ok := r.Claim()
	assert.False(t, ok)
	assert.Equal(t, 4, r.ConnectedCount())

	assert.True(t, r.Release(2))
	assert.False(t, r.Release(2))
	assert.False(t, r.Release(9))

	id, ok := r.Claim()
	assert.True(t, ok)
	assert.Equal(t, 2, id)
}

func TestRegistryStatsAndReset(t *testing.T) {
	r := NewRegistry(2)
	r.Claim()

	assert.True(t, r.UpdateStats(1, player.Stats{Money: 10}))
	assert.False(t, r.UpdateStats(3, player.Stats{}))
	assert.Equal(t, 10, r.Snapshot()[0].Stats.Money)

	snap := r.Snapshot()
	snap[0].Connected = false
	assert.Equal(t, 1, r.ConnectedCount(), "snapshot is a copy")

	r.Reset()
	assert.Equal(t, 0, r.ConnectedCount())
	assert.Equal(t, player.StartingStats(), r.Snapshot()[0].Stats)
	assert.Len(t, r.Snapshot(), 2)
}
