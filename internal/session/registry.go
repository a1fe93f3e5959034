package session

import (
	"fmt"
	"sync"

	"nsulife/internal/game/player"
)

// Slot is one of the fixed player seats. Slots are created once and only
// their Connected flag and stats change.
type Slot struct {
	PlayerID    int          `json:"playerId"`
	DisplayName string       `json:"displayName"`
	Connected   bool         `json:"connected"`
	Stats       player.Stats `json:"stats"`
}

// Registry is the slot table. The hub goroutine mutates it; HTTP handlers
// read it concurrently.
type Registry struct {
	mu    sync.RWMutex
	slots []Slot
}

// NewRegistry creates slots 1..capacity, all vacant.
func NewRegistry(capacity int) *Registry {
	r := &Registry{slots: make([]Slot, capacity)}
	for i := range r.slots {
		r.slots[i] = Slot{
			PlayerID:    i + 1,
			DisplayName: fmt.Sprintf("Player_%d", i+1),
			Stats:       player.StartingStats(),
		}
	}
	return r
}

func (r *Registry) Capacity() int { return len(r.slots) }

// Claim takes the lowest vacant slot. It returns false when all are held.
func (r *Registry) Claim() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		if !r.slots[i].Connected {
			r.slots[i].Connected = true
			r.slots[i].Stats = player.StartingStats()
			return r.slots[i].PlayerID, true
		}
	}
	return 0, false
}

// Release vacates a slot. It reports whether the slot was held.
func (r *Registry) Release(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slotLocked(id)
	if s == nil || !s.Connected {
		return false
	}
	s.Connected = false
	return true
}

// UpdateStats records the last stats a player pushed.
func (r *Registry) UpdateStats(id int, stats player.Stats) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slotLocked(id)
	if s == nil {
		return false
	}
	s.Stats = stats
	return true
}

// Reset vacates every slot.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		r.slots[i].Connected = false
		r.slots[i].Stats = player.StartingStats()
	}
}

func (r *Registry) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.slots {
		if s.Connected {
			n++
		}
	}
	return n
}

// Snapshot copies the slot table.
func (r *Registry) Snapshot() []Slot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

func (r *Registry) slotLocked(id int) *Slot {
	if id < 1 || id > len(r.slots) {
		return nil
	}
	return &r.slots[id-1]
}
