package lanes

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLaneCount is returned when a reading's width differs from the layout.
var ErrLaneCount = errors.New("lane count mismatch")

// #region board
// Board keeps the latest detector observations per intersection.
type Board struct {
	mu      sync.RWMutex
	entries map[string]boardEntry
}

type boardEntry struct {
	obs       []Observation
	updatedAt time.Time
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{entries: make(map[string]boardEntry)}
}

// Update replaces an intersection's observations. laneCount is the configured
// number of lanes; a reading of a different width is rejected.
func (b *Board) Update(id string, laneCount int, obs []Observation, at time.Time) error {
	if len(obs) != laneCount {
		return fmt.Errorf("intersection %s has %d lanes, got %d observations: %w", id, laneCount, len(obs), ErrLaneCount)
	}
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	b.mu.Lock()
	b.entries[id] = boardEntry{obs: cp, updatedAt: at}
	b.mu.Unlock()
	return nil
}

// Latest returns a copy of the most recent observations and when they arrived.
func (b *Board) Latest(id string) ([]Observation, time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.entries[id]
	if !ok {
		return nil, time.Time{}, false
	}
	cp := make([]Observation, len(e.obs))
	copy(cp, e.obs)
	return cp, e.updatedAt, true
}

// #endregion board
