package state

import (
	"context"
	"fmt"
	"sync"
)

// MemoryGreenStore keeps green indices in process memory.
type MemoryGreenStore struct {
	mu     sync.Mutex
	greens map[string]int
}

// NewMemoryGreenStore creates an empty store.
func NewMemoryGreenStore() *MemoryGreenStore {
	return &MemoryGreenStore{greens: make(map[string]int)}
}

// CurrentGreen returns ErrNotFound for an unknown intersection.
func (m *MemoryGreenStore) CurrentGreen(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.greens[id]
	if !ok {
		return 0, fmt.Errorf("intersection %s: %w", id, ErrNotFound)
	}
	return idx, nil
}

// SetCurrentGreen stores the index.
func (m *MemoryGreenStore) SetCurrentGreen(_ context.Context, id string, idx int) error {
	m.mu.Lock()
	m.greens[id] = idx
	m.mu.Unlock()
	return nil
}
