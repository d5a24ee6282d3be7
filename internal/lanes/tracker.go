package lanes

import (
	"sync"
	"time"
)

// #region tracker
// WaitTracker accrues per-lane wait time for each intersection between ticks.
type WaitTracker struct {
	mu    sync.Mutex
	waits map[string][]float64
}

// NewWaitTracker creates an empty tracker.
func NewWaitTracker() *WaitTracker {
	return &WaitTracker{waits: make(map[string][]float64)}
}

// Waits returns a copy of the accrued wait seconds for an intersection with n
// lanes. Unknown intersections, or ones whose lane count changed, start at zero.
func (t *WaitTracker) Waits(id string, n int) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]float64, n)
	copy(out, t.lanes(id, n))
	return out
}

// Advance accounts for elapsed time after a tick granted green to lane green.
// The green lane and lanes with an empty queue reset to zero; every other lane
// accrues elapsed seconds.
func (t *WaitTracker) Advance(id string, counts []float64, green int, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.lanes(id, len(counts))
	secs := elapsed.Seconds()
	for i := range w {
		if i == green || counts[i] <= 0 {
			w[i] = 0
			continue
		}
		w[i] += secs
	}
}

// Reset forgets an intersection.
func (t *WaitTracker) Reset(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.waits, id)
}

func (t *WaitTracker) lanes(id string, n int) []float64 {
	w, ok := t.waits[id]
	if !ok || len(w) != n {
		w = make([]float64, n)
		t.waits[id] = w
	}
	return w
}

// #endregion tracker
