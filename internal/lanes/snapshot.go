package lanes

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
)

// Snapshot assembles arbiter input from lane specs, the latest observations,
// and accrued waits. All three must describe the same lanes in the same order.
func Snapshot(specs []Spec, obs []Observation, waits []float64) ([]arbiter.LaneState, []bool, error) {
	if len(obs) != len(specs) || len(waits) != len(specs) {
		return nil, nil, fmt.Errorf("snapshot: %d specs, %d observations, %d waits", len(specs), len(obs), len(waits))
	}
	states := make([]arbiter.LaneState, len(specs))
	flags := make([]bool, len(specs))
	for i, s := range specs {
		states[i] = arbiter.LaneState{
			Count:    obs[i].Count,
			WaitTime: waits[i],
			SatRate:  s.EffectiveSatRate(),
		}
		flags[i] = obs[i].Emergency
	}
	return states, flags, nil
}
