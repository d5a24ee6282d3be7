package replay

import (
	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
)

// #region types
// Tick represents a single recorded control tick for replay.
type Tick struct {
	TickID         string
	Lanes          []arbiter.LaneState
	EmergencyFlags []bool
}

// ReplayResult captures the outcome of replaying one tick.
type ReplayResult struct {
	TickID       string
	Action       string // "switch" | "hold" | "emergency" | "error"
	CurrentGreen int
	Decision     arbiter.Decision
	Evaluation   *arbiter.Evaluation // nil on error
	Err          error
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTicks  int
	Switches    int
	Holds       int
	Emergencies int
	Errors      int
	FinalGreen  int
	// GreenSeconds is the total green time granted per lane.
	GreenSeconds map[int]int
}

// #endregion types

// #region replay
// DecideFunc produces a decision for one tick. It lets a remote engine stand
// in for the local arbiter.
type DecideFunc func(lanes []arbiter.LaneState, emergency []bool, currentGreen int) (arbiter.Decision, error)

// Replay runs ticks through the arbiter in order, feeding each decision's
// next_green_lane back as the following tick's current green. A tick that
// fails validation leaves the green index unchanged. Operates entirely
// in-memory.
func Replay(initialGreen int, ticks []Tick, config arbiter.Config) []ReplayResult {
	arb := arbiter.New(config)
	return run(initialGreen, ticks, func(tk Tick, current int) (*arbiter.Evaluation, arbiter.Decision, error) {
		ev, err := arb.Evaluate(tk.Lanes, tk.EmergencyFlags, current)
		if err != nil {
			return nil, arbiter.Decision{}, err
		}
		return &ev, ev.Decision, nil
	})
}

// ReplayWith is Replay with decisions taken from decide. Results carry no
// Evaluation.
func ReplayWith(initialGreen int, ticks []Tick, decide DecideFunc) []ReplayResult {
	return run(initialGreen, ticks, func(tk Tick, current int) (*arbiter.Evaluation, arbiter.Decision, error) {
		d, err := decide(tk.Lanes, tk.EmergencyFlags, current)
		return nil, d, err
	})
}

type stepFunc func(tk Tick, current int) (*arbiter.Evaluation, arbiter.Decision, error)

func run(initialGreen int, ticks []Tick, step stepFunc) []ReplayResult {
	current := initialGreen
	results := make([]ReplayResult, 0, len(ticks))

	for _, tk := range ticks {
		ev, d, err := step(tk, current)
		if err != nil {
			results = append(results, ReplayResult{
				TickID:       tk.TickID,
				Action:       "error",
				CurrentGreen: current,
				Err:          err,
			})
			continue
		}

		action := "hold"
		switch {
		case d.Reason == arbiter.ReasonEmergency:
			action = "emergency"
		case d.NextGreenLane != current:
			action = "switch"
		}

		results = append(results, ReplayResult{
			TickID:       tk.TickID,
			Action:       action,
			CurrentGreen: current,
			Decision:     d,
			Evaluation:   ev,
		})
		current = d.NextGreenLane
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, initialGreen int) ReplaySummary {
	s := ReplaySummary{
		TotalTicks:   len(results),
		FinalGreen:   initialGreen,
		GreenSeconds: make(map[int]int),
	}
	for _, r := range results {
		switch r.Action {
		case "switch":
			s.Switches++
		case "hold":
			s.Holds++
		case "emergency":
			s.Emergencies++
		case "error":
			s.Errors++
			continue
		}
		s.FinalGreen = r.Decision.NextGreenLane
		s.GreenSeconds[r.Decision.NextGreenLane] += r.Decision.GreenDuration
	}
	return s
}

// #endregion replay
