package replay

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-signal/internal/logging"
)

// #region recorded

// RecordedDecision is a decision_log row decoded for replay.
type RecordedDecision struct {
	DecisionID string
	Record     logging.DecisionRecord
}

// Expected returns the recorded outcome as a fixture expectation.
func (r RecordedDecision) Expected() FixtureExpectedResult {
	return FixtureExpectedResult{
		TickID:        r.DecisionID,
		NextGreenLane: r.Record.NextGreenLane,
		GreenDuration: r.Record.GreenDuration,
		Reason:        r.Record.Reason,
	}
}

func (r RecordedDecision) tick() Tick {
	return Tick{
		TickID:         r.DecisionID,
		Lanes:          r.Record.Lanes,
		EmergencyFlags: r.Record.EmergencyFlags,
	}
}

// ReplayRecorded re-runs every recorded decision against its own inputs,
// current green and engine config. Records are independent of each other.
func ReplayRecorded(recs []RecordedDecision) []ReplayResult {
	results := make([]ReplayResult, 0, len(recs))
	for _, r := range recs {
		cfg := r.Record.Config.ArbiterConfig()
		results = append(results, Replay(r.Record.CurrentGreen, []Tick{r.tick()}, cfg)...)
	}
	return results
}

// #endregion recorded

// #region export

// FixtureFromRecorded turns a chronological run of one intersection's
// decisions into a fixture. Each record's current green must equal the
// previous record's decision, and all records must share one engine config.
func FixtureFromRecorded(description string, recs []RecordedDecision) (*Fixture, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("no decisions to export")
	}
	first := recs[0].Record
	beta, hysteresis := first.Config.Beta, first.Config.Hysteresis
	f := &Fixture{
		Description:  description,
		Config:       FixtureConfig{Beta: &beta, Hysteresis: &hysteresis},
		InitialGreen: first.CurrentGreen,
	}

	for i, r := range recs {
		if r.Record.IntersectionID != first.IntersectionID {
			return nil, fmt.Errorf("decision %s: intersection %s differs from %s", r.DecisionID, r.Record.IntersectionID, first.IntersectionID)
		}
		if r.Record.Config != first.Config {
			return nil, fmt.Errorf("decision %s: engine config changed mid-run", r.DecisionID)
		}
		if i > 0 && r.Record.CurrentGreen != recs[i-1].Record.NextGreenLane {
			return nil, fmt.Errorf("decision %s: current green %d does not follow previous decision %d",
				r.DecisionID, r.Record.CurrentGreen, recs[i-1].Record.NextGreenLane)
		}
		f.Ticks = append(f.Ticks, FixtureTick{
			TickID:         r.DecisionID,
			Lanes:          r.Record.Lanes,
			EmergencyFlags: r.Record.EmergencyFlags,
		})
		f.ExpectedResults = append(f.ExpectedResults, r.Expected())
	}
	return f, nil
}

// #endregion export
