package arbiter

import "math"

// #region validate
// Validate checks a tick's inputs against the engine's contract without
// running arbitration.
func Validate(lanes []LaneState, emergency []bool, currentGreen int, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(lanes) == 0 {
		return invalid("lanes", -1, "at least one lane is required")
	}
	if len(emergency) != len(lanes) {
		return invalid("emergency_flags", -1, "got %d flags for %d lanes", len(emergency), len(lanes))
	}
	if currentGreen < 0 || currentGreen >= len(lanes) {
		return invalid("current_green_index", -1, "%d is outside [0, %d)", currentGreen, len(lanes))
	}
	for i, l := range lanes {
		if err := checkLane(l, i); err != nil {
			return err
		}
	}
	return nil
}

// #endregion validate

// Validate checks that beta is finite and non-negative and hysteresis is finite
// and positive.
func (c Config) Validate() error {
	if math.IsNaN(c.Beta) || math.IsInf(c.Beta, 0) || c.Beta < 0 {
		return invalid("beta", -1, "must be a finite non-negative number, got %v", c.Beta)
	}
	if math.IsNaN(c.Hysteresis) || math.IsInf(c.Hysteresis, 0) || c.Hysteresis <= 0 {
		return invalid("hysteresis", -1, "must be a finite positive number, got %v", c.Hysteresis)
	}
	return nil
}

func checkLane(l LaneState, i int) error {
	switch {
	case math.IsNaN(l.SatRate) || math.IsInf(l.SatRate, 0) || l.SatRate <= 0:
		return invalid("sat_rate", i, "must be positive and finite, got %v", l.SatRate)
	case math.IsNaN(l.Count) || math.IsInf(l.Count, 0) || l.Count < 0:
		return invalid("count", i, "must be non-negative and finite, got %v", l.Count)
	case math.IsNaN(l.WaitTime) || math.IsInf(l.WaitTime, 0) || l.WaitTime < 0:
		return invalid("wait_time", i, "must be non-negative and finite, got %v", l.WaitTime)
	}
	return nil
}
