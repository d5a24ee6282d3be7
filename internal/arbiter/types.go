package arbiter

// #region reason
// Reason tags why a lane was granted green.
type Reason string

const (
	ReasonEmergency Reason = "emergency"
	ReasonPriority  Reason = "priority"
)

// #endregion reason

// #region lane-state
// LaneState is one lane's measurement for a single tick. Its position in the
// lane slice is the lane's identity.
type LaneState struct {
	Count    float64 `json:"count"`     // vehicles queued
	WaitTime float64 `json:"wait_time"` // seconds the queue has waited
	SatRate  float64 `json:"sat_rate"`  // saturation flow, vehicles/hour
}

// #endregion lane-state

// #region config
// Config holds the tuning knobs for scoring and the switch gate.
type Config struct {
	Beta       float64 // weight of the superlinear wait penalty
	Hysteresis float64 // challenger must beat current_score * Hysteresis to switch
}

// DefaultConfig returns beta=0.05, hysteresis=1.2.
func DefaultConfig() Config {
	return Config{
		Beta:       0.05,
		Hysteresis: 1.2,
	}
}

// #endregion config

// #region decision
// Decision is the output of one arbitration tick.
type Decision struct {
	NextGreenLane int    `json:"next_green_lane"`
	GreenDuration int    `json:"green_duration"` // seconds, always in [MinGreen, MaxGreen]
	Reason        Reason `json:"reason"`
}

// Evaluation is a Decision plus the intermediate values that produced it.
// Scores is nil on the emergency path.
type Evaluation struct {
	Decision        Decision  `json:"decision"`
	Scores          []float64 `json:"scores,omitempty"`
	CurrentGreen    int       `json:"current_green"`
	CurrentScore    float64   `json:"current_score"`
	Challenger      int       `json:"challenger"`
	ChallengerScore float64   `json:"challenger_score"`
	Switched        bool      `json:"switched"`
}

// #endregion decision
