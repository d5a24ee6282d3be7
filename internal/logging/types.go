package logging

import (
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
)

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	DecisionID     string
	IntersectionID string
	NextGreenLane  int
	GreenDuration  int
	Reason         string // "emergency" | "priority"
	Switched       bool
	InputsJSON     string
	CreatedAt      time.Time
}

// #endregion decision-entry

// #region decision-record
// DecisionRecord captures the complete engine inputs and outputs for one tick.
// Serialized as JSON into decision_log.inputs_json for deterministic replay.
type DecisionRecord struct {
	IntersectionID string              `json:"intersection_id"`
	Lanes          []arbiter.LaneState `json:"lanes"`
	EmergencyFlags []bool              `json:"emergency_flags"`
	CurrentGreen   int                 `json:"current_green_index"`

	// Engine config active at decision time
	Config RecordConfig `json:"config"`

	// Diagnostics (scores is empty on the emergency path)
	Scores          []float64 `json:"scores,omitempty"`
	Challenger      int       `json:"challenger"`
	ChallengerScore float64   `json:"challenger_score"`
	CurrentScore    float64   `json:"current_score"`

	// Engine output
	NextGreenLane int    `json:"next_green_lane"`
	GreenDuration int    `json:"green_duration"`
	Reason        string `json:"reason"`
}

// RecordConfig captures the arbiter config active at decision time.
type RecordConfig struct {
	Beta       float64 `json:"beta"`
	Hysteresis float64 `json:"hysteresis"`
}

// #endregion decision-record
