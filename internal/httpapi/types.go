package httpapi

import (
	"encoding/json"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
)

// #region requests
// DecideRequest is the body of the stateless signal-decision endpoint.
// Beta and Hysteresis override the server's engine settings for this call.
type DecideRequest struct {
	Lanes             []arbiter.LaneState `json:"lanes"`
	EmergencyFlags    []bool              `json:"emergency_flags"`
	CurrentGreenIndex *int                `json:"current_green_index"`
	Hysteresis        *float64            `json:"hysteresis,omitempty"`
	Beta              *float64            `json:"beta,omitempty"`
}

// TickRequest is the body of a stateful tick. The green index comes from the
// intersection's stored state.
type TickRequest struct {
	Lanes          []arbiter.LaneState `json:"lanes"`
	EmergencyFlags []bool              `json:"emergency_flags"`
}

// ObservationRequest is a detector push for every lane of an intersection.
type ObservationRequest struct {
	Lanes []LaneObservation `json:"lanes"`
}

// LaneObservation carries either an explicit count or a detection summary.
// An explicit count wins when both are present.
type LaneObservation struct {
	Count      *float64               `json:"count,omitempty"`
	Detections lanes.DetectionSummary `json:"detections,omitempty"`
	Emergency  bool                   `json:"emergency"`
}

// #endregion requests

// #region responses
// TickResponse is a decision plus its log identity.
type TickResponse struct {
	DecisionID string `json:"decision_id"`
	arbiter.Decision
	Switched  bool      `json:"switched"`
	CreatedAt time.Time `json:"created_at"`
}

// DecisionResponse is one row of decision history.
type DecisionResponse struct {
	DecisionID     string          `json:"decision_id"`
	IntersectionID string          `json:"intersection_id"`
	NextGreenLane  int             `json:"next_green_lane"`
	GreenDuration  int             `json:"green_duration"`
	Reason         string          `json:"reason"`
	Switched       bool            `json:"switched"`
	Inputs         json.RawMessage `json:"inputs,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ErrorResponse is the body of every non-2xx reply. Field and Lane are set for
// validation errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Lane  *int   `json:"lane,omitempty"`
}

// #endregion responses
