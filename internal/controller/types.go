package controller

import (
	"context"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
	"github.com/danielpatrickdp/adaptive-signal/internal/logging"
	"github.com/danielpatrickdp/adaptive-signal/internal/notify"
)

// #region collaborators

// GreenStore holds the current green index per intersection. CurrentGreen
// returns an error matching state.ErrNotFound for unknown intersections.
type GreenStore interface {
	CurrentGreen(ctx context.Context, id string) (int, error)
	SetCurrentGreen(ctx context.Context, id string, idx int) error
}

// Recorder persists decision entries.
type Recorder interface {
	Record(ctx context.Context, entry logging.DecisionEntry) error
}

// Publisher fans decisions out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev notify.Event) error
}

// #endregion collaborators

// #region outcome

// Outcome is the result of one controller tick.
type Outcome struct {
	DecisionID     string
	IntersectionID string
	Evaluation     arbiter.Evaluation
	CreatedAt      time.Time
}

// Decision returns the engine decision.
func (o Outcome) Decision() arbiter.Decision {
	return o.Evaluation.Decision
}

// #endregion outcome

// #region intersection

// Intersection is a configured intersection driven by the control loop.
type Intersection struct {
	ID           string
	Lanes        []lanes.Spec
	InitialGreen int
}

// IntersectionView is the dashboard view of one intersection.
type IntersectionView struct {
	ID           string     `json:"id"`
	CurrentGreen int        `json:"current_green"`
	HasGreen     bool       `json:"has_green"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	Lanes        []LaneView `json:"lanes"`
}

// LaneView is one lane in an IntersectionView.
type LaneView struct {
	Name      string     `json:"name"`
	Kind      lanes.Kind `json:"kind"`
	Count     float64    `json:"count"`
	WaitTime  float64    `json:"wait_time"`
	SatRate   float64    `json:"sat_rate"`
	Emergency bool       `json:"emergency"`
	Green     bool       `json:"green"`
}

// #endregion intersection
