package state

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an intersection has no stored green index.
var ErrNotFound = errors.New("not found")

// #region intersection
// Intersection is the persisted controller state for one intersection.
type Intersection struct {
	ID           string
	LaneCount    int
	CurrentGreen int
	UpdatedAt    time.Time
}

// #endregion intersection

// #region decision-row
// DecisionRow is one row of decision_log.
type DecisionRow struct {
	ID             int64
	DecisionID     string
	IntersectionID string
	NextGreenLane  int
	GreenDuration  int
	Reason         string
	Switched       bool
	InputsJSON     string
	CreatedAt      time.Time
}

// DecisionFilter narrows ListDecisions. Zero values mean "all".
type DecisionFilter struct {
	IntersectionID string
	DecisionID     string
	Limit          int
	Ascending      bool // oldest first; default is newest first
}

// #endregion decision-row
