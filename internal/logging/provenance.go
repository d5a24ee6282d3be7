package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
)

// #region log-decision
// LogDecision writes an entry to the decision_log table.
func LogDecision(ctx context.Context, db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO decision_log (decision_id, intersection_id, next_green_lane, green_duration, reason, switched, inputs_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.DecisionID,
		entry.IntersectionID,
		entry.NextGreenLane,
		entry.GreenDuration,
		entry.Reason,
		entry.Switched,
		nullIfEmpty(entry.InputsJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region recorder
// Recorder writes decision entries to a database opened by state.Store.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a Recorder over db.
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record writes one entry.
func (r *Recorder) Record(ctx context.Context, entry DecisionEntry) error {
	return LogDecision(ctx, r.db, entry)
}

// #endregion recorder

// #region build
// NewDecisionRecord assembles the replayable record of one tick.
func NewDecisionRecord(intersectionID string, lanes []arbiter.LaneState, flags []bool, cfg arbiter.Config, ev arbiter.Evaluation) DecisionRecord {
	return DecisionRecord{
		IntersectionID:  intersectionID,
		Lanes:           lanes,
		EmergencyFlags:  flags,
		CurrentGreen:    ev.CurrentGreen,
		Config:          RecordConfig{Beta: cfg.Beta, Hysteresis: cfg.Hysteresis},
		Scores:          ev.Scores,
		Challenger:      ev.Challenger,
		ChallengerScore: ev.ChallengerScore,
		CurrentScore:    ev.CurrentScore,
		NextGreenLane:   ev.Decision.NextGreenLane,
		GreenDuration:   ev.Decision.GreenDuration,
		Reason:          string(ev.Decision.Reason),
	}
}

// Entry converts the record to a log row, embedding itself as inputs_json.
func (r DecisionRecord) Entry(decisionID string, switched bool, at time.Time) (DecisionEntry, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return DecisionEntry{}, fmt.Errorf("marshal decision record: %w", err)
	}
	return DecisionEntry{
		DecisionID:     decisionID,
		IntersectionID: r.IntersectionID,
		NextGreenLane:  r.NextGreenLane,
		GreenDuration:  r.GreenDuration,
		Reason:         r.Reason,
		Switched:       switched,
		InputsJSON:     string(raw),
		CreatedAt:      at,
	}, nil
}

// ParseDecisionRecord decodes decision_log.inputs_json.
func ParseDecisionRecord(raw string) (DecisionRecord, error) {
	var r DecisionRecord
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return DecisionRecord{}, fmt.Errorf("parse decision record: %w", err)
	}
	return r, nil
}

// ArbiterConfig returns the recorded config as an arbiter.Config.
func (c RecordConfig) ArbiterConfig() arbiter.Config {
	return arbiter.Config{Beta: c.Beta, Hysteresis: c.Hysteresis}
}

// #endregion build

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
