package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS intersections (
	id             TEXT PRIMARY KEY,
	lane_count     INTEGER NOT NULL,
	current_green  INTEGER NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decision_log (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id      TEXT NOT NULL UNIQUE,
	intersection_id  TEXT NOT NULL,
	next_green_lane  INTEGER NOT NULL,
	green_duration   INTEGER NOT NULL,
	reason           TEXT NOT NULL,
	switched         INTEGER NOT NULL DEFAULT 0,
	inputs_json      TEXT,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_intersection
	ON decision_log (intersection_id, id);
`

// #endregion schema

// #region store-struct
// Store persists per-intersection green indices and decision history in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region intersections
// EnsureIntersection registers an intersection. An existing row keeps its green
// index unless the lane count changed, in which case it restarts at initialGreen.
func (s *Store) EnsureIntersection(ctx context.Context, id string, laneCount, initialGreen int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intersections (id, lane_count, current_green, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			current_green = CASE WHEN intersections.lane_count = excluded.lane_count
				THEN intersections.current_green ELSE excluded.current_green END,
			lane_count = excluded.lane_count,
			updated_at = CASE WHEN intersections.lane_count = excluded.lane_count
				THEN intersections.updated_at ELSE excluded.updated_at END`,
		id, laneCount, initialGreen, now,
	)
	if err != nil {
		return fmt.Errorf("ensure intersection %s: %w", id, err)
	}
	return nil
}

// CurrentGreen reads the stored green index. It returns ErrNotFound for an
// unknown intersection.
func (s *Store) CurrentGreen(ctx context.Context, id string) (int, error) {
	var idx int
	err := s.db.QueryRowContext(ctx,
		`SELECT current_green FROM intersections WHERE id = ?`, id,
	).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("intersection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get current green %s: %w", id, err)
	}
	return idx, nil
}

// SetCurrentGreen writes back the green index after a tick.
func (s *Store) SetCurrentGreen(ctx context.Context, id string, idx int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intersections (id, lane_count, current_green, updated_at) VALUES (?, 0, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET current_green = excluded.current_green, updated_at = excluded.updated_at`,
		id, idx, now,
	)
	if err != nil {
		return fmt.Errorf("set current green %s: %w", id, err)
	}
	return nil
}

// ListIntersections returns all registered intersections ordered by ID.
func (s *Store) ListIntersections(ctx context.Context) ([]Intersection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lane_count, current_green, updated_at FROM intersections ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list intersections: %w", err)
	}
	defer rows.Close()

	var out []Intersection
	for rows.Next() {
		var in Intersection
		var updated string
		if err := rows.Scan(&in.ID, &in.LaneCount, &in.CurrentGreen, &updated); err != nil {
			return nil, fmt.Errorf("scan intersection: %w", err)
		}
		in.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, in)
	}
	return out, rows.Err()
}

// #endregion intersections

// #region decisions
// ListDecisions returns decision_log rows matching the filter.
func (s *Store) ListDecisions(ctx context.Context, f DecisionFilter) ([]DecisionRow, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.IntersectionID != "" {
		where = append(where, "intersection_id = ?")
		args = append(args, f.IntersectionID)
	}
	if f.DecisionID != "" {
		where = append(where, "decision_id = ?")
		args = append(args, f.DecisionID)
	}

	q := `SELECT id, decision_id, intersection_id, next_green_lane, green_duration, reason, switched, inputs_json, created_at
		FROM decision_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Ascending {
		q += " ORDER BY id ASC"
	} else {
		q += " ORDER BY id DESC"
	}
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRow
	for rows.Next() {
		var r DecisionRow
		var inputs sql.NullString
		var created string
		if err := rows.Scan(&r.ID, &r.DecisionID, &r.IntersectionID, &r.NextGreenLane,
			&r.GreenDuration, &r.Reason, &r.Switched, &inputs, &created); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if inputs.Valid {
			r.InputsJSON = inputs.String
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetDecision returns one decision_log row by decision ID.
func (s *Store) GetDecision(ctx context.Context, decisionID string) (DecisionRow, error) {
	rows, err := s.ListDecisions(ctx, DecisionFilter{DecisionID: decisionID, Limit: 1})
	if err != nil {
		return DecisionRow{}, err
	}
	if len(rows) == 0 {
		return DecisionRow{}, fmt.Errorf("decision %s: %w", decisionID, ErrNotFound)
	}
	return rows[0], nil
}

// #endregion decisions
