package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-signal/internal/logging"
	"github.com/danielpatrickdp/adaptive-signal/internal/state"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to signal.db")
	last := flag.Int("last", 20, "show N most recent decisions")
	intersection := flag.String("intersection", "", "filter decisions to one intersection")
	decision := flag.String("decision", "", "show single decision detail")
	listIntersections := flag.Bool("intersections", false, "list intersections and their current green")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/signal.db [--last N] [--intersection id] [--decision id] [--intersections] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	switch {
	case *listIntersections:
		err = runIntersectionsMode(ctx, store, *jsonOut)
	case *decision != "":
		err = runDetailMode(ctx, store, *decision, *jsonOut)
	default:
		err = runListMode(ctx, store, *intersection, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	DecisionID     string `json:"decision_id"`
	IntersectionID string `json:"intersection_id"`
	CurrentGreen   int    `json:"current_green_index"`
	NextGreenLane  int    `json:"next_green_lane"`
	GreenDuration  int    `json:"green_duration"`
	Reason         string `json:"reason"`
	Switched       bool   `json:"switched"`
	CreatedAt      string `json:"created_at"`
}

func runListMode(ctx context.Context, store *state.Store, intersection string, last int, jsonOut bool) error {
	rows, err := store.ListDecisions(ctx, state.DecisionFilter{IntersectionID: intersection, Limit: last})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions found")
		return nil
	}

	// Store returns DESC, reverse for chronological
	listRows := make([]listRow, len(rows))
	for i, r := range rows {
		lr := listRow{
			DecisionID:     r.DecisionID,
			IntersectionID: r.IntersectionID,
			CurrentGreen:   -1,
			NextGreenLane:  r.NextGreenLane,
			GreenDuration:  r.GreenDuration,
			Reason:         r.Reason,
			Switched:       r.Switched,
			CreatedAt:      r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if rec, err := logging.ParseDecisionRecord(r.InputsJSON); err == nil {
			lr.CurrentGreen = rec.CurrentGreen
		}
		listRows[len(rows)-1-i] = lr
	}

	if jsonOut {
		return printJSON(listRows)
	}

	fmt.Printf("%-10s  %-14s  %4s  %4s  %5s  %-10s  %-6s  %s\n",
		"Decision", "Intersection", "From", "To", "Green", "Reason", "Switch", "Time")
	fmt.Printf("%-10s+-%-14s+-%4s+-%4s+-%5s+-%-10s+-%-6s+-%s\n",
		"----------", "--------------", "----", "----", "-----", "----------", "------", "--------------------")
	for _, r := range listRows {
		from := "?"
		if r.CurrentGreen >= 0 {
			from = fmt.Sprint(r.CurrentGreen)
		}
		fmt.Printf("%-10s  %-14s  %4s  %4d  %4ds  %-10s  %-6v  %s\n",
			shortID(r.DecisionID), r.IntersectionID, from, r.NextGreenLane, r.GreenDuration, r.Reason, r.Switched, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	DecisionID string                 `json:"decision_id"`
	CreatedAt  string                 `json:"created_at"`
	Switched   bool                   `json:"switched"`
	Record     logging.DecisionRecord `json:"record"`
}

func runDetailMode(ctx context.Context, store *state.Store, decisionID string, jsonOut bool) error {
	row, err := store.GetDecision(ctx, decisionID)
	if err != nil {
		return err
	}
	rec, err := logging.ParseDecisionRecord(row.InputsJSON)
	if err != nil {
		return err
	}

	out := detailOutput{
		DecisionID: row.DecisionID,
		CreatedAt:  row.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Switched:   row.Switched,
		Record:     rec,
	}
	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Decision:     %s\n", out.DecisionID)
	fmt.Printf("Intersection: %s\n", rec.IntersectionID)
	fmt.Printf("Created:      %s\n", out.CreatedAt)
	fmt.Printf("Config:       beta=%.3f hysteresis=%.2f\n", rec.Config.Beta, rec.Config.Hysteresis)
	fmt.Printf("Outcome:      lane %d -> lane %d for %ds (%s, switched=%v)\n",
		rec.CurrentGreen, rec.NextGreenLane, rec.GreenDuration, rec.Reason, out.Switched)
	if len(rec.Scores) > 0 {
		fmt.Printf("Challenger:   lane %d score %.1f vs current %.1f\n", rec.Challenger, rec.ChallengerScore, rec.CurrentScore)
	}

	fmt.Printf("\n%-5s  %7s  %9s  %8s  %-9s  %8s\n", "Lane", "Count", "Wait (s)", "Sat/h", "Emergency", "Score")
	for i, l := range rec.Lanes {
		score := "-"
		if i < len(rec.Scores) {
			score = fmt.Sprintf("%.1f", rec.Scores[i])
		}
		emergency := i < len(rec.EmergencyFlags) && rec.EmergencyFlags[i]
		marker := " "
		if i == rec.NextGreenLane {
			marker = "*"
		}
		fmt.Printf("%s%-4d  %7.1f  %9.1f  %8.0f  %-9v  %8s\n", marker, i, l.Count, l.WaitTime, l.SatRate, emergency, score)
	}
	return nil
}

// #endregion detail-mode

// #region intersections-mode

func runIntersectionsMode(ctx context.Context, store *state.Store, jsonOut bool) error {
	ins, err := store.ListIntersections(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(ins)
	}
	fmt.Printf("%-14s  %5s  %5s  %s\n", "Intersection", "Lanes", "Green", "Updated")
	for _, in := range ins {
		fmt.Printf("%-14s  %5d  %5d  %s\n", in.ID, in.LaneCount, in.CurrentGreen, in.UpdatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion intersections-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
