package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-signal/internal/logging"
	"github.com/danielpatrickdp/adaptive-signal/internal/replay"
	"github.com/danielpatrickdp/adaptive-signal/internal/state"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to signal.db")
	intersection := flag.String("intersection", "", "intersection to export")
	last := flag.Int("last", 10, "number of most recent decisions to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" || *intersection == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --intersection id --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *intersection, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, intersection string, last int, outPath string) error {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	// Last N rows come back DESC, reverse for chronological order
	rows, err := store.ListDecisions(context.Background(), state.DecisionFilter{IntersectionID: intersection, Limit: last})
	if err != nil {
		return err
	}
	recs := make([]replay.RecordedDecision, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		rec, err := logging.ParseDecisionRecord(rows[i].InputsJSON)
		if err != nil {
			return fmt.Errorf("decision %s: %w", rows[i].DecisionID, err)
		}
		recs = append(recs, replay.RecordedDecision{DecisionID: rows[i].DecisionID, Record: rec})
	}

	desc := fmt.Sprintf("Exported from %s: last %d decisions of %s", dbPath, len(recs), intersection)
	f, err := replay.FixtureFromRecorded(desc, recs)
	if err != nil {
		return err
	}

	// Replay before writing so a fixture never ships with its own mismatch
	results := replay.Replay(f.InitialGreen, f.ToTicks(), f.Config.ToArbiterConfig())
	if m := replay.Compare(results, f.ExpectedResults); len(m) > 0 {
		return fmt.Errorf("%d exported decisions do not replay (first: %s)", len(m), m[0].TickID)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}

	fmt.Printf("Wrote %d ticks to %s (initial green %d)\n", len(f.Ticks), outPath, f.InitialGreen)
	return nil
}

// #endregion extract
