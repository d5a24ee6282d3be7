package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/logging"
	"github.com/danielpatrickdp/adaptive-signal/internal/replay"
	"github.com/danielpatrickdp/adaptive-signal/internal/rpc"
	"github.com/danielpatrickdp/adaptive-signal/internal/state"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to signal.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	intersection := flag.String("intersection", "", "DB mode: only replay one intersection")
	grpcAddr := flag.String("grpc", "", "fixture mode: decide through a remote SignalService instead of the local engine")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/signal.db [--intersection id]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json [--grpc host:port]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *grpcAddr)
	} else {
		exitCode = runDBMode(*dbPath, *intersection)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

func runDBMode(dbPath, intersection string) int {
	store, err := state.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	rows, err := store.ListDecisions(context.Background(), state.DecisionFilter{IntersectionID: intersection, Ascending: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "query decisions: %v\n", err)
		return 2
	}

	var recs []replay.RecordedDecision
	for _, r := range rows {
		rec, err := logging.ParseDecisionRecord(r.InputsJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", r.DecisionID, err)
			continue
		}
		recs = append(recs, replay.RecordedDecision{DecisionID: r.DecisionID, Record: rec})
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no replayable entries found in decision_log")
		return 2
	}

	expected := make([]replay.FixtureExpectedResult, len(recs))
	for i, r := range recs {
		expected[i] = r.Expected()
	}
	return printComparison(replay.ReplayRecorded(recs), expected)
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path, grpcAddr string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	config := f.Config.ToArbiterConfig()

	var results []replay.ReplayResult
	if grpcAddr == "" {
		results = replay.Replay(f.InitialGreen, f.ToTicks(), config)
	} else {
		client, err := rpc.NewClient(grpcAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "connect: %v\n", err)
			return 2
		}
		defer client.Close()
		results = replay.ReplayWith(f.InitialGreen, f.ToTicks(), remoteDecider(client, config))
	}

	code := printComparison(results, f.ExpectedResults)
	s := replay.Summarize(results, f.InitialGreen)
	fmt.Printf("Ticks: %d | switches %d | holds %d | emergencies %d | errors %d | final green %d\n",
		s.TotalTicks, s.Switches, s.Holds, s.Emergencies, s.Errors, s.FinalGreen)
	return code
}

func remoteDecider(client *rpc.Client, config arbiter.Config) replay.DecideFunc {
	return func(lanes []arbiter.LaneState, emergency []bool, current int) (arbiter.Decision, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Decide(ctx, rpc.DecideRequest{
			Lanes:             lanes,
			EmergencyFlags:    emergency,
			CurrentGreenIndex: &current,
			Beta:              &config.Beta,
			Hysteresis:        &config.Hysteresis,
		})
	}
}

// #endregion fixture-mode

// #region output

// printComparison outputs a comparison table and returns exit code.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectedResult) int {
	fmt.Printf("%-12s| %-18s| %-18s| %s\n", "Tick", "Expected", "Replayed", "Match")
	fmt.Printf("%-12s+%-19s+%-19s+%s\n",
		"------------", "-------------------", "-------------------", "------")

	mismatched := make(map[string]bool)
	for _, m := range replay.Compare(results, expected) {
		mismatched[m.TickID] = true
	}
	byID := make(map[string]replay.ReplayResult, len(results))
	for _, r := range results {
		byID[r.TickID] = r
	}

	for _, exp := range expected {
		match := "OK"
		if mismatched[exp.TickID] {
			match = "DIFF"
		}
		fmt.Printf("%-12s| %-18s| %-18s| %s\n", shortID(exp.TickID), describeExpected(exp), describeResult(byID[exp.TickID]), match)
	}

	total := len(expected)
	diverge := len(mismatched)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", total, total-diverge, diverge)

	if diverge > 0 {
		return 1
	}
	return 0
}

func describeExpected(e replay.FixtureExpectedResult) string {
	if e.Error {
		return "error"
	}
	return fmt.Sprintf("%d/%ds %s", e.NextGreenLane, e.GreenDuration, e.Reason)
}

func describeResult(r replay.ReplayResult) string {
	switch {
	case r.TickID == "":
		return "missing"
	case r.Err != nil:
		return "error"
	}
	return fmt.Sprintf("%d/%ds %s", r.Decision.NextGreenLane, r.Decision.GreenDuration, r.Decision.Reason)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion output
