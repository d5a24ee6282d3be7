package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
	"github.com/danielpatrickdp/adaptive-signal/internal/lanes"
	"github.com/danielpatrickdp/adaptive-signal/internal/logging"
	"github.com/danielpatrickdp/adaptive-signal/internal/state"
)

func fourWay() Intersection {
	return Intersection{
		ID: "main-5th",
		Lanes: []lanes.Spec{
			{Name: "north", Kind: lanes.KindStraight},
			{Name: "south", Kind: lanes.KindStraight},
			{Name: "east-turn", Kind: lanes.KindTurn},
			{Name: "west-turn", Kind: lanes.KindTurn},
		},
	}
}

func newTestRunner(t *testing.T) (*Runner, *lanes.Board, *captureRecorder) {
	t.Helper()
	rec := &captureRecorder{}
	c := New(arbiter.New(arbiter.DefaultConfig()), state.NewMemoryGreenStore(), rec, nil)
	board := lanes.NewBoard()
	r := NewRunner(c, board, lanes.NewWaitTracker(), []Intersection{fourWay()}, 50*time.Millisecond)
	return r, board, rec
}

func TestStepIdlesWithoutObservations(t *testing.T) {
	r, _, rec := newTestRunner(t)
	var st loopState

	if wait := r.step(context.Background(), fourWay(), &st); wait != 50*time.Millisecond {
		t.Fatalf("expected idle wait, got %v", wait)
	}
	if st.ticked || len(rec.entries) != 0 {
		t.Fatal("no tick expected without observations")
	}
}

func TestStepAccruesWaitBetweenTicks(t *testing.T) {
	r, board, rec := newTestRunner(t)
	in := fourWay()
	clock := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	obs := []lanes.Observation{{Count: 12}, {Count: 8}, {Count: 3}, {Count: 2}}
	if err := board.Update(in.ID, 4, obs, clock); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var st loopState
	wait := r.step(context.Background(), in, &st)
	if !st.ticked {
		t.Fatal("expected a tick")
	}
	// lane 0 holds: 24s vs challenger 16s
	if st.green != 0 || wait != 24*time.Second {
		t.Fatalf("expected lane 0 for 24s, got lane %d for %v", st.green, wait)
	}

	clock = clock.Add(wait)
	r.step(context.Background(), in, &st)

	parsed := lastRecord(t, rec)
	if parsed.Lanes[0].WaitTime != 0 {
		t.Errorf("green lane should not accrue wait, got %v", parsed.Lanes[0].WaitTime)
	}
	for i := 1; i < 4; i++ {
		if parsed.Lanes[i].WaitTime != 24 {
			t.Errorf("lane %d: expected 24s wait, got %v", i, parsed.Lanes[i].WaitTime)
		}
	}
	if parsed.Lanes[2].SatRate != lanes.DefaultTurnSatRate {
		t.Errorf("turn lane should use turn sat rate, got %v", parsed.Lanes[2].SatRate)
	}
}

func TestStepFollowsGreenMovedElsewhere(t *testing.T) {
	r, board, rec := newTestRunner(t)
	in := fourWay()
	clock := time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }
	ctx := context.Background()

	obs := []lanes.Observation{{Count: 12}, {Count: 8}, {Count: 3}, {Count: 2}}
	board.Update(in.ID, 4, obs, clock)

	var st loopState
	wait := r.step(ctx, in, &st)
	if st.green != 0 {
		t.Fatalf("expected lane 0, got %d", st.green)
	}
	// an API tick moves the green to lane 1 between loop steps
	if err := r.ctrl.greens.SetCurrentGreen(ctx, in.ID, 1); err != nil {
		t.Fatalf("SetCurrentGreen: %v", err)
	}

	clock = clock.Add(wait)
	r.step(ctx, in, &st)

	parsed := lastRecord(t, rec)
	if parsed.Lanes[1].WaitTime != 0 {
		t.Errorf("lane 1 was green, got wait %v", parsed.Lanes[1].WaitTime)
	}
	if parsed.Lanes[0].WaitTime != 24 {
		t.Errorf("lane 0 was red for 24s, got wait %v", parsed.Lanes[0].WaitTime)
	}
}

func TestStepEmergencyObservation(t *testing.T) {
	r, board, _ := newTestRunner(t)
	in := fourWay()
	obs := []lanes.Observation{{Count: 12}, {Count: 8}, {Count: 3, Emergency: true}, {Count: 2}}
	board.Update(in.ID, 4, obs, time.Now())

	var st loopState
	wait := r.step(context.Background(), in, &st)
	// 3 vehicles at 1200 veh/h = 9s
	if st.green != 2 || wait != 9*time.Second {
		t.Fatalf("expected emergency lane 2 for 9s, got lane %d for %v", st.green, wait)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r, board, rec := newTestRunner(t)
	board.Update("main-5th", 4, []lanes.Observation{{Count: 1}, {Count: 1}, {Count: 1}, {Count: 1}}, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.entries) == 0 {
		t.Fatal("expected at least one tick")
	}
}

func TestViews(t *testing.T) {
	r, board, _ := newTestRunner(t)
	ctx := context.Background()

	views, err := r.Views(ctx)
	if err != nil {
		t.Fatalf("Views: %v", err)
	}
	if len(views) != 1 || views[0].HasGreen || views[0].UpdatedAt != nil {
		t.Fatalf("unexpected initial views %+v", views)
	}

	board.Update("main-5th", 4, []lanes.Observation{{Count: 12}, {Count: 8}, {Count: 3}, {Count: 2}}, time.Now())
	var st loopState
	r.step(ctx, fourWay(), &st)

	views, err = r.Views(ctx)
	if err != nil {
		t.Fatalf("Views: %v", err)
	}
	v := views[0]
	if !v.HasGreen || v.CurrentGreen != 0 || !v.Lanes[0].Green || v.Lanes[1].Green {
		t.Fatalf("unexpected view %+v", v)
	}
	if v.Lanes[0].Count != 12 || v.Lanes[2].SatRate != 1200 || v.Lanes[3].Name != "west-turn" {
		t.Fatalf("unexpected lanes %+v", v.Lanes)
	}
}

func TestLookup(t *testing.T) {
	r, _, _ := newTestRunner(t)
	if _, ok := r.Lookup("main-5th"); !ok {
		t.Fatal("expected main-5th")
	}
	if _, ok := r.Lookup("elm-1st"); ok {
		t.Fatal("unexpected elm-1st")
	}
}

func lastRecord(t *testing.T, rec *captureRecorder) logging.DecisionRecord {
	t.Helper()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.entries) == 0 {
		t.Fatal("no recorded entries")
	}
	parsed, err := logging.ParseDecisionRecord(rec.entries[len(rec.entries)-1].InputsJSON)
	if err != nil {
		t.Fatalf("ParseDecisionRecord: %v", err)
	}
	return parsed
}

func TestObserve(t *testing.T) {
	r, board, _ := newTestRunner(t)

	if err := r.Observe("nowhere", []lanes.Observation{{Count: 1}}); !errors.Is(err, ErrUnknownIntersection) {
		t.Fatalf("expected ErrUnknownIntersection, got %v", err)
	}
	if err := r.Observe("main-5th", []lanes.Observation{{Count: 1}}); !errors.Is(err, lanes.ErrLaneCount) {
		t.Fatalf("expected ErrLaneCount, got %v", err)
	}
	obs := []lanes.Observation{{Count: 4}, {Count: 0}, {Count: 2, Emergency: true}, {Count: 1}}
	if err := r.Observe("main-5th", obs); err != nil {
		t.Fatalf("Observe: %v", err)
	}
	got, _, ok := board.Latest("main-5th")
	if !ok || len(got) != 4 || !got[2].Emergency {
		t.Fatalf("unexpected board contents: %+v ok=%v", got, ok)
	}
}
