package arbiter

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// helper: the four-lane intersection from the dashboard sample.
func sampleLanes() []LaneState {
	return []LaneState{
		{Count: 25, WaitTime: 0, SatRate: 1800},
		{Count: 15, WaitTime: 30, SatRate: 1800},
		{Count: 40, WaitTime: 70, SatRate: 1800},
		{Count: 10, WaitTime: 20, SatRate: 1800},
	}
}

func noEmergency(n int) []bool {
	return make([]bool, n)
}

func TestDecideSwitchesToStrongestChallenger(t *testing.T) {
	a := New(DefaultConfig())

	d, err := a.Decide(sampleLanes(), noEmergency(4), 0)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.NextGreenLane != 2 {
		t.Fatalf("expected lane 2, got %d", d.NextGreenLane)
	}
	if d.Reason != ReasonPriority {
		t.Fatalf("expected priority, got %s", d.Reason)
	}
	if d.GreenDuration != 30 {
		t.Fatalf("expected 30s, got %d", d.GreenDuration)
	}
}

func TestEvaluateExposesScores(t *testing.T) {
	a := New(DefaultConfig())

	ev, err := a.Evaluate(sampleLanes(), noEmergency(4), 0)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(ev.Scores) != 4 {
		t.Fatalf("expected 4 scores, got %d", len(ev.Scores))
	}
	if ev.Scores[0] != 40 {
		t.Errorf("expected lane 0 score 40, got %f", ev.Scores[0])
	}
	want2 := 40 + math.Pow(70, 1.5)*0.05
	if math.Abs(ev.Scores[2]-want2) > 1e-9 {
		t.Errorf("expected lane 2 score %f, got %f", want2, ev.Scores[2])
	}
	if ev.Challenger != 2 || !ev.Switched {
		t.Errorf("expected switch to challenger 2, got challenger=%d switched=%v", ev.Challenger, ev.Switched)
	}
	if ev.CurrentScore != 40 {
		t.Errorf("expected current score 40, got %f", ev.CurrentScore)
	}
}

func TestDecideEmergencyOverride(t *testing.T) {
	a := New(DefaultConfig())

	d, err := a.Decide(sampleLanes(), []bool{false, true, false, false}, 0)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.NextGreenLane != 1 || d.Reason != ReasonEmergency {
		t.Fatalf("expected emergency on lane 1, got lane %d reason %s", d.NextGreenLane, d.Reason)
	}
	if d.GreenDuration != 30 {
		t.Fatalf("expected 30s, got %d", d.GreenDuration)
	}
}

func TestDecideEmergencyLowestIndexWins(t *testing.T) {
	a := New(DefaultConfig())

	d, err := a.Decide(sampleLanes(), []bool{false, false, true, true}, 2)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.NextGreenLane != 2 {
		t.Fatalf("expected lane 2, got %d", d.NextGreenLane)
	}

	ev, err := a.Evaluate(sampleLanes(), []bool{false, false, true, true}, 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Scores != nil {
		t.Fatal("emergency path should not score lanes")
	}
	if ev.Switched {
		t.Fatal("lane 2 was already green")
	}
}

func TestDecideEmergencyOnSingleLane(t *testing.T) {
	a := New(DefaultConfig())
	lanes := []LaneState{{Count: 3, WaitTime: 0, SatRate: 1800}}

	d, err := a.Decide(lanes, []bool{true}, 0)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.Reason != ReasonEmergency || d.NextGreenLane != 0 {
		t.Fatalf("expected emergency on lane 0, got %+v", d)
	}
	if d.GreenDuration != 6 {
		t.Fatalf("expected 6s, got %d", d.GreenDuration)
	}
}

func TestDecideSingleLaneHolds(t *testing.T) {
	a := New(DefaultConfig())
	lanes := []LaneState{{Count: 0, WaitTime: 0, SatRate: 1800}}

	ev, err := a.Evaluate(lanes, []bool{false}, 0)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Decision.NextGreenLane != 0 || ev.Switched {
		t.Fatalf("single lane must hold, got %+v", ev)
	}
	if ev.ChallengerScore != -1 || ev.Challenger != 0 {
		t.Fatalf("expected seed challenger (0, -1), got (%d, %f)", ev.Challenger, ev.ChallengerScore)
	}
	if ev.Decision.GreenDuration != MinGreen {
		t.Fatalf("expected %ds, got %d", MinGreen, ev.Decision.GreenDuration)
	}
}

func TestDecideHysteresisHolds(t *testing.T) {
	a := New(DefaultConfig())
	// scores 20 and 22: 22 does not exceed 20 * 1.2
	lanes := []LaneState{
		{Count: 10, WaitTime: 0, SatRate: 1800},
		{Count: 11, WaitTime: 0, SatRate: 1800},
	}

	d, err := a.Decide(lanes, noEmergency(2), 0)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.NextGreenLane != 0 {
		t.Fatalf("expected hold on lane 0, got %d", d.NextGreenLane)
	}
	if d.GreenDuration != 20 {
		t.Fatalf("expected 20s, got %d", d.GreenDuration)
	}
}

func TestDecideHysteresisBoundaryIsStrict(t *testing.T) {
	cfg := Config{Beta: 0, Hysteresis: 2}
	a := New(cfg)
	// challenger score 40 == 20 * 2 exactly
	lanes := []LaneState{
		{Count: 10, SatRate: 1800},
		{Count: 20, SatRate: 1800},
	}

	d, err := a.Decide(lanes, noEmergency(2), 0)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.NextGreenLane != 0 {
		t.Fatalf("equal to threshold must hold, got lane %d", d.NextGreenLane)
	}
}

func TestDecideHysteresisOverride(t *testing.T) {
	lanes := []LaneState{
		{Count: 10, WaitTime: 0, SatRate: 1800},
		{Count: 11, WaitTime: 0, SatRate: 1800},
	}

	d, err := New(Config{Beta: 0.05, Hysteresis: 1.0}).Decide(lanes, noEmergency(2), 0)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if d.NextGreenLane != 1 {
		t.Fatalf("with hysteresis 1.0 expected switch to lane 1, got %d", d.NextGreenLane)
	}
}

func TestChallengerTieBreakByWait(t *testing.T) {
	a := New(Config{Beta: 0, Hysteresis: 1.2})
	lanes := []LaneState{
		{Count: 0, WaitTime: 0, SatRate: 1800},
		{Count: 10, WaitTime: 5, SatRate: 1800},
		{Count: 10, WaitTime: 9, SatRate: 1800},
		{Count: 10, WaitTime: 9, SatRate: 1800},
	}

	ev, err := a.Evaluate(lanes, noEmergency(4), 0)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Challenger != 2 {
		t.Fatalf("expected challenger 2 (longer wait, first seen), got %d", ev.Challenger)
	}
	if ev.Decision.NextGreenLane != 2 {
		t.Fatalf("expected switch to lane 2, got %d", ev.Decision.NextGreenLane)
	}
}

func TestChallengerFirstSeenWinsFullTie(t *testing.T) {
	a := New(DefaultConfig())
	lanes := []LaneState{
		{Count: 12, WaitTime: 10, SatRate: 1800},
		{Count: 12, WaitTime: 10, SatRate: 1800},
		{Count: 12, WaitTime: 10, SatRate: 1800},
	}

	ev, err := a.Evaluate(lanes, noEmergency(3), 2)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Challenger != 0 {
		t.Fatalf("expected challenger 0, got %d", ev.Challenger)
	}
	if ev.Decision.NextGreenLane != 2 {
		t.Fatalf("equal scores must hold current lane 2, got %d", ev.Decision.NextGreenLane)
	}
}

func TestCurrentLaneNeverChallengesItself(t *testing.T) {
	a := New(DefaultConfig())
	lanes := []LaneState{
		{Count: 1, WaitTime: 0, SatRate: 1800},
		{Count: 20, WaitTime: 100, SatRate: 1800},
	}

	ev, err := a.Evaluate(lanes, noEmergency(2), 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ev.Challenger != 0 {
		t.Fatalf("expected challenger 0, got %d", ev.Challenger)
	}
	if ev.Decision.NextGreenLane != 1 {
		t.Fatalf("expected hold on lane 1, got %d", ev.Decision.NextGreenLane)
	}
}

func TestDecideIsIdempotent(t *testing.T) {
	a := New(DefaultConfig())
	lanes := sampleLanes()
	flags := noEmergency(4)

	first, err := a.Decide(lanes, flags, 3)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	second, err := a.Decide(lanes, flags, 3)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical decisions, got %+v and %+v", first, second)
	}
}

func TestDecideRejectsInvalidInput(t *testing.T) {
	a := New(DefaultConfig())
	valid := sampleLanes()

	cases := []struct {
		name    string
		lanes   []LaneState
		flags   []bool
		current int
		field   string
	}{
		{"empty lanes", nil, nil, 0, "lanes"},
		{"flag length mismatch", valid, noEmergency(3), 0, "emergency_flags"},
		{"negative current", valid, noEmergency(4), -1, "current_green_index"},
		{"current past end", valid, noEmergency(4), 4, "current_green_index"},
		{"zero sat rate", []LaneState{{Count: 1, SatRate: 1800}, {Count: 1, SatRate: 0}}, noEmergency(2), 0, "sat_rate"},
		{"negative sat rate", []LaneState{{Count: 1, SatRate: -5}}, noEmergency(1), 0, "sat_rate"},
		{"negative count", []LaneState{{Count: -1, SatRate: 1800}}, noEmergency(1), 0, "count"},
		{"negative wait", []LaneState{{WaitTime: -3, SatRate: 1800}}, noEmergency(1), 0, "wait_time"},
		{"nan count", []LaneState{{Count: math.NaN(), SatRate: 1800}}, noEmergency(1), 0, "count"},
		{"inf wait", []LaneState{{WaitTime: math.Inf(1), SatRate: 1800}}, noEmergency(1), 0, "wait_time"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Decide(tc.lanes, tc.flags, tc.current)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, ve.Field)
			}
		})
	}
}

func TestZeroSatRateRejectedEvenOnEmergencyPath(t *testing.T) {
	a := New(DefaultConfig())
	lanes := []LaneState{
		{Count: 5, SatRate: 1800},
		{Count: 5, SatRate: 0},
	}

	_, err := a.Decide(lanes, []bool{true, false}, 0)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecideRejectsInvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Beta: -0.1, Hysteresis: 1.2},
		{Beta: math.NaN(), Hysteresis: 1.2},
		{Beta: 0.05, Hysteresis: 0},
		{Beta: 0.05, Hysteresis: math.Inf(1)},
	} {
		_, err := New(cfg).Decide(sampleLanes(), noEmergency(4), 0)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("config %+v: expected validation error, got %v", cfg, err)
		}
	}
}

func TestDecideComputationErrorOnOverflow(t *testing.T) {
	a := New(DefaultConfig())
	lanes := []LaneState{
		{Count: 1, SatRate: 1800},
		{Count: 1, WaitTime: math.MaxFloat64, SatRate: 1800},
	}

	_, err := a.Decide(lanes, noEmergency(2), 0)
	if !errors.Is(err, ErrComputation) {
		t.Fatalf("expected computation error, got %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("computation error must not match ErrValidation")
	}
}

// Randomized invariants over a fixed seed.
func TestDecideInvariants(t *testing.T) {
	a := New(DefaultConfig())
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 2000; iter++ {
		n := 1 + rng.Intn(6)
		lanes := make([]LaneState, n)
		flags := make([]bool, n)
		firstEmergency := -1
		for i := range lanes {
			lanes[i] = LaneState{
				Count:    float64(rng.Intn(60)),
				WaitTime: rng.Float64() * 180,
				SatRate:  []float64{600, 1200, 1800, 3600}[rng.Intn(4)],
			}
			if rng.Intn(10) == 0 {
				flags[i] = true
				if firstEmergency < 0 {
					firstEmergency = i
				}
			}
		}
		current := rng.Intn(n)

		ev, err := a.Evaluate(lanes, flags, current)
		if err != nil {
			t.Fatalf("iter %d: %v", iter, err)
		}
		d := ev.Decision
		if d.GreenDuration < MinGreen || d.GreenDuration > MaxGreen {
			t.Fatalf("iter %d: duration %d out of bounds", iter, d.GreenDuration)
		}
		if firstEmergency >= 0 {
			if d.Reason != ReasonEmergency || d.NextGreenLane != firstEmergency {
				t.Fatalf("iter %d: expected emergency on %d, got %+v", iter, firstEmergency, d)
			}
			continue
		}
		if n == 1 && d.NextGreenLane != current {
			t.Fatalf("iter %d: single lane switched", iter)
		}
		if ev.ChallengerScore <= ev.CurrentScore*1.2 && d.NextGreenLane != current {
			t.Fatalf("iter %d: switched without clearing hysteresis", iter)
		}
	}
}
