package arbiter

import (
	"errors"
	"math"
	"testing"
)

func TestScore(t *testing.T) {
	cases := []struct {
		count, wait, sat, beta float64
		want                   float64
	}{
		{25, 0, 1800, 0.05, 40},                           // count capped at 20
		{10, 0, 3600, 0.05, 10},                           // one vehicle per second
		{0, 100, 1800, 0.05, 50},                          // 100^1.5 = 1000
		{15, 30, 1800, 0.05, 30 + math.Pow(30, 1.5)*0.05}, // both terms
		{6, 4, 1200, 0, 18},                               // beta 0 drops the wait term
	}
	for _, tc := range cases {
		got, err := Score(tc.count, tc.wait, tc.sat, tc.beta)
		if err != nil {
			t.Fatalf("Score(%v, %v, %v): %v", tc.count, tc.wait, tc.sat, err)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Score(%v, %v, %v) = %f, want %f", tc.count, tc.wait, tc.sat, got, tc.want)
		}
	}
}

func TestScoreRejectsNonPositiveSatRate(t *testing.T) {
	for _, sat := range []float64{0, -1800} {
		if _, err := Score(10, 10, sat, 0.05); !errors.Is(err, ErrValidation) {
			t.Errorf("sat_rate %v: expected validation error, got %v", sat, err)
		}
	}
	if _, err := Score(10, 10, 1800, -1); !errors.Is(err, ErrValidation) {
		t.Errorf("negative beta: expected validation error, got %v", err)
	}
}

func TestGreenDuration(t *testing.T) {
	cases := []struct {
		count, sat float64
		want       int
	}{
		{0, 1800, 5},     // clamped up to the minimum
		{1.25, 1800, 5},  // 2.5s
		{7.25, 1800, 15}, // 14.5s rounds away from zero
		{7.75, 1800, 16}, // 15.5s
		{7.1, 1800, 14},  // 14.2s
		{15, 1800, 30},   // exactly the maximum
		{20, 1800, 30},   // 40s clamped
		{40, 1800, 30},   // capped count, clamped
		{6, 3600, 6},
		{3, 1200, 9},
		{100, 1200, 30},
	}
	for _, tc := range cases {
		got, err := GreenDuration(tc.count, tc.sat)
		if err != nil {
			t.Fatalf("GreenDuration(%v, %v): %v", tc.count, tc.sat, err)
		}
		if got != tc.want {
			t.Errorf("GreenDuration(%v, %v) = %d, want %d", tc.count, tc.sat, got, tc.want)
		}
	}
}

func TestGreenDurationRejectsZeroSatRate(t *testing.T) {
	_, err := GreenDuration(10, 0)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if ve.Field != "sat_rate" {
		t.Fatalf("expected field sat_rate, got %s", ve.Field)
	}
}
