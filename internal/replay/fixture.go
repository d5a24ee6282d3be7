package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-signal/internal/arbiter"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	InitialGreen    int                     `json:"initial_green"`
	Ticks           []FixtureTick           `json:"ticks"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureConfig mirrors arbiter.Config with JSON tags. Absent fields take the
// arbiter defaults.
type FixtureConfig struct {
	Beta       *float64 `json:"beta,omitempty"`
	Hysteresis *float64 `json:"hysteresis,omitempty"`
}

// FixtureTick mirrors replay.Tick with JSON tags.
type FixtureTick struct {
	TickID         string              `json:"tick_id"`
	Lanes          []arbiter.LaneState `json:"lanes"`
	EmergencyFlags []bool              `json:"emergency_flags"`
}

// FixtureExpectedResult captures the expected decision per tick. Error set
// means the tick must be rejected.
type FixtureExpectedResult struct {
	TickID        string `json:"tick_id"`
	NextGreenLane int    `json:"next_green_lane"`
	GreenDuration int    `json:"green_duration"`
	Reason        string `json:"reason"`
	Error         bool   `json:"error,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToTick converts a FixtureTick to a replay Tick.
func (ft *FixtureTick) ToTick() Tick {
	return Tick{
		TickID:         ft.TickID,
		Lanes:          ft.Lanes,
		EmergencyFlags: ft.EmergencyFlags,
	}
}

// ToTicks converts every fixture tick.
func (f *Fixture) ToTicks() []Tick {
	ticks := make([]Tick, len(f.Ticks))
	for i := range f.Ticks {
		ticks[i] = f.Ticks[i].ToTick()
	}
	return ticks
}

// ToArbiterConfig converts a FixtureConfig to an arbiter.Config.
func (fc *FixtureConfig) ToArbiterConfig() arbiter.Config {
	cfg := arbiter.DefaultConfig()
	if fc.Beta != nil {
		cfg.Beta = *fc.Beta
	}
	if fc.Hysteresis != nil {
		cfg.Hysteresis = *fc.Hysteresis
	}
	return cfg
}

// #endregion fixture-loader

// #region compare

// Mismatch describes a tick whose replayed outcome differs from expectation.
type Mismatch struct {
	TickID   string
	Expected FixtureExpectedResult
	Got      ReplayResult
}

// Compare matches results against expectations by tick ID. Expected ticks with
// no result are reported with a zero Got.
func Compare(results []ReplayResult, expected []FixtureExpectedResult) []Mismatch {
	byID := make(map[string]ReplayResult, len(results))
	for _, r := range results {
		byID[r.TickID] = r
	}
	var out []Mismatch
	for _, exp := range expected {
		got, ok := byID[exp.TickID]
		if !ok || !matches(exp, got) {
			out = append(out, Mismatch{TickID: exp.TickID, Expected: exp, Got: got})
		}
	}
	return out
}

func matches(exp FixtureExpectedResult, got ReplayResult) bool {
	if exp.Error {
		return got.Err != nil
	}
	return got.Err == nil &&
		got.Decision.NextGreenLane == exp.NextGreenLane &&
		got.Decision.GreenDuration == exp.GreenDuration &&
		string(got.Decision.Reason) == exp.Reason
}

// #endregion compare
