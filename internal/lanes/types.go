package lanes

// #region kind
// Kind is a lane's movement type, which sets its default saturation rate.
type Kind string

const (
	KindStraight Kind = "straight"
	KindTurn     Kind = "turn"
)

const (
	DefaultStraightSatRate = 1800.0 // vehicles/hour
	DefaultTurnSatRate     = 1200.0 // vehicles/hour
)

// #endregion kind

// #region spec
// Spec describes one physical lane of an intersection.
type Spec struct {
	Name    string  `yaml:"name" json:"name"`
	Kind    Kind    `yaml:"kind" json:"kind"`
	SatRate float64 `yaml:"sat_rate,omitempty" json:"sat_rate,omitempty"` // 0 means use the kind default
}

// EffectiveSatRate returns SatRate, or the kind default when it is unset.
func (s Spec) EffectiveSatRate() float64 {
	if s.SatRate > 0 {
		return s.SatRate
	}
	if s.Kind == KindTurn {
		return DefaultTurnSatRate
	}
	return DefaultStraightSatRate
}

// #endregion spec

// #region observation
// Observation is the latest detector reading for a lane.
type Observation struct {
	Count     float64 `json:"count"`
	Emergency bool    `json:"emergency"`
}

// #endregion observation
