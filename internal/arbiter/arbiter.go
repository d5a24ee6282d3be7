package arbiter

import "math"

// #region arbiter
// Arbiter picks the next green lane. It holds only its Config and is safe for
// concurrent use.
type Arbiter struct {
	config Config
}

// New creates an arbiter with the given configuration.
func New(config Config) *Arbiter {
	return &Arbiter{config: config}
}

// Config returns the arbiter's configuration.
func (a *Arbiter) Config() Config {
	return a.config
}

// Decide runs one arbitration tick.
func (a *Arbiter) Decide(lanes []LaneState, emergency []bool, currentGreen int) (Decision, error) {
	ev, err := a.Evaluate(lanes, emergency, currentGreen)
	if err != nil {
		return Decision{}, err
	}
	return ev.Decision, nil
}

// Evaluate runs one arbitration tick and keeps the scores and challenger that
// led to the decision. Emergency override is checked first; scoring only runs
// when no lane carries an emergency flag.
func (a *Arbiter) Evaluate(lanes []LaneState, emergency []bool, currentGreen int) (Evaluation, error) {
	if err := Validate(lanes, emergency, currentGreen, a.config); err != nil {
		return Evaluation{}, err
	}

	// --- Emergency override ---
	for i, flagged := range emergency {
		if !flagged {
			continue
		}
		d, err := decision(lanes, i, ReasonEmergency)
		if err != nil {
			return Evaluation{}, err
		}
		return Evaluation{
			Decision:     d,
			CurrentGreen: currentGreen,
			Challenger:   i,
			Switched:     i != currentGreen,
		}, nil
	}

	// --- Priority scoring ---
	scores := make([]float64, len(lanes))
	for i, l := range lanes {
		s := score(l.Count, l.WaitTime, l.SatRate, a.config.Beta)
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return Evaluation{}, &ComputationError{Op: "score", Index: i, Value: s}
		}
		scores[i] = s
	}

	best := challenger(lanes, scores, currentGreen)
	currentScore := scores[currentGreen]

	chosen := currentGreen
	if best.score > currentScore*a.config.Hysteresis {
		chosen = best.index
	}

	d, err := decision(lanes, chosen, ReasonPriority)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		Decision:        d,
		Scores:          scores,
		CurrentGreen:    currentGreen,
		CurrentScore:    currentScore,
		Challenger:      best.index,
		ChallengerScore: best.score,
		Switched:        chosen != currentGreen,
	}, nil
}

// #endregion arbiter

// #region challenger
type candidate struct {
	index int
	score float64
	wait  float64
}

// challenger folds left to right over every lane except current. A lane
// replaces the running best on a strictly higher score, or on an equal score
// with a strictly longer wait, so the first-seen lane wins remaining ties.
// With a single lane the seed (current, -1) is returned unchanged.
func challenger(lanes []LaneState, scores []float64, current int) candidate {
	best := candidate{index: current, score: -1, wait: lanes[current].WaitTime}
	for i, s := range scores {
		if i == current {
			continue
		}
		if s > best.score || (s == best.score && lanes[i].WaitTime > best.wait) {
			best = candidate{index: i, score: s, wait: lanes[i].WaitTime}
		}
	}
	return best
}

// #endregion challenger

func decision(lanes []LaneState, lane int, reason Reason) (Decision, error) {
	l := lanes[lane]
	if est := clearTime(l.Count, l.SatRate); math.IsNaN(est) {
		return Decision{}, &ComputationError{Op: "green duration", Index: lane, Value: est}
	}
	return Decision{
		NextGreenLane: lane,
		GreenDuration: greenDuration(l.Count, l.SatRate),
		Reason:        reason,
	}, nil
}
