package arbiter

import "math"

const (
	// CountCap bounds how many queued vehicles count toward score and duration.
	CountCap = 20
	// MinGreen and MaxGreen bound every green duration, in seconds.
	MinGreen = 5
	MaxGreen = 30
)

// #region score
// Score is the priority of a lane: seconds of green needed to clear the capped
// queue at the lane's saturation rate, plus beta * wait^1.5.
func Score(count, waitTime, satRate, beta float64) (float64, error) {
	if err := checkLane(LaneState{Count: count, WaitTime: waitTime, SatRate: satRate}, -1); err != nil {
		return 0, err
	}
	if err := (Config{Beta: beta, Hysteresis: 1}).Validate(); err != nil {
		return 0, err
	}
	return score(count, waitTime, satRate, beta), nil
}

func score(count, waitTime, satRate, beta float64) float64 {
	return clearTime(count, satRate) + math.Pow(waitTime, 1.5)*beta
}

// #endregion score

// #region duration
// GreenDuration is the clear time of the capped queue, clamped to
// [MinGreen, MaxGreen] and rounded half away from zero.
func GreenDuration(count, satRate float64) (int, error) {
	if err := checkLane(LaneState{Count: count, SatRate: satRate}, -1); err != nil {
		return 0, err
	}
	return greenDuration(count, satRate), nil
}

func greenDuration(count, satRate float64) int {
	est := clearTime(count, satRate)
	return int(math.Round(math.Max(MinGreen, math.Min(MaxGreen, est))))
}

// #endregion duration

func clearTime(count, satRate float64) float64 {
	return math.Min(count, CountCap) / (satRate / 3600)
}
