package domain

import (
	"math"
	"time"
)

// ComputePoints maps an answer outcome to points. Incorrect answers score
// zero. Correct answers decay linearly from maxPoints at the instant the
// window opens down to a floor of 1 at (or past) the time limit, so a correct
// answer is never worth nothing. Elapsed times outside [0, limit] are clamped
// before the decay is applied.
func ComputePoints(correct bool, elapsed, limit time.Duration, maxPoints int) int {
	if !correct {
		return 0
	}
	t := float64(elapsed) / float64(limit)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pts := int(math.Round(float64(maxPoints) * (1 - t)))
	if pts < 1 {
		pts = 1
	}
	return pts
}
