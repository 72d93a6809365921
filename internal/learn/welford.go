package learn

import "math"

// WelfordState holds running statistics using Welford's online
// algorithm, adapted from the teacher's vehicle-count baseline learner
// to per-node/per-edge duration observations (in seconds). It
// computes mean and standard deviation incrementally in O(1) time and
// space. Unlike the bounded-FIFO samples above, this accumulator never
// evicts — it is a long-run jitter diagnostic, not an input to the
// predictor, which must use the bounded mean (spec.md §4.B rationale).
type WelfordState struct {
	Count int     // n - number of observations
	Mean  float64 // running mean
	M2    float64 // sum of squared differences from mean
}

// Update adds a new observation.
// Reference: https://en.wikipedia.org/wiki/Algorithms_for_calculating_variance#Welford's_online_algorithm
func (w *WelfordState) Update(newValue float64) {
	w.Count++
	delta := newValue - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := newValue - w.Mean
	w.M2 += delta * delta2
}

// GetStdDev returns the population standard deviation, or 0 with
// fewer than 2 observations.
func (w *WelfordState) GetStdDev() float64 {
	if w.Count < 2 {
		return 0
	}
	return math.Sqrt(w.M2 / float64(w.Count))
}
