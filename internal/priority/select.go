package priority

import (
	"math"
	"math/rand/v2"
	"time"
)

// Selector draws goals by inverse effective priority.
type Selector struct {
	// Float64 returns a uniform value in [0, 1).
	Float64 func() float64
}

// NewSelector returns a Selector backed by the global math/rand/v2 source.
func NewSelector() *Selector {
	return &Selector{Float64: rand.Float64}
}

// Select picks one goal from candidates using the default selector.
func Select(candidates []Goal, now time.Time) (Goal, error) {
	return NewSelector().Select(candidates, now)
}

// Select filters out done goals and draws one of the rest, weighting each by
// 1/effective priority. The walk follows input order. If floating-point
// residue leaves the draw positive after the last weight, the last candidate
// wins.
//
// Goals with zero effective priority have unbounded weight; when any exist
// the draw is uniform among them.
func (s *Selector) Select(candidates []Goal, now time.Time) (Goal, error) {
	open := make([]Goal, 0, len(candidates))
	for _, g := range candidates {
		if !g.Done {
			open = append(open, g)
		}
	}
	if len(open) == 0 {
		return Goal{}, ErrEmptyCandidateSet
	}

	// Weights are 1/effective scaled by the smallest effective priority, so
	// each lies in [0, 1] and the total cannot overflow for tiny priorities.
	var unbounded []int
	minEff := math.Inf(1)
	for i := range open {
		eff := open[i].Effective(now)
		open[i].EffectivePriority = eff
		if eff == 0 || math.IsNaN(eff) {
			unbounded = append(unbounded, i)
			continue
		}
		minEff = min(minEff, eff)
	}

	if len(unbounded) > 0 {
		idx := int(s.Float64() * float64(len(unbounded)))
		if idx >= len(unbounded) {
			idx = len(unbounded) - 1
		}
		return open[unbounded[idx]], nil
	}

	weights := make([]float64, len(open))
	total := 0.0
	for i := range open {
		w := minEff / open[i].EffectivePriority
		if math.IsNaN(w) { // every effective priority is +Inf
			w = 1
		}
		weights[i] = w
		total += w
	}

	r := s.Float64() * total
	for i, w := range weights {
		r -= w
		if r <= 0 {
			return open[i], nil
		}
	}
	return open[len(open)-1], nil
}
