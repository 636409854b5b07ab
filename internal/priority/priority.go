// Package priority implements the goal priority model.
//
// Effective priority decays hyperbolically with time since a goal was last
// selected:
//
//	age     = max(0, now - lastSelected) in minutes
//	decay   = age * decayRate
//	effective = base / (1 + decay)
//
// Selection draws one goal with probability proportional to 1/effective, so
// neglected low-priority goals keep surfacing. Accepting a goal cuts its base
// priority by 10% and resets its clock; rejecting raises it by 10%.
package priority

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// DefaultDecayRate is the per-minute decay coefficient for new goals.
	DefaultDecayRate = 0.001

	// AcceptFactor and RejectFactor scale base priority on feedback.
	AcceptFactor = 0.9
	RejectFactor = 1.1

	// ClockSkewTolerance is how far lastSelected may sit in the future before
	// Validate rejects it. Anything inside the tolerance is clamped to age 0.
	ClockSkewTolerance = 5 * time.Minute
)

var (
	// ErrInvalidInput marks priority inputs rejected at the boundary.
	ErrInvalidInput = errors.New("invalid priority input")

	// ErrEmptyCandidateSet is returned by Select when no undone goals remain.
	ErrEmptyCandidateSet = errors.New("no candidates to select")
)

// Goal is the slice of a goal record the priority model reads and mutates.
type Goal struct {
	ID           string
	BasePriority float64
	DecayRate    float64
	LastSelected time.Time
	Done         bool

	// EffectivePriority is derived. Accept and Reject refresh it; everything
	// else should call Effective instead of trusting it.
	EffectivePriority float64
}

// Effective returns base priority decayed by the minutes elapsed since
// lastSelected. A lastSelected after now counts as zero elapsed time.
func Effective(basePriority, decayRate float64, lastSelected, now time.Time) float64 {
	ageMinutes := float64(now.Sub(lastSelected)) / float64(time.Minute)
	if ageMinutes < 0 {
		ageMinutes = 0
	}
	decay := ageMinutes * decayRate
	return basePriority / (1 + decay)
}

// Effective returns g's effective priority at now.
func (g Goal) Effective(now time.Time) float64 {
	return Effective(g.BasePriority, g.DecayRate, g.LastSelected, now)
}

// Accept records that g was worked on at now.
func Accept(g *Goal, now time.Time) {
	g.BasePriority *= AcceptFactor
	g.LastSelected = now
	g.EffectivePriority = g.Effective(now)
}

// Reject records that g was skipped at now. LastSelected is left alone.
func Reject(g *Goal, now time.Time) {
	g.BasePriority *= RejectFactor
	g.EffectivePriority = g.Effective(now)
}

// Validate checks g's fields before they reach the decay math.
func Validate(g Goal, now time.Time) error {
	if err := ValidateValues(g.BasePriority, g.DecayRate); err != nil {
		return err
	}
	if !g.LastSelected.IsZero() && g.LastSelected.Sub(now) > ClockSkewTolerance {
		return fmt.Errorf("%w: lastSelected %s is after now %s",
			ErrInvalidInput, g.LastSelected.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	return nil
}

// ValidateValues checks base priority and decay rate on their own, for
// partial updates that do not touch lastSelected.
func ValidateValues(basePriority, decayRate float64) error {
	if math.IsNaN(basePriority) || math.IsInf(basePriority, 0) {
		return fmt.Errorf("%w: priority must be finite", ErrInvalidInput)
	}
	if basePriority < 0 {
		return fmt.Errorf("%w: priority %g is negative", ErrInvalidInput, basePriority)
	}
	if math.IsNaN(decayRate) || math.IsInf(decayRate, 0) {
		return fmt.Errorf("%w: decayRate must be finite", ErrInvalidInput)
	}
	if decayRate < 0 {
		return fmt.Errorf("%w: decayRate %g is negative", ErrInvalidInput, decayRate)
	}
	return nil
}
