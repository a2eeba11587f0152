// Package circuitbreaker implements the DegradeSlot state machine of
// SPEC_FULL.md §4.7: per-rule circuit breakers graded on average RT,
// exception ratio, or exception count, tripping into a reject-everything
// window and resetting via a one-shot timer.
package circuitbreaker

import "github.com/pkg/errors"

// Grade selects which signal trips the breaker.
type Grade uint8

const (
	GradeAvgRt Grade = iota
	GradeExceptionRatio
	GradeExceptionCount
)

// Rule is the DegradeRule of SPEC_FULL.md §3.
type Rule struct {
	ID       string
	Resource string
	Grade    Grade
	// Count is the threshold: milliseconds for GradeAvgRt, a 0..1 ratio
	// for GradeExceptionRatio, an absolute count for GradeExceptionCount.
	Count float64
	// TimeWindowSec is how long the breaker stays tripped.
	TimeWindowSec int
}

func (r *Rule) validate() error {
	if r.Resource == "" {
		return errors.New("circuitbreaker: resource must not be empty")
	}
	if r.TimeWindowSec <= 0 {
		return errors.New("circuitbreaker: timeWindowSec must be positive")
	}
	if r.Count < 0 {
		return errors.New("circuitbreaker: count must not be negative")
	}
	return nil
}
