package circuitbreaker

import (
	"sync/atomic"
	"time"

	"github.com/flowgate-io/flowcore/base"
)

// exceptionCounter is implemented by statnode.StatisticNode (and therefore
// ClusterNode/DefaultNode/EntranceNode) to expose the raw 60s exception
// total the GradeExceptionCount grade needs, without widening base.Node.
type exceptionCounter interface {
	ExceptionCount() int64
}

const slowRtConsecutiveThreshold = 5

// timerFunc abstracts time.AfterFunc so tests can inject a deterministic
// scheduler instead of waiting TimeWindowSec seconds of wall time for the
// trip to reset.
type timerFunc func(d time.Duration, f func())

func defaultTimerFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// Breaker is one circuit breaker instance bound to a Rule and the Node
// (normally a resource's ClusterNode) it reads signals from, per
// SPEC_FULL.md §4.7.
type Breaker struct {
	rule  *Rule
	node  base.Node
	timer timerFunc

	cut         int32 // atomic bool
	consecutive int64 // atomic: consecutive slow-RT calls (GradeAvgRt only)
}

// NewBreaker validates rule and binds it to node.
func NewBreaker(rule *Rule, node base.Node) (*Breaker, error) {
	if err := rule.validate(); err != nil {
		return nil, err
	}
	return &Breaker{rule: rule, node: node, timer: defaultTimerFunc}, nil
}

// Rule returns the bound rule.
func (b *Breaker) Rule() *Rule { return b.rule }

// IsOpen reports whether the breaker is currently tripped (rejecting all
// calls).
func (b *Breaker) IsOpen() bool { return atomic.LoadInt32(&b.cut) == 1 }

// TryPass evaluates the breaker's grade against the current node state. It
// returns true to admit the call. When the call should trip the breaker,
// TryPass flips cut and schedules the reset timer before returning false.
func (b *Breaker) TryPass() bool {
	if b.IsOpen() {
		return false
	}
	switch b.rule.Grade {
	case GradeAvgRt:
		return b.checkAvgRt()
	case GradeExceptionRatio:
		return b.checkExceptionRatio()
	case GradeExceptionCount:
		return b.checkExceptionCount()
	default:
		return true
	}
}

func (b *Breaker) checkAvgRt() bool {
	if b.node.AvgRt() < b.rule.Count {
		atomic.StoreInt64(&b.consecutive, 0)
		return true
	}
	n := atomic.AddInt64(&b.consecutive, 1)
	if n < slowRtConsecutiveThreshold {
		return true
	}
	b.trip()
	return false
}

func (b *Breaker) checkExceptionRatio() bool {
	totalQps := b.node.TotalQps()
	if totalQps < 5 {
		return true
	}
	successQps := b.node.SuccessQps()
	exceptionQps := b.node.ExceptionQps()
	if !(successQps-exceptionQps >= 0 || exceptionQps >= 5) {
		return true
	}
	if successQps <= 0 {
		return true
	}
	ratio := exceptionQps / successQps
	if ratio >= b.rule.Count {
		b.trip()
		return false
	}
	return true
}

func (b *Breaker) checkExceptionCount() bool {
	ec, ok := b.node.(exceptionCounter)
	if !ok {
		return true
	}
	if float64(ec.ExceptionCount()) >= b.rule.Count {
		b.trip()
		return false
	}
	return true
}

// trip flips cut (exactly one caller wins the CAS) and arms the one-shot
// reset timer.
func (b *Breaker) trip() {
	if !atomic.CompareAndSwapInt32(&b.cut, 0, 1) {
		return
	}
	b.timer(time.Duration(b.rule.TimeWindowSec)*time.Second, func() {
		atomic.StoreInt64(&b.consecutive, 0)
		atomic.StoreInt32(&b.cut, 0)
	})
}

// reset is exposed for tests that want to force a trip's reset without
// waiting for the real timer.
func (b *Breaker) reset() {
	atomic.StoreInt64(&b.consecutive, 0)
	atomic.StoreInt32(&b.cut, 0)
}
