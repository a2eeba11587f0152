package flow

import (
	"context"
	"time"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/errs"
	"github.com/flowgate-io/flowcore/flowclock"
)

// DefaultOccupyTimeoutMs is the ceiling on how long a prioritized call may
// be told to sleep to borrow a future bucket before DefaultController gives
// up and rejects outright (SPEC_FULL.md §4.5).
const DefaultOccupyTimeoutMs int64 = 500

// Controller is one flow-shaping algorithm bound to a compiled Rule. It
// reads curUsed off node, decides, and for the two sleeping controllers
// parks the caller's own goroutine before returning — never a worker pool,
// per SPEC_FULL.md §5's ordering note on latestPassedTime. ctx is the
// caller's cancellation signal, consulted only while the controller sleeps.
type Controller interface {
	CanPass(ctx context.Context, node base.Node, acquireCount int64, prioritized bool) *base.TokenResult
}

// sleeper lets tests replace the real clock sleep with an instant no-op. It
// reports whether the sleep ran to completion; false means ctx was
// cancelled first (SPEC_FULL.md §5).
type sleeper func(ctx context.Context, d time.Duration) bool

func realSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// DefaultController implements the "reject" control behavior.
type DefaultController struct {
	rule          *Rule
	clock         flowclock.Clock
	sleep         sleeper
	occupyTimeout int64
}

func NewDefaultController(rule *Rule, clock flowclock.Clock) *DefaultController {
	if clock == nil {
		clock = flowclock.System
	}
	return &DefaultController{rule: rule, clock: clock, sleep: realSleep, occupyTimeout: DefaultOccupyTimeoutMs}
}

func (c *DefaultController) curUsed(node base.Node) float64 {
	if c.rule.Grade == GradeThread {
		return float64(node.CurThreadNum())
	}
	return node.PassQps()
}

func (c *DefaultController) CanPass(ctx context.Context, node base.Node, acquireCount int64, prioritized bool) *base.TokenResult {
	curUsed := c.curUsed(node)
	if curUsed+float64(acquireCount) <= c.rule.Count {
		return base.NewTokenResultPass()
	}

	if prioritized && c.rule.Grade == GradeQps {
		now := c.clock.NowMillis()
		waitMs := node.TryOccupyNext(now, acquireCount, c.rule.Count)
		if waitMs < c.occupyTimeout {
			node.AddWaitingRequest(now+waitMs, acquireCount)
			node.AddOccupiedPass(acquireCount)
			// The bucket is already borrowed: an interrupted sleep still
			// admits, consistent with the general cancellation rule
			// (SPEC_FULL.md §5) — only RateLimiterController's pace()
			// rejects on interrupt.
			c.sleep(ctx, time.Duration(waitMs)*time.Millisecond)
			return base.NewTokenResultShouldWait(waitMs)
		}
	}
	return base.NewTokenResultBlocked(errs.New(errs.BlockTypeFlow, c.rule.Resource, c.rule))
}

var _ Controller = (*DefaultController)(nil)
