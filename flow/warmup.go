package flow

import (
	"context"
	"sync"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/errs"
	"github.com/flowgate-io/flowcore/flowclock"
)

// warmUpColdFactor is the constant cold-start multiplier of SPEC_FULL.md
// §4.5 ("cold-factor coldFactor (constant, e.g. 3)").
const warmUpColdFactor = 3.0

// WarmUpController implements the Guava-style warm-up ramp: the allowed
// qps starts at rule.Count/coldFactor and grows to rule.Count over
// WarmUpPeriodSec of sustained load, tracked via a storedTokens bucket
// that drains from maxToken toward warningToken as passQps stays high
// (SPEC_FULL.md §4.5, §9 open question on previous-window reads).
type WarmUpController struct {
	rule  *Rule
	clock flowclock.Clock

	warningToken float64
	maxToken     float64
	slope        float64

	mu           sync.Mutex
	storedTokens float64
	lastFilledMs int64
}

func NewWarmUpController(rule *Rule, clock flowclock.Clock) *WarmUpController {
	if clock == nil {
		clock = flowclock.System
	}
	warmUpSec := float64(rule.WarmUpPeriodSec)
	count := rule.Count
	warningToken := warmUpSec * count / (warmUpColdFactor - 1)
	maxToken := warningToken + 2*warmUpSec*count/(1+warmUpColdFactor)
	var slope float64
	if count > 0 && maxToken > warningToken {
		slope = (warmUpColdFactor - 1) / count / (maxToken - warningToken)
	}
	return &WarmUpController{
		rule:         rule,
		clock:        clock,
		warningToken: warningToken,
		maxToken:     maxToken,
		slope:        slope,
		storedTokens: maxToken,
		lastFilledMs: clock.NowMillis(),
	}
}

// syncTokens runs once per aligned second. While storedTokens is at or
// above warningToken and previousQps is below count/coldFactor, it refills
// rule.Count tokens per elapsed second (capped at maxToken); below
// warningToken it does not refill. It then drains previousQps tokens, so
// sustained load moves storedTokens down toward and past warningToken,
// growing the allowed rate toward rule.Count. previousQps is the previous 1s bucket's
// pass rate (StatisticNode.PreviousPassQps), not the live aggregate — a
// call right after a quiet period sees previousQps==0 and refills at full
// speed, rather than the transiently-low rate a partially-filled current
// bucket would otherwise report (SPEC_FULL.md §9).
func (c *WarmUpController) syncTokens(previousQps float64, now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	alignedNow := now - now%1000
	if alignedNow <= c.lastFilledMs {
		return
	}
	old := c.storedTokens
	next := old
	if old >= c.warningToken && previousQps < c.rule.Count/warmUpColdFactor {
		elapsedSec := float64(alignedNow-c.lastFilledMs) / 1000
		next = old + elapsedSec*c.rule.Count
	}
	if next > c.maxToken {
		next = c.maxToken
	}
	next -= previousQps
	if next < 0 {
		next = 0
	}
	c.storedTokens = next
	c.lastFilledMs = alignedNow
}

func (c *WarmUpController) currentAllowedQps() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storedTokens > c.warningToken && c.slope > 0 {
		allowed := 1.0 / (c.slope*(c.storedTokens-c.warningToken) + 1.0/c.rule.Count)
		if allowed > c.rule.Count {
			return c.rule.Count
		}
		return allowed
	}
	return c.rule.Count
}

func (c *WarmUpController) CanPass(ctx context.Context, node base.Node, acquireCount int64, prioritized bool) *base.TokenResult {
	now := c.clock.NowMillis()
	c.syncTokens(node.PreviousPassQps(), now)
	allowed := c.currentAllowedQps()
	passQps := node.PassQps()
	if passQps+float64(acquireCount) > allowed {
		return base.NewTokenResultBlocked(errs.New(errs.BlockTypeFlow, c.rule.Resource, c.rule))
	}
	return base.NewTokenResultPass()
}

var _ Controller = (*WarmUpController)(nil)

// WarmUpRateLimiterController composes WarmUp's instantaneous allowed qps
// with RateLimiterController's pacing algorithm (SPEC_FULL.md §4.5).
type WarmUpRateLimiterController struct {
	warmUp *WarmUpController
	rule   *Rule
	clock  flowclock.Clock
	sleep  sleeper

	latestPassedTime int64
}

func NewWarmUpRateLimiterController(rule *Rule, clock flowclock.Clock) *WarmUpRateLimiterController {
	if clock == nil {
		clock = flowclock.System
	}
	return &WarmUpRateLimiterController{
		warmUp:           NewWarmUpController(rule, clock),
		rule:             rule,
		clock:            clock,
		sleep:            realSleep,
		latestPassedTime: -1 << 62,
	}
}

func (c *WarmUpRateLimiterController) CanPass(ctx context.Context, node base.Node, acquireCount int64, prioritized bool) *base.TokenResult {
	now := c.clock.NowMillis()
	c.warmUp.syncTokens(node.PreviousPassQps(), now)
	allowed := c.warmUp.currentAllowedQps()
	// rejectOnInterrupt=false: the reject-on-interrupt exception is
	// RateLimiterController's specifically (spec.md §9); the warm-up
	// wrapper keeps the general admit-and-return rule.
	return pace(ctx, &c.latestPassedTime, acquireCount, allowed, c.rule.MaxQueueingMs, now, c.sleep, c.rule.Resource, c.rule, false)
}

var _ Controller = (*WarmUpRateLimiterController)(nil)
