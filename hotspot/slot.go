package hotspot

import (
	"math"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/errs"
	"github.com/flowgate-io/flowcore/flowclock"
)

// Order within the RuleCheckSlot category: param-flow runs after
// system and before flow/degrade (SPEC_FULL.md §2's NodeSelector ->
// ClusterBuilder -> LogSlot -> StatisticSlot -> AuthoritySlot ->
// SystemSlot -> ParamFlowSlot -> FlowSlot -> DegradeSlot ordering).
const Order uint32 = 30

// StatOrder is this package's StatSlot position; independent of Order
// since StatPrepareSlot/RuleCheckSlot/StatSlot are sorted separately
// (see base.SlotChain).
const StatOrder uint32 = 30

type sleeper func(d time.Duration)

func realSleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Slot is the ParamFlowSlot RuleCheckSlot. It owns the per-rule
// ParamsMetric cache; a companion StatSlot (sharing the same Slot)
// records outcomes once the full chain has decided.
type Slot struct {
	Manager     *Manager
	clock       flowclock.Clock
	sampleCount uint32
	intervalMs  uint32
	sleep       sleeper

	metrics *xsync.Map[*Rule, *ParamsMetric]
}

// NewSlot builds a ParamFlowSlot. sampleCount/intervalMs size every
// rule's qps-grade window (2 buckets over 1000ms if zero, matching
// config.Default().Statistic).
func NewSlot(m *Manager, clock flowclock.Clock, sampleCount, intervalMs uint32) *Slot {
	if m == nil {
		m = Default
	}
	if clock == nil {
		clock = flowclock.System
	}
	if sampleCount == 0 {
		sampleCount = 2
	}
	if intervalMs == 0 {
		intervalMs = 1000
	}
	return &Slot{
		Manager:     m,
		clock:       clock,
		sampleCount: sampleCount,
		intervalMs:  intervalMs,
		sleep:       realSleep,
		metrics:     xsync.NewMap[*Rule, *ParamsMetric](),
	}
}

func (s *Slot) Order() uint32 { return Order }

func (s *Slot) metricFor(r *Rule) *ParamsMetric {
	if m, ok := s.metrics.Load(r); ok {
		return m
	}
	actual, _ := s.metrics.LoadOrStore(r, newParamsMetric(s.sampleCount, s.intervalMs, s.clock))
	return actual
}

// forEachArg resolves ctx's argument for every rule configured against
// this resource, invoking fn once per flattened scalar value. Shared by
// Check (decide) and StatSlot (record).
func (s *Slot) forEachArg(ctx *base.EntryContext, fn func(rule *Rule, metric *ParamsMetric, key string)) {
	e := ctx.Entry()
	if e == nil {
		return
	}
	rules := s.Manager.RulesFor(e.Resource().Name)
	for _, rule := range rules {
		if rule.ParamIndex < 0 || rule.ParamIndex >= len(ctx.Input.Args) {
			continue
		}
		arg := ctx.Input.Args[rule.ParamIndex]
		if arg == nil {
			continue
		}
		metric := s.metricFor(rule)
		for _, v := range flatten(arg) {
			fn(rule, metric, keyFor(v))
		}
	}
}

func (s *Slot) Check(ctx *base.EntryContext) *base.TokenResult {
	e := ctx.Entry()
	rules := s.Manager.RulesFor(e.Resource().Name)
	if len(rules) == 0 {
		return base.NewTokenResultPass()
	}
	n := ctx.Input.BatchCount

	for _, rule := range rules {
		if rule.ParamIndex < 0 || rule.ParamIndex >= len(ctx.Input.Args) {
			continue
		}
		arg := ctx.Input.Args[rule.ParamIndex]
		if arg == nil {
			continue
		}
		metric := s.metricFor(rule)
		for _, v := range flatten(arg) {
			key := keyFor(v)
			threshold := float64(rule.thresholdFor(key))
			curCount := metric.CurCount(rule.Grade, key)

			if curCount+float64(n) <= threshold {
				continue
			}
			// float tail: a fractional overshoot strictly between 0 and 1
			// still admits, preserving the source behaviour (SPEC_FULL.md
			// §4.9, recorded as an open-question decision in DESIGN.md).
			if tail := curCount - threshold; tail > 0 && tail < 1 {
				continue
			}
			if rule.ControlBehavior == BehaviorRateLimit && s.tryQueue(rule, threshold, curCount, n) {
				continue
			}
			return base.NewTokenResultBlocked(errs.NewParamFlow(e.Resource().Name, rule, v))
		}
	}
	return base.NewTokenResultPass()
}

// tryQueue implements the BehaviorRateLimit path: sleep proportionally to
// the overshoot, bounded by rule.MaxQueueingMs, then admit. Returns false
// (caller rejects) if no queueing budget is configured or the required
// wait would exceed it.
func (s *Slot) tryQueue(rule *Rule, threshold, curCount float64, n int64) bool {
	if rule.MaxQueueingMs <= 0 || threshold <= 0 {
		return false
	}
	excess := curCount + float64(n) - threshold
	waitMs := int64(math.Ceil(excess * 1000.0 / threshold))
	if waitMs > rule.MaxQueueingMs {
		return false
	}
	s.sleep(time.Duration(waitMs) * time.Millisecond)
	return true
}

var _ base.RuleCheckSlot = (*Slot)(nil)
