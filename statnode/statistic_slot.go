package statnode

import (
	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/flowlog"
)

// LogSlot is a thin diagnostic StatSlot: it never mutates node state, only
// logs rejections (and, if DebugPassages is set, admissions) — the
// optional per-second CSV metric log lives in package metriclog instead,
// since it reads nodes rather than intercepting the chain.
type LogSlot struct {
	DebugPassages bool
}

func (s *LogSlot) Order() uint32 { return OrderLogSlot }

func (s *LogSlot) OnEntryPassed(ctx *base.EntryContext) {
	if !s.DebugPassages {
		return
	}
	e := ctx.Entry()
	flowlog.Infof("flowcore: passed resource=%s context=%s", e.Resource().Name, e.Context().Name())
}

func (s *LogSlot) OnEntryBlocked(ctx *base.EntryContext, blockErr error) {
	e := ctx.Entry()
	flowlog.Warnf("flowcore: blocked resource=%s context=%s: %v", e.Resource().Name, e.Context().Name(), blockErr)
}

func (s *LogSlot) OnCompleted(ctx *base.EntryContext) {}

// MaxSlowRtMs clamps an unreasonably large recorded RT (e.g. a caller that
// forgot to Exit promptly) so one outlier can't dominate AvgRt; 0 disables
// clamping. Package-level since it's a process-wide ceiling, not a
// per-node setting, matching upstream's single slow-threshold config.
var MaxSlowRtMs int64 = 0

// StatisticSlot is the only stage that records outcomes, and only after
// every RuleCheckSlot has decided (SPEC_FULL.md §4.4).
type StatisticSlot struct{}

func (s *StatisticSlot) Order() uint32 { return OrderStatisticSlot }

func nodesOf(e *base.Entry) []base.Node {
	nodes := make([]base.Node, 0, 3)
	if e.CurNode() != nil {
		nodes = append(nodes, e.CurNode())
	}
	if e.OriginNode() != nil {
		nodes = append(nodes, e.OriginNode())
	}
	if e.ClusterNode() != nil {
		nodes = append(nodes, e.ClusterNode())
	}
	return nodes
}

func (s *StatisticSlot) OnEntryPassed(ctx *base.EntryContext) {
	e := ctx.Entry()
	count := ctx.Input.BatchCount

	if ctx.RuleCheckResult.IsShouldWait() {
		// Borrowed admission: the caller already slept to reach this
		// future bucket. Record the pass but do not bump the thread
		// count — it was never actually concurrently occupying a slot
		// for this window (SPEC_FULL.md §4.4).
		for _, n := range nodesOf(e) {
			n.AddPassRequest(count)
		}
		return
	}

	for _, n := range nodesOf(e) {
		n.IncreaseThreadNum()
		n.AddPassRequest(count)
	}
}

func (s *StatisticSlot) OnEntryBlocked(ctx *base.EntryContext, blockErr error) {
	e := ctx.Entry()
	count := ctx.Input.BatchCount
	for _, n := range nodesOf(e) {
		n.IncreaseBlockQps(count)
	}
}

func (s *StatisticSlot) OnCompleted(ctx *base.EntryContext) {
	e := ctx.Entry()
	count := ctx.Count()
	if count <= 0 {
		count = ctx.Input.BatchCount
	}
	rt := ctx.Rt()
	if MaxSlowRtMs > 0 && rt > MaxSlowRtMs {
		rt = MaxSlowRtMs
	}

	for _, n := range nodesOf(e) {
		n.AddRtAndSuccess(rt, count)
		n.DecreaseThreadNum()
		if e.Err() != nil {
			n.IncreaseExceptionQps(count)
		}
	}
}

var (
	_ base.StatSlot = (*LogSlot)(nil)
	_ base.StatSlot = (*StatisticSlot)(nil)
)
