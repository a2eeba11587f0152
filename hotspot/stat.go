package hotspot

import (
	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/errs"
)

// StatSlot is the companion StatSlot of Slot: it records into the same
// ParamsMetric cache once the chain has decided, never before (so a
// call's own check never sees its own pre-increment, matching
// statnode.StatisticSlot's ordering guarantee for the resource-wide
// nodes; SPEC_FULL.md §4.4).
type StatSlot struct {
	ParamSlot *Slot
}

func NewStatSlot(s *Slot) *StatSlot {
	return &StatSlot{ParamSlot: s}
}

func (s *StatSlot) Order() uint32 { return StatOrder }

func (s *StatSlot) OnEntryPassed(ctx *base.EntryContext) {
	n := ctx.Input.BatchCount
	s.ParamSlot.forEachArg(ctx, func(rule *Rule, metric *ParamsMetric, key string) {
		if rule.Grade == GradeThread {
			metric.thread.increase(key)
		} else {
			metric.qps.AddPass(key, n)
		}
	})
}

func (s *StatSlot) OnEntryBlocked(ctx *base.EntryContext, blockErr error) {
	be, ok := blockErr.(*errs.BlockError)
	if !ok || be.BlockType != errs.BlockTypeParamFlow {
		return
	}
	e := ctx.Entry()
	if e == nil {
		return
	}
	rule, ok := be.Rule.(*Rule)
	if !ok || rule.Grade != GradeQps {
		return
	}
	metric := s.ParamSlot.metricFor(rule)
	metric.qps.AddBlock(keyFor(be.Value), ctx.Input.BatchCount)
}

func (s *StatSlot) OnCompleted(ctx *base.EntryContext) {
	s.ParamSlot.forEachArg(ctx, func(rule *Rule, metric *ParamsMetric, key string) {
		if rule.Grade == GradeThread {
			metric.thread.decrease(key)
		}
	})
}

var _ base.StatSlot = (*StatSlot)(nil)
