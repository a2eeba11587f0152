package system

import (
	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/errs"
	"github.com/flowgate-io/flowcore/statnode"
)

// Order within the RuleCheckSlot category: system checks run after
// authority and before param-flow/flow/degrade (SPEC_FULL.md §2's
// ...AuthoritySlot -> SystemSlot -> ParamFlowSlot... ordering).
const Order uint32 = 20

// Slot is the SystemSlot RuleCheckSlot: it reads the process-wide root
// EntranceNode's aggregate metrics plus an optional StatReader for
// OS-level load/CPU, and rejects once any configured rule's metric
// exceeds its TriggerCount (SPEC_FULL.md §4.11).
type Slot struct {
	Manager  *Manager
	Registry *statnode.Registry
	Reader   StatReader
}

func NewSlot(m *Manager, registry *statnode.Registry, reader StatReader) *Slot {
	if m == nil {
		m = Default
	}
	if reader == nil {
		reader = ZeroReader{}
	}
	return &Slot{Manager: m, Registry: registry, Reader: reader}
}

func (s *Slot) Order() uint32 { return Order }

func (s *Slot) Check(ctx *base.EntryContext) *base.TokenResult {
	rules := s.Manager.GetRules()
	if len(rules) == 0 {
		return base.NewTokenResultPass()
	}
	root := s.Registry.Root()
	resource := ctx.Entry().Resource().Name
	for _, rule := range rules {
		if !s.allows(rule, root) {
			return base.NewTokenResultBlocked(errs.New(errs.BlockTypeSystem, resource, rule))
		}
	}
	return base.NewTokenResultPass()
}

func (s *Slot) allows(rule *Rule, root base.Node) bool {
	if rule.Strategy == StrategyBBR {
		return s.allowsBBR(rule, root)
	}
	return s.metricValue(rule, root) <= rule.TriggerCount
}

func (s *Slot) metricValue(rule *Rule, root base.Node) float64 {
	switch rule.MetricType {
	case MetricLoad:
		return s.Reader.LoadAvg()
	case MetricAvgRT:
		return root.AvgRt()
	case MetricConcurrency:
		return float64(root.CurThreadNum())
	case MetricInboundQPS:
		return root.PassQps()
	case MetricCpuUsage:
		return s.Reader.CpuUsage()
	default:
		return 0
	}
}

// allowsBBR implements the adaptive check of SPEC_FULL.md §4.11: admit
// only while avgRt*(curThread+1) <= maxAllowedQps*minRt, where
// rule.TriggerCount plays the role of maxAllowedQps in BBR mode. With no
// latency data yet (minRt <= 0) there is nothing to shed against, so it
// admits.
func (s *Slot) allowsBBR(rule *Rule, root base.Node) bool {
	minRt := root.MinRt()
	if minRt <= 0 {
		return true
	}
	avgRt := root.AvgRt()
	curThread := root.CurThreadNum()
	return avgRt*float64(curThread+1) <= rule.TriggerCount*minRt
}

var _ base.RuleCheckSlot = (*Slot)(nil)
