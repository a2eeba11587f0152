package flow

import (
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/cluster"
	"github.com/flowgate-io/flowcore/errs"
	"github.com/flowgate-io/flowcore/flowclock"
)

// Order within the RuleCheckSlot category: flow shaping runs after
// authority/system/param-flow and before degrade (SPEC_FULL.md §2's
// ...ParamFlowSlot -> FlowSlot -> DegradeSlot ordering).
const Order uint32 = 40

// Slot is the FlowSlot RuleCheckSlot: for every Rule configured against
// the entered resource, it resolves the node the rule reads (via
// Checker), compiles (and caches) the rule's Controller, and asks it to
// decide. The first rule to block wins; a should-wait verdict is
// terminal too (SPEC_FULL.md §4.4's ordering note).
type Slot struct {
	Manager *Manager
	Checker *Checker
	Cluster cluster.TokenClient
	clock   flowclock.Clock

	controllers *xsync.Map[*Rule, Controller]
}

func NewSlot(m *Manager, checker *Checker, clock flowclock.Clock) *Slot {
	if clock == nil {
		clock = flowclock.System
	}
	return &Slot{
		Manager:     m,
		Checker:     checker,
		clock:       clock,
		controllers: xsync.NewMap[*Rule, Controller](),
	}
}

// SetClusterClient wires an optional remote token client used when a
// rule's ClusterMode is set (SPEC_FULL.md §4.12). Nil (the default) means
// every cluster-mode rule falls back to its local controller.
func (s *Slot) SetClusterClient(c cluster.TokenClient) { s.Cluster = c }

func (s *Slot) Order() uint32 { return Order }

func (s *Slot) controllerFor(rule *Rule) Controller {
	if c, ok := s.controllers.Load(rule); ok {
		return c
	}
	var c Controller
	switch rule.ControlBehavior {
	case BehaviorRateLimit:
		c = NewRateLimiterController(rule, s.clock)
	case BehaviorWarmUp:
		c = NewWarmUpController(rule, s.clock)
	case BehaviorWarmUpRateLimit:
		c = NewWarmUpRateLimiterController(rule, s.clock)
	default:
		c = NewDefaultController(rule, s.clock)
	}
	actual, _ := s.controllers.LoadOrStore(rule, c)
	return actual
}

func (s *Slot) Check(ctx *base.EntryContext) *base.TokenResult {
	e := ctx.Entry()
	rules := s.Manager.RulesFor(e.Resource().Name)
	if len(rules) == 0 {
		return base.NewTokenResultPass()
	}
	specificApps := SpecificApps(rules)
	prioritized := ctx.Input.Prioritized

	for _, rule := range rules {
		if rule.ClusterMode && s.Cluster != nil {
			if result := s.passClusterCheck(e, rule, ctx, prioritized); result != nil {
				if !result.IsPass() {
					return result
				}
				continue
			}
		}

		node := s.Checker.SelectNode(e, rule, specificApps)
		if node == nil {
			continue
		}
		result := s.controllerFor(rule).CanPass(ctx.Input.GoContext, node, ctx.Input.BatchCount, prioritized)
		if !result.IsPass() {
			return result
		}
	}
	return base.NewTokenResultPass()
}

// passClusterCheck implements SPEC_FULL.md §4.12's interpretation table.
// A nil return means "no cluster verdict obtained, fall through to the
// local controller below": it is returned on a transport error or
// FAIL/TOO_MANY_REQUEST when the rule sets FallbackToLocalOnError; without
// that flag those cases admit instead.
func (s *Slot) passClusterCheck(e *base.Entry, rule *Rule, ctx *base.EntryContext, prioritized bool) *base.TokenResult {
	result, err := s.Cluster.RequestToken(rule.ClusterFlowId, ctx.Input.BatchCount, prioritized)
	if err != nil {
		if rule.FallbackToLocalOnError {
			return nil
		}
		return base.NewTokenResultPass()
	}
	switch result.Status {
	case cluster.StatusOK:
		return base.NewTokenResultPass()
	case cluster.StatusShouldWait:
		return base.NewTokenResultShouldWait(result.WaitMs)
	case cluster.StatusBlocked:
		return base.NewTokenResultBlocked(errs.New(errs.BlockTypeFlow, rule.Resource, rule))
	case cluster.StatusNoRuleExists, cluster.StatusBadRequest:
		return base.NewTokenResultPass()
	default: // StatusFail, StatusTooManyRequest
		if rule.FallbackToLocalOnError {
			return nil
		}
		return base.NewTokenResultPass()
	}
}

var _ base.RuleCheckSlot = (*Slot)(nil)
