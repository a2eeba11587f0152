// Package flow implements the flow-shaping admission checkers of
// SPEC_FULL.md §4.5/§4.6: FlowRule, the four controllers (reject,
// leaky-bucket rate limiter, warm-up, and their composition), the node
// resolution table FlowRuleChecker implements, and FlowSlot.
package flow

import "github.com/pkg/errors"

// Grade selects what curUsed measures.
type Grade uint8

const (
	GradeThread Grade = iota
	GradeQps
)

// Strategy selects which node a rule's threshold is evaluated against.
type Strategy uint8

const (
	StrategyDirect Strategy = iota
	StrategyRelate
	StrategyChain
)

// ControlBehavior selects which Controller a rule is compiled into.
type ControlBehavior uint8

const (
	BehaviorReject ControlBehavior = iota
	BehaviorWarmUp
	BehaviorRateLimit
	BehaviorWarmUpRateLimit
)

// Rule is the FlowRule of SPEC_FULL.md §3.
type Rule struct {
	ID   string
	Resource string
	// LimitApp is an origin filter: a specific origin name, "default", or
	// "other" (SPEC_FULL.md §4.6).
	LimitApp         string
	Grade            Grade
	Count            float64
	Strategy         Strategy
	RefResource      string
	ControlBehavior  ControlBehavior
	WarmUpPeriodSec  int
	MaxQueueingMs    int64
	ClusterMode      bool
	ClusterFlowId    uint64
	// FallbackToLocalOnError governs cluster-mode behavior on remote
	// failure (SPEC_FULL.md §4.12/spec.md §7 "bounded fallback"): true
	// falls back to this rule's local controller, false admits.
	FallbackToLocalOnError bool
}

func (r *Rule) validate() error {
	if r.Resource == "" {
		return errors.New("flow: resource must not be empty")
	}
	if r.Count < 0 {
		return errors.New("flow: count must not be negative")
	}
	if r.Strategy != StrategyDirect && r.RefResource == "" {
		return errors.New("flow: relate/chain strategy requires refResource")
	}
	if r.ControlBehavior == BehaviorWarmUp || r.ControlBehavior == BehaviorWarmUpRateLimit {
		if r.WarmUpPeriodSec <= 0 {
			return errors.New("flow: warmUpPeriodSec must be positive for warm-up behaviors")
		}
	}
	return nil
}

func (r *Rule) isSpecificLimitApp() bool {
	return r.LimitApp != "" && r.LimitApp != "default" && r.LimitApp != "other"
}
