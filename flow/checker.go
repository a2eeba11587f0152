package flow

import (
	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/statnode"
)

// Checker resolves the statistic node a Rule's threshold is evaluated
// against, per the (limitApp, strategy, origin) table of SPEC_FULL.md
// §4.6. A nil return means "no applicable node — admit" (the rule does
// not apply to this invocation).
type Checker struct {
	Registry *statnode.Registry
}

func NewChecker(registry *statnode.Registry) *Checker {
	if registry == nil {
		registry = statnode.Default
	}
	return &Checker{Registry: registry}
}

// SelectNode implements the table. specificApps is the set of limitApp
// values other rules on this same resource name specifically (this is
// what "other" is defined relative to).
func (c *Checker) SelectNode(e *base.Entry, rule *Rule, specificApps map[string]struct{}) base.Node {
	origin := e.Context().Origin()

	switch rule.LimitApp {
	case "", "default":
		// always matches
	case "other":
		_, isSpecific := specificApps[origin]
		if origin == "" || origin == "default" || isSpecific {
			return nil
		}
	default:
		if origin != rule.LimitApp {
			return nil
		}
	}

	switch rule.Strategy {
	case StrategyDirect:
		return c.directNode(e, rule)
	case StrategyRelate:
		if cn, ok := c.Registry.ClusterNodeIfExists(rule.RefResource); ok {
			return cn
		}
		return nil
	case StrategyChain:
		if e.Context().Name() != rule.RefResource {
			return nil
		}
		return e.CurNode()
	default:
		return nil
	}
}

func (c *Checker) directNode(e *base.Entry, rule *Rule) base.Node {
	if rule.LimitApp == "" || rule.LimitApp == "default" {
		return e.ClusterNode()
	}
	// specific app, or "other": both read the per-origin StatisticNode
	// ClusterBuilderSlot assigned when origin is set and not "default".
	if e.OriginNode() != nil {
		return e.OriginNode()
	}
	return e.ClusterNode()
}

// SpecificApps scans rules for the same resource and returns the set of
// limitApp values that name a specific origin (neither "default" nor
// "other"), which is what an "other" rule's matching is relative to.
func SpecificApps(rules []*Rule) map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range rules {
		if r.isSpecificLimitApp() {
			out[r.LimitApp] = struct{}{}
		}
	}
	return out
}
