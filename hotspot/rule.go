// Package hotspot implements the hot-parameter admission checker of
// SPEC_FULL.md §4.9: ParamFlowRule, the per-(resource,paramIndex)
// ParamsMetric (a bounded-LRU windowed counter keyed by argument value),
// and ParamFlowSlot/StatSlot, the RuleCheckSlot/StatSlot pair that decide
// and record against it.
package hotspot

import "github.com/pkg/errors"

// Grade selects what curCount measures for a given argument value.
type Grade uint8

const (
	GradeQps Grade = iota
	GradeThread
)

// ControlBehavior selects how a rule reacts to a value being over
// threshold: BehaviorReject rejects outright (with the float-tail
// admission of SPEC_FULL.md §4.9); BehaviorRateLimit additionally queues
// the caller up to MaxQueueingMs before rejecting, mirroring
// flow.RateLimiterController's pacing.
type ControlBehavior uint8

const (
	BehaviorReject ControlBehavior = iota
	BehaviorRateLimit
)

// Rule is the ParamFlowRule of SPEC_FULL.md §3.
type Rule struct {
	ID              string
	Resource        string
	ParamIndex      int
	Grade           Grade
	Count           int64
	ControlBehavior ControlBehavior
	MaxQueueingMs   int64
	// ExclusionItems maps a specific argument value's canonical key (see
	// keyFor) to its own threshold, overriding Count for that value alone.
	ExclusionItems map[string]int64
}

func (r *Rule) validate() error {
	if r.Resource == "" {
		return errors.New("hotspot: resource must not be empty")
	}
	if r.ParamIndex < 0 {
		return errors.New("hotspot: paramIndex must be >= 0")
	}
	if r.Count < 0 {
		return errors.New("hotspot: count must not be negative")
	}
	return nil
}

// thresholdFor returns the rule's effective threshold for a given
// canonical value key: the value's own exclusion entry if present, else
// the rule's blanket Count.
func (r *Rule) thresholdFor(key string) int64 {
	if r.ExclusionItems != nil {
		if t, ok := r.ExclusionItems[key]; ok {
			return t
		}
	}
	return r.Count
}
