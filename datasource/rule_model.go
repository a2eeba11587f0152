package datasource

import (
	"strconv"

	satoriuuid "github.com/satori/go.uuid"

	"github.com/flowgate-io/flowcore/circuitbreaker"
	"github.com/flowgate-io/flowcore/flow"
	"github.com/flowgate-io/flowcore/hotspot"
	"github.com/flowgate-io/flowcore/system"
)

// The Legacy* structs below are the wire shapes a config center actually
// pushes (grade/count/limitApp-style field names, numeric enums, uint64
// IDs) — the same shapes the teacher's ACM integration parsed. Each
// ToRule method translates one into this module's own Rule type; id
// synthesis (when the legacy payload carries none) uses satori/go.uuid,
// the teacher's own ID-generation dependency.

func synthesizeID(legacy uint64) string {
	if legacy != 0 {
		return strconv.FormatUint(legacy, 10)
	}
	return satoriuuid.NewV4().String()
}

// LegacyFlowRule is the wire shape of a pushed FlowRule.
type LegacyFlowRule struct {
	ID                uint64  `json:"id,omitempty"`
	Resource          string  `json:"resource"`
	LimitApp          string  `json:"limitApp"`
	Grade             uint8   `json:"grade"`
	Count             float64 `json:"count"`
	Strategy          uint8   `json:"strategy"`
	ControlBehavior   uint8   `json:"controlBehavior"`
	RefResource       string  `json:"refResource,omitempty"`
	WarmUpPeriodSec   int     `json:"warmUpPeriodSec"`
	MaxQueueingTimeMs int64   `json:"maxQueueingTimeMs"`
	ClusterMode       bool    `json:"clusterMode"`
	ClusterFlowId     uint64  `json:"clusterFlowId,omitempty"`
}

func (lr *LegacyFlowRule) ToRule() *flow.Rule {
	return &flow.Rule{
		ID:              synthesizeID(lr.ID),
		Resource:        lr.Resource,
		LimitApp:        lr.LimitApp,
		Grade:           flow.Grade(lr.Grade),
		Count:           lr.Count,
		Strategy:        flow.Strategy(lr.Strategy),
		ControlBehavior: flow.ControlBehavior(lr.ControlBehavior),
		RefResource:     lr.RefResource,
		WarmUpPeriodSec: lr.WarmUpPeriodSec,
		MaxQueueingMs:   lr.MaxQueueingTimeMs,
		ClusterMode:     lr.ClusterMode,
		ClusterFlowId:   lr.ClusterFlowId,
	}
}

// LegacySystemRule is the wire shape of a pushed SystemRule: exactly one
// of these fields is meaningful per rule, matching the teacher's
// first-positive-wins resolution.
type LegacySystemRule struct {
	ID                uint64  `json:"id,omitempty"`
	HighestSystemLoad float64 `json:"highestSystemLoad,omitempty"`
	HighestCpuUsage   float64 `json:"highestCpuUsage,omitempty"`
	InboundQps        float64 `json:"qps,omitempty"`
	AvgRt             float64 `json:"avgRt,omitempty"`
	MaxConcurrency    float64 `json:"maxThread,omitempty"`
}

func (lr *LegacySystemRule) resolveTypeAndCount() (system.MetricType, float64) {
	if lr.AvgRt > 0 {
		return system.MetricAvgRT, lr.AvgRt
	}
	if lr.MaxConcurrency > 0 {
		return system.MetricConcurrency, lr.MaxConcurrency
	}
	if lr.InboundQps > 0 {
		return system.MetricInboundQPS, lr.InboundQps
	}
	if lr.HighestCpuUsage > 0 {
		return system.MetricCpuUsage, lr.HighestCpuUsage
	}
	return system.MetricLoad, lr.HighestSystemLoad
}

func (lr *LegacySystemRule) ToRule() *system.Rule {
	mt, count := lr.resolveTypeAndCount()
	strategy := system.StrategyNoAdaptive
	if mt == system.MetricLoad || mt == system.MetricCpuUsage {
		strategy = system.StrategyBBR
	}
	return &system.Rule{
		ID:           synthesizeID(lr.ID),
		MetricType:   mt,
		TriggerCount: count,
		Strategy:     strategy,
	}
}

// LegacyDegradeRule is the wire shape of a pushed DegradeRule. Strategy 0
// (slow-request-ratio in the upstream model) has no direct equivalent in
// this module's simpler three-grade Breaker, so it is folded into
// GradeAvgRt against the legacy RT bound — a deliberate simplification,
// recorded in DESIGN.md.
type LegacyDegradeRule struct {
	ID            uint64  `json:"id,omitempty"`
	Resource      string  `json:"resource"`
	Count         float64 `json:"count"`
	Strategy      uint32  `json:"grade"`
	TimeWindowSec uint32  `json:"timeWindow"`
	SlowRatio     float64 `json:"slowRatioThreshold"`
}

func (lr *LegacyDegradeRule) ToRule() *circuitbreaker.Rule {
	rule := &circuitbreaker.Rule{
		ID:            synthesizeID(lr.ID),
		Resource:      lr.Resource,
		TimeWindowSec: int(lr.TimeWindowSec),
	}
	switch lr.Strategy {
	case 0:
		rule.Grade = circuitbreaker.GradeAvgRt
		rule.Count = lr.Count
	case 1:
		rule.Grade = circuitbreaker.GradeExceptionRatio
		rule.Count = lr.Count
	case 2:
		rule.Grade = circuitbreaker.GradeExceptionCount
		rule.Count = lr.Count
	default:
		return nil
	}
	return rule
}

// LegacyParamFlowItem is one ExclusionItems entry in the wire format: a
// specific argument value (as its string form) paired with its own
// threshold, overriding the rule's blanket Count for that value alone.
type LegacyParamFlowItem struct {
	Value     string `json:"object"`
	Threshold int64  `json:"count"`
	ParamType string `json:"classType"`
}

// LegacyParamFlowRule is the wire shape of a pushed ParamFlowRule.
type LegacyParamFlowRule struct {
	ID                uint64                 `json:"id,omitempty"`
	Resource          string                 `json:"resource"`
	Grade             uint8                  `json:"grade"`
	Count             int64                  `json:"count"`
	ParamIndex        int                    `json:"paramIdx"`
	ControlBehavior   uint32                 `json:"controlBehavior"`
	MaxQueueingTimeMs int64                  `json:"maxQueueingTimeMs"`
	SpecificItems     []*LegacyParamFlowItem `json:"paramFlowItemList,omitempty"`
}

// legacyGradeToHotspot maps the upstream convention (0=concurrency/thread,
// 1=qps) onto this module's ordinals, which run the other way
// (GradeQps=0, GradeThread=1) — a plain lookup, not a cast.
func legacyGradeToHotspot(g uint8) hotspot.Grade {
	if g == 0 {
		return hotspot.GradeThread
	}
	return hotspot.GradeQps
}

func (lr *LegacyParamFlowRule) ToRule() *hotspot.Rule {
	cb := hotspot.BehaviorReject
	if lr.ControlBehavior == 2 {
		cb = hotspot.BehaviorRateLimit
	}

	var exclusions map[string]int64
	if len(lr.SpecificItems) > 0 {
		exclusions = make(map[string]int64, len(lr.SpecificItems))
		for _, item := range lr.SpecificItems {
			if item.Value == "" {
				continue
			}
			exclusions[item.Value] = item.Threshold
		}
	}

	return &hotspot.Rule{
		ID:              synthesizeID(lr.ID),
		Resource:        lr.Resource,
		ParamIndex:      lr.ParamIndex,
		Grade:           legacyGradeToHotspot(lr.Grade),
		Count:           lr.Count,
		ControlBehavior: cb,
		MaxQueueingMs:   lr.MaxQueueingTimeMs,
		ExclusionItems:  exclusions,
	}
}
