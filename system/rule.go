// Package system implements the process-wide load-shedding checker of
// SPEC_FULL.md §4.11: SystemRule, its Manager, and SystemSlot, which reads
// the root EntranceNode's aggregate metrics (plus a pluggable
// StatReader for OS-level load/CPU) and rejects new entries once any
// configured rule's metric exceeds its threshold.
package system

import "github.com/pkg/errors"

// MetricType selects which aggregate SystemSlot compares a rule's
// TriggerCount against.
type MetricType uint8

const (
	MetricLoad MetricType = iota
	MetricAvgRT
	MetricConcurrency
	MetricInboundQPS
	MetricCpuUsage
)

// Strategy selects the comparison SystemSlot runs for a rule.
// NoAdaptive is a bare threshold compare; BBR additionally admits only
// while avgRt*(curThread+1) <= maxAllowedQps*minRt (SPEC_FULL.md §4.11).
type Strategy uint8

const (
	StrategyNoAdaptive Strategy = iota
	StrategyBBR
)

// Rule is the SystemRule of SPEC_FULL.md §3/§4.11: process-wide, not tied
// to any one resource.
type Rule struct {
	ID           string
	MetricType   MetricType
	TriggerCount float64
	Strategy     Strategy
}

func (r *Rule) validate() error {
	if r.TriggerCount < 0 {
		return errors.New("system: triggerCount must not be negative")
	}
	return nil
}
