// Package statnode implements the node tree of SPEC_FULL.md §3/§4.2:
// StatisticNode's counter API, the ClusterNode/DefaultNode/EntranceNode
// hierarchy built from thread-local Context entries, and the
// NodeSelector/ClusterBuilder/Log/Statistic slots that assemble and feed
// it on every invocation.
package statnode

import (
	"sync/atomic"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/config"
	"github.com/flowgate-io/flowcore/flowclock"
	"github.com/flowgate-io/flowcore/stat"
)

// StatisticNode holds the two ArrayMetric instances (1s and 60s) and the
// live thread counter every node kind shares, per SPEC_FULL.md §2/§4.2.
type StatisticNode struct {
	second *stat.SlidingWindowMetric
	minute *stat.SlidingWindowMetric
	curGo  int64 // atomic: current concurrent thread/goroutine count
	cfg    config.StatisticConfig
	clock  flowclock.Clock
}

// NewStatisticNode builds a node with the given statistic dimensions.
func NewStatisticNode(sc config.StatisticConfig, clock flowclock.Clock) *StatisticNode {
	if clock == nil {
		clock = flowclock.System
	}
	return &StatisticNode{
		second: stat.NewSlidingWindowMetric(sc.SampleCountSecond, sc.IntervalMsSecond, clock),
		minute: stat.NewSlidingWindowMetric(sc.SampleCountMinute, sc.IntervalMsMinute, clock),
		cfg:    sc,
		clock:  clock,
	}
}

func (n *StatisticNode) AddPassRequest(count int64) {
	n.second.AddPass(count)
	n.minute.AddPass(count)
}

func (n *StatisticNode) AddRtAndSuccess(rt int64, count int64) {
	n.second.AddRt(rt * count)
	n.second.AddSuccess(count)
	n.second.UpdateMinRt(rt)
	n.minute.AddRt(rt * count)
	n.minute.AddSuccess(count)
	n.minute.UpdateMinRt(rt)
}

func (n *StatisticNode) IncreaseBlockQps(count int64) {
	n.second.AddBlock(count)
	n.minute.AddBlock(count)
}

func (n *StatisticNode) IncreaseExceptionQps(count int64) {
	n.second.AddException(count)
	n.minute.AddException(count)
}

func (n *StatisticNode) IncreaseThreadNum() { atomic.AddInt64(&n.curGo, 1) }
func (n *StatisticNode) DecreaseThreadNum() {
	for {
		cur := atomic.LoadInt64(&n.curGo)
		if cur <= 0 {
			return
		}
		if atomic.CompareAndSwapInt64(&n.curGo, cur, cur-1) {
			return
		}
	}
}

func (n *StatisticNode) AddOccupiedPass(count int64) { n.second.AddOccupiedPass(count) }

// AddWaitingRequest records a priority-admitted call against the future
// bucket it was scheduled into (SPEC_FULL.md §4.5 DefaultController). The
// bucket for futureTimeMs is addressed directly through the LeapArray so
// the write lands in the correct, not-yet-current, slot.
func (n *StatisticNode) AddWaitingRequest(futureTimeMs int64, count int64) {
	n.second.LeapArray().BucketAt(futureTimeMs).AddPass(count)
}

func (n *StatisticNode) CurThreadNum() int64 { return atomic.LoadInt64(&n.curGo) }

func (n *StatisticNode) PassQps() float64 { return n.second.PerSecond(stat.FieldPass) }

// PreviousPassQps is the pass rate of the single most recently
// fully-closed 1s bucket, not the live aggregate PassQps reads — it reads
// 0 rather than a stale rate once that bucket has seen no traffic, which
// is what makes the first call after a quiet period diverge from a call
// made mid-burst (SPEC_FULL.md §9).
func (n *StatisticNode) PreviousPassQps() float64 {
	return n.second.PreviousWindowQps(n.clock.NowMillis())
}

func (n *StatisticNode) BlockQps() float64        { return n.second.PerSecond(stat.FieldBlock) }
func (n *StatisticNode) ExceptionQps() float64    { return n.second.PerSecond(stat.FieldException) }
func (n *StatisticNode) OccupiedPassQps() float64 { return n.second.PerSecond(stat.FieldOccupiedPass) }

// SuccessQps and AvgRt read from the 1s metric, matching ExceptionQps and
// TotalQps: only the totals the teacher scopes to the 60s window
// (MaxSuccessQps, ExceptionCount) stay minute-scoped. Reading a
// 1s-windowed numerator against a 60s-windowed denominator here would
// mistune circuitbreaker.checkExceptionRatio by roughly 60x and make
// checkAvgRt/BBR's load check lag a slow-RT episode by up to a minute.
func (n *StatisticNode) SuccessQps() float64 { return n.second.PerSecond(stat.FieldSuccess) }
func (n *StatisticNode) MaxSuccessQps() float64 {
	return float64(n.minute.MaxSuccess()) / (float64(n.minute.LeapArray().BucketLenMs()) / 1000.0)
}

func (n *StatisticNode) TotalQps() float64 {
	return n.PassQps() + n.BlockQps()
}

func (n *StatisticNode) AvgRt() float64 {
	success := n.second.Sum(stat.FieldSuccess)
	if success == 0 {
		return 0
	}
	return float64(n.second.Sum(stat.FieldRt)) / float64(success)
}

func (n *StatisticNode) MinRt() float64 { return float64(n.second.MinRt()) }

// ExceptionCount is the total exception count over the 60s window, used by
// the circuitbreaker package's GradeExceptionCount grade. Exposed as an
// optional extra (not part of base.Node) via type assertion, since only
// DegradeSlot needs raw 60s totals rather than a rate.
func (n *StatisticNode) ExceptionCount() int64 { return n.minute.Sum(stat.FieldException) }

func (n *StatisticNode) TryOccupyNext(now int64, acquireCount int64, threshold float64) int64 {
	return tryOccupyNext(n.second, now, acquireCount, threshold)
}

func (n *StatisticNode) GetWindowPass(now int64) int64 { return n.second.GetWindowPass(now) }

func (n *StatisticNode) Reset() {
	n.second = stat.NewSlidingWindowMetric(n.cfg.SampleCountSecond, n.cfg.IntervalMsSecond, n.clock)
	n.minute = stat.NewSlidingWindowMetric(n.cfg.SampleCountMinute, n.cfg.IntervalMsMinute, n.clock)
	atomic.StoreInt64(&n.curGo, 0)
}

var _ base.Node = (*StatisticNode)(nil)
