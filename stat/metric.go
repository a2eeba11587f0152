package stat

import (
	"github.com/flowgate-io/flowcore/flowclock"
)

// SlidingWindowMetric is the ArrayMetric of SPEC_FULL.md §2: a LeapArray of
// MetricBucket plus the aggregations (sums, per-second rates, top-k-less
// max scans) every Node reads from.
type SlidingWindowMetric struct {
	la *LeapArray
}

func NewSlidingWindowMetric(sampleCount, intervalMs uint32, clock flowclock.Clock) *SlidingWindowMetric {
	return &SlidingWindowMetric{la: NewLeapArray(sampleCount, intervalMs, clock)}
}

func (m *SlidingWindowMetric) LeapArray() *LeapArray { return m.la }

func (m *SlidingWindowMetric) AddPass(n int64)         { m.la.CurrentBucket().AddPass(n) }
func (m *SlidingWindowMetric) AddBlock(n int64)        { m.la.CurrentBucket().AddBlock(n) }
func (m *SlidingWindowMetric) AddException(n int64)    { m.la.CurrentBucket().AddException(n) }
func (m *SlidingWindowMetric) AddSuccess(n int64)      { m.la.CurrentBucket().AddSuccess(n) }
func (m *SlidingWindowMetric) AddRt(rt int64)          { m.la.CurrentBucket().AddRt(rt) }
func (m *SlidingWindowMetric) AddOccupiedPass(n int64) { m.la.CurrentBucket().AddOccupiedPass(n) }
func (m *SlidingWindowMetric) UpdateMinRt(rt int64)    { m.la.CurrentBucket().UpdateMinRt(rt) }

// Sum aggregates field across every valid bucket as of now.
func (m *SlidingWindowMetric) Sum(f BucketField) int64 {
	now := m.la.clock.NowMillis()
	var total int64
	for _, w := range m.la.ValidWraps(now) {
		total += w.value.get(f)
	}
	return total
}

func (m *SlidingWindowMetric) MinRt() int64 {
	now := m.la.clock.NowMillis()
	var min int64 = -1
	for _, w := range m.la.ValidWraps(now) {
		rt := w.value.MinRt()
		if rt == 0 {
			continue
		}
		if min < 0 || rt < min {
			min = rt
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

// MaxSuccess returns the maximum success count observed in a single valid
// bucket, per SPEC_FULL.md §4.1.
func (m *SlidingWindowMetric) MaxSuccess() int64 {
	now := m.la.clock.NowMillis()
	var max int64
	for _, w := range m.la.ValidWraps(now) {
		if s := w.value.Success(); s > max {
			max = s
		}
	}
	return max
}

// validWindowMs is intervalMs in steady state; transiently (right after a
// bucket rolls) it is intervalMs - bucketLengthMs, matching upstream's
// treatment of the just-rolled bucket as not yet fully "in window".
func (m *SlidingWindowMetric) validWindowMs(now int64) int64 {
	la := m.la
	idx := la.timeIdx(now)
	w := la.array[idx]
	start := la.alignedStart(now)
	if w.WindowStart() != start {
		// the current bucket hasn't been touched yet this window; still
		// count the full interval, as upstream does for sum/qps purposes.
		return int64(la.intervalMs)
	}
	elapsedInBucket := now - start
	if elapsedInBucket >= int64(la.bucketLengthMs) {
		return int64(la.intervalMs)
	}
	return int64(la.intervalMs) - int64(la.bucketLengthMs) + elapsedInBucket
}

// PerSecond converts a Sum() over the valid window into a per-second rate.
func (m *SlidingWindowMetric) PerSecond(f BucketField) float64 {
	now := m.la.clock.NowMillis()
	total := m.Sum(f)
	vw := m.validWindowMs(now)
	if vw <= 0 {
		return 0
	}
	return float64(total) / (float64(vw) / 1000.0)
}

// GetWindowPass exposes LeapArray.GetWindowPass for the "borrow future
// capacity" algorithm (SPEC_FULL.md §4.5 DefaultController.tryOccupyNext).
func (m *SlidingWindowMetric) GetWindowPass(t int64) int64 {
	return m.la.GetWindowPass(t)
}

// PreviousWindowQps converts LeapArray.PreviousWindowPass into a
// per-second rate, used by WarmUpController's token-refill cadence
// (SPEC_FULL.md §9 "WarmUp reads previousPassQps").
func (m *SlidingWindowMetric) PreviousWindowQps(now int64) float64 {
	return float64(m.la.PreviousWindowPass(now)) / (float64(m.la.BucketLenMs()) / 1000.0)
}
