package stat

import (
	"runtime"
	"sync/atomic"

	"github.com/flowgate-io/flowcore/flowclock"
)

// WindowWrap is one ring slot: an atomically-replaceable windowStart
// guarding a fixed MetricBucket pointer. See SPEC_FULL.md §4.1 for the
// stale-detection table this implements.
type WindowWrap struct {
	windowStart int64 // atomic
	bucketLenMs int64
	value       *MetricBucket
}

func (w *WindowWrap) WindowStart() int64 { return atomic.LoadInt64(&w.windowStart) }

// LeapArray is a fixed-size ring of time-bucketed MetricBuckets covering
// intervalMs, per SPEC_FULL.md §2/§4.1.
type LeapArray struct {
	sampleCount    uint32
	intervalMs     uint32
	bucketLengthMs uint32
	array          []*WindowWrap
	clock          flowclock.Clock
}

func NewLeapArray(sampleCount, intervalMs uint32, clock flowclock.Clock) *LeapArray {
	if clock == nil {
		clock = flowclock.System
	}
	bucketLen := intervalMs / sampleCount
	arr := make([]*WindowWrap, sampleCount)
	for i := range arr {
		arr[i] = &WindowWrap{bucketLenMs: int64(bucketLen), value: newEmptyBucket()}
	}
	return &LeapArray{
		sampleCount:    sampleCount,
		intervalMs:     intervalMs,
		bucketLengthMs: bucketLen,
		array:          arr,
		clock:          clock,
	}
}

func (la *LeapArray) SampleCount() uint32 { return la.sampleCount }
func (la *LeapArray) IntervalMs() uint32  { return la.intervalMs }
func (la *LeapArray) BucketLenMs() uint32 { return la.bucketLengthMs }

func (la *LeapArray) timeIdx(t int64) int {
	return int((t / int64(la.bucketLengthMs)) % int64(la.sampleCount))
}

func (la *LeapArray) alignedStart(t int64) int64 {
	return t - (t % int64(la.bucketLengthMs))
}

// CurrentBucket returns the bucket for "now", lazily resetting it in
// place if stale. A single winner of the CAS race zeroes the counters;
// losers spin briefly (runtime.Gosched) until the winner publishes the
// new windowStart, then re-read.
func (la *LeapArray) CurrentBucket() *MetricBucket {
	return la.bucketForTime(la.clock.NowMillis())
}

func (la *LeapArray) bucketForTime(now int64) *MetricBucket {
	idx := la.timeIdx(now)
	w := la.array[idx]
	expected := la.alignedStart(now)

	for {
		cur := atomic.LoadInt64(&w.windowStart)
		switch {
		case cur == expected:
			return w.value
		case cur < expected:
			if atomic.CompareAndSwapInt64(&w.windowStart, cur, expected) {
				w.value.Reset()
				return w.value
			}
			runtime.Gosched()
		default:
			// Clock went backwards: return a detached, unpublished bucket
			// so we never mutate a slot that belongs to the future.
			return newEmptyBucket()
		}
	}
}

// BucketAt returns (lazily resetting, same as CurrentBucket) the bucket
// that covers time t, which may be in the future relative to the clock —
// used to record a priority-admitted call against the bucket it was
// scheduled into (SPEC_FULL.md §4.5 DefaultController.AddWaitingRequest).
func (la *LeapArray) BucketAt(t int64) *MetricBucket {
	return la.bucketForTime(t)
}

// windowWrapAt returns the ring slot for time t without resetting it,
// used by GetWindowPass to read a bucket's pass count by exact
// window-start match (spec.md §4.1 "Detail").
func (la *LeapArray) windowWrapAt(t int64) *WindowWrap {
	return la.array[la.timeIdx(t)]
}

// GetWindowPass returns the pass count of the bucket whose windowStart
// equals alignedStart(t), or 0 if that slot currently holds a different
// (stale or future) window.
func (la *LeapArray) GetWindowPass(t int64) int64 {
	w := la.windowWrapAt(t)
	if w.WindowStart() != la.alignedStart(t) {
		return 0
	}
	return w.value.Pass()
}

// PreviousWindowPass returns the pass count of the single bucket
// immediately preceding now's bucket — the most recently fully-closed
// window, not the live aggregate — or 0 if that slot is stale (no traffic
// recorded in it), which is what makes a first call after a quiet period
// read 0 rather than whatever the slot last held.
func (la *LeapArray) PreviousWindowPass(now int64) int64 {
	prevStart := la.alignedStart(now) - int64(la.bucketLengthMs)
	w := la.windowWrapAt(prevStart)
	if w.WindowStart() != prevStart {
		return 0
	}
	return w.value.Pass()
}

// ValidWraps returns all ring slots whose windowStart lies within
// [now-intervalMs, now], in arbitrary order — used by sum/top-k scans.
func (la *LeapArray) ValidWraps(now int64) []*WindowWrap {
	out := make([]*WindowWrap, 0, la.sampleCount)
	minStart := now - int64(la.intervalMs)
	for _, w := range la.array {
		ws := w.WindowStart()
		if ws > minStart && ws <= now {
			out = append(out, w)
		}
	}
	return out
}
