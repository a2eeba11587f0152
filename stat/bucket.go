package stat

import (
	"math"
	"sync/atomic"
)

// MetricBucket is one time-sliced set of atomic counters. All mutation is
// lock-free; Reset is only ever called by the single goroutine that won
// the CAS race to roll a stale bucket (see LeapArray.CurrentBucket), so
// it may zero fields without its own synchronization beyond that CAS.
type MetricBucket struct {
	pass         int64
	block        int64
	exception    int64
	success      int64
	rt           int64
	occupiedPass int64
	minRt        int64
}

func newEmptyBucket() *MetricBucket {
	return &MetricBucket{minRt: math.MaxInt64}
}

// Reset zeroes every counter in place, preserving the pointer identity so
// concurrent readers holding a stale reference observe either the old or
// the fully-reset values, never a torn mix of fields from two epochs (each
// field is independently atomic; callers aggregating must already expect
// bucket-granularity staleness per SPEC_FULL.md §5).
func (b *MetricBucket) Reset() {
	atomic.StoreInt64(&b.pass, 0)
	atomic.StoreInt64(&b.block, 0)
	atomic.StoreInt64(&b.exception, 0)
	atomic.StoreInt64(&b.success, 0)
	atomic.StoreInt64(&b.rt, 0)
	atomic.StoreInt64(&b.occupiedPass, 0)
	atomic.StoreInt64(&b.minRt, math.MaxInt64)
}

func (b *MetricBucket) AddPass(n int64)         { atomic.AddInt64(&b.pass, n) }
func (b *MetricBucket) AddBlock(n int64)        { atomic.AddInt64(&b.block, n) }
func (b *MetricBucket) AddException(n int64)    { atomic.AddInt64(&b.exception, n) }
func (b *MetricBucket) AddSuccess(n int64)      { atomic.AddInt64(&b.success, n) }
func (b *MetricBucket) AddRt(rt int64)          { atomic.AddInt64(&b.rt, rt) }
func (b *MetricBucket) AddOccupiedPass(n int64) { atomic.AddInt64(&b.occupiedPass, n) }

func (b *MetricBucket) UpdateMinRt(rt int64) {
	for {
		cur := atomic.LoadInt64(&b.minRt)
		if rt >= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&b.minRt, cur, rt) {
			return
		}
	}
}

func (b *MetricBucket) Pass() int64         { return atomic.LoadInt64(&b.pass) }
func (b *MetricBucket) Block() int64        { return atomic.LoadInt64(&b.block) }
func (b *MetricBucket) Exception() int64    { return atomic.LoadInt64(&b.exception) }
func (b *MetricBucket) Success() int64      { return atomic.LoadInt64(&b.success) }
func (b *MetricBucket) Rt() int64           { return atomic.LoadInt64(&b.rt) }
func (b *MetricBucket) OccupiedPass() int64 { return atomic.LoadInt64(&b.occupiedPass) }

func (b *MetricBucket) MinRt() int64 {
	v := atomic.LoadInt64(&b.minRt)
	if v == math.MaxInt64 {
		return 0
	}
	return v
}

// BucketField selects one counter for generic sum/max scans.
type BucketField int

const (
	FieldPass BucketField = iota
	FieldBlock
	FieldException
	FieldSuccess
	FieldRt
	FieldOccupiedPass
)

func (b *MetricBucket) get(f BucketField) int64 {
	switch f {
	case FieldPass:
		return b.Pass()
	case FieldBlock:
		return b.Block()
	case FieldException:
		return b.Exception()
	case FieldSuccess:
		return b.Success()
	case FieldRt:
		return b.Rt()
	case FieldOccupiedPass:
		return b.OccupiedPass()
	default:
		return 0
	}
}
