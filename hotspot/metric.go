package hotspot

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/maypok86/otter"

	"github.com/flowgate-io/flowcore/flowclock"
)

// LRU capacity defaults of SPEC_FULL.md §4.9: older keys are evicted
// silently under pressure, their statistics lost.
const (
	defaultParamBucketCapacity = 200
	defaultThreadMapCapacity   = 4000
)

type paramCounter struct {
	passed  int64
	blocked int64
}

// hotBucket is one time slice of a HotParameterLeapArray: a bounded,
// otter-backed LRU of per-value counters (SPEC_FULL.md §1.2 domain stack,
// grounded on Resinat-Resin's internal/node/latency.go). The mutex guards
// only the get-or-create structural step; counter increments are atomic.
type hotBucket struct {
	mu       sync.Mutex
	capacity int
	cache    otter.Cache[string, *paramCounter]
}

func newHotBucket(capacity int) *hotBucket {
	return &hotBucket{capacity: capacity, cache: buildParamCache(capacity)}
}

func buildParamCache(capacity int) otter.Cache[string, *paramCounter] {
	cache, err := otter.MustBuilder[string, *paramCounter](capacity).
		Cost(func(_ string, _ *paramCounter) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("hotspot: failed to build parameter LRU cache: " + err.Error())
	}
	return cache
}

func (b *hotBucket) counter(key string) *paramCounter {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cache.Get(key)
	if !ok {
		c = &paramCounter{}
		b.cache.Set(key, c)
	}
	return c
}

func (b *hotBucket) addPass(key string, n int64)  { atomic.AddInt64(&b.counter(key).passed, n) }
func (b *hotBucket) addBlock(key string, n int64) { atomic.AddInt64(&b.counter(key).blocked, n) }

func (b *hotBucket) get(key string) (passed, blocked int64, ok bool) {
	c, found := b.cache.Get(key)
	if !found {
		return 0, 0, false
	}
	return atomic.LoadInt64(&c.passed), atomic.LoadInt64(&c.blocked), true
}

// reset replaces the underlying cache wholesale; cheaper than evicting
// every key individually and avoids depending on an unverified Clear().
func (b *hotBucket) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = buildParamCache(b.capacity)
}

func (b *hotBucket) each(fn func(key string, passed int64)) {
	b.cache.Range(func(key string, c *paramCounter) bool {
		fn(key, atomic.LoadInt64(&c.passed))
		return true
	})
}

type hotWindowWrap struct {
	windowStart int64 // atomic
	bucket      *hotBucket
}

func (w *hotWindowWrap) WindowStart() int64 { return atomic.LoadInt64(&w.windowStart) }

// HotParameterLeapArray is the per-(resource,paramIndex) windowed counter
// of SPEC_FULL.md §4.9: a LeapArray whose buckets are bounded-capacity LRU
// maps instead of a flat MetricBucket, mirroring stat.LeapArray's
// lazy-CAS rotation (see stat/leap_array.go) at per-value granularity.
type HotParameterLeapArray struct {
	sampleCount    uint32
	intervalMs     uint32
	bucketLengthMs uint32
	capacity       int
	array          []*hotWindowWrap
	clock          flowclock.Clock
}

func NewHotParameterLeapArray(sampleCount, intervalMs uint32, capacity int, clock flowclock.Clock) *HotParameterLeapArray {
	if clock == nil {
		clock = flowclock.System
	}
	bucketLen := intervalMs / sampleCount
	arr := make([]*hotWindowWrap, sampleCount)
	for i := range arr {
		arr[i] = &hotWindowWrap{bucket: newHotBucket(capacity)}
	}
	return &HotParameterLeapArray{
		sampleCount:    sampleCount,
		intervalMs:     intervalMs,
		bucketLengthMs: bucketLen,
		capacity:       capacity,
		array:          arr,
		clock:          clock,
	}
}

func (la *HotParameterLeapArray) timeIdx(t int64) int {
	return int((t / int64(la.bucketLengthMs)) % int64(la.sampleCount))
}

func (la *HotParameterLeapArray) alignedStart(t int64) int64 {
	return t - (t % int64(la.bucketLengthMs))
}

func (la *HotParameterLeapArray) currentBucket() *hotBucket {
	now := la.clock.NowMillis()
	idx := la.timeIdx(now)
	w := la.array[idx]
	expected := la.alignedStart(now)

	for {
		cur := atomic.LoadInt64(&w.windowStart)
		switch {
		case cur == expected:
			return w.bucket
		case cur < expected:
			if atomic.CompareAndSwapInt64(&w.windowStart, cur, expected) {
				w.bucket.reset()
				return w.bucket
			}
			runtime.Gosched()
		default:
			return newHotBucket(la.capacity)
		}
	}
}

func (la *HotParameterLeapArray) AddPass(key string, n int64)  { la.currentBucket().addPass(key, n) }
func (la *HotParameterLeapArray) AddBlock(key string, n int64) { la.currentBucket().addBlock(key, n) }

// PassSum sums key's passed count across every bucket still valid as of now.
func (la *HotParameterLeapArray) PassSum(key string) int64 {
	now := la.clock.NowMillis()
	minStart := now - int64(la.intervalMs)
	var total int64
	for _, w := range la.array {
		ws := w.WindowStart()
		if ws > minStart && ws <= now {
			if p, _, ok := w.bucket.get(key); ok {
				total += p
			}
		}
	}
	return total
}

// validWindowMs mirrors stat.SlidingWindowMetric.validWindowMs (see
// stat/metric.go) so a value's rate doesn't look artificially high in the
// instant its bucket is first touched this window.
func (la *HotParameterLeapArray) validWindowMs(now int64) int64 {
	idx := la.timeIdx(now)
	w := la.array[idx]
	start := la.alignedStart(now)
	if w.WindowStart() != start {
		return int64(la.intervalMs)
	}
	elapsed := now - start
	if elapsed >= int64(la.bucketLengthMs) {
		return int64(la.intervalMs)
	}
	return int64(la.intervalMs) - int64(la.bucketLengthMs) + elapsed
}

// PassQps converts PassSum into a per-second rate, the qps-grade curCount
// of SPEC_FULL.md §4.9.
func (la *HotParameterLeapArray) PassQps(key string) float64 {
	now := la.clock.NowMillis()
	sum := la.PassSum(key)
	vw := la.validWindowMs(now)
	if vw <= 0 {
		return 0
	}
	return float64(sum) / (float64(vw) / 1000.0)
}

// ValueCount is one entry of a TopValues scan.
type ValueCount struct {
	Key   string
	Count int64
}

// TopValues merges per-bucket passed counters across every valid bucket
// (sum) and returns the k highest, per SPEC_FULL.md §4.9's getTopValues.
func (la *HotParameterLeapArray) TopValues(k int) []ValueCount {
	now := la.clock.NowMillis()
	minStart := now - int64(la.intervalMs)
	totals := make(map[string]int64)
	for _, w := range la.array {
		ws := w.WindowStart()
		if ws <= minStart || ws > now {
			continue
		}
		w.bucket.each(func(key string, passed int64) {
			totals[key] += passed
		})
	}
	out := make([]ValueCount, 0, len(totals))
	for key, c := range totals {
		out = append(out, ValueCount{Key: key, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// threadCounterMap is the threadCount LRU of SPEC_FULL.md §4.9: current
// in-flight call count per argument value, for GradeThread rules.
type threadCounterMap struct {
	mu       sync.Mutex
	capacity int
	cache    otter.Cache[string, *int64]
}

func newThreadCounterMap(capacity int) *threadCounterMap {
	return &threadCounterMap{capacity: capacity, cache: buildThreadCache(capacity)}
}

func buildThreadCache(capacity int) otter.Cache[string, *int64] {
	cache, err := otter.MustBuilder[string, *int64](capacity).
		Cost(func(_ string, _ *int64) uint32 { return 1 }).
		Build()
	if err != nil {
		panic("hotspot: failed to build thread-count LRU cache: " + err.Error())
	}
	return cache
}

func (m *threadCounterMap) increase(key string) int64 {
	m.mu.Lock()
	c, ok := m.cache.Get(key)
	if !ok {
		c = new(int64)
		m.cache.Set(key, c)
	}
	m.mu.Unlock()
	return atomic.AddInt64(c, 1)
}

func (m *threadCounterMap) decrease(key string) {
	c, ok := m.cache.Get(key)
	if !ok {
		return
	}
	atomic.AddInt64(c, -1)
}

func (m *threadCounterMap) current(key string) int64 {
	c, ok := m.cache.Get(key)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(c)
}

// ParamsMetric is the Per-(resource, paramIndex) state of SPEC_FULL.md
// §4.9: a qps-grade windowed counter plus a thread-grade live counter.
type ParamsMetric struct {
	qps    *HotParameterLeapArray
	thread *threadCounterMap
}

func newParamsMetric(sampleCount, intervalMs uint32, clock flowclock.Clock) *ParamsMetric {
	return &ParamsMetric{
		qps:    NewHotParameterLeapArray(sampleCount, intervalMs, defaultParamBucketCapacity, clock),
		thread: newThreadCounterMap(defaultThreadMapCapacity),
	}
}

// CurCount reads the grade-appropriate live count for key, without
// mutating it.
func (m *ParamsMetric) CurCount(grade Grade, key string) float64 {
	if grade == GradeThread {
		return float64(m.thread.current(key))
	}
	return m.qps.PassQps(key)
}
