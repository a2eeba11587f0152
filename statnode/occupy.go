package statnode

import "github.com/flowgate-io/flowcore/stat"

// defaultOccupyTimeoutMs bounds how far into the future a priority call
// may borrow capacity before DefaultController gives up and rejects it
// outright (SPEC_FULL.md §4.5).
const defaultOccupyTimeoutMs = 500

// tryOccupyNext implements the "borrow future capacity" algorithm of
// SPEC_FULL.md §4.5: walk the 1s metric's buckets forward from now,
// looking for the earliest future bucket whose admission, net of
// already-borrowed capacity, would not breach threshold·intervalSec.
func tryOccupyNext(second *stat.SlidingWindowMetric, now int64, acquireCount int64, threshold float64) int64 {
	la := second.LeapArray()
	intervalSec := float64(la.IntervalMs()) / 1000.0
	bucketLenMs := int64(la.BucketLenMs())

	currentBorrow := second.Sum(stat.FieldOccupiedPass)
	if float64(currentBorrow) >= threshold*intervalSec {
		return defaultOccupyTimeoutMs
	}

	currentPass := second.Sum(stat.FieldPass)
	earliest := now - (now % bucketLenMs) - int64(la.IntervalMs()) + bucketLenMs

	for i := int64(0); i < int64(la.SampleCount()); i++ {
		waitMs := i*bucketLenMs + (bucketLenMs - now%bucketLenMs)
		if waitMs >= defaultOccupyTimeoutMs {
			break
		}
		windowPass := second.GetWindowPass(earliest)
		if float64(currentPass+currentBorrow+acquireCount-windowPass) <= threshold*intervalSec {
			return waitMs
		}
		earliest += bucketLenMs
		currentPass -= windowPass
	}
	return defaultOccupyTimeoutMs
}
