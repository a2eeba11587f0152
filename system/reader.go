package system

// StatReader is the pluggable collaborator supplying the two metrics
// SystemSlot cannot read off the node tree: OS load average and process
// CPU usage. Real OS sampling is outside the core (SPEC_FULL.md §4.11);
// ZeroReader is the default stub and always admits on those two metric
// types.
type StatReader interface {
	LoadAvg() float64
	CpuUsage() float64
}

// ZeroReader is the default StatReader: constant zero, so MetricLoad and
// MetricCpuUsage rules never trigger unless a real reader is wired in.
type ZeroReader struct{}

func (ZeroReader) LoadAvg() float64  { return 0 }
func (ZeroReader) CpuUsage() float64 { return 0 }

var _ StatReader = ZeroReader{}
