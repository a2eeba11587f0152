// Package flowcore is the root facade SPEC_FULL.md §6 describes:
// entry/entryWithPriority/Entry.exit/Entry.setError, ContextUtil.enter/
// .exit, and the rule-manager LoadRules/GetRules surface, wired onto one
// process-wide SlotChain assembled in the admission order of SPEC_FULL.md
// §2: NodeSelector/ClusterBuilder (prepare) -> Log/Statistic (record) ->
// Authority -> System -> ParamFlow -> Flow -> Degrade (decide).
package flowcore

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/flowgate-io/flowcore/authority"
	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/circuitbreaker"
	"github.com/flowgate-io/flowcore/config"
	"github.com/flowgate-io/flowcore/flow"
	"github.com/flowgate-io/flowcore/flowclock"
	"github.com/flowgate-io/flowcore/flowlog"
	"github.com/flowgate-io/flowcore/hotspot"
	"github.com/flowgate-io/flowcore/metriclog"
	"github.com/flowgate-io/flowcore/statnode"
	"github.com/flowgate-io/flowcore/system"
)

var (
	mu                    sync.RWMutex
	chain                 *base.SlotChain
	registry              *statnode.Registry
	circuitBreakerManager *circuitbreaker.Manager
	metricWriter          *metriclog.Writer

	initOnce sync.Once
)

// Init builds the process-wide SlotChain and its supporting registries
// from cfg. Safe to call once at startup; a second call is a no-op (use
// the package's rule-manager LoadRules functions to change live rules
// instead of re-running Init).
func Init(cfg config.GlobalConfig) error {
	var initErr error
	initOnce.Do(func() { initErr = doInit(cfg) })
	return initErr
}

// ensureInit lazily runs Init with config.Default() the first time Entry
// is called without an explicit Init, so the package is usable without
// ceremony in tests and small programs.
func ensureInit() {
	initOnce.Do(func() {
		_ = doInit(config.Default())
	})
}

func doInit(cfg config.GlobalConfig) error {
	if err := flowlog.Init(flowlog.FileOptions{Filename: filepath.Join(cfg.LogDir, "flowcore.log")}); err != nil {
		return err
	}

	statnode.Bootstrap(cfg.Statistic, flowclock.System)
	reg := statnode.Default

	cbManager := circuitbreaker.NewManager(func(resource string) base.Node {
		return reg.ClusterNodeFor(resource)
	})
	hotspotSlot := hotspot.NewSlot(hotspot.Default, flowclock.System, cfg.Statistic.SampleCountSecond, cfg.Statistic.IntervalMsSecond)
	flowChecker := flow.NewChecker(reg)

	c := base.NewSlotChain(flowclock.System)
	c.AddStatPrepareSlot(&statnode.NodeSelectorSlot{Registry: reg})
	c.AddStatPrepareSlot(&statnode.ClusterBuilderSlot{Registry: reg})
	c.AddStatSlot(&statnode.LogSlot{})
	c.AddStatSlot(&statnode.StatisticSlot{})
	c.AddStatSlot(hotspot.NewStatSlot(hotspotSlot))
	c.AddRuleCheckSlot(authority.NewSlot(authority.Default))
	c.AddRuleCheckSlot(system.NewSlot(system.Default, reg, nil))
	c.AddRuleCheckSlot(hotspotSlot)
	c.AddRuleCheckSlot(flow.NewSlot(flow.Default, flowChecker, flowclock.System))
	c.AddRuleCheckSlot(circuitbreaker.NewSlot(cbManager))

	w := metriclog.NewWriter(cfg.MetricLog)
	if cfg.Statistic.StaleNodeAfterSec > 0 {
		staleMs := int64(cfg.Statistic.StaleNodeAfterSec) * 1000
		w.EnableNodeGC(func() int { return reg.GC(staleMs) }, time.Minute)
	}
	if err := w.Start(); err != nil {
		flowlog.Errorf("flowcore: starting metric log writer: %v", err)
	}

	mu.Lock()
	chain = c
	registry = reg
	circuitBreakerManager = cbManager
	metricWriter = w
	mu.Unlock()
	return nil
}

// LoadCircuitBreakerRules replaces the live DegradeRule set. Unlike the
// other rule kinds (each holding its own process-wide Default manager),
// circuit breakers are bound to this package's registry-resolved
// Manager, since NewBreaker needs a resource's ClusterNode to read
// signals from.
func LoadCircuitBreakerRules(rules []*circuitbreaker.Rule) error {
	ensureInit()
	mu.RLock()
	m := circuitBreakerManager
	mu.RUnlock()
	return m.LoadRules(rules)
}

// RegisterMetricLogSource adds resource to the metric log writer's
// per-second sample set (a no-op if the writer is disabled by config).
func RegisterMetricLogSource(resource string) {
	ensureInit()
	mu.RLock()
	w, reg := metricWriter, registry
	mu.RUnlock()
	if w == nil || reg == nil {
		return
	}
	w.Register(resource, reg.ClusterNodeFor(resource))
}

type entryOptions struct {
	entryType   base.EntryType
	batchCount  int64
	args        []interface{}
	contextName string
	origin      string
	prioritized bool
	goContext   context.Context
}

func defaultEntryOptions() entryOptions {
	return entryOptions{entryType: base.EntryTypeIn, batchCount: 1, contextName: "sentinel_go_default_context"}
}

// EntryOption configures one Entry/EntryWithPriority acquisition.
type EntryOption func(*entryOptions)

func WithEntryType(t base.EntryType) EntryOption {
	return func(o *entryOptions) { o.entryType = t }
}
func WithBatchCount(count int64) EntryOption {
	return func(o *entryOptions) { o.batchCount = count }
}
func WithArgs(args ...interface{}) EntryOption {
	return func(o *entryOptions) { o.args = args }
}
func WithContextName(name string) EntryOption {
	return func(o *entryOptions) { o.contextName = name }
}
func WithOrigin(origin string) EntryOption {
	return func(o *entryOptions) { o.origin = origin }
}

// WithGoContext supplies a cancellation signal for this acquisition:
// cancelling ctx while flow's Controller is sleeping on admission is
// treated as admit-and-return, except RateLimiterController which
// rejects instead (SPEC_FULL.md §5, spec.md §9).
func WithGoContext(ctx context.Context) EntryOption {
	return func(o *entryOptions) { o.goContext = ctx }
}

// Entry attempts to acquire resource, running the full admission chain
// (SPEC_FULL.md §2/§6's "entry"). The returned *base.Entry is nil iff the
// TokenResult is blocked; callers must call Entry.Exit exactly once for
// every non-blocked acquisition.
func Entry(resource string, opts ...EntryOption) (*base.Entry, *base.TokenResult) {
	ensureInit()
	o := defaultEntryOptions()
	for _, fn := range opts {
		fn(&o)
	}

	goCtx := (base.ContextUtil{}).Enter(o.contextName, o.origin)
	res := base.GetResource(resource, o.entryType)

	mu.RLock()
	c := chain
	mu.RUnlock()

	if o.goContext != nil {
		if o.prioritized {
			return c.DoEntryWithPriorityCtx(o.goContext, res, goCtx, o.batchCount, o.args)
		}
		return c.DoEntryCtx(o.goContext, res, goCtx, o.batchCount, o.args)
	}
	if o.prioritized {
		return c.DoEntryWithPriority(res, goCtx, o.batchCount, o.args)
	}
	return c.DoEntry(res, goCtx, o.batchCount, o.args)
}

// EntryWithPriority is Entry with the prioritized (entryWithPriority)
// acquisition flag set, per SPEC_FULL.md §4.5/§6: it permits
// DefaultController's borrow-future-capacity branch and the cluster
// SHOULD_WAIT path to engage.
func EntryWithPriority(resource string, opts ...EntryOption) (*base.Entry, *base.TokenResult) {
	opts = append(opts, func(o *entryOptions) { o.prioritized = true })
	return Entry(resource, opts...)
}
