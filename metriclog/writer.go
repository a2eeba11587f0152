// Package metriclog is the optional per-second CSV metric log writer of
// SPEC_FULL.md §4.13: a single robfig/cron job that, once per second,
// appends one line per registered resource through a rotating
// lumberjack.Logger. It reads nodes; it never intercepts the admission
// chain, so a write failure can only be logged and swallowed (SPEC_FULL.md
// §7 "Resource degradation in plumbing").
package metriclog

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/flowgate-io/flowcore/base"
	"github.com/flowgate-io/flowcore/config"
	"github.com/flowgate-io/flowcore/flowlog"
)

// column order fixed by SPEC_FULL.md §4.13:
// timestamp|localDate|resource|pass|block|success|exception|rt|occupiedPass|concurrency
const header = "timestamp|localDate|resource|pass|block|success|exception|rt|occupiedPass|concurrency"

// Writer owns the registered (resource, node) pairs and the cron job that
// samples them once a second. The same *cron.Cron instance also drives the
// optional stale-node GC sweep (EnableNodeGC), matching SPEC_FULL.md §1.2's
// "single periodic scheduler" wiring rather than running a second
// goroutine/ticker alongside it.
type Writer struct {
	cfg config.MetricLogConfig

	mu      sync.RWMutex
	sources map[string]base.Node

	gcFunc     func() int
	gcInterval time.Duration

	out  *lumberjack.Logger
	cron *cron.Cron
	id   cron.EntryID
	gcID cron.EntryID
}

// NewWriter builds a Writer from cfg. Nothing is written, and no cron job
// runs, until Start is called; the per-second flush is itself a no-op if
// cfg.Enabled is false.
func NewWriter(cfg config.MetricLogConfig) *Writer {
	return &Writer{
		cfg:     cfg,
		sources: make(map[string]base.Node),
	}
}

// EnableNodeGC arms the stale-node GC sweep: gc is called every interval
// once Start runs, regardless of whether the CSV flush itself is enabled.
// Must be called before Start.
func (w *Writer) EnableNodeGC(gc func() int, interval time.Duration) {
	w.gcFunc = gc
	w.gcInterval = interval
}

// Register adds (or replaces) the node sampled for resource.
func (w *Writer) Register(resource string, node base.Node) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sources[resource] = node
}

// Unregister stops sampling resource.
func (w *Writer) Unregister(resource string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.sources, resource)
}

// Start begins the scheduled jobs this Writer owns: the per-second CSV
// flush (if cfg.Enabled) and the stale-node GC sweep (if EnableNodeGC was
// called). A no-op if neither is armed; safe to call more than once (a
// second call is a no-op once the cron job is already scheduled).
func (w *Writer) Start() error {
	if !w.cfg.Enabled && w.gcFunc == nil {
		return nil
	}
	if w.cron != nil {
		return nil
	}

	c := cron.New(cron.WithSeconds())

	if w.cfg.Enabled {
		path := logPath(w.cfg)
		writeHeader := false
		if _, err := os.Stat(path); os.IsNotExist(err) {
			writeHeader = true
		}

		w.out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    defaultInt(w.cfg.MaxSizeMB, 200),
			MaxBackups: defaultInt(w.cfg.MaxBackups, 7),
			MaxAge:     defaultInt(w.cfg.MaxAgeDays, 14),
		}
		if writeHeader {
			if _, err := w.out.Write([]byte(header + "\n")); err != nil {
				flowlog.Errorf("metriclog: writing header: %v", err)
			}
		}

		id, err := c.AddFunc("* * * * * *", w.tick)
		if err != nil {
			return errors.Wrap(err, "metriclog: scheduling per-second flush")
		}
		w.id = id
	}

	if w.gcFunc != nil {
		interval := w.gcInterval
		if interval <= 0 {
			interval = time.Minute
		}
		gcID, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
			if removed := w.gcFunc(); removed > 0 {
				flowlog.Infof("metriclog: GC swept %d stale node(s)", removed)
			}
		})
		if err != nil {
			return errors.Wrap(err, "metriclog: scheduling GC sweep")
		}
		w.gcID = gcID
	}

	w.cron = c
	w.cron.Start()
	return nil
}

// Stop halts the cron job (waiting for any in-flight tick) and closes the
// rotating file. A no-op if Start was never called or the writer is
// disabled.
func (w *Writer) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
	if w.out != nil {
		if err := w.out.Close(); err != nil {
			flowlog.Errorf("metriclog: closing log file: %v", err)
		}
	}
}

func (w *Writer) tick() {
	now := time.Now()
	ts := now.UnixMilli()
	localDate := now.Format("2006-01-02 15:04:05")

	w.mu.RLock()
	snapshot := make(map[string]base.Node, len(w.sources))
	for resource, node := range w.sources {
		snapshot[resource] = node
	}
	w.mu.RUnlock()

	for resource, node := range snapshot {
		line := fmt.Sprintf("%d|%s|%s|%.0f|%.0f|%.0f|%.0f|%.1f|%.0f|%d\n",
			ts, localDate, resource,
			node.PassQps(), node.BlockQps(), node.SuccessQps(), node.ExceptionQps(),
			node.AvgRt(), node.OccupiedPassQps(), node.CurThreadNum(),
		)
		if _, err := w.out.Write([]byte(line)); err != nil {
			flowlog.Errorf("metriclog: writing line for resource=%s: %v", resource, err)
		}
	}
}

func logPath(cfg config.MetricLogConfig) string {
	dir := cfg.Dir
	if dir == "" {
		dir = "logs"
	}
	return dir + "/metrics.log"
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
