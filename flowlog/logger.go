// Package flowlog wires zap, with lumberjack as the rotating file backend,
// the way the teacher SDK wires its own "logger" and "sentinel-golang"
// loggers: one process-wide internal diagnostics logger plus per-writer
// sugared helpers. Errors while logging never propagate to callers (see
// SPEC_FULL.md §7 "Resource degradation in plumbing").
package flowlog

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating file sink. Zero value disables file
// output and logs to stderr only (used by tests).
type FileOptions struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	mu       sync.Mutex
	internal *zap.SugaredLogger = zap.NewNop().Sugar()
)

// Init replaces the process-wide internal logger. Safe to call more than
// once (e.g. on config reload); the previous logger is synced and
// discarded.
func Init(opts FileOptions) error {
	core, err := buildCore(opts)
	if err != nil {
		return errors.Wrap(err, "flowlog: failed to build zap core")
	}
	l := zap.New(core).Sugar()

	mu.Lock()
	old := internal
	internal = l
	mu.Unlock()

	_ = old.Sync()
	return nil
}

func buildCore(opts FileOptions) (zapcore.Core, error) {
	enc := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	if opts.Filename == "" {
		return zapcore.NewCore(enc, zapcore.Lock(os.Stderr), zapcore.InfoLevel), nil
	}
	writer := &lumberjack.Logger{
		Filename:   opts.Filename,
		MaxSize:    defaultInt(opts.MaxSizeMB, 100),
		MaxBackups: defaultInt(opts.MaxBackups, 5),
		MaxAge:     defaultInt(opts.MaxAgeDays, 14),
		Compress:   opts.Compress,
	}
	return zapcore.NewCore(enc, zapcore.AddSync(writer), zapcore.InfoLevel), nil
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Internal returns the process-wide diagnostics logger.
func Internal() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return internal
}

func Infof(template string, args ...interface{})  { Internal().Infof(template, args...) }
func Warnf(template string, args ...interface{})  { Internal().Warnf(template, args...) }
func Errorf(template string, args ...interface{}) { Internal().Errorf(template, args...) }
