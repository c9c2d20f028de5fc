// Package logging provides categorized structured logging for noesis.
// All categories share one zap core; until Initialize is called the
// package is a no-op, so library consumers and tests stay quiet.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem a log line belongs to.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup and configuration
	CategoryAnalyzer  Category = "analyzer"  // Query analysis
	CategoryRetrieval Category = "retrieval" // Multi-topic retrieval fan-out
	CategorySynthesis Category = "synthesis" // Knowledge synthesis
	CategoryReasoning Category = "reasoning" // Reasoning engine pipeline
	CategoryStore     Category = "store"     // Knowledge/relationship store
	CategoryCache     Category = "cache"     // TTL cache hits/misses
)

var (
	mu   sync.RWMutex
	base *zap.SugaredLogger = zap.NewNop().Sugar()
)

// Initialize wires the package to a zap logger. Pass nil to build a
// production logger; verbose enables debug-level output.
func Initialize(logger *zap.Logger, verbose bool) error {
	if logger == nil {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		built, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		logger = built
	}
	mu.Lock()
	base = logger.Sugar()
	mu.Unlock()
	return nil
}

// Sync flushes buffered log entries. Safe to call on the no-op logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With("category", string(cat))
}

// Debugf logs a debug-level line under the given category.
func Debugf(cat Category, format string, args ...interface{}) {
	get(cat).Debugf(format, args...)
}

// Infof logs an info-level line under the given category.
func Infof(cat Category, format string, args ...interface{}) {
	get(cat).Infof(format, args...)
}

// Warnf logs a warn-level line under the given category.
func Warnf(cat Category, format string, args ...interface{}) {
	get(cat).Warnf(format, args...)
}

// Errorf logs an error-level line under the given category.
func Errorf(cat Category, format string, args ...interface{}) {
	get(cat).Errorf(format, args...)
}

// =============================================================================
// OPERATION TIMERS
// =============================================================================

// Timer tracks the duration of one named operation.
type Timer struct {
	cat   Category
	op    string
	start time.Time
}

// StartTimer begins timing an operation. Call Stop when it completes;
// operations slower than a second are logged at warn level.
func StartTimer(cat Category, op string) *Timer {
	return &Timer{cat: cat, op: op, start: time.Now()}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > time.Second {
		get(t.cat).Warnf("%s took %s", t.op, elapsed)
	} else {
		get(t.cat).Debugf("%s took %s", t.op, elapsed)
	}
	return elapsed
}
