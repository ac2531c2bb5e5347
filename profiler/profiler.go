// Package profiler provides the process-wide section-timing logger used
// by the mesh's update() loop: a no-op by default, switched to a real
// zap-backed timer by TIT_ENABLE_PROFILER=1.
package profiler

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EnableEnvVar is the literal environment variable spec.md §6 names.
const EnableEnvVar = "TIT_ENABLE_PROFILER"

// Profiler records wall-clock durations for named sections and emits
// them as structured log fields.
type Profiler struct {
	logger  *zap.Logger
	enabled bool
}

var (
	instance *Profiler
	once     sync.Once
)

// Get returns the process-wide Profiler, initializing it on first use.
// Concurrent callers all observe the same fully-initialized instance.
func Get() *Profiler {
	once.Do(func() {
		instance = newProfiler()
	})
	return instance
}

func newProfiler() *Profiler {
	enabled := os.Getenv(EnableEnvVar) == "1"
	if !enabled {
		return &Profiler{enabled: false}
	}
	logger, err := zap.NewProduction()
	if err != nil {
		// profiling is diagnostic only; failing to build a logger must
		// not block the solver.
		return &Profiler{enabled: false}
	}
	return &Profiler{logger: logger, enabled: true}
}

// Teardown flushes and releases the process-wide Profiler, allowing a
// subsequent Get() to reinitialize (used by tests that toggle the env
// var between runs).
func Teardown() {
	once = sync.Once{}
	if instance != nil && instance.logger != nil {
		_ = instance.logger.Sync()
	}
	instance = nil
}

// Section times one named phase of update() (e.g. "search",
// "interp_search", "partition", "block_assemble") and logs its duration
// on Close. A no-op when profiling is disabled.
type Section struct {
	p     *Profiler
	name  string
	start time.Time
}

// Start begins timing a section.
func (p *Profiler) Start(name string) *Section {
	if !p.enabled {
		return &Section{p: p, name: name}
	}
	return &Section{p: p, name: name, start: time.Now()}
}

// Close ends the section and, if profiling is enabled, logs its
// duration as a structured field.
func (s *Section) Close() {
	if !s.p.enabled {
		return
	}
	s.p.logger.Info("mesh section timing",
		zap.String("section", s.name),
		zap.Duration("duration", time.Since(s.start)),
	)
}

// Log emits a structured diagnostic message (e.g. a partition-size
// mismatch against the configured target) outside of section timing. A
// no-op when profiling is disabled.
func (p *Profiler) Log(msg string, fields ...zap.Field) {
	if !p.enabled {
		return
	}
	p.logger.Info(msg, fields...)
}
