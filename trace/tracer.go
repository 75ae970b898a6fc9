// Package trace wires the `-trace` CLI flag to a zerolog logger level. It is
// the teacher's own Init/IsEnabled global tracer (trace/tracer.go)
// generalized from per-verb-call tracing to the scheduler's and channel
// registry's own structured log events: every rendezvous, suspend, and
// task-state transition becomes visible at debug level, without changing
// `$out` output (spec §6: "an optional execution-trace / diagnostic mode").
package trace

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	enabled bool
)

// Init configures and returns the logger a program run should use: debug
// level with tracing on, info level otherwise. It also records whether
// tracing is enabled for IsEnabled.
func Init(traceEnabled bool) zerolog.Logger {
	mu.Lock()
	enabled = traceEnabled
	mu.Unlock()

	level := zerolog.InfoLevel
	if traceEnabled {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// IsEnabled reports whether the most recent Init call turned tracing on.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}
