// Package log provides structured logging for library operations.
//
// The package wraps rs/zerolog behind a small API: a process-global logger
// with level control, component-scoped child loggers, and automatic
// stacktrace extraction for errors produced by pkg/errors
// (cockroachdb/errors). It also installs itself as the warning sink of
// pkg/errors, so warnings such as ConvergenceWarning come out as structured
// zerolog events.
//
// Example:
//
//	logger := log.With("models")
//	logger.Debug().
//	    Str(log.KeyOperation, "fit").
//	    Str(log.KeySegment, "segment_a").
//	    Int(log.KeySamples, 365).
//	    Msg("fitting segment")
package log

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/tsgo/pkg/errors"
)

var (
	mu     sync.RWMutex
	global = zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
)

func init() {
	// Route pkg/errors warnings through zerolog. Warnings that implement
	// zerolog.LogObjectMarshaler keep their structured fields.
	errors.SetZerologWarnFunc(func(warning error) {
		logger := Logger()
		ev := logger.Warn()
		if obj, ok := warning.(zerolog.LogObjectMarshaler); ok {
			ev.Object("warning", obj)
		}
		ev.Msg(warning.Error())
	})
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// SetLogger replaces the global logger.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// SetLevel sets the minimum level of the global logger.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	global = global.Level(level)
}

// SetOutput redirects the global logger. Tests use this with a bytes.Buffer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	global = global.Output(w)
}

// With returns a child logger scoped to a library component.
func With(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global.With().Str(KeyComponent, component).Logger()
}
