// Package logging configures zerolog for the client, the bulk engine and
// the proxy, and names the context fields they share.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as read from LOG_LEVEL.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Context field names.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldResource  = "resource"
	FieldSet       = "set"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON logging at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it. Loggers from
// NewLogger created afterwards write through it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(string(cfg.Level)))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

// ParseLevel converts a level name to zerolog.Level. Unknown names map to
// info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str(FieldComponent, component).Logger()
}

// WithRun tags l with a bulk run and the resource it queries.
func WithRun(l zerolog.Logger, runID, resource string) zerolog.Logger {
	return l.With().Str(FieldRunID, runID).Str(FieldResource, resource).Logger()
}

// WithSet tags l with one atomic parameter set.
func WithSet(l zerolog.Logger, set string) zerolog.Logger {
	return l.With().Str(FieldSet, set).Logger()
}

// Levels in use:
//
// Debug: cache hits and stores, set state transitions, page plans, worker
// pool lifecycle.
//
// Info: bulk query start and finish, server startup and shutdown.
//
// Warn: failed count or page requests, retries, quota nearly used up,
// cache errors (the request goes upstream instead).
//
// Error: runs aborted by an authentication error, runs where every set
// failed, exhausted quota.
//
// Besides the fields above, entries may carry endpoint, offset,
// error_class and ttl.
