// Package logging wraps log/slog with the run-scoped helpers used across
// the framework. Records go to the log file, not the console; console
// reporting is the output package's job.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
)

// Level names accepted by the configuration.
const (
	LevelInfo  = "info"
	LevelDebug = "debug"
)

// File modes accepted by the configuration.
const (
	ModeAppend    = "append"
	ModeOverwrite = "overwrite"
)

// Config holds logging configuration.
type Config struct {
	Level  string    // "info" or "debug"
	Format string    // "text" or "json"
	File   string    // log file path; empty disables the file sink
	Mode   string    // "append" or "overwrite"
	Output io.Writer // overrides the file sink, used by tests
}

// Logger wraps slog.Logger with run-scoped attributes.
type Logger struct {
	logger *slog.Logger
	closer io.Closer
}

// New creates a logger per config. When a file sink is configured it is
// opened here and owned by the returned logger.
func New(config Config) (*Logger, error) {
	out := config.Output
	var closer io.Closer
	if out == nil {
		if config.File == "" {
			out = io.Discard
		} else {
			flags := os.O_CREATE | os.O_WRONLY
			if config.Mode == ModeOverwrite {
				flags |= os.O_TRUNC
			} else {
				flags |= os.O_APPEND
			}
			f, err := os.OpenFile(config.File, flags, 0o644)
			if err != nil {
				return nil, fmt.Errorf("unable to open log file: %w", err)
			}
			out = f
			closer = f
		}
	}

	level := slog.LevelInfo
	if config.Level == LevelDebug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{logger: slog.New(handler), closer: closer}, nil
}

// Close releases the file sink, if any.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// WithRun returns a logger that stamps every record with the run id.
func (l *Logger) WithRun(id uuid.UUID) *Logger {
	return &Logger{logger: l.logger.With("run_id", id.String()), closer: l.closer}
}

// Debug logs at the debug level.
func (l *Logger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info logs at the info level.
func (l *Logger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Error logs at the error level.
func (l *Logger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// LogRunStart records the shape of a run before any connection is made.
func (l *Logger) LogRunStart(hostCount int, parallel bool, width int) {
	l.Info("run started",
		"host_count", hostCount,
		"parallel", parallel,
		"width", width,
	)
}

// LogConnect records an established connection. Passwords and certificate
// paths are never logged.
func (l *Logger) LogConnect(host, user string, port int, duration time.Duration) {
	l.Debug("connected",
		"host", host,
		"user", user,
		"port", port,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogConnectError records a failed connection attempt.
func (l *Logger) LogConnectError(host, user string, port int, err error) {
	l.Error("connection failed",
		"host", host,
		"user", user,
		"port", port,
		"error", err.Error(),
	)
}

// LogDisconnectError records a close failure; these never escalate.
func (l *Logger) LogDisconnectError(host string, err error) {
	l.Error("unable to close connection",
		"host", host,
		"error", err.Error(),
	)
}

// LogOutputLine records one line of remote output.
func (l *Logger) LogOutputLine(host, line string) {
	l.Info(host + " : " + line)
}

// LogExit records a host's exit status.
func (l *Logger) LogExit(host string, exitCode int) {
	if exitCode == 0 {
		l.Debug(fmt.Sprintf("%s < %d", host, exitCode))
		return
	}
	l.Error(fmt.Sprintf("%s < %d", host, exitCode))
}

// LogExecError records a mid-execution failure on one host.
func (l *Logger) LogExecError(host string, err error) {
	l.Error("unable to execute command",
		"host", host,
		"error", err.Error(),
	)
}

// LogRunComplete records the final tally of a run.
func (l *Logger) LogRunComplete(total, succeeded, failed int, duration time.Duration) {
	l.Info("run completed",
		"host_count", total,
		"succeeded", succeeded,
		"failed", failed,
		"duration_ms", duration.Milliseconds(),
	)
}
