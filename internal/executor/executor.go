// Package executor runs a command across connected hosts, either one at a
// time or with a bounded worker pool.
package executor

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
	"github.com/HarrisonTotty/remote-framework/internal/logging"
	"github.com/HarrisonTotty/remote-framework/internal/output"
	"github.com/HarrisonTotty/remote-framework/internal/run"
	"github.com/HarrisonTotty/remote-framework/internal/ssh"
)

// Mode selects the execution strategy.
type Mode int

const (
	Sequential Mode = iota
	Parallel
)

func (m Mode) String() string {
	if m == Parallel {
		return "parallel"
	}
	return "sequential"
}

// Config selects the execution mode and, for parallel runs, the worker pool
// width.
type Config struct {
	Mode  Mode
	Width int
}

// RunContext carries everything one run's workers share. The run identity
// lives on the logger, which stamps it onto every record.
type RunContext struct {
	Command string
	Args    []string
	Logger  *logging.Logger
	Console *output.Console
}

// commandLine materializes the full remote command once per run. Arguments
// bind as positional parameters of the command, so a command may reference
// them as $1, $2, ... or ignore them entirely.
func (rc *RunContext) commandLine() string {
	if len(rc.Args) == 0 {
		return rc.Command
	}
	parts := make([]string, 0, len(rc.Args)+4)
	parts = append(parts, "sh", "-c", shellQuote(rc.Command), "remote")
	for _, arg := range rc.Args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

// shellQuote single-quotes s for the remote shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Engine executes a run across a set of connections.
type Engine struct {
	config Config
}

// New creates an engine. A parallel config with a non-positive width falls
// back to sequential execution.
func New(config Config) *Engine {
	if config.Mode == Parallel && config.Width < 1 {
		config.Mode = Sequential
	}
	return &Engine{config: config}
}

// Run executes the run's command on every connection, returning one result
// per connection in the same order. Per-host failures never abort the run;
// cancellation marks all not-yet-finished hosts interrupted.
func (e *Engine) Run(ctx context.Context, rc *RunContext, conns []*ssh.Connection) []*run.Result {
	if e.config.Mode == Parallel {
		return e.runParallel(ctx, rc, conns)
	}
	return e.runSequential(ctx, rc, conns)
}

// runSequential visits hosts one at a time, streaming output as it arrives.
func (e *Engine) runSequential(ctx context.Context, rc *RunContext, conns []*ssh.Connection) []*run.Result {
	command := rc.commandLine()
	results := make([]*run.Result, len(conns))
	for i, conn := range conns {
		if ctx.Err() != nil {
			results[i] = interruptedResult(conn.Host.Name)
			continue
		}
		rc.Console.Host(conn.Host.Name)
		results[i] = e.runHost(ctx, rc, conn, command, func(line string) {
			rc.Console.Line(conn.Host.Name, line)
		})
		if results[i].Err != nil {
			rc.Console.HostError(conn.Host.Name, "Unable to execute command(s) - "+results[i].Err.Error())
			continue
		}
		rc.Console.ExitStatus(conn.Host.Name, results[i].ExitCode)
	}
	return results
}

// runParallel fans hosts out over a bounded worker pool. Output is buffered
// per host and emitted as one block, so blocks from different hosts only
// interleave at block boundaries.
func (e *Engine) runParallel(ctx context.Context, rc *RunContext, conns []*ssh.Connection) []*run.Result {
	command := rc.commandLine()
	results := make([]*run.Result, len(conns))

	var g errgroup.Group
	g.SetLimit(e.config.Width)
	for i, conn := range conns {
		i, conn := i, conn
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = interruptedResult(conn.Host.Name)
				return nil
			}
			results[i] = e.runHost(ctx, rc, conn, command, nil)
			r := results[i]
			rc.Console.HostBlock(r.Host, r.Lines, r.ExitCode, r.Err)
			return nil
		})
	}
	g.Wait()
	return results
}

// runHost executes command on one connection and builds its result. Lines
// are always retained on the result; stream additionally delivers them as
// they arrive.
func (e *Engine) runHost(ctx context.Context, rc *RunContext, conn *ssh.Connection, command string, stream func(string)) *run.Result {
	r := &run.Result{Host: conn.Host.Name}
	start := time.Now()

	exitCode, err := conn.Run(ctx, command, func(line string) {
		r.Lines = append(r.Lines, line)
		rc.Logger.LogOutputLine(conn.Host.Name, line)
		if stream != nil {
			stream(line)
		}
	})
	r.Duration = time.Since(start)

	if err != nil {
		r.ExitCode = -1
		r.Err = classifyRunError(conn.Host.Name, err)
		rc.Logger.LogExecError(conn.Host.Name, r.Err)
		return r
	}
	r.ExitCode = exitCode
	rc.Logger.LogExit(conn.Host.Name, exitCode)
	return r
}

// classifyRunError distinguishes operator cancellation from execution
// failures, including per-command timeouts.
func classifyRunError(host string, err error) error {
	switch {
	case stderrors.Is(err, context.Canceled):
		return &errors.Error{
			Category: errors.Interrupted,
			Host:     host,
			Message:  "execution interrupted",
			Err:      err,
		}
	case stderrors.Is(err, context.DeadlineExceeded):
		return &errors.Error{
			Category: errors.Execution,
			Host:     host,
			Message:  "remote execution timed out",
			Err:      err,
		}
	}
	return &errors.Error{
		Category: errors.Execution,
		Host:     host,
		Message:  "remote execution failed",
		Err:      err,
	}
}

func interruptedResult(host string) *run.Result {
	return &run.Result{
		Host:     host,
		ExitCode: -1,
		Err: &errors.Error{
			Category: errors.Interrupted,
			Host:     host,
			Message:  "run interrupted before execution",
		},
	}
}
