// Package errors provides the failure taxonomy for remote runs.
//
// Every failure is constructed with an explicit Category at the site where
// the cause is known, so callers branch on the category rather than on
// message text. Categories map one-to-one onto process exit codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Category classifies a failure.
type Category int

const (
	// Setup covers argument conflicts and invalid invocation values.
	Setup Category = iota

	// ConfigLoad covers an unreadable or unparseable inventory file.
	ConfigLoad

	// ConfigInvalid covers a structurally invalid inventory.
	ConfigInvalid

	// HostSpec covers malformed host pattern expansions.
	HostSpec

	// Target covers unresolvable targets and missing authentication.
	Target

	// Task covers unresolvable tasks.
	Task

	// Connection covers network and transport failures while connecting.
	Connection

	// Auth covers authentication rejected by the remote host.
	Auth

	// HostKey covers host identity verification failures.
	HostKey

	// Execution covers remote non-zero exits and mid-execution transport loss.
	Execution

	// Interrupted covers operator-initiated cancellation.
	Interrupted
)

// String returns the category name used in logs and summaries.
func (c Category) String() string {
	switch c {
	case Setup:
		return "setup"
	case ConfigLoad:
		return "config-load"
	case ConfigInvalid:
		return "config-invalid"
	case HostSpec:
		return "host-spec"
	case Target:
		return "target"
	case Task:
		return "task"
	case Connection:
		return "connection"
	case Auth:
		return "authentication"
	case HostKey:
		return "host-key"
	case Execution:
		return "execution"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Error ties a failure to its category and, where known, the offending
// host, target, or task.
type Error struct {
	Category Category
	Host     string
	Target   string
	Task     string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.Host != "":
		fmt.Fprintf(&b, "host %q: ", e.Host)
	case e.Target != "":
		fmt.Fprintf(&b, "target %q: ", e.Target)
	case e.Task != "":
		fmt.Fprintf(&b, "task %q: ", e.Task)
	}
	switch {
	case e.Message != "" && e.Err != nil:
		fmt.Fprintf(&b, "%s - %v", e.Message, e.Err)
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		b.WriteString("unknown error")
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// New creates a categorized error with a fixed message.
func New(category Category, message string) *Error {
	return &Error{Category: category, Message: message}
}

// Newf creates a categorized error with a formatted message.
func Newf(category Category, format string, args ...any) *Error {
	return &Error{Category: category, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a categorized error around an underlying cause.
func Wrap(category Category, message string, err error) *Error {
	return &Error{Category: category, Message: message, Err: err}
}

// CategoryOf extracts the category from err, or Setup when err carries none.
func CategoryOf(err error) Category {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category
	}
	return Setup
}

// ExitCode maps an error to the process exit status. The ladder mirrors the
// run phases: setup, configuration, resolution, connection, execution.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CategoryOf(err) {
	case Setup:
		return 2
	case ConfigLoad:
		return 3
	case ConfigInvalid:
		return 4
	case HostSpec:
		return 5
	case Target, Task:
		return 6
	case Connection, Auth, HostKey:
		return 7
	case Execution:
		return 8
	case Interrupted:
		return 100
	default:
		return 2
	}
}

// Collector accumulates failures across a run, grouped by category.
type Collector struct {
	errors map[Category][]error
	count  int
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{errors: make(map[Category][]error)}
}

// Add records an error under its category. Nil errors are ignored.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	cat := CategoryOf(err)
	c.errors[cat] = append(c.errors[cat], err)
	c.count++
}

// Count returns the total number of recorded errors.
func (c *Collector) Count() int { return c.count }

// CountByCategory returns the number of errors recorded under cat.
func (c *Collector) CountByCategory(cat Category) int {
	return len(c.errors[cat])
}

// Has reports whether any error was recorded.
func (c *Collector) Has() bool { return c.count > 0 }

// HasCategory reports whether any error of the given category was recorded.
func (c *Collector) HasCategory(cat Category) bool {
	return len(c.errors[cat]) > 0
}

// Summary returns a one-line breakdown of recorded errors by category.
func (c *Collector) Summary() string {
	if c.count == 0 {
		return "no errors"
	}
	parts := make([]string, 0, len(c.errors))
	for cat := Setup; cat <= Interrupted; cat++ {
		if n := len(c.errors[cat]); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, cat))
		}
	}
	return fmt.Sprintf("%d errors (%s)", c.count, strings.Join(parts, ", "))
}
