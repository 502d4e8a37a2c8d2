// Package output renders run progress and per-host results to the console.
//
// The console is the only resource shared by concurrent workers. Every
// public method takes the writer lock, and HostBlock emits an entire host's
// report under one acquisition so that blocks from different hosts can only
// interleave at block boundaries, never mid-line.
package output

import (
	"fmt"
	"io"
	"sync"
)

// ANSI color sequences.
const (
	colorBlue = "\033[94m"
	colorRed  = "\033[91m"
	colorEnd  = "\033[0m"
	colorBold = "\033[1m"
)

// Console writes leveled, optionally colorized run output.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
	plain bool
}

// NewConsole creates a console writing to w. When plain is set, output is
// the machine-readable "host : line" / "host < status" stream and all
// decoration is suppressed.
func NewConsole(w io.Writer, color, plain bool) *Console {
	return &Console{w: w, color: color && !plain, plain: plain}
}

// Section prints a top-level step header, e.g. ":: Connecting...".
func (c *Console) Section(msg string) {
	if c.plain {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "%s %s\n", c.colorize("::", colorBlue), c.bold(msg))
}

// Host prints a host entry header under the current section.
func (c *Console) Host(host string) {
	if c.plain {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "  %s %s\n", c.colorize("-->", colorBlue), host)
}

// Line prints one line of remote output attributed to host.
func (c *Console) Line(host, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.line(host, line)
}

// ExitStatus reports a host's exit status. Decorated output only shows
// failures; the plain stream always carries the status.
func (c *Console) ExitStatus(host string, exitCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exitStatus(host, exitCode)
}

// HostError reports a per-host failure message.
func (c *Console) HostError(host, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hostError(host, msg)
}

// HostBlock emits a host's entire report (header, output lines, status)
// under a single lock acquisition.
func (c *Console) HostBlock(host string, lines []string, exitCode int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.plain {
		fmt.Fprintf(c.w, "  %s %s\n", c.colorize("-->", colorBlue), host)
	}
	for _, line := range lines {
		c.line(host, line)
	}
	if err != nil {
		c.hostError(host, "Unable to execute command(s) - "+err.Error())
		return
	}
	c.exitStatus(host, exitCode)
}

// Errorf reports a run-level failure.
func (c *Console) Errorf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "   %s\n", c.colorize(fmt.Sprintf(format, args...), colorRed))
}

func (c *Console) line(host, line string) {
	if c.plain {
		fmt.Fprintf(c.w, "%s : %s\n", host, line)
		return
	}
	fmt.Fprintf(c.w, "      %s\n", line)
}

func (c *Console) exitStatus(host string, exitCode int) {
	if c.plain {
		fmt.Fprintf(c.w, "%s < %d\n", host, exitCode)
		return
	}
	if exitCode != 0 {
		fmt.Fprintf(c.w, "      %s\n", c.colorize(fmt.Sprintf("Error: Remote execution returned non-zero exit code %d.", exitCode), colorRed))
	}
}

func (c *Console) hostError(host, msg string) {
	if c.plain {
		fmt.Fprintf(c.w, "%s ! %s\n", host, msg)
		return
	}
	fmt.Fprintf(c.w, "      %s\n", c.colorize(msg, colorRed))
}

func (c *Console) colorize(s, color string) string {
	if !c.color {
		return s
	}
	return color + s + colorEnd
}

func (c *Console) bold(s string) string {
	return c.colorize(s, colorBold)
}
