package ssh

import (
	"context"
	"time"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
	"github.com/HarrisonTotty/remote-framework/internal/logging"
	"github.com/HarrisonTotty/remote-framework/internal/resolve"
)

// State tracks a connection's lifecycle. Failed and Closed are terminal.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Connection is one host's session plus its lifecycle state. Connections
// are owned by a single worker; they are not safe for concurrent use.
type Connection struct {
	Host  resolve.Host
	state State
	sess  Session
}

// State reports the connection's lifecycle state.
func (c *Connection) State() State {
	return c.state
}

// Run executes command on the connected host.
func (c *Connection) Run(ctx context.Context, command string, onLine func(string)) (int, error) {
	if c.state != StateConnected {
		return -1, &errors.Error{
			Category: errors.Connection,
			Host:     c.Host.Name,
			Message:  "connection is " + c.state.String() + ", not connected",
		}
	}
	return c.sess.Run(ctx, command, onLine)
}

// Manager opens and closes per-host connections, logging lifecycle events.
// A failed connection never aborts the run; the caller records the failure
// and moves on.
type Manager struct {
	dialer Dialer
	logger *logging.Logger
}

// NewManager creates a connection manager using dialer for transport.
func NewManager(dialer Dialer, logger *logging.Logger) *Manager {
	return &Manager{dialer: dialer, logger: logger}
}

// Open establishes a connection to host. On failure the returned connection
// is in the Failed state and the error carries the host, the attempted
// user, and a failure category.
func (m *Manager) Open(ctx context.Context, host resolve.Host) (*Connection, error) {
	conn := &Connection{Host: host, state: StateConnecting}
	start := time.Now()

	sess, err := m.dialer.Dial(ctx, host)
	if err != nil {
		conn.state = StateFailed
		cerr := asConnectError(host, err)
		m.logger.LogConnectError(host.Name, host.User, host.Port, cerr)
		return conn, cerr
	}

	conn.sess = sess
	conn.state = StateConnected
	m.logger.LogConnect(host.Name, host.User, host.Port, time.Since(start))
	return conn, nil
}

// Close tears down a connection. Close failures are logged and otherwise
// ignored; they never affect the run verdict.
func (m *Manager) Close(conn *Connection) {
	if conn == nil || conn.state != StateConnected {
		return
	}
	if err := conn.sess.Close(); err != nil {
		m.logger.LogDisconnectError(conn.Host.Name, err)
	}
	conn.state = StateClosed
}

// asConnectError guarantees dial failures carry a category and host
// attribution, wrapping uncategorized transport errors as connection
// failures.
func asConnectError(host resolve.Host, err error) error {
	switch errors.CategoryOf(err) {
	case errors.Auth, errors.HostKey, errors.Connection:
		return err
	}
	return &errors.Error{
		Category: errors.Connection,
		Host:     host.Name,
		Message:  "unable to connect as " + host.User,
		Err:      err,
	}
}
