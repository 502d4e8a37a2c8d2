// Package ssh provides the remote session transport and the per-run
// connection manager built on top of it.
package ssh

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
	"github.com/HarrisonTotty/remote-framework/internal/logging"
	"github.com/HarrisonTotty/remote-framework/internal/resolve"
)

// Options bound connection and execution behavior. A zero timeout defers to
// the transport's default behavior rather than enforcing a limit here.
type Options struct {
	ConnectTimeout time.Duration // TCP dial
	AuthTimeout    time.Duration // handshake and authentication
	CommandTimeout time.Duration // per-command execution
}

// Session is the remote execution surface the engine depends on. Any
// compliant transport satisfies it.
type Session interface {
	// Run executes command remotely, delivering output line by line to
	// onLine as it arrives, and returns the remote exit status. A non-nil
	// error means the transport failed, not that the command exited
	// non-zero.
	Run(ctx context.Context, command string, onLine func(string)) (int, error)

	// Close releases the underlying transport session.
	Close() error
}

// Dialer opens a session to one resolved host.
type Dialer interface {
	Dial(ctx context.Context, host resolve.Host) (Session, error)
}

// ClientDialer implements Dialer using golang.org/x/crypto/ssh.
type ClientDialer struct {
	Options Options
	Logger  *logging.Logger
}

// Dial opens an SSH connection and returns a session bound to it. Failures
// are categorized: authentication rejected, host identity verification
// failed, network failure, or generic transport failure.
func (d *ClientDialer) Dial(ctx context.Context, host resolve.Host) (Session, error) {
	config, err := d.buildConfig(host)
	if err != nil {
		return nil, err
	}

	address := net.JoinHostPort(host.Name, strconv.Itoa(host.Port))
	dialer := &net.Dialer{Timeout: d.Options.ConnectTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, d.classify(host, fmt.Errorf("unable to connect to remote server: %w", err))
	}

	if d.Options.AuthTimeout > 0 {
		_ = netConn.SetDeadline(time.Now().Add(d.Options.AuthTimeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, address, config)
	if err != nil {
		netConn.Close()
		return nil, d.classify(host, err)
	}
	_ = netConn.SetDeadline(time.Time{})

	return &clientSession{
		client: ssh.NewClient(sshConn, chans, reqs),
		opts:   d.Options,
	}, nil
}

// buildConfig assembles the client configuration from the host's effective
// authentication parameters.
func (d *ClientDialer) buildConfig(host resolve.Host) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod
	if host.Cert != "" {
		keyAuth, err := keyAuthMethod(host.Cert)
		if err != nil {
			return nil, &errors.Error{
				Category: errors.Auth,
				Host:     host.Name,
				Message:  fmt.Sprintf("unable to load certificate file %q", host.Cert),
				Err:      err,
			}
		}
		methods = append(methods, keyAuth)
	}
	if host.Password != "" {
		methods = append(methods, ssh.Password(host.Password))
	}
	if agentAuth := agentAuthMethod(); agentAuth != nil {
		methods = append(methods, agentAuth)
	}
	if len(methods) == 0 {
		return nil, &errors.Error{
			Category: errors.Auth,
			Host:     host.Name,
			Message:  "no authentication methods available",
		}
	}

	return &ssh.ClientConfig{
		User:            host.User,
		Auth:            methods,
		HostKeyCallback: d.hostKeyCallback(),
		Timeout:         d.Options.ConnectTimeout,
	}, nil
}

func keyAuthMethod(path string) (ssh.AuthMethod, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func agentAuthMethod() ssh.AuthMethod {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}

// hostKeyCallback verifies host identity against known_hosts when one is
// available, otherwise accepts with a logged warning.
func (d *ClientDialer) hostKeyCallback() ssh.HostKeyCallback {
	if homeDir, err := os.UserHomeDir(); err == nil {
		if cb, err := knownhosts.New(homeDir + "/.ssh/known_hosts"); err == nil {
			return cb
		}
	}
	if cb, err := knownhosts.New("/etc/ssh/ssh_known_hosts"); err == nil {
		return cb
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		if d.Logger != nil {
			d.Logger.Error("host key verification disabled", "host", hostname)
		}
		return nil
	}
}

// classify maps a transport failure onto the error taxonomy, carrying the
// host and attempted user for operator-facing reports.
func (d *ClientDialer) classify(host resolve.Host, err error) *errors.Error {
	detail := fmt.Sprintf("connecting as %q", host.User)

	var keyErr *knownhosts.KeyError
	if stderrors.As(err, &keyErr) {
		return &errors.Error{
			Category: errors.HostKey,
			Host:     host.Name,
			Message:  "unable to verify host key of remote server, " + detail,
			Err:      err,
		}
	}
	if strings.Contains(err.Error(), "unable to authenticate") ||
		strings.Contains(err.Error(), "no supported methods remain") {
		return &errors.Error{
			Category: errors.Auth,
			Host:     host.Name,
			Message:  "unable to authenticate with remote server, " + detail,
			Err:      err,
		}
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		msg := "unable to reach remote server, " + detail
		if netErr.Timeout() {
			msg = "timed out reaching remote server, " + detail
		}
		return &errors.Error{
			Category: errors.Connection,
			Host:     host.Name,
			Message:  msg,
			Err:      err,
		}
	}
	return &errors.Error{
		Category: errors.Connection,
		Host:     host.Name,
		Message:  "unable to establish ssh connection to remote server, " + detail,
		Err:      err,
	}
}

// clientSession runs commands over one established SSH connection.
type clientSession struct {
	client *ssh.Client
	opts   Options
}

// Run executes command with a pty so remote stderr folds into the single
// output stream, scanning it line by line as it arrives.
func (s *clientSession) Run(ctx context.Context, command string, onLine func(string)) (int, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("unable to create session: %w", err)
	}
	defer sess.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("xterm", 40, 80, modes); err != nil {
		return -1, fmt.Errorf("unable to request pty: %w", err)
	}

	stdout, err := sess.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("unable to open stdout pipe: %w", err)
	}
	if err := sess.Start(command); err != nil {
		return -1, fmt.Errorf("unable to start command: %w", err)
	}

	runCtx := ctx
	if s.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.opts.CommandTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			onLine(strings.TrimRight(scanner.Text(), "\r"))
		}
		done <- sess.Wait()
	}()

	select {
	case err := <-done:
		if err == nil {
			return 0, nil
		}
		var exitErr *ssh.ExitError
		if stderrors.As(err, &exitErr) {
			return exitErr.ExitStatus(), nil
		}
		return -1, fmt.Errorf("remote execution failed: %w", err)
	case <-runCtx.Done():
		_ = sess.Signal(ssh.SIGTERM)
		sess.Close()
		return -1, runCtx.Err()
	}
}

// Close terminates the SSH connection.
func (s *clientSession) Close() error {
	return s.client.Close()
}
