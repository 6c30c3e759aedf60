// Package sshc wraps an authenticated SSH connection: remote command
// execution under keep-alive supervision, and SFTP listing and download.
package sshc

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"sshclient/pkg/conf"
	"sshclient/pkg/connstr"
	"sshclient/pkg/slog"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// transport is the part of *ssh.Client a Session relies on.
type transport interface {
	NewSession() (*ssh.Session, error)
	SendRequest(name string, wantReply bool, payload []byte) (bool, []byte, error)
	Close() error
}

// Session owns exactly one authenticated connection. It is not safe for
// concurrent use beyond the internal server-alive supervisor.
type Session struct {
	*slog.Logger
	params       connstr.Params
	config       *Config
	conn         transport
	agentConn    io.Closer
	sessionMutex sync.Mutex
	closed       bool
	transfers    map[*FileTransfer]struct{}
	disconnect   chan struct{}
	aliveDone    chan struct{}
}

// Connect dials params.Addr() and authenticates as params.User, with the
// password when one is present and with a private key otherwise.
func Connect(ctx context.Context, params connstr.Params, cfg *Config) (*Session, error) {
	config, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	authMode, authMethod, agentConn, aErr := config.authMethod(params)
	connErr := func(err error) error {
		return &ConnectionError{
			User: params.User,
			Host: params.Host,
			Port: params.Port,
			Auth: authMode,
			Err:  err,
		}
	}
	if aErr != nil {
		return nil, connErr(aErr)
	}

	sshConfig := &ssh.ClientConfig{
		User:            params.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: config.HostKeyCallback,
		ClientVersion:   conf.ClientVersion,
		Timeout:         config.Timeout,
	}

	config.Logger.Debugf("Connecting to %s (authentication=%s)", params, authMode)
	client, dErr := dial(ctx, params.Addr(), sshConfig)
	if dErr != nil {
		if agentConn != nil {
			_ = agentConn.Close()
		}
		return nil, connErr(dErr)
	}
	config.Logger.Debugf("Session %x established to %s", client.SessionID(), params)

	s := newSession(params, config, client)
	if agentConn != nil {
		s.agentConn = agentConn
	}
	go s.serverAlive()

	return s, nil
}

func dial(ctx context.Context, addr string, sshConfig *ssh.ClientConfig) (*ssh.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: sshConfig.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// The handshake has no context of its own: bound it by the timeout and
	// abort it when ctx is cancelled.
	_ = netConn.SetDeadline(time.Now().Add(sshConfig.Timeout))
	stop := context.AfterFunc(ctx, func() { _ = netConn.Close() })

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, sshConfig)
	if !stop() {
		if err == nil {
			_ = sshConn.Close()
		}
		return nil, ctx.Err()
	}
	if err != nil {
		_ = netConn.Close()
		return nil, err
	}
	_ = netConn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func newSession(params connstr.Params, config *Config, conn transport) *Session {
	return &Session{
		Logger:     config.Logger,
		params:     params,
		config:     config,
		conn:       conn,
		transfers:  make(map[*FileTransfer]struct{}),
		disconnect: make(chan struct{}),
		aliveDone:  make(chan struct{}),
	}
}

// Params returns the connection parameters the session was opened with.
func (s *Session) Params() connstr.Params {
	return s.params
}

// SetLogLevel changes the verbosity of this session's SSH diagnostics.
func (s *Session) SetLogLevel(level string) error {
	if err := s.Logger.SetLevel(level); err != nil {
		return &ConfigError{Field: "log level", Value: level, Err: err}
	}
	return nil
}

// Command returns a configured, not yet started, command bound to s.
func (s *Session) Command(text string) *Command {
	return newCommand(s, text)
}

func (s *Session) isClosed() bool {
	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()
	return s.closed
}

// SendKeepAlive sends one keepalive@openssh.com probe and waits for the reply.
// A refusal from the server still proves liveness.
func (s *Session) SendKeepAlive() error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if _, _, err := s.conn.SendRequest(conf.SSHRequestKeepAlive, true, nil); err != nil {
		return errors.Wrap(err, "keep-alive failed")
	}
	return nil
}

// serverAlive probes the server every KeepAliveInterval and drops the
// connection after KeepAliveCountMax consecutive failures.
func (s *Session) serverAlive() {
	defer close(s.aliveDone)

	ticker := time.NewTicker(s.config.KeepAliveInterval)
	defer ticker.Stop()

	missed := 0
	for {
		select {
		case <-s.disconnect:
			s.Debugf("[KeepAlive] Stopping server-alive probes to %s", s.params.Host)
			return
		case <-ticker.C:
			if _, _, err := s.conn.SendRequest(conf.SSHRequestKeepAlive, true, nil); err != nil {
				missed++
				s.Debugf("[KeepAlive] Probe %d/%d to %s failed: %v", missed, s.config.KeepAliveCountMax, s.params.Host, err)
				if missed >= s.config.KeepAliveCountMax {
					s.Errorf("[KeepAlive] Lost connection to %s", s.params.Host)
					_ = s.conn.Close()
					return
				}
				continue
			}
			missed = 0
		}
	}
}

// Close releases every FileTransfer still open, stops the supervisor and
// closes the connection. Any later use of the session returns ErrSessionClosed.
func (s *Session) Close() error {
	s.sessionMutex.Lock()
	if s.closed {
		s.sessionMutex.Unlock()
		return ErrSessionClosed
	}
	s.closed = true
	transfers := make([]*FileTransfer, 0, len(s.transfers))
	for ft := range s.transfers {
		transfers = append(transfers, ft)
	}
	s.transfers = nil
	s.sessionMutex.Unlock()

	var result *multierror.Error
	for _, ft := range transfers {
		s.Debugf("Closing outstanding file transfer")
		if err := ft.release(); err != nil && !errors.Is(err, ErrTransferClosed) {
			result = multierror.Append(result, err)
		}
	}

	close(s.disconnect)
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		result = multierror.Append(result, errors.Wrap(err, "failed to close connection"))
	}
	<-s.aliveDone

	if s.agentConn != nil {
		_ = s.agentConn.Close()
	}
	s.Debugf("Session to %s closed", s.params)

	return result.ErrorOrNil()
}

func (s *Session) track(ft *FileTransfer) error {
	s.sessionMutex.Lock()
	defer s.sessionMutex.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.transfers[ft] = struct{}{}
	return nil
}

func (s *Session) forget(ft *FileTransfer) {
	s.sessionMutex.Lock()
	delete(s.transfers, ft)
	s.sessionMutex.Unlock()
}
