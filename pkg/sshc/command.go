package sshc

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

type commandState int

const (
	stateConfigured commandState = iota
	stateRunning
	stateCompleted
	stateFailed
)

// Command is a single remote command invocation. Streams may be rebound
// until Execute is called; a Command runs at most once.
type Command struct {
	session    *Session
	text       string
	stdin      io.Reader
	stdout     binding
	stderr     binding
	exitStatus int
	state      commandState
}

func newCommand(s *Session, text string) *Command {
	return &Command{
		session:    s,
		text:       text,
		stdin:      bytes.NewReader(nil),
		stdout:     bufferedBinding(),
		stderr:     binding{kind: Aliased},
		exitStatus: -1,
	}
}

func (c *Command) Text() string {
	return c.text
}

// ExitStatus is -1 until Execute has completed.
func (c *Command) ExitStatus() int {
	return c.exitStatus
}

func (c *Command) configurable(what string) bool {
	if c.state != stateConfigured {
		c.session.Warnf("Ignoring %s rebind of started command %q", what, c.text)
		return false
	}
	return true
}

func (c *Command) SetStdin(r io.Reader) *Command {
	if c.configurable("stdin") {
		c.stdin = r
	}
	return c
}

func (c *Command) SetStdout(w io.Writer) *Command {
	if c.configurable("stdout") {
		c.stdout = externalBinding(w)
	}
	return c
}

func (c *Command) SetStderr(w io.Writer) *Command {
	if c.configurable("stderr") {
		c.stderr = externalBinding(w)
	}
	return c
}

// SeparateStderr collects stderr in its own buffer instead of aliasing stdout.
func (c *Command) SeparateStderr() *Command {
	if c.configurable("stderr") {
		c.stderr = bufferedBinding()
	}
	return c
}

func (c *Command) StdoutKind() StreamKind { return c.stdout.kind }
func (c *Command) StderrKind() StreamKind { return c.stderr.kind }

// Stdout returns the buffered standard output as UTF-8 text. It returns
// ErrNotBuffered when stdout was rebound to an external writer.
func (c *Command) Stdout() (string, error) {
	return c.stdout.text()
}

// Stderr returns the separately buffered standard error. An aliased stderr
// is part of Stdout and yields ErrNotBuffered here.
func (c *Command) Stderr() (string, error) {
	return c.stderr.text()
}

func (c *Command) writers() (io.Writer, io.Writer) {
	stdout := c.stdout.writer()
	if c.stderr.kind != Aliased {
		return stdout, c.stderr.writer()
	}
	if c.stdout.kind == External {
		shared := &lockedWriter{w: stdout}
		return shared, shared
	}
	return stdout, stdout
}

// Execute opens an exec channel, runs the command and blocks until the
// channel closes. While waiting it sends a keep-alive probe every
// PollInterval; a failed probe or a cancelled ctx aborts the execution.
// The channel is closed on every return path.
func (c *Command) Execute(ctx context.Context) error {
	if c.state != stateConfigured {
		return ErrCommandStarted
	}
	c.state = stateRunning

	if err := c.execute(ctx); err != nil {
		c.state = stateFailed
		return err
	}
	c.state = stateCompleted
	return nil
}

func (c *Command) execute(ctx context.Context) error {
	if c.session.isClosed() {
		return ErrSessionClosed
	}

	channel, err := c.session.conn.NewSession()
	if err != nil {
		return &ChannelError{Kind: "exec", Command: c.text, Err: err}
	}
	defer func() {
		if cErr := channel.Close(); cErr != nil && cErr != io.EOF {
			c.session.Debugf("Closing exec channel for %q: %v", c.text, cErr)
		}
	}()

	channel.Stdin = c.stdin
	channel.Stdout, channel.Stderr = c.writers()

	c.session.Debugf("Executing %q", c.text)
	if sErr := channel.Start(c.text); sErr != nil {
		return &ChannelError{Kind: "exec", Command: c.text, Err: sErr}
	}

	done := make(chan error, 1)
	go func() { done <- channel.Wait() }()

	waitErr, sErr := c.supervise(ctx, done)
	if sErr != nil {
		return &ExecutionError{Command: c.text, Err: sErr}
	}

	status, wErr := exitStatusOf(waitErr)
	if wErr != nil {
		return &ExecutionError{Command: c.text, Err: wErr}
	}
	c.exitStatus = status
	c.session.Debugf("Command %q exited with status %d", c.text, status)

	return nil
}

// supervise waits for the channel to close, probing the server between waits.
func (c *Command) supervise(ctx context.Context, done <-chan error) (waitErr error, err error) {
	for {
		select {
		case waitErr = <-done:
			return waitErr, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err = c.session.SendKeepAlive(); err != nil {
			return nil, err
		}

		timer := time.NewTimer(c.session.config.PollInterval)
		select {
		case waitErr = <-done:
			timer.Stop()
			return waitErr, nil
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func exitStatusOf(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitStatus(), nil
	}

	var missingErr *ssh.ExitMissingError
	if errors.As(waitErr, &missingErr) {
		return -1, nil
	}

	return -1, waitErr
}

// CheckExitStatus returns a *CommandError when the exit status is not 0,
// which includes a command that never ran (-1).
func (c *Command) CheckExitStatus() (*Command, error) {
	if c.exitStatus != 0 {
		return c, &CommandError{Status: c.exitStatus, Command: c.text}
	}
	return c, nil
}

// Run executes the command and checks its exit status.
func (c *Command) Run(ctx context.Context) error {
	if err := c.Execute(ctx); err != nil {
		return err
	}
	_, err := c.CheckExitStatus()
	return err
}
