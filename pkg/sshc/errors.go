package sshc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinels for errors.Is. Every failure is fatal to the operation that
// raised it; nothing is retried.
var (
	ErrConnectionFailed  = errors.New("connection failed")
	ErrChannelOpenFailed = errors.New("channel open failed")
	ErrCommandFailed     = errors.New("command failed")
	ErrListFailed        = errors.New("list failed")
	ErrDownloadFailed    = errors.New("download failed")
	ErrConfiguration     = errors.New("configuration error")

	ErrSessionClosed  = errors.New("session closed")
	ErrTransferClosed = errors.New("file transfer closed")
	ErrCommandStarted = errors.New("command already started")
	ErrNotBuffered    = errors.New("stream is not bound to a buffer")
)

// ConnectionError reports an authentication or transport connect failure.
type ConnectionError struct {
	User string
	Host string
	Port int
	Auth string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to open session to %s@%s:%d (authentication=%s): %v",
		e.User, e.Host, e.Port, e.Auth, e.Err)
}

func (e *ConnectionError) Unwrap() error        { return e.Err }
func (e *ConnectionError) Is(target error) bool { return target == ErrConnectionFailed }

// ChannelError reports an exec or sftp channel that could not be opened.
type ChannelError struct {
	Kind    string
	Command string
	Err     error
}

func (e *ChannelError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("failed to open %s channel for %q: %v", e.Kind, e.Command, e.Err)
	}
	return fmt.Sprintf("failed to open %s channel: %v", e.Kind, e.Err)
}

func (e *ChannelError) Unwrap() error        { return e.Err }
func (e *ChannelError) Is(target error) bool { return target == ErrChannelOpenFailed }

// CommandError carries the exit status of a command that did not exit with 0.
type CommandError struct {
	Status  int
	Command string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed with exit status %d: %s", e.Status, e.Command)
}

func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }

// TransferError reports a failed SFTP operation on Path.
type TransferError struct {
	Op   string
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("failed to %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

func (e *TransferError) Is(target error) bool {
	switch e.Op {
	case opList:
		return target == ErrListFailed
	case opDownload:
		return target == ErrDownloadFailed
	}
	return false
}

// ConfigError reports an unusable configuration value.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error        { return e.Err }
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// ExecutionError wraps a failure that happened while a command was running,
// such as a lost keep-alive or a cancelled context.
type ExecutionError struct {
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of %q aborted: %v", e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
