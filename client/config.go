package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"sshclient/pkg/connstr"
	"sshclient/pkg/slog"
	"sshclient/pkg/sshc"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// Config holds all configuration for a client run
type Config struct {
	Verbose     string
	Keepalive   time.Duration
	Timeout     time.Duration
	Colorless   bool
	Key         string
	Passphrase  string
	AskPassword bool
	Target      string
	Actions     []Action
	// Stdout and Stderr default to the process streams
	Stdout io.Writer
	Stderr io.Writer
	// PasswordPrompt replaces the terminal prompt when set
	PasswordPrompt func() (string, error)
}

// RunClient connects to the configured target, reports the remote user and
// working directory, then runs every action in order.
func RunClient(ctx context.Context, cfg *Config) error {
	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	log := slog.NewLogger("Client")
	log.WithOutput(stderr)
	if f, ok := stderr.(*os.File); ok && term.IsTerminal(int(f.Fd())) && !cfg.Colorless {
		log.WithColors(true)
	}
	if lvErr := log.SetLevel(cfg.Verbose); lvErr != nil {
		return &sshc.ConfigError{Field: "log level", Value: cfg.Verbose, Err: lvErr}
	}

	params, pErr := connstr.Parse(cfg.Target)
	if pErr != nil {
		return &sshc.ConfigError{Field: "connection string", Value: connstr.Redact(cfg.Target), Err: pErr}
	}
	if cfg.AskPassword && !params.HasPassword() {
		password, aErr := cfg.askPassword(params, stderr)
		if aErr != nil {
			return aErr
		}
		params = params.WithPassword(password)
	}

	log.Debugf("Connecting to %s", params)
	s, cErr := sshc.Connect(ctx, params, &sshc.Config{
		KeyPath:           cfg.Key,
		KeyPassphrase:     cfg.Passphrase,
		LogLevel:          cfg.Verbose,
		Logger:            log,
		Timeout:           cfg.Timeout,
		KeepAliveInterval: cfg.Keepalive,
	})
	if cErr != nil {
		return cErr
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Debugf("Closing session: %v", err)
		}
	}()

	r := &runner{
		Logger:  log,
		session: s,
		stdout:  stdout,
		stderr:  stderr,
	}
	defer r.closeTransfer()

	for _, probe := range []string{"whoami", "pwd"} {
		out, rErr := r.capture(ctx, probe)
		if rErr != nil {
			return rErr
		}
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", probe, out)
	}

	for _, action := range cfg.Actions {
		if aErr := r.run(ctx, action); aErr != nil {
			return errors.Wrapf(aErr, "action %s", action)
		}
	}

	return nil
}

func (cfg *Config) askPassword(params connstr.Params, prompt io.Writer) (string, error) {
	if cfg.PasswordPrompt != nil {
		return cfg.PasswordPrompt()
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password prompt requires a terminal")
	}
	_, _ = fmt.Fprintf(prompt, "%s's password: ", params)
	password, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(prompt)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(password), nil
}

type runner struct {
	*slog.Logger
	session  *sshc.Session
	transfer *sshc.FileTransfer
	stdout   io.Writer
	stderr   io.Writer
}

// capture runs text and returns its trimmed buffered output
func (r *runner) capture(ctx context.Context, text string) (string, error) {
	c := r.session.Command(text)
	if err := c.Run(ctx); err != nil {
		return "", err
	}
	out, err := c.Stdout()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\r\n"), nil
}

func (r *runner) run(ctx context.Context, action Action) error {
	r.Debugf("Running %s", action)

	switch action.Verb {
	case ActionExec:
		return r.session.Command(action.Argument).
			SetStdout(r.stdout).
			SetStderr(r.stderr).
			Run(ctx)
	case ActionList:
		ft, err := r.fileTransfer()
		if err != nil {
			return err
		}
		dir := action.Argument
		if dir == "" {
			dir = "."
		}
		entries, err := ft.List(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			_, _ = fmt.Fprintln(r.stdout, entry)
		}
		return nil
	case ActionCat:
		ft, err := r.fileTransfer()
		if err != nil {
			return err
		}
		info, err := ft.Stat(action.Argument)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return errors.Errorf("%s is a directory", action.Argument)
		}
		n, err := ft.Download(action.Argument, r.stdout)
		if err != nil {
			return err
		}
		r.Debugf("Downloaded %d bytes from %s", n, action.Argument)
		return nil
	}

	return errors.Wrapf(ErrUnknownAction, "%q", action.Verb)
}

// fileTransfer opens the SFTP channel on first use
func (r *runner) fileTransfer() (*sshc.FileTransfer, error) {
	if r.transfer != nil {
		return r.transfer, nil
	}
	ft, err := r.session.OpenFileTransfer()
	if err != nil {
		return nil, err
	}
	r.transfer = ft
	return ft, nil
}

func (r *runner) closeTransfer() {
	if r.transfer == nil {
		return
	}
	if err := r.transfer.Close(); err != nil && !errors.Is(err, sshc.ErrTransferClosed) {
		r.Debugf("Closing file transfer: %v", err)
	}
}
