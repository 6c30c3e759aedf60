package sshc

import (
	"net"
	"os"
	"time"

	"sshclient/pkg/conf"
	"sshclient/pkg/connstr"
	"sshclient/pkg/slog"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// Config holds the per session settings. The zero value is usable: missing
// fields take their defaults from pkg/conf.
type Config struct {
	// KeyPath is the private key used when no password is given.
	// Defaults to ~/.ssh/id_rsa.
	KeyPath       string
	KeyPassphrase string
	// AgentSocket is dialed when the identity file does not exist.
	// Defaults to $SSH_AUTH_SOCK.
	AgentSocket string

	// LogLevel is one of DEBUG, INFO, WARN, ERROR, FATAL.
	LogLevel string
	Logger   *slog.Logger

	Timeout           time.Duration
	KeepAliveInterval time.Duration
	KeepAliveCountMax int
	PollInterval      time.Duration

	// HostKeyCallback defaults to accepting any host key.
	HostKeyCallback ssh.HostKeyCallback
}

func (c *Config) withDefaults() (*Config, error) {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = conf.DefaultLogLevel
	}
	if _, err := slog.ParseLevel(cfg.LogLevel); err != nil {
		return nil, &ConfigError{Field: "log level", Value: cfg.LogLevel, Err: err}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.NewLogger("ssh")
	}
	_ = cfg.Logger.SetLevel(cfg.LogLevel)

	if cfg.KeyPath == "" {
		cfg.KeyPath = conf.DefaultIdentity()
	}
	if cfg.AgentSocket == "" {
		cfg.AgentSocket = os.Getenv("SSH_AUTH_SOCK")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = conf.Timeout
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = conf.KeepAliveInterval
	}
	if cfg.KeepAliveCountMax <= 0 {
		cfg.KeepAliveCountMax = conf.KeepAliveCountMax
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = conf.PollInterval
	}
	if cfg.HostKeyCallback == nil {
		// Host identity is not verified: the tool trusts whatever answers.
		cfg.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	return &cfg, nil
}

// authMethod returns the authentication mode name and method for params.
// A non nil net.Conn is the ssh-agent connection backing the method.
func (c *Config) authMethod(params connstr.Params) (string, ssh.AuthMethod, net.Conn, error) {
	if params.HasPassword() {
		return conf.AuthPassword, ssh.Password(*params.Password), nil, nil
	}

	signer, err := c.loadIdentity()
	if err == nil {
		return conf.AuthPublicKey, ssh.PublicKeys(signer), nil, nil
	}
	if !errors.Is(err, os.ErrNotExist) || c.AgentSocket == "" {
		return conf.AuthPublicKey, nil, nil, err
	}

	c.Logger.Debugf("Identity %s not found, using agent at %s", c.KeyPath, c.AgentSocket)
	agentConn, dErr := net.Dial("unix", c.AgentSocket)
	if dErr != nil {
		return conf.AuthPublicKey, nil, nil, errors.Wrap(dErr, "failed to connect to SSH agent")
	}
	return conf.AuthPublicKey, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers), agentConn, nil
}

func (c *Config) loadIdentity() (ssh.Signer, error) {
	if c.KeyPath == "" {
		return nil, errors.Wrap(os.ErrNotExist, "no identity file")
	}
	pemBytes, err := os.ReadFile(c.KeyPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read identity %s", c.KeyPath)
	}

	signer, err := ssh.ParsePrivateKey(pemBytes)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) && c.KeyPassphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(c.KeyPassphrase))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse identity %s", c.KeyPath)
	}
	return signer, nil
}
