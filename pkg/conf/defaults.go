package conf

import "time"

const (
	// Timeout acts as the general connection Timeout default value
	Timeout = 10 * time.Second

	// KeepAliveInterval is the period between server-alive probes on an idle connection
	KeepAliveInterval = 10 * time.Second

	// KeepAliveCountMax is the number of consecutive missed probes before the
	// connection is dropped. Large on purpose: long interactive sessions stay up.
	KeepAliveCountMax = 1000000

	// PollInterval is the wait between keep-alive probes while a command runs
	PollInterval = 1 * time.Second

	// DefaultPort is the SSH port used when a connection string carries none
	DefaultPort = 22

	// DefaultLogLevel is the verbosity of the SSH engine diagnostics
	DefaultLogLevel = "INFO"

	// SFTPBufferSize is the buffer size for SFTP file transfers (32KB)
	SFTPBufferSize = 32 * 1024

	// ClientVersion is the identification string sent to servers
	ClientVersion = "SSH-2.0-sshclient"
)
