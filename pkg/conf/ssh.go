package conf

// Standard SSH Channel Types
const (
	SSHChannelSession = "session"
)

// Standard SSH Request Types
const (
	SSHRequestExec       = "exec"
	SSHRequestSubsystem  = "subsystem"
	SSHRequestExitStatus = "exit-status"
	SSHRequestKeepAlive  = "keepalive@openssh.com"
)

// Subsystems
const (
	SSHSubsystemSFTP = "sftp"
)

// Authentication modes
const (
	AuthPassword  = "password"
	AuthPublicKey = "publickey"
)
