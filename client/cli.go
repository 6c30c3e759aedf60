package client

import (
	"strings"
	"time"

	"sshclient/pkg/conf"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const usageTemplate = `Usage:
  {{.UseLine}}

Actions (run in order, after reporting the remote whoami and pwd):
  exec=<command>    Executes the command, redirecting stdout and stderr
  ls=<directory>    Lists a remote directory to stdout
  cat=<file>        Dumps a remote file to stdout
{{if .HasAvailableSubCommands}}
Commands:{{range .Commands}}{{if .IsAvailableCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}
{{end}}
Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
`

// NewCommand creates the client cobra command
func NewCommand() *cobra.Command {
	var (
		verbose     string
		keepalive   time.Duration
		timeout     time.Duration
		colorless   bool
		key         string
		passphrase  string
		askPassword bool
	)

	cmd := &cobra.Command{
		Use:   "sshclient <[user[:password]@]host[:port]> [exec=<command>|ls=<dir>|cat=<file>]...",
		Short: "Scriptable SSH and SFTP client",
		Long: `Connects to an SSH server, reports the remote user and working directory,
then runs the given actions in order: remote commands and SFTP listings or downloads.

Without a password in the connection string the private key ~/.ssh/id_rsa
(or --key) is used, falling back to a running ssh-agent.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Nothing to connect to: print usage and leave without error
			if len(args) == 0 {
				return cmd.Help()
			}

			actions, aErr := ParseActions(args[1:])
			if aErr != nil {
				return aErr
			}

			cfg := &Config{
				Verbose:     verbose,
				Keepalive:   keepalive,
				Timeout:     timeout,
				Colorless:   colorless,
				Key:         key,
				Passphrase:  passphrase,
				AskPassword: askPassword,
				Target:      args[0],
				Actions:     actions,
			}

			return RunClient(cmd.Context(), cfg)
		},
	}

	// Define flags
	cmd.Flags().StringVarP(&verbose, "log", "l", conf.DefaultLogLevel, "Sets the log level [DEBUG|INFO|WARN|ERROR|FATAL]")
	cmd.Flags().DurationVar(&keepalive, "keepalive", conf.KeepAliveInterval, "Sets the server-alive interval")
	cmd.Flags().DurationVar(&timeout, "timeout", conf.Timeout, "Sets the connection timeout")
	cmd.Flags().BoolVar(&colorless, "colorless", false, "Disables logging colors")
	cmd.Flags().StringVar(&key, "key", "", "Private key for public key authentication (default ~/.ssh/id_rsa)")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase of an encrypted private key")
	cmd.Flags().BoolVar(&askPassword, "ask-password", false, "Prompts for the password instead of using a key")
	cmd.Flags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		// --verbose was the historical name of --log
		if name == "verbose" {
			name = "log"
		}
		return pflag.NormalizedName(name)
	})
	cmd.Flags().SetInterspersed(true)
	cmd.SetUsageTemplate(usageTemplate)

	return cmd
}

// NormalizeArgs rewrites the single dash long options accepted historically
// (-log=, -exec=, -ls=, -cat=) into their current form.
func NormalizeArgs(args []string) []string {
	normalized := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case strings.HasPrefix(arg, "-log="):
			arg = "-" + arg
		case strings.HasPrefix(arg, "-"+ActionExec+"="),
			strings.HasPrefix(arg, "-"+ActionList+"="),
			strings.HasPrefix(arg, "-"+ActionCat+"="):
			arg = arg[1:]
		}
		normalized = append(normalized, arg)
	}
	return normalized
}
