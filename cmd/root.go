package cmd

import (
	"os"

	"sshclient/client"
	"sshclient/pkg/conf"

	"github.com/spf13/cobra"
)

var rootCmd = client.NewCommand()

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Shows Binary Build info",
	Run: func(cmd *cobra.Command, args []string) {
		conf.PrintVersion()
	},
}

// Execute runs the root command
func Execute() {
	rootCmd.SetArgs(client.NormalizeArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		// Error is already printed by the command, just exit
		os.Exit(1)
	}
}
