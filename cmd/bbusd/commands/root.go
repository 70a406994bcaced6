// Package commands implements the bbusd CLI: the daemon's own entrypoint.
package commands

import (
	"os"

	"github.com/marmos91/busybus/cmd/bbusd/commands/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "bbusd",
	Short: "busybus - a local IPC message bus daemon",
	Long: `bbusd is a single-host message bus: callers invoke dotted-path methods
hosted either in-process (built-ins) or by a registered service connection,
over a single Unix domain socket.

Use "bbusd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once by main.main.
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/busybus/bbusd.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(config.Cmd)
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error to stderr and exits with status 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
