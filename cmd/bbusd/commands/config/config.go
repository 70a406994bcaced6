// Package config implements the bbusd "config" subcommand group.
package config

import "github.com/spf13/cobra"

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Inspect and validate bbusd configuration.

Subcommands:
  validate  Validate configuration file
  schema    Generate JSON schema for IDE/validation`,
}

func init() {
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
}
