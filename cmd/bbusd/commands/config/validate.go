package config

import (
	"fmt"

	"github.com/marmos91/busybus/internal/config"
	"github.com/spf13/cobra"
)

var (
	validateSockPath string
	validateFile     string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the bbusd configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  bbusd config validate

  # Validate a specific config file
  bbusd config validate --config /etc/busybus/bbusd.yaml`,
	RunE: runConfigValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateSockPath, "sockpath", "", "socket path override to validate against")
	validateCmd.Flags().StringVar(&validateFile, "config", "", "config file to validate")
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(validateSockPath, validateFile)
	if err != nil {
		return err
	}

	fmt.Println("Validation: OK")
	fmt.Printf("  Socket path: %s\n", cfg.SockPath)
	fmt.Printf("  Log level:   %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
	fmt.Printf("  Metrics:     enabled=%t addr=%s\n", cfg.Metrics.Enabled, cfg.Metrics.Addr)
	fmt.Printf("  Telemetry:   enabled=%t endpoint=%s\n", cfg.Telemetry.Enabled, cfg.Telemetry.Endpoint)
	return nil
}
