// Package config loads and validates busybus's daemon configuration:
// socket path, logging, metrics, and telemetry/profiling settings. Values
// are read from a config file (if present), environment variables
// prefixed BBUSD_, and finally command-line flags, in increasing order of
// precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/marmos91/busybus/internal/telemetry"
)

// DefaultSockPath is used when neither BBUS_SOCKPATH nor --sockpath is
// given (spec §6).
const DefaultSockPath = "/tmp/bbus.sock"

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
	Output string `mapstructure:"output" validate:"required"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// Config is the complete daemon configuration.
type Config struct {
	SockPath  string                    `mapstructure:"sock_path" validate:"required,max=256"`
	Logging   LoggingConfig             `mapstructure:"logging" validate:"required"`
	Metrics   MetricsConfig             `mapstructure:"metrics" validate:"required"`
	Telemetry telemetry.Config          `mapstructure:"telemetry"`
	Profiling telemetry.ProfilingConfig `mapstructure:"profiling"`
}

// Default returns the configuration busybus runs with absent any file,
// environment, or flag overrides.
func Default() Config {
	return Config{
		SockPath: DefaultSockPath,
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
		Telemetry: telemetry.DefaultConfig(),
		Profiling: telemetry.ProfilingConfig{Enabled: false},
	}
}

// Validate checks cfg against its struct tags.
func Validate(cfg Config) error {
	return validator.New().Struct(cfg)
}

// setupViper wires the standard file/env precedence: a config file
// discovered via BBUSD_CONFIG or the XDG config directory, overridden by
// BBUSD_-prefixed environment variables.
func setupViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("BBUSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if p := os.Getenv("BBUSD_CONFIG"); p != "" {
		v.SetConfigFile(p)
	} else {
		v.SetConfigName("bbusd")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}
	return v
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "busybus")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/busybus"
	}
	return filepath.Join(home, ".config", "busybus")
}

// decodeHooks composes the mapstructure decode hooks Load needs: the
// library's standard string-to-X conversions plus nothing domain-specific
// (unlike the teacher's byte-size/duration hooks, busybus's config has no
// fields that need them).
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// Load reads, decodes, defaults, and validates the configuration.
// sockPathFlag and configFileFlag, when non-empty, take precedence over
// the file/environment values (the daemon flag wins per spec §6).
func Load(sockPathFlag, configFileFlag string) (Config, error) {
	cfg := Default()

	if configFileFlag != "" {
		os.Setenv("BBUSD_CONFIG", configFileFlag)
	}
	v := setupViper()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	decoderOpt := viper.DecodeHook(decodeHooks())
	if err := v.Unmarshal(&cfg, decoderOpt); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if sockPathFlag != "" {
		cfg.SockPath = sockPathFlag
	} else if env := os.Getenv("BBUS_SOCKPATH"); env != "" && cfg.SockPath == DefaultSockPath {
		// BBUS_SOCKPATH (no BBUSD_ prefix) is the client-library-compatible
		// override named explicitly in spec §6, distinct from this
		// package's own BBUSD_* environment namespace.
		cfg.SockPath = env
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad calls Load and exits the process on error, for use at daemon
// startup where there is no sensible way to continue.
func MustLoad(sockPathFlag, configFileFlag string) Config {
	cfg, err := Load(sockPathFlag, configFileFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "busybus: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
