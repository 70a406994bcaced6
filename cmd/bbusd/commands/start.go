package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/busybus/internal/config"
	"github.com/marmos91/busybus/internal/daemon"
	"github.com/marmos91/busybus/internal/diag"
	"github.com/marmos91/busybus/internal/logger"
	"github.com/marmos91/busybus/internal/metrics"
	"github.com/marmos91/busybus/internal/telemetry"
)

var (
	sockPathFlag string
	// foreground is accepted for command-line compatibility with the
	// original bbusd, which forked and detached by default. Go has no
	// idiomatic equivalent to a double-fork daemonize, so bbusd always
	// runs in the foreground regardless of this flag's value.
	foreground bool
)

// shutdownTimeout bounds how long the diagnostics HTTP server is given to
// drain in-flight requests during graceful shutdown.
const shutdownTimeout = 5 * time.Second

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the busybus daemon",
	Long: `Start the busybus daemon, binding the Unix domain socket and serving
callers and services until interrupted.

Examples:
  # Start with defaults
  bbusd start

  # Start against a specific socket path
  bbusd start --sockpath /run/busybus/bbus.sock

  # Start with a specific config file
  bbusd start --config /etc/busybus/bbusd.yaml`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&sockPathFlag, "sockpath", "", "bus socket path (overrides config and BBUS_SOCKPATH)")
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", true, "run in foreground (always true; accepted for compatibility)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg := config.MustLoad(sockPathFlag, GetConfigFile())

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := cfg.Telemetry
	telemetryCfg.ServiceName = "bbusd"
	telemetryCfg.ServiceVersion = Version
	telemetryCfg.SockPath = cfg.SockPath
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingCfg := cfg.Profiling
	profilingCfg.ServiceName = "bbusd"
	profilingCfg.ServiceVersion = Version
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("starting busybus daemon", "sock_path", cfg.SockPath)
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Profiling.Endpoint)
	}

	reg := prometheus.NewRegistry()
	d := daemon.New(cfg.SockPath, logger.Logger())
	d.SetMetrics(metrics.New(reg))

	var diagSrv *diag.Server
	if cfg.Metrics.Enabled {
		diagSrv = diag.New(cfg.Metrics.Addr, reg)
		logger.Info("diagnostics server enabled", "addr", cfg.Metrics.Addr)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.Run(gctx)
	})

	if diagSrv != nil {
		g.Go(func() error {
			return diagSrv.ListenAndServe()
		})
	}

	g.Go(func() error {
		return handleSignals(gctx, cancel, d, diagSrv)
	})

	logger.Info("busybus daemon running, press Ctrl+C to stop")
	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Error("daemon exited with error", "error", err)
		return err
	}

	logger.Info("busybus daemon stopped")
	return nil
}

// handleSignals blocks until ctx is cancelled (normal shutdown path), or
// until SIGINT/SIGTERM requests shutdown, dumping diagnostics to stdout on
// every SIGHUP in the meantime. Returns nil in all cases so it never
// becomes the error that fails the errgroup.
func handleSignals(ctx context.Context, cancel context.CancelFunc, d *daemon.Daemon, diagSrv *diag.Server) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			if diagSrv != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
				_ = diagSrv.Shutdown(shutdownCtx)
				shutdownCancel()
			}
			return nil
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				d.Dump(os.Stdout)
			default:
				logger.Info("shutdown signal received", "signal", sig.String())
				cancel()
			}
		}
	}
}
