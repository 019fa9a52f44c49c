package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomato-sh/tomato"
	"github.com/tomato-sh/tomato/config"
	"github.com/tomato-sh/tomato/internal/metrics"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// serveCmd starts the timer server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the timer server",
	Long: `Start the tomato timer server.

The server will:
  - Bind the configured port (probing nearby ports if it is busy)
  - Open your default browser at the timer page
  - Shut itself down once the tab is closed or goes silent

The server also stops on Ctrl+C or SIGTERM; both exit with status 0.

Example:
  tomato serve
  tomato serve --port 9000 --no-browser
  tomato serve -c /path/to/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (default: user config dir)")
	serveCmd.Flags().Int("port", 0, "port for this session only, overriding the config file")
	serveCmd.Flags().Bool("no-browser", false, "do not open the browser on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configFile = path
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// CLI port beats the config file for this session only
	port := cfg.Port
	if sessionPort, _ := cmd.Flags().GetInt("port"); cmd.Flags().Changed("port") {
		port = sessionPort
	}
	noBrowser, _ := cmd.Flags().GetBool("no-browser")

	metrics.SetBuildInfo(version, commit, date)

	opts := []tomato.Option{
		tomato.WithPort(port),
		tomato.WithHeartbeatTimeout(cfg.HeartbeatTimeout.Duration()),
		tomato.WithGracePeriod(cfg.GracePeriod.Duration()),
		tomato.WithCheckInterval(cfg.CheckInterval.Duration()),
		tomato.WithWarmup(cfg.Warmup.Duration()),
		tomato.WithOpenBrowser(!noBrowser),
		tomato.WithLogger(logger),
	}
	if cfg.Title != "" {
		opts = append(opts, tomato.WithTitle(cfg.Title))
	}

	app, err := tomato.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	logger.Info("starting server",
		"port", port,
		"heartbeat_timeout", cfg.HeartbeatTimeout.Duration().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start server - blocks until the tab goes away or a signal arrives
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
