package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/skovtunenko/shutdownguard"
	"github.com/spf13/cobra"
)

// Instructions:
// - run the application: go run ./internal/example --output ./shutdown_time.txt
// - shut down or log off the machine (or send SIGTERM where signals are monitored)
// - investigate the output file and the log output

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		output     string
		monitor    string
	)

	cmd := &cobra.Command{
		Use:          "shutdownguard-example",
		Short:        "Records the time the OS shut the process down",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.OutputFile = output
			}
			if cmd.Flags().Changed("monitor") {
				cfg.Monitor = monitor
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "shutdownguard.toml", "path to the TOML configuration file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file receiving the shutdown timestamp")
	cmd.Flags().StringVarP(&monitor, "monitor", "m", "", "monitor: auto, signals, system-bus, console, session-window")
	return cmd
}

func run(cfg Config) error {
	logger, logCloser := newLogger(cfg)

	guard := shutdownguard.New(cfg.GuardOptions()...)
	guard.SetLogger(shutdownguard.SlogLogger(logger))

	var operations atomic.Uint64

	registerCallbacks(guard, cfg, logger, &operations)
	guard.WithName("logs").Register(func() {
		logger.Info("flushing logs")
		_ = logCloser.Close()
	})

	logger.Info("registered shutdown callbacks", slog.Int("count", guard.CallbackCount()))

	if err := guard.Start(); err != nil {
		_ = logCloser.Close()
		return fmt.Errorf("start shutdown monitoring: %w", err)
	}
	logger.Info("shutdown monitoring active", slog.String("monitor", cfg.Monitor), slog.String("output", cfg.OutputFile))

	ticker := time.NewTicker(cfg.Heartbeat)
	defer ticker.Stop()
	for range ticker.C {
		n := operations.Add(1)
		logger.Info("application still running", slog.Uint64("operation", n))
	}
	return nil
}

// registerCallbacks wires the application components that have to persist something before shutdown.
func registerCallbacks(guard *shutdownguard.Guard, cfg Config, logger *slog.Logger, operations *atomic.Uint64) {
	guard.WithName("shutdown-time").Register(func() {
		now := time.Now()
		content := fmt.Sprintf("Shutdown time: %s\nTimestamp: %d\nOperations: %d\n",
			now.Format("2006-01-02 15:04:05"), now.Unix(), operations.Load())

		if err := writeFileAtomic(cfg.OutputFile, []byte(content), 0o644); err != nil {
			logger.Error("write shutdown time", slog.Any("error", err))
			return
		}
		logger.Info("shutdown time written", slog.String("file", cfg.OutputFile))
	})
}
