package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/skovtunenko/shutdownguard"
)

// Config is the demo configuration, read from a TOML file.
type Config struct {
	// OutputFile receives the shutdown timestamp.
	OutputFile string `toml:"output_file"`
	// LogFile is the rotating log destination; empty logs to stderr only.
	LogFile string `toml:"log_file"`
	// LogMaxSizeMB is the size at which the log file is rotated.
	LogMaxSizeMB int `toml:"log_max_size_mb"`
	// Monitor is one of auto, signals, system-bus, console, session-window.
	Monitor string `toml:"monitor"`

	GracePeriod     time.Duration `toml:"grace_period"`
	CallbackTimeout time.Duration `toml:"callback_timeout"`
	Heartbeat       time.Duration `toml:"heartbeat"`

	// Inhibit delays logind shutdowns until the callbacks finished (Linux only).
	Inhibit bool `toml:"inhibit"`
	// KeepRunning leaves the process alive after signal-triggered callbacks.
	KeepRunning bool `toml:"keep_running"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		OutputFile:      "shutdown_time.txt",
		LogMaxSizeMB:    10,
		Monitor:         shutdownguard.MonitorAuto.String(),
		GracePeriod:     100 * time.Millisecond,
		CallbackTimeout: 5 * time.Second,
		Heartbeat:       10 * time.Second,
	}
}

// LoadConfig reads the TOML file at path on top of DefaultConfig.
// A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.OutputFile == "" {
		return errors.New("output_file must not be empty")
	}
	if _, err := shutdownguard.ParseMonitorKind(c.Monitor); err != nil {
		return err
	}
	if c.GracePeriod < 0 || c.CallbackTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Heartbeat <= 0 {
		return errors.New("heartbeat must be positive")
	}
	return nil
}

// GuardOptions converts the configuration into shutdownguard options.
func (c Config) GuardOptions() []shutdownguard.Option {
	kind, _ := shutdownguard.ParseMonitorKind(c.Monitor)

	opts := []shutdownguard.Option{
		shutdownguard.WithMonitor(kind),
		shutdownguard.WithGracePeriod(c.GracePeriod),
		shutdownguard.WithCallbackTimeout(c.CallbackTimeout),
	}
	if c.Inhibit {
		opts = append(opts, shutdownguard.WithInhibitor("shutdownguard-example", "writing shutdown time"))
	}
	if c.KeepRunning {
		opts = append(opts, shutdownguard.WithoutExit())
	}
	return opts
}
