package shutdownguard

import (
	"os"
	"time"
)

const (
	// defaultGracePeriod is how long the signal monitor waits for asynchronous I/O after flushing file systems.
	defaultGracePeriod = 100 * time.Millisecond

	// defaultBusPollInterval bounds every wait for the next system bus message.
	defaultBusPollInterval = time.Second

	defaultInhibitorWho = "shutdownguard"
	defaultInhibitorWhy = "running shutdown callbacks"
)

type inhibitorConfig struct {
	who string
	why string
}

type config struct {
	monitor   MonitorKind
	custom    Monitor
	hasCustom bool

	signals      []os.Signal
	gracePeriod  time.Duration
	exitCode     int
	exit         func(code int)
	stderrNotice bool

	busPollInterval time.Duration
	inhibitor       *inhibitorConfig

	callbackTimeout time.Duration

	logger Logger
}

func defaultConfig() config {
	return config{
		monitor:         MonitorAuto,
		signals:         defaultSignals(),
		gracePeriod:     defaultGracePeriod,
		exit:            os.Exit,
		busPollInterval: defaultBusPollInterval,
		logger:          noopLogger{},
	}
}

// Option configures a Guard.
type Option func(*config)

// WithMonitor selects the monitor armed by Guard.Start. MonitorAuto picks the one native to the host OS.
func WithMonitor(kind MonitorKind) Option {
	return func(c *config) {
		c.monitor = kind
	}
}

// WithCustomMonitor makes Guard.Start arm the given Monitor instead of a built-in one.
//
// The Executor handed to the Monitor shares the process-wide single-fire guard:
// only the first ExecuteCallbacks or TryExecuteCallbacks call runs the callbacks
// and moves Guard.State to StateFired, later calls do nothing.
func WithCustomMonitor(m Monitor) Option {
	return func(c *config) {
		c.custom = m
		c.hasCustom = true
	}
}

// WithSignals replaces the termination signals watched by the signal monitor.
func WithSignals(sig ...os.Signal) Option {
	return func(c *config) {
		c.signals = append([]os.Signal(nil), sig...)
	}
}

// WithGracePeriod sets the pause between flushing file systems and terminating the process
// in the signal monitor. Negative values are treated as zero.
func WithGracePeriod(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			d = 0
		}
		c.gracePeriod = d
	}
}

// WithExitCode sets the status the signal monitor terminates the process with. The default is 0.
func WithExitCode(code int) Option {
	return func(c *config) {
		c.exitCode = code
	}
}

// WithoutExit keeps the process alive after the signal monitor has executed the callbacks.
// Watched signals are released back to their default behavior, so the host decides what happens next.
func WithoutExit() Option {
	return func(c *config) {
		c.exit = nil
	}
}

// WithStderrNotice makes the signal monitor write a "Received <SIGNAL>" line straight to the
// standard error file descriptor before executing callbacks.
func WithStderrNotice() Option {
	return func(c *config) {
		c.stderrNotice = true
	}
}

// WithBusPollInterval bounds each wait of the system bus monitor for the next message.
// Non-positive values fall back to one second.
func WithBusPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d <= 0 {
			d = defaultBusPollInterval
		}
		c.busPollInterval = d
	}
}

// WithInhibitor makes the system bus monitor hold a logind "delay" inhibitor lock for shutdown,
// released right after the callbacks finish. Empty arguments fall back to library defaults.
//
// The delay is bounded by logind's InhibitDelayMaxSec.
func WithInhibitor(who, why string) Option {
	return func(c *config) {
		if who == "" {
			who = defaultInhibitorWho
		}
		if why == "" {
			why = defaultInhibitorWhy
		}
		c.inhibitor = &inhibitorConfig{who: who, why: why}
	}
}

// WithCallbackTimeout bounds the execution time of each callback. A callback exceeding it is abandoned
// (left running on its own goroutine) and the next one starts. Zero disables the watchdog.
func WithCallbackTimeout(d time.Duration) Option {
	return func(c *config) {
		c.callbackTimeout = d
	}
}

// WithLogger sets the Logger used by the Guard and its monitor.
func WithLogger(log Logger) Option {
	return func(c *config) {
		c.logger = log
	}
}
