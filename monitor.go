package shutdownguard

import (
	"fmt"
	"strings"
)

// Monitor watches one OS termination channel and executes the callbacks when it fires.
//
// Arm must return once monitoring is active, or with an error if it could not be activated.
// A Monitor is armed at most once per process.
type Monitor interface {
	Name() string
	Arm(x Executor) error
}

// MonitorKind identifies a built-in Monitor.
type MonitorKind int

const (
	// MonitorAuto selects the monitor native to the host OS:
	// the system bus on Linux, the console control handler on Windows and signals elsewhere.
	MonitorAuto MonitorKind = iota
	// MonitorSignals watches termination-class POSIX signals.
	MonitorSignals
	// MonitorSystemBus watches the systemd-logind PrepareForShutdown broadcast on the D-Bus system bus.
	MonitorSystemBus
	// MonitorConsole registers a Win32 console control handler.
	MonitorConsole
	// MonitorSessionWindow pumps a hidden Win32 window that receives session-end messages.
	MonitorSessionWindow
)

var monitorKindNames = map[MonitorKind]string{
	MonitorAuto:          "auto",
	MonitorSignals:       "signals",
	MonitorSystemBus:     "system-bus",
	MonitorConsole:       "console",
	MonitorSessionWindow: "session-window",
}

// String returns string representation of the MonitorKind.
func (k MonitorKind) String() string {
	if name, ok := monitorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MonitorKind(%d)", int(k))
}

// ParseMonitorKind converts a monitor name (as returned by MonitorKind.String) to a MonitorKind.
// The comparison is case-insensitive.
func ParseMonitorKind(s string) (MonitorKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for kind, name := range monitorKindNames {
		if name == s {
			return kind, nil
		}
	}
	return MonitorAuto, fmt.Errorf("unknown monitor %q", s)
}

// guardLogger forwards to whatever Logger the Guard currently has.
type guardLogger struct {
	g *Guard
}

func (l guardLogger) Printf(format string, v ...interface{}) {
	l.g.logger().Printf(format, v...)
}

// Start arms exactly one monitor for the process.
//
// It returns once the monitor is armed, an *ArmingError if arming was rejected by the OS,
// or ErrAlreadyArmed if any Guard already armed monitoring in this process.
// Failed arming may be retried.
func (g *Guard) Start() error {
	if !process.owner.CompareAndSwap(nil, g) {
		return ErrAlreadyArmed
	}

	m, err := g.resolveMonitor(&process.lc)
	if err != nil {
		process.owner.Store(nil)
		return &ArmingError{Monitor: g.monitorName(), Err: err}
	}

	if err := m.Arm(g); err != nil {
		process.owner.Store(nil)
		return &ArmingError{Monitor: m.Name(), Err: err}
	}
	process.lc.armed()

	g.logger().Printf("shutdown monitoring armed (monitor: %s, callbacks: %d)", m.Name(), g.CallbackCount())
	return nil
}

// State returns the process-wide monitoring State if this Guard armed it, StateIdle otherwise.
func (g *Guard) State() State {
	if process.owner.Load() != g {
		return StateIdle
	}
	return process.lc.current()
}

func (g *Guard) monitorName() string {
	if g.cfg.hasCustom {
		return "custom"
	}
	return g.cfg.monitor.String()
}

// resolveMonitor builds the monitor selected by the configuration.
func (g *Guard) resolveMonitor(lc *lifecycle) (Monitor, error) {
	if g.cfg.hasCustom {
		if g.cfg.custom == nil {
			return nil, ErrNilMonitor
		}
		return customMonitor{Monitor: g.cfg.custom, lc: lc}, nil
	}

	kind := g.cfg.monitor
	if kind == MonitorAuto {
		kind = platformMonitor
	}

	log := guardLogger{g: g}
	switch kind {
	case MonitorSignals:
		return newSignalMonitor(lc, g.cfg, log), nil
	case MonitorSystemBus:
		return newSystemBusMonitor(lc, g.cfg, log)
	case MonitorConsole:
		if installConsoleHandler == nil {
			return nil, ErrUnsupported
		}
		return newConsoleMonitor(lc, installConsoleHandler, log), nil
	case MonitorSessionWindow:
		if createSessionWindow == nil {
			return nil, ErrUnsupported
		}
		return newWindowMonitor(lc, createSessionWindow, log), nil
	default:
		return nil, fmt.Errorf("unknown %v", kind)
	}
}

// customMonitor arms a user-supplied Monitor with an Executor bound to the process-wide single-fire guard.
type customMonitor struct {
	Monitor
	lc *lifecycle
}

func (m customMonitor) Arm(x Executor) error {
	return m.Monitor.Arm(&onceExecutor{x: x, lc: m.lc})
}

// onceExecutor runs the callbacks for the first execution request only.
type onceExecutor struct {
	x  Executor
	lc *lifecycle
}

func (e *onceExecutor) ExecuteCallbacks() {
	if !e.lc.tryFire() {
		return
	}
	e.x.ExecuteCallbacks()
}

// TryExecuteCallbacks consumes the single fire even when the registry is busy, like the signal monitor does.
func (e *onceExecutor) TryExecuteCallbacks() bool {
	if !e.lc.tryFire() {
		return false
	}
	return e.x.TryExecuteCallbacks()
}

func (e *onceExecutor) CallbackCount() int {
	return e.x.CallbackCount()
}
