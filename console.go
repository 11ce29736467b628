package shutdownguard

import "fmt"

// Console control event codes delivered to handlers registered with SetConsoleCtrlHandler.
const (
	ctrlCEvent        = 0
	ctrlBreakEvent    = 1
	ctrlCloseEvent    = 2
	ctrlLogoffEvent   = 5
	ctrlShutdownEvent = 6
)

// isSessionEndEvent reports whether a console control event announces the end of the session.
// Ctrl+C and Ctrl+Break are interrupts, not terminations.
func isSessionEndEvent(ctrlType uint32) bool {
	switch ctrlType {
	case ctrlCloseEvent, ctrlLogoffEvent, ctrlShutdownEvent:
		return true
	default:
		return false
	}
}

func ctrlEventName(ctrlType uint32) string {
	switch ctrlType {
	case ctrlCEvent:
		return "CTRL_C_EVENT"
	case ctrlBreakEvent:
		return "CTRL_BREAK_EVENT"
	case ctrlCloseEvent:
		return "CTRL_CLOSE_EVENT"
	case ctrlLogoffEvent:
		return "CTRL_LOGOFF_EVENT"
	case ctrlShutdownEvent:
		return "CTRL_SHUTDOWN_EVENT"
	default:
		return fmt.Sprintf("console event %d", ctrlType)
	}
}

// consoleHandlerInstaller registers handler as a console control handler.
// The handler returns non-zero when it handled the event.
type consoleHandlerInstaller func(handler func(ctrlType uint32) uintptr) error

// consoleMonitor runs the callbacks on the OS-managed thread that delivers console control events.
// The OS terminates the process once the handler returns for a session-end event,
// so callbacks have to fit into the OS shutdown timeout.
type consoleMonitor struct {
	lc      *lifecycle
	log     Logger
	install consoleHandlerInstaller

	x Executor
}

func newConsoleMonitor(lc *lifecycle, install consoleHandlerInstaller, log Logger) *consoleMonitor {
	return &consoleMonitor{
		lc:      lc,
		log:     log,
		install: install,
	}
}

func (m *consoleMonitor) Name() string {
	return MonitorConsole.String()
}

func (m *consoleMonitor) Arm(x Executor) error {
	m.x = x
	if err := m.install(m.handle); err != nil {
		return fmt.Errorf("set console control handler: %w", err)
	}
	return nil
}

func (m *consoleMonitor) handle(ctrlType uint32) uintptr {
	if !isSessionEndEvent(ctrlType) {
		return 0
	}

	if m.lc.tryFire() {
		m.log.Printf("%s received, executing %d shutdown callback(s)", ctrlEventName(ctrlType), m.x.CallbackCount())
		m.x.ExecuteCallbacks()
		m.lc.terminated()
	}
	return 1
}
