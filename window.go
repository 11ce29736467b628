package shutdownguard

import "fmt"

const (
	wmQueryEndSession = 0x0011
	wmEndSession      = 0x0016
)

// windowProc handles a window message. handled=false defers to the default window procedure.
type windowProc func(msg uint32, wParam uintptr) (result uintptr, handled bool)

// sessionWindowCreator creates a hidden window dispatching its messages to proc and pumps its
// message loop on a dedicated thread. It returns once the window exists or could not be created.
type sessionWindowCreator func(proc windowProc) error

// windowMonitor receives session-end notifications through a hidden top-level window.
// Message-only windows do not get WM_QUERYENDSESSION/WM_ENDSESSION broadcasts.
type windowMonitor struct {
	lc     *lifecycle
	log    Logger
	create sessionWindowCreator

	x Executor
}

func newWindowMonitor(lc *lifecycle, create sessionWindowCreator, log Logger) *windowMonitor {
	return &windowMonitor{
		lc:     lc,
		log:    log,
		create: create,
	}
}

func (m *windowMonitor) Name() string {
	return MonitorSessionWindow.String()
}

func (m *windowMonitor) Arm(x Executor) error {
	m.x = x
	if err := m.create(m.dispatch); err != nil {
		return fmt.Errorf("create session window: %w", err)
	}
	return nil
}

func (m *windowMonitor) dispatch(msg uint32, wParam uintptr) (uintptr, bool) {
	switch msg {
	case wmQueryEndSession:
		// never veto the end of the session
		return 1, true
	case wmEndSession:
		if wParam != 0 && m.lc.tryFire() {
			m.log.Printf("WM_ENDSESSION received, executing %d shutdown callback(s)", m.x.CallbackCount())
			m.x.ExecuteCallbacks()
			m.lc.terminated()
		}
		return 0, true
	default:
		return 0, false
	}
}
