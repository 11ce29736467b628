package shutdownguard

import (
	"errors"
	"os"
	"os/signal"
	"time"
)

// signalMonitor executes the callbacks on the first delivered termination-class signal,
// flushes file systems and terminates the process.
//
// Signals are consumed by a single goroutine. The registry is only ever try-locked from it:
// a registration in flight at delivery time means callbacks are skipped rather than waited for,
// so the OS shutdown path is never held up by a stuck writer.
type signalMonitor struct {
	lc  *lifecycle
	log Logger

	signals     []os.Signal
	gracePeriod time.Duration
	exitCode    int
	exit        func(code int) // nil: keep the process alive after firing
	notice      bool

	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)
	flush  func()
	write  func(b []byte)

	notices map[os.Signal][]byte
	done    chan struct{}
}

func newSignalMonitor(lc *lifecycle, cfg config, log Logger) *signalMonitor {
	return &signalMonitor{
		lc:          lc,
		log:         log,
		signals:     cfg.signals,
		gracePeriod: cfg.gracePeriod,
		exitCode:    cfg.exitCode,
		exit:        cfg.exit,
		notice:      cfg.stderrNotice,
		notify:      signal.Notify,
		stop:        signal.Stop,
		flush:       flushFileSystems,
		write:       writeStderr,
		done:        make(chan struct{}),
	}
}

func (m *signalMonitor) Name() string {
	return MonitorSignals.String()
}

func (m *signalMonitor) Arm(x Executor) error {
	if len(m.signals) == 0 {
		return errors.New("no termination signals configured")
	}

	// Notices are rendered up front so the firing path does not format anything.
	m.notices = make(map[os.Signal][]byte, len(m.signals))
	for _, sig := range m.signals {
		m.notices[sig] = []byte("Received " + signalName(sig) + "\n")
	}

	ch := make(chan os.Signal, len(m.signals))
	m.notify(ch, m.signals...)

	go m.watch(x, ch)
	return nil
}

// watch waits for the first signal that wins the single-fire guard.
func (m *signalMonitor) watch(x Executor, ch chan os.Signal) {
	defer close(m.done)

	for sig := range ch {
		if !m.lc.tryFire() {
			continue
		}

		m.fire(x, sig)

		if m.exit == nil {
			m.stop(ch)
			m.log.Printf("shutdown callbacks executed on %v, process left running", sig)
			return
		}

		m.lc.terminated()
		m.exit(m.exitCode)
		return
	}
}

func (m *signalMonitor) fire(x Executor, sig os.Signal) {
	if m.notice {
		m.write(m.notices[sig])
	}

	if !x.TryExecuteCallbacks() {
		m.log.Printf("callback registry is busy on %v, shutdown callbacks skipped", sig)
	}

	m.flush()

	if m.gracePeriod > 0 {
		time.Sleep(m.gracePeriod)
	}
}
