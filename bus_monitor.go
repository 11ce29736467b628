//go:build linux

package shutdownguard

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	login1Destination = "org.freedesktop.login1"
	login1Path        = "/org/freedesktop/login1"
	login1Manager     = "org.freedesktop.login1.Manager"

	prepareForShutdown = "PrepareForShutdown"

	// prepareForShutdownRule is the match rule logind subscribers use; it must stay byte-exact.
	prepareForShutdownRule = "type='signal',interface='org.freedesktop.login1.Manager',member='PrepareForShutdown'"
)

// busConn is the part of a system bus connection the bus monitor relies on.
type busConn interface {
	// AddMatch subscribes the connection to broadcasts matching rule.
	AddMatch(rule string) error
	// Signal routes received broadcasts to ch.
	Signal(ch chan<- *dbus.Signal)
	Connected() bool
	// Inhibit takes a logind inhibitor lock; closing the returned value releases it.
	Inhibit(what, who, why, mode string) (io.Closer, error)
	Close() error
}

// busMonitor listens for the logind PrepareForShutdown broadcast on a background goroutine.
//
// The broadcast is advisory, so the listener keeps running after firing; the single-fire guard
// makes later broadcasts no-ops. If the bus goes away the listener stops and nothing else is detected.
type busMonitor struct {
	lc  *lifecycle
	log Logger

	dial         func() (busConn, error)
	pollInterval time.Duration
	inhibitor    *inhibitorConfig

	// lock is only touched by Arm and, afterwards, by the listener goroutine.
	lock io.Closer
	done chan struct{}
}

func newSystemBusMonitor(lc *lifecycle, cfg config, log Logger) (Monitor, error) {
	return newBusMonitor(lc, cfg, log), nil
}

func newBusMonitor(lc *lifecycle, cfg config, log Logger) *busMonitor {
	return &busMonitor{
		lc:           lc,
		log:          log,
		dial:         dialSystemBus,
		pollInterval: cfg.busPollInterval,
		inhibitor:    cfg.inhibitor,
		done:         make(chan struct{}),
	}
}

func (m *busMonitor) Name() string {
	return MonitorSystemBus.String()
}

func (m *busMonitor) Arm(x Executor) error {
	conn, err := m.dial()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}

	if err := conn.AddMatch(prepareForShutdownRule); err != nil {
		_ = conn.Close()
		return fmt.Errorf("subscribe to %s.%s: %w", login1Manager, prepareForShutdown, err)
	}

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)

	m.acquireInhibitor(conn)

	go m.listen(x, conn, signals)
	return nil
}

// listen waits, in bounded intervals, for broadcasts until the connection is lost.
func (m *busMonitor) listen(x Executor, conn busConn, signals <-chan *dbus.Signal) {
	defer close(m.done)
	defer func() {
		m.releaseInhibitor()
		_ = conn.Close()
	}()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				m.log.Printf("system bus signal channel closed, shutdown monitoring stopped")
				return
			}
			m.handle(x, conn, sig)
		case <-ticker.C:
			if !conn.Connected() {
				m.log.Printf("system bus disconnected, shutdown monitoring stopped")
				return
			}
		}
	}
}

func (m *busMonitor) handle(x Executor, conn busConn, sig *dbus.Signal) {
	if !isPrepareForShutdown(sig) {
		return
	}

	if !shutdownStarting(sig) {
		m.log.Printf("%s.%s: shutdown was cancelled", login1Manager, prepareForShutdown)
		if !m.lc.fired.isFired() {
			m.acquireInhibitor(conn)
		}
		return
	}

	if !m.lc.tryFire() {
		m.log.Printf("%s.%s received again, shutdown callbacks already executed", login1Manager, prepareForShutdown)
		m.releaseInhibitor()
		return
	}

	m.log.Printf("%s.%s received, executing %d shutdown callback(s)", login1Manager, prepareForShutdown, x.CallbackCount())
	x.ExecuteCallbacks()
	m.releaseInhibitor()
}

func (m *busMonitor) acquireInhibitor(conn busConn) {
	if m.inhibitor == nil || m.lock != nil {
		return
	}

	lock, err := conn.Inhibit("shutdown", m.inhibitor.who, m.inhibitor.why, "delay")
	if err != nil {
		m.log.Printf("shutdown will not be delayed for callbacks: %+v", err)
		return
	}
	m.lock = lock
}

func (m *busMonitor) releaseInhibitor() {
	if m.lock == nil {
		return
	}
	if err := m.lock.Close(); err != nil {
		m.log.Printf("release shutdown inhibitor: %+v", err)
	}
	m.lock = nil
}

// isPrepareForShutdown reports whether sig is the logind broadcast, matching by interface and member.
func isPrepareForShutdown(sig *dbus.Signal) bool {
	if sig == nil {
		return false
	}
	i := strings.LastIndexByte(sig.Name, '.')
	if i < 0 {
		return false
	}
	return sig.Name[:i] == login1Manager && sig.Name[i+1:] == prepareForShutdown
}

// shutdownStarting reads the broadcast payload: true announces a shutdown, false cancels one.
// A missing or malformed payload is treated as an announcement.
func shutdownStarting(sig *dbus.Signal) bool {
	if len(sig.Body) == 0 {
		return true
	}
	starting, ok := sig.Body[0].(bool)
	return !ok || starting
}
