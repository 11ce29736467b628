//go:build linux

package shutdownguard

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

type fakeInhibitorLock struct {
	closed atomic.Bool
}

func (l *fakeInhibitorLock) Close() error {
	l.closed.Store(true)
	return nil
}

// fakeBus is an in-memory busConn.
type fakeBus struct {
	matchErr   error
	inhibitErr error

	mx       sync.Mutex
	rules    []string
	ch       chan<- *dbus.Signal
	inhibits []string
	locks    []*fakeInhibitorLock

	disconnected atomic.Bool
	closed       atomic.Bool
}

var _ busConn = &fakeBus{}

func (b *fakeBus) AddMatch(rule string) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.rules = append(b.rules, rule)
	return b.matchErr
}

func (b *fakeBus) Signal(ch chan<- *dbus.Signal) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.ch = ch
}

func (b *fakeBus) Connected() bool {
	return !b.disconnected.Load()
}

func (b *fakeBus) Inhibit(what, who, why, mode string) (io.Closer, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.inhibits = append(b.inhibits, what+"/"+who+"/"+why+"/"+mode)
	if b.inhibitErr != nil {
		return nil, b.inhibitErr
	}
	lock := &fakeInhibitorLock{}
	b.locks = append(b.locks, lock)
	return lock, nil
}

func (b *fakeBus) Close() error {
	b.closed.Store(true)
	return nil
}

func (b *fakeBus) send(sig *dbus.Signal) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.ch <- sig
}

func (b *fakeBus) hangUp() {
	b.mx.Lock()
	defer b.mx.Unlock()
	close(b.ch)
}

func prepareForShutdownSignal(starting bool) *dbus.Signal {
	return &dbus.Signal{
		Sender: ":1.3",
		Path:   login1Path,
		Name:   login1Manager + "." + prepareForShutdown,
		Body:   []interface{}{starting},
	}
}

func newTestBusMonitor(bus *fakeBus, dialErr error, opts ...Option) (*busMonitor, *lifecycle, *recordingLogger) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	lc := &lifecycle{}
	logger := &recordingLogger{}
	m := newBusMonitor(lc, cfg, logger)
	m.dial = func() (busConn, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return bus, nil
	}
	return m, lc, logger
}

func waitBusMonitor(t *testing.T, m *busMonitor) {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(5 * time.Second):
		t.Fatal("system bus monitor did not stop")
	}
}

func TestBusMonitor_Arm(t *testing.T) {
	t.Parallel()

	t.Run("connection_refused", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("no such file or directory")
		m, _, _ := newTestBusMonitor(nil, cause)

		err := m.Arm(New())
		require.ErrorIs(t, err, cause)
		require.ErrorContains(t, err, "connect to system bus")
	})

	t.Run("subscription_rejected", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("access denied")
		bus := &fakeBus{matchErr: cause}
		m, _, _ := newTestBusMonitor(bus, nil)

		err := m.Arm(New())
		require.ErrorIs(t, err, cause)
		require.ErrorContains(t, err, "subscribe to org.freedesktop.login1.Manager.PrepareForShutdown")
		require.True(t, bus.closed.Load())
	})

	t.Run("subscribes_with_the_logind_match_rule", func(t *testing.T) {
		t.Parallel()

		bus := &fakeBus{}
		m, _, _ := newTestBusMonitor(bus, nil)
		require.NoError(t, m.Arm(New()))

		bus.hangUp()
		waitBusMonitor(t, m)

		require.Equal(t, []string{
			"type='signal',interface='org.freedesktop.login1.Manager',member='PrepareForShutdown'",
		}, bus.rules)
		require.True(t, bus.closed.Load())
	})
}

func TestBusMonitor_listen(t *testing.T) {
	t.Parallel()

	t.Run("repeated_broadcasts_fire_once", func(t *testing.T) {
		t.Parallel()

		bus := &fakeBus{}
		m, lc, logger := newTestBusMonitor(bus, nil)

		g := New()
		res := &orderedLog{}
		g.Register(res.appender("A"))
		g.Register(res.appender("B"))
		g.Register(res.appender("C"))

		require.NoError(t, m.Arm(g))

		bus.send(&dbus.Signal{Name: "org.freedesktop.login1.Manager.PrepareForSleep", Body: []interface{}{true}})
		bus.send(prepareForShutdownSignal(true))
		bus.send(prepareForShutdownSignal(true))
		bus.hangUp()
		waitBusMonitor(t, m)

		require.Equal(t, []string{"A", "B", "C"}, res.snapshot())
		require.Equal(t, StateFired, lc.current())
		require.True(t, logger.contains("PrepareForShutdown received, executing 3 shutdown callback(s)"))
		require.True(t, logger.contains("system bus signal channel closed"))
	})

	t.Run("cancelled_shutdown_does_not_fire", func(t *testing.T) {
		t.Parallel()

		bus := &fakeBus{}
		m, lc, logger := newTestBusMonitor(bus, nil)

		g := New()
		calls := 0
		g.Register(func() { calls++ })
		require.NoError(t, m.Arm(g))

		bus.send(prepareForShutdownSignal(false))
		bus.hangUp()
		waitBusMonitor(t, m)

		require.Zero(t, calls)
		require.Equal(t, StateIdle, lc.current())
		require.True(t, logger.contains("shutdown was cancelled"))
	})

	t.Run("disconnected_bus_stops_monitoring", func(t *testing.T) {
		t.Parallel()

		bus := &fakeBus{}
		m, _, logger := newTestBusMonitor(bus, nil, WithBusPollInterval(time.Millisecond))
		require.NoError(t, m.Arm(New()))

		bus.disconnected.Store(true)
		waitBusMonitor(t, m)

		require.True(t, logger.contains("system bus disconnected, shutdown monitoring stopped"))
		require.True(t, bus.closed.Load())
	})

	t.Run("inhibitor_is_held_until_callbacks_finish", func(t *testing.T) {
		t.Parallel()

		bus := &fakeBus{}
		m, _, _ := newTestBusMonitor(bus, nil, WithInhibitor("app", "saving state"))

		g := New()
		lockedDuringCallback := false
		g.Register(func() {
			bus.mx.Lock()
			defer bus.mx.Unlock()
			lockedDuringCallback = len(bus.locks) == 1 && !bus.locks[0].closed.Load()
		})
		require.NoError(t, m.Arm(g))

		bus.send(prepareForShutdownSignal(true))
		bus.hangUp()
		waitBusMonitor(t, m)

		require.True(t, lockedDuringCallback)
		require.Equal(t, []string{"shutdown/app/saving state/delay"}, bus.inhibits)
		require.Len(t, bus.locks, 1)
		require.True(t, bus.locks[0].closed.Load())
	})

	t.Run("cancelled_shutdown_before_firing_retakes_the_inhibitor", func(t *testing.T) {
		t.Parallel()

		bus := &fakeBus{}
		m, lc, _ := newTestBusMonitor(bus, nil, WithInhibitor("app", "saving state"))
		require.NoError(t, m.Arm(New()))

		bus.send(prepareForShutdownSignal(false))
		bus.hangUp()
		waitBusMonitor(t, m)

		require.Equal(t, StateIdle, lc.current())
		require.Len(t, bus.locks, 1)
		require.True(t, bus.locks[0].closed.Load())
	})

	t.Run("no_inhibitor_is_held_after_callbacks_ran", func(t *testing.T) {
		t.Parallel()

		bus := &fakeBus{}
		m, _, logger := newTestBusMonitor(bus, nil, WithInhibitor("app", "saving state"))

		g := New()
		calls := 0
		g.Register(func() { calls++ })
		require.NoError(t, m.Arm(g))

		bus.send(prepareForShutdownSignal(true))
		bus.send(prepareForShutdownSignal(false))
		bus.send(prepareForShutdownSignal(true))
		require.Eventually(t, func() bool {
			return logger.contains("received again, shutdown callbacks already executed")
		}, 5*time.Second, time.Millisecond)

		bus.mx.Lock()
		locks := append([]*fakeInhibitorLock(nil), bus.locks...)
		bus.mx.Unlock()

		require.Len(t, locks, 1)
		require.True(t, locks[0].closed.Load())
		require.Equal(t, 1, calls)

		bus.hangUp()
		waitBusMonitor(t, m)
	})

	t.Run("inhibitor_failure_is_not_fatal", func(t *testing.T) {
		t.Parallel()

		bus := &fakeBus{inhibitErr: errors.New("interactive authentication required")}
		m, _, logger := newTestBusMonitor(bus, nil, WithInhibitor("", ""))

		require.NoError(t, m.Arm(New()))
		bus.hangUp()
		waitBusMonitor(t, m)

		require.Equal(t, []string{"shutdown/shutdownguard/running shutdown callbacks/delay"}, bus.inhibits)
		require.True(t, logger.contains("shutdown will not be delayed for callbacks"))
	})
}

func Test_isPrepareForShutdown(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sig  *dbus.Signal
		want bool
	}{
		{name: "nil", sig: nil, want: false},
		{name: "prepare_for_shutdown", sig: prepareForShutdownSignal(true), want: true},
		{name: "other_member", sig: &dbus.Signal{Name: login1Manager + ".PrepareForSleep"}, want: false},
		{name: "other_interface", sig: &dbus.Signal{Name: "org.freedesktop.DBus.PrepareForShutdown"}, want: false},
		{name: "no_interface", sig: &dbus.Signal{Name: "PrepareForShutdown"}, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, isPrepareForShutdown(tt.sig))
		})
	}
}

func Test_shutdownStarting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []interface{}
		want bool
	}{
		{name: "starting", body: []interface{}{true}, want: true},
		{name: "cancelled", body: []interface{}{false}, want: false},
		{name: "empty_body", body: nil, want: true},
		{name: "malformed_body", body: []interface{}{"yes"}, want: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, shutdownStarting(&dbus.Signal{Body: tt.body}))
		})
	}
}
