package shutdownguard

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Callback is a registered cleanup action.
//
// Callbacks may be invoked from any goroutine, including the goroutine that received the OS notification.
type Callback func()

// Executor is a read-only view of the registered callbacks handed to a Monitor when it is armed.
type Executor interface {
	// ExecuteCallbacks runs every registered callback in registration order, waiting for registrations in flight.
	ExecuteCallbacks()

	// TryExecuteCallbacks is like ExecuteCallbacks but never waits for the registry:
	// if a registration holds it, nothing runs and false is returned.
	TryExecuteCallbacks() bool

	// CallbackCount returns the number of registered callbacks.
	CallbackCount() int
}

type entry struct {
	position int
	name     string
	fn       Callback
}

// String returns string representation of the registered callback.
func (e *entry) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.name == "" {
		return fmt.Sprintf("nameless callback (position: %d)", e.position)
	}
	return fmt.Sprintf("callback: %q (position: %d)", e.name, e.position)
}

var _ fmt.Stringer = &entry{}

type loggerBox struct {
	Logger
}

// Guard is a registry of shutdown callbacks that are executed, in registration order,
// once the OS announces the process is about to be terminated.
//
// The zero value is not usable, create instances with New.
type Guard struct {
	callbacksMx *sync.RWMutex
	callbacks   []entry

	cfg config

	log atomic.Value // loggerBox
}

var _ Executor = &Guard{}

// New creates an empty Guard configured with the given options.
//
// Nothing is monitored until Guard.Start is called.
func New(opts ...Option) *Guard {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	g := &Guard{
		callbacksMx: &sync.RWMutex{},
		cfg:         cfg,
	}
	g.SetLogger(cfg.logger)
	return g
}

// SetLogger sets the Logger implementation.
//
// If log is nil, then NOOP logger implementation will be used.
func (g *Guard) SetLogger(log Logger) {
	if log == nil {
		log = noopLogger{}
	}
	g.log.Store(loggerBox{Logger: log})
}

func (g *Guard) logger() Logger {
	if box, ok := g.log.Load().(loggerBox); ok {
		return box.Logger
	}
	return noopLogger{}
}

// Register appends the callback to the end of the execution sequence.
//
// Callbacks must not call back into the Guard that runs them: the registry is read-locked during execution.
func (g *Guard) Register(cb Callback) {
	g.register("", cb)
}

// WithName starts a registration chain that attaches a human-readable name to the callback.
// The name is only used in log output.
func (g *Guard) WithName(name string) *Registration {
	return &Registration{
		guard: g,
		name:  name,
	}
}

func (g *Guard) register(name string, cb Callback) {
	g.callbacksMx.Lock()
	defer g.callbacksMx.Unlock()
	g.callbacks = append(g.callbacks, entry{
		position: len(g.callbacks),
		name:     name,
		fn:       cb,
	})
}

// CallbackCount returns the number of callbacks registered since the last Clear.
func (g *Guard) CallbackCount() int {
	g.callbacksMx.RLock()
	defer g.callbacksMx.RUnlock()
	return len(g.callbacks)
}

// Clear removes all registered callbacks.
func (g *Guard) Clear() {
	g.callbacksMx.Lock()
	defer g.callbacksMx.Unlock()
	g.callbacks = nil
}

// ExecuteCallbacks synchronously runs every registered callback in registration order.
//
// The registry is read-locked for the whole iteration, so callbacks registered concurrently
// may or may not run. A panicking callback is recovered and logged; the rest of the sequence still runs.
// Each call runs the whole sequence again.
func (g *Guard) ExecuteCallbacks() {
	g.callbacksMx.RLock()
	defer g.callbacksMx.RUnlock()
	g.executeLocked()
}

// TryExecuteCallbacks runs the callbacks like ExecuteCallbacks only if the registry
// can be read-locked without waiting. It reports whether the callbacks were run.
func (g *Guard) TryExecuteCallbacks() bool {
	if !g.callbacksMx.TryRLock() {
		return false
	}
	defer g.callbacksMx.RUnlock()
	g.executeLocked()
	return true
}

func (g *Guard) executeLocked() {
	log := g.logger()
	for i := range g.callbacks {
		g.invoke(log, &g.callbacks[i])
	}
}

// invoke runs a single callback, bounded by the callback timeout if one is configured.
func (g *Guard) invoke(log Logger, e *entry) {
	if e.fn == nil {
		log.Printf("skipping nil %v", e)
		return
	}

	timeout := g.cfg.callbackTimeout
	if timeout <= 0 {
		call(log, e)
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		call(log, e)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-done:
	case <-t.C:
		log.Printf("registered %v timed out after %v, proceeding with the next one", e, timeout)
	}
}

func call(log Logger, e *entry) {
	start := time.Now()
	defer func() {
		if err := recover(); err != nil {
			log.Printf("registered %v panicked after %v, recovered: %+v", e, time.Since(start), err)
		}
	}()

	e.fn()
}
