// Package shutdownguard lets an application register cleanup callbacks that run exactly once,
// as late as possible, before the operating system terminates the process because of a system shutdown,
// logoff, console close or termination signal.
//
// Callbacks are kept in a [Guard] and executed in registration order. [Guard.Start] arms exactly one
// [Monitor] for the whole process:
//
//   - Linux: the systemd-logind PrepareForShutdown broadcast on the D-Bus system bus ([MonitorSystemBus]);
//   - Windows: a console control handler reacting to close, logoff and shutdown events ([MonitorConsole]),
//     or a hidden window receiving WM_ENDSESSION ([MonitorSessionWindow]);
//   - other Unix systems: SIGTERM, SIGINT and SIGHUP ([MonitorSignals]).
//
// Whatever the monitor, callbacks fire at most once per process, and a panicking callback does not stop the
// callbacks registered after it. The signal monitor flushes file systems and terminates the process right
// after the callbacks, unless [WithoutExit] is used.
//
// Example code:
//
//	func main() {
//		guard := shutdownguard.New(shutdownguard.WithLogger(log.Default()))
//
//		guard.WithName("state").Register(func() {
//			log.Println("saving application state...")
//		})
//		guard.Register(func() {
//			log.Println("closing database connections...")
//		})
//
//		if err := guard.Start(); err != nil {
//			log.Fatalf("start shutdown monitoring: %+v", err)
//		}
//
//		// application code ...
//	}
//
// Callbacks run on whatever goroutine received the OS notification and must not register further
// callbacks on the same Guard. The OS may kill the process before slow callbacks finish;
// [WithCallbackTimeout] bounds each one and, on Linux, [WithInhibitor] asks logind to wait for them.
package shutdownguard
