//go:build windows

package shutdownguard

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

// defaultSignals are the signals the Go runtime synthesizes on Windows:
// os.Interrupt for Ctrl+C/Ctrl+Break and SIGTERM for close, logoff and shutdown events.
func defaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGTERM, os.Interrupt}
}

// flushFileSystems is a no-op: Windows only flushes per handle (FlushFileBuffers).
func flushFileSystems() {}

func writeStderr(b []byte) {
	var n uint32
	_ = windows.WriteFile(windows.Stderr, b, &n, nil)
}

func signalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGTERM:
		return "SIGTERM"
	case os.Interrupt:
		return "SIGINT"
	default:
		return sig.String()
	}
}
