//go:build unix

package shutdownguard

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// defaultSignals are the termination-class signals: termination request, interrupt and terminal hangup.
func defaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP}
}

// flushFileSystems commits buffered file system writes to stable storage.
func flushFileSystems() {
	unix.Sync()
}

func writeStderr(b []byte) {
	_, _ = unix.Write(unix.Stderr, b)
}

func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	return sig.String()
}
