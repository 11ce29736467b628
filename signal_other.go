//go:build !unix && !windows

package shutdownguard

import "os"

func defaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func flushFileSystems() {}

func writeStderr(b []byte) {
	_, _ = os.Stderr.Write(b)
}

func signalName(sig os.Signal) string {
	return sig.String()
}
