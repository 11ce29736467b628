//go:build !linux

package shutdownguard

// systemd-logind only exists on Linux.
func newSystemBusMonitor(*lifecycle, config, Logger) (Monitor, error) {
	return nil, ErrUnsupported
}
