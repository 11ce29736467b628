//go:build linux

package shutdownguard

// platformMonitor listens to systemd-logind, which announces shutdowns before any signal is sent.
const platformMonitor = MonitorSystemBus

var (
	installConsoleHandler consoleHandlerInstaller
	createSessionWindow   sessionWindowCreator
)
