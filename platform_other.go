//go:build !linux && !windows

package shutdownguard

const platformMonitor = MonitorSignals

var (
	installConsoleHandler consoleHandlerInstaller
	createSessionWindow   sessionWindowCreator
)
