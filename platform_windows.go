//go:build windows

package shutdownguard

const platformMonitor = MonitorConsole

var (
	installConsoleHandler consoleHandlerInstaller = setConsoleCtrlHandler
	createSessionWindow   sessionWindowCreator    = runSessionWindow
)
