//go:build windows

package shutdownguard

import (
	"golang.org/x/sys/windows"
)

var (
	modkernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procSetConsoleCtrlHandler = modkernel32.NewProc("SetConsoleCtrlHandler")
)

// setConsoleCtrlHandler adds handler in front of the process console control handlers,
// the Go runtime's own one included.
func setConsoleCtrlHandler(handler func(ctrlType uint32) uintptr) error {
	if err := procSetConsoleCtrlHandler.Find(); err != nil {
		return err
	}

	cb := windows.NewCallback(func(ctrlType uintptr) uintptr {
		return handler(uint32(ctrlType))
	})
	r, _, err := procSetConsoleCtrlHandler.Call(cb, 1)
	if r == 0 {
		return err
	}
	return nil
}
