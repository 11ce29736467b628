//go:build windows

package shutdownguard

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

const sessionWindowClass = "ShutdownGuardSessionWindow"

var (
	moduser32            = windows.NewLazySystemDLL("user32.dll")
	procRegisterClassExW = moduser32.NewProc("RegisterClassExW")
	procCreateWindowExW  = moduser32.NewProc("CreateWindowExW")
	procDefWindowProcW   = moduser32.NewProc("DefWindowProcW")
	procGetMessageW      = moduser32.NewProc("GetMessageW")
	procTranslateMessage = moduser32.NewProc("TranslateMessage")
	procDispatchMessageW = moduser32.NewProc("DispatchMessageW")
)

// wndClassEx mirrors WNDCLASSEXW.
type wndClassEx struct {
	size       uint32
	style      uint32
	wndProc    uintptr
	clsExtra   int32
	wndExtra   int32
	instance   windows.Handle
	icon       windows.Handle
	cursor     windows.Handle
	background windows.Handle
	menuName   *uint16
	className  *uint16
	iconSm     windows.Handle
}

// winMsg mirrors MSG.
type winMsg struct {
	hwnd    windows.HWND
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// runSessionWindow creates the hidden window on a goroutine locked to its OS thread for the
// rest of the process lifetime, since a window only receives messages on its creating thread.
func runSessionWindow(proc windowProc) error {
	ready := make(chan error, 1)

	go func() {
		runtime.LockOSThread()

		if err := createHiddenWindow(proc); err != nil {
			ready <- err
			return
		}
		ready <- nil

		pumpMessages()
	}()

	return <-ready
}

func createHiddenWindow(proc windowProc) error {
	var instance windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &instance); err != nil {
		return fmt.Errorf("get module handle: %w", err)
	}

	className, err := windows.UTF16PtrFromString(sessionWindowClass)
	if err != nil {
		return err
	}

	wndProc := windows.NewCallback(func(hwnd, msg, wParam, lParam uintptr) uintptr {
		if result, handled := proc(uint32(msg), wParam); handled {
			return result
		}
		r, _, _ := procDefWindowProcW.Call(hwnd, msg, wParam, lParam)
		return r
	})

	wc := wndClassEx{
		wndProc:   wndProc,
		instance:  instance,
		className: className,
	}
	wc.size = uint32(unsafe.Sizeof(wc))

	if atom, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); atom == 0 {
		return fmt.Errorf("register window class: %w", err)
	}

	// No WS_VISIBLE: the window exists only to receive session messages.
	hwnd, _, err := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(className)),
		0,
		0, 0, 0, 0,
		0,
		0,
		uintptr(instance),
		0,
	)
	if hwnd == 0 {
		return fmt.Errorf("create window: %w", err)
	}
	return nil
}

func pumpMessages() {
	var msg winMsg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		if int32(r) <= 0 {
			return
		}
		_, _, _ = procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		_, _, _ = procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}
