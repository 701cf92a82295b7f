//go:build windows

package remote

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procFindWindow          = user32.NewProc("FindWindowW")
	procPostMessage         = user32.NewProc("PostMessageW")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procIsWindow            = user32.NewProc("IsWindow")
)

const (
	wmKeyDown = 0x0100
	wmKeyUp   = 0x0101
	vkShift   = 0x10

	// keyHold is the down-to-up spacing of a posted key press.
	keyHold = 20 * time.Millisecond
)

type win32Window struct {
	hwnd uintptr
}

// findWindowByTitle locates a top-level window by its exact title.
func findWindowByTitle(title string) (Window, error) {
	titlePtr, err := syscall.UTF16PtrFromString(title)
	if err != nil {
		return nil, err
	}
	hwnd, _, _ := procFindWindow.Call(0, uintptr(unsafe.Pointer(titlePtr)))
	if hwnd == 0 {
		return nil, fmt.Errorf("window %q not found", title)
	}
	return &win32Window{hwnd: hwnd}, nil
}

func (w *win32Window) Handle() uintptr {
	return w.hwnd
}

// PostKey posts a down/up pair, bracketed by shift when requested.
// PostMessage is fire-and-forget: the Remote processes the press on its
// own message loop and never blocks the caller.
func (w *win32Window) PostKey(code byte, shift bool) error {
	if alive, _, _ := procIsWindow.Call(w.hwnd); alive == 0 {
		return fmt.Errorf("remote window is gone")
	}
	if shift {
		w.post(wmKeyDown, vkShift)
	}
	w.post(wmKeyDown, uintptr(code))
	time.Sleep(keyHold)
	w.post(wmKeyUp, uintptr(code))
	if shift {
		w.post(wmKeyUp, vkShift)
	}
	return nil
}

func (w *win32Window) post(msg, key uintptr) {
	procPostMessage.Call(w.hwnd, msg, key, 0)
}

func (w *win32Window) Foreground() error {
	if ret, _, _ := procSetForegroundWindow.Call(w.hwnd); ret == 0 {
		return fmt.Errorf("could not foreground the remote window")
	}
	return nil
}
