//go:build !windows

package cv

import (
	"fmt"
	"image"
)

// WindowCapture is only implemented on Windows, where Imaging Edge Remote
// runs. Other platforms get a stub so the rest of the module still builds
// and tests.
type WindowCapture struct{}

// NewWindowCapture reports that window capture is unavailable here.
func NewWindowCapture(hwnd uintptr) (*WindowCapture, error) {
	return nil, fmt.Errorf("window capture is only supported on windows")
}

// CaptureFrame always fails on non-Windows builds.
func (wc *WindowCapture) CaptureFrame() (*image.RGBA, error) {
	return nil, fmt.Errorf("window capture is only supported on windows")
}

// Dimensions returns zero on non-Windows builds.
func (wc *WindowCapture) Dimensions() (width, height int) {
	return 0, 0
}
