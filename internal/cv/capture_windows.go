//go:build windows

package cv

import (
	"fmt"
	"image"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	gdi32          = windows.NewLazySystemDLL("gdi32.dll")
	procGetDC      = user32.NewProc("GetDC")
	procReleaseDC  = user32.NewProc("ReleaseDC")
	procClientRect = user32.NewProc("GetClientRect")
	procCreateDC   = gdi32.NewProc("CreateCompatibleDC")
	procCreateBmp  = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObj  = gdi32.NewProc("SelectObject")
	procBitBlt     = gdi32.NewProc("BitBlt")
	procDeleteDC   = gdi32.NewProc("DeleteDC")
	procDeleteObj  = gdi32.NewProc("DeleteObject")
	procGetDIBits  = gdi32.NewProc("GetDIBits")
)

const (
	srcCopy      = 0x00CC0020
	biRGB        = 0
	dibRGBColors = 0
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// WindowCapture grabs the client area of one window handle via BitBlt.
type WindowCapture struct {
	hwnd   uintptr
	width  int
	height int
}

// NewWindowCapture creates a capturer bound to a window handle.
func NewWindowCapture(hwnd uintptr) (*WindowCapture, error) {
	if hwnd == 0 {
		return nil, fmt.Errorf("invalid window handle")
	}
	wc := &WindowCapture{hwnd: hwnd}
	if err := wc.refreshDimensions(); err != nil {
		return nil, err
	}
	return wc, nil
}

func (wc *WindowCapture) refreshDimensions() error {
	var rect winRect
	ret, _, err := procClientRect.Call(wc.hwnd, uintptr(unsafe.Pointer(&rect)))
	if ret == 0 {
		return fmt.Errorf("GetClientRect: %v", err)
	}
	wc.width = int(rect.Right - rect.Left)
	wc.height = int(rect.Bottom - rect.Top)
	if wc.width <= 0 || wc.height <= 0 {
		return fmt.Errorf("window has invalid dimensions %dx%d", wc.width, wc.height)
	}
	return nil
}

// CaptureFrame copies the window's client area into an RGBA image.
func (wc *WindowCapture) CaptureFrame() (*image.RGBA, error) {
	hdcWindow, _, err := procGetDC.Call(wc.hwnd)
	if hdcWindow == 0 {
		return nil, fmt.Errorf("GetDC: %v", err)
	}
	defer procReleaseDC.Call(wc.hwnd, hdcWindow)

	hdcMem, _, err := procCreateDC.Call(hdcWindow)
	if hdcMem == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC: %v", err)
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, err := procCreateBmp.Call(hdcWindow, uintptr(wc.width), uintptr(wc.height))
	if hBitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap: %v", err)
	}
	defer procDeleteObj.Call(hBitmap)

	procSelectObj.Call(hdcMem, hBitmap)

	ret, _, err := procBitBlt.Call(
		hdcMem, 0, 0,
		uintptr(wc.width), uintptr(wc.height),
		hdcWindow, 0, 0, srcCopy,
	)
	if ret == 0 {
		return nil, fmt.Errorf("BitBlt: %v", err)
	}

	var bi bitmapInfo
	bi.Header.Size = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.Width = int32(wc.width)
	bi.Header.Height = -int32(wc.height) // negative selects a top-down bitmap
	bi.Header.Planes = 1
	bi.Header.BitCount = 32
	bi.Header.Compression = biRGB

	buffer := make([]byte, wc.width*wc.height*4)
	ret, _, err = procGetDIBits.Call(
		hdcMem, hBitmap, 0,
		uintptr(wc.height),
		uintptr(unsafe.Pointer(&buffer[0])),
		uintptr(unsafe.Pointer(&bi)),
		dibRGBColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits: %v", err)
	}

	// GDI hands back BGRA
	img := image.NewRGBA(image.Rect(0, 0, wc.width, wc.height))
	for i := 0; i < len(buffer); i += 4 {
		img.Pix[i] = buffer[i+2]
		img.Pix[i+1] = buffer[i+1]
		img.Pix[i+2] = buffer[i]
		img.Pix[i+3] = buffer[i+3]
	}
	return img, nil
}

// Dimensions returns the captured client-area size.
func (wc *WindowCapture) Dimensions() (width, height int) {
	return wc.width, wc.height
}
