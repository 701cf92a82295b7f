package cv

import "image"

// Capturer produces frames of the controlled window's client area.
type Capturer interface {
	CaptureFrame() (*image.RGBA, error)
	Dimensions() (width, height int)
}
