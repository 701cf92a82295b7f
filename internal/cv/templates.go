package cv

import "image"

// Template describes a reference image used for screen-state detection.
type Template struct {
	Name      string
	Path      string
	Threshold float64
	Region    *Region
	Scale     float64
}

// WithThreshold returns a copy with the matching threshold replaced.
func (t Template) WithThreshold(threshold float64) Template {
	t.Threshold = threshold
	return t
}

// InRegion returns a copy restricted to a search region.
func (t Template) InRegion(x1, y1, x2, y2 int) Template {
	r := Region{X1: x1, Y1: y1, X2: x2, Y2: y2}
	t.Region = &r
	return t
}

// Region is a rectangular area of the captured window.
type Region struct {
	X1, Y1, X2, Y2 int
}

// ToImageRectangle converts the region for use with matching.
func (r Region) ToImageRectangle() *image.Rectangle {
	rect := image.Rect(r.X1, r.Y1, r.X2, r.Y2)
	return &rect
}

// Width returns the region width in pixels.
func (r Region) Width() int { return r.X2 - r.X1 }

// Height returns the region height in pixels.
func (r Region) Height() int { return r.Y2 - r.Y1 }
