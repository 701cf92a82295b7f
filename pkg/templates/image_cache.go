package templates

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/M-Enderle/FocusStack/internal/cv"
)

// ImageCache holds decoded template images so repeated polling does not
// re-read them from disk.
type ImageCache struct {
	mu      sync.RWMutex
	entries map[string]*cachedImage
}

type cachedImage struct {
	tmpl cv.Template
	img  *image.RGBA
	mu   sync.Mutex
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{entries: make(map[string]*cachedImage)}
}

// Register adds a template, optionally decoding it immediately.
func (ic *ImageCache) Register(tmpl cv.Template, preload bool) error {
	entry := &cachedImage{tmpl: tmpl}
	if preload {
		if err := entry.load(); err != nil {
			return err
		}
	}
	ic.mu.Lock()
	ic.entries[tmpl.Name] = entry
	ic.mu.Unlock()
	return nil
}

// Get returns the decoded image for a template, loading on first use.
func (ic *ImageCache) Get(name string) (*image.RGBA, cv.Template, error) {
	ic.mu.RLock()
	entry, ok := ic.entries[name]
	ic.mu.RUnlock()
	if !ok {
		return nil, cv.Template{}, fmt.Errorf("template %q not registered", name)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.img == nil {
		if err := entry.load(); err != nil {
			return nil, cv.Template{}, err
		}
	}
	return entry.img, entry.tmpl, nil
}

// UnloadAll drops decoded images while keeping registrations.
func (ic *ImageCache) UnloadAll() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	for _, entry := range ic.entries {
		entry.mu.Lock()
		entry.img = nil
		entry.mu.Unlock()
	}
}

func (ci *cachedImage) load() error {
	file, err := os.Open(ci.tmpl.Path)
	if err != nil {
		return fmt.Errorf("open template image %s: %w", ci.tmpl.Path, err)
	}
	defer file.Close()

	decoded, err := png.Decode(file)
	if err != nil {
		return fmt.Errorf("decode template image %s: %w", ci.tmpl.Path, err)
	}

	rgba := toRGBA(decoded)
	if ci.tmpl.Scale > 0 && ci.tmpl.Scale != 1.0 {
		rgba = scale(rgba, ci.tmpl.Scale)
	}
	ci.img = rgba
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	xdraw.Draw(rgba, bounds, img, bounds.Min, xdraw.Src)
	return rgba
}

// scale resizes a template for windows captured at a different UI scale.
func scale(src *image.RGBA, factor float64) *image.RGBA {
	b := src.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
