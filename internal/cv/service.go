package cv

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
)

// Template names the service resolves through its source. The reference
// assets come from the Imaging Edge Remote window: the exposure indicator
// that brightens when the camera is idle, and the file-transfer widget in
// its finished state.
const (
	ReadyTemplateName    = "camera_ready"
	TransferTemplateName = "transfer_complete"
)

// Default detection thresholds, matching the reference assets.
const (
	readyMatchThreshold    = 0.9
	transferMatchThreshold = 0.985
)

// ErrTemplateMissing reports a reference asset that could not be loaded.
// This is a configuration fault, never retried.
var ErrTemplateMissing = errors.New("reference template missing")

// TemplateSource resolves template names to decoded images. Implemented
// by the templates registry.
type TemplateSource interface {
	Image(name string) (*image.RGBA, Template, error)
}

// Service bundles frame capture and template matching into the two
// predicates the capture loop polls.
type Service struct {
	capturer Capturer
	source   TemplateSource

	// Polls arrive every 100ms; a short-lived frame cache lets multiple
	// predicates inspect the same capture.
	cachedFrame   *image.RGBA
	cachedAt      time.Time
	cacheDuration time.Duration

	mu sync.Mutex
}

// NewService creates a vision service over a capturer and template source.
func NewService(capturer Capturer, source TemplateSource) *Service {
	return &Service{
		capturer:      capturer,
		source:        source,
		cacheDuration: 50 * time.Millisecond,
	}
}

// Sample captures the current visual state of the controlled window.
func (s *Service) Sample() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedFrame != nil && time.Since(s.cachedAt) < s.cacheDuration {
		return s.cachedFrame, nil
	}

	frame, err := s.capturer.CaptureFrame()
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	s.cachedFrame = frame
	s.cachedAt = time.Now()
	return frame, nil
}

// InvalidateCache forces the next Sample to capture a fresh frame.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.cachedFrame = nil
	s.mu.Unlock()
}

// MatchReadiness locates the camera-ready indicator in the frame and, when
// matched, returns the peak brightness of the matched region. A missing
// reference asset is returned as an error, not a failed match.
func (s *Service) MatchReadiness(frame *image.RGBA) (brightness int, matched bool, err error) {
	needle, tmpl, err := s.source.Image(ReadyTemplateName)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, ReadyTemplateName, err)
	}

	config := &MatchConfig{Method: MethodNCC, Threshold: thresholdOr(tmpl, readyMatchThreshold)}
	if tmpl.Region != nil {
		config.SearchRegion = tmpl.Region.ToImageRectangle()
	}

	result := FindTemplate(frame, needle, config)
	if !result.Found {
		return 0, false, nil
	}

	nb := needle.Bounds()
	region := image.Rect(
		result.Location.X,
		result.Location.Y,
		result.Location.X+nb.Dx(),
		result.Location.Y+nb.Dy(),
	)
	return MaxBrightness(frame, region), true, nil
}

// MatchTransfer returns the confidence that the transfer-complete widget
// is showing in the frame.
func (s *Service) MatchTransfer(frame *image.RGBA) (float64, error) {
	needle, tmpl, err := s.source.Image(TransferTemplateName)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrTemplateMissing, TransferTemplateName, err)
	}

	config := &MatchConfig{Method: MethodNCC, Threshold: thresholdOr(tmpl, transferMatchThreshold)}
	if tmpl.Region != nil {
		config.SearchRegion = tmpl.Region.ToImageRectangle()
	}

	result := FindTemplate(frame, needle, config)
	return result.Confidence, nil
}

func thresholdOr(tmpl Template, fallback float64) float64 {
	if tmpl.Threshold > 0 {
		return tmpl.Threshold
	}
	return fallback
}
