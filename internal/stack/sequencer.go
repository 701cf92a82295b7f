package stack

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/time/rate"

	"github.com/M-Enderle/FocusStack/internal/focus"
	"github.com/M-Enderle/FocusStack/internal/logging"
)

// Surface is the control side of the Remote window: fire-and-forget key
// posting. Implemented by internal/remote.
type Surface interface {
	SendKey(code focus.Key, shift bool) error
	CaptureStill() error
}

// Vision is the read side: screenshots plus the two screen-state
// predicates the capture loop polls. Implemented by the cv service,
// whose frame cache lets back-to-back predicate polls share a capture.
type Vision interface {
	// Sample captures the current visual state of the Remote window.
	Sample() (*image.RGBA, error)
	// InvalidateCache forces the next Sample to capture a fresh frame.
	InvalidateCache()
	// MatchReadiness reports the peak brightness of the camera-ready
	// indicator when it is found in the frame. Errors are fatal
	// configuration faults (missing reference asset).
	MatchReadiness(frame *image.RGBA) (brightness int, matched bool, err error)
	// MatchTransfer reports the confidence that the transfer-complete
	// widget is showing.
	MatchTransfer(frame *image.RGBA) (float64, error)
}

// Sequencer executes the per-frame protocol: trigger an exposure, wait
// for the camera, move focus, wait for the file transfer.
type Sequencer struct {
	surface Surface
	vision  Vision

	limiter      *rate.Limiter
	pollInterval time.Duration
	log          *logging.Logger
}

// NewSequencer creates a sequencer with the default key pacing and poll
// interval.
func NewSequencer(surface Surface, vision Vision, log *logging.Logger) *Sequencer {
	return &Sequencer{
		surface:      surface,
		vision:       vision,
		limiter:      rate.NewLimiter(rate.Every(DefaultKeyDelay), 1),
		pollInterval: DefaultPollInterval,
		log:          log,
	}
}

// WithKeyDelay overrides the inter-event key delay.
func (s *Sequencer) WithKeyDelay(d time.Duration) *Sequencer {
	if d > 0 {
		s.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
	return s
}

// WithPollInterval overrides the readiness poll interval.
func (s *Sequencer) WithPollInterval(d time.Duration) *Sequencer {
	if d > 0 {
		s.pollInterval = d
	}
	return s
}

// CaptureFrame triggers one exposure and blocks until the camera reports
// ready again.
func (s *Sequencer) CaptureFrame(index int) error {
	s.log.Debugf("frame %d: triggering capture", index)
	if err := s.surface.CaptureStill(); err != nil {
		return fmt.Errorf("frame %d: trigger capture: %w", index, err)
	}
	// The exposure just changed what the window shows; start the
	// readiness wait on a fresh frame.
	s.vision.InvalidateCache()
	if err := s.waitCameraReady(); err != nil {
		return fmt.Errorf("frame %d: wait for camera: %w", index, err)
	}
	return nil
}

// AdvanceFocus moves focus toward the next frame and returns the signed
// step delta to accumulate. The last frame needs no movement.
func (s *Sequencer) AdvanceFocus(cfg Config, isLastFrame bool) (int, error) {
	if isLastFrame {
		return 0, nil
	}
	steps, err := cfg.StepsPerAdvance()
	if err != nil {
		return 0, err
	}
	if err := s.Move(steps, cfg.Direction); err != nil {
		return 0, err
	}
	return int(steps), nil
}

// Move executes a planned key sequence for steps in dir, pacing each
// press with the configured delay.
func (s *Sequencer) Move(steps uint, dir focus.Direction) error {
	events := focus.PlanMovement(steps, dir)
	s.log.Debugf("moving %d steps %s (%d key events)", steps, dir, len(events))
	for _, ev := range events {
		if err := s.surface.SendKey(ev.Code, ev.Shift); err != nil {
			return fmt.Errorf("send key %q: %w", ev.Code, err)
		}
		if err := s.limiter.Wait(context.Background()); err != nil {
			return err
		}
	}
	return nil
}

// WaitTransfer blocks until the Remote reports the frame's file transfer
// finished. Runs after every frame, including the last, so the final file
// is flushed before the run is declared complete.
func (s *Sequencer) WaitTransfer() error {
	return WaitUntil(
		func() (float64, error) {
			frame, err := s.vision.Sample()
			if err != nil {
				return 0, err
			}
			return s.vision.MatchTransfer(frame)
		},
		func(confidence float64) bool { return confidence >= transferConfidence },
		s.pollInterval,
	)
}

type readiness struct {
	brightness int
	matched    bool
}

func (s *Sequencer) waitCameraReady() error {
	return WaitUntil(
		func() (readiness, error) {
			frame, err := s.vision.Sample()
			if err != nil {
				return readiness{}, err
			}
			brightness, matched, err := s.vision.MatchReadiness(frame)
			if err != nil {
				return readiness{}, err
			}
			return readiness{brightness: brightness, matched: matched}, nil
		},
		func(r readiness) bool { return r.matched && r.brightness > readyBrightness },
		s.pollInterval,
	)
}
