// Package remote drives Sony Imaging Edge Remote through its window:
// keys are posted fire-and-forget, state is read back by screenshotting
// the client area.
package remote

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/M-Enderle/FocusStack/internal/cv"
	"github.com/M-Enderle/FocusStack/internal/focus"
	"github.com/M-Enderle/FocusStack/internal/logging"
)

// CaptureKey triggers a still exposure in the Remote.
const CaptureKey = focus.Key('1')

// ErrUnsupportedPlatform is returned on builds without window automation.
var ErrUnsupportedPlatform = errors.New("window automation requires windows")

// ErrNotAttached is returned when the controller is used before Attach
// succeeded.
var ErrNotAttached = errors.New("not attached to the Remote window")

// Window is the platform-specific handle the controller drives.
type Window interface {
	Handle() uintptr
	PostKey(code byte, shift bool) error
	Foreground() error
}

// Options configures the attach behavior.
type Options struct {
	// WindowTitle is the exact title of the Remote window.
	WindowTitle string
	// ExePath, when set, is launched once if the window is not found.
	ExePath string
	// AttachTimeout bounds the backoff retry loop. Zero means a minute.
	AttachTimeout time.Duration
}

// Controller owns one attached Remote window.
type Controller struct {
	opts Options
	log  *logging.Logger

	win      Window
	capturer cv.Capturer
	launched bool
}

// NewController builds an unattached controller.
func NewController(opts Options, log *logging.Logger) *Controller {
	if opts.AttachTimeout <= 0 {
		opts.AttachTimeout = time.Minute
	}
	return &Controller{opts: opts, log: log}
}

// Attach locates the Remote window, launching the executable once if it
// is not running, and retries with exponential backoff until the window
// appears or the timeout elapses.
func (c *Controller) Attach(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = c.opts.AttachTimeout

	find := func() error {
		win, err := findWindowByTitle(c.opts.WindowTitle)
		if err != nil {
			if errors.Is(err, ErrUnsupportedPlatform) {
				return backoff.Permanent(err)
			}
			if c.opts.ExePath != "" && !c.launched {
				c.launched = true
				c.log.Infof("remote not running, launching %s", c.opts.ExePath)
				if startErr := exec.Command(c.opts.ExePath).Start(); startErr != nil {
					return backoff.Permanent(fmt.Errorf("launch remote: %w", startErr))
				}
			}
			c.log.Debugf("remote window %q not found, retrying", c.opts.WindowTitle)
			return err
		}
		c.win = win
		return nil
	}

	if err := backoff.Retry(find, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("attach to %q: %w", c.opts.WindowTitle, err)
	}

	capturer, err := cv.NewWindowCapture(c.win.Handle())
	if err != nil {
		return fmt.Errorf("attach to %q: %w", c.opts.WindowTitle, err)
	}
	c.capturer = capturer

	w, h := capturer.Dimensions()
	c.log.Infof("attached to %q (%dx%d)", c.opts.WindowTitle, w, h)
	return nil
}

// Focus brings the Remote window to the foreground. The Remote only
// reacts to posted keys while its window has input focus.
func (c *Controller) Focus() error {
	if c.win == nil {
		return ErrNotAttached
	}
	return c.win.Foreground()
}

// SendKey posts one key press to the Remote window.
func (c *Controller) SendKey(code focus.Key, shift bool) error {
	if c.win == nil {
		return ErrNotAttached
	}
	return c.win.PostKey(byte(code), shift)
}

// CaptureStill triggers one exposure.
func (c *Controller) CaptureStill() error {
	return c.SendKey(CaptureKey, false)
}

// Capturer exposes the attached window's frame source. All screen
// reads go through the cv service built on it, so its frame cache sees
// every sample.
func (c *Controller) Capturer() (cv.Capturer, error) {
	if c.capturer == nil {
		return nil, ErrNotAttached
	}
	return c.capturer, nil
}
