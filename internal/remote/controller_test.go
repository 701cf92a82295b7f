package remote

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"
	"time"

	"github.com/M-Enderle/FocusStack/internal/focus"
	"github.com/M-Enderle/FocusStack/internal/logging"
)

type fakeWindow struct {
	keys       []byte
	shifts     []bool
	foreground int
}

func (w *fakeWindow) Handle() uintptr { return 1 }

func (w *fakeWindow) PostKey(code byte, shift bool) error {
	w.keys = append(w.keys, code)
	w.shifts = append(w.shifts, shift)
	return nil
}

func (w *fakeWindow) Foreground() error {
	w.foreground++
	return nil
}

type fakeCapturer struct {
	frames int
}

func (c *fakeCapturer) CaptureFrame() (*image.RGBA, error) {
	c.frames++
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func (c *fakeCapturer) Dimensions() (int, int) { return 2, 2 }

func attached(win Window, capt *fakeCapturer) *Controller {
	c := NewController(Options{WindowTitle: "Remote"}, logging.New("test").SetOutput(io.Discard))
	c.win = win
	c.capturer = capt
	return c
}

func TestControllerPostsKeys(t *testing.T) {
	win := &fakeWindow{}
	c := attached(win, &fakeCapturer{})

	if err := c.SendKey(focus.Key('T'), false); err != nil {
		t.Fatalf("SendKey: %v", err)
	}
	if err := c.SendKey(focus.Key('Q'), true); err != nil {
		t.Fatalf("SendKey: %v", err)
	}
	if err := c.CaptureStill(); err != nil {
		t.Fatalf("CaptureStill: %v", err)
	}

	wantKeys := []byte{'T', 'Q', byte(CaptureKey)}
	wantShifts := []bool{false, true, false}
	for i := range wantKeys {
		if win.keys[i] != wantKeys[i] || win.shifts[i] != wantShifts[i] {
			t.Errorf("post %d = (%q, %v), want (%q, %v)",
				i, win.keys[i], win.shifts[i], wantKeys[i], wantShifts[i])
		}
	}
}

func TestControllerExposesCapturer(t *testing.T) {
	capt := &fakeCapturer{}
	c := attached(&fakeWindow{}, capt)

	got, err := c.Capturer()
	if err != nil {
		t.Fatalf("Capturer: %v", err)
	}
	frame, err := got.CaptureFrame()
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if frame == nil || capt.frames != 1 {
		t.Errorf("expected one frame from the capturer, got %d", capt.frames)
	}
}

func TestControllerRejectsUseBeforeAttach(t *testing.T) {
	c := NewController(Options{WindowTitle: "Remote"}, logging.New("test").SetOutput(io.Discard))

	if err := c.SendKey(focus.Key('T'), false); !errors.Is(err, ErrNotAttached) {
		t.Errorf("SendKey = %v, want ErrNotAttached", err)
	}
	if _, err := c.Capturer(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("Capturer = %v, want ErrNotAttached", err)
	}
	if err := c.Focus(); !errors.Is(err, ErrNotAttached) {
		t.Errorf("Focus = %v, want ErrNotAttached", err)
	}
}

func TestAttachFailsFastOffWindows(t *testing.T) {
	if _, err := findWindowByTitle("x"); err == nil {
		t.Skip("window automation available on this platform")
	}

	c := NewController(Options{WindowTitle: "Remote", AttachTimeout: time.Second},
		logging.New("test").SetOutput(io.Discard))
	err := c.Attach(context.Background())
	if !errors.Is(err, ErrUnsupportedPlatform) {
		t.Fatalf("Attach = %v, want ErrUnsupportedPlatform", err)
	}
}
