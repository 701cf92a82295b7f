package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/M-Enderle/FocusStack/internal/focus"
	"github.com/M-Enderle/FocusStack/internal/stack"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Settings.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullSettings(t *testing.T) {
	path := writeSettings(t, `
[Stacking]
direction = far to near
stepSize = coarse
stepsPerFrame = 3
frames = 40

[Remote]
exePath = C:\Sony\Remote.exe
windowTitle = Remote (ILCE-7M4)
keyDelayMs = 120
pollIntervalMs = 50

[Render]
enabled = true
savePath = C:\Stacks\incoming
interval = 4

[Logging]
level = debug
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Stacking.Direction != focus.FarToNear {
		t.Errorf("direction = %v", s.Stacking.Direction)
	}
	if s.Stacking.StepSize != stack.StepSizeCoarse {
		t.Errorf("stepSize = %v", s.Stacking.StepSize)
	}
	if s.Stacking.StepsPerFrame != 3 || s.Stacking.Frames != 40 {
		t.Errorf("stacking = %+v", s.Stacking)
	}
	if s.Remote.WindowTitle != "Remote (ILCE-7M4)" {
		t.Errorf("windowTitle = %q", s.Remote.WindowTitle)
	}
	if s.Remote.KeyDelay != 120*time.Millisecond || s.Remote.PollInterval != 50*time.Millisecond {
		t.Errorf("remote timing = %+v", s.Remote)
	}
	if !s.Render.Enabled || s.Render.Interval != 4 {
		t.Errorf("render = %+v", s.Render)
	}
	if s.Logging.Level != "debug" {
		t.Errorf("level = %q", s.Logging.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(writeSettings(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if s.Stacking.Direction != focus.NearToFar || s.Stacking.StepSize != stack.StepSizeFine {
		t.Errorf("stacking defaults = %+v", s.Stacking)
	}
	if s.Stacking.StepsPerFrame != 1 || s.Stacking.Frames != 10 {
		t.Errorf("stacking defaults = %+v", s.Stacking)
	}
	if s.Remote.KeyDelay != stack.DefaultKeyDelay {
		t.Errorf("keyDelay default = %v", s.Remote.KeyDelay)
	}
	if s.Remote.PollInterval != stack.DefaultPollInterval {
		t.Errorf("pollInterval default = %v", s.Remote.PollInterval)
	}
	if s.Render.Enabled {
		t.Error("rendering must default to disabled")
	}
	if s.Render.Batch != 32 || s.Render.Threads != 16 || s.Render.Quality != 50 {
		t.Errorf("render defaults = %+v", s.Render)
	}
	if s.Database.Path != "focusstack.db" {
		t.Errorf("database default = %q", s.Database.Path)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		ini  string
	}{
		{"bad direction", "[Stacking]\ndirection = sideways\n"},
		{"bad step size", "[Stacking]\nstepSize = huge\n"},
		{"zero frames", "[Stacking]\nframes = 0\n"},
		{"render without save path", "[Render]\nenabled = true\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeSettings(t, tc.ini)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.ini")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
