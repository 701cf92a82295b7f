package stack

import (
	"errors"
	"fmt"
	"time"

	"github.com/M-Enderle/FocusStack/internal/focus"
)

// Errors surfaced by Start.
var (
	// ErrInvalidConfig reports a malformed run configuration. Fatal,
	// never retried.
	ErrInvalidConfig = errors.New("invalid stacking configuration")
	// ErrBusy reports a Start while a run is already in progress. The
	// control surface is exclusively owned for the duration of a run.
	ErrBusy = errors.New("a stacking run is already in progress")
)

// StepSize selects the focus step granularity.
type StepSize int

const (
	StepSizeFine StepSize = iota
	StepSizeNormal
	StepSizeCoarse
)

// Multiplier returns the single-step count one configured step expands to.
func (s StepSize) Multiplier() (uint, error) {
	switch s {
	case StepSizeFine:
		return 1, nil
	case StepSizeNormal:
		return 5, nil
	case StepSizeCoarse:
		return 50, nil
	default:
		return 0, fmt.Errorf("%w: unknown step size %d", ErrInvalidConfig, int(s))
	}
}

func (s StepSize) String() string {
	switch s {
	case StepSizeFine:
		return "fine"
	case StepSizeNormal:
		return "normal"
	case StepSizeCoarse:
		return "coarse"
	default:
		return fmt.Sprintf("StepSize(%d)", int(s))
	}
}

// ParseStepSize maps the settings-file spelling to a StepSize.
func ParseStepSize(s string) (StepSize, error) {
	switch s {
	case "fine":
		return StepSizeFine, nil
	case "normal":
		return StepSizeNormal, nil
	case "coarse":
		return StepSizeCoarse, nil
	default:
		return StepSizeFine, fmt.Errorf("%w: unknown step size %q", ErrInvalidConfig, s)
	}
}

// Config describes one stacking run. Immutable once the run starts.
type Config struct {
	Direction     focus.Direction
	StepSize      StepSize
	StepsPerFrame int
	Frames        int
}

// Validate checks the configuration before a run begins.
func (c Config) Validate() error {
	if c.Frames <= 0 {
		return fmt.Errorf("%w: frame count must be positive, got %d", ErrInvalidConfig, c.Frames)
	}
	if c.StepsPerFrame <= 0 {
		return fmt.Errorf("%w: steps per frame must be positive, got %d", ErrInvalidConfig, c.StepsPerFrame)
	}
	if _, err := c.StepSize.Multiplier(); err != nil {
		return err
	}
	return nil
}

// StepsPerAdvance returns the single-step count of one focus movement
// between frames.
func (c Config) StepsPerAdvance() (uint, error) {
	mult, err := c.StepSize.Multiplier()
	if err != nil {
		return 0, err
	}
	return uint(c.StepsPerFrame) * mult, nil
}

// Timing defaults carried over from the Remote's observed behavior.
const (
	// DefaultKeyDelay paces focus key presses so the Remote registers
	// each one.
	DefaultKeyDelay = 80 * time.Millisecond
	// DefaultPollInterval spaces readiness and transfer polls, and is
	// also the bound on how quickly pause and stop take effect.
	DefaultPollInterval = 100 * time.Millisecond
	// readyBrightness is the minimum matched-region peak luminance that
	// counts as "camera ready".
	readyBrightness = 200
	// transferConfidence is the minimum match confidence that counts as
	// "transfer complete".
	transferConfidence = 0.985
)
