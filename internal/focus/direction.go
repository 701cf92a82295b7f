package focus

import "fmt"

// Direction of focus travel for a stacking run.
type Direction int

const (
	NearToFar Direction = iota
	FarToNear
)

// Key is a Windows virtual-key code. Imaging Edge Remote maps its focus
// controls to plain letter keys, so these are just uppercase ASCII.
type Key byte

// KeyEvent is one key press to post to the Remote window.
type KeyEvent struct {
	Code  Key
	Shift bool
}

// keymap holds the three focus controls associated with a direction:
// single moves one step, large moves fifty, opposite is the single-step
// control of the other direction (used to back-adjust after an overshoot).
type keymap struct {
	single   Key
	large    Key
	opposite Key
}

var keymaps = map[Direction]keymap{
	NearToFar: {single: 'T', large: 'Y', opposite: 'W'},
	FarToNear: {single: 'W', large: 'Q', opposite: 'T'},
}

// Opposite returns the reverse travel direction.
func (d Direction) Opposite() Direction {
	if d == NearToFar {
		return FarToNear
	}
	return NearToFar
}

func (d Direction) String() string {
	switch d {
	case NearToFar:
		return "near to far"
	case FarToNear:
		return "far to near"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection maps the settings-file spelling to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "near to far":
		return NearToFar, nil
	case "far to near":
		return FarToNear, nil
	default:
		return NearToFar, fmt.Errorf("unknown step direction %q", s)
	}
}
