package focus

// largeStep is how far the Remote's coarse focus control moves in one
// key press.
const largeStep = 50

// backAdjustCutoff is the smallest remainder for which overshooting with
// one large press and walking back is still cheaper than pressing the
// single-step key remainder times. At exactly 26 the overshoot costs
// 1 large + 24 opposite = 25 events versus 26 singles, so 26 routes to
// the overshoot branch and 25 and below route to singles.
const backAdjustCutoff = 26

// PlanMovement computes the key sequence that moves focus by steps in the
// given direction using the fewest key presses. Zero steps plans nothing.
func PlanMovement(steps uint, dir Direction) []KeyEvent {
	km := keymaps[dir]

	var seq []KeyEvent
	remaining := steps
	for remaining > 0 {
		switch {
		case remaining < backAdjustCutoff:
			for i := uint(0); i < remaining; i++ {
				seq = append(seq, KeyEvent{Code: km.single})
			}
			remaining = 0
		case remaining <= largeStep:
			seq = append(seq, KeyEvent{Code: km.large})
			back := largeStep - remaining
			for i := uint(0); i < back; i++ {
				seq = append(seq, KeyEvent{Code: km.opposite})
			}
			remaining = 0
		default:
			seq = append(seq, KeyEvent{Code: km.large})
			remaining -= largeStep
		}
	}
	return seq
}

// Displacement returns the net focus travel, in single steps, that the
// event would produce when posted for a movement in dir. Single and large
// presses move with the direction; the opposite key walks back one step.
func (e KeyEvent) Displacement(dir Direction) int {
	km := keymaps[dir]
	switch e.Code {
	case km.single:
		return 1
	case km.large:
		return largeStep
	case km.opposite:
		return -1
	default:
		return 0
	}
}
