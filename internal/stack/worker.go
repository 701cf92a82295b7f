package stack

import (
	"fmt"
	"sync"

	"github.com/M-Enderle/FocusStack/internal/events"
	"github.com/M-Enderle/FocusStack/internal/logging"
)

// RunState is the lifecycle state of a stacking run.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StatePaused
	StateStopped
	StateCompleted
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Worker owns the frame loop of one stacking run. The loop runs on its
// own goroutine; Pause, Resume and Stop are called from the interface
// side and never block on the worker. Stop is cooperative: the loop
// observes it at the gate between frames, reverts the accumulated focus
// displacement, and exits.
type Worker struct {
	seq *Sequencer
	bus events.Bus
	log *logging.Logger

	mu    sync.Mutex
	cond  *sync.Cond
	state RunState

	cfg          Config
	displacement int
	done         chan struct{}
	runErr       error
}

// NewWorker creates an idle worker over a sequencer.
func NewWorker(seq *Sequencer, bus events.Bus, log *logging.Logger) *Worker {
	w := &Worker{
		seq:   seq,
		bus:   bus,
		log:   log,
		state: StateIdle,
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// Start validates the configuration and launches the frame loop. Only one
// run may be active at a time; callers queue or reject further requests.
func (w *Worker) Start(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	if w.state == StateRunning || w.state == StatePaused {
		w.mu.Unlock()
		return ErrBusy
	}
	w.state = StateRunning
	w.cfg = cfg
	w.displacement = 0
	w.runErr = nil
	w.done = make(chan struct{})
	w.mu.Unlock()

	w.log.Infof("starting stack: direction=%s step_size=%s steps_per_frame=%d frames=%d",
		cfg.Direction, cfg.StepSize, cfg.StepsPerFrame, cfg.Frames)
	w.bus.Publish(events.NewRunStartedEvent(cfg.Direction.String(), cfg.StepSize.String(), cfg.StepsPerFrame, cfg.Frames))

	go w.run()
	return nil
}

// Pause suspends the frame loop at its next gate check.
func (w *Worker) Pause() {
	w.mu.Lock()
	if w.state != StateRunning {
		w.mu.Unlock()
		return
	}
	w.state = StatePaused
	w.mu.Unlock()

	w.log.Infof("pausing worker")
	w.bus.Publish(events.NewPauseChangedEvent("Resume", true))
}

// Resume releases a paused frame loop.
func (w *Worker) Resume() {
	w.mu.Lock()
	if w.state != StatePaused {
		w.mu.Unlock()
		return
	}
	w.state = StateRunning
	w.cond.Broadcast()
	w.mu.Unlock()

	w.log.Infof("resuming worker")
	w.bus.Publish(events.NewPauseChangedEvent("Pause", false))
}

// Stop requests cooperative cancellation. The loop observes it at the
// next gate check, reverts focus, and exits without capturing further
// frames. Stopping a paused run does not resume the frame loop.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.state != StateRunning && w.state != StatePaused {
		w.mu.Unlock()
		return
	}
	w.state = StateStopped
	w.cond.Broadcast()
	w.mu.Unlock()

	w.log.Infof("stop requested")
	w.bus.Publish(events.NewStopRequestedEvent())
}

// Wait blocks until the current run finishes and returns its error, if
// any. Wait on an idle worker returns immediately.
func (w *Worker) Wait() error {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runErr
}

// State returns the current run state.
func (w *Worker) State() RunState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Displacement returns the currently accumulated focus travel in single
// steps, positive in the run's primary direction.
func (w *Worker) Displacement() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.displacement
}

func (w *Worker) run() {
	defer func() {
		w.mu.Lock()
		done := w.done
		w.mu.Unlock()
		close(done)
	}()

	cfg := w.cfg
	for i := 0; i < cfg.Frames; i++ {
		if !w.gate() {
			w.log.Infof("stacking stopped at frame %d", i)
			w.bus.Publish(events.NewStatusEvent("worker", "Stacking stopped."))
			w.revert()
			return
		}

		w.bus.Publish(events.NewStatusEvent("worker", fmt.Sprintf("Frame %d/%d: Capturing...", i+1, cfg.Frames)))
		if err := w.seq.CaptureFrame(i); err != nil {
			w.fail(err)
			return
		}
		w.bus.Publish(events.NewFrameCapturedEvent(i, cfg.Frames))

		delta, err := w.seq.AdvanceFocus(cfg, i == cfg.Frames-1)
		if err != nil {
			w.fail(err)
			return
		}
		w.addDisplacement(delta)

		if err := w.seq.WaitTransfer(); err != nil {
			w.fail(err)
			return
		}
	}

	w.log.Infof("stacking complete, reverting focus to start position")
	w.bus.Publish(events.NewStatusEvent("worker", "Stacking complete. Returning to starting focus position..."))
	w.revert()

	// A stop that lands during the final frame is never observed by the
	// gate; honor it in the final state instead of reporting completion.
	w.mu.Lock()
	stopped := w.state == StateStopped
	if !stopped {
		w.state = StateCompleted
	}
	w.mu.Unlock()

	if stopped {
		w.bus.Publish(events.NewStatusEvent("worker", "Stacking stopped."))
		return
	}
	w.bus.Publish(events.NewRunCompletedEvent(cfg.Frames, 0))
}

// gate blocks while paused and reports whether the loop may proceed.
// Returns false once a stop has been observed.
func (w *Worker) gate() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.state == StatePaused {
		w.cond.Wait()
	}
	return w.state != StateStopped
}

func (w *Worker) addDisplacement(delta int) {
	w.mu.Lock()
	w.displacement += delta
	w.mu.Unlock()
}

// revert moves focus back by the accumulated displacement, in the
// direction opposite the run's travel. A run that never moved reverts
// nothing. The displacement is consumed so reversion happens exactly
// once per run.
func (w *Worker) revert() {
	w.mu.Lock()
	d := w.displacement
	w.displacement = 0
	dir := w.cfg.Direction
	w.mu.Unlock()

	if d == 0 {
		return
	}
	if err := w.seq.Move(uint(d), dir.Opposite()); err != nil {
		// Best effort: the camera may already be unreachable.
		w.log.Errorf(err, "focus reversion failed")
		return
	}
	w.log.Infof("focus returned to starting position (%d steps)", d)
	w.bus.Publish(events.NewStatusEvent("worker", "Focus returned to starting position."))
}

// fail aborts the run on a fatal error, reverting best-effort when focus
// had already moved.
func (w *Worker) fail(err error) {
	w.log.Errorf(err, "stacking run aborted")
	w.revert()

	w.mu.Lock()
	w.state = StateStopped
	w.runErr = err
	w.mu.Unlock()

	w.bus.Publish(events.NewRunFailedEvent(err))
}
