package database

import (
	"sync"

	"github.com/M-Enderle/FocusStack/internal/events"
	"github.com/M-Enderle/FocusStack/internal/logging"
)

// Recorder mirrors run lifecycle events into the ledger. It subscribes
// to the bus so the worker never touches the database directly.
type Recorder struct {
	db  *DB
	bus events.Bus
	log *logging.Logger

	mu    sync.Mutex
	runID int64

	subs []events.SubscriptionID
}

// NewRecorder builds a recorder over an open database.
func NewRecorder(db *DB, bus events.Bus, log *logging.Logger) *Recorder {
	return &Recorder{db: db, bus: bus, log: log}
}

// Attach subscribes the recorder to the run lifecycle.
func (r *Recorder) Attach() {
	r.subs = append(r.subs,
		r.bus.Subscribe(events.TypeRunStarted, r.onRunStarted),
		r.bus.Subscribe(events.TypeFrameCaptured, r.onFrameCaptured),
		r.bus.Subscribe(events.TypeRunCompleted, r.onRunCompleted),
		r.bus.Subscribe(events.TypeStopRequested, r.onStopRequested),
		r.bus.Subscribe(events.TypeRunFailed, r.onRunFailed),
		r.bus.Subscribe(events.TypeRenderFinished, r.onRenderFinished),
	)
}

// Detach removes the subscriptions installed by Attach.
func (r *Recorder) Detach() {
	for _, id := range r.subs {
		r.bus.Unsubscribe(id)
	}
	r.subs = nil
}

func (r *Recorder) currentRun() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

func (r *Recorder) onRunStarted(e events.Event) {
	direction, _ := e.Data["direction"].(string)
	stepSize, _ := e.Data["step_size"].(string)
	stepsPerFrame, _ := e.Data["steps_per_frame"].(int)
	frames, _ := e.Data["frames"].(int)

	id, err := r.db.CreateRun(direction, stepSize, stepsPerFrame, frames)
	if err != nil {
		r.log.Errorf(err, "could not record run start")
		return
	}
	r.mu.Lock()
	r.runID = id
	r.mu.Unlock()
}

func (r *Recorder) onFrameCaptured(e events.Event) {
	runID := r.currentRun()
	if runID == 0 {
		return
	}
	index, ok := e.Data["index"].(int)
	if !ok {
		return
	}
	if err := r.db.RecordFrame(runID, index); err != nil {
		r.log.Errorf(err, "could not record frame")
	}
}

func (r *Recorder) onRunCompleted(events.Event) {
	r.finish(RunStatusCompleted, "")
}

func (r *Recorder) onStopRequested(events.Event) {
	r.finish(RunStatusStopped, "")
}

func (r *Recorder) onRunFailed(e events.Event) {
	msg, _ := e.Data["error"].(string)
	r.finish(RunStatusFailed, msg)
}

func (r *Recorder) finish(status, errMessage string) {
	r.mu.Lock()
	runID := r.runID
	r.runID = 0
	r.mu.Unlock()
	if runID == 0 {
		return
	}
	if err := r.db.CompleteRun(runID, status, errMessage); err != nil {
		r.log.Errorf(err, "could not finalize run")
	}
}

func (r *Recorder) onRenderFinished(e events.Event) {
	output, _ := e.Data["output"].(string)
	duration, _ := e.Data["duration"].(float64)
	if err := r.db.RecordRender(r.currentRun(), output, duration); err != nil {
		r.log.Errorf(err, "could not record render")
	}
}
