package render

import (
	"context"
	"sync"

	"github.com/M-Enderle/FocusStack/internal/events"
	"github.com/M-Enderle/FocusStack/internal/logging"
)

// Runner is the render job the manager schedules. Satisfied by *Job and
// by test fakes.
type Runner interface {
	Render(ctx context.Context) (Result, error)
}

// Manager serializes render requests. At most one render runs at a time;
// requests that arrive while one is running collapse into a single
// pending slot, replayed exactly once when the active render finishes.
// Renders lag the newest frames slightly under load but never pile up.
type Manager struct {
	runner Runner
	bus    events.Bus
	log    *logging.Logger

	// interval triggers a render on every interval-th captured frame.
	interval int

	mu      sync.Mutex
	active  bool
	pending bool
	idle    *sync.Cond

	subs []events.SubscriptionID
}

// NewManager builds a manager over a runner. interval is the captured
// frame count between automatic renders.
func NewManager(runner Runner, bus events.Bus, log *logging.Logger, interval int) *Manager {
	if interval <= 0 {
		interval = 5
	}
	m := &Manager{
		runner:   runner,
		bus:      bus,
		log:      log,
		interval: interval,
	}
	m.idle = sync.NewCond(&m.mu)
	return m
}

// Attach subscribes the manager to the run lifecycle: a render every
// interval-th frame and a final render when the run completes.
func (m *Manager) Attach() {
	m.subs = append(m.subs,
		m.bus.Subscribe(events.TypeFrameCaptured, func(e events.Event) {
			index, ok := e.Data["index"].(int)
			if !ok {
				return
			}
			m.HandleFrame(index)
		}),
		m.bus.Subscribe(events.TypeRunCompleted, func(events.Event) {
			m.Request()
		}),
	)
}

// Detach removes the subscriptions installed by Attach.
func (m *Manager) Detach() {
	for _, id := range m.subs {
		m.bus.Unsubscribe(id)
	}
	m.subs = nil
}

// HandleFrame requests a render on every interval-th captured frame.
func (m *Manager) HandleFrame(index int) {
	if (index+1)%m.interval != 0 {
		return
	}
	m.Request()
}

// Request schedules a render. If one is already running the request is
// parked in the pending slot; further requests during the same render are
// duplicates and collapse into it.
func (m *Manager) Request() {
	m.mu.Lock()
	if m.active {
		already := m.pending
		m.pending = true
		m.mu.Unlock()
		if !already {
			m.log.Debugf("render in progress, deferring request")
			m.bus.Publish(events.NewRenderDeferredEvent())
		}
		return
	}
	m.active = true
	m.mu.Unlock()

	go m.drain()
}

// Busy reports whether a render is currently running.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// WaitIdle blocks until no render is running and none is pending. Used
// at shutdown so the final composite is not abandoned mid-write.
func (m *Manager) WaitIdle() {
	m.mu.Lock()
	for m.active || m.pending {
		m.idle.Wait()
	}
	m.mu.Unlock()
}

// drain runs renders until the pending slot is empty. Runs on its own
// goroutine; exactly one drain exists while active is set.
func (m *Manager) drain() {
	for {
		m.runOnce()

		m.mu.Lock()
		if m.pending {
			m.pending = false
			m.mu.Unlock()
			continue
		}
		m.active = false
		m.idle.Broadcast()
		m.mu.Unlock()
		return
	}
}

func (m *Manager) runOnce() {
	result, err := m.runner.Render(context.Background())
	if err != nil {
		m.log.Errorf(err, "render failed")
		m.bus.Publish(events.NewRenderFailedEvent(err))
		return
	}
	m.bus.Publish(events.NewRenderFinishedEvent(result.Output, result.Elapsed))
}
