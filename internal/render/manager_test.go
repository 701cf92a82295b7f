package render

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/M-Enderle/FocusStack/internal/events"
	"github.com/M-Enderle/FocusStack/internal/logging"
)

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Subscribe(events.Type, events.Handler) events.SubscriptionID { return 0 }
func (b *recordingBus) Unsubscribe(events.SubscriptionID)                           {}
func (b *recordingBus) PublishAsync(e events.Event)                                 { b.Publish(e) }
func (b *recordingBus) Stop()                                                       {}

func (b *recordingBus) Publish(e events.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *recordingBus) count(t events.Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// fakeRunner blocks each render until released.
type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	err     error
}

func newFakeRunner(blocking bool) *fakeRunner {
	r := &fakeRunner{}
	if blocking {
		r.release = make(chan struct{})
	}
	return r
}

func (r *fakeRunner) Render(context.Context) (Result, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.release != nil {
		<-r.release
	}
	if r.err != nil {
		return Result{}, r.err
	}
	return Result{Output: "stack.jpg", Images: 5, Elapsed: time.Millisecond}, nil
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func testLogger() *logging.Logger {
	return logging.New("test").SetOutput(io.Discard)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestManagerCoalescesRequestsIntoOnePendingRun(t *testing.T) {
	runner := newFakeRunner(true)
	bus := &recordingBus{}
	m := NewManager(runner, bus, testLogger(), 5)

	m.Request()
	waitFor(t, 2*time.Second, func() bool { return runner.callCount() == 1 },
		"first render never started")

	// Three requests land while the first render is busy; they collapse
	// into a single pending run.
	m.Request()
	m.Request()
	m.Request()

	runner.release <- struct{}{} // finish first render
	waitFor(t, 2*time.Second, func() bool { return runner.callCount() == 2 },
		"pending render never started")
	runner.release <- struct{}{} // finish pending render

	m.WaitIdle()
	if got := runner.callCount(); got != 2 {
		t.Errorf("render runs = %d, want 2 (one active + one coalesced)", got)
	}
	if got := bus.count(events.TypeRenderDeferred); got != 1 {
		t.Errorf("deferred events = %d, want 1 (duplicates collapse)", got)
	}
	if got := bus.count(events.TypeRenderFinished); got != 2 {
		t.Errorf("finished events = %d, want 2", got)
	}
}

func TestManagerRunsRequestsBackToBack(t *testing.T) {
	runner := newFakeRunner(false)
	m := NewManager(runner, &recordingBus{}, testLogger(), 5)

	m.Request()
	m.WaitIdle()
	m.Request()
	m.WaitIdle()

	if got := runner.callCount(); got != 2 {
		t.Errorf("render runs = %d, want 2 (idle manager runs each request)", got)
	}
}

func TestManagerTriggersEveryNthFrame(t *testing.T) {
	runner := newFakeRunner(false)
	m := NewManager(runner, &recordingBus{}, testLogger(), 5)

	for i := 0; i < 10; i++ {
		m.HandleFrame(i)
		m.WaitIdle()
	}
	// Frames 4 and 9 are the 5th and 10th captures.
	if got := runner.callCount(); got != 2 {
		t.Errorf("render runs = %d, want 2", got)
	}
}

func TestManagerPublishesFailure(t *testing.T) {
	runner := newFakeRunner(false)
	runner.err = errors.New("focus-stack exited 1")
	bus := &recordingBus{}
	m := NewManager(runner, bus, testLogger(), 5)

	m.Request()
	m.WaitIdle()

	if got := bus.count(events.TypeRenderFailed); got != 1 {
		t.Errorf("failed events = %d, want 1", got)
	}
	if got := bus.count(events.TypeRenderFinished); got != 0 {
		t.Errorf("finished events = %d, want 0", got)
	}
	if m.Busy() {
		t.Error("manager still busy after a failed render")
	}
}

func TestManagerAttachWiresBusTriggers(t *testing.T) {
	runner := newFakeRunner(false)
	bus := events.NewBus(16)
	defer bus.Stop()
	m := NewManager(runner, bus, testLogger(), 5)
	m.Attach()
	defer m.Detach()

	for i := 0; i < 5; i++ {
		bus.Publish(events.NewFrameCapturedEvent(i, 5))
	}
	bus.Publish(events.NewRunCompletedEvent(5, 0))

	waitFor(t, 2*time.Second, func() bool {
		m.WaitIdle()
		return runner.callCount() == 2
	}, "expected the 5th-frame render and the final render")
}

func TestManagerFinalRenderSurvivesShutdown(t *testing.T) {
	runner := newFakeRunner(false)
	bus := events.NewBus(16)
	m := NewManager(runner, bus, testLogger(), 5)
	m.Attach()

	// The shutdown sequence: the completion event is still in the bus
	// queue when the run's goroutine finishes. It must be delivered and
	// its render waited out before the manager detaches.
	bus.Publish(events.NewRunCompletedEvent(3, 0))
	bus.Drain()
	m.WaitIdle()
	m.Detach()
	bus.Stop()

	if got := runner.callCount(); got != 1 {
		t.Fatalf("final render ran %d times, want 1", got)
	}
}
