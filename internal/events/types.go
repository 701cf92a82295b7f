package events

import "time"

// Type identifies a kind of lifecycle event.
type Type string

const (
	// Stacking run events
	TypeRunStarted    Type = "run.started"
	TypeFrameCaptured Type = "run.frame_captured"
	TypePauseChanged  Type = "run.pause_changed"
	TypeStopRequested Type = "run.stop_requested"
	TypeRunCompleted  Type = "run.completed"
	TypeRunFailed     Type = "run.failed"

	// Live-render events
	TypeRenderStarted  Type = "render.started"
	TypeRenderDeferred Type = "render.deferred"
	TypeRenderFinished Type = "render.finished"
	TypeRenderFailed   Type = "render.failed"

	// Free-form status lines intended for the user
	TypeStatus Type = "status"
)

// Event carries one notification with its metadata.
type Event struct {
	Type      Type
	Source    string
	Timestamp time.Time
	Data      map[string]interface{}
}

// Handler processes one event.
type Handler func(Event)

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID int64

// Bus is the pub/sub surface the core reports through.
type Bus interface {
	Subscribe(t Type, h Handler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	Publish(e Event)
	PublishAsync(e Event)
	Stop()
}

// Constructors for the events the worker and render manager emit.

func NewRunStartedEvent(direction string, stepSize string, stepsPerFrame, frames int) Event {
	return Event{
		Type:      TypeRunStarted,
		Source:    "worker",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"direction":       direction,
			"step_size":       stepSize,
			"steps_per_frame": stepsPerFrame,
			"frames":          frames,
		},
	}
}

func NewFrameCapturedEvent(index, total int) Event {
	return Event{
		Type:      TypeFrameCaptured,
		Source:    "worker",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"index": index,
			"total": total,
		},
	}
}

func NewPauseChangedEvent(text string, paused bool) Event {
	return Event{
		Type:      TypePauseChanged,
		Source:    "worker",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"text":   text,
			"paused": paused,
		},
	}
}

func NewStopRequestedEvent() Event {
	return Event{
		Type:      TypeStopRequested,
		Source:    "worker",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{},
	}
}

func NewRunCompletedEvent(frames int, displacement int) Event {
	return Event{
		Type:      TypeRunCompleted,
		Source:    "worker",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"frames":       frames,
			"displacement": displacement,
		},
	}
}

func NewRunFailedEvent(err error) Event {
	return Event{
		Type:      TypeRunFailed,
		Source:    "worker",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"error": err.Error(),
		},
	}
}

func NewRenderStartedEvent(imageCount int) Event {
	return Event{
		Type:      TypeRenderStarted,
		Source:    "render",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"image_count": imageCount,
		},
	}
}

func NewRenderDeferredEvent() Event {
	return Event{
		Type:      TypeRenderDeferred,
		Source:    "render",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{},
	}
}

func NewRenderFinishedEvent(outputPath string, duration time.Duration) Event {
	return Event{
		Type:      TypeRenderFinished,
		Source:    "render",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"output":   outputPath,
			"duration": duration.Seconds(),
		},
	}
}

func NewRenderFailedEvent(err error) Event {
	return Event{
		Type:      TypeRenderFailed,
		Source:    "render",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"error": err.Error(),
		},
	}
}

func NewStatusEvent(source, message string) Event {
	return Event{
		Type:      TypeStatus,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message": message,
		},
	}
}
