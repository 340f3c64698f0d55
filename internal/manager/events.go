package manager

import "time"

// Event represents a session lifecycle event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string
	ModelID string
	Fields  map[string]any
	Time    time.Time
}

// Event names.
const (
	EventSelectModel  = "select_model"
	EventLoadProgress = "load_progress"
	EventLoadReady    = "load_ready"
	EventLoadError    = "load_error"
	EventLoadStale    = "load_stale"
	EventImageSet     = "image_set"
	EventRunStart     = "run_start"
	EventRunDone      = "run_done"
	EventRunError     = "run_error"
	EventReset        = "reset"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
