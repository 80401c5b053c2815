package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType defines the kind of event.
type EventType string

const (
	EventRefresh       EventType = "refresh"
	EventRefreshFailed EventType = "refresh_failed"
	EventShutdown      EventType = "shutdown"
	EventContact       EventType = "contact"
)

// Event is exported to external analytics systems.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Account    string    `json:"account,omitempty"`
	Count      int       `json:"count"`
	Detail     string    `json:"detail,omitempty"`
}

// NewEvent stamps an event with a fresh ID and the given time in UTC.
func NewEvent(t EventType, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, OccurredAt: at.UTC()}
}

// Sink is a destination for history events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Send(context.Context, Event) error { return nil }

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
