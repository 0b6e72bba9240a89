package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// Event is the unit delivered on the hub. Data is a loosely typed tree, as
// produced by JSON decoding; listeners copy what they keep.
type Event struct {
	ID        string
	Name      string
	Type      string
	Source    string
	Data      map[string]any
	Timestamp time.Time
	// ResponseID is the ID of the event this one answers, if any.
	ResponseID string
}

// NewEvent builds an event with a fresh ID stamped with the current time.
func NewEvent(name, eventType, source string, data map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      eventType,
		Source:    source,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// InResponseTo marks e as the response to trigger. A nil trigger leaves e
// uncorrelated.
func (e Event) InResponseTo(trigger *Event) Event {
	if trigger != nil {
		e.ResponseID = trigger.ID
	}
	return e
}

// IsResponse reports whether e answers another event.
func (e Event) IsResponse() bool {
	return e.ResponseID != ""
}
