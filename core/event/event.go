package event

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope delivered to observers of the bus.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent creates a new Event with auto-generated ID and timestamp.
// The event name is derived from the payload type.
func NewEvent(payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Name:      NameOf(payload),
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// NameOf returns the bare type name of v, unwrapping pointers.
// Both *StateChangeStart and StateChangeStart resolve to "StateChangeStart".
func NameOf(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Name()
}

// Cancelable is embedded into payloads whose default action observers may prevent.
// Payloads must be published by pointer for prevention to be visible to the publisher.
type Cancelable struct {
	prevented bool
}

// Prevent marks the default action as cancelled.
func (c *Cancelable) Prevent() {
	c.prevented = true
}

// Prevented reports whether any observer called Prevent.
func (c *Cancelable) Prevented() bool {
	return c.prevented
}

type preventable interface {
	Prevented() bool
}
