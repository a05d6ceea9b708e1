package reporting

import (
	"time"

	"linkctl/internal/links"
)

// Event names sent to observers.
const (
	// EventProjectChanged carries the project's snapshot and fires as soon as
	// its links change, before any restart completes.
	EventProjectChanged = "projectChanged"
	// EventProjectLink carries the terminal LinkEvent of a reconciliation.
	EventProjectLink = "projectLink"
)

// Event is one notification as published on the bus and written to sockets.
type Event struct {
	ID        string      `json:"id"`
	Name      string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// LinkStatus is the terminal outcome of a reconciliation.
type LinkStatus string

const (
	LinkStatusSuccess LinkStatus = "success"
	LinkStatusError   LinkStatus = "error"
)

// LinkEvent is the projectLink payload.
type LinkEvent struct {
	Name      string      `json:"name"`
	ProjectID string      `json:"projectID"`
	Link      links.Link  `json:"link"`
	Status    LinkStatus  `json:"status"`
	Error     interface{} `json:"error"`
}

// Emitter sends a named notification to observers.
type Emitter interface {
	Emit(event string, payload interface{})
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload interface{})

func (f EmitterFunc) Emit(event string, payload interface{}) {
	f(event, payload)
}
