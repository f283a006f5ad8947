package model

import "time"

// EventType is the kind of a progress event.
type EventType string

const (
	// EventTypeStatus is an informative progress event, a job can emit any number of them.
	EventTypeStatus EventType = "status"
	// EventTypeCompleted is the terminal event of a job that generated its plan.
	EventTypeCompleted EventType = "completed"
	// EventTypeError is the terminal event of a job that failed.
	EventTypeError EventType = "error"
)

// Event is a progress event emitted by a plan generation job.
//
// Depending on the type only some fields are set:
//   - Status: Message.
//   - Completed: Plan.
//   - Error: Message.
type Event struct {
	ID      string
	Type    EventType
	Message string
	Plan    *Plan
	Time    time.Time
}

// Terminal returns true when the event ends the event sequence of a job.
func (e Event) Terminal() bool {
	return e.Type == EventTypeCompleted || e.Type == EventTypeError
}

// NewStatusEvent returns a status event.
func NewStatusEvent(msg string) Event {
	return Event{Type: EventTypeStatus, Message: msg}
}

// NewCompletedEvent returns a completed event with a copy of the plan.
func NewCompletedEvent(p Plan) Event {
	cp := p.Copy()
	return Event{Type: EventTypeCompleted, Plan: &cp}
}

// NewErrorEvent returns an error event.
func NewErrorEvent(msg string) Event {
	return Event{Type: EventTypeError, Message: msg}
}
