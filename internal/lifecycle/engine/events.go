package engine

import "fieldops_backend/platform/events"

// EventStatusChanged is published on the bus after a transition's
// transaction commits.
const EventStatusChanged = "lifecycle.status_changed"

// StatusChangedEvent announces one committed status transition.
type StatusChangedEvent struct {
	events.BaseEvent
	Transition Transition `json:"transition"`
}

// EventName implements events.Event.
func (e StatusChangedEvent) EventName() string {
	return EventStatusChanged
}

// NewStatusChangedEvent wraps a transition for publication.
func NewStatusChangedEvent(tr Transition) StatusChangedEvent {
	return StatusChangedEvent{BaseEvent: events.NewBaseEvent(), Transition: tr}
}
