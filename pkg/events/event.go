package events

import "time"

const (
	// UseCaseScored is published when a use case has been scored and should
	// appear in the prioritization matrix.
	UseCaseScored = "USE_CASE_SCORED"

	// UseCaseRemoved withdraws a use case from the matrix.
	UseCaseRemoved = "USE_CASE_REMOVED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "USE_CASE_SCORED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Subject is the bus subject an event type is published on.
func Subject(eventType string) string {
	return "events." + eventType
}
