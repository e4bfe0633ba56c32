package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventJobUpserted fires after every registry upsert with the merged job as payload
	EventJobUpserted EventType = "job_upserted"

	// EventAuthExpired fires when the backend rejects a request with 401
	EventAuthExpired EventType = "auth_expired"

	// EventPollCompleted fires at the end of each poll cycle with the remaining non-final count
	EventPollCompleted EventType = "poll_completed"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the in-process pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
