// Package bus provides the event bus used to fan out entity change events.
package bus

import (
	"context"
	"time"
)

// Subject namespace for resource manager events. The full subject is
// "resource.events.<kind>.<action>", e.g. "resource.events.bookings.created".
const SubjectPrefix = "resource.events"

// Event is the envelope published on the bus for every successful mutation.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"` // "<kind>.<action>"
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// EventHandler processes a received event.
type EventHandler func(event *Event)

// Subscription represents an active subscription that can be cancelled.
type Subscription interface {
	Unsubscribe() error
}

// EventBus abstracts the messaging layer so services can publish without
// knowing whether NATS or the in-process bus is behind it.
type EventBus interface {
	Publish(ctx context.Context, subject string, event *Event) error
	Subscribe(subject string, handler EventHandler) (Subscription, error)
	QueueSubscribe(subject, queue string, handler EventHandler) (Subscription, error)
	Request(ctx context.Context, subject string, event *Event, timeout time.Duration) (*Event, error)
	Close()
	IsConnected() bool
}
