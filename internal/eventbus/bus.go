// Package eventbus is the process-wide publish/subscribe mechanism that
// carries floor events from the services that produce them to every live
// waiter connection.
//
// Delivery is best effort. Subscribe and delivery are not atomic: an event
// published while Subscribe is still running may or may not reach the new
// handler, and nothing published before Subscribe returns is replayed.
package eventbus

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by every operation on a closed bus.
	ErrClosed = errors.New("event bus is closed")
	// ErrUnknownSubscription is returned by Unsubscribe for a handle the bus
	// does not hold, including handles that were already released.
	ErrUnknownSubscription = errors.New("unknown subscription")
)

// Handler is invoked for every event published to a subscribed topic.
// Handlers are called from the bus's delivery goroutine and must not block;
// long work belongs on a goroutine owned by the subscriber.
type Handler func(event Event)

// Bus defines the interface for publishing and subscribing to events.
// Implementations include InMemoryBus (single node), RedisBus and KafkaBus.
type Bus interface {
	// Publish sends an event to the given topic. Subscribers registered for
	// that topic receive the event asynchronously.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe registers a handler for the given topic and returns the handle
	// that releases it.
	Subscribe(topic string, handler Handler) (string, error)

	// Unsubscribe releases a handle returned by Subscribe. Releasing a handle
	// twice returns ErrUnknownSubscription.
	Unsubscribe(handle string) error

	// Close shuts down the bus, releasing connections and goroutines. After
	// Close returns every operation fails with ErrClosed.
	Close() error
}
