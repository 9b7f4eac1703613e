package eventbus

import (
	"context"
	"sync"
)

type topicEvent struct {
	topic string
	event Event
}

// InMemoryBus is a simple, single-process Bus backed by Go channels. It is
// suitable for development and single-node deployments.
type InMemoryBus struct {
	mu      sync.RWMutex
	subs    *registry
	closed  bool
	eventCh chan topicEvent
	done    chan struct{}
}

// NewInMemoryBus creates and starts an InMemoryBus. The bus starts a
// background goroutine to dispatch events; call Close() to stop it.
func NewInMemoryBus() *InMemoryBus {
	b := &InMemoryBus{
		subs:    newRegistry(),
		eventCh: make(chan topicEvent, 1024),
		done:    make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Publish enqueues an event for asynchronous delivery to all subscribers of
// the given topic. It blocks while the queue is full until ctx is done.
func (b *InMemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	event.Topic = topic
	select {
	case b.eventCh <- topicEvent{topic: topic, event: event}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a handler for the given topic and returns its handle.
func (b *InMemoryBus) Subscribe(topic string, handler Handler) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return "", ErrClosed
	}

	handle, _ := b.subs.add(topic, handler)
	return handle, nil
}

// Unsubscribe releases the handler registered under handle.
func (b *InMemoryBus) Unsubscribe(handle string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	_, _, err := b.subs.remove(handle)
	return err
}

// Subscriptions returns the number of live handles.
func (b *InMemoryBus) Subscriptions() int {
	return b.subs.size()
}

// Close stops the dispatch goroutine and prevents further use. Events already
// queued are delivered before Close returns.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.eventCh)
	b.mu.Unlock()

	<-b.done
	return nil
}

// dispatch runs in a goroutine and fans out published events to the matching
// subscribers.
func (b *InMemoryBus) dispatch() {
	defer close(b.done)

	for te := range b.eventCh {
		b.subs.deliver(te.event)
	}
}
