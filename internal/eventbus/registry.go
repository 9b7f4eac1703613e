package eventbus

import (
	"sync"

	"github.com/google/uuid"
)

// registry tracks local handlers per topic. Every driver fans events out
// through it so handle semantics are identical across drivers.
type registry struct {
	mu      sync.RWMutex
	byTopic map[string]map[string]Handler
	topicOf map[string]string
}

func newRegistry() *registry {
	return &registry{
		byTopic: make(map[string]map[string]Handler),
		topicOf: make(map[string]string),
	}
}

// add registers h and reports whether it is the first handler for topic.
func (r *registry) add(topic string, h Handler) (handle string, first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle = uuid.New().String()
	subs, ok := r.byTopic[topic]
	if !ok {
		subs = make(map[string]Handler)
		r.byTopic[topic] = subs
	}
	subs[handle] = h
	r.topicOf[handle] = topic
	return handle, len(subs) == 1
}

// remove drops handle and reports whether its topic has no handlers left.
func (r *registry) remove(handle string) (topic string, last bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	topic, ok := r.topicOf[handle]
	if !ok {
		return "", false, ErrUnknownSubscription
	}
	delete(r.topicOf, handle)
	subs := r.byTopic[topic]
	delete(subs, handle)
	if len(subs) == 0 {
		delete(r.byTopic, topic)
		return topic, true, nil
	}
	return topic, false, nil
}

// handlers returns a snapshot so the lock is not held while handlers run.
func (r *registry) handlers(topic string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.byTopic[topic]
	out := make([]Handler, 0, len(subs))
	for _, h := range subs {
		out = append(out, h)
	}
	return out
}

func (r *registry) topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byTopic))
	for t := range r.byTopic {
		out = append(out, t)
	}
	return out
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topicOf)
}

func (r *registry) deliver(event Event) {
	for _, h := range r.handlers(event.Topic) {
		h(event)
	}
}
