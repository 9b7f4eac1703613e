package eventbus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope carried by the bus. Payload is topic specific and is
// decoded by the consumer.
type Event struct {
	ID        string          `json:"id"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new Event with a generated UUID and the current timestamp.
func NewEvent(topic string, payload json.RawMessage) Event {
	return Event{
		ID:        uuid.New().String(),
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
