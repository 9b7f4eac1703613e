package ws

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventError answers frames that cannot be routed to a handler.
const EventError = "error"

// Frame is the JSON envelope exchanged in both directions: an event name
// followed by its positional arguments.
type Frame struct {
	Event string            `json:"event"`
	Args  []json.RawMessage `json:"args,omitempty"`
}

// ErrorArg is the argument carried by every error event.
type ErrorArg struct {
	Message string `json:"message"`
}

// EncodeFrame builds the wire form of event with args.
func EncodeFrame(event string, args ...any) ([]byte, error) {
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode %s arg %d: %w", event, i, err)
		}
		raw[i] = b
	}
	return json.Marshal(Frame{Event: event, Args: raw})
}

// DecodeFrame parses an inbound frame. A frame without an event name is
// rejected.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Event == "" {
		return Frame{}, errors.New("decode frame: missing event name")
	}
	return f, nil
}
