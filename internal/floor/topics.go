package floor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Topic names a floor event on the bus.
type Topic string

const (
	TopicWaiterAssigned      Topic = "waiter-assigned"
	TopicWaiterUnassigned    Topic = "waiter-unassigned"
	TopicDiningAreaUpdated   Topic = "dining-area-updated"
	TopicDiningTableCreated  Topic = "dining-table-created-in-dining-area"
	TopicDiningTableDeleted  Topic = "dining-table-deleted-in-dining-area"
	TopicDiningTableUpdated  Topic = "dining-table-updated-in-dining-area"
	TopicOrderStarted        Topic = "order-started"
	TopicOrderEnded          Topic = "order-ended"
	TopicWaiterAcceptedTable Topic = "waiter-accepted-table"
)

// AllTopics lists every topic a waiter session listens on, in subscription
// order.
var AllTopics = []Topic{
	TopicWaiterAssigned,
	TopicWaiterUnassigned,
	TopicDiningAreaUpdated,
	TopicDiningTableCreated,
	TopicDiningTableDeleted,
	TopicDiningTableUpdated,
	TopicOrderStarted,
	TopicOrderEnded,
	TopicWaiterAcceptedTable,
}

var ErrUnknownTopic = errors.New("unknown floor topic")

// ParseTopic validates a topic name.
func ParseTopic(s string) (Topic, error) {
	for _, t := range AllTopics {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTopic, s)
}

// Payload is the decoded body of a floor event. The set of variants is
// closed: AssignmentChanged, DiningAreaChanged, OrderLifecycle and
// WaiterAcceptedTable.
type Payload interface {
	accepts(Topic) bool
}

// AssignmentChanged is carried by waiter-assigned and waiter-unassigned.
// On the wire it is the bare waiter id.
type AssignmentChanged struct {
	WaiterID int64
}

// DiningAreaChanged is carried by the dining area and dining table topics.
// On the wire it is the bare dining area id.
type DiningAreaChanged struct {
	DiningAreaID int64
}

// OrderLifecycle is carried by order-started and order-ended. On the wire it
// is the bare dining table id.
type OrderLifecycle struct {
	DiningTableID int64
}

// WaiterAcceptedTable is carried by waiter-accepted-table.
type WaiterAcceptedTable struct {
	WaiterID int64 `json:"waiterId"`
	TableID  int64 `json:"tableId"`
}

func (AssignmentChanged) accepts(t Topic) bool {
	return t == TopicWaiterAssigned || t == TopicWaiterUnassigned
}

func (DiningAreaChanged) accepts(t Topic) bool {
	switch t {
	case TopicDiningAreaUpdated, TopicDiningTableCreated, TopicDiningTableDeleted, TopicDiningTableUpdated:
		return true
	}
	return false
}

func (OrderLifecycle) accepts(t Topic) bool {
	return t == TopicOrderStarted || t == TopicOrderEnded
}

func (WaiterAcceptedTable) accepts(t Topic) bool {
	return t == TopicWaiterAcceptedTable
}

func (p AssignmentChanged) MarshalJSON() ([]byte, error) { return json.Marshal(p.WaiterID) }
func (p DiningAreaChanged) MarshalJSON() ([]byte, error) { return json.Marshal(p.DiningAreaID) }
func (p OrderLifecycle) MarshalJSON() ([]byte, error)    { return json.Marshal(p.DiningTableID) }

func (p *AssignmentChanged) UnmarshalJSON(b []byte) error { return decodeID(b, &p.WaiterID) }
func (p *DiningAreaChanged) UnmarshalJSON(b []byte) error { return decodeID(b, &p.DiningAreaID) }
func (p *OrderLifecycle) UnmarshalJSON(b []byte) error    { return decodeID(b, &p.DiningTableID) }

// decodeID decodes a bare integer id. null is rejected.
func decodeID(b []byte, dst *int64) error {
	if string(bytes.TrimSpace(b)) == "null" {
		return errors.New("id is null")
	}
	return json.Unmarshal(b, dst)
}

func (p *WaiterAcceptedTable) UnmarshalJSON(b []byte) error {
	var wire struct {
		WaiterID *int64 `json:"waiterId"`
		TableID  *int64 `json:"tableId"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	if wire.WaiterID == nil || wire.TableID == nil {
		return errors.New("waiterId and tableId are required")
	}
	p.WaiterID, p.TableID = *wire.WaiterID, *wire.TableID
	return nil
}

var ErrMalformedPayload = errors.New("malformed floor event payload")

// DecodePayload decodes the raw payload of an event published on topic.
func DecodePayload(topic Topic, raw json.RawMessage) (Payload, error) {
	var p Payload
	var err error
	switch topic {
	case TopicWaiterAssigned, TopicWaiterUnassigned:
		var v AssignmentChanged
		err = json.Unmarshal(raw, &v)
		p = v
	case TopicDiningAreaUpdated, TopicDiningTableCreated, TopicDiningTableDeleted, TopicDiningTableUpdated:
		var v DiningAreaChanged
		err = json.Unmarshal(raw, &v)
		p = v
	case TopicOrderStarted, TopicOrderEnded:
		var v OrderLifecycle
		err = json.Unmarshal(raw, &v)
		p = v
	case TopicWaiterAcceptedTable:
		var v WaiterAcceptedTable
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	if err != nil {
		return nil, fmt.Errorf("%w on %s: %v", ErrMalformedPayload, topic, err)
	}
	return p, nil
}

// EncodePayload encodes p for publication on topic.
func EncodePayload(topic Topic, p Payload) (json.RawMessage, error) {
	if p == nil || !p.accepts(topic) {
		return nil, fmt.Errorf("%w: %T cannot be published on %s", ErrMalformedPayload, p, topic)
	}
	return json.Marshal(p)
}
