package floor

import (
	"context"
	"fmt"

	"github.com/darkden-lab/tableside/internal/eventbus"
)

// Publisher announces floor changes on the event bus.
type Publisher struct {
	bus eventbus.Bus
}

// NewPublisher creates a Publisher on bus.
func NewPublisher(bus eventbus.Bus) *Publisher {
	return &Publisher{bus: bus}
}

// Publish encodes p and publishes it on topic. It returns the event id.
func (p *Publisher) Publish(ctx context.Context, topic Topic, payload Payload) (string, error) {
	raw, err := EncodePayload(topic, payload)
	if err != nil {
		return "", err
	}
	event := eventbus.NewEvent(string(topic), raw)
	if err := p.bus.Publish(ctx, string(topic), event); err != nil {
		return "", fmt.Errorf("publish %s: %w", topic, err)
	}
	return event.ID, nil
}

func (p *Publisher) WaiterAssigned(ctx context.Context, waiterID int64) error {
	_, err := p.Publish(ctx, TopicWaiterAssigned, AssignmentChanged{WaiterID: waiterID})
	return err
}

func (p *Publisher) WaiterUnassigned(ctx context.Context, waiterID int64) error {
	_, err := p.Publish(ctx, TopicWaiterUnassigned, AssignmentChanged{WaiterID: waiterID})
	return err
}

func (p *Publisher) DiningAreaUpdated(ctx context.Context, diningAreaID int64) error {
	_, err := p.Publish(ctx, TopicDiningAreaUpdated, DiningAreaChanged{DiningAreaID: diningAreaID})
	return err
}

func (p *Publisher) DiningTableCreated(ctx context.Context, diningAreaID int64) error {
	_, err := p.Publish(ctx, TopicDiningTableCreated, DiningAreaChanged{DiningAreaID: diningAreaID})
	return err
}

func (p *Publisher) DiningTableDeleted(ctx context.Context, diningAreaID int64) error {
	_, err := p.Publish(ctx, TopicDiningTableDeleted, DiningAreaChanged{DiningAreaID: diningAreaID})
	return err
}

func (p *Publisher) DiningTableUpdated(ctx context.Context, diningAreaID int64) error {
	_, err := p.Publish(ctx, TopicDiningTableUpdated, DiningAreaChanged{DiningAreaID: diningAreaID})
	return err
}

func (p *Publisher) OrderStarted(ctx context.Context, diningTableID int64) error {
	_, err := p.Publish(ctx, TopicOrderStarted, OrderLifecycle{DiningTableID: diningTableID})
	return err
}

func (p *Publisher) OrderEnded(ctx context.Context, diningTableID int64) error {
	_, err := p.Publish(ctx, TopicOrderEnded, OrderLifecycle{DiningTableID: diningTableID})
	return err
}

func (p *Publisher) WaiterAcceptedTable(ctx context.Context, waiterID, tableID int64) error {
	_, err := p.Publish(ctx, TopicWaiterAcceptedTable, WaiterAcceptedTable{WaiterID: waiterID, TableID: tableID})
	return err
}
