package messaging

import (
	"context"
	"errors"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

// EventPublisher sends order events to their topics, keyed by order id so
// every event of an order lands on the same partition.
type EventPublisher struct {
	created *Producer
	status  *Producer
}

func NewEventPublisher(brokers []string, createdTopic, statusTopic string) *EventPublisher {
	return &EventPublisher{
		created: NewProducer(brokers, createdTopic),
		status:  NewProducer(brokers, statusTopic),
	}
}

func (p *EventPublisher) PublishOrderCreated(ctx context.Context, event domain.OrderCreatedEvent) error {
	return p.created.Publish(ctx, event.OrderID, domain.EventTypeOrderCreated, event)
}

func (p *EventPublisher) PublishStatusChanged(ctx context.Context, event domain.OrderStatusChangedEvent) error {
	return p.status.Publish(ctx, event.OrderID, domain.EventTypeOrderStatusChanged, event)
}

func (p *EventPublisher) Close() error {
	return errors.Join(p.created.Close(), p.status.Close())
}
