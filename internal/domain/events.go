package domain

import "time"

const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
)

type OrderCreatedEvent struct {
	OrderID    string      `json:"order_id"`
	ConsumerID string      `json:"consumer_id"`
	BusinessID string      `json:"business_id"`
	TotalCents int64       `json:"total_cents"`
	Items      []OrderItem `json:"items"`
	Timestamp  time.Time   `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderID   string      `json:"order_id"`
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	ActorID   string      `json:"actor_id"`
	ActorRole Role        `json:"actor_role"`
	Timestamp time.Time   `json:"timestamp"`
}
