package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusBusinessConfirmed OrderStatus = "BUSINESS_CONFIRMED"
	OrderStatusPreparing         OrderStatus = "PREPARING"
	OrderStatusReady             OrderStatus = "READY"
	OrderStatusConfirmed         OrderStatus = "CONFIRMED"
	OrderStatusPickedUp          OrderStatus = "PICKED_UP"
	OrderStatusCourierDelivered  OrderStatus = "COURIER_DELIVERED"
	OrderStatusDelivered         OrderStatus = "DELIVERED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusBusinessConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusConfirmed,
	OrderStatusPickedUp,
	OrderStatusCourierDelivered,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Completed reports whether the courier's part of the delivery is done.
func (s OrderStatus) Completed() bool {
	return s == OrderStatusCourierDelivered || s == OrderStatusDelivered
}

// OrderItem is a line of an order. UnitPriceCents is the listing price at
// checkout time and never follows later listing changes.
type OrderItem struct {
	ListingID      string `json:"listing_id"`
	Name           string `json:"name,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

func (i OrderItem) TotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

// Party is the display summary of a user attached to an order.
type Party struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Order belongs to exactly one business. A cart spanning several businesses
// produces one Order per business.
type Order struct {
	ID              string      `json:"id"`
	ConsumerID      string      `json:"consumer_id"`
	BusinessID      string      `json:"business_id"`
	CourierID       *string     `json:"courier_id"`
	TotalCents      int64       `json:"total_cents"`
	DeliveryAddress string      `json:"delivery_address"`
	CustomerName    string      `json:"customer_name,omitempty"`
	PhoneNumber     string      `json:"phone_number,omitempty"`
	PaymentMethod   string      `json:"payment_method,omitempty"`
	Status          OrderStatus `json:"status"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	CompletedAt     *time.Time  `json:"completed_at"`

	Business *Party `json:"business,omitempty"`
	Consumer *Party `json:"consumer,omitempty"`
	Courier  *Party `json:"courier,omitempty"`
}

// ItemsTotalCents sums quantity times snapshotted price over the items.
func (o *Order) ItemsTotalCents() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.TotalCents()
	}
	return total
}

// OpenRequest is a pending order no courier has claimed yet.
type OpenRequest struct {
	OrderID             string    `json:"order_id"`
	TotalCents          int64     `json:"total_cents"`
	DeliveryAddress     string    `json:"delivery_address"`
	ItemCount           int       `json:"item_count"`
	ConsumerName        string    `json:"consumer_name"`
	ConsumerPhotoURL    string    `json:"consumer_photo_url,omitempty"`
	BusinessName        string    `json:"business_name"`
	PickupAddress       string    `json:"pickup_address"`
	RewardEstimateCents int64     `json:"reward_estimate_cents"`
	DistanceKm          float64   `json:"distance_km"`
	CreatedAt           time.Time `json:"created_at"`
}
