package orders

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

// memStore mimics the conditional updates of Repository in memory.
type memStore struct {
	mu         sync.Mutex
	orders     map[string]*domain.Order
	seq        int
	failCreate map[string]error

	// beforeUpdate runs between the read and the compare-and-swap of a
	// transition.
	beforeUpdate func(orderID string)

	openCalls atomic.Int32
	openGate  chan struct{}
}

func newMemStore() *memStore {
	return &memStore{orders: map[string]*domain.Order{}, failCreate: map[string]error{}}
}

func (m *memStore) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failCreate[order.BusinessID]; err != nil {
		return err
	}
	m.seq++
	order.ID = fmt.Sprintf("order-%d", m.seq)
	order.UpdatedAt = order.CreatedAt
	stored := *order
	m.orders[order.ID] = &stored
	return nil
}

func (m *memStore) put(order domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = &order
}

func (m *memStore) get(id string) domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.orders[id]
}

func owns(o *domain.Order, actor domain.Actor) bool {
	switch actor.Role {
	case domain.RoleConsumer:
		return o.ConsumerID == actor.ID
	case domain.RoleBusiness:
		return o.BusinessID == actor.ID
	case domain.RoleCourier:
		return o.CourierID != nil && *o.CourierID == actor.ID
	}
	return false
}

func (m *memStore) ListForActor(_ context.Context, actor domain.Actor) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Order{}
	for _, o := range m.orders {
		if owns(o, actor) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) GetForActor(_ context.Context, id string, actor domain.Actor) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || !owns(o, actor) {
		return nil, domain.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *memStore) Claim(_ context.Context, courierID, orderID string, now time.Time) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok || o.Status != domain.OrderStatusPending || o.CourierID != nil {
		return nil, &domain.NotAvailableError{OrderID: orderID}
	}
	courier := courierID
	o.CourierID = &courier
	o.Status = domain.OrderStatusConfirmed
	o.UpdatedAt = now
	copied := *o
	return &copied, nil
}

func (m *memStore) UpdateStatus(_ context.Context, actor domain.Actor, orderID string, from, to domain.OrderStatus, now time.Time, completedAt *time.Time) (*domain.Order, error) {
	if m.beforeUpdate != nil {
		m.beforeUpdate(orderID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok || !owns(o, actor) || o.Status != from {
		return nil, domain.ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = now
	if completedAt != nil {
		at := *completedAt
		o.CompletedAt = &at
	}
	copied := *o
	return &copied, nil
}

func (m *memStore) ListOpen(ctx context.Context) ([]domain.OpenRequest, error) {
	m.openCalls.Add(1)
	if m.openGate != nil {
		select {
		case <-m.openGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.OpenRequest{}
	for _, o := range m.orders {
		if o.Status == domain.OrderStatusPending && o.CourierID == nil {
			count := 0
			for _, item := range o.Items {
				count += item.Quantity
			}
			out = append(out, domain.OpenRequest{
				OrderID:         o.ID,
				TotalCents:      o.TotalCents,
				DeliveryAddress: o.DeliveryAddress,
				ItemCount:       count,
				CreatedAt:       o.CreatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (m *memStore) ListCompletedForCourier(_ context.Context, courierID string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Order{}
	for _, o := range m.orders {
		if o.CourierID != nil && *o.CourierID == courierID && o.Status.Completed() {
			out = append(out, *o)
		}
	}
	return out, nil
}

type stockItem struct {
	owner string
	name  string
	price int64
	qty   int
}

// memLedger applies the whole-cart reservation rules in memory.
type memLedger struct {
	mu       sync.Mutex
	stock    map[string]*stockItem
	reserves int
}

func newMemLedger(items map[string]stockItem) *memLedger {
	l := &memLedger{stock: map[string]*stockItem{}}
	for id, item := range items {
		copied := item
		l.stock[id] = &copied
	}
	return l
}

func (l *memLedger) qty(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[id].qty
}

func (l *memLedger) Reserve(_ context.Context, lines []domain.CartLine) ([]domain.PriceSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reserves++
	lines = domain.MergeCartLines(lines)
	for _, line := range lines {
		if _, ok := l.stock[line.ListingID]; !ok {
			return nil, &domain.ListingNotFoundError{ListingID: line.ListingID}
		}
	}
	for _, line := range lines {
		item := l.stock[line.ListingID]
		if item.qty < line.Quantity {
			return nil, &domain.InsufficientStockError{ListingID: line.ListingID, Requested: line.Quantity, Available: item.qty}
		}
	}

	snapshots := make([]domain.PriceSnapshot, 0, len(lines))
	for _, line := range lines {
		item := l.stock[line.ListingID]
		item.qty -= line.Quantity
		snapshots = append(snapshots, domain.PriceSnapshot{
			ListingID:      line.ListingID,
			BusinessID:     item.owner,
			Name:           item.name,
			UnitPriceCents: item.price,
		})
	}
	return snapshots, nil
}

func (l *memLedger) Release(_ context.Context, lines []domain.CartLine) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, line := range lines {
		l.stock[line.ListingID].qty += line.Quantity
	}
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []domain.OrderCreatedEvent
	changed []domain.OrderStatusChangedEvent
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, event domain.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, event)
	return nil
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, event domain.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, event)
	return nil
}

func sampleStock() map[string]stockItem {
	return map[string]stockItem{
		"A": {owner: "biz-1", name: "Bagel box", price: 500, qty: 10},
		"B": {owner: "biz-1", name: "Pastries", price: 600, qty: 5},
		"C": {owner: "biz-2", name: "Soup", price: 1000, qty: 3},
		"D": {owner: "biz-3", name: "Salad", price: 400, qty: 4},
	}
}

type fixture struct {
	store   *memStore
	ledger  *memLedger
	events  *recordingPublisher
	service *Service
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMemStore(),
		ledger: newMemLedger(sampleStock()),
		events: &recordingPublisher{},
	}
	f.service = NewService(f.store, f.ledger, f.events, discardLogger(), WithClock(func() time.Time { return fixedNow }))
	return f
}
