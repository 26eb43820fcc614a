package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

// PlaceholderDistanceKm is reported for every open request until routing
// exists.
const PlaceholderDistanceKm = 2.5

const openRequestsTimeout = 5 * time.Second

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	ListForActor(ctx context.Context, actor domain.Actor) ([]domain.Order, error)
	GetForActor(ctx context.Context, id string, actor domain.Actor) (*domain.Order, error)
	Claim(ctx context.Context, courierID, orderID string, now time.Time) (*domain.Order, error)
	UpdateStatus(ctx context.Context, actor domain.Actor, orderID string, from, to domain.OrderStatus, now time.Time, completedAt *time.Time) (*domain.Order, error)
	ListOpen(ctx context.Context) ([]domain.OpenRequest, error)
	ListCompletedForCourier(ctx context.Context, courierID string) ([]domain.Order, error)
}

type StockLedger interface {
	Reserve(ctx context.Context, lines []domain.CartLine) ([]domain.PriceSnapshot, error)
	Release(ctx context.Context, lines []domain.CartLine) error
}

type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event domain.OrderCreatedEvent) error
	PublishStatusChanged(ctx context.Context, event domain.OrderStatusChangedEvent) error
}

type Service struct {
	store   OrderStore
	ledger  StockLedger
	events  EventPublisher
	logger  *slog.Logger
	now     func() time.Time
	metrics serviceMetrics
	open    singleflight.Group
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		metrics, err := newServiceMetrics(m)
		if err != nil {
			s.logger.Warn("order metrics disabled", "error", err)
			return
		}
		s.metrics = metrics
	}
}

// NewService wires the order workflows. events may be nil, in which case no
// events are published.
func NewService(store OrderStore, ledger StockLedger, events EventPublisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ledger: ledger,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CheckoutRequest struct {
	Items           []domain.CartLine `json:"items"`
	DeliveryAddress string            `json:"delivery_address"`
	CustomerName    string            `json:"customer_name"`
	PhoneNumber     string            `json:"phone_number"`
	PaymentMethod   string            `json:"payment_method"`
}

func (r CheckoutRequest) Validate() error {
	if len(r.Items) == 0 {
		return &domain.ValidationError{Message: "items must not be empty"}
	}
	for i, item := range r.Items {
		if strings.TrimSpace(item.ListingID) == "" {
			return &domain.ValidationError{Message: fmt.Sprintf("items[%d]: listing_id is required", i)}
		}
		if item.Quantity <= 0 {
			return &domain.ValidationError{Message: fmt.Sprintf("items[%d]: quantity must be positive", i)}
		}
	}
	if strings.TrimSpace(r.DeliveryAddress) == "" {
		return &domain.ValidationError{Message: "delivery_address is required"}
	}
	return nil
}

type BusinessFailure struct {
	BusinessID string
	Err        error
}

// PartialCheckoutError lists the businesses whose order could not be
// created. Their stock has been released.
type PartialCheckoutError struct {
	Failures []BusinessFailure
}

func (e *PartialCheckoutError) Error() string {
	return "checkout failed for businesses: " + strings.Join(e.BusinessIDs(), ", ")
}

func (e *PartialCheckoutError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

func (e *PartialCheckoutError) BusinessIDs() []string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.BusinessID
	}
	return ids
}

// Checkout reserves the whole cart, then creates one PENDING order per
// business. A rejected reservation leaves no order behind. When some orders
// cannot be stored, the created ones are returned along with a
// *PartialCheckoutError.
func (s *Service) Checkout(ctx context.Context, consumerID string, req CheckoutRequest) ([]domain.Order, error) {
	if err := req.Validate(); err != nil {
		s.metrics.recordCheckout(ctx, "invalid")
		return nil, err
	}

	lines := domain.MergeCartLines(req.Items)
	if err := domain.ValidateCartLines(lines); err != nil {
		s.metrics.recordCheckout(ctx, "invalid")
		return nil, err
	}

	snapshots, err := s.ledger.Reserve(ctx, lines)
	if err != nil {
		s.metrics.recordCheckout(ctx, "rejected")
		return nil, err
	}

	drafts := Split(lines, snapshots)
	now := s.now()

	created := make([]domain.Order, 0, len(drafts))
	var failures []BusinessFailure

	for _, businessID := range BusinessIDs(drafts) {
		draft := drafts[businessID]
		order := &domain.Order{
			ConsumerID:      consumerID,
			BusinessID:      businessID,
			TotalCents:      draft.SubtotalCents,
			DeliveryAddress: req.DeliveryAddress,
			CustomerName:    req.CustomerName,
			PhoneNumber:     req.PhoneNumber,
			PaymentMethod:   req.PaymentMethod,
			Status:          domain.OrderStatusPending,
			Items:           draft.Items,
			CreatedAt:       now,
		}

		if err := s.store.CreateOrder(ctx, order); err != nil {
			s.logger.Error("failed to create sub-order", "error", err, "business_id", businessID)
			s.compensate(ctx, businessID, draft)
			failures = append(failures, BusinessFailure{BusinessID: businessID, Err: err})
			continue
		}

		created = append(created, *order)
		s.publishCreated(ctx, order)
	}

	s.metrics.recordCreated(ctx, len(created))

	if len(failures) > 0 {
		s.metrics.recordCheckout(ctx, "partial")
		perr := &PartialCheckoutError{Failures: failures}
		if len(created) == 0 {
			return nil, perr
		}
		return created, perr
	}

	s.metrics.recordCheckout(ctx, "ok")
	s.logger.Info("checkout completed", "consumer_id", consumerID, "orders", len(created))
	return created, nil
}

func (s *Service) compensate(ctx context.Context, businessID string, draft SubOrderDraft) {
	// The request context may already be done; stock must still go back.
	ctx = context.WithoutCancel(ctx)
	if err := s.ledger.Release(ctx, draft.Lines()); err != nil {
		s.logger.Error("failed to release stock of failed sub-order", "error", err, "business_id", businessID)
	}
}

func (s *Service) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	return s.store.ListForActor(ctx, actor)
}

func (s *Service) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return s.store.GetForActor(ctx, orderID, actor)
}

// Claim assigns an open order to the courier. Losing a concurrent claim, or
// claiming an order that is not open, fails with *domain.NotAvailableError.
func (s *Service) Claim(ctx context.Context, courierID, orderID string) (*domain.Order, error) {
	order, err := s.store.Claim(ctx, courierID, orderID, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotAvailable) {
			s.metrics.recordClaim(ctx, false)
		}
		return nil, err
	}

	s.metrics.recordClaim(ctx, true)
	s.logger.Info("delivery claimed", "order_id", orderID, "courier_id", courierID)
	s.publishStatusChanged(ctx, domain.Actor{ID: courierID, Role: domain.RoleCourier}, order.ID,
		domain.OrderStatusPending, domain.OrderStatusConfirmed, order.UpdatedAt)

	return order, nil
}

// Transition moves an order the actor is attached to into newStatus, if the
// actor's role allows that edge from the current status.
func (s *Service) Transition(ctx context.Context, actor domain.Actor, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	if !newStatus.Valid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown status %q", newStatus)}
	}

	current, err := s.store.GetForActor(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}

	if !CanTransition(actor.Role, current.Status, newStatus) {
		return nil, &domain.InvalidTransitionError{From: current.Status, To: newStatus}
	}

	now := s.now()
	var completedAt *time.Time
	if newStatus == domain.OrderStatusCourierDelivered {
		completedAt = &now
	}

	updated, err := s.store.UpdateStatus(ctx, actor, orderID, current.Status, newStatus, now, completedAt)
	if err != nil {
		if errors.Is(err, domain.ErrStatusChanged) {
			s.logger.Warn("order status changed concurrently", "order_id", orderID, "status", current.Status)
		}
		return nil, err
	}

	s.metrics.recordTransition(ctx, actor.Role, newStatus)
	s.logger.Info("order status changed", "order_id", orderID, "from", current.Status, "status", newStatus)
	s.publishStatusChanged(ctx, actor, orderID, current.Status, newStatus, now)

	return updated, nil
}

// ListOpenRequests returns the orders couriers can claim. Concurrent callers
// share a single query, which runs detached from any one caller and is
// bounded by openRequestsTimeout. Each caller stops waiting when its own
// context is done.
func (s *Service) ListOpenRequests(ctx context.Context) ([]domain.OpenRequest, error) {
	results := s.open.DoChan("open-requests", func() (any, error) {
		queryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), openRequestsTimeout)
		defer cancel()
		return s.store.ListOpen(queryCtx)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	shared := res.Val.([]domain.OpenRequest)
	requests := make([]domain.OpenRequest, len(shared))
	for i, req := range shared {
		req.RewardEstimateCents = CourierEarning(req.TotalCents)
		req.DistanceKm = PlaceholderDistanceKm
		requests[i] = req
	}

	return requests, nil
}

func (s *Service) Earnings(ctx context.Context, courierID string) (EarningsSummary, error) {
	completed, err := s.store.ListCompletedForCourier(ctx, courierID)
	if err != nil {
		return EarningsSummary{}, err
	}
	return SummarizeEarnings(completed), nil
}

func (s *Service) publishCreated(ctx context.Context, order *domain.Order) {
	if s.events == nil {
		return
	}
	event := domain.OrderCreatedEvent{
		OrderID:    order.ID,
		ConsumerID: order.ConsumerID,
		BusinessID: order.BusinessID,
		TotalCents: order.TotalCents,
		Items:      order.Items,
		Timestamp:  order.CreatedAt,
	}
	if err := s.events.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, actor domain.Actor, orderID string, from, to domain.OrderStatus, at time.Time) {
	if s.events == nil {
		return
	}
	event := domain.OrderStatusChangedEvent{
		OrderID:   orderID,
		From:      from,
		To:        to,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Timestamp: at,
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		s.logger.Error("failed to publish status changed event", "error", err, "order_id", orderID)
	}
}
