//go:build integration

package orders_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/inventory"
	"github.com/joao-fontenele/surplus-delivery/internal/orders"
	"github.com/joao-fontenele/surplus-delivery/internal/testutil"
)

var transitionTime = time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)

type env struct {
	db      *sql.DB
	repo    *orders.Repository
	service *orders.Service
}

func setup(ctx context.Context, t *testing.T) *env {
	t.Helper()

	db := testutil.SetupPostgres(ctx, t)
	repo := orders.NewRepository(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := orders.NewService(repo, inventory.NewLedger(db), nil, logger,
		orders.WithClock(func() time.Time { return transitionTime }))

	testutil.InsertUser(ctx, t, db, testutil.User{ID: "c1", Role: domain.RoleConsumer, DisplayName: "Dana", Phone: "555-0101"})
	testutil.InsertUser(ctx, t, db, testutil.User{ID: "biz-1", Role: domain.RoleBusiness, BusinessName: "Corner Bakery", Address: "1 Main St"})
	testutil.InsertUser(ctx, t, db, testutil.User{ID: "biz-2", Role: domain.RoleBusiness, BusinessName: "Soup Shack", Address: "9 Side St"})
	testutil.InsertUser(ctx, t, db, testutil.User{ID: "k1", Role: domain.RoleCourier, DisplayName: "Kim", VehicleType: "bike"})
	testutil.InsertUser(ctx, t, db, testutil.User{ID: "k2", Role: domain.RoleCourier, DisplayName: "Lee", VehicleType: "car"})

	return &env{db: db, repo: repo, service: service}
}

func checkout(items ...domain.CartLine) orders.CheckoutRequest {
	return orders.CheckoutRequest{Items: items, DeliveryAddress: "12 Elm St", CustomerName: "Dana"}
}

func TestCheckout_SingleBusiness(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := setup(ctx, t)
	testutil.InsertListing(ctx, t, e.db, "A", "biz-1", "Bagel box", 1000, 5)
	testutil.InsertListing(ctx, t, e.db, "B", "biz-1", "Pastries", 800, 5)

	created, err := e.service.Checkout(ctx, "c1", checkout(
		domain.CartLine{ListingID: "A", Quantity: 2},
		domain.CartLine{ListingID: "B", Quantity: 1},
	))
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, int64(2800), created[0].TotalCents)
	assert.Equal(t, domain.OrderStatusPending, created[0].Status)
	assert.Len(t, created[0].Items, 2)

	stored, err := e.repo.GetForActor(ctx, created[0].ID, domain.Actor{ID: "c1", Role: domain.RoleConsumer})
	require.NoError(t, err)
	assert.Equal(t, int64(2800), stored.TotalCents)
	assert.Equal(t, stored.TotalCents, stored.ItemsTotalCents())
	assert.Equal(t, []domain.OrderItem{
		{ListingID: "A", Name: "Bagel box", Quantity: 2, UnitPriceCents: 1000},
		{ListingID: "B", Name: "Pastries", Quantity: 1, UnitPriceCents: 800},
	}, stored.Items)
	assert.Equal(t, "Corner Bakery", stored.Business.Name)
	assert.Equal(t, "Dana", stored.Consumer.Name)
	assert.Nil(t, stored.Courier)

	assert.Equal(t, 3, testutil.AvailableQuantity(ctx, t, e.db, "A"))
	assert.Equal(t, 4, testutil.AvailableQuantity(ctx, t, e.db, "B"))
}

func TestCheckout_SplitsByBusiness(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := setup(ctx, t)
	testutil.InsertListing(ctx, t, e.db, "A", "biz-1", "Bagel box", 1000, 5)
	testutil.InsertListing(ctx, t, e.db, "B", "biz-2", "Soup", 800, 5)

	created, err := e.service.Checkout(ctx, "c1", checkout(
		domain.CartLine{ListingID: "A", Quantity: 2},
		domain.CartLine{ListingID: "B", Quantity: 1},
	))
	require.NoError(t, err)

	require.Len(t, created, 2)
	totals := map[string]int64{}
	for _, o := range created {
		totals[o.BusinessID] = o.TotalCents
	}
	assert.Equal(t, map[string]int64{"biz-1": 2000, "biz-2": 800}, totals)

	listed, err := e.service.ListOrders(ctx, domain.Actor{ID: "c1", Role: domain.RoleConsumer})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	forBusiness, err := e.service.ListOrders(ctx, domain.Actor{ID: "biz-2", Role: domain.RoleBusiness})
	require.NoError(t, err)
	require.Len(t, forBusiness, 1)
	assert.Equal(t, int64(800), forBusiness[0].TotalCents)
}

func TestCheckout_InsufficientStockCreatesNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := setup(ctx, t)
	testutil.InsertListing(ctx, t, e.db, "A", "biz-1", "Bagel box", 1000, 1)
	testutil.InsertListing(ctx, t, e.db, "B", "biz-2", "Soup", 800, 5)

	created, err := e.service.Checkout(ctx, "c1", checkout(
		domain.CartLine{ListingID: "B", Quantity: 1},
		domain.CartLine{ListingID: "A", Quantity: 2},
	))

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "A", stockErr.ListingID)
	assert.Empty(t, created)
	assert.Equal(t, 0, testutil.CountOrders(ctx, t, e.db))
	assert.Equal(t, 1, testutil.AvailableQuantity(ctx, t, e.db, "A"))
	assert.Equal(t, 5, testutil.AvailableQuantity(ctx, t, e.db, "B"))
}

func TestClaim_ExactlyOnce(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := setup(ctx, t)
	testutil.InsertListing(ctx, t, e.db, "A", "biz-1", "Bagel box", 1000, 5)

	created, err := e.service.Checkout(ctx, "c1", checkout(domain.CartLine{ListingID: "A", Quantity: 1}))
	require.NoError(t, err)
	orderID := created[0].ID

	open, err := e.service.ListOpenRequests(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, orderID, open[0].OrderID)
	assert.Equal(t, int64(200), open[0].RewardEstimateCents)
	assert.Equal(t, "Corner Bakery", open[0].BusinessName)
	assert.Equal(t, "1 Main St", open[0].PickupAddress)
	assert.Equal(t, 1, open[0].ItemCount)

	var wg sync.WaitGroup
	results := make([]*domain.Order, 2)
	errs := make([]error, 2)
	for i, courier := range []string{"k1", "k2"} {
		wg.Add(1)
		go func(i int, courier string) {
			defer wg.Done()
			results[i], errs[i] = e.service.Claim(ctx, courier, orderID)
		}(i, courier)
	}
	wg.Wait()

	var winner *domain.Order
	losses := 0
	for i := range results {
		if errs[i] == nil {
			winner = results[i]
			continue
		}
		assert.ErrorIs(t, errs[i], domain.ErrNotAvailable)
		losses++
	}
	require.NotNil(t, winner)
	assert.Equal(t, 1, losses)
	assert.Equal(t, domain.OrderStatusConfirmed, winner.Status)
	require.NotNil(t, winner.CourierID)
	assert.Contains(t, []string{"k1", "k2"}, *winner.CourierID)

	open, err = e.service.ListOpenRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestTransition_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := setup(ctx, t)
	testutil.InsertListing(ctx, t, e.db, "A", "biz-1", "Bagel box", 1000, 5)

	created, err := e.service.Checkout(ctx, "c1", checkout(domain.CartLine{ListingID: "A", Quantity: 3}))
	require.NoError(t, err)
	orderID := created[0].ID

	courier := domain.Actor{ID: "k1", Role: domain.RoleCourier}
	_, err = e.service.Claim(ctx, courier.ID, orderID)
	require.NoError(t, err)

	_, err = e.service.Transition(ctx, courier, orderID, domain.OrderStatusDelivered)
	var transitionErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, "Invalid status transition from CONFIRMED to DELIVERED", err.Error())

	_, err = e.service.Transition(ctx, domain.Actor{ID: "k2", Role: domain.RoleCourier}, orderID, domain.OrderStatusPickedUp)
	assert.ErrorIs(t, err, domain.ErrNotFound, "other couriers cannot see the order")

	picked, err := e.service.Transition(ctx, courier, orderID, domain.OrderStatusPickedUp)
	require.NoError(t, err)
	assert.Nil(t, picked.CompletedAt)

	delivered, err := e.service.Transition(ctx, courier, orderID, domain.OrderStatusCourierDelivered)
	require.NoError(t, err)
	require.NotNil(t, delivered.CompletedAt)
	assert.True(t, delivered.CompletedAt.Equal(transitionTime))
	assert.Equal(t, "Kim", delivered.Courier.Name)

	earnings, err := e.service.Earnings(ctx, courier.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), earnings.TotalEarningsCents)
	assert.Equal(t, 1, earnings.TotalDeliveries)
	assert.Equal(t, []orders.DailyEarnings{{Date: "2026-03-14", EarningsCents: 600, Deliveries: 1}}, earnings.Daily)

	confirmed, err := e.service.Transition(ctx, domain.Actor{ID: "c1", Role: domain.RoleConsumer}, orderID, domain.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, confirmed.Status)
	assert.True(t, confirmed.CompletedAt.Equal(transitionTime), "completion time is kept")
}

func TestRepository_UpdateStatusRequiresExpectedStatus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := setup(ctx, t)
	testutil.InsertListing(ctx, t, e.db, "A", "biz-1", "Bagel box", 1000, 5)

	created, err := e.service.Checkout(ctx, "c1", checkout(domain.CartLine{ListingID: "A", Quantity: 1}))
	require.NoError(t, err)

	business := domain.Actor{ID: "biz-1", Role: domain.RoleBusiness}
	_, err = e.repo.UpdateStatus(ctx, business, created[0].ID, domain.OrderStatusPending, domain.OrderStatusBusinessConfirmed, transitionTime, nil)
	require.NoError(t, err)

	_, err = e.repo.UpdateStatus(ctx, business, created[0].ID, domain.OrderStatusPending, domain.OrderStatusCancelled, transitionTime, nil)
	assert.ErrorIs(t, err, domain.ErrStatusChanged)
}

func TestRepository_ReadsAreRepeatable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	e := setup(ctx, t)
	testutil.InsertListing(ctx, t, e.db, "A", "biz-1", "Bagel box", 1000, 10)
	testutil.InsertListing(ctx, t, e.db, "B", "biz-2", "Soup", 800, 10)

	for i := 0; i < 3; i++ {
		_, err := e.service.Checkout(ctx, "c1", checkout(
			domain.CartLine{ListingID: "A", Quantity: 1},
			domain.CartLine{ListingID: "B", Quantity: 1},
		))
		require.NoError(t, err)
	}

	consumer := domain.Actor{ID: "c1", Role: domain.RoleConsumer}
	first, err := e.repo.ListForActor(ctx, consumer)
	require.NoError(t, err)
	second, err := e.repo.ListForActor(ctx, consumer)
	require.NoError(t, err)

	require.Len(t, first, 6)
	require.Len(t, second, 6)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Items, second[i].Items)
	}
}
