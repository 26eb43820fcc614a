package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

const orderSelect = `
	SELECT o.id, o.consumer_id, o.business_id, o.courier_id, o.total_cents,
	       o.delivery_address, o.customer_name, o.phone_number, o.payment_method,
	       o.status, o.created_at, o.updated_at, o.completed_at,
	       COALESCE(b.business_name, ''), COALESCE(b.address, ''), COALESCE(b.phone_number, ''),
	       COALESCE(c.display_name, ''), COALESCE(c.photo_url, ''), COALESCE(c.phone_number, ''),
	       COALESCE(k.display_name, ''), COALESCE(k.phone_number, '')
	FROM orders o
	LEFT JOIN users b ON b.id = o.business_id
	LEFT JOIN users c ON c.id = o.consumer_id
	LEFT JOIN users k ON k.id = o.courier_id`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// actorColumn is the orders column that scopes rows to an actor.
func actorColumn(role domain.Role) (string, error) {
	switch role {
	case domain.RoleConsumer:
		return "consumer_id", nil
	case domain.RoleBusiness:
		return "business_id", nil
	case domain.RoleCourier:
		return "courier_id", nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}

// CreateOrder inserts the order and its items in one transaction.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create order: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, consumer_id, business_id, courier_id, total_cents, delivery_address,
		                    customer_name, phone_number, payment_method, status, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, $4, $5, $6, $7, $8, $9, $10, $10)
	`, order.ID, order.ConsumerID, order.BusinessID, order.TotalCents, order.DeliveryAddress,
		order.CustomerName, order.PhoneNumber, order.PaymentMethod, order.Status, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, listing_id, quantity, unit_price_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, order.ID, i, item.ListingID, item.Quantity, item.UnitPriceCents)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create order: %w", err)
	}

	order.UpdatedAt = order.CreatedAt
	return nil
}

// ListForActor returns the actor's orders newest first. Ties on created_at
// are broken by id so repeated reads agree.
func (r *Repository) ListForActor(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	column, err := actorColumn(actor.Role)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, orderSelect+`
		WHERE o.`+column+` = $1
		ORDER BY o.created_at DESC, o.id
	`, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// GetForActor fails with domain.ErrNotFound both when the order does not
// exist and when it belongs to someone else.
func (r *Repository) GetForActor(ctx context.Context, id string, actor domain.Actor) (*domain.Order, error) {
	column, err := actorColumn(actor.Role)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, orderSelect+`
		WHERE o.id = $1 AND o.`+column+` = $2
	`, id, actor.ID)

	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	orders := []domain.Order{*order}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

// Claim assigns an open order to the courier in a single conditional
// statement. At most one concurrent claim on the same order succeeds.
func (r *Repository) Claim(ctx context.Context, courierID, orderID string, now time.Time) (*domain.Order, error) {
	var claimedID string
	err := r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET courier_id = $2, status = 'CONFIRMED', updated_at = $3
		WHERE id = $1 AND status = 'PENDING' AND courier_id IS NULL
		RETURNING id
	`, orderID, courierID, now).Scan(&claimedID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotAvailableError{OrderID: orderID}
		}
		return nil, fmt.Errorf("claim order: %w", err)
	}

	return r.GetForActor(ctx, claimedID, domain.Actor{ID: courierID, Role: domain.RoleCourier})
}

// UpdateStatus moves the order from one status to another only if it is
// still in the expected status. completedAt is written only when non-nil.
func (r *Repository) UpdateStatus(ctx context.Context, actor domain.Actor, orderID string, from, to domain.OrderStatus, now time.Time, completedAt *time.Time) (*domain.Order, error) {
	column, err := actorColumn(actor.Role)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $4, updated_at = $5, completed_at = COALESCE($6::timestamptz, completed_at)
		WHERE id = $1 AND `+column+` = $2 AND status = $3
	`, orderID, actor.ID, from, to, now, completedAt)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, domain.ErrStatusChanged
	}

	return r.GetForActor(ctx, orderID, actor)
}

// ListOpen returns unclaimed pending orders, oldest first.
func (r *Repository) ListOpen(ctx context.Context) ([]domain.OpenRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.total_cents, o.delivery_address, o.created_at,
		       COALESCE(NULLIF(c.display_name, ''), o.customer_name), COALESCE(c.photo_url, ''),
		       COALESCE(b.business_name, ''), COALESCE(b.address, ''),
		       (SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi WHERE oi.order_id = o.id)
		FROM orders o
		LEFT JOIN users c ON c.id = o.consumer_id
		LEFT JOIN users b ON b.id = o.business_id
		WHERE o.status = 'PENDING' AND o.courier_id IS NULL
		ORDER BY o.created_at, o.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list open orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	requests := []domain.OpenRequest{}
	for rows.Next() {
		var req domain.OpenRequest
		if err := rows.Scan(&req.OrderID, &req.TotalCents, &req.DeliveryAddress, &req.CreatedAt,
			&req.ConsumerName, &req.ConsumerPhotoURL, &req.BusinessName, &req.PickupAddress, &req.ItemCount); err != nil {
			return nil, fmt.Errorf("scan open order: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

// ListCompletedForCourier returns the courier's completed deliveries without
// items.
func (r *Repository) ListCompletedForCourier(ctx context.Context, courierID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, total_cents, status, updated_at, completed_at
		FROM orders
		WHERE courier_id = $1 AND status IN ('COURIER_DELIVERED', 'DELIVERED')
		ORDER BY updated_at DESC, id
	`, courierID)
	if err != nil {
		return nil, fmt.Errorf("list completed deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		var order domain.Order
		var completedAt sql.NullTime
		if err := rows.Scan(&order.ID, &order.TotalCents, &order.Status, &order.UpdatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan completed delivery: %w", err)
		}
		if completedAt.Valid {
			order.CompletedAt = &completedAt.Time
		}
		courier := courierID
		order.CourierID = &courier
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order       domain.Order
		courierID   sql.NullString
		completedAt sql.NullTime
		business    domain.Party
		consumer    domain.Party
		courier     domain.Party
	)

	err := row.Scan(&order.ID, &order.ConsumerID, &order.BusinessID, &courierID, &order.TotalCents,
		&order.DeliveryAddress, &order.CustomerName, &order.PhoneNumber, &order.PaymentMethod,
		&order.Status, &order.CreatedAt, &order.UpdatedAt, &completedAt,
		&business.Name, &business.Address, &business.Phone,
		&consumer.Name, &consumer.PhotoURL, &consumer.Phone,
		&courier.Name, &courier.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	business.ID = order.BusinessID
	order.Business = &business

	consumer.ID = order.ConsumerID
	if consumer.Name == "" {
		consumer.Name = order.CustomerName
	}
	order.Consumer = &consumer

	if courierID.Valid {
		order.CourierID = &courierID.String
		courier.ID = courierID.String
		order.Courier = &courier
	}

	if completedAt.Valid {
		order.CompletedAt = &completedAt.Time
	}

	order.Items = []domain.OrderItem{}
	return &order, nil
}

// loadItems fills Items for every order with one query.
func (r *Repository) loadItems(ctx context.Context, orders []domain.Order) error {
	index := make(map[string]int, len(orders))
	ids := make([]string, len(orders))
	for i, o := range orders {
		index[o.ID] = i
		ids[i] = o.ID
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.listing_id, COALESCE(l.name, ''), oi.quantity, oi.unit_price_cents
		FROM order_items oi
		LEFT JOIN listings l ON l.id = oi.listing_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ListingID, &item.Name, &item.Quantity, &item.UnitPriceCents); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}

	return rows.Err()
}
