package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/lib/pq"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

// Ledger owns available_quantity. Every mutation goes through a conditional
// UPDATE so the quantity can never drop below zero.
type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

type lockedListing struct {
	ownerID   string
	name      string
	price     int64
	available int
	status    domain.ListingStatus
}

// Reserve validates and decrements the whole cart in one transaction. Either
// every line is decremented or none is. Quantities outside
// 1..domain.MaxLineQuantity are rejected before any row is touched.
func (l *Ledger) Reserve(ctx context.Context, lines []domain.CartLine) ([]domain.PriceSnapshot, error) {
	lines = domain.MergeCartLines(lines)
	if len(lines) == 0 {
		return nil, nil
	}
	if err := domain.ValidateCartLines(lines); err != nil {
		return nil, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reserve: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.ListingID
	}

	// Rows are locked in id order so concurrent checkouts never deadlock.
	rows, err := tx.QueryContext(ctx, `
		SELECT id, owner_id, name, unit_price_cents, available_quantity, status
		FROM listings
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("lock listings: %w", err)
	}

	locked := make(map[string]lockedListing, len(ids))
	for rows.Next() {
		var id string
		var ll lockedListing
		if err := rows.Scan(&id, &ll.ownerID, &ll.name, &ll.price, &ll.available, &ll.status); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		locked[id] = ll
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate listings: %w", err)
	}
	_ = rows.Close()

	for _, line := range lines {
		if _, ok := locked[line.ListingID]; !ok {
			return nil, &domain.ListingNotFoundError{ListingID: line.ListingID}
		}
	}

	for _, line := range lines {
		ll := locked[line.ListingID]
		if ll.status != domain.ListingStatusAvailable || ll.available < line.Quantity {
			available := ll.available
			if ll.status != domain.ListingStatusAvailable {
				available = 0
			}
			return nil, &domain.InsufficientStockError{
				ListingID: line.ListingID,
				Requested: line.Quantity,
				Available: available,
			}
		}
	}

	snapshots := make([]domain.PriceSnapshot, 0, len(lines))
	for _, line := range lines {
		result, err := tx.ExecContext(ctx, `
			UPDATE listings
			SET available_quantity = available_quantity - $2,
			    status = CASE WHEN available_quantity - $2 = 0 THEN 'SOLD' ELSE status END,
			    updated_at = NOW()
			WHERE id = $1 AND available_quantity >= $2
		`, line.ListingID, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("decrement listing %s: %w", line.ListingID, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}

		if rowsAffected == 0 {
			return nil, &domain.InsufficientStockError{
				ListingID: line.ListingID,
				Requested: line.Quantity,
				Available: locked[line.ListingID].available,
			}
		}

		ll := locked[line.ListingID]
		snapshots = append(snapshots, domain.PriceSnapshot{
			ListingID:      line.ListingID,
			BusinessID:     ll.ownerID,
			Name:           ll.name,
			UnitPriceCents: ll.price,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reserve: %w", err)
	}

	return snapshots, nil
}

// Release gives reserved quantity back. It compensates a reservation whose
// order could not be persisted.
func (l *Ledger) Release(ctx context.Context, lines []domain.CartLine) error {
	lines = domain.MergeCartLines(lines)
	if len(lines) == 0 {
		return nil
	}
	if err := domain.ValidateCartLines(lines); err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := release(ctx, tx, lines); err != nil {
		return err
	}

	return tx.Commit()
}

// RestockCancelledOrder returns the items of a cancelled order to stock. It
// reports false when the order is not cancelled or was already restocked.
func (l *Ledger) RestockCancelledOrder(ctx context.Context, orderID string) (bool, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin restock: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET restocked_at = NOW()
		WHERE id = $1 AND status = 'CANCELLED' AND restocked_at IS NULL
	`, orderID)
	if err != nil {
		return false, fmt.Errorf("mark order restocked: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected == 0 {
		return false, nil
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT listing_id, SUM(quantity)
		FROM order_items
		WHERE order_id = $1
		GROUP BY listing_id
	`, orderID)
	if err != nil {
		return false, fmt.Errorf("load order items: %w", err)
	}

	var lines []domain.CartLine
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ListingID, &line.Quantity); err != nil {
			_ = rows.Close()
			return false, fmt.Errorf("scan order item: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return false, fmt.Errorf("iterate order items: %w", err)
	}
	_ = rows.Close()

	if err := release(ctx, tx, lines); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit restock: %w", err)
	}

	return true, nil
}

func release(ctx context.Context, tx *sql.Tx, lines []domain.CartLine) error {
	sorted := make([]domain.CartLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ListingID < sorted[j].ListingID })

	for _, line := range sorted {
		_, err := tx.ExecContext(ctx, `
			UPDATE listings
			SET available_quantity = available_quantity + $2,
			    status = CASE WHEN status = 'SOLD' THEN 'AVAILABLE' ELSE status END,
			    updated_at = NOW()
			WHERE id = $1
		`, line.ListingID, line.Quantity)
		if err != nil {
			return fmt.Errorf("release listing %s: %w", line.ListingID, err)
		}
	}

	return nil
}
