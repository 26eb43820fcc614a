package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

type User struct {
	ID           string
	Role         domain.Role
	DisplayName  string
	PhotoURL     string
	Phone        string
	BusinessName string
	Address      string
	VehicleType  string
}

func InsertUser(ctx context.Context, t *testing.T, db *sql.DB, u User) {
	t.Helper()

	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, role, display_name, photo_url, phone_number, business_name, address, vehicle_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Role, u.DisplayName, u.PhotoURL, u.Phone, u.BusinessName, u.Address, u.VehicleType)
	if err != nil {
		t.Fatalf("failed to insert user %s: %v", u.ID, err)
	}
}

// InsertListing stores an AVAILABLE listing with the given stock.
func InsertListing(ctx context.Context, t *testing.T, db *sql.DB, id, ownerID, name string, priceCents int64, quantity int) {
	t.Helper()

	_, err := db.ExecContext(ctx, `
		INSERT INTO listings (id, owner_id, name, unit_price_cents, original_price_cents, available_quantity, status)
		VALUES ($1, $2, $3, $4, $4, $5, 'AVAILABLE')
	`, id, ownerID, name, priceCents, quantity)
	if err != nil {
		t.Fatalf("failed to insert listing %s: %v", id, err)
	}
}

func AvailableQuantity(ctx context.Context, t *testing.T, db *sql.DB, listingID string) int {
	t.Helper()

	var qty int
	if err := db.QueryRowContext(ctx, `SELECT available_quantity FROM listings WHERE id = $1`, listingID).Scan(&qty); err != nil {
		t.Fatalf("failed to read listing %s: %v", listingID, err)
	}
	return qty
}

func CountOrders(ctx context.Context, t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	return n
}
