package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
)

const listingColumns = `id, owner_id, name, description, unit_price_cents, original_price_cents,
	discount_percent, available_quantity, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

// ListingRepository serves a business's view of its own food items. The
// owner is always part of the WHERE clause.
type ListingRepository struct {
	db *sql.DB
}

func NewListingRepository(db *sql.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	listings := []domain.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *listing)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return listings, nil
}

func (r *ListingRepository) GetForOwner(ctx context.Context, ownerID, id string) (*domain.Listing, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1 AND owner_id = $2
	`, id, ownerID)

	return scanListing(row)
}

// UpdateForOwner applies the patch to a listing the business owns. Restocking
// a SOLD listing without an explicit status makes it AVAILABLE again.
func (r *ListingRepository) UpdateForOwner(ctx context.Context, ownerID, id string, patch domain.ListingPatch) (*domain.Listing, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE listings SET
			unit_price_cents = COALESCE($3::bigint, unit_price_cents),
			original_price_cents = COALESCE($4::bigint, original_price_cents),
			discount_percent = COALESCE($5::integer, discount_percent),
			available_quantity = COALESCE($6::integer, available_quantity),
			status = CASE
				WHEN $7::text IS NOT NULL THEN $7::text
				WHEN status = 'SOLD' AND COALESCE($6::integer, available_quantity) > 0 THEN 'AVAILABLE'
				ELSE status
			END,
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+listingColumns,
		id, ownerID,
		patch.UnitPriceCents, patch.OriginalPriceCents, patch.DiscountPercent,
		patch.AvailableQuantity, patch.Status,
	)

	return scanListing(row)
}

func scanListing(row scanner) (*domain.Listing, error) {
	var l domain.Listing
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Description, &l.UnitPriceCents, &l.OriginalPriceCents,
		&l.DiscountPercent, &l.AvailableQuantity, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	return &l, nil
}
