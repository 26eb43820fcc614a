package domain

import (
	"fmt"
	"math"
	"time"
)

type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "AVAILABLE"
	ListingStatusReserved  ListingStatus = "RESERVED"
	ListingStatusSold      ListingStatus = "SOLD"
	ListingStatusExpired   ListingStatus = "EXPIRED"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusAvailable, ListingStatusReserved, ListingStatusSold, ListingStatusExpired:
		return true
	default:
		return false
	}
}

// Listing is a surplus food item offered by a business.
type Listing struct {
	ID                 string        `json:"id"`
	OwnerID            string        `json:"owner_id"`
	Name               string        `json:"name"`
	Description        string        `json:"description,omitempty"`
	UnitPriceCents     int64         `json:"unit_price_cents"`
	OriginalPriceCents int64         `json:"original_price_cents"`
	DiscountPercent    int           `json:"discount_percent"`
	AvailableQuantity  int           `json:"available_quantity"`
	Status             ListingStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// ListingPatch carries the fields a business may change. Nil fields are left
// untouched.
type ListingPatch struct {
	UnitPriceCents     *int64         `json:"unit_price_cents"`
	OriginalPriceCents *int64         `json:"original_price_cents"`
	DiscountPercent    *int           `json:"discount_percent"`
	AvailableQuantity  *int           `json:"available_quantity"`
	Status             *ListingStatus `json:"status"`
}

func (p ListingPatch) Validate() error {
	fields := map[string]string{}
	if p.UnitPriceCents != nil && *p.UnitPriceCents < 0 {
		fields["unit_price_cents"] = "must not be negative"
	}
	if p.OriginalPriceCents != nil && *p.OriginalPriceCents < 0 {
		fields["original_price_cents"] = "must not be negative"
	}
	if p.DiscountPercent != nil && (*p.DiscountPercent < 0 || *p.DiscountPercent > 100) {
		fields["discount_percent"] = "must be between 0 and 100"
	}
	if p.AvailableQuantity != nil && *p.AvailableQuantity < 0 {
		fields["available_quantity"] = "must not be negative"
	}
	if p.Status != nil && !p.Status.Valid() {
		fields["status"] = "unknown status"
	}
	if len(fields) > 0 {
		return &ValidationError{Message: "invalid food item update", Fields: fields}
	}
	return nil
}

func (p ListingPatch) Empty() bool {
	return p.UnitPriceCents == nil && p.OriginalPriceCents == nil && p.DiscountPercent == nil &&
		p.AvailableQuantity == nil && p.Status == nil
}

// CartLine is checkout input. It only lives for the duration of a checkout.
type CartLine struct {
	ListingID string `json:"listing_id"`
	Quantity  int    `json:"quantity"`
}

// PriceSnapshot is what the ledger hands back for a reserved listing.
type PriceSnapshot struct {
	ListingID      string
	BusinessID     string
	Name           string
	UnitPriceCents int64
}

// MaxLineQuantity is the largest quantity of one listing a cart may hold.
// Stock columns are 32-bit integers.
const MaxLineQuantity = math.MaxInt32

// MergeCartLines sums the quantities of repeated listings, keeping the
// position of the first occurrence. A sum that would overflow saturates at
// math.MaxInt, which ValidateCartLines rejects.
func MergeCartLines(lines []CartLine) []CartLine {
	merged := make([]CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ListingID]; ok {
			merged[i].Quantity = addQuantity(merged[i].Quantity, line.Quantity)
			continue
		}
		index[line.ListingID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

func addQuantity(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	if b < 0 && a < math.MinInt-b {
		return math.MinInt
	}
	return a + b
}

// ValidateCartLines rejects lines without a listing id or with a quantity
// outside 1..MaxLineQuantity. Run it on merged lines so repeated listings
// are checked on their total.
func ValidateCartLines(lines []CartLine) error {
	for _, line := range lines {
		if line.ListingID == "" {
			return &ValidationError{Message: "listing_id is required"}
		}
		if line.Quantity <= 0 || line.Quantity > MaxLineQuantity {
			return &ValidationError{
				Message: fmt.Sprintf("quantity for listing %s must be between 1 and %d", line.ListingID, MaxLineQuantity),
				Fields:  map[string]string{"quantity": "out of range"},
			}
		}
	}
	return nil
}
