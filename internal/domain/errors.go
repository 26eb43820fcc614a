package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrListingNotFound   = errors.New("listing not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNotAvailable      = errors.New("delivery not available")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStatusChanged means another request moved the order between the
	// read and the conditional write.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type ListingNotFoundError struct {
	ListingID string
}

func (e *ListingNotFoundError) Error() string {
	return fmt.Sprintf("Listing with ID %s not found", e.ListingID)
}

func (e *ListingNotFoundError) Is(target error) bool {
	return target == ErrListingNotFound
}

type InsufficientStockError struct {
	ListingID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for listing %s: requested %d, available %d", e.ListingID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NotAvailableError does not tell "already claimed" apart from "never existed".
type NotAvailableError struct {
	OrderID string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("Delivery with ID %s not found or not available", e.OrderID)
}

func (e *NotAvailableError) Is(target error) bool {
	return target == ErrNotAvailable
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Invalid status transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
