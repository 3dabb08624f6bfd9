package domain

import "fmt"

// DomainError represents a domain-level error with a fixed message.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Domain errors without structured detail.
var (
	ErrDessertNotFound = &DomainError{Message: "dessert not found"}
	ErrComboNotFound   = &DomainError{Message: "combo not found"}
)

// ItemUnavailableError is returned when a dessert cannot be added to a
// cart: it is flagged out of stock or its ledger quantity is exhausted.
type ItemUnavailableError struct {
	ItemName string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("%s is unavailable today", e.ItemName)
}

// InsufficientStockError is returned when a cart demands more of an item
// than the ledger holds. It carries enough detail for the UI to render
// "only N left".
type InsufficientStockError struct {
	ItemName  string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ItemName, e.Available, e.Requested)
}

// InvalidQuantityError is returned for non-positive line quantities;
// callers clamp to [1, 199] before reaching the resolver.
type InvalidQuantityError struct {
	ItemName string
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for %s", e.Quantity, e.ItemName)
}

// OrderNotFoundError is returned by cancellation when the order id does
// not exist.
type OrderNotFoundError struct {
	OrderID int64
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order %d not found", e.OrderID)
}

// AlreadyCancelledError is the idempotency guard for cancellation:
// cancelling twice restores stock exactly once and reports this state
// on the second call.
type AlreadyCancelledError struct {
	OrderID int64
}

func (e *AlreadyCancelledError) Error() string {
	return fmt.Sprintf("order %d is already cancelled", e.OrderID)
}
