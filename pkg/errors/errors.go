// Package errors defines the standardized HTTP error envelope and the
// mapping from domain errors to response codes.
package errors

import (
	"fmt"
	"net/http"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
)

// StandardError represents a standardized error response
type StandardError struct {
	Code    string `json:"error"`   // Error code/type (e.g., "InsufficientStock", "OrderNotFound")
	Message string `json:"message"` // Human-readable error message
	Details string `json:"details"` // Additional details (item name, quantities, etc.)
}

// Error implements the error interface
func (e *StandardError) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for the error
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case "InvalidRequest", "ValidationError", "InvalidQuantity", "InsufficientStock", "ItemUnavailable":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusUnauthorized
	case "OrderNotFound", "ResourceNotFound":
		return http.StatusNotFound
	case "AlreadyCancelled", "Conflict":
		return http.StatusConflict
	case "BrokerConnectionError", "ServiceUnavailable":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewStandardError creates a new StandardError
func NewStandardError(errorCode, message, details string) *StandardError {
	return &StandardError{
		Code:    errorCode,
		Message: message,
		Details: details,
	}
}

func NewInvalidRequest(message, details string) *StandardError {
	return NewStandardError("InvalidRequest", message, details)
}

func NewInternalError(message string, err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return NewStandardError("InternalError", message, details)
}

// FromDomain maps a domain error onto the standard envelope.
// User-correctable failures keep their structured detail; anything else
// becomes a generic TransactionFailure so no inventory state is implied.
func FromDomain(err error) *StandardError {
	if err == domain.ErrDessertNotFound || err == domain.ErrComboNotFound {
		return NewStandardError("ResourceNotFound", err.Error(), "")
	}
	switch e := err.(type) {
	case *StandardError:
		return e
	case *domain.InsufficientStockError:
		return NewStandardError("InsufficientStock", e.Error(),
			fmt.Sprintf("Item: %s, Available: %d, Requested: %d", e.ItemName, e.Available, e.Requested))
	case *domain.ItemUnavailableError:
		return NewStandardError("ItemUnavailable", e.Error(), fmt.Sprintf("Item: %s", e.ItemName))
	case *domain.InvalidQuantityError:
		return NewStandardError("InvalidQuantity", e.Error(),
			fmt.Sprintf("Item: %s, Quantity: %d", e.ItemName, e.Quantity))
	case *domain.OrderNotFoundError:
		return NewStandardError("OrderNotFound", e.Error(), fmt.Sprintf("Order ID: %d", e.OrderID))
	case *domain.AlreadyCancelledError:
		return NewStandardError("AlreadyCancelled", e.Error(), fmt.Sprintf("Order ID: %d", e.OrderID))
	case *domain.DomainError:
		return NewStandardError("InvalidRequest", e.Error(), "")
	default:
		return NewStandardError("TransactionFailure", "the operation could not be completed", "")
	}
}
