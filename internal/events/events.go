package events

import (
	"context"
	"time"
)

// OrderCompletedEvent is published after an order commit transaction
// lands.
type OrderCompletedEvent struct {
	OrderID      int64     `json:"order_id"`
	CustomerName string    `json:"customer_name"`
	Total        string    `json:"total"`
	ActorID      string    `json:"actor_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// OrderCancelledEvent is published after a cancellation transaction
// lands.
type OrderCancelledEvent struct {
	OrderID    int64     `json:"order_id"`
	Reason     string    `json:"reason"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StockChangedEvent is published after a manual stock set.
type StockChangedEvent struct {
	Day              string    `json:"day"`
	DessertID        int64     `json:"dessert_id"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	ActorID          string    `json:"actor_id"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Publisher publishes domain events. Publish failures are logged by
// callers and never fail the originating request.
type Publisher interface {
	Publish(ctx context.Context, event interface{}) error
}
