// Package store defines the persistence interfaces shared by the
// Postgres and in-memory backends. The transactional surface (Tx) is the
// only legal mutation path for ledger rows, orders and audit entries.
package store

import (
	"context"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
)

// Tx is the transaction-scoped mutation surface. Every method runs
// inside one atomic unit: either all staged changes commit or none do.
type Tx interface {
	// LockQuantities reads current quantities for the given desserts on
	// the given day with a write lock held until the transaction ends.
	// All rows are locked in a single statement; ids absent from the
	// ledger report quantity 0.
	LockQuantities(ctx context.Context, day string, dessertIDs []int64) (map[int64]int, error)

	// DecrementQuantities subtracts the demanded quantity per dessert in
	// one batched update and returns the new quantities. Sufficiency is
	// the caller's responsibility, verified under the lock taken by
	// LockQuantities.
	DecrementQuantities(ctx context.Context, day string, demand map[int64]int) (map[int64]int, error)

	// SetQuantity overwrites a ledger row (manual correction path),
	// creating it if absent, and returns the previous quantity.
	SetQuantity(ctx context.Context, day string, dessertID int64, quantity int) (previous int, err error)

	// RestoreQuantity adds quantity back to a ledger row (cancellation
	// path) and returns the previous and updated quantities.
	RestoreQuantity(ctx context.Context, day string, dessertID int64, quantity int) (previous, updated int, err error)

	// InsertOrder persists the order header and its items, assigning IDs.
	InsertOrder(ctx context.Context, order *domain.Order) error

	// GetOrderForUpdate loads an order with its items, holding a write
	// lock on the header row until the transaction ends.
	GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error)

	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error

	// AppendAudit writes one append-only audit entry.
	AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error
}

// Store is the transactional store backing the order commit engine.
type Store interface {
	// WithinTx runs fn in one transaction. A non-nil error from fn rolls
	// back every staged change.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// GetQuantity returns the ledger quantity for one dessert on one
	// day, 0 when no row exists.
	GetQuantity(ctx context.Context, day string, dessertID int64) (int, error)

	// GetQuantities returns all ledger rows for a day.
	GetQuantities(ctx context.Context, day string) (map[int64]int, error)

	GetOrder(ctx context.Context, orderID int64) (*domain.Order, error)

	ListAudit(ctx context.Context, day string) ([]domain.AuditLogEntry, error)
}

// Catalog is the dessert/combo persistence surface. The order commit
// engine only reads from it; the catalog handlers also write.
type Catalog interface {
	GetDessert(ctx context.Context, id int64) (*domain.Dessert, error)
	ListDesserts(ctx context.Context) ([]domain.Dessert, error)
	// SaveDessert creates the dessert when ID is zero, updates otherwise.
	SaveDessert(ctx context.Context, dessert *domain.Dessert) error
	// DeleteDessert soft-deletes.
	DeleteDessert(ctx context.Context, id int64) error

	GetCombo(ctx context.Context, id int64) (*domain.Combo, error)
	ListCombos(ctx context.Context) ([]domain.Combo, error)
	SaveCombo(ctx context.Context, combo *domain.Combo) error
	DeleteCombo(ctx context.Context, id int64) error
}
