// Package memory implements the store interfaces with staged in-memory
// writes. Transactions serialize behind a store-wide mutex, which gives
// the same observable semantics as the Postgres backend's batched row
// locks: overlapping commits never interleave between check and write.
// Used by tests and as a local development fallback.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/store"
)

// Store holds all state behind one mutex.
type Store struct {
	mu sync.Mutex

	ledger   map[string]map[int64]int
	orders   map[int64]*domain.Order
	audit    []domain.AuditLogEntry
	desserts map[int64]*domain.Dessert
	combos   map[int64]*domain.Combo

	nextOrderID     int64
	nextOrderItemID int64
	nextAuditID     int64
	nextDessertID   int64
	nextComboID     int64

	lockCalls int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		ledger:   make(map[string]map[int64]int),
		orders:   make(map[int64]*domain.Order),
		desserts: make(map[int64]*domain.Dessert),
		combos:   make(map[int64]*domain.Combo),
	}
}

// LockCalls reports how many times a transaction locked ledger rows.
func (s *Store) LockCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockCalls
}

// WithinTx serializes the whole transaction behind the store mutex.
// Changes are staged on the tx and applied only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		now:      time.Now(),
		ledger:   make(map[string]map[int64]int),
		statuses: make(map[int64]domain.OrderStatus),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply()
	return nil
}

func (s *Store) GetQuantity(ctx context.Context, day string, dessertID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger[day][dessertID], nil
}

func (s *Store) GetQuantities(ctx context.Context, day string) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]int, len(s.ledger[day]))
	for id, qty := range s.ledger[day] {
		out[id] = qty
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok || order.IsDeleted {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}
	return copyOrder(order), nil
}

func (s *Store) ListAudit(ctx context.Context, day string) ([]domain.AuditLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditLogEntry
	for _, entry := range s.audit {
		if entry.Day == day {
			out = append(out, entry)
		}
	}
	return out, nil
}

// memTx stages mutations while the store mutex is held.
type memTx struct {
	store *Store
	now   time.Time

	ledger   map[string]map[int64]int // staged absolute quantities
	inserted []*domain.Order
	statuses map[int64]domain.OrderStatus
	audit    []domain.AuditLogEntry
}

// quantity reads staged-first, then committed state.
func (t *memTx) quantity(day string, dessertID int64) int {
	if staged, ok := t.ledger[day]; ok {
		if qty, ok := staged[dessertID]; ok {
			return qty
		}
	}
	return t.store.ledger[day][dessertID]
}

func (t *memTx) stageQuantity(day string, dessertID int64, quantity int) {
	if _, ok := t.ledger[day]; !ok {
		t.ledger[day] = make(map[int64]int)
	}
	t.ledger[day][dessertID] = quantity
}

func (t *memTx) LockQuantities(ctx context.Context, day string, dessertIDs []int64) (map[int64]int, error) {
	t.store.lockCalls++
	out := make(map[int64]int, len(dessertIDs))
	for _, id := range dessertIDs {
		out[id] = t.quantity(day, id)
	}
	return out, nil
}

func (t *memTx) DecrementQuantities(ctx context.Context, day string, demand map[int64]int) (map[int64]int, error) {
	out := make(map[int64]int, len(demand))
	for id, requested := range demand {
		updated := t.quantity(day, id) - requested
		if updated < 0 {
			return nil, fmt.Errorf("ledger constraint violated: dessert %d on %s would go negative", id, day)
		}
		t.stageQuantity(day, id, updated)
		out[id] = updated
	}
	return out, nil
}

func (t *memTx) SetQuantity(ctx context.Context, day string, dessertID int64, quantity int) (int, error) {
	previous := t.quantity(day, dessertID)
	t.stageQuantity(day, dessertID, quantity)
	return previous, nil
}

func (t *memTx) RestoreQuantity(ctx context.Context, day string, dessertID int64, quantity int) (int, int, error) {
	previous := t.quantity(day, dessertID)
	updated := previous + quantity
	t.stageQuantity(day, dessertID, updated)
	return previous, updated, nil
}

func (t *memTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	t.store.nextOrderID++
	order.ID = t.store.nextOrderID
	for i := range order.Items {
		t.store.nextOrderItemID++
		order.Items[i].ID = t.store.nextOrderItemID
		order.Items[i].OrderID = order.ID
	}
	t.inserted = append(t.inserted, copyOrder(order))
	return nil
}

func (t *memTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	for _, order := range t.inserted {
		if order.ID == orderID {
			return copyOrder(order), nil
		}
	}
	order, ok := t.store.orders[orderID]
	if !ok || order.IsDeleted {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}
	out := copyOrder(order)
	if status, ok := t.statuses[orderID]; ok {
		out.Status = status
	}
	return out, nil
}

func (t *memTx) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if _, inserted := t.statuses[orderID]; !inserted {
		if _, ok := t.store.orders[orderID]; !ok {
			found := false
			for _, order := range t.inserted {
				if order.ID == orderID {
					found = true
					break
				}
			}
			if !found {
				return &domain.OrderNotFoundError{OrderID: orderID}
			}
		}
	}
	t.statuses[orderID] = status
	return nil
}

func (t *memTx) AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	t.store.nextAuditID++
	entry.ID = t.store.nextAuditID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now
	}
	t.audit = append(t.audit, entry)
	return nil
}

// apply commits all staged changes. Caller holds the store mutex.
func (t *memTx) apply() {
	for day, staged := range t.ledger {
		if _, ok := t.store.ledger[day]; !ok {
			t.store.ledger[day] = make(map[int64]int)
		}
		for id, qty := range staged {
			t.store.ledger[day][id] = qty
		}
	}
	for _, order := range t.inserted {
		t.store.orders[order.ID] = order
	}
	for id, status := range t.statuses {
		if order, ok := t.store.orders[id]; ok {
			order.Status = status
		}
	}
	t.store.audit = append(t.store.audit, t.audit...)
}

func copyOrder(order *domain.Order) *domain.Order {
	out := *order
	out.Items = make([]domain.OrderItem, len(order.Items))
	copy(out.Items, order.Items)
	for i, item := range order.Items {
		if item.ComboID != nil {
			comboID := *item.ComboID
			out.Items[i].ComboID = &comboID
		}
		out.Items[i].Modifiers = make([]domain.Modifier, len(item.Modifiers))
		copy(out.Items[i].Modifiers, item.Modifiers)
	}
	return &out
}
