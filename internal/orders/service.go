// Package orders implements the transaction coordinator: the atomic
// "place order" and "cancel order" operations over the stock ledger,
// order rows and audit trail.
package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/events"
	"github.com/imran-vz/cocoacomaastore/internal/resolver"
	"github.com/imran-vz/cocoacomaastore/internal/store"
)

// ErrEmptyCart rejects a commit with no lines.
var ErrEmptyCart = &domain.DomainError{Message: "cart is empty"}

// ErrInvalidDeliveryCost rejects a negative delivery cost.
var ErrInvalidDeliveryCost = &domain.DomainError{Message: "delivery cost cannot be negative"}

const defaultCancelNote = "order cancelled"

// Service coordinates order commit and cancellation. It is stateless;
// concurrency safety is pushed entirely to the store's row locking.
type Service struct {
	store     store.Store
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// New creates the coordinator. publisher may be nil when event
// publishing is not wired (tests).
func New(st store.Store, publisher events.Publisher, logger *zap.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, publisher: publisher, logger: logger, now: now}
}

// CommitOrder atomically validates stock for the whole cart, deducts it,
// persists the order with its items and writes one audit entry per
// deducted dessert. Any failure before commit rolls back everything.
func (s *Service) CommitOrder(ctx context.Context, customerName string, lines []domain.CartLine, deliveryCost decimal.Decimal, actorID string) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if deliveryCost.IsNegative() {
		return nil, ErrInvalidDeliveryCost
	}

	demand, err := resolver.ComputeDemand(lines)
	if err != nil {
		return nil, err
	}

	now := s.now()
	day := domain.Day(now)

	total := deliveryCost
	for i := range lines {
		total = total.Add(lines[i].LineTotal())
	}

	order := &domain.Order{
		CustomerName: strings.TrimSpace(customerName),
		Status:       domain.StatusCompleted,
		Total:        total,
		DeliveryCost: deliveryCost,
		CreatedAt:    now,
		Items:        buildOrderItems(lines),
	}

	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		// An all-unlimited cart never touches the ledger.
		if len(demand) > 0 {
			ids := sortedIDs(demand)
			locked, err := tx.LockQuantities(ctx, day, ids)
			if err != nil {
				return fmt.Errorf("failed to lock ledger rows: %w", err)
			}

			// Validate the whole cart under the lock; report the first
			// insufficient line in cart order.
			if err := checkSufficiency(lines, demand, locked); err != nil {
				return err
			}

			updated, err := tx.DecrementQuantities(ctx, day, demand)
			if err != nil {
				return fmt.Errorf("failed to decrement stock: %w", err)
			}

			if err := tx.InsertOrder(ctx, order); err != nil {
				return fmt.Errorf("failed to insert order: %w", err)
			}

			for _, id := range ids {
				entry := domain.AuditLogEntry{
					Day:              day,
					DessertID:        id,
					Action:           domain.AuditOrderDeducted,
					PreviousQuantity: locked[id],
					NewQuantity:      updated[id],
					OrderID:          &order.ID,
					UserID:           actorID,
					CreatedAt:        now,
				}
				if err := tx.AppendAudit(ctx, entry); err != nil {
					return fmt.Errorf("failed to write audit entry: %w", err)
				}
			}
			return nil
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logCommitFailure(err, customerName, actorID)
		return nil, err
	}

	s.logger.Info("order committed",
		zap.Int64("order_id", order.ID),
		zap.String("customer", order.CustomerName),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("lines", len(lines)),
		zap.String("actor", actorID),
	)
	s.publish(ctx, events.OrderCompletedEvent{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Total:        order.Total.StringFixed(2),
		ActorID:      actorID,
		OccurredAt:   now,
	})
	return order, nil
}

// CancelOrder restores deducted stock to the order's original day,
// writes one audit entry per restored dessert and marks the order
// cancelled, all in one transaction. Cancelling twice restores stock
// exactly once; the second call reports AlreadyCancelled.
func (s *Service) CancelOrder(ctx context.Context, orderID int64, reason string, actorID string) error {
	note := strings.TrimSpace(reason)
	if note == "" {
		note = defaultCancelNote
	}
	now := s.now()

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == domain.StatusCancelled {
			return &domain.AlreadyCancelledError{OrderID: orderID}
		}

		// Restore to the day the order was placed, not today: a late
		// cancellation of yesterday's order fixes yesterday's ledger.
		day := domain.Day(order.CreatedAt)

		restore := make(map[int64]int)
		for _, item := range order.Items {
			if item.StockTracked {
				restore[item.DessertID] += item.Quantity
			}
		}

		if len(restore) > 0 {
			ids := sortedIDs(restore)
			// Lock the full restore set in one statement, mirroring the
			// commit path's lock discipline.
			if _, err := tx.LockQuantities(ctx, day, ids); err != nil {
				return fmt.Errorf("failed to lock ledger rows: %w", err)
			}
			for _, id := range ids {
				previous, updated, err := tx.RestoreQuantity(ctx, day, id, restore[id])
				if err != nil {
					return fmt.Errorf("failed to restore stock: %w", err)
				}
				entry := domain.AuditLogEntry{
					Day:              day,
					DessertID:        id,
					Action:           domain.AuditOrderCancelled,
					PreviousQuantity: previous,
					NewQuantity:      updated,
					OrderID:          &orderID,
					UserID:           actorID,
					Note:             note,
					CreatedAt:        now,
				}
				if err := tx.AppendAudit(ctx, entry); err != nil {
					return fmt.Errorf("failed to write audit entry: %w", err)
				}
			}
		}

		return tx.UpdateOrderStatus(ctx, orderID, domain.StatusCancelled)
	})
	if err != nil {
		switch err.(type) {
		case *domain.OrderNotFoundError, *domain.AlreadyCancelledError:
			s.logger.Info("order cancellation rejected", zap.Int64("order_id", orderID), zap.Error(err))
		default:
			s.logger.Error("order cancellation failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return err
	}

	s.logger.Info("order cancelled",
		zap.Int64("order_id", orderID),
		zap.String("reason", note),
		zap.String("actor", actorID),
	)
	s.publish(ctx, events.OrderCancelledEvent{
		OrderID:    orderID,
		Reason:     note,
		ActorID:    actorID,
		OccurredAt: now,
	})
	return nil
}

// GetOrder loads one order with its items for receipt reconstruction.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func buildOrderItems(lines []domain.CartLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			DessertID:    line.DessertID,
			DessertName:  line.Name,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
			StockTracked: !line.HasUnlimitedStock,
			ComboID:      line.ComboID,
			ComboName:    line.ComboName,
			Modifiers:    line.Modifiers,
		})
	}
	return items
}

// checkSufficiency compares locked quantities against the aggregated
// demand. Each dessert is checked once, in the order it first appears in
// the cart, so the reported failure is stable.
func checkSufficiency(lines []domain.CartLine, demand, locked map[int64]int) error {
	seen := make(map[int64]bool, len(demand))
	for _, line := range lines {
		requested, tracked := demand[line.DessertID]
		if !tracked || seen[line.DessertID] {
			continue
		}
		seen[line.DessertID] = true
		if available := locked[line.DessertID]; available < requested {
			return &domain.InsufficientStockError{
				ItemName:  line.Name,
				Available: available,
				Requested: requested,
			}
		}
	}
	return nil
}

func sortedIDs(m map[int64]int) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Service) logCommitFailure(err error, customerName, actorID string) {
	switch err.(type) {
	case *domain.InsufficientStockError, *domain.InvalidQuantityError, *domain.ItemUnavailableError:
		// Expected outcome of normal operation, not a bug.
		s.logger.Info("order rejected", zap.String("customer", customerName), zap.String("actor", actorID), zap.Error(err))
	default:
		s.logger.Error("order commit failed", zap.String("customer", customerName), zap.String("actor", actorID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event interface{}) {
	if s.publisher == nil {
		return
	}
	// Publish failures never fail the sale.
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", zap.Error(err))
	}
}
