// Package inventory exposes the manual stock-set paths over the ledger
// and read access to today's quantities and the audit trail. Order
// deduction and cancellation restore live in the orders coordinator;
// every mutation here still goes through the same locked transaction
// scope.
package inventory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/events"
	"github.com/imran-vz/cocoacomaastore/internal/store"
)

// ErrNegativeQuantity rejects a manual set below zero.
var ErrNegativeQuantity = &domain.DomainError{Message: "stock quantity cannot be negative"}

// ErrUnlimitedStock rejects ledger writes for desserts exempt from
// tracking: an unlimited-stock dessert never appears in the ledger.
var ErrUnlimitedStock = &domain.DomainError{Message: "dessert has unlimited stock and is not ledger-tracked"}

// Service is the stock ledger's manual mutation surface.
type Service struct {
	store     store.Store
	catalog   store.Catalog
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func New(st store.Store, catalog store.Catalog, publisher events.Publisher, logger *zap.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, catalog: catalog, publisher: publisher, logger: logger, now: now}
}

// GetQuantity returns today's remaining quantity for one dessert, 0 when
// no ledger row exists yet.
func (s *Service) GetQuantity(ctx context.Context, dessertID int64) (int, error) {
	return s.store.GetQuantity(ctx, domain.Day(s.now()), dessertID)
}

// TodayQuantities returns all of today's ledger rows.
func (s *Service) TodayQuantities(ctx context.Context) (map[int64]int, error) {
	return s.store.GetQuantities(ctx, domain.Day(s.now()))
}

// SetQuantity overwrites today's stock for one dessert and always writes
// a set_stock audit entry, even when the value is unchanged.
func (s *Service) SetQuantity(ctx context.Context, dessertID int64, quantity int, actorID string) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	dessert, err := s.catalog.GetDessert(ctx, dessertID)
	if err != nil {
		return err
	}
	if dessert.HasUnlimitedStock {
		return ErrUnlimitedStock
	}

	now := s.now()
	day := domain.Day(now)
	var previous int

	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		previous, err = tx.SetQuantity(ctx, day, dessertID, quantity)
		if err != nil {
			return err
		}
		return tx.AppendAudit(ctx, domain.AuditLogEntry{
			Day:              day,
			DessertID:        dessertID,
			Action:           domain.AuditSetStock,
			PreviousQuantity: previous,
			NewQuantity:      quantity,
			UserID:           actorID,
			CreatedAt:        now,
		})
	})
	if err != nil {
		s.logger.Error("failed to set stock",
			zap.Int64("dessert_id", dessertID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("stock set",
		zap.Int64("dessert_id", dessertID),
		zap.Int("previous", previous),
		zap.Int("quantity", quantity),
		zap.String("actor", actorID),
	)
	s.publish(ctx, events.StockChangedEvent{
		Day:              day,
		DessertID:        dessertID,
		PreviousQuantity: previous,
		NewQuantity:      quantity,
		ActorID:          actorID,
		OccurredAt:       now,
	})
	return nil
}

// SetQuantities bulk-sets today's stock in one transaction, skipping
// rows whose quantity is unchanged so the audit log stays signal-only.
func (s *Service) SetQuantities(ctx context.Context, quantities map[int64]int, actorID string) error {
	for _, quantity := range quantities {
		if quantity < 0 {
			return ErrNegativeQuantity
		}
	}
	for dessertID := range quantities {
		dessert, err := s.catalog.GetDessert(ctx, dessertID)
		if err != nil {
			return err
		}
		if dessert.HasUnlimitedStock {
			return ErrUnlimitedStock
		}
	}

	now := s.now()
	day := domain.Day(now)
	changed := 0

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		for dessertID, quantity := range quantities {
			previous, err := tx.SetQuantity(ctx, day, dessertID, quantity)
			if err != nil {
				return err
			}
			if previous == quantity {
				continue
			}
			changed++
			if err := tx.AppendAudit(ctx, domain.AuditLogEntry{
				Day:              day,
				DessertID:        dessertID,
				Action:           domain.AuditSetStock,
				PreviousQuantity: previous,
				NewQuantity:      quantity,
				UserID:           actorID,
				CreatedAt:        now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to bulk set stock", zap.Int("rows", len(quantities)), zap.Error(err))
		return err
	}

	s.logger.Info("stock bulk set",
		zap.Int("rows", len(quantities)),
		zap.Int("changed", changed),
		zap.String("actor", actorID),
	)
	return nil
}

// AuditTrail lists all ledger mutations for one day.
func (s *Service) AuditTrail(ctx context.Context, day string) ([]domain.AuditLogEntry, error) {
	return s.store.ListAudit(ctx, day)
}

func (s *Service) publish(ctx context.Context, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event", zap.Error(err))
	}
}
