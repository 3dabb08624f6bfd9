// Package resolver turns catalog selections into priced cart lines and
// finalized carts into the per-dessert demand the transaction
// coordinator validates against the ledger.
package resolver

import (
	"context"
	"time"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
)

// LedgerReader is the read-only slice of the stock ledger the resolver
// needs for availability checks.
type LedgerReader interface {
	GetQuantity(ctx context.Context, day string, dessertID int64) (int, error)
}

// Resolver builds cart lines from catalog data. The clock is injected so
// tests control the ledger day boundary.
type Resolver struct {
	ledger LedgerReader
	now    func() time.Time
}

func New(ledger LedgerReader, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{ledger: ledger, now: now}
}

// ResolveDessert builds a bare cart line for a dessert selection.
// The price is snapshotted here and never re-read at commit time.
func (r *Resolver) ResolveDessert(ctx context.Context, dessert *domain.Dessert, quantity int) (domain.CartLine, error) {
	if err := r.checkAvailable(ctx, dessert); err != nil {
		return domain.CartLine{}, err
	}
	return domain.CartLine{
		DessertID:         dessert.ID,
		Name:              dessert.Name,
		UnitPrice:         dessert.Price,
		Quantity:          quantity,
		HasUnlimitedStock: dessert.HasUnlimitedStock,
	}, nil
}

// ResolveCombo builds a combo cart line. Only the base dessert is
// availability-checked; modifiers are priced but never stock-tracked.
func (r *Resolver) ResolveCombo(ctx context.Context, combo *domain.Combo, quantity int) (domain.CartLine, error) {
	if err := r.checkAvailable(ctx, &combo.Base); err != nil {
		return domain.CartLine{}, err
	}

	modifiers := make([]domain.Modifier, 0, len(combo.Items))
	for _, item := range combo.Items {
		modifiers = append(modifiers, domain.Modifier{
			DessertID: item.DessertID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	comboID := combo.ID
	return domain.CartLine{
		DessertID:         combo.Base.ID,
		Name:              combo.Base.Name,
		UnitPrice:         combo.Price(),
		Quantity:          quantity,
		HasUnlimitedStock: combo.Base.HasUnlimitedStock,
		ComboID:           &comboID,
		ComboName:         combo.Name,
		Modifiers:         modifiers,
	}, nil
}

// checkAvailable gates a base dessert: the manual out-of-stock flag
// wins, then the ledger quantity for today unless stock is unlimited.
func (r *Resolver) checkAvailable(ctx context.Context, dessert *domain.Dessert) error {
	if dessert.IsOutOfStock {
		return &domain.ItemUnavailableError{ItemName: dessert.Name}
	}
	if dessert.HasUnlimitedStock {
		return nil
	}
	quantity, err := r.ledger.GetQuantity(ctx, domain.Day(r.now()), dessert.ID)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return &domain.ItemUnavailableError{ItemName: dessert.Name}
	}
	return nil
}

// ComputeDemand aggregates the per-dessert quantity the whole cart
// requires. Combo lines count toward their base dessert, never the
// modifiers. Unlimited-stock lines are excluded entirely: they need no
// stock check. Quantities are clamped to [1, 199] upstream, so a
// non-positive quantity here is a caller bug and is rejected.
func ComputeDemand(lines []domain.CartLine) (map[int64]int, error) {
	demand := make(map[int64]int)
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &domain.InvalidQuantityError{ItemName: line.Name, Quantity: line.Quantity}
		}
		if line.HasUnlimitedStock {
			continue
		}
		demand[line.DessertID] += line.Quantity
	}
	return demand, nil
}
