package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
)

// ledgerStub answers GetQuantity from a fixed day->dessert->quantity map.
type ledgerStub struct {
	quantities map[string]map[int64]int
}

func (l *ledgerStub) GetQuantity(ctx context.Context, day string, dessertID int64) (int, error) {
	return l.quantities[day][dessertID], nil
}

var resolverNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func newTestResolver(quantities map[int64]int) *Resolver {
	stub := &ledgerStub{quantities: map[string]map[int64]int{
		domain.Day(resolverNow): quantities,
	}}
	return New(stub, func() time.Time { return resolverNow })
}

func TestResolveDessert_SnapshotsPrice(t *testing.T) {
	r := newTestResolver(map[int64]int{1: 5})
	dessert := &domain.Dessert{ID: 1, Name: "Brownie", Price: 70, Enabled: true}

	line, err := r.ResolveDessert(context.Background(), dessert, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(70), line.UnitPrice)

	// A later catalog price change must not affect the built line.
	dessert.Price = 90
	assert.Equal(t, int64(70), line.UnitPrice)
	assert.Equal(t, "140", line.LineTotal().String())
}

func TestResolveDessert_OutOfStockFlag(t *testing.T) {
	// The manual flag wins even with ledger stock on hand.
	r := newTestResolver(map[int64]int{1: 5})
	dessert := &domain.Dessert{ID: 1, Name: "Brownie", Price: 70, Enabled: true, IsOutOfStock: true}

	_, err := r.ResolveDessert(context.Background(), dessert, 1)
	var unavailable *domain.ItemUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Brownie", unavailable.ItemName)
}

func TestResolveDessert_ZeroLedgerQuantity(t *testing.T) {
	r := newTestResolver(nil)
	dessert := &domain.Dessert{ID: 1, Name: "Brownie", Price: 70, Enabled: true}

	_, err := r.ResolveDessert(context.Background(), dessert, 1)
	var unavailable *domain.ItemUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestResolveDessert_UnlimitedSkipsLedger(t *testing.T) {
	// No ledger row at all, but unlimited stock resolves fine.
	r := newTestResolver(nil)
	dessert := &domain.Dessert{ID: 9, Name: "Bottled Water", Price: 20, Enabled: true, HasUnlimitedStock: true}

	line, err := r.ResolveDessert(context.Background(), dessert, 3)
	require.NoError(t, err)
	assert.True(t, line.HasUnlimitedStock)
}

func TestResolveCombo_DerivedPrice(t *testing.T) {
	r := newTestResolver(map[int64]int{1: 5})
	combo := &domain.Combo{
		ID:      7,
		Name:    "Brownie + Ice Cream",
		Base:    domain.Dessert{ID: 1, Name: "Brownie", Price: 70, Enabled: true},
		Items:   []domain.ComboItem{{DessertID: 2, Name: "Ice Cream", UnitPrice: 30, Quantity: 2}},
		Enabled: true,
	}

	line, err := r.ResolveCombo(context.Background(), combo, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(130), line.UnitPrice) // 70 + 30*2
	require.NotNil(t, line.ComboID)
	assert.Equal(t, int64(7), *line.ComboID)
	assert.Equal(t, "Brownie + Ice Cream", line.ComboName)
	assert.Equal(t, int64(1), line.DessertID) // demand maps to the base
	require.Len(t, line.Modifiers, 1)
	assert.Equal(t, "Ice Cream", line.Modifiers[0].Name)
}

func TestResolveCombo_OverridePrice(t *testing.T) {
	r := newTestResolver(map[int64]int{1: 5})
	override := int64(85)
	combo := &domain.Combo{
		ID:            7,
		Name:          "Lunch Deal",
		Base:          domain.Dessert{ID: 1, Name: "Brownie", Price: 70, Enabled: true},
		Items:         []domain.ComboItem{{DessertID: 2, Name: "Ice Cream", UnitPrice: 30, Quantity: 1}},
		OverridePrice: &override,
		Enabled:       true,
	}

	line, err := r.ResolveCombo(context.Background(), combo, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(85), line.UnitPrice)
}

func TestResolveCombo_ChecksBaseOnly(t *testing.T) {
	// Modifiers are never stock-checked; an out-of-stock base rejects.
	r := newTestResolver(map[int64]int{1: 5})
	combo := &domain.Combo{
		ID:      7,
		Base:    domain.Dessert{ID: 1, Name: "Brownie", Price: 70, Enabled: true, IsOutOfStock: true},
		Enabled: true,
	}

	_, err := r.ResolveCombo(context.Background(), combo, 1)
	var unavailable *domain.ItemUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}

func TestComputeDemand_AggregatesByBase(t *testing.T) {
	comboID := int64(7)
	lines := []domain.CartLine{
		{DessertID: 1, Name: "Brownie", Quantity: 2},
		{DessertID: 1, Name: "Brownie", Quantity: 1, ComboID: &comboID,
			Modifiers: []domain.Modifier{{DessertID: 2, Name: "Ice Cream", Quantity: 1}}},
		{DessertID: 3, Name: "Cookie", Quantity: 4},
	}

	demand, err := ComputeDemand(lines)
	require.NoError(t, err)
	// Modifier dessert 2 never appears in the demand map.
	assert.Equal(t, map[int64]int{1: 3, 3: 4}, demand)
}

func TestComputeDemand_ExcludesUnlimited(t *testing.T) {
	lines := []domain.CartLine{
		{DessertID: 1, Name: "Brownie", Quantity: 2},
		{DessertID: 9, Name: "Bottled Water", Quantity: 5, HasUnlimitedStock: true},
	}

	demand, err := ComputeDemand(lines)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 2}, demand)
}

func TestComputeDemand_RejectsNonPositiveQuantity(t *testing.T) {
	for _, quantity := range []int{0, -1} {
		lines := []domain.CartLine{{DessertID: 1, Name: "Brownie", Quantity: quantity}}
		_, err := ComputeDemand(lines)
		var invalid *domain.InvalidQuantityError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, quantity, invalid.Quantity)
	}
}
