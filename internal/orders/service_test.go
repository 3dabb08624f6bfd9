package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/store"
	"github.com/imran-vz/cocoacomaastore/internal/store/memory"
)

var testDay1 = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
var testDay2 = time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, now time.Time) (*Service, *memory.Store) {
	t.Helper()
	memStore := memory.New()
	svc := New(memStore, nil, zap.NewNop(), func() time.Time { return now })
	return svc, memStore
}

func setStock(t *testing.T, st store.Store, day string, dessertID int64, quantity int) {
	t.Helper()
	err := st.WithinTx(context.Background(), func(tx store.Tx) error {
		_, err := tx.SetQuantity(context.Background(), day, dessertID, quantity)
		return err
	})
	require.NoError(t, err)
}

func bareLine(dessertID int64, name string, price int64, quantity int) domain.CartLine {
	return domain.CartLine{
		DessertID: dessertID,
		Name:      name,
		UnitPrice: price,
		Quantity:  quantity,
	}
}

func TestCommitOrder_RoundTrip(t *testing.T) {
	svc, memStore := newTestService(t, testDay1)
	day := domain.Day(testDay1)
	setStock(t, memStore, day, 1, 5)

	line := bareLine(1, "Brownie", 70, 2)
	order, err := svc.CommitOrder(context.Background(), "Alice", []domain.CartLine{line}, decimal.Zero, "user1")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, order.Status)
	assert.Equal(t, "140.00", order.Total.StringFixed(2))
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].StockTracked)

	quantity, err := memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, quantity)

	entries, err := memStore.ListAudit(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	deducted := entries[0]
	assert.Equal(t, domain.AuditOrderDeducted, deducted.Action)
	assert.Equal(t, 5, deducted.PreviousQuantity)
	assert.Equal(t, 3, deducted.NewQuantity)
	require.NotNil(t, deducted.OrderID)
	assert.Equal(t, order.ID, *deducted.OrderID)
	assert.Equal(t, "user1", deducted.UserID)

	// Cancellation restores the ledger and flips the status.
	err = svc.CancelOrder(context.Background(), order.ID, "test", "user1")
	require.NoError(t, err)

	quantity, err = memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, quantity)

	stored, err := memStore.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)

	entries, err = memStore.ListAudit(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	restored := entries[1]
	assert.Equal(t, domain.AuditOrderCancelled, restored.Action)
	assert.Equal(t, 3, restored.PreviousQuantity)
	assert.Equal(t, 5, restored.NewQuantity)
	assert.Equal(t, "test", restored.Note)
}

func TestCommitOrder_InsufficientStock(t *testing.T) {
	svc, memStore := newTestService(t, testDay1)
	day := domain.Day(testDay1)
	setStock(t, memStore, day, 1, 1)

	line := bareLine(1, "Brownie", 70, 2)
	_, err := svc.CommitOrder(context.Background(), "Alice", []domain.CartLine{line}, decimal.Zero, "user1")

	var insufficientErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, "Brownie", insufficientErr.ItemName)
	assert.Equal(t, 1, insufficientErr.Available)
	assert.Equal(t, 2, insufficientErr.Requested)

	// Nothing persisted.
	quantity, err := memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, quantity)
	entries, err := memStore.ListAudit(context.Background(), day)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommitOrder_ComboDemandAggregation(t *testing.T) {
	// A bare line (qty 2) and a combo line on the same base (qty 1) must
	// be validated as a combined demand of 3, not two separate checks.
	svc, memStore := newTestService(t, testDay1)
	day := domain.Day(testDay1)
	setStock(t, memStore, day, 1, 2)

	comboID := int64(7)
	cart := []domain.CartLine{
		bareLine(1, "Brownie", 70, 2),
		{
			DessertID: 1,
			Name:      "Brownie",
			UnitPrice: 100,
			Quantity:  1,
			ComboID:   &comboID,
			ComboName: "Brownie + Ice Cream",
			Modifiers: []domain.Modifier{{DessertID: 2, Name: "Ice Cream", UnitPrice: 30, Quantity: 1}},
		},
	}

	_, err := svc.CommitOrder(context.Background(), "Bob", cart, decimal.Zero, "user1")
	var insufficientErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, 2, insufficientErr.Available)
	assert.Equal(t, 3, insufficientErr.Requested)

	// With exactly 3 in stock the same cart commits and drains the day.
	setStock(t, memStore, day, 1, 3)
	order, err := svc.CommitOrder(context.Background(), "Bob", cart, decimal.Zero, "user1")
	require.NoError(t, err)
	assert.Equal(t, "240.00", order.Total.StringFixed(2))

	quantity, err := memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, quantity)
}

func TestCommitOrder_UnlimitedStockExemption(t *testing.T) {
	svc, memStore := newTestService(t, testDay1)

	cart := []domain.CartLine{
		{DessertID: 9, Name: "Bottled Water", UnitPrice: 20, Quantity: 3, HasUnlimitedStock: true},
	}
	order, err := svc.CommitOrder(context.Background(), "Carol", cart, decimal.Zero, "user1")
	require.NoError(t, err)
	assert.Equal(t, "60.00", order.Total.StringFixed(2))
	require.Len(t, order.Items, 1)
	assert.False(t, order.Items[0].StockTracked)

	// The ledger was never locked or read.
	assert.Equal(t, 0, memStore.LockCalls())

	entries, err := memStore.ListAudit(context.Background(), domain.Day(testDay1))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCommitOrder_NoOversellUnderConcurrency(t *testing.T) {
	svc, memStore := newTestService(t, testDay1)
	day := domain.Day(testDay1)
	setStock(t, memStore, day, 1, 1)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			line := bareLine(1, "Brownie", 70, 1)
			_, err := svc.CommitOrder(context.Background(), "Race", []domain.CartLine{line}, decimal.Zero, "user1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, insufficient int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var insufficientErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &insufficientErr)
		insufficient++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)

	quantity, err := memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, quantity)
}

func TestCommitOrder_InvalidQuantity(t *testing.T) {
	svc, _ := newTestService(t, testDay1)

	line := bareLine(1, "Brownie", 70, 0)
	_, err := svc.CommitOrder(context.Background(), "Dave", []domain.CartLine{line}, decimal.Zero, "user1")

	var invalidErr *domain.InvalidQuantityError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, 0, invalidErr.Quantity)
}

func TestCommitOrder_EmptyCart(t *testing.T) {
	svc, _ := newTestService(t, testDay1)
	_, err := svc.CommitOrder(context.Background(), "Eve", nil, decimal.Zero, "user1")
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCommitOrder_NegativeDeliveryCost(t *testing.T) {
	svc, _ := newTestService(t, testDay1)
	line := bareLine(1, "Brownie", 70, 1)
	_, err := svc.CommitOrder(context.Background(), "Eve", []domain.CartLine{line}, decimal.NewFromInt(-1), "user1")
	assert.ErrorIs(t, err, ErrInvalidDeliveryCost)
}

func TestCommitOrder_DeliveryCostInTotal(t *testing.T) {
	svc, memStore := newTestService(t, testDay1)
	setStock(t, memStore, domain.Day(testDay1), 1, 5)

	line := bareLine(1, "Brownie", 70, 2)
	deliveryCost := decimal.RequireFromString("49.50")
	order, err := svc.CommitOrder(context.Background(), "Frank", []domain.CartLine{line}, deliveryCost, "user1")
	require.NoError(t, err)
	assert.Equal(t, "189.50", order.Total.StringFixed(2))
	assert.Equal(t, "49.50", order.DeliveryCost.StringFixed(2))
}

// failingStore wraps a real store and injects a failure late in the
// transaction, after the decrement has been staged.
type failingStore struct {
	store.Store
}

type failingTx struct {
	store.Tx
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx})
	})
}

func (t *failingTx) AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	return errors.New("connection reset by peer")
}

func TestCommitOrder_Atomicity(t *testing.T) {
	memStore := memory.New()
	day := domain.Day(testDay1)
	setStock(t, memStore, day, 1, 5)

	svc := New(&failingStore{Store: memStore}, nil, zap.NewNop(), func() time.Time { return testDay1 })

	line := bareLine(1, "Brownie", 70, 2)
	_, err := svc.CommitOrder(context.Background(), "Alice", []domain.CartLine{line}, decimal.Zero, "user1")
	require.Error(t, err)

	// The failure hit after lock and decrement were staged; nothing may
	// have survived the rollback.
	quantity, err := memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, quantity)

	entries, err := memStore.ListAudit(context.Background(), day)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = memStore.GetOrder(context.Background(), 1)
	var notFound *domain.OrderNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCancelOrder_Idempotent(t *testing.T) {
	svc, memStore := newTestService(t, testDay1)
	day := domain.Day(testDay1)
	setStock(t, memStore, day, 1, 5)

	line := bareLine(1, "Brownie", 70, 2)
	order, err := svc.CommitOrder(context.Background(), "Alice", []domain.CartLine{line}, decimal.Zero, "user1")
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(context.Background(), order.ID, "", "user1"))

	quantity, err := memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, quantity)

	entriesAfterFirst, err := memStore.ListAudit(context.Background(), day)
	require.NoError(t, err)

	// Second cancellation reports the state and changes nothing.
	err = svc.CancelOrder(context.Background(), order.ID, "", "user1")
	var alreadyCancelled *domain.AlreadyCancelledError
	require.ErrorAs(t, err, &alreadyCancelled)

	quantity, err = memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, quantity)

	entriesAfterSecond, err := memStore.ListAudit(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, len(entriesAfterFirst), len(entriesAfterSecond))
}

func TestCancelOrder_DefaultNote(t *testing.T) {
	svc, memStore := newTestService(t, testDay1)
	day := domain.Day(testDay1)
	setStock(t, memStore, day, 1, 5)

	line := bareLine(1, "Brownie", 70, 1)
	order, err := svc.CommitOrder(context.Background(), "Alice", []domain.CartLine{line}, decimal.Zero, "user1")
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(context.Background(), order.ID, "  ", "user1"))

	entries, err := memStore.ListAudit(context.Background(), day)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, domain.AuditOrderCancelled, last.Action)
	assert.Equal(t, defaultCancelNote, last.Note)
}

func TestCancelOrder_RestoresOriginalDay(t *testing.T) {
	// A late cancellation of yesterday's order restores yesterday's
	// ledger, not today's.
	memStore := memory.New()
	day1 := domain.Day(testDay1)
	day2 := domain.Day(testDay2)
	setStock(t, memStore, day1, 1, 5)

	svcDay1 := New(memStore, nil, zap.NewNop(), func() time.Time { return testDay1 })
	svcDay2 := New(memStore, nil, zap.NewNop(), func() time.Time { return testDay2 })

	line := bareLine(1, "Brownie", 70, 2)
	order, err := svcDay1.CommitOrder(context.Background(), "Alice", []domain.CartLine{line}, decimal.Zero, "user1")
	require.NoError(t, err)

	require.NoError(t, svcDay2.CancelOrder(context.Background(), order.ID, "late cancel", "user2"))

	quantityDay1, err := memStore.GetQuantity(context.Background(), day1, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, quantityDay1)

	quantityDay2, err := memStore.GetQuantity(context.Background(), day2, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, quantityDay2)

	entriesDay1, err := memStore.ListAudit(context.Background(), day1)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditOrderCancelled, entriesDay1[len(entriesDay1)-1].Action)
}

func TestCancelOrder_NotFound(t *testing.T) {
	svc, _ := newTestService(t, testDay1)
	err := svc.CancelOrder(context.Background(), 12345, "", "user1")
	var notFound *domain.OrderNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(12345), notFound.OrderID)
}

func TestCancelOrder_SkipsUnlimitedItems(t *testing.T) {
	svc, memStore := newTestService(t, testDay1)
	day := domain.Day(testDay1)
	setStock(t, memStore, day, 1, 5)

	cart := []domain.CartLine{
		bareLine(1, "Brownie", 70, 1),
		{DessertID: 9, Name: "Bottled Water", UnitPrice: 20, Quantity: 2, HasUnlimitedStock: true},
	}
	order, err := svc.CommitOrder(context.Background(), "Grace", cart, decimal.Zero, "user1")
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrder(context.Background(), order.ID, "", "user1"))

	// Only the tracked dessert was restored; the water never touched the
	// ledger in either direction.
	quantity, err := memStore.GetQuantity(context.Background(), day, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, quantity)
	quantity, err = memStore.GetQuantity(context.Background(), day, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, quantity)
}
