package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/cache"
	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/store"
	"github.com/imran-vz/cocoacomaastore/internal/store/memory"
)

// countingRepo counts list reads so cache hits are observable.
type countingRepo struct {
	store.Catalog
	listDessertCalls int
}

func (r *countingRepo) ListDesserts(ctx context.Context) ([]domain.Dessert, error) {
	r.listDessertCalls++
	return r.Catalog.ListDesserts(ctx)
}

func newTestService(t *testing.T) (*Service, *countingRepo) {
	t.Helper()
	repo := &countingRepo{Catalog: memory.New()}
	svc := New(repo, cache.NewInMemoryCache(), zap.NewNop())

	require.NoError(t, repo.SaveDessert(context.Background(), &domain.Dessert{
		Name: "Brownie", Price: 70, Enabled: true,
	}))
	return svc, repo
}

func TestListDesserts_CachesSecondRead(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	first, err := svc.ListDesserts(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.listDessertCalls)

	second, err := svc.ListDesserts(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, first[0].Price, second[0].Price)
	assert.Equal(t, 1, repo.listDessertCalls)
}

func TestSaveDessert_InvalidatesListCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListDesserts(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SaveDessert(ctx, &domain.Dessert{Name: "Cookie", Price: 40, Enabled: true}))

	desserts, err := svc.ListDesserts(ctx)
	require.NoError(t, err)
	assert.Len(t, desserts, 2)
	assert.Equal(t, 2, repo.listDessertCalls)
}

func TestDeleteDessert_InvalidatesListCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListDesserts(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDessert(ctx, 1))

	desserts, err := svc.ListDesserts(ctx)
	require.NoError(t, err)
	assert.Empty(t, desserts)
}

// failingCache errors on every operation.
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("redis: connection refused")
}

func (failingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("redis: connection refused")
}

func (failingCache) Delete(ctx context.Context, keys ...string) error {
	return errors.New("redis: connection refused")
}

func TestListDesserts_CacheFailureDegradesToDirectRead(t *testing.T) {
	repo := &countingRepo{Catalog: memory.New()}
	svc := New(repo, failingCache{}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.SaveDessert(ctx, &domain.Dessert{Name: "Brownie", Price: 70, Enabled: true}))

	desserts, err := svc.ListDesserts(ctx)
	require.NoError(t, err)
	assert.Len(t, desserts, 1)
	assert.Equal(t, 1, repo.listDessertCalls)
}

func TestListCombos_RoundTripsThroughCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	override := int64(85)
	combo := &domain.Combo{
		Name:          "Lunch Deal",
		Base:          domain.Dessert{ID: 1, Name: "Brownie", Price: 70},
		Items:         []domain.ComboItem{{DessertID: 2, Name: "Ice Cream", UnitPrice: 30, Quantity: 1}},
		OverridePrice: &override,
		Enabled:       true,
	}
	require.NoError(t, svc.SaveCombo(ctx, combo))

	first, err := svc.ListCombos(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Second read comes from cache; the combo survives serialization.
	second, err := svc.ListCombos(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Lunch Deal", second[0].Name)
	require.NotNil(t, second[0].OverridePrice)
	assert.Equal(t, int64(85), *second[0].OverridePrice)
	assert.Equal(t, int64(85), second[0].Price())
}
