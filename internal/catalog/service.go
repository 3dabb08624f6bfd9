// Package catalog serves dessert and combo lookups for the POS, with a
// cached dessert list. The order commit engine never writes catalog
// data; the CRUD paths exist for the management screens.
package catalog

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/cache"
	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/store"
)

const (
	dessertListKey = "catalog:desserts"
	comboListKey   = "catalog:combos"
	listTTL        = 5 * time.Minute
)

// Service wraps the catalog store with read caching and write-path
// invalidation.
type Service struct {
	repo   store.Catalog
	cache  cache.Cache
	logger *zap.Logger
}

func New(repo store.Catalog, c cache.Cache, logger *zap.Logger) *Service {
	return &Service{repo: repo, cache: c, logger: logger}
}

func (s *Service) GetDessert(ctx context.Context, id int64) (*domain.Dessert, error) {
	return s.repo.GetDessert(ctx, id)
}

// ListDesserts serves the dessert list from cache when possible. Cache
// failures degrade to a direct read, never to an error.
func (s *Service) ListDesserts(ctx context.Context) ([]domain.Dessert, error) {
	if cached, err := s.cache.Get(ctx, dessertListKey); err == nil {
		var desserts []domain.Dessert
		if err := json.Unmarshal(cached, &desserts); err == nil {
			return desserts, nil
		}
		s.logger.Warn("discarding unreadable cached dessert list")
	}

	desserts, err := s.repo.ListDesserts(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(desserts); err == nil {
		if err := s.cache.Set(ctx, dessertListKey, encoded, listTTL); err != nil {
			s.logger.Warn("failed to cache dessert list", zap.Error(err))
		}
	}
	return desserts, nil
}

func (s *Service) SaveDessert(ctx context.Context, dessert *domain.Dessert) error {
	if err := s.repo.SaveDessert(ctx, dessert); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) DeleteDessert(ctx context.Context, id int64) error {
	if err := s.repo.DeleteDessert(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) GetCombo(ctx context.Context, id int64) (*domain.Combo, error) {
	return s.repo.GetCombo(ctx, id)
}

func (s *Service) ListCombos(ctx context.Context) ([]domain.Combo, error) {
	if cached, err := s.cache.Get(ctx, comboListKey); err == nil {
		var combos []domain.Combo
		if err := json.Unmarshal(cached, &combos); err == nil {
			return combos, nil
		}
		s.logger.Warn("discarding unreadable cached combo list")
	}

	combos, err := s.repo.ListCombos(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(combos); err == nil {
		if err := s.cache.Set(ctx, comboListKey, encoded, listTTL); err != nil {
			s.logger.Warn("failed to cache combo list", zap.Error(err))
		}
	}
	return combos, nil
}

func (s *Service) SaveCombo(ctx context.Context, combo *domain.Combo) error {
	if err := s.repo.SaveCombo(ctx, combo); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) DeleteCombo(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCombo(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, dessertListKey, comboListKey); err != nil {
		s.logger.Warn("failed to invalidate catalog cache", zap.Error(err))
	}
}
