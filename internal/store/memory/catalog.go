package memory

import (
	"context"
	"sort"
	"time"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
)

func (s *Store) GetDessert(ctx context.Context, id int64) (*domain.Dessert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dessert, ok := s.desserts[id]
	if !ok || dessert.IsDeleted {
		return nil, domain.ErrDessertNotFound
	}
	out := *dessert
	return &out, nil
}

func (s *Store) ListDesserts(ctx context.Context) ([]domain.Dessert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Dessert, 0, len(s.desserts))
	for _, dessert := range s.desserts {
		if !dessert.IsDeleted {
			out = append(out, *dessert)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveDessert(ctx context.Context, dessert *domain.Dessert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if dessert.ID == 0 {
		s.nextDessertID++
		dessert.ID = s.nextDessertID
		dessert.CreatedAt = now
	}
	dessert.UpdatedAt = now
	stored := *dessert
	s.desserts[dessert.ID] = &stored
	return nil
}

func (s *Store) DeleteDessert(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dessert, ok := s.desserts[id]
	if !ok || dessert.IsDeleted {
		return domain.ErrDessertNotFound
	}
	dessert.IsDeleted = true
	dessert.UpdatedAt = time.Now()
	return nil
}

func (s *Store) GetCombo(ctx context.Context, id int64) (*domain.Combo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	combo, ok := s.combos[id]
	if !ok || combo.IsDeleted {
		return nil, domain.ErrComboNotFound
	}
	return copyCombo(combo), nil
}

func (s *Store) ListCombos(ctx context.Context) ([]domain.Combo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Combo, 0, len(s.combos))
	for _, combo := range s.combos {
		if !combo.IsDeleted {
			out = append(out, *copyCombo(combo))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SaveCombo(ctx context.Context, combo *domain.Combo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if combo.ID == 0 {
		s.nextComboID++
		combo.ID = s.nextComboID
		combo.CreatedAt = now
	}
	combo.UpdatedAt = now
	s.combos[combo.ID] = copyCombo(combo)
	return nil
}

func (s *Store) DeleteCombo(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	combo, ok := s.combos[id]
	if !ok || combo.IsDeleted {
		return domain.ErrComboNotFound
	}
	combo.IsDeleted = true
	combo.UpdatedAt = time.Now()
	return nil
}

func copyCombo(combo *domain.Combo) *domain.Combo {
	out := *combo
	out.Items = make([]domain.ComboItem, len(combo.Items))
	copy(out.Items, combo.Items)
	if combo.OverridePrice != nil {
		price := *combo.OverridePrice
		out.OverridePrice = &price
	}
	return &out
}
