package postgres

import (
	"context"
	"database/sql"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
)

func (s *Store) GetDessert(ctx context.Context, id int64) (*domain.Dessert, error) {
	return scanDessert(s.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, has_unlimited_stock, is_out_of_stock, enabled, is_deleted, created_at, updated_at
		FROM desserts
		WHERE id = $1 AND is_deleted = FALSE
	`, id))
}

func (s *Store) ListDesserts(ctx context.Context) ([]domain.Dessert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price, has_unlimited_stock, is_out_of_stock, enabled, is_deleted, created_at, updated_at
		FROM desserts
		WHERE is_deleted = FALSE
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Dessert
	for rows.Next() {
		var d domain.Dessert
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Price, &d.HasUnlimitedStock,
			&d.IsOutOfStock, &d.Enabled, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SaveDessert(ctx context.Context, dessert *domain.Dessert) error {
	if dessert.ID == 0 {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO desserts (name, description, price, has_unlimited_stock, is_out_of_stock, enabled)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`, dessert.Name, dessert.Description, dessert.Price, dessert.HasUnlimitedStock,
			dessert.IsOutOfStock, dessert.Enabled).Scan(&dessert.ID, &dessert.CreatedAt, &dessert.UpdatedAt)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE desserts
		SET name = $1, description = $2, price = $3, has_unlimited_stock = $4,
		    is_out_of_stock = $5, enabled = $6, updated_at = now()
		WHERE id = $7 AND is_deleted = FALSE
	`, dessert.Name, dessert.Description, dessert.Price, dessert.HasUnlimitedStock,
		dessert.IsOutOfStock, dessert.Enabled, dessert.ID)
	if err != nil {
		return err
	}
	return requireAffected(result, domain.ErrDessertNotFound)
}

func (s *Store) DeleteDessert(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE desserts SET is_deleted = TRUE, updated_at = now() WHERE id = $1 AND is_deleted = FALSE
	`, id)
	if err != nil {
		return err
	}
	return requireAffected(result, domain.ErrDessertNotFound)
}

func (s *Store) GetCombo(ctx context.Context, id int64) (*domain.Combo, error) {
	combo, err := scanCombo(s.db.QueryRowContext(ctx, comboSelect+`
		WHERE c.id = $1 AND c.is_deleted = FALSE
	`, id))
	if err != nil {
		return nil, err
	}
	if err := s.loadComboItems(ctx, combo); err != nil {
		return nil, err
	}
	return combo, nil
}

func (s *Store) ListCombos(ctx context.Context) ([]domain.Combo, error) {
	rows, err := s.db.QueryContext(ctx, comboSelect+`
		WHERE c.is_deleted = FALSE
		ORDER BY c.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Combo
	for rows.Next() {
		combo, err := scanComboRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *combo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadComboItems(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) SaveCombo(ctx context.Context, combo *domain.Combo) error {
	return s.WithinTxRaw(ctx, func(tx *sql.Tx) error {
		var overridePrice sql.NullInt64
		if combo.OverridePrice != nil {
			overridePrice = sql.NullInt64{Int64: *combo.OverridePrice, Valid: true}
		}

		if combo.ID == 0 {
			err := tx.QueryRowContext(ctx, `
				INSERT INTO combos (name, base_dessert_id, override_price, enabled)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at, updated_at
			`, combo.Name, combo.Base.ID, overridePrice, combo.Enabled).Scan(&combo.ID, &combo.CreatedAt, &combo.UpdatedAt)
			if err != nil {
				return err
			}
		} else {
			result, err := tx.ExecContext(ctx, `
				UPDATE combos
				SET name = $1, base_dessert_id = $2, override_price = $3, enabled = $4, updated_at = now()
				WHERE id = $5 AND is_deleted = FALSE
			`, combo.Name, combo.Base.ID, overridePrice, combo.Enabled, combo.ID)
			if err != nil {
				return err
			}
			if err := requireAffected(result, domain.ErrComboNotFound); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM combo_items WHERE combo_id = $1`, combo.ID); err != nil {
				return err
			}
		}

		for _, item := range combo.Items {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO combo_items (combo_id, dessert_id, quantity) VALUES ($1, $2, $3)
			`, combo.ID, item.DessertID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteCombo(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE combos SET is_deleted = TRUE, updated_at = now() WHERE id = $1 AND is_deleted = FALSE
	`, id)
	if err != nil {
		return err
	}
	return requireAffected(result, domain.ErrComboNotFound)
}

// WithinTxRaw runs fn against a raw sql.Tx for catalog writes that span
// multiple tables but need none of the ledger tx surface.
func (s *Store) WithinTxRaw(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

const comboSelect = `
	SELECT c.id, c.name, c.override_price, c.enabled, c.is_deleted, c.created_at, c.updated_at,
	       d.id, d.name, d.description, d.price, d.has_unlimited_stock, d.is_out_of_stock, d.enabled, d.is_deleted, d.created_at, d.updated_at
	FROM combos c
	JOIN desserts d ON d.id = c.base_dessert_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComboInto(scanner rowScanner) (*domain.Combo, error) {
	var combo domain.Combo
	var overridePrice sql.NullInt64
	base := &combo.Base
	err := scanner.Scan(&combo.ID, &combo.Name, &overridePrice, &combo.Enabled, &combo.IsDeleted,
		&combo.CreatedAt, &combo.UpdatedAt,
		&base.ID, &base.Name, &base.Description, &base.Price, &base.HasUnlimitedStock,
		&base.IsOutOfStock, &base.Enabled, &base.IsDeleted, &base.CreatedAt, &base.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if overridePrice.Valid {
		price := overridePrice.Int64
		combo.OverridePrice = &price
	}
	return &combo, nil
}

func scanCombo(row *sql.Row) (*domain.Combo, error) {
	combo, err := scanComboInto(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrComboNotFound
	}
	return combo, err
}

func scanComboRow(rows *sql.Rows) (*domain.Combo, error) {
	return scanComboInto(rows)
}

func (s *Store) loadComboItems(ctx context.Context, combo *domain.Combo) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ci.dessert_id, d.name, d.price, ci.quantity
		FROM combo_items ci
		JOIN desserts d ON d.id = ci.dessert_id
		WHERE ci.combo_id = $1
		ORDER BY ci.dessert_id
	`, combo.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.ComboItem
		if err := rows.Scan(&item.DessertID, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			return err
		}
		combo.Items = append(combo.Items, item)
	}
	return rows.Err()
}

func scanDessert(row *sql.Row) (*domain.Dessert, error) {
	var d domain.Dessert
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Price, &d.HasUnlimitedStock,
		&d.IsOutOfStock, &d.Enabled, &d.IsDeleted, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrDessertNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
