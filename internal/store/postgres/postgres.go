// Package postgres implements the store interfaces on PostgreSQL via the
// pgx stdlib driver. Ledger rows are locked with a single batched
// SELECT ... FOR UPDATE over the full demanded-id set; decrements run as
// one CASE-WHEN batched UPDATE so two overlapping commits can never
// deadlock on lock ordering.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/store"
)

// Store wraps a pooled connection to the POS database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens the database, verifies the connection and ensures the schema.
func New(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(30)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS desserts (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price BIGINT NOT NULL CHECK (price >= 0),
		has_unlimited_stock BOOLEAN NOT NULL DEFAULT FALSE,
		is_out_of_stock BOOLEAN NOT NULL DEFAULT FALSE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS combos (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		base_dessert_id BIGINT NOT NULL REFERENCES desserts(id),
		override_price BIGINT,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS combo_items (
		combo_id BIGINT NOT NULL REFERENCES combos(id) ON DELETE CASCADE,
		dessert_id BIGINT NOT NULL REFERENCES desserts(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		PRIMARY KEY (combo_id, dessert_id)
	);

	-- Per-day remaining quantity. Rows accumulate per day for history
	-- and are never deleted.
	CREATE TABLE IF NOT EXISTS stock_ledger (
		day DATE NOT NULL,
		dessert_id BIGINT NOT NULL REFERENCES desserts(id),
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (day, dessert_id)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		customer_name TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'completed', 'cancelled')),
		total NUMERIC(12,2) NOT NULL,
		delivery_cost NUMERIC(12,2) NOT NULL DEFAULT 0,
		is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id),
		dessert_id BIGINT NOT NULL,
		dessert_name TEXT NOT NULL,
		unit_price BIGINT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		stock_tracked BOOLEAN NOT NULL,
		combo_id BIGINT,
		combo_name TEXT NOT NULL DEFAULT '',
		modifiers JSONB NOT NULL DEFAULT '[]'
	);

	-- Append-only; never updated or deleted.
	CREATE TABLE IF NOT EXISTS audit_log (
		id BIGSERIAL PRIMARY KEY,
		day DATE NOT NULL,
		dessert_id BIGINT NOT NULL,
		action TEXT NOT NULL CHECK (action IN ('set_stock', 'order_deducted', 'order_cancelled', 'manual_adjustment')),
		previous_quantity INTEGER NOT NULL,
		new_quantity INTEGER NOT NULL,
		order_id BIGINT,
		user_id TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_day ON audit_log(day);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// WithinTx runs fn in one database transaction, rolling back on any
// error from fn or from commit.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.logger.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) GetQuantity(ctx context.Context, day string, dessertID int64) (int, error) {
	var quantity int
	err := s.db.QueryRowContext(ctx, `
		SELECT quantity FROM stock_ledger WHERE day = $1 AND dessert_id = $2
	`, day, dessertID).Scan(&quantity)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

func (s *Store) GetQuantities(ctx context.Context, day string) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dessert_id, quantity FROM stock_ledger WHERE day = $1
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var quantity int
		if err := rows.Scan(&id, &quantity); err != nil {
			return nil, err
		}
		out[id] = quantity
	}
	return out, rows.Err()
}

func (s *Store) GetOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT id, customer_name, status, total, delivery_cost, is_deleted, created_at
		FROM orders
		WHERE id = $1 AND is_deleted = FALSE
	`, orderID), orderID)
	if err != nil {
		return nil, err
	}
	items, err := queryOrderItems(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (s *Store) ListAudit(ctx context.Context, day string) ([]domain.AuditLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, day, dessert_id, action, previous_quantity, new_quantity, order_id, user_id, note, created_at
		FROM audit_log
		WHERE day = $1
		ORDER BY id
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		var day time.Time
		var orderID sql.NullInt64
		if err := rows.Scan(&entry.ID, &day, &entry.DessertID, &entry.Action,
			&entry.PreviousQuantity, &entry.NewQuantity, &orderID,
			&entry.UserID, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Day = domain.Day(day)
		if orderID.Valid {
			id := orderID.Int64
			entry.OrderID = &id
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}
