package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
)

// pgTx implements store.Tx on a live database transaction.
type pgTx struct {
	tx *sql.Tx
}

// LockQuantities acquires row locks over the full id set in one
// statement. Locking iteratively would allow two transactions to grab
// the same two rows in opposite order and deadlock.
func (t *pgTx) LockQuantities(ctx context.Context, day string, dessertIDs []int64) (map[int64]int, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT dessert_id, quantity
		FROM stock_ledger
		WHERE day = $1 AND dessert_id = ANY($2)
		FOR UPDATE
	`, day, dessertIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int, len(dessertIDs))
	for _, id := range dessertIDs {
		out[id] = 0
	}
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

// decrementQuery builds the single CASE-WHEN batched update for a demand
// map. Ids are sorted so the generated SQL is deterministic.
func decrementQuery(day string, demand map[int64]int) (string, []interface{}) {
	ids := make([]int64, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	args := []interface{}{day}
	var cases strings.Builder
	for _, id := range ids {
		cases.WriteString(fmt.Sprintf(" WHEN $%d::bigint THEN $%d::integer", len(args)+1, len(args)+2))
		args = append(args, id, demand[id])
	}
	args = append(args, ids)

	query := fmt.Sprintf(`
		UPDATE stock_ledger
		SET quantity = quantity - CASE dessert_id%s END,
		    updated_at = now()
		WHERE day = $1 AND dessert_id = ANY($%d)
		RETURNING dessert_id, quantity
	`, cases.String(), len(args))
	return query, args
}

// DecrementQuantities applies the whole demand map in one batched
// update. Sufficiency must already have been verified under the lock;
// the quantity >= 0 constraint is the last line of defense.
func (t *pgTx) DecrementQuantities(ctx context.Context, day string, demand map[int64]int) (map[int64]int, error) {
	if len(demand) == 0 {
		return map[int64]int{}, nil
	}

	query, args := decrementQuery(day, demand)
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]int, len(demand))
	for rows.Next() {
		var id int64
		var quantity int
		if err := rows.Scan(&id, &quantity); err != nil {
			return nil, err
		}
		out[id] = quantity
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(demand) {
		return nil, fmt.Errorf("decrement touched %d of %d ledger rows on %s", len(out), len(demand), day)
	}
	return out, nil
}

func (t *pgTx) SetQuantity(ctx context.Context, day string, dessertID int64, quantity int) (int, error) {
	var previous int
	err := t.tx.QueryRowContext(ctx, `
		SELECT quantity FROM stock_ledger WHERE day = $1 AND dessert_id = $2 FOR UPDATE
	`, day, dessertID).Scan(&previous)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO stock_ledger (day, dessert_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (day, dessert_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
	`, day, dessertID, quantity)
	if err != nil {
		return 0, err
	}
	return previous, nil
}

func (t *pgTx) RestoreQuantity(ctx context.Context, day string, dessertID int64, quantity int) (int, int, error) {
	var previous int
	err := t.tx.QueryRowContext(ctx, `
		SELECT quantity FROM stock_ledger WHERE day = $1 AND dessert_id = $2 FOR UPDATE
	`, day, dessertID).Scan(&previous)
	if err != nil && err != sql.ErrNoRows {
		return 0, 0, err
	}

	var updated int
	err = t.tx.QueryRowContext(ctx, `
		INSERT INTO stock_ledger (day, dessert_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (day, dessert_id)
		DO UPDATE SET quantity = stock_ledger.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING quantity
	`, day, dessertID, quantity).Scan(&updated)
	if err != nil {
		return 0, 0, err
	}
	return previous, updated, nil
}

func (t *pgTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_name, status, total, delivery_cost, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, order.CustomerName, order.Status, order.Total, order.DeliveryCost, order.CreatedAt).Scan(&order.ID)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		modifiers, err := json.Marshal(item.Modifiers)
		if err != nil {
			return err
		}
		var comboID sql.NullInt64
		if item.ComboID != nil {
			comboID = sql.NullInt64{Int64: *item.ComboID, Valid: true}
		}
		err = t.tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, dessert_id, dessert_name, unit_price, quantity, stock_tracked, combo_id, combo_name, modifiers)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`, item.OrderID, item.DessertID, item.DessertName, item.UnitPrice, item.Quantity,
			item.StockTracked, comboID, item.ComboName, modifiers).Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := scanOrder(t.tx.QueryRowContext(ctx, `
		SELECT id, customer_name, status, total, delivery_cost, is_deleted, created_at
		FROM orders
		WHERE id = $1 AND is_deleted = FALSE
		FOR UPDATE
	`, orderID), orderID)
	if err != nil {
		return nil, err
	}
	items, err := queryOrderItems(ctx, t.tx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE orders SET status = $1 WHERE id = $2
	`, status, orderID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &domain.OrderNotFoundError{OrderID: orderID}
	}
	return nil
}

func (t *pgTx) AppendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	var orderID sql.NullInt64
	if entry.OrderID != nil {
		orderID = sql.NullInt64{Int64: *entry.OrderID, Valid: true}
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO audit_log (day, dessert_id, action, previous_quantity, new_quantity, order_id, user_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.Day, entry.DessertID, entry.Action, entry.PreviousQuantity, entry.NewQuantity,
		orderID, entry.UserID, entry.Note, createdAt)
	return err
}

// queryer lets order scanning work on both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func scanOrder(row *sql.Row, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(&order.ID, &order.CustomerName, &order.Status, &order.Total,
		&order.DeliveryCost, &order.IsDeleted, &order.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func queryOrderItems(ctx context.Context, q queryer, orderID int64) ([]domain.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, dessert_id, dessert_name, unit_price, quantity, stock_tracked, combo_id, combo_name, modifiers
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		var comboID sql.NullInt64
		var modifiers []byte
		if err := rows.Scan(&item.ID, &item.OrderID, &item.DessertID, &item.DessertName,
			&item.UnitPrice, &item.Quantity, &item.StockTracked, &comboID,
			&item.ComboName, &modifiers); err != nil {
			return nil, err
		}
		if comboID.Valid {
			id := comboID.Int64
			item.ComboID = &id
		}
		if err := json.Unmarshal(modifiers, &item.Modifiers); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
