package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
// Transitions are one-way: pending/completed -> cancelled.
type OrderStatus string

const (
	// StatusPending is retained for compatibility with an older workflow;
	// the POS commit path creates orders directly as completed.
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Modifier is a priced add-on snapshot carried on a cart line and its
// persisted order item, so receipts can be reconstructed even after the
// catalog changes.
type Modifier struct {
	DessertID int64 `json:"dessert_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// CartLine is one row the customer is buying: either a bare dessert or a
// combo. Prices are snapshotted when the line is built and are never
// re-read from the catalog at commit time.
type CartLine struct {
	DessertID         int64
	Name              string
	UnitPrice         int64
	Quantity          int
	HasUnlimitedStock bool
	ComboID           *int64
	ComboName         string
	Modifiers         []Modifier
}

// LineTotal returns unit price times quantity as a fixed-point value.
func (l *CartLine) LineTotal() decimal.Decimal {
	return decimal.NewFromInt(l.UnitPrice).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the persisted sale header. Only Status and IsDeleted ever
// change after creation.
type Order struct {
	ID           int64
	CustomerName string
	Status       OrderStatus
	Total        decimal.Decimal
	DeliveryCost decimal.Decimal
	IsDeleted    bool
	CreatedAt    time.Time
	Items        []OrderItem
}

// OrderItem is an immutable persisted line. StockTracked records whether
// stock was deducted for this line at commit time, so cancellation
// restores exactly what was deducted regardless of later catalog edits.
type OrderItem struct {
	ID           int64
	OrderID      int64
	DessertID    int64
	DessertName  string
	UnitPrice    int64
	Quantity     int
	StockTracked bool
	ComboID      *int64
	ComboName    string
	Modifiers    []Modifier
}

// DayFormat is the ledger day key layout.
const DayFormat = "2006-01-02"

// Day returns the ledger day for t in t's location.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}
