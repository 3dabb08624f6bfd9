package domain

import "time"

// AuditAction identifies why a ledger quantity changed.
type AuditAction string

const (
	AuditSetStock         AuditAction = "set_stock"
	AuditOrderDeducted    AuditAction = "order_deducted"
	AuditOrderCancelled   AuditAction = "order_cancelled"
	AuditManualAdjustment AuditAction = "manual_adjustment"
)

// AuditLogEntry is an append-only record of a single stock mutation.
// Entries are never updated or deleted; they are the sole source of
// truth for "why did stock change".
type AuditLogEntry struct {
	ID               int64
	Day              string
	DessertID        int64
	Action           AuditAction
	PreviousQuantity int
	NewQuantity      int
	OrderID          *int64
	UserID           string
	Note             string
	CreatedAt        time.Time
}
