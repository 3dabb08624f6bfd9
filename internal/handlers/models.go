package handlers

import (
	"time"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
)

// ModifierPayload is a priced add-on snapshot on a cart line.
type ModifierPayload struct {
	DessertID int64  `json:"dessert_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CartLinePayload carries one cart line exactly as it was resolved when
// added; prices are not re-read from the catalog at commit time.
type CartLinePayload struct {
	DessertID         int64             `json:"dessert_id" binding:"required"`
	Name              string            `json:"name" binding:"required"`
	UnitPrice         int64             `json:"unit_price"`
	Quantity          int               `json:"quantity" binding:"required,min=1,max=199"`
	HasUnlimitedStock bool              `json:"has_unlimited_stock"`
	ComboID           *int64            `json:"combo_id,omitempty"`
	ComboName         string            `json:"combo_name,omitempty"`
	Modifiers         []ModifierPayload `json:"modifiers,omitempty"`
}

func (p *CartLinePayload) toDomain() domain.CartLine {
	modifiers := make([]domain.Modifier, 0, len(p.Modifiers))
	for _, m := range p.Modifiers {
		modifiers = append(modifiers, domain.Modifier{
			DessertID: m.DessertID,
			Name:      m.Name,
			UnitPrice: m.UnitPrice,
			Quantity:  m.Quantity,
		})
	}
	return domain.CartLine{
		DessertID:         p.DessertID,
		Name:              p.Name,
		UnitPrice:         p.UnitPrice,
		Quantity:          p.Quantity,
		HasUnlimitedStock: p.HasUnlimitedStock,
		ComboID:           p.ComboID,
		ComboName:         p.ComboName,
		Modifiers:         modifiers,
	}
}

// CommitOrderRequest is the POS "charge" payload.
type CommitOrderRequest struct {
	CustomerName string            `json:"customer_name" binding:"required"`
	DeliveryCost string            `json:"delivery_cost"`
	Lines        []CartLinePayload `json:"lines" binding:"required"`
}

// CancelOrderRequest carries the optional cancellation reason.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderResponse is the persisted order rendered for the UI.
type OrderResponse struct {
	ID           int64               `json:"id"`
	CustomerName string              `json:"customer_name"`
	Status       string              `json:"status"`
	Total        string              `json:"total"`
	DeliveryCost string              `json:"delivery_cost"`
	CreatedAt    time.Time           `json:"created_at"`
	Items        []OrderItemResponse `json:"items"`
}

type OrderItemResponse struct {
	DessertID   int64             `json:"dessert_id"`
	DessertName string            `json:"dessert_name"`
	UnitPrice   int64             `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	ComboID     *int64            `json:"combo_id,omitempty"`
	ComboName   string            `json:"combo_name,omitempty"`
	Modifiers   []ModifierPayload `json:"modifiers,omitempty"`
}

func toOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		modifiers := make([]ModifierPayload, 0, len(item.Modifiers))
		for _, m := range item.Modifiers {
			modifiers = append(modifiers, ModifierPayload{
				DessertID: m.DessertID,
				Name:      m.Name,
				UnitPrice: m.UnitPrice,
				Quantity:  m.Quantity,
			})
		}
		items = append(items, OrderItemResponse{
			DessertID:   item.DessertID,
			DessertName: item.DessertName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			ComboID:     item.ComboID,
			ComboName:   item.ComboName,
			Modifiers:   modifiers,
		})
	}
	return OrderResponse{
		ID:           order.ID,
		CustomerName: order.CustomerName,
		Status:       string(order.Status),
		Total:        order.Total.StringFixed(2),
		DeliveryCost: order.DeliveryCost.StringFixed(2),
		CreatedAt:    order.CreatedAt,
		Items:        items,
	}
}

// ResolveSelectionRequest turns a catalog click into a priced cart
// line. Exactly one of dessert_id or combo_id must be set.
type ResolveSelectionRequest struct {
	DessertID *int64 `json:"dessert_id"`
	ComboID   *int64 `json:"combo_id"`
	Quantity  int    `json:"quantity" binding:"required,min=1,max=199"`
}

// SetStockRequest overwrites today's quantity for one dessert.
type SetStockRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// BulkSetStockRequest overwrites today's quantities for many desserts.
type BulkSetStockRequest struct {
	Quantities map[int64]int `json:"quantities" binding:"required"`
}

// DessertRequest creates or updates a dessert.
type DessertRequest struct {
	Name              string `json:"name" binding:"required"`
	Description       string `json:"description"`
	Price             int64  `json:"price" binding:"min=0"`
	HasUnlimitedStock bool   `json:"has_unlimited_stock"`
	IsOutOfStock      bool   `json:"is_out_of_stock"`
	Enabled           *bool  `json:"enabled"`
}

// ComboItemRequest is one modifier inside a combo definition.
type ComboItemRequest struct {
	DessertID int64 `json:"dessert_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// ComboRequest creates or updates a combo.
type ComboRequest struct {
	Name          string             `json:"name" binding:"required"`
	BaseDessertID int64              `json:"base_dessert_id" binding:"required"`
	Items         []ComboItemRequest `json:"items"`
	OverridePrice *int64             `json:"override_price"`
	Enabled       *bool              `json:"enabled"`
}
