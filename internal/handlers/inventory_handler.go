package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/inventory"
	"github.com/imran-vz/cocoacomaastore/pkg/errors"
	"github.com/imran-vz/cocoacomaastore/pkg/middleware"
)

// InventoryHandler exposes today's stock and the manual set paths.
type InventoryHandler struct {
	logger  *zap.Logger
	service *inventory.Service
}

func NewInventoryHandler(service *inventory.Service, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{logger: logger, service: service}
}

// GetStock handles GET /api/v1/inventory
func (h *InventoryHandler) GetStock(c *gin.Context) {
	quantities, err := h.service.TodayQuantities(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read stock", zap.Error(err))
		respondError(c, errors.FromDomain(err))
		return
	}

	out := make(map[string]int, len(quantities))
	for id, quantity := range quantities {
		out[strconv.FormatInt(id, 10)] = quantity
	}
	c.JSON(http.StatusOK, gin.H{"quantities": out})
}

// SetStock handles PUT /api/v1/inventory/:dessertId
func (h *InventoryHandler) SetStock(c *gin.Context) {
	dessertID, err := strconv.ParseInt(c.Param("dessertId"), 10, 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("invalid dessert id", c.Param("dessertId")))
		return
	}

	var req SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid request", err.Error()))
		return
	}

	if err := h.service.SetQuantity(c.Request.Context(), dessertID, *req.Quantity, middleware.GetActorID(c)); err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"dessert_id": dessertID, "quantity": *req.Quantity})
}

// BulkSetStock handles PUT /api/v1/inventory
func (h *InventoryHandler) BulkSetStock(c *gin.Context) {
	var req BulkSetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid request", err.Error()))
		return
	}

	if err := h.service.SetQuantities(c.Request.Context(), req.Quantities, middleware.GetActorID(c)); err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": len(req.Quantities)})
}

// GetAuditTrail handles GET /api/v1/inventory/audit?day=2026-08-28
func (h *InventoryHandler) GetAuditTrail(c *gin.Context) {
	day := c.Query("day")
	if day == "" {
		day = domain.Day(time.Now())
	} else if _, err := time.Parse(domain.DayFormat, day); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid day", day))
		return
	}

	entries, err := h.service.AuditTrail(c.Request.Context(), day)
	if err != nil {
		h.logger.Error("Failed to read audit trail", zap.String("day", day), zap.Error(err))
		respondError(c, errors.FromDomain(err))
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		row := gin.H{
			"id":                entry.ID,
			"day":               entry.Day,
			"dessert_id":        entry.DessertID,
			"action":            string(entry.Action),
			"previous_quantity": entry.PreviousQuantity,
			"new_quantity":      entry.NewQuantity,
			"user_id":           entry.UserID,
			"note":              entry.Note,
			"created_at":        entry.CreatedAt,
		}
		if entry.OrderID != nil {
			row["order_id"] = *entry.OrderID
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "entries": out})
}
