package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/catalog"
	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/resolver"
	"github.com/imran-vz/cocoacomaastore/pkg/errors"
)

// CatalogHandler serves dessert/combo reads, the management CRUD and
// the cart-line resolve endpoint.
type CatalogHandler struct {
	logger   *zap.Logger
	service  *catalog.Service
	resolver *resolver.Resolver
}

func NewCatalogHandler(service *catalog.Service, res *resolver.Resolver, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{logger: logger, service: service, resolver: res}
}

// ListDesserts handles GET /api/v1/desserts
func (h *CatalogHandler) ListDesserts(c *gin.Context) {
	desserts, err := h.service.ListDesserts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list desserts", zap.Error(err))
		respondError(c, errors.FromDomain(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"desserts": desserts})
}

// CreateDessert handles POST /api/v1/desserts
func (h *CatalogHandler) CreateDessert(c *gin.Context) {
	var req DessertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid request", err.Error()))
		return
	}

	dessert := domain.Dessert{
		Name:              req.Name,
		Description:       req.Description,
		Price:             req.Price,
		HasUnlimitedStock: req.HasUnlimitedStock,
		IsOutOfStock:      req.IsOutOfStock,
		Enabled:           req.Enabled == nil || *req.Enabled,
	}
	if err := h.service.SaveDessert(c.Request.Context(), &dessert); err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}
	c.JSON(http.StatusCreated, dessert)
}

// UpdateDessert handles PUT /api/v1/desserts/:id
func (h *CatalogHandler) UpdateDessert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("invalid dessert id", c.Param("id")))
		return
	}

	var req DessertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid request", err.Error()))
		return
	}

	dessert, err := h.service.GetDessert(c.Request.Context(), id)
	if err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	dessert.Name = req.Name
	dessert.Description = req.Description
	dessert.Price = req.Price
	dessert.HasUnlimitedStock = req.HasUnlimitedStock
	dessert.IsOutOfStock = req.IsOutOfStock
	if req.Enabled != nil {
		dessert.Enabled = *req.Enabled
	}
	if err := h.service.SaveDessert(c.Request.Context(), dessert); err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}
	c.JSON(http.StatusOK, dessert)
}

// DeleteDessert handles DELETE /api/v1/desserts/:id
func (h *CatalogHandler) DeleteDessert(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("invalid dessert id", c.Param("id")))
		return
	}
	if err := h.service.DeleteDessert(c.Request.Context(), id); err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCombos handles GET /api/v1/combos
func (h *CatalogHandler) ListCombos(c *gin.Context) {
	combos, err := h.service.ListCombos(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list combos", zap.Error(err))
		respondError(c, errors.FromDomain(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"combos": combos})
}

// CreateCombo handles POST /api/v1/combos
func (h *CatalogHandler) CreateCombo(c *gin.Context) {
	h.saveCombo(c, 0)
}

// UpdateCombo handles PUT /api/v1/combos/:id
func (h *CatalogHandler) UpdateCombo(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("invalid combo id", c.Param("id")))
		return
	}
	h.saveCombo(c, id)
}

func (h *CatalogHandler) saveCombo(c *gin.Context, id int64) {
	var req ComboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid request", err.Error()))
		return
	}

	base, err := h.service.GetDessert(c.Request.Context(), req.BaseDessertID)
	if err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	items := make([]domain.ComboItem, 0, len(req.Items))
	for _, item := range req.Items {
		modifier, err := h.service.GetDessert(c.Request.Context(), item.DessertID)
		if err != nil {
			respondError(c, errors.FromDomain(err))
			return
		}
		items = append(items, domain.ComboItem{
			DessertID: modifier.ID,
			Name:      modifier.Name,
			UnitPrice: modifier.Price,
			Quantity:  item.Quantity,
		})
	}

	combo := domain.Combo{
		ID:            id,
		Name:          req.Name,
		Base:          *base,
		Items:         items,
		OverridePrice: req.OverridePrice,
		Enabled:       req.Enabled == nil || *req.Enabled,
	}
	if err := h.service.SaveCombo(c.Request.Context(), &combo); err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	c.JSON(status, combo)
}

// DeleteCombo handles DELETE /api/v1/combos/:id
func (h *CatalogHandler) DeleteCombo(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("invalid combo id", c.Param("id")))
		return
	}
	if err := h.service.DeleteCombo(c.Request.Context(), id); err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}
	c.Status(http.StatusNoContent)
}

// ResolveSelection handles POST /api/v1/cart/resolve: turns a dessert
// or combo click into a priced cart line with snapshotted prices.
func (h *CatalogHandler) ResolveSelection(c *gin.Context) {
	var req ResolveSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid request", err.Error()))
		return
	}
	if (req.DessertID == nil) == (req.ComboID == nil) {
		respondError(c, errors.NewInvalidRequest("exactly one of dessert_id or combo_id must be set", ""))
		return
	}

	var line domain.CartLine
	var err error
	if req.DessertID != nil {
		var dessert *domain.Dessert
		dessert, err = h.service.GetDessert(c.Request.Context(), *req.DessertID)
		if err == nil {
			line, err = h.resolver.ResolveDessert(c.Request.Context(), dessert, req.Quantity)
		}
	} else {
		var combo *domain.Combo
		combo, err = h.service.GetCombo(c.Request.Context(), *req.ComboID)
		if err == nil {
			line, err = h.resolver.ResolveCombo(c.Request.Context(), combo, req.Quantity)
		}
	}
	if err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	modifiers := make([]ModifierPayload, 0, len(line.Modifiers))
	for _, m := range line.Modifiers {
		modifiers = append(modifiers, ModifierPayload{
			DessertID: m.DessertID,
			Name:      m.Name,
			UnitPrice: m.UnitPrice,
			Quantity:  m.Quantity,
		})
	}
	c.JSON(http.StatusOK, CartLinePayload{
		DessertID:         line.DessertID,
		Name:              line.Name,
		UnitPrice:         line.UnitPrice,
		Quantity:          line.Quantity,
		HasUnlimitedStock: line.HasUnlimitedStock,
		ComboID:           line.ComboID,
		ComboName:         line.ComboName,
		Modifiers:         modifiers,
	})
}
