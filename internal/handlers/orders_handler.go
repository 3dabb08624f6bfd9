package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/domain"
	"github.com/imran-vz/cocoacomaastore/internal/orders"
	"github.com/imran-vz/cocoacomaastore/pkg/errors"
	"github.com/imran-vz/cocoacomaastore/pkg/middleware"
)

// OrdersHandler exposes the order commit engine over HTTP.
type OrdersHandler struct {
	logger  *zap.Logger
	service *orders.Service
}

func NewOrdersHandler(service *orders.Service, logger *zap.Logger) *OrdersHandler {
	return &OrdersHandler{logger: logger, service: service}
}

// CommitOrder handles POST /api/v1/orders
func (h *OrdersHandler) CommitOrder(c *gin.Context) {
	var req CommitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid commit request", zap.Error(err))
		respondError(c, errors.NewInvalidRequest("invalid request", err.Error()))
		return
	}

	deliveryCost := decimal.Zero
	if req.DeliveryCost != "" {
		parsed, err := decimal.NewFromString(req.DeliveryCost)
		if err != nil {
			respondError(c, errors.NewInvalidRequest("invalid delivery cost", req.DeliveryCost))
			return
		}
		deliveryCost = parsed
	}

	lines := make([]domain.CartLine, 0, len(req.Lines))
	for i := range req.Lines {
		lines = append(lines, req.Lines[i].toDomain())
	}

	order, err := h.service.CommitOrder(c.Request.Context(), req.CustomerName, lines, deliveryCost, middleware.GetActorID(c))
	if err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// CancelOrder handles POST /api/v1/orders/:id/cancel
func (h *OrdersHandler) CancelOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("invalid order id", c.Param("id")))
		return
	}

	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondError(c, errors.NewInvalidRequest("invalid request", err.Error()))
		return
	}

	if err := h.service.CancelOrder(c.Request.Context(), orderID, req.Reason, middleware.GetActorID(c)); err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": orderID, "status": string(domain.StatusCancelled)})
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrdersHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, errors.NewInvalidRequest("invalid order id", c.Param("id")))
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, errors.FromDomain(err))
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func respondError(c *gin.Context, stdErr *errors.StandardError) {
	c.JSON(stdErr.HTTPStatus(), stdErr)
}
