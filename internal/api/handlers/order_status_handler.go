package handlers

import (
	"net/http"

	"example.com/stockflow/internal/models"
	"example.com/stockflow/internal/services"
	"example.com/stockflow/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// OrderStatusHandler handles order status HTTP requests
type OrderStatusHandler struct {
	fulfillment   *services.FulfillmentService
	orderStatuses *services.OrderStatusService
	tracer        tracing.Tracer
}

// NewOrderStatusHandler creates a new order status handler
func NewOrderStatusHandler(
	fulfillment *services.FulfillmentService,
	orderStatuses *services.OrderStatusService,
	tracer tracing.Tracer,
) *OrderStatusHandler {
	return &OrderStatusHandler{
		fulfillment:   fulfillment,
		orderStatuses: orderStatuses,
		tracer:        tracer,
	}
}

// StatusChangeRequest is the POST /api/order-status body
type StatusChangeRequest struct {
	OrderID   string                     `json:"orderId" binding:"required"`
	Shop      string                     `json:"shop" binding:"required"`
	NewStatus string                     `json:"newStatus" binding:"required"`
	Notes     string                     `json:"notes"`
	Items     []models.PurchaseOrderItem `json:"items"`
}

// HandleStatusChange records a status change and, for out-of-stock orders
// with affected items, triggers procurement
func (h *OrderStatusHandler) HandleStatusChange(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-order-status-change")
	defer h.tracer.EndTransaction(txn)

	var req StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid status change request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "order_id", req.OrderID)
	h.tracer.AddAttribute(txn, "shop", req.Shop)
	h.tracer.AddAttribute(txn, "new_status", req.NewStatus)

	result, err := h.fulfillment.HandleStatusChange(c.Request.Context(), services.StatusChangeRequest{
		OrderID:   req.OrderID,
		Shop:      req.Shop,
		NewStatus: req.NewStatus,
		Notes:     req.Notes,
		Items:     req.Items,
	})
	if err != nil {
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("Failed to handle status change")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// HandleGetOrderStatus returns one order with its transition history
func (h *OrderStatusHandler) HandleGetOrderStatus(c *gin.Context) {
	record, err := h.orderStatuses.GetOrderStatus(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// HandleListOrderStatuses returns every tracked order with its history
func (h *OrderStatusHandler) HandleListOrderStatuses(c *gin.Context) {
	records, err := h.orderStatuses.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": records, "count": len(records)})
}

// HandleListOrdersByStatus returns every order currently in the requested
// status
func (h *OrderStatusHandler) HandleListOrdersByStatus(c *gin.Context) {
	records, err := h.orderStatuses.ListOrdersByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": records, "count": len(records)})
}

// RegisterRoutes registers the handler's routes
func (h *OrderStatusHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/order-status", h.HandleStatusChange)
	router.GET("/api/order-status", h.HandleListOrderStatuses)
	router.GET("/api/order-status/:orderId", h.HandleGetOrderStatus)
	router.GET("/api/orders-by-status/:status", h.HandleListOrdersByStatus)
}
