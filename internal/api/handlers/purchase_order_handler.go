package handlers

import (
	"net/http"

	"example.com/stockflow/internal/models"
	"example.com/stockflow/internal/services"
	"example.com/stockflow/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// PurchaseOrderHandler handles purchase order HTTP requests
type PurchaseOrderHandler struct {
	purchaseOrders *services.PurchaseOrderService
	tracer         tracing.Tracer
}

// NewPurchaseOrderHandler creates a new purchase order handler
func NewPurchaseOrderHandler(purchaseOrders *services.PurchaseOrderService, tracer tracing.Tracer) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		purchaseOrders: purchaseOrders,
		tracer:         tracer,
	}
}

// CreatePurchaseOrderRequest is the POST /api/purchase-orders/create body
type CreatePurchaseOrderRequest struct {
	OrderID string                     `json:"orderId" binding:"required"`
	Shop    string                     `json:"shop" binding:"required"`
	Items   []models.PurchaseOrderItem `json:"items" binding:"required"`
}

// UpdatePurchaseOrderStatusRequest is the POST /api/purchase-orders/:id/status body
type UpdatePurchaseOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// HandleCreatePurchaseOrder creates a purchase order directly, outside the
// status change flow
func (h *PurchaseOrderHandler) HandleCreatePurchaseOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-purchase-order")
	defer h.tracer.EndTransaction(txn)

	var req CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid purchase order request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	po, err := h.purchaseOrders.CreatePurchaseOrder(c.Request.Context(), req.OrderID, req.Shop, req.Items)
	if err != nil {
		log.Error().Err(err).Str("order_id", req.OrderID).Msg("Failed to create purchase order")
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, po)
}

// HandleUpdateStatus moves a purchase order to a new status
func (h *PurchaseOrderHandler) HandleUpdateStatus(c *gin.Context) {
	var req UpdatePurchaseOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := h.purchaseOrders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, po)
}

// HandleGetPurchaseOrder returns one purchase order with its line items
func (h *PurchaseOrderHandler) HandleGetPurchaseOrder(c *gin.Context) {
	po, err := h.purchaseOrders.GetPurchaseOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, po)
}

// HandleListPurchaseOrders returns all purchase orders, newest first
func (h *PurchaseOrderHandler) HandleListPurchaseOrders(c *gin.Context) {
	orders, err := h.purchaseOrders.ListPurchaseOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase_orders": orders, "count": len(orders)})
}

// RegisterRoutes registers the handler's routes
func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/purchase-orders", h.HandleListPurchaseOrders)
	router.POST("/api/purchase-orders/create", h.HandleCreatePurchaseOrder)
	router.GET("/api/purchase-orders/:id", h.HandleGetPurchaseOrder)
	router.POST("/api/purchase-orders/:id/status", h.HandleUpdateStatus)
}
