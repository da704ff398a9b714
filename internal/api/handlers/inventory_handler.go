package handlers

import (
	"net/http"

	"example.com/stockflow/internal/services"
	"example.com/stockflow/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// InventoryHandler handles inventory ledger HTTP requests
type InventoryHandler struct {
	inventory *services.InventoryService
	tracer    tracing.Tracer
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory *services.InventoryService, tracer tracing.Tracer) *InventoryHandler {
	return &InventoryHandler{
		inventory: inventory,
		tracer:    tracer,
	}
}

// SaveInventoryRequest is the POST /api/inventory body. InitialInventory is a
// pointer so that an explicit zero (sold out) is distinguishable from a
// missing field.
type SaveInventoryRequest struct {
	SKU              string `json:"sku" binding:"required"`
	InitialInventory *int   `json:"initialInventory" binding:"required"`
	ReorderPoint     int    `json:"reorderPoint"`
}

// HandleSaveInventory inserts or replaces the ledger entry for a SKU
func (h *InventoryHandler) HandleSaveInventory(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-save-inventory")
	defer h.tracer.EndTransaction(txn)

	var req SaveInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid inventory request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	item, err := h.inventory.SaveInventory(c.Request.Context(), req.SKU, *req.InitialInventory, req.ReorderPoint)
	if err != nil {
		h.tracer.RecordError(txn, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// HandleGetInventory returns the ledger entry for one SKU
func (h *InventoryHandler) HandleGetInventory(c *gin.Context) {
	item, err := h.inventory.GetInventory(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// HandleListInventory returns the whole ledger
func (h *InventoryHandler) HandleListInventory(c *gin.Context) {
	items, err := h.inventory.ListInventory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// HandleLowStockReport classifies every SKU by stock health
func (h *InventoryHandler) HandleLowStockReport(c *gin.Context) {
	report, err := h.inventory.BuildLowStockReport(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// RegisterRoutes registers the handler's routes
func (h *InventoryHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/inventory", h.HandleListInventory)
	router.POST("/api/inventory", h.HandleSaveInventory)
	router.GET("/api/inventory/low-stock-report", h.HandleLowStockReport)
	router.GET("/api/inventory/:sku", h.HandleGetInventory)
}
