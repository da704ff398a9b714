package handlers

import (
	"net/http"

	"example.com/stockflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CredentialsHandler handles shop credential HTTP requests
type CredentialsHandler struct {
	credentials *services.CredentialService
}

// NewCredentialsHandler creates a new credentials handler
func NewCredentialsHandler(credentials *services.CredentialService) *CredentialsHandler {
	return &CredentialsHandler{credentials: credentials}
}

// RegisterShopRequest is the POST /api/shops/register body
type RegisterShopRequest struct {
	Shop        string `json:"shop" binding:"required"`
	AccessToken string `json:"accessToken" binding:"required"`
	Scopes      string `json:"scopes"`
}

// HandleRegisterShop stores the access token for a shop
func (h *CredentialsHandler) HandleRegisterShop(c *gin.Context) {
	var req RegisterShopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.credentials.RegisterShop(c.Request.Context(), req.Shop, req.AccessToken, req.Scopes); err != nil {
		log.Error().Err(err).Str("shop", req.Shop).Msg("Failed to register shop")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"shop": req.Shop, "installed": true})
}

// HandleGetInstallStatus reports whether a shop has a stored credential
func (h *CredentialsHandler) HandleGetInstallStatus(c *gin.Context) {
	installed, err := h.credentials.IsInstalled(c.Request.Context(), c.Param("shop"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shop": c.Param("shop"), "installed": installed})
}

// RegisterRoutes registers the handler's routes
func (h *CredentialsHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/shops/register", h.HandleRegisterShop)
	router.GET("/api/shops/:shop/status", h.HandleGetInstallStatus)
}
