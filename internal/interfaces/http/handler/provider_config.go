package handler

import (
	"strings"

	deliveryapp "github.com/restaurant-platform/backend/internal/application/delivery"
	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProviderConfigHandler handles provider configuration API endpoints
type ProviderConfigHandler struct {
	BaseHandler
	configService *deliveryapp.ConfigService
}

// NewProviderConfigHandler creates a new ProviderConfigHandler
func NewProviderConfigHandler(configService *deliveryapp.ConfigService) *ProviderConfigHandler {
	return &ProviderConfigHandler{configService: configService}
}

// Register godoc
// @ID           registerProvider
// @Summary      Register a delivery provider for a branch
// @Description  Stores provider credentials after verifying them with one authentication round-trip
// @Tags         delivery
// @Accept       json
// @Produce      json
// @Param        request body RegisterProviderRequest true "Provider registration request"
// @Success      201 {object} APIResponse[deliveryapp.ProviderConfigView]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      401 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /delivery/providers [post]
func (h *ProviderConfigHandler) Register(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req RegisterProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		h.BadRequest(c, "Invalid branch ID")
		return
	}

	view, err := h.configService.Register(c.Request.Context(), deliveryapp.RegisterProviderRequest{
		TenantID: tenantID,
		BranchID: branchID,
		Provider: delivery.ProviderCode(strings.ToUpper(req.Provider)),
		Credentials: delivery.Credentials{
			ClientID:      req.ClientID,
			ClientSecret:  req.ClientSecret,
			StoreID:       req.StoreID,
			WebhookSecret: req.WebhookSecret,
		},
	})
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	h.Created(c, view)
}

// List godoc
// @ID           listProviders
// @Summary      List provider configurations
// @Description  Returns the secret-free configuration views for the tenant
// @Tags         delivery
// @Produce      json
// @Success      200 {object} APIResponse[[]deliveryapp.ProviderConfigView]
// @Security     BearerAuth
// @Router       /delivery/providers [get]
func (h *ProviderConfigHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	views, err := h.configService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	h.Success(c, views)
}

// Deactivate godoc
// @ID           deactivateProvider
// @Summary      Deactivate a provider configuration
// @Description  Soft-deletes the configuration; new syncs and webhooks are refused
// @Tags         delivery
// @Param        id path string true "Configuration ID"
// @Success      204
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /delivery/providers/{id} [delete]
func (h *ProviderConfigHandler) Deactivate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	configID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid configuration ID")
		return
	}

	if err := h.configService.Deactivate(c.Request.Context(), tenantID, configID); err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	h.NoContent(c)
}
