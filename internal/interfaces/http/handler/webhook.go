package handler

import (
	"errors"
	"io"

	deliveryapp "github.com/restaurant-platform/backend/internal/application/delivery"
	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler receives inbound provider callbacks. Providers are
// configured to call the webhook URL with the tenant and branch routing
// headers set during onboarding.
type WebhookHandler struct {
	BaseHandler
	webhookService *deliveryapp.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *deliveryapp.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// ReceiveOrder godoc
// @ID           receiveProviderWebhook
// @Summary      Receive an order webhook from a delivery provider
// @Description  Records and authenticates the payload, then acknowledges before processing
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        provider path string true "Provider code" Enums(careem, deliveroo, jahez)
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        X-Branch-ID header string true "Branch ID"
// @Success      200 {object} SuccessResponse
// @Failure      401 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Router       /webhooks/{provider}/orders [post]
func (h *WebhookHandler) ReceiveOrder(c *gin.Context) {
	provider, ok := parseProviderParam(c)
	if !ok {
		h.NotFound(c, "unknown provider")
		return
	}
	tenantID, err := uuid.Parse(c.GetHeader("X-Tenant-ID"))
	if err != nil {
		// Routing headers missing or forged. Same opaque answer as a bad
		// signature.
		h.Unauthorized(c, "authentication failed")
		return
	}
	branchID, err := uuid.Parse(c.GetHeader("X-Branch-ID"))
	if err != nil {
		h.Unauthorized(c, "authentication failed")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "unreadable request body")
		return
	}

	event, err := h.webhookService.Ingest(c.Request.Context(), tenantID, branchID, provider, payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, delivery.ErrAuth) {
			h.Unauthorized(c, "authentication failed")
			return
		}
		if errors.Is(err, delivery.ErrProviderNotSupported) {
			h.NotFound(c, "unknown provider")
			return
		}
		// Signal the provider to redeliver.
		h.InternalError(c, "temporarily unable to accept webhooks")
		return
	}

	// The event ID lets the provider's support team and ours talk about
	// the same delivery attempt.
	h.Success(c, gin.H{"received": true, "event_id": event.ID})
}

// GetEvent godoc
// @ID           getWebhookEvent
// @Summary      Get one webhook event audit record
// @Tags         delivery
// @Produce      json
// @Param        id path string true "Event ID"
// @Success      200 {object} APIResponse[WebhookEventResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /delivery/events/{id} [get]
func (h *WebhookHandler) GetEvent(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid event ID")
		return
	}

	event, err := h.webhookService.GetEvent(c.Request.Context(), tenantID, eventID)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	h.Success(c, ToWebhookEventResponse(event))
}
