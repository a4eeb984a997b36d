package handler

import (
	"context"

	deliveryapp "github.com/restaurant-platform/backend/internal/application/delivery"
	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderStatusNotifier pushes an internal order state change back to every
// provider that knows the order.
type OrderStatusNotifier interface {
	NotifyOrderStatus(ctx context.Context, tenantID, internalOrderID uuid.UUID, state delivery.CanonicalOrderState) error
}

// DeliveryOrderHandler exposes order mappings, their webhook audit trail
// and the status push-back endpoint
type DeliveryOrderHandler struct {
	BaseHandler
	mappings       delivery.OrderMappingRepository
	webhookService *deliveryapp.WebhookService
	notifier       OrderStatusNotifier
}

// NewDeliveryOrderHandler creates a new DeliveryOrderHandler
func NewDeliveryOrderHandler(mappings delivery.OrderMappingRepository, webhookService *deliveryapp.WebhookService, notifier OrderStatusNotifier) *DeliveryOrderHandler {
	return &DeliveryOrderHandler{mappings: mappings, webhookService: webhookService, notifier: notifier}
}

// Get godoc
// @ID           getDeliveryOrder
// @Summary      Look up the mapping for an external order
// @Tags         delivery
// @Produce      json
// @Param        provider path string true "Provider code"
// @Param        external_id path string true "External order ID"
// @Success      200 {object} APIResponse[OrderMappingResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /delivery/orders/{provider}/{external_id} [get]
func (h *DeliveryOrderHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	provider, ok := parseProviderParam(c)
	if !ok {
		h.BadRequest(c, "Invalid provider code")
		return
	}

	mapping, err := h.mappings.FindByExternal(c.Request.Context(), tenantID, provider, c.Param("external_id"))
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	h.Success(c, ToOrderMappingResponse(mapping))
}

// Trail godoc
// @ID           getDeliveryOrderTrail
// @Summary      List the webhook events recorded for an external order
// @Description  Oldest first; the audit trail of everything the provider sent
// @Tags         delivery
// @Produce      json
// @Param        provider path string true "Provider code"
// @Param        external_id path string true "External order ID"
// @Success      200 {object} APIResponse[[]WebhookEventResponse]
// @Security     BearerAuth
// @Router       /delivery/orders/{provider}/{external_id}/events [get]
func (h *DeliveryOrderHandler) Trail(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}
	provider, ok := parseProviderParam(c)
	if !ok {
		h.BadRequest(c, "Invalid provider code")
		return
	}

	events, err := h.webhookService.OrderTrail(c.Request.Context(), tenantID, provider, c.Param("external_id"))
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	responses := make([]WebhookEventResponse, len(events))
	for i := range events {
		responses[i] = ToWebhookEventResponse(&events[i])
	}
	h.Success(c, responses)
}

// NotifyStatus godoc
// @ID           notifyOrderStatus
// @Summary      Push an internal order state change to the providers
// @Description  Called by the platform's order service when the kitchen moves an order forward
// @Tags         delivery
// @Accept       json
// @Produce      json
// @Param        request body NotifyOrderStatusRequest true "State change"
// @Success      200 {object} APIResponse[NotifyOrderStatusResponse]
// @Failure      400 {object} dto.ErrorResponse
// @Failure      404 {object} dto.ErrorResponse
// @Security     BearerAuth
// @Router       /delivery/orders/status [post]
func (h *DeliveryOrderHandler) NotifyStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req NotifyOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	state := delivery.CanonicalOrderState(req.State)
	if !state.IsValid() {
		h.BadRequest(c, "Unknown order state")
		return
	}

	if err := h.notifier.NotifyOrderStatus(c.Request.Context(), tenantID, orderID, state); err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	h.Success(c, NotifyOrderStatusResponse{OrderID: req.OrderID, State: state.String()})
}
