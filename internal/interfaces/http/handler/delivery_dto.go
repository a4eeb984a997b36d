package handler

import (
	"errors"
	"strings"
	"time"

	deliveryapp "github.com/restaurant-platform/backend/internal/application/delivery"
	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterProviderRequest represents a request to connect a delivery provider
// @Description Request body for registering provider credentials for a branch
type RegisterProviderRequest struct {
	BranchID      string `json:"branch_id" binding:"required,uuid"`
	Provider      string `json:"provider" binding:"required,provider_code" example:"CAREEM"`
	ClientID      string `json:"client_id" binding:"required,max=200"`
	ClientSecret  string `json:"client_secret" binding:"required,max=500"`
	StoreID       string `json:"store_id" binding:"required,max=200"`
	WebhookSecret string `json:"webhook_secret" binding:"required,max=500"`
}

// StartSyncRequest represents a request to start a menu synchronization
// @Description Request body for starting a menu sync job
type StartSyncRequest struct {
	BranchID string                      `json:"branch_id" binding:"required,uuid"`
	Provider string                      `json:"provider" binding:"required,provider_code" example:"DELIVEROO"`
	Kind     string                      `json:"kind" binding:"required,oneof=full partial availability" example:"full"`
	ItemIDs  []string                    `json:"item_ids" binding:"omitempty,dive,uuid"`
	Changes  []AvailabilityChangeRequest `json:"changes" binding:"omitempty,dive"`
}

// AvailabilityChangeRequest flips one item's availability
type AvailabilityChangeRequest struct {
	ItemID    string `json:"item_id" binding:"required,uuid"`
	Available bool   `json:"available"`
}

// SyncJobResponse represents a menu sync job in API responses
// @Description Menu sync job state and progress counters
type SyncJobResponse struct {
	ID              string                  `json:"id"`
	TenantID        string                  `json:"tenant_id"`
	BranchID        string                  `json:"branch_id"`
	Provider        string                  `json:"provider"`
	Kind            string                  `json:"kind"`
	Status          string                  `json:"status"`
	ItemsTotal      int                     `json:"items_total"`
	ItemsProcessed  int                     `json:"items_processed"`
	ItemsFailed     int                     `json:"items_failed"`
	ItemErrors      []ItemSyncErrorResponse `json:"item_errors,omitempty"`
	CancelRequested bool                    `json:"cancel_requested"`
	StartedAt       *time.Time              `json:"started_at,omitempty"`
	FinishedAt      *time.Time              `json:"finished_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
}

// ItemSyncErrorResponse describes one failed item in a sync job
type ItemSyncErrorResponse struct {
	ItemID  string `json:"item_id,omitempty"`
	Message string `json:"message"`
}

// ToSyncJobResponse converts a domain job to its API form
func ToSyncJobResponse(job *delivery.MenuSyncJob) SyncJobResponse {
	resp := SyncJobResponse{
		ID:              job.ID.String(),
		TenantID:        job.TenantID.String(),
		BranchID:        job.BranchID.String(),
		Provider:        job.Provider.String(),
		Kind:            job.Kind.String(),
		Status:          job.Status.String(),
		ItemsTotal:      job.ItemsTotal,
		ItemsProcessed:  job.ItemsProcessed,
		ItemsFailed:     job.ItemsFailed,
		CancelRequested: job.CancelRequested,
		StartedAt:       job.StartedAt,
		FinishedAt:      job.FinishedAt,
		CreatedAt:       job.CreatedAt,
	}
	for _, e := range job.ItemErrors {
		itemID := ""
		if e.ItemID != uuid.Nil {
			itemID = e.ItemID.String()
		}
		resp.ItemErrors = append(resp.ItemErrors, ItemSyncErrorResponse{ItemID: itemID, Message: e.Message})
	}
	return resp
}

// OrderMappingResponse represents an order mapping in API responses
// @Description Link between an external marketplace order and the internal order
type OrderMappingResponse struct {
	ID                 string    `json:"id"`
	Provider           string    `json:"provider"`
	ExternalOrderID    string    `json:"external_order_id"`
	InternalOrderID    string    `json:"internal_order_id"`
	LastExternalStatus string    `json:"last_external_status"`
	LastCanonicalState string    `json:"last_canonical_state"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// ToOrderMappingResponse converts a domain mapping to its API form
func ToOrderMappingResponse(m *delivery.OrderMapping) OrderMappingResponse {
	return OrderMappingResponse{
		ID:                 m.ID.String(),
		Provider:           m.Provider.String(),
		ExternalOrderID:    m.ExternalOrderID,
		InternalOrderID:    m.InternalOrderID.String(),
		LastExternalStatus: m.LastExternalStatus,
		LastCanonicalState: m.LastCanonicalState.String(),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// NotifyOrderStatusRequest pushes an internal state change to the providers
// @Description Request body for notifying providers of an order state change
type NotifyOrderStatusRequest struct {
	OrderID string `json:"order_id" binding:"required,uuid"`
	State   string `json:"state" binding:"required" example:"ready"`
}

// NotifyOrderStatusResponse acknowledges a status push
type NotifyOrderStatusResponse struct {
	OrderID string `json:"order_id"`
	State   string `json:"state"`
}

// WebhookEventResponse represents a webhook event in API responses
// @Description Audit record of one inbound provider call
type WebhookEventResponse struct {
	ID              string    `json:"id"`
	Provider        string    `json:"provider"`
	Status          string    `json:"status"`
	ExternalOrderID string    `json:"external_order_id,omitempty"`
	RetryCount      int       `json:"retry_count"`
	ReceivedAt      time.Time `json:"received_at"`
}

// ToWebhookEventResponse converts a domain event to its API form. The raw
// payload and rejection reason stay internal.
func ToWebhookEventResponse(e *delivery.WebhookEvent) WebhookEventResponse {
	return WebhookEventResponse{
		ID:              e.ID.String(),
		Provider:        e.Provider.String(),
		Status:          e.Status.String(),
		ExternalOrderID: e.ExternalOrderID,
		RetryCount:      e.RetryCount,
		ReceivedAt:      e.ReceivedAt,
	}
}

// parseProviderParam reads the :provider path parameter case-insensitively
func parseProviderParam(c *gin.Context) (delivery.ProviderCode, bool) {
	code := delivery.ProviderCode(strings.ToUpper(c.Param("provider")))
	return code, code.IsValid()
}

// parseProviderQuery reads the provider query parameter case-insensitively
func parseProviderQuery(c *gin.Context) (delivery.ProviderCode, bool) {
	code := delivery.ProviderCode(strings.ToUpper(c.Query("provider")))
	return code, code.IsValid()
}

// toSyncRequest converts the HTTP request into the application DTO
func toSyncRequest(tenantID uuid.UUID, req StartSyncRequest) (deliveryapp.StartSyncRequest, error) {
	branchID, err := uuid.Parse(req.BranchID)
	if err != nil {
		return deliveryapp.StartSyncRequest{}, err
	}
	out := deliveryapp.StartSyncRequest{
		TenantID: tenantID,
		BranchID: branchID,
		Provider: delivery.ProviderCode(strings.ToUpper(req.Provider)),
		Kind:     delivery.SyncKind(req.Kind),
	}
	for _, raw := range req.ItemIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return deliveryapp.StartSyncRequest{}, err
		}
		out.ItemIDs = append(out.ItemIDs, id)
	}
	for _, change := range req.Changes {
		id, err := uuid.Parse(change.ItemID)
		if err != nil {
			return deliveryapp.StartSyncRequest{}, err
		}
		out.Changes = append(out.Changes, delivery.AvailabilityChange{ItemID: id, Available: change.Available})
	}
	return out, nil
}

// handleDeliveryError maps delivery domain errors onto the response envelope
func (h *BaseHandler) handleDeliveryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, delivery.ErrConfigNotFound),
		errors.Is(err, delivery.ErrSyncJobNotFound),
		errors.Is(err, delivery.ErrEventNotFound),
		errors.Is(err, delivery.ErrMappingNotFound):
		h.NotFound(c, err.Error())
	case errors.Is(err, delivery.ErrSyncInProgress):
		h.ErrorWithCode(c, dto.ErrCodeSyncInProgress, err.Error())
	case errors.Is(err, delivery.ErrMappingConflict),
		errors.Is(err, delivery.ErrConflict):
		h.Conflict(c, err.Error())
	case errors.Is(err, delivery.ErrConfigInactive),
		errors.Is(err, delivery.ErrSyncJobTerminal):
		h.UnprocessableEntity(c, dto.ErrCodeInvalidState, err.Error())
	case errors.Is(err, delivery.ErrAuth):
		h.Unauthorized(c, "authentication failed")
	case errors.Is(err, delivery.ErrProviderNotSupported):
		h.ErrorWithCode(c, dto.ErrCodeProviderNotSupported, err.Error())
	case errors.Is(err, delivery.ErrValidation),
		errors.Is(err, delivery.ErrInvalidTenantID),
		errors.Is(err, delivery.ErrInvalidBranchID),
		errors.Is(err, delivery.ErrInvalidProviderCode):
		h.BadRequest(c, err.Error())
	case errors.Is(err, delivery.ErrTransient):
		h.ErrorWithCode(c, dto.ErrCodeProviderUnavailable, "provider temporarily unavailable")
	default:
		h.InternalError(c, "An unexpected error occurred")
	}
}
