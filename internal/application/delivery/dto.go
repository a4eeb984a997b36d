package delivery

import (
	"time"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/google/uuid"
)

// StartSyncRequest asks for one menu synchronization run.
type StartSyncRequest struct {
	TenantID uuid.UUID
	BranchID uuid.UUID
	Provider delivery.ProviderCode
	Kind     delivery.SyncKind
	// ItemIDs limits a partial sync to the given items. Ignored for full
	// syncs.
	ItemIDs []uuid.UUID
	// Changes carries the availability flips for availability syncs.
	Changes []delivery.AvailabilityChange
}

// RegisterProviderRequest stores credentials for a triple.
type RegisterProviderRequest struct {
	TenantID    uuid.UUID
	BranchID    uuid.UUID
	Provider    delivery.ProviderCode
	Credentials delivery.Credentials
}

// ProviderConfigView is the secret-free projection of a provider
// configuration returned by the admin API.
type ProviderConfigView struct {
	ID             uuid.UUID             `json:"id"`
	TenantID       uuid.UUID             `json:"tenant_id"`
	BranchID       uuid.UUID             `json:"branch_id"`
	Provider       delivery.ProviderCode `json:"provider"`
	StoreID        string                `json:"store_id"`
	IsActive       bool                  `json:"is_active"`
	TokenExpiresAt *time.Time            `json:"token_expires_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewProviderConfigView projects a config without its encrypted columns.
func NewProviderConfigView(cfg *delivery.ProviderConfig) ProviderConfigView {
	return ProviderConfigView{
		ID:             cfg.ID,
		TenantID:       cfg.TenantID,
		BranchID:       cfg.BranchID,
		Provider:       cfg.Provider,
		StoreID:        cfg.StoreID,
		IsActive:       cfg.IsActive,
		TokenExpiresAt: cfg.TokenExpiresAt,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}
