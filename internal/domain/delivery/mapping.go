package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// EntityKind
// ---------------------------------------------------------------------------

// EntityKind names the internal entity class an EntityMapping refers to.
type EntityKind string

const (
	EntityKindItem          EntityKind = "item"
	EntityKindCategory      EntityKind = "category"
	EntityKindModifierGroup EntityKind = "modifier_group"
	EntityKindModifier      EntityKind = "modifier"
	EntityKindBranch        EntityKind = "branch"
)

// IsValid returns true if the kind is known.
func (k EntityKind) IsValid() bool {
	switch k {
	case EntityKindItem, EntityKindCategory, EntityKindModifierGroup, EntityKindModifier, EntityKindBranch:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityKind.
func (k EntityKind) String() string { return string(k) }

// ---------------------------------------------------------------------------
// EntityMapping Entity
// ---------------------------------------------------------------------------

// EntityMapping links an internal entity to its provider-side identifier.
// At most one active mapping exists per (tenant, provider, internal id);
// superseded mappings are kept for audit, never overwritten.
type EntityMapping struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Provider   ProviderCode
	Kind       EntityKind
	InternalID uuid.UUID
	ExternalID string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewEntityMapping creates an active mapping.
func NewEntityMapping(tenantID uuid.UUID, provider ProviderCode, kind EntityKind, internalID uuid.UUID, externalID string) (*EntityMapping, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProviderCode
	}
	if !kind.IsValid() || internalID == uuid.Nil || externalID == "" {
		return nil, ErrValidation
	}
	now := time.Now()
	return &EntityMapping{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Provider:   provider,
		Kind:       kind,
		InternalID: internalID,
		ExternalID: externalID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Supersede deactivates this mapping so a replacement can become the active
// one. The row itself is retained.
func (m *EntityMapping) Supersede() {
	m.IsActive = false
	m.UpdatedAt = time.Now()
}

// EntityMappingRepository persists entity mappings.
type EntityMappingRepository interface {
	// FindActive returns the single active mapping for an internal entity.
	FindActive(ctx context.Context, tenantID uuid.UUID, provider ProviderCode, internalID uuid.UUID) (*EntityMapping, error)

	// FindActiveByBranch returns all active mappings for a tenant/provider
	// pair, keyed by internal ID.
	FindActiveForProvider(ctx context.Context, tenantID uuid.UUID, provider ProviderCode) (map[uuid.UUID]EntityMapping, error)

	// Save persists a mapping row.
	Save(ctx context.Context, mapping *EntityMapping) error

	// Replace deactivates the current active mapping (if any) and inserts the
	// new one in a single transaction.
	Replace(ctx context.Context, mapping *EntityMapping) error
}

// ---------------------------------------------------------------------------
// OrderMapping Entity
// ---------------------------------------------------------------------------

// OrderMapping is the bidirectional link between an external order id and an
// internal order, plus the last seen statuses on both sides. The
// external→internal direction is immutable once set: an external id may never
// be repointed to a different internal order.
type OrderMapping struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Provider        ProviderCode
	ExternalOrderID string
	InternalOrderID uuid.UUID
	// LastExternalStatus is the provider's wording of the latest status seen,
	// including statuses that did not advance the canonical state. It doubles
	// as the side-channel note for non-forward statuses such as delivery
	// delays.
	LastExternalStatus string
	LastCanonicalState CanonicalOrderState
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewOrderMapping creates the mapping on first sight of an external order.
func NewOrderMapping(tenantID uuid.UUID, provider ProviderCode, externalOrderID string, internalOrderID uuid.UUID, state CanonicalOrderState, externalStatus string) (*OrderMapping, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}
	if !provider.IsValid() {
		return nil, ErrInvalidProviderCode
	}
	if externalOrderID == "" || internalOrderID == uuid.Nil {
		return nil, ErrValidation
	}
	if !state.IsValid() {
		state = OrderStateReceived
	}
	now := time.Now()
	return &OrderMapping{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		Provider:           provider,
		ExternalOrderID:    externalOrderID,
		InternalOrderID:    internalOrderID,
		LastExternalStatus: externalStatus,
		LastCanonicalState: state,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// ApplyStatus records a provider status report. It returns true when the
// canonical state advanced; stale or unknown states only refresh the
// external-status note.
func (m *OrderMapping) ApplyStatus(externalStatus string, next CanonicalOrderState) bool {
	m.LastExternalStatus = externalStatus
	m.UpdatedAt = time.Now()

	if next == OrderStateUnknown {
		return false
	}
	if !m.LastCanonicalState.CanTransitionTo(next) {
		return false
	}
	m.LastCanonicalState = next
	return true
}

// OrderMappingRepository persists order mappings. The coordinator is the sole
// writer, serialized per external order id.
type OrderMappingRepository interface {
	// FindByExternal looks up the mapping for an external order id.
	FindByExternal(ctx context.Context, tenantID uuid.UUID, provider ProviderCode, externalOrderID string) (*OrderMapping, error)

	// FindByInternal looks up mappings pointing at an internal order.
	FindByInternal(ctx context.Context, tenantID uuid.UUID, internalOrderID uuid.UUID) ([]OrderMapping, error)

	// Create inserts a new mapping; ErrMappingConflict if the external id is
	// already mapped.
	Create(ctx context.Context, mapping *OrderMapping) error

	// Update persists status changes on an existing mapping.
	Update(ctx context.Context, mapping *OrderMapping) error
}
