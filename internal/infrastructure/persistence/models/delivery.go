package models

import (
	"encoding/json"
	"time"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// ProviderConfigModel
// ---------------------------------------------------------------------------

// ProviderConfigModel is the persistence model for the ProviderConfig domain entity.
type ProviderConfigModel struct {
	ID                   uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID             uuid.UUID             `gorm:"type:uuid;not null;index:idx_provider_config_triple,unique,priority:1"`
	BranchID             uuid.UUID             `gorm:"type:uuid;not null;index:idx_provider_config_triple,unique,priority:2"`
	Provider             delivery.ProviderCode `gorm:"type:varchar(20);not null;index:idx_provider_config_triple,unique,priority:3"`
	EncryptedCredentials []byte                `gorm:"type:bytea;not null"`
	EncryptedTokens      []byte                `gorm:"type:bytea"`
	TokenExpiresAt       *time.Time            `gorm:"index"`
	StoreID              string                `gorm:"type:varchar(100);not null"`
	IsActive             bool                  `gorm:"not null;default:true"`
	CreatedAt            time.Time             `gorm:"not null"`
	UpdatedAt            time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProviderConfigModel) TableName() string {
	return "provider_configs"
}

// ToDomain converts the persistence model to a domain ProviderConfig entity.
func (m *ProviderConfigModel) ToDomain() *delivery.ProviderConfig {
	return &delivery.ProviderConfig{
		ID:                   m.ID,
		TenantID:             m.TenantID,
		BranchID:             m.BranchID,
		Provider:             m.Provider,
		EncryptedCredentials: m.EncryptedCredentials,
		EncryptedTokens:      m.EncryptedTokens,
		TokenExpiresAt:       m.TokenExpiresAt,
		StoreID:              m.StoreID,
		IsActive:             m.IsActive,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain ProviderConfig entity.
func (m *ProviderConfigModel) FromDomain(cfg *delivery.ProviderConfig) {
	m.ID = cfg.ID
	m.TenantID = cfg.TenantID
	m.BranchID = cfg.BranchID
	m.Provider = cfg.Provider
	m.EncryptedCredentials = cfg.EncryptedCredentials
	m.EncryptedTokens = cfg.EncryptedTokens
	m.TokenExpiresAt = cfg.TokenExpiresAt
	m.StoreID = cfg.StoreID
	m.IsActive = cfg.IsActive
	m.CreatedAt = cfg.CreatedAt
	m.UpdatedAt = cfg.UpdatedAt
}

// ProviderConfigModelFromDomain creates a new persistence model from a domain entity.
func ProviderConfigModelFromDomain(cfg *delivery.ProviderConfig) *ProviderConfigModel {
	m := &ProviderConfigModel{}
	m.FromDomain(cfg)
	return m
}

// ---------------------------------------------------------------------------
// EntityMappingModel
// ---------------------------------------------------------------------------

// EntityMappingModel is the persistence model for the EntityMapping domain entity.
type EntityMappingModel struct {
	ID         uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID             `gorm:"type:uuid;not null;index:idx_entity_mapping_lookup,priority:1"`
	Provider   delivery.ProviderCode `gorm:"type:varchar(20);not null;index:idx_entity_mapping_lookup,priority:2"`
	Kind       delivery.EntityKind   `gorm:"type:varchar(20);not null"`
	InternalID uuid.UUID             `gorm:"type:uuid;not null;index:idx_entity_mapping_lookup,priority:3"`
	ExternalID string                `gorm:"type:varchar(100);not null"`
	IsActive   bool                  `gorm:"not null;default:true;index:idx_entity_mapping_lookup,priority:4"`
	CreatedAt  time.Time             `gorm:"not null"`
	UpdatedAt  time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntityMappingModel) TableName() string {
	return "entity_mappings"
}

// ToDomain converts the persistence model to a domain EntityMapping entity.
func (m *EntityMappingModel) ToDomain() *delivery.EntityMapping {
	return &delivery.EntityMapping{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Provider:   m.Provider,
		Kind:       m.Kind,
		InternalID: m.InternalID,
		ExternalID: m.ExternalID,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain EntityMapping entity.
func (m *EntityMappingModel) FromDomain(em *delivery.EntityMapping) {
	m.ID = em.ID
	m.TenantID = em.TenantID
	m.Provider = em.Provider
	m.Kind = em.Kind
	m.InternalID = em.InternalID
	m.ExternalID = em.ExternalID
	m.IsActive = em.IsActive
	m.CreatedAt = em.CreatedAt
	m.UpdatedAt = em.UpdatedAt
}

// EntityMappingModelFromDomain creates a new persistence model from a domain entity.
func EntityMappingModelFromDomain(em *delivery.EntityMapping) *EntityMappingModel {
	m := &EntityMappingModel{}
	m.FromDomain(em)
	return m
}

// ---------------------------------------------------------------------------
// OrderMappingModel
// ---------------------------------------------------------------------------

// OrderMappingModel is the persistence model for the OrderMapping domain entity.
// The unique index on (tenant, provider, external order id) backs the
// first-writer-wins guarantee for concurrent webhook deliveries.
type OrderMappingModel struct {
	ID                 uuid.UUID                    `gorm:"type:uuid;primary_key"`
	TenantID           uuid.UUID                    `gorm:"type:uuid;not null;index:idx_order_mapping_external,unique,priority:1"`
	Provider           delivery.ProviderCode        `gorm:"type:varchar(20);not null;index:idx_order_mapping_external,unique,priority:2"`
	ExternalOrderID    string                       `gorm:"type:varchar(100);not null;index:idx_order_mapping_external,unique,priority:3"`
	InternalOrderID    uuid.UUID                    `gorm:"type:uuid;not null;index:idx_order_mapping_internal"`
	LastExternalStatus string                       `gorm:"type:varchar(50)"`
	LastCanonicalState delivery.CanonicalOrderState `gorm:"type:varchar(20);not null"`
	CreatedAt          time.Time                    `gorm:"not null"`
	UpdatedAt          time.Time                    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderMappingModel) TableName() string {
	return "order_mappings"
}

// ToDomain converts the persistence model to a domain OrderMapping entity.
func (m *OrderMappingModel) ToDomain() *delivery.OrderMapping {
	return &delivery.OrderMapping{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		Provider:           m.Provider,
		ExternalOrderID:    m.ExternalOrderID,
		InternalOrderID:    m.InternalOrderID,
		LastExternalStatus: m.LastExternalStatus,
		LastCanonicalState: m.LastCanonicalState,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain OrderMapping entity.
func (m *OrderMappingModel) FromDomain(om *delivery.OrderMapping) {
	m.ID = om.ID
	m.TenantID = om.TenantID
	m.Provider = om.Provider
	m.ExternalOrderID = om.ExternalOrderID
	m.InternalOrderID = om.InternalOrderID
	m.LastExternalStatus = om.LastExternalStatus
	m.LastCanonicalState = om.LastCanonicalState
	m.CreatedAt = om.CreatedAt
	m.UpdatedAt = om.UpdatedAt
}

// OrderMappingModelFromDomain creates a new persistence model from a domain entity.
func OrderMappingModelFromDomain(om *delivery.OrderMapping) *OrderMappingModel {
	m := &OrderMappingModel{}
	m.FromDomain(om)
	return m
}

// ---------------------------------------------------------------------------
// MenuSyncJobModel
// ---------------------------------------------------------------------------

// MenuSyncJobModel is the persistence model for the MenuSyncJob domain entity.
type MenuSyncJobModel struct {
	ID              uuid.UUID              `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID              `gorm:"type:uuid;not null;index:idx_sync_job_triple,priority:1"`
	BranchID        uuid.UUID              `gorm:"type:uuid;not null;index:idx_sync_job_triple,priority:2"`
	Provider        delivery.ProviderCode  `gorm:"type:varchar(20);not null;index:idx_sync_job_triple,priority:3"`
	Kind            delivery.SyncKind      `gorm:"type:varchar(20);not null"`
	Status          delivery.SyncJobStatus `gorm:"type:varchar(20);not null;index"`
	ItemsTotal      int                    `gorm:"not null;default:0"`
	ItemsProcessed  int                    `gorm:"not null;default:0"`
	ItemsFailed     int                    `gorm:"not null;default:0"`
	ItemErrorsJSON  string                 `gorm:"type:jsonb;column:item_errors"`
	CancelRequested bool                   `gorm:"not null;default:false"`
	StartedAt       *time.Time
	FinishedAt      *time.Time
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MenuSyncJobModel) TableName() string {
	return "menu_sync_jobs"
}

// ToDomain converts the persistence model to a domain MenuSyncJob entity.
func (m *MenuSyncJobModel) ToDomain() *delivery.MenuSyncJob {
	job := &delivery.MenuSyncJob{
		ID:              m.ID,
		TenantID:        m.TenantID,
		BranchID:        m.BranchID,
		Provider:        m.Provider,
		Kind:            m.Kind,
		Status:          m.Status,
		ItemsTotal:      m.ItemsTotal,
		ItemsProcessed:  m.ItemsProcessed,
		ItemsFailed:     m.ItemsFailed,
		ItemErrors:      make([]delivery.ItemSyncError, 0),
		CancelRequested: m.CancelRequested,
		StartedAt:       m.StartedAt,
		FinishedAt:      m.FinishedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}

	if m.ItemErrorsJSON != "" {
		var itemErrors []delivery.ItemSyncError
		if err := json.Unmarshal([]byte(m.ItemErrorsJSON), &itemErrors); err == nil {
			job.ItemErrors = itemErrors
		}
	}
	return job
}

// FromDomain populates the persistence model from a domain MenuSyncJob entity.
func (m *MenuSyncJobModel) FromDomain(job *delivery.MenuSyncJob) {
	m.ID = job.ID
	m.TenantID = job.TenantID
	m.BranchID = job.BranchID
	m.Provider = job.Provider
	m.Kind = job.Kind
	m.Status = job.Status
	m.ItemsTotal = job.ItemsTotal
	m.ItemsProcessed = job.ItemsProcessed
	m.ItemsFailed = job.ItemsFailed
	m.CancelRequested = job.CancelRequested
	m.StartedAt = job.StartedAt
	m.FinishedAt = job.FinishedAt
	m.CreatedAt = job.CreatedAt
	m.UpdatedAt = job.UpdatedAt

	if len(job.ItemErrors) > 0 {
		if jsonBytes, err := json.Marshal(job.ItemErrors); err == nil {
			m.ItemErrorsJSON = string(jsonBytes)
		}
	} else {
		m.ItemErrorsJSON = "[]"
	}
}

// MenuSyncJobModelFromDomain creates a new persistence model from a domain entity.
func MenuSyncJobModelFromDomain(job *delivery.MenuSyncJob) *MenuSyncJobModel {
	m := &MenuSyncJobModel{}
	m.FromDomain(job)
	return m
}

// ---------------------------------------------------------------------------
// WebhookEventModel
// ---------------------------------------------------------------------------

// WebhookEventModel is the persistence model for the WebhookEvent domain entity.
type WebhookEventModel struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID                   `gorm:"type:uuid;not null;index:idx_webhook_event_order,priority:1"`
	Provider        delivery.ProviderCode       `gorm:"type:varchar(20);not null;index:idx_webhook_event_order,priority:2"`
	Payload         []byte                      `gorm:"type:bytea;not null"`
	Signature       string                      `gorm:"type:varchar(255)"`
	Status          delivery.WebhookEventStatus `gorm:"type:varchar(20);not null;index"`
	RejectReason    string                      `gorm:"type:text"`
	ExternalOrderID string                      `gorm:"type:varchar(100);index:idx_webhook_event_order,priority:3"`
	RetryCount      int                         `gorm:"not null;default:0"`
	ReceivedAt      time.Time                   `gorm:"not null;index"`
	UpdatedAt       time.Time                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent entity.
func (m *WebhookEventModel) ToDomain() *delivery.WebhookEvent {
	return &delivery.WebhookEvent{
		ID:              m.ID,
		TenantID:        m.TenantID,
		Provider:        m.Provider,
		Payload:         m.Payload,
		Signature:       m.Signature,
		Status:          m.Status,
		RejectReason:    m.RejectReason,
		ExternalOrderID: m.ExternalOrderID,
		RetryCount:      m.RetryCount,
		ReceivedAt:      m.ReceivedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain WebhookEvent entity.
func (m *WebhookEventModel) FromDomain(e *delivery.WebhookEvent) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.Provider = e.Provider
	m.Payload = e.Payload
	m.Signature = e.Signature
	m.Status = e.Status
	m.RejectReason = e.RejectReason
	m.ExternalOrderID = e.ExternalOrderID
	m.RetryCount = e.RetryCount
	m.ReceivedAt = e.ReceivedAt
	m.UpdatedAt = e.UpdatedAt
}

// WebhookEventModelFromDomain creates a new persistence model from a domain entity.
func WebhookEventModelFromDomain(e *delivery.WebhookEvent) *WebhookEventModel {
	m := &WebhookEventModel{}
	m.FromDomain(e)
	return m
}
