package persistence

import (
	"context"
	"errors"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWebhookEventRepository implements WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// FindByID finds an event by its ID
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.WebhookEvent, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrEventNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalOrder returns all events referencing an external order,
// oldest first
func (r *GormWebhookEventRepository) FindByExternalOrder(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode, externalOrderID string) ([]delivery.WebhookEvent, error) {
	var eventModels []models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND external_order_id = ?", tenantID, provider, externalOrderID).
		Order("received_at ASC").
		Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]delivery.WebhookEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}
	return events, nil
}

// FindByStatus lists events in a given status, oldest first
func (r *GormWebhookEventRepository) FindByStatus(ctx context.Context, status delivery.WebhookEventStatus, limit int) ([]delivery.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var eventModels []models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("received_at ASC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]delivery.WebhookEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}
	return events, nil
}

// Save creates or updates an event
func (r *GormWebhookEventRepository) Save(ctx context.Context, event *delivery.WebhookEvent) error {
	model := models.WebhookEventModelFromDomain(event)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormWebhookEventRepository implements WebhookEventRepository
var _ delivery.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
