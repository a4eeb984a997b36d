package persistence

import (
	"context"
	"errors"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEntityMappingRepository implements EntityMappingRepository using GORM
type GormEntityMappingRepository struct {
	db *gorm.DB
}

// NewGormEntityMappingRepository creates a new GormEntityMappingRepository
func NewGormEntityMappingRepository(db *gorm.DB) *GormEntityMappingRepository {
	return &GormEntityMappingRepository{db: db}
}

// FindActive returns the single active mapping for an internal entity
func (r *GormEntityMappingRepository) FindActive(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode, internalID uuid.UUID) (*delivery.EntityMapping, error) {
	var model models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND internal_id = ? AND is_active = ?", tenantID, provider, internalID, true).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveForProvider returns all active mappings for a tenant/provider pair,
// keyed by internal ID
func (r *GormEntityMappingRepository) FindActiveForProvider(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode) (map[uuid.UUID]delivery.EntityMapping, error) {
	var mappingModels []models.EntityMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND is_active = ?", tenantID, provider, true).
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make(map[uuid.UUID]delivery.EntityMapping, len(mappingModels))
	for _, model := range mappingModels {
		mappings[model.InternalID] = *model.ToDomain()
	}
	return mappings, nil
}

// Save persists a mapping row
func (r *GormEntityMappingRepository) Save(ctx context.Context, mapping *delivery.EntityMapping) error {
	model := models.EntityMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).Save(model).Error
}

// Replace deactivates the current active mapping (if any) and inserts the new
// one in a single transaction
func (r *GormEntityMappingRepository) Replace(ctx context.Context, mapping *delivery.EntityMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.EntityMappingModel{}).
			Where("tenant_id = ? AND provider = ? AND internal_id = ? AND is_active = ?",
				mapping.TenantID, mapping.Provider, mapping.InternalID, true).
			Updates(map[string]any{
				"is_active":  false,
				"updated_at": gorm.Expr("NOW()"),
			}).Error; err != nil {
			return err
		}
		return tx.Create(models.EntityMappingModelFromDomain(mapping)).Error
	})
}

// Ensure GormEntityMappingRepository implements EntityMappingRepository
var _ delivery.EntityMappingRepository = (*GormEntityMappingRepository)(nil)
