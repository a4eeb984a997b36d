package persistence

import (
	"context"
	"errors"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GormOrderMappingRepository implements OrderMappingRepository using GORM
type GormOrderMappingRepository struct {
	db *gorm.DB
}

// NewGormOrderMappingRepository creates a new GormOrderMappingRepository
func NewGormOrderMappingRepository(db *gorm.DB) *GormOrderMappingRepository {
	return &GormOrderMappingRepository{db: db}
}

// FindByExternal looks up the mapping for an external order id
func (r *GormOrderMappingRepository) FindByExternal(ctx context.Context, tenantID uuid.UUID, provider delivery.ProviderCode, externalOrderID string) (*delivery.OrderMapping, error) {
	var model models.OrderMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ? AND external_order_id = ?", tenantID, provider, externalOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInternal looks up mappings pointing at an internal order
func (r *GormOrderMappingRepository) FindByInternal(ctx context.Context, tenantID uuid.UUID, internalOrderID uuid.UUID) ([]delivery.OrderMapping, error) {
	var mappingModels []models.OrderMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND internal_order_id = ?", tenantID, internalOrderID).
		Order("created_at ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]delivery.OrderMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings, nil
}

// Create inserts a new mapping. The unique index on (tenant, provider,
// external_order_id) turns a concurrent double-insert into
// ErrMappingConflict for the loser.
func (r *GormOrderMappingRepository) Create(ctx context.Context, mapping *delivery.OrderMapping) error {
	model := models.OrderMappingModelFromDomain(mapping)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return delivery.ErrMappingConflict
		}
		return err
	}
	return nil
}

// Update persists status changes on an existing mapping
func (r *GormOrderMappingRepository) Update(ctx context.Context, mapping *delivery.OrderMapping) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderMappingModel{}).
		Where("id = ?", mapping.ID).
		Updates(map[string]any{
			"last_external_status": mapping.LastExternalStatus,
			"last_canonical_state": mapping.LastCanonicalState,
			"updated_at":           mapping.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return delivery.ErrMappingNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Ensure GormOrderMappingRepository implements OrderMappingRepository
var _ delivery.OrderMappingRepository = (*GormOrderMappingRepository)(nil)
