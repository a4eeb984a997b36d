package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProviderConfigRepository implements ProviderConfigRepository using GORM
type GormProviderConfigRepository struct {
	db *gorm.DB
}

// NewGormProviderConfigRepository creates a new GormProviderConfigRepository
func NewGormProviderConfigRepository(db *gorm.DB) *GormProviderConfigRepository {
	return &GormProviderConfigRepository{db: db}
}

// FindByID finds a config by its ID
func (r *GormProviderConfigRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.ProviderConfig, error) {
	var model models.ProviderConfigModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTriple finds the config for a (tenant, branch, provider) triple
func (r *GormProviderConfigRepository) FindByTriple(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (*delivery.ProviderConfig, error) {
	var model models.ProviderConfigModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND branch_id = ? AND provider = ?", tenantID, branchID, provider).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenant lists all configs for a tenant, active or not
func (r *GormProviderConfigRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]delivery.ProviderConfig, error) {
	var configModels []models.ProviderConfigModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("provider ASC, created_at DESC").
		Find(&configModels).Error; err != nil {
		return nil, err
	}

	configs := make([]delivery.ProviderConfig, len(configModels))
	for i, model := range configModels {
		configs[i] = *model.ToDomain()
	}
	return configs, nil
}

// Save creates or updates a config
func (r *GormProviderConfigRepository) Save(ctx context.Context, cfg *delivery.ProviderConfig) error {
	model := models.ProviderConfigModelFromDomain(cfg)
	return r.db.WithContext(ctx).Save(model).Error
}

// UpdateTokens replaces the encrypted token columns and expiry in a single
// UPDATE so token rotation is atomic
func (r *GormProviderConfigRepository) UpdateTokens(ctx context.Context, id uuid.UUID, encryptedTokens []byte, expiresAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProviderConfigModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"encrypted_tokens": encryptedTokens,
			"token_expires_at": expiresAt,
			"updated_at":       gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return delivery.ErrConfigNotFound
	}
	return nil
}

// Deactivate flips the active flag without touching secrets
func (r *GormProviderConfigRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProviderConfigModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  false,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return delivery.ErrConfigNotFound
	}
	return nil
}

// Ensure GormProviderConfigRepository implements ProviderConfigRepository
var _ delivery.ProviderConfigRepository = (*GormProviderConfigRepository)(nil)
