package persistence

import (
	"context"
	"errors"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMenuSyncJobRepository implements MenuSyncJobRepository using GORM
type GormMenuSyncJobRepository struct {
	db *gorm.DB
}

// NewGormMenuSyncJobRepository creates a new GormMenuSyncJobRepository
func NewGormMenuSyncJobRepository(db *gorm.DB) *GormMenuSyncJobRepository {
	return &GormMenuSyncJobRepository{db: db}
}

// FindByID finds a job by its ID
func (r *GormMenuSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.MenuSyncJob, error) {
	var model models.MenuSyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrSyncJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRunning returns the running non-availability job for a triple
func (r *GormMenuSyncJobRepository) FindRunning(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode) (*delivery.MenuSyncJob, error) {
	var model models.MenuSyncJobModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND branch_id = ? AND provider = ? AND status IN ? AND kind <> ?",
			tenantID, branchID, provider,
			[]delivery.SyncJobStatus{delivery.SyncJobPending, delivery.SyncJobRunning},
			delivery.SyncKindAvailability).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, delivery.ErrSyncJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent lists the latest jobs for a triple, newest first
func (r *GormMenuSyncJobRepository) FindRecent(ctx context.Context, tenantID, branchID uuid.UUID, provider delivery.ProviderCode, limit int) ([]delivery.MenuSyncJob, error) {
	if limit <= 0 {
		limit = 20
	}

	var jobModels []models.MenuSyncJobModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND branch_id = ? AND provider = ?", tenantID, branchID, provider).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]delivery.MenuSyncJob, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = *model.ToDomain()
	}
	return jobs, nil
}

// Save creates or updates a job
func (r *GormMenuSyncJobRepository) Save(ctx context.Context, job *delivery.MenuSyncJob) error {
	model := models.MenuSyncJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormMenuSyncJobRepository implements MenuSyncJobRepository
var _ delivery.MenuSyncJobRepository = (*GormMenuSyncJobRepository)(nil)
