package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDeliveryOrderRepository implements OrderWriter using GORM
type GormDeliveryOrderRepository struct {
	db *gorm.DB
}

// NewGormDeliveryOrderRepository creates a new GormDeliveryOrderRepository
func NewGormDeliveryOrderRepository(db *gorm.DB) *GormDeliveryOrderRepository {
	return &GormDeliveryOrderRepository{db: db}
}

// CreateOrUpdateOrder upserts the internal order row for a canonical draft.
// Repeated deliveries of the same external order update the existing row and
// return its stable internal ID.
func (r *GormDeliveryOrderRepository) CreateOrUpdateOrder(ctx context.Context, tenantID uuid.UUID, draft delivery.CanonicalOrderDraft) (uuid.UUID, error) {
	itemsJSON, err := json.Marshal(draft.Items)
	if err != nil {
		return uuid.Nil, err
	}

	var orderID uuid.UUID
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.DeliveryOrderModel
		findErr := tx.
			Where("tenant_id = ? AND provider = ? AND external_order_id = ?", tenantID, draft.Provider, draft.ExternalOrderID).
			First(&existing).Error

		if findErr == nil {
			orderID = existing.ID
			return tx.Model(&models.DeliveryOrderModel{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"external_status": draft.ExternalStatus,
					"state":           draft.State,
					"items":           string(itemsJSON),
					"subtotal":        draft.Subtotal,
					"delivery_fee":    draft.DeliveryFee,
					"total":           draft.Total,
					"updated_at":      time.Now(),
				}).Error
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		now := time.Now()
		model := models.DeliveryOrderModel{
			ID:              uuid.New(),
			TenantID:        tenantID,
			Provider:        draft.Provider,
			ExternalOrderID: draft.ExternalOrderID,
			ExternalStatus:  draft.ExternalStatus,
			State:           draft.State,
			StoreID:         draft.StoreID,
			CustomerName:    draft.CustomerName,
			CustomerPhone:   draft.CustomerPhone,
			DeliveryAddress: draft.DeliveryAddress,
			DeliveryNotes:   draft.DeliveryNotes,
			ItemsJSON:       string(itemsJSON),
			Subtotal:        draft.Subtotal,
			DeliveryFee:     draft.DeliveryFee,
			Total:           draft.Total,
			Currency:        draft.Currency,
			PlacedAt:        draft.PlacedAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if createErr := tx.Create(&model).Error; createErr != nil {
			if isUniqueViolation(createErr) {
				// A concurrent consumer inserted the row first; reuse it.
				var winner models.DeliveryOrderModel
				if readErr := tx.
					Where("tenant_id = ? AND provider = ? AND external_order_id = ?", tenantID, draft.Provider, draft.ExternalOrderID).
					First(&winner).Error; readErr != nil {
					return readErr
				}
				orderID = winner.ID
				return nil
			}
			return createErr
		}
		orderID = model.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return orderID, nil
}

// Ensure GormDeliveryOrderRepository implements OrderWriter
var _ delivery.OrderWriter = (*GormDeliveryOrderRepository)(nil)
