package models

import (
	"time"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// DeliveryOrderModel
// ---------------------------------------------------------------------------

// DeliveryOrderModel is the internal order row written by the coordinator.
// One row per (tenant, provider, external order id); repeated webhook
// deliveries update it in place.
type DeliveryOrderModel struct {
	ID              uuid.UUID                    `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID                    `gorm:"type:uuid;not null;index:idx_delivery_order_external,unique,priority:1"`
	Provider        delivery.ProviderCode        `gorm:"type:varchar(20);not null;index:idx_delivery_order_external,unique,priority:2"`
	ExternalOrderID string                       `gorm:"type:varchar(100);not null;index:idx_delivery_order_external,unique,priority:3"`
	ExternalStatus  string                       `gorm:"type:varchar(50)"`
	State           delivery.CanonicalOrderState `gorm:"type:varchar(20);not null;index"`
	StoreID         string                       `gorm:"type:varchar(100)"`
	CustomerName    string                       `gorm:"type:varchar(200)"`
	CustomerPhone   string                       `gorm:"type:varchar(50)"`
	DeliveryAddress string                       `gorm:"type:text"`
	DeliveryNotes   string                       `gorm:"type:text"`
	ItemsJSON       string                       `gorm:"type:jsonb;column:items"`
	Subtotal        decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	DeliveryFee     decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	Total           decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	Currency        string                       `gorm:"type:varchar(3)"`
	PlacedAt        time.Time                    `gorm:"not null"`
	CreatedAt       time.Time                    `gorm:"not null;index"`
	UpdatedAt       time.Time                    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeliveryOrderModel) TableName() string {
	return "delivery_orders"
}
