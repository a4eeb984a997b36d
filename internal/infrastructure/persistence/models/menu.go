package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Menu read models
// ---------------------------------------------------------------------------
//
// The menu is authored elsewhere on the platform; these models only back the
// read side consumed by the sync engine.

// MenuCategoryModel is one heading in a branch menu.
type MenuCategoryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index:idx_menu_category_branch,priority:1"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;index:idx_menu_category_branch,priority:2"`
	Name      string    `gorm:"type:varchar(100);not null"`
	SortOrder int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Items []MenuItemModel `gorm:"foreignKey:CategoryID"`
}

// TableName returns the table name for GORM
func (MenuCategoryModel) TableName() string {
	return "menu_categories"
}

// MenuItemModel is one sellable product row.
type MenuItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Currency    string          `gorm:"type:varchar(3);not null"`
	ImageURL    string          `gorm:"type:varchar(500)"`
	IsAvailable bool            `gorm:"not null;default:true"`
	SortOrder   int             `gorm:"not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`

	Modifiers []ModifierGroupModel `gorm:"foreignKey:ItemID"`
}

// TableName returns the table name for GORM
func (MenuItemModel) TableName() string {
	return "menu_items"
}

// ModifierGroupModel is a set of options attached to an item.
type ModifierGroupModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(100);not null"`
	MinSelect int       `gorm:"not null;default:0"`
	MaxSelect int       `gorm:"not null;default:1"`
	SortOrder int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Options []ModifierOptionModel `gorm:"foreignKey:GroupID"`
}

// TableName returns the table name for GORM
func (ModifierGroupModel) TableName() string {
	return "modifier_groups"
}

// ModifierOptionModel is one selectable option within a modifier group.
type ModifierOptionModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	GroupID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(100);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsAvailable bool            `gorm:"not null;default:true"`
	SortOrder   int             `gorm:"not null;default:0"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ModifierOptionModel) TableName() string {
	return "modifier_options"
}
