package persistence

import (
	"context"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
	"github.com/restaurant-platform/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMenuReader implements MenuReader using GORM
type GormMenuReader struct {
	db *gorm.DB
}

// NewGormMenuReader creates a new GormMenuReader
func NewGormMenuReader(db *gorm.DB) *GormMenuReader {
	return &GormMenuReader{db: db}
}

// Load returns the full menu tree for a branch, in authoring order.
func (r *GormMenuReader) Load(ctx context.Context, tenantID, branchID uuid.UUID) (*delivery.Menu, error) {
	var categoryModels []models.MenuCategoryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND branch_id = ?", tenantID, branchID).
		Order("sort_order ASC").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("menu_items.sort_order ASC")
		}).
		Preload("Items.Modifiers", func(db *gorm.DB) *gorm.DB {
			return db.Order("modifier_groups.sort_order ASC")
		}).
		Preload("Items.Modifiers.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("modifier_options.sort_order ASC")
		}).
		Find(&categoryModels).Error; err != nil {
		return nil, err
	}

	menu := &delivery.Menu{
		TenantID:   tenantID,
		BranchID:   branchID,
		Categories: make([]delivery.MenuCategory, len(categoryModels)),
	}
	for i, cat := range categoryModels {
		menu.Categories[i] = delivery.MenuCategory{
			ID:    cat.ID,
			Name:  cat.Name,
			Items: toMenuItems(cat.Items),
		}
	}
	return menu, nil
}

func toMenuItems(itemModels []models.MenuItemModel) []delivery.MenuItem {
	items := make([]delivery.MenuItem, len(itemModels))
	for i, m := range itemModels {
		items[i] = delivery.MenuItem{
			ID:          m.ID,
			CategoryID:  m.CategoryID,
			Name:        m.Name,
			Description: m.Description,
			Price:       m.Price,
			Currency:    m.Currency,
			ImageURL:    m.ImageURL,
			Available:   m.IsAvailable,
			Modifiers:   toModifierGroups(m.Modifiers),
		}
	}
	return items
}

func toModifierGroups(groupModels []models.ModifierGroupModel) []delivery.ModifierGroup {
	if len(groupModels) == 0 {
		return nil
	}
	groups := make([]delivery.ModifierGroup, len(groupModels))
	for i, g := range groupModels {
		options := make([]delivery.ModifierOption, len(g.Options))
		for j, o := range g.Options {
			options[j] = delivery.ModifierOption{
				ID:        o.ID,
				Name:      o.Name,
				Price:     o.Price,
				Available: o.IsAvailable,
			}
		}
		groups[i] = delivery.ModifierGroup{
			ID:        g.ID,
			Name:      g.Name,
			MinSelect: g.MinSelect,
			MaxSelect: g.MaxSelect,
			Options:   options,
		}
	}
	return groups
}

// Ensure GormMenuReader implements MenuReader
var _ delivery.MenuReader = (*GormMenuReader)(nil)
