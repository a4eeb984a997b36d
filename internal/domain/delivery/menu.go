package delivery

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Internal menu model
// ---------------------------------------------------------------------------

// Menu is the internal category/product/modifier tree the sync engine reads
// through the MenuReader port. The authoring side of this model lives outside
// the engine.
type Menu struct {
	TenantID   uuid.UUID
	BranchID   uuid.UUID
	Categories []MenuCategory
}

// MenuCategory groups items under one heading.
type MenuCategory struct {
	ID    uuid.UUID
	Name  string
	Items []MenuItem
}

// MenuItem is one sellable product with its modifier groups.
type MenuItem struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	ImageURL    string
	Available   bool
	Modifiers   []ModifierGroup
}

// ModifierGroup is a set of options attached to an item, e.g. "Size".
type ModifierGroup struct {
	ID        uuid.UUID
	Name      string
	MinSelect int
	MaxSelect int
	Options   []ModifierOption
}

// ModifierOption is one selectable option within a modifier group.
type ModifierOption struct {
	ID        uuid.UUID
	Name      string
	Price     decimal.Decimal
	Available bool
}

// Items flattens the category tree into a single item slice, preserving
// category order.
func (m *Menu) Items() []MenuItem {
	var items []MenuItem
	for _, cat := range m.Categories {
		items = append(items, cat.Items...)
	}
	return items
}

// ItemsByID returns the subset of items whose IDs appear in ids, in tree
// order. Unknown IDs are skipped.
func (m *Menu) ItemsByID(ids []uuid.UUID) []MenuItem {
	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var items []MenuItem
	for _, item := range m.Items() {
		if _, ok := want[item.ID]; ok {
			items = append(items, item)
		}
	}
	return items
}

// ---------------------------------------------------------------------------
// Platform-facing ports
// ---------------------------------------------------------------------------

// MenuReader is the internal menu read API consumed by the sync engine.
type MenuReader interface {
	// Load returns the current menu tree for a branch.
	Load(ctx context.Context, tenantID, branchID uuid.UUID) (*Menu, error)
}

// OrderWriter is the hosting platform's order-write API. The coordinator
// calls it exactly once per accepted state transition.
type OrderWriter interface {
	// CreateOrUpdateOrder upserts the internal order from a canonical draft
	// and returns the internal order ID.
	CreateOrUpdateOrder(ctx context.Context, tenantID uuid.UUID, draft CanonicalOrderDraft) (uuid.UUID, error)
}
