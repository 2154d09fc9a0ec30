package procurement

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseBillRepository defines the interface for purchase bill persistence
type PurchaseBillRepository interface {
	// FindByIDForTenant loads a purchase bill with its items
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseBill, error)

	// LockForUpdate loads the bill under an exclusive, non-waiting row lock.
	// Must be called inside a transaction.
	LockForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseBill, error)

	Create(ctx context.Context, bill *PurchaseBill) error
	Save(ctx context.Context, bill *PurchaseBill, expected shared.ExpectedVersion) error

	// SaveReceivedQuantities persists the received quantity of each line
	SaveReceivedQuantities(ctx context.Context, bill *PurchaseBill) error
}

// InventoryItemRepository defines the interface for catalog item persistence
type InventoryItemRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*InventoryItem, error)
	Create(ctx context.Context, item *InventoryItem) error
}

// InventoryStockRepository defines the interface for stock persistence.
// Both writes are single statements so concurrent receipts never lose updates.
type InventoryStockRepository interface {
	FindByItem(ctx context.Context, tenantID, inventoryItemID uuid.UUID) (*InventoryStock, error)

	// Accumulate adds delta units at price, creating the row on first receipt
	Accumulate(ctx context.Context, tenantID, inventoryItemID uuid.UUID, delta, price decimal.Decimal) error

	// Contract removes delta units, floored at zero, leaving the average cost untouched
	Contract(ctx context.Context, tenantID, inventoryItemID uuid.UUID, delta decimal.Decimal) error
}
