package persistence

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/procurement"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPurchaseBillRepository implements procurement.PurchaseBillRepository using GORM
type GormPurchaseBillRepository struct {
	store *VersionedStore
}

// NewGormPurchaseBillRepository creates a new GormPurchaseBillRepository
func NewGormPurchaseBillRepository(db *gorm.DB, opts StoreOptions) *GormPurchaseBillRepository {
	return &GormPurchaseBillRepository{store: NewVersionedStore(db, opts)}
}

// FindByIDForTenant loads a purchase bill with its items
func (r *GormPurchaseBillRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseBill, error) {
	var model models.PurchaseBillModel
	if err := r.store.DB(ctx).
		Preload("Items", orderedItems).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		return nil, classifyError(err, "purchase bill")
	}
	return model.ToDomain(), nil
}

// LockForUpdate locks the purchase bill row with FOR UPDATE NOWAIT, then loads its items.
// Items are owned by the bill, so the parent lock covers them.
func (r *GormPurchaseBillRepository) LockForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseBill, error) {
	locked, err := r.store.Locked(ctx)
	if err != nil {
		return nil, classifyError(err, "purchase bill")
	}
	var model models.PurchaseBillModel
	if err := locked.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, "purchase bill")
	}
	if err := r.store.DB(ctx).
		Where("purchase_bill_id = ?", model.ID).
		Scopes(orderedItems).
		Find(&model.Items).Error; err != nil {
		return nil, classifyError(err, "purchase bill")
	}
	return model.ToDomain(), nil
}

// Create inserts a new purchase bill with its items at version 1
func (r *GormPurchaseBillRepository) Create(ctx context.Context, bill *procurement.PurchaseBill) error {
	bill.Version = shared.VersionOf(1)
	model := models.PurchaseBillModelFromDomain(bill)
	return r.store.Insert(ctx, model.TableName(), model)
}

// Save writes the bill's header fields through the versioned store
func (r *GormPurchaseBillRepository) Save(ctx context.Context, bill *procurement.PurchaseBill, expected shared.ExpectedVersion) error {
	v, err := r.store.Upsert(ctx, models.PurchaseBillModelFromDomain(bill), expected)
	if err != nil {
		return err
	}
	bill.Version = v
	return nil
}

// SaveReceivedQuantities persists the received quantity of each line
func (r *GormPurchaseBillRepository) SaveReceivedQuantities(ctx context.Context, bill *procurement.PurchaseBill) error {
	db := r.store.DB(ctx)
	for _, item := range bill.Items {
		res := db.Model(&models.PurchaseBillItemModel{}).
			Where("id = ? AND purchase_bill_id = ?", item.ID, bill.ID).
			Update("received_quantity", item.ReceivedQuantity)
		if res.Error != nil {
			return classifyError(res.Error, "purchase bill item")
		}
		if res.RowsAffected == 0 {
			return shared.ErrNotFound
		}
	}
	return nil
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// GormInventoryItemRepository implements procurement.InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	store *VersionedStore
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB, opts StoreOptions) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{store: NewVersionedStore(db, opts)}
}

// FindByIDForTenant finds a live inventory item within a tenant
func (r *GormInventoryItemRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.InventoryItem, error) {
	var model models.InventoryItemModel
	if err := r.store.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, "inventory item")
	}
	return model.ToDomain(), nil
}

// Create inserts a new inventory item at version 1
func (r *GormInventoryItemRepository) Create(ctx context.Context, item *procurement.InventoryItem) error {
	item.Version = shared.VersionOf(1)
	model := models.InventoryItemModelFromDomain(item)
	return r.store.Insert(ctx, model.TableName(), model)
}

// GormInventoryStockRepository implements procurement.InventoryStockRepository.
// Both writes are single statements so concurrent receipts on the same item
// never lose updates.
type GormInventoryStockRepository struct {
	store *VersionedStore
}

// NewGormInventoryStockRepository creates a new GormInventoryStockRepository
func NewGormInventoryStockRepository(db *gorm.DB, opts StoreOptions) *GormInventoryStockRepository {
	return &GormInventoryStockRepository{store: NewVersionedStore(db, opts)}
}

// accumulateSQL upserts the stock row with the weighted-average arithmetic of
// procurement.WeightedAverage. The multiplication by 1.0 keeps sqlite from
// falling back to integer division.
const accumulateSQL = `INSERT INTO inventory_stocks
	(id, tenant_id, inventory_item_id, current_quantity, average_cost, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 1, ?, ?)
ON CONFLICT (tenant_id, inventory_item_id) DO UPDATE SET
	average_cost = CASE
		WHEN inventory_stocks.current_quantity + excluded.current_quantity > 0
		THEN ROUND((inventory_stocks.current_quantity * inventory_stocks.average_cost
			+ excluded.current_quantity * excluded.average_cost) * 1.0
			/ (inventory_stocks.current_quantity + excluded.current_quantity), 4)
		ELSE excluded.average_cost
	END,
	current_quantity = inventory_stocks.current_quantity + excluded.current_quantity,
	version = COALESCE(inventory_stocks.version, 0) + 1,
	updated_at = excluded.updated_at`

const contractSQL = `UPDATE inventory_stocks SET
	current_quantity = CASE WHEN current_quantity - ? < 0 THEN 0 ELSE current_quantity - ? END,
	version = COALESCE(version, 0) + 1,
	updated_at = ?
WHERE tenant_id = ? AND inventory_item_id = ?`

// FindByItem returns the stock row of an item
func (r *GormInventoryStockRepository) FindByItem(ctx context.Context, tenantID, inventoryItemID uuid.UUID) (*procurement.InventoryStock, error) {
	var model models.InventoryStockModel
	if err := r.store.DB(ctx).
		Where("tenant_id = ? AND inventory_item_id = ?", tenantID, inventoryItemID).
		First(&model).Error; err != nil {
		return nil, classifyError(err, "inventory stock")
	}
	return model.ToDomain(), nil
}

// Accumulate adds delta units at price, creating the row on first receipt
func (r *GormInventoryStockRepository) Accumulate(ctx context.Context, tenantID, inventoryItemID uuid.UUID, delta, price decimal.Decimal) error {
	if !delta.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Accumulated quantity must be positive")
	}
	now := time.Now()
	err := r.store.DB(ctx).Exec(accumulateSQL,
		uuid.New(), tenantID, inventoryItemID, delta, price, now, now,
	).Error
	return classifyError(err, "inventory stock")
}

// Contract removes delta units, floored at zero. A missing row has nothing to remove.
func (r *GormInventoryStockRepository) Contract(ctx context.Context, tenantID, inventoryItemID uuid.UUID, delta decimal.Decimal) error {
	if !delta.IsPositive() {
		return shared.NewDomainError("INVALID_QUANTITY", "Contracted quantity must be positive")
	}
	err := r.store.DB(ctx).Exec(contractSQL, delta, delta, time.Now(), tenantID, inventoryItemID).Error
	return classifyError(err, "inventory stock")
}

// Ensure the repositories implement the domain interfaces
var (
	_ procurement.PurchaseBillRepository   = (*GormPurchaseBillRepository)(nil)
	_ procurement.InventoryItemRepository  = (*GormInventoryItemRepository)(nil)
	_ procurement.InventoryStockRepository = (*GormInventoryStockRepository)(nil)
)
