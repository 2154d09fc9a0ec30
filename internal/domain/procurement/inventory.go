package procurement

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostScale is the number of decimal places kept for average costs
const CostScale = 4

// InventoryItem is a stocked article of the catalog
type InventoryItem struct {
	shared.TenantAggregateRoot
	SKU  string
	Name string
	Unit string
}

// NewInventoryItem creates a catalog item
func NewInventoryItem(tenantID uuid.UUID, sku, name, unit string) (*InventoryItem, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Item name cannot be empty")
	}
	if unit == "" {
		unit = "pcs"
	}
	return &InventoryItem{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SKU:                 sku,
		Name:                name,
		Unit:                unit,
	}, nil
}

// InventoryStock is the on-hand quantity and average cost of an item for a tenant.
// There is one row per (tenant, item), created on first receipt.
type InventoryStock struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	InventoryItemID uuid.UUID
	CurrentQuantity decimal.Decimal
	AverageCost     decimal.Decimal
	Version         shared.NullableVersion
}

// WeightedAverage returns the stock after receiving delta units at price.
// When the resulting quantity is not positive the incoming price becomes the cost.
// The store applies the same arithmetic in a single SQL statement.
func WeightedAverage(oldQty, oldAvg, delta, price decimal.Decimal) (qty, avg decimal.Decimal) {
	qty = oldQty.Add(delta)
	if !qty.IsPositive() {
		return qty, price
	}
	value := oldQty.Mul(oldAvg).Add(delta.Mul(price))
	return qty, value.Div(qty).Round(CostScale)
}

// Contract removes delta units floored at zero. The average cost is unchanged.
func Contract(oldQty, delta decimal.Decimal) decimal.Decimal {
	qty := oldQty.Sub(delta)
	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}
