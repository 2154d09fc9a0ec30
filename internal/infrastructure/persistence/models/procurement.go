package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseBillModel is the persistence model for the PurchaseBill aggregate root.
type PurchaseBillModel struct {
	VersionedTenantModel
	BillNumber        string                  `gorm:"type:varchar(50);not null"`
	SupplierContactID uuid.UUID               `gorm:"type:uuid;not null;index"`
	IssueDate         time.Time               `gorm:"not null"`
	TotalAmount       decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	PaidAmount        decimal.Decimal         `gorm:"type:decimal(18,2);not null;default:0"`
	Status            string                  `gorm:"type:varchar(20);not null"`
	DeliveryStatus    string                  `gorm:"type:varchar(30);not null;default:'Pending'"`
	ItemsReceived     bool                    `gorm:"not null;default:false"`
	Items             []PurchaseBillItemModel `gorm:"foreignKey:PurchaseBillID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PurchaseBillModel) TableName() string {
	return "purchase_bills"
}

// EntityName names the aggregate in conflict errors
func (PurchaseBillModel) EntityName() string {
	return "PurchaseBill"
}

// WriteColumns lists the columns a versioned write may change
func (m *PurchaseBillModel) WriteColumns() map[string]any {
	return map[string]any{
		"bill_number":         m.BillNumber,
		"supplier_contact_id": m.SupplierContactID,
		"issue_date":          m.IssueDate,
		"total_amount":        m.TotalAmount,
		"paid_amount":         m.PaidAmount,
		"status":              m.Status,
		"delivery_status":     m.DeliveryStatus,
		"items_received":      m.ItemsReceived,
	}
}

// OptionalColumns lists columns that older schemas may lack
func (PurchaseBillModel) OptionalColumns() []string {
	return []string{"delivery_status", "items_received"}
}

// ToDomain converts the persistence model to a domain PurchaseBill
func (m *PurchaseBillModel) ToDomain() *procurement.PurchaseBill {
	b := &procurement.PurchaseBill{
		BillNumber:        m.BillNumber,
		SupplierContactID: m.SupplierContactID,
		IssueDate:         m.IssueDate,
		TotalAmount:       m.TotalAmount,
		PaidAmount:        m.PaidAmount,
		Status:            finance.PaymentStatus(m.Status),
		DeliveryStatus:    procurement.DeliveryStatus(m.DeliveryStatus),
		ItemsReceived:     m.ItemsReceived,
		Items:             make([]procurement.PurchaseBillItem, len(m.Items)),
	}
	m.PopulateTenantAggregateRoot(&b.TenantAggregateRoot)
	for i, item := range m.Items {
		b.Items[i] = item.ToDomain()
	}
	if b.DeliveryStatus == "" {
		b.DeliveryStatus = procurement.DeliveryStatusPending
	}
	return b
}

// PurchaseBillModelFromDomain creates a persistence model from a domain PurchaseBill
func PurchaseBillModelFromDomain(b *procurement.PurchaseBill) *PurchaseBillModel {
	m := &PurchaseBillModel{
		BillNumber:        b.BillNumber,
		SupplierContactID: b.SupplierContactID,
		IssueDate:         b.IssueDate,
		TotalAmount:       b.TotalAmount,
		PaidAmount:        b.PaidAmount,
		Status:            string(b.Status),
		DeliveryStatus:    string(b.DeliveryStatus),
		ItemsReceived:     b.ItemsReceived,
		Items:             make([]PurchaseBillItemModel, len(b.Items)),
	}
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	for i := range b.Items {
		m.Items[i] = PurchaseBillItemModelFromDomain(b.ID, &b.Items[i])
	}
	return m
}

// PurchaseBillItemModel is the persistence model for a purchase bill line.
type PurchaseBillItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PurchaseBillID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	InventoryItemID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PricePerUnit     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (PurchaseBillItemModel) TableName() string {
	return "purchase_bill_items"
}

// ToDomain converts the persistence model to a domain PurchaseBillItem
func (m *PurchaseBillItemModel) ToDomain() procurement.PurchaseBillItem {
	return procurement.PurchaseBillItem{
		ID:               m.ID,
		PurchaseBillID:   m.PurchaseBillID,
		InventoryItemID:  m.InventoryItemID,
		OrderedQuantity:  m.OrderedQuantity,
		ReceivedQuantity: m.ReceivedQuantity,
		PricePerUnit:     m.PricePerUnit,
		LineTotal:        m.LineTotal,
	}
}

// PurchaseBillItemModelFromDomain creates a persistence model for a line
func PurchaseBillItemModelFromDomain(billID uuid.UUID, i *procurement.PurchaseBillItem) PurchaseBillItemModel {
	return PurchaseBillItemModel{
		ID:               i.ID,
		PurchaseBillID:   billID,
		InventoryItemID:  i.InventoryItemID,
		OrderedQuantity:  i.OrderedQuantity,
		ReceivedQuantity: i.ReceivedQuantity,
		PricePerUnit:     i.PricePerUnit,
		LineTotal:        i.LineTotal,
	}
}

// InventoryItemModel is the persistence model for a catalog item.
type InventoryItemModel struct {
	VersionedTenantModel
	SKU  string `gorm:"column:sku;type:varchar(64);not null"`
	Name string `gorm:"type:varchar(200);not null"`
	Unit string `gorm:"type:varchar(20);not null;default:'pcs'"`
}

// TableName returns the table name for GORM
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// EntityName names the aggregate in conflict errors
func (InventoryItemModel) EntityName() string {
	return "InventoryItem"
}

// WriteColumns lists the columns a versioned write may change
func (m *InventoryItemModel) WriteColumns() map[string]any {
	return map[string]any{
		"sku":  m.SKU,
		"name": m.Name,
		"unit": m.Unit,
	}
}

// OptionalColumns lists columns that older schemas may lack
func (InventoryItemModel) OptionalColumns() []string {
	return []string{"unit"}
}

// ToDomain converts the persistence model to a domain InventoryItem
func (m *InventoryItemModel) ToDomain() *procurement.InventoryItem {
	item := &procurement.InventoryItem{
		SKU:  m.SKU,
		Name: m.Name,
		Unit: m.Unit,
	}
	m.PopulateTenantAggregateRoot(&item.TenantAggregateRoot)
	return item
}

// InventoryItemModelFromDomain creates a persistence model from a domain InventoryItem
func InventoryItemModelFromDomain(i *procurement.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{
		SKU:  i.SKU,
		Name: i.Name,
		Unit: i.Unit,
	}
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	return m
}

// InventoryStockModel is the persistence model for the per-item stock row.
// It is only written through the atomic accumulate and contract statements.
type InventoryStockModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_stocks_tenant_item,priority:1"`
	InventoryItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_stocks_tenant_item,priority:2"`
	CurrentQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AverageCost     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Version         *int            `gorm:"column:version"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryStockModel) TableName() string {
	return "inventory_stocks"
}

// ToDomain converts the persistence model to a domain InventoryStock
func (m *InventoryStockModel) ToDomain() *procurement.InventoryStock {
	return &procurement.InventoryStock{
		ID:              m.ID,
		TenantID:        m.TenantID,
		InventoryItemID: m.InventoryItemID,
		CurrentQuantity: m.CurrentQuantity,
		AverageCost:     m.AverageCost,
		Version:         versionFromPtr(m.Version),
	}
}
