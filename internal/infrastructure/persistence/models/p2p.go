package models

import (
	"encoding/json"
	"time"

	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for a cross-tenant purchase order.
// TenantID is the buyer. Lines are stored as a JSON array.
type PurchaseOrderModel struct {
	VersionedTenantModel
	SupplierTenantID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SupplierName     string          `gorm:"type:varchar(200);not null"`
	PONumber         string          `gorm:"column:po_number;type:varchar(50);not null"`
	Status           string          `gorm:"type:varchar(20);not null"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Items            string          `gorm:"type:text;not null"`
	InvoicedAt       *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// EntityName names the aggregate in conflict errors
func (PurchaseOrderModel) EntityName() string {
	return "PurchaseOrder"
}

// WriteColumns lists the columns a versioned write may change
func (m *PurchaseOrderModel) WriteColumns() map[string]any {
	return map[string]any{
		"supplier_tenant_id": m.SupplierTenantID,
		"supplier_name":      m.SupplierName,
		"po_number":          m.PONumber,
		"status":             m.Status,
		"total_amount":       m.TotalAmount,
		"items":              m.Items,
		"invoiced_at":        m.InvoicedAt,
	}
}

// OptionalColumns lists columns that older schemas may lack
func (PurchaseOrderModel) OptionalColumns() []string {
	return []string{"invoiced_at"}
}

// ToDomain converts the persistence model to a domain PurchaseOrder
func (m *PurchaseOrderModel) ToDomain() (*p2p.PurchaseOrder, error) {
	po := &p2p.PurchaseOrder{
		SupplierTenantID: m.SupplierTenantID,
		SupplierName:     m.SupplierName,
		PONumber:         m.PONumber,
		Status:           p2p.PurchaseOrderStatus(m.Status),
		TotalAmount:      m.TotalAmount,
		InvoicedAt:       m.InvoicedAt,
	}
	m.PopulateTenantAggregateRoot(&po.TenantAggregateRoot)
	items, err := decodeLineItems(m.Items)
	if err != nil {
		return nil, err
	}
	po.Items = items
	return po, nil
}

// PurchaseOrderModelFromDomain creates a persistence model from a domain PurchaseOrder
func PurchaseOrderModelFromDomain(po *p2p.PurchaseOrder) (*PurchaseOrderModel, error) {
	items, err := encodeLineItems(po.Items)
	if err != nil {
		return nil, err
	}
	m := &PurchaseOrderModel{
		SupplierTenantID: po.SupplierTenantID,
		SupplierName:     po.SupplierName,
		PONumber:         po.PONumber,
		Status:           string(po.Status),
		TotalAmount:      po.TotalAmount,
		Items:            items,
		InvoicedAt:       po.InvoicedAt,
	}
	m.FromDomainTenantAggregateRoot(po.TenantAggregateRoot)
	return m, nil
}

// P2PInvoiceModel is the persistence model for a P2P invoice.
// TenantID is the issuing supplier; each order yields at most one invoice.
type P2PInvoiceModel struct {
	VersionedTenantModel
	BuyerTenantID uuid.UUID       `gorm:"type:uuid;not null;index"`
	POID          uuid.UUID       `gorm:"column:po_id;type:uuid;not null;uniqueIndex"`
	SupplierName  string          `gorm:"type:varchar(200);not null"`
	InvoiceNumber string          `gorm:"type:varchar(60);not null"`
	Status        string          `gorm:"type:varchar(20);not null;index"`
	IssueDate     time.Time       `gorm:"not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Items         string          `gorm:"type:text;not null"`
	DecidedBy     *uuid.UUID      `gorm:"type:uuid"`
	DecidedAt     *time.Time
	Reason        string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (P2PInvoiceModel) TableName() string {
	return "p2p_invoices"
}

// EntityName names the aggregate in conflict errors
func (P2PInvoiceModel) EntityName() string {
	return "P2PInvoice"
}

// WriteColumns lists the columns a versioned write may change
func (m *P2PInvoiceModel) WriteColumns() map[string]any {
	return map[string]any{
		"buyer_tenant_id": m.BuyerTenantID,
		"po_id":           m.POID,
		"supplier_name":   m.SupplierName,
		"invoice_number":  m.InvoiceNumber,
		"status":          m.Status,
		"issue_date":      m.IssueDate,
		"total_amount":    m.TotalAmount,
		"items":           m.Items,
		"decided_by":      m.DecidedBy,
		"decided_at":      m.DecidedAt,
		"reason":          m.Reason,
	}
}

// OptionalColumns lists columns that older schemas may lack
func (P2PInvoiceModel) OptionalColumns() []string {
	return []string{"decided_by", "decided_at", "reason"}
}

// ToDomain converts the persistence model to a domain Invoice
func (m *P2PInvoiceModel) ToDomain() (*p2p.Invoice, error) {
	inv := &p2p.Invoice{
		BuyerTenantID: m.BuyerTenantID,
		POID:          m.POID,
		SupplierName:  m.SupplierName,
		InvoiceNumber: m.InvoiceNumber,
		Status:        p2p.InvoiceStatus(m.Status),
		IssueDate:     m.IssueDate,
		TotalAmount:   m.TotalAmount,
		DecidedBy:     m.DecidedBy,
		DecidedAt:     m.DecidedAt,
		Reason:        m.Reason,
	}
	m.PopulateTenantAggregateRoot(&inv.TenantAggregateRoot)
	items, err := decodeLineItems(m.Items)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// P2PInvoiceModelFromDomain creates a persistence model from a domain Invoice
func P2PInvoiceModelFromDomain(inv *p2p.Invoice) (*P2PInvoiceModel, error) {
	items, err := encodeLineItems(inv.Items)
	if err != nil {
		return nil, err
	}
	m := &P2PInvoiceModel{
		BuyerTenantID: inv.BuyerTenantID,
		POID:          inv.POID,
		SupplierName:  inv.SupplierName,
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		IssueDate:     inv.IssueDate,
		TotalAmount:   inv.TotalAmount,
		Items:         items,
		DecidedBy:     inv.DecidedBy,
		DecidedAt:     inv.DecidedAt,
		Reason:        inv.Reason,
	}
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	return m, nil
}

func encodeLineItems(items []p2p.LineItem) (string, error) {
	if items == nil {
		items = []p2p.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeLineItems(raw string) ([]p2p.LineItem, error) {
	if raw == "" {
		return nil, nil
	}
	var items []p2p.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// BillReconciliationModel is the persistence model for a pending bill synthesis.
type BillReconciliationModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	InvoiceID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status     string     `gorm:"type:varchar(20);not null;index"`
	Attempts   int        `gorm:"not null;default:0"`
	LastError  string     `gorm:"type:text"`
	BillID     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
	ResolvedAt *time.Time
}

// TableName returns the table name for GORM
func (BillReconciliationModel) TableName() string {
	return "bill_reconciliations"
}

// ToDomain converts the persistence model to a domain BillReconciliation
func (m *BillReconciliationModel) ToDomain() *p2p.BillReconciliation {
	return &p2p.BillReconciliation{
		ID:         m.ID,
		TenantID:   m.TenantID,
		InvoiceID:  m.InvoiceID,
		Status:     p2p.ReconciliationStatus(m.Status),
		Attempts:   m.Attempts,
		LastError:  m.LastError,
		BillID:     m.BillID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		ResolvedAt: m.ResolvedAt,
	}
}

// BillReconciliationModelFromDomain creates a persistence model from a domain record
func BillReconciliationModelFromDomain(r *p2p.BillReconciliation) *BillReconciliationModel {
	return &BillReconciliationModel{
		ID:         r.ID,
		TenantID:   r.TenantID,
		InvoiceID:  r.InvoiceID,
		Status:     string(r.Status),
		Attempts:   r.Attempts,
		LastError:  r.LastError,
		BillID:     r.BillID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		ResolvedAt: r.ResolvedAt,
	}
}
