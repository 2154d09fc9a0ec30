package p2p

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the lifecycle of a cross-tenant purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "DRAFT"
	PurchaseOrderStatusSent      PurchaseOrderStatus = "SENT"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "RECEIVED"
	PurchaseOrderStatusInvoiced  PurchaseOrderStatus = "INVOICED"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "CANCELLED"
)

// CanBeInvoiced returns true if the supplier may flip the order into an invoice
func (s PurchaseOrderStatus) CanBeInvoiced() bool {
	return s == PurchaseOrderStatusSent || s == PurchaseOrderStatusReceived
}

// LineItem is a priced line shared by purchase orders and invoices
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// NewLineItem creates a line with lineTotal = quantity x unitPrice
func NewLineItem(description string, quantity, unitPrice decimal.Decimal) (LineItem, error) {
	if !quantity.IsPositive() {
		return LineItem{}, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return LineItem{
		ID:          uuid.New(),
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   quantity.Mul(unitPrice).Round(2),
	}, nil
}

// PurchaseOrder is issued by a buyer tenant to a supplier tenant
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	SupplierTenantID uuid.UUID
	SupplierName     string
	PONumber         string
	Status           PurchaseOrderStatus
	TotalAmount      decimal.Decimal
	Items            []LineItem
	InvoicedAt       *time.Time
}

// NewPurchaseOrder creates a sent purchase order
func NewPurchaseOrder(buyerTenantID, supplierTenantID uuid.UUID, supplierName, poNumber string, items []LineItem) (*PurchaseOrder, error) {
	if supplierTenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier tenant cannot be empty")
	}
	if supplierTenantID == buyerTenantID {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier tenant must differ from the buyer")
	}
	if poNumber == "" {
		return nil, shared.NewDomainError("INVALID_PO_NUMBER", "PO number cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Purchase order must have at least one item")
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(buyerTenantID),
		SupplierTenantID:    supplierTenantID,
		SupplierName:        supplierName,
		PONumber:            poNumber,
		Status:              PurchaseOrderStatusSent,
		TotalAmount:         total,
		Items:               items,
	}, nil
}

// MarkInvoiced advances the order after it was flipped into an invoice
func (o *PurchaseOrder) MarkInvoiced() error {
	if !o.Status.CanBeInvoiced() {
		return &shared.TransitionError{
			Entity: "PurchaseOrder",
			From:   string(o.Status),
			To:     string(PurchaseOrderStatusInvoiced),
		}
	}
	now := time.Now()
	o.Status = PurchaseOrderStatusInvoiced
	o.InvoicedAt = &now
	o.UpdatedAt = now
	return nil
}
