package p2p

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeInvoiceFlipped  = "p2p.invoice_flipped"
	EventTypeInvoiceApproved = "p2p.invoice_approved"
	EventTypeInvoiceRejected = "p2p.invoice_rejected"
)

// InvoiceFlippedEvent is raised when a purchase order was turned into an invoice
type InvoiceFlippedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	POID          uuid.UUID       `json:"po_id"`
	BuyerTenantID uuid.UUID       `json:"buyer_tenant_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// NewInvoiceFlippedEvent creates an InvoiceFlippedEvent
func NewInvoiceFlippedEvent(inv *Invoice, actor uuid.UUID) *InvoiceFlippedEvent {
	return &InvoiceFlippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceFlipped, "P2PInvoice", inv.ID, inv.TenantID, actor),
		InvoiceID:       inv.ID,
		POID:            inv.POID,
		BuyerTenantID:   inv.BuyerTenantID,
		TotalAmount:     inv.TotalAmount,
	}
}

// InvoiceDecidedEvent is raised when the buyer approves or rejects an invoice.
// It is emitted to the buyer tenant.
type InvoiceDecidedEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID     `json:"invoice_id"`
	Status      InvoiceStatus `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	BillCreated bool          `json:"bill_created"`
	BillID      *uuid.UUID    `json:"bill_id,omitempty"`
}

// NewInvoiceApprovedEvent creates the approval event
func NewInvoiceApprovedEvent(inv *Invoice, actor uuid.UUID, billID *uuid.UUID) *InvoiceDecidedEvent {
	return &InvoiceDecidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceApproved, "P2PInvoice", inv.ID, inv.BuyerTenantID, actor),
		InvoiceID:       inv.ID,
		Status:          inv.Status,
		Reason:          inv.Reason,
		BillCreated:     billID != nil,
		BillID:          billID,
	}
}

// NewInvoiceRejectedEvent creates the rejection event
func NewInvoiceRejectedEvent(inv *Invoice, actor uuid.UUID) *InvoiceDecidedEvent {
	return &InvoiceDecidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceRejected, "P2PInvoice", inv.ID, inv.BuyerTenantID, actor),
		InvoiceID:       inv.ID,
		Status:          inv.Status,
		Reason:          inv.Reason,
	}
}
