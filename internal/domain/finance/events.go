package finance

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypePaymentPosted = "ledger.payment_posted"
	EventTypeBillCreated   = "ledger.bill_created"
)

// PaymentPostedEvent is raised after a payment has been committed
type PaymentPostedEvent struct {
	shared.BaseDomainEvent
	DocumentKind   DocumentKind    `json:"document_kind"`
	DocumentID     uuid.UUID       `json:"document_id"`
	TransactionIDs []uuid.UUID     `json:"transaction_ids"`
	AccountID      uuid.UUID       `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	Status         PaymentStatus   `json:"status"`
}

// NewPaymentPostedEvent creates a PaymentPostedEvent
func NewPaymentPostedEvent(tenantID, actorID uuid.UUID, doc DocumentRef, txIDs []uuid.UUID, accountID uuid.UUID, amount, paid decimal.Decimal, status PaymentStatus) *PaymentPostedEvent {
	return &PaymentPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentPosted, string(doc.Kind), doc.ID, tenantID, actorID),
		DocumentKind:    doc.Kind,
		DocumentID:      doc.ID,
		TransactionIDs:  txIDs,
		AccountID:       accountID,
		Amount:          amount,
		PaidAmount:      paid,
		Status:          status,
	}
}

// BillCreatedEvent is raised when a bill is materialized, e.g. from an approved invoice
type BillCreatedEvent struct {
	shared.BaseDomainEvent
	BillID          uuid.UUID       `json:"bill_id"`
	BillNumber      string          `json:"bill_number"`
	ContactID       uuid.UUID       `json:"contact_id"`
	SourceInvoiceID *uuid.UUID      `json:"source_invoice_id,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DueDate         time.Time       `json:"due_date"`
}

// NewBillCreatedEvent creates a BillCreatedEvent
func NewBillCreatedEvent(b *Bill, actorID uuid.UUID) *BillCreatedEvent {
	return &BillCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillCreated, "Bill", b.ID, b.TenantID, actorID),
		BillID:          b.ID,
		BillNumber:      b.BillNumber,
		ContactID:       b.ContactID,
		SourceInvoiceID: b.SourceInvoiceID,
		TotalAmount:     b.TotalAmount,
		DueDate:         b.DueDate,
	}
}
