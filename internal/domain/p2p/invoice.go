package p2p

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the approval state of a P2P invoice
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "PENDING"
	InvoiceStatusApproved InvoiceStatus = "APPROVED"
	InvoiceStatusRejected InvoiceStatus = "REJECTED"
)

// invoiceTransitions is the complete transition table. APPROVED and REJECTED are terminal.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusPending: {InvoiceStatusApproved, InvoiceStatusRejected},
}

// CanTransitionTo checks if the status can transition to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true once the invoice has been decided
func (s InvoiceStatus) IsTerminal() bool {
	return len(invoiceTransitions[s]) == 0
}

// ValidateTransition returns a TransitionError naming the pair when it is not allowed
func ValidateTransition(from, to InvoiceStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return &shared.TransitionError{Entity: "P2PInvoice", From: string(from), To: string(to)}
}

// Invoice is issued by the supplier tenant to the buyer tenant of a purchase order.
// TenantID is the supplier; every invoice belongs to exactly one order.
type Invoice struct {
	shared.TenantAggregateRoot
	BuyerTenantID uuid.UUID
	POID          uuid.UUID
	SupplierName  string
	InvoiceNumber string
	Status        InvoiceStatus
	IssueDate     time.Time
	TotalAmount   decimal.Decimal
	Items         []LineItem
	DecidedBy     *uuid.UUID
	DecidedAt     *time.Time
	Reason        string
}

// NewInvoiceFromOrder copies an order's lines and total into a pending invoice
func NewInvoiceFromOrder(po *PurchaseOrder, createdBy uuid.UUID, issueDate time.Time) *Invoice {
	items := make([]LineItem, len(po.Items))
	for i, item := range po.Items {
		item.ID = uuid.New()
		items[i] = item
	}
	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(po.SupplierTenantID, createdBy),
		BuyerTenantID:       po.TenantID,
		POID:                po.ID,
		SupplierName:        po.SupplierName,
		Status:              InvoiceStatusPending,
		IssueDate:           issueDate,
		TotalAmount:         po.TotalAmount,
		Items:               items,
	}
	inv.InvoiceNumber = fmt.Sprintf("INV-%s", po.PONumber)
	return inv
}

// Approve moves a pending invoice to APPROVED
func (i *Invoice) Approve(actor uuid.UUID, reason string) (InvoiceStatus, error) {
	return i.decide(InvoiceStatusApproved, actor, strings.TrimSpace(reason))
}

// Reject moves a pending invoice to REJECTED. A reason is required.
func (i *Invoice) Reject(actor uuid.UUID, reason string) (InvoiceStatus, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return i.Status, shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	return i.decide(InvoiceStatusRejected, actor, reason)
}

func (i *Invoice) decide(to InvoiceStatus, actor uuid.UUID, reason string) (InvoiceStatus, error) {
	from := i.Status
	if err := ValidateTransition(from, to); err != nil {
		return from, err
	}
	now := time.Now()
	i.Status = to
	i.DecidedBy = &actor
	i.DecidedAt = &now
	i.Reason = reason
	i.UpdatedAt = now
	return from, nil
}
