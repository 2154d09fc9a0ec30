package finance

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillItem is a line of a bill
type BillItem struct {
	ID          uuid.UUID
	BillID      uuid.UUID
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// NewBillItem creates a bill line with lineTotal = quantity x unitPrice
func NewBillItem(description string, quantity, unitPrice decimal.Decimal) (BillItem, error) {
	if !quantity.IsPositive() {
		return BillItem{}, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return BillItem{}, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	return BillItem{
		ID:          uuid.New(),
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   quantity.Mul(unitPrice).Round(2),
	}, nil
}

// Bill is a payable obligation of the tenant towards a contact
type Bill struct {
	shared.TenantAggregateRoot
	BillNumber      string
	ContactID       uuid.UUID
	ProjectID       *uuid.UUID
	SourceInvoiceID *uuid.UUID
	IssueDate       time.Time
	DueDate         time.Time
	TotalAmount     decimal.Decimal
	PaidAmount      decimal.Decimal
	Status          PaymentStatus
	Notes           string
	Items           []BillItem
}

// NewBillParams holds the inputs for NewBill
type NewBillParams struct {
	TenantID        uuid.UUID
	CreatedBy       uuid.UUID
	BillNumber      string
	ContactID       uuid.UUID
	ProjectID       *uuid.UUID
	SourceInvoiceID *uuid.UUID
	IssueDate       time.Time
	DueDate         time.Time
	TotalAmount     decimal.Decimal
	Notes           string
	Items           []BillItem
	// Epsilon defaults to DefaultEpsilon
	Epsilon decimal.Decimal
}

// NewBill creates a bill with nothing paid. When items are given the total is
// their sum. A zero total is already settled and starts as Paid.
func NewBill(p NewBillParams) (*Bill, error) {
	number := strings.TrimSpace(p.BillNumber)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number cannot exceed 50 characters")
	}
	if p.ContactID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Contact ID cannot be empty")
	}
	if p.IssueDate.IsZero() {
		p.IssueDate = time.Now()
	}
	if p.DueDate.IsZero() {
		p.DueDate = p.IssueDate
	}
	if p.DueDate.Before(p.IssueDate) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}

	total := p.TotalAmount
	if len(p.Items) > 0 {
		total = SumLineTotals(p.Items)
	}
	if total.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Total amount cannot be negative")
	}
	eps := p.Epsilon
	if !eps.IsPositive() {
		eps = DefaultEpsilon
	}

	b := &Bill{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(p.TenantID, p.CreatedBy),
		BillNumber:          number,
		ContactID:           p.ContactID,
		ProjectID:           p.ProjectID,
		SourceInvoiceID:     p.SourceInvoiceID,
		IssueDate:           p.IssueDate,
		DueDate:             p.DueDate,
		TotalAmount:         total,
		PaidAmount:          decimal.Zero,
		Status:              DerivePaymentStatus(total, decimal.Zero, eps),
		Notes:               p.Notes,
	}
	for _, item := range p.Items {
		item.BillID = b.ID
		b.Items = append(b.Items, item)
	}
	return b, nil
}

// SumLineTotals adds up line totals
func SumLineTotals(items []BillItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// EnsureMutable rejects edits and deletes of a settled bill
func (b *Bill) EnsureMutable() error {
	if b.Status == PaymentStatusPaid {
		return &shared.ImmutableRecordError{Entity: "Bill", ID: b.ID, Status: string(b.Status)}
	}
	return nil
}

// BillChanges lists the editable fields of a bill. Nil fields are left unchanged.
type BillChanges struct {
	BillNumber  *string
	ContactID   *uuid.UUID
	ProjectID   *uuid.UUID
	IssueDate   *time.Time
	DueDate     *time.Time
	TotalAmount *decimal.Decimal
	Notes       *string
}

// Apply edits the bill. The total cannot fall below what was already paid, and a
// bill built from line items keeps the sum of its lines.
func (b *Bill) Apply(c BillChanges, eps decimal.Decimal) error {
	if err := b.EnsureMutable(); err != nil {
		return err
	}
	if c.BillNumber != nil {
		number := strings.TrimSpace(*c.BillNumber)
		if number == "" {
			return shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number cannot be empty")
		}
		b.BillNumber = number
	}
	if c.ContactID != nil {
		if *c.ContactID == uuid.Nil {
			return shared.NewDomainError("INVALID_CONTACT", "Contact ID cannot be empty")
		}
		b.ContactID = *c.ContactID
	}
	if c.ProjectID != nil {
		b.ProjectID = c.ProjectID
	}
	if c.IssueDate != nil {
		b.IssueDate = *c.IssueDate
	}
	if c.DueDate != nil {
		b.DueDate = *c.DueDate
	}
	if b.DueDate.Before(b.IssueDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	if c.TotalAmount != nil {
		if len(b.Items) > 0 && !c.TotalAmount.Equal(SumLineTotals(b.Items)) {
			return shared.NewDomainError("INVALID_AMOUNT", "Total amount of an itemized bill is the sum of its lines")
		}
		if c.TotalAmount.LessThan(b.PaidAmount) {
			return shared.NewDomainError("INVALID_AMOUNT", "Total amount cannot be lower than the paid amount")
		}
		b.TotalAmount = *c.TotalAmount
		b.Status = DerivePaymentStatus(b.TotalAmount, b.PaidAmount, eps)
	}
	if c.Notes != nil {
		b.Notes = *c.Notes
	}
	b.Touch()
	return nil
}

// ApplyPaidTotal sets the authoritative paid amount and re-derives the status.
// It returns the previous status.
func (b *Bill) ApplyPaidTotal(paid, eps decimal.Decimal) PaymentStatus {
	prev := b.Status
	b.PaidAmount = paid
	b.Status = DerivePaymentStatus(b.TotalAmount, paid, eps)
	b.Touch()
	return prev
}

// MarkDeleted soft-deletes the bill
func (b *Bill) MarkDeleted() error {
	if err := b.EnsureMutable(); err != nil {
		return err
	}
	now := time.Now()
	b.DeletedAt = &now
	return nil
}

// Restore clears the soft-delete marker
func (b *Bill) Restore() {
	b.DeletedAt = nil
	b.Touch()
}

// RemainingBalance returns what is still owed
func (b *Bill) RemainingBalance() decimal.Decimal {
	return RemainingBalance(b.TotalAmount, b.PaidAmount)
}

// IsPaid returns true if the bill is settled
func (b *Bill) IsPaid() bool {
	return b.Status == PaymentStatusPaid
}

// IsOverdue returns true if the bill is past due and not settled
func (b *Bill) IsOverdue(now time.Time) bool {
	return !b.IsPaid() && now.After(b.DueDate)
}
