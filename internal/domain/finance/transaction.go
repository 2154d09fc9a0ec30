package finance

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a money movement
type TransactionType string

const (
	TransactionTypeExpense TransactionType = "expense"
	TransactionTypeIncome  TransactionType = "income"
)

// Transaction is an immutable money movement. Once created it is never updated.
type Transaction struct {
	shared.BaseEntity
	TenantID       uuid.UUID
	Type           TransactionType
	Amount         decimal.Decimal
	Date           time.Time
	AccountID      uuid.UUID
	BillID         *uuid.UUID
	PurchaseBillID *uuid.UUID
	PayslipID      *uuid.UUID
	ContactID      *uuid.UUID
	ProjectID      *uuid.UUID
	Description    string
	Reference      string
	CreatedBy      uuid.UUID
}

// ExpenseParams describes a payment made against a payable document
type ExpenseParams struct {
	TenantID    uuid.UUID
	Document    DocumentRef
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Date        time.Time
	ContactID   *uuid.UUID
	ProjectID   *uuid.UUID
	Description string
	Reference   string
	CreatedBy   uuid.UUID
}

// NewExpense creates the transaction recording a payment
func NewExpense(p ExpenseParams) (*Transaction, error) {
	if !p.Amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Transaction amount must be positive")
	}
	if p.AccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if p.Date.IsZero() {
		p.Date = time.Now()
	}
	t := &Transaction{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    p.TenantID,
		Type:        TransactionTypeExpense,
		Amount:      p.Amount,
		Date:        p.Date,
		AccountID:   p.AccountID,
		ContactID:   p.ContactID,
		ProjectID:   p.ProjectID,
		Description: p.Description,
		Reference:   p.Reference,
		CreatedBy:   p.CreatedBy,
	}
	id := p.Document.ID
	switch p.Document.Kind {
	case DocumentBill:
		t.BillID = &id
	case DocumentPurchaseBill:
		t.PurchaseBillID = &id
	case DocumentPayslip:
		t.PayslipID = &id
	default:
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Unknown payable document kind")
	}
	return t, nil
}
