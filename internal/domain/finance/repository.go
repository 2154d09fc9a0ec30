package finance

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillFilter defines filtering options for bill queries
type BillFilter struct {
	shared.Filter
	Status    *PaymentStatus
	ContactID *uuid.UUID
}

// BillRepository defines the interface for bill persistence
type BillRepository interface {
	// FindByIDForTenant finds a live bill by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Bill, error)

	// FindByIDIncludingDeleted also returns soft-deleted bills
	FindByIDIncludingDeleted(ctx context.Context, tenantID, id uuid.UUID) (*Bill, error)

	// LockForPayment loads a bill under an exclusive, non-waiting row lock.
	// Must be called inside a transaction.
	LockForPayment(ctx context.Context, tenantID, id uuid.UUID) (*Bill, error)

	// FindBySourceInvoice finds the bill materialized from a P2P invoice
	FindBySourceInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*Bill, error)

	// FindAllForTenant lists live bills
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter BillFilter) ([]Bill, int64, error)

	// Create inserts a new bill with its items
	Create(ctx context.Context, bill *Bill) error

	// Save writes the bill with a version check when expected is set
	Save(ctx context.Context, bill *Bill, expected shared.ExpectedVersion) error

	// SoftDelete marks the bill deleted with a version check when expected is set
	SoftDelete(ctx context.Context, bill *Bill, expected shared.ExpectedVersion) error

	// Restore clears the soft-delete marker. It is the only write that resurrects a row.
	Restore(ctx context.Context, bill *Bill, expected shared.ExpectedVersion) error
}

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account, expected shared.ExpectedVersion) error

	// ApplyBalanceDelta adds delta to the balance in a single conditional statement
	ApplyBalanceDelta(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) error
}

// ContactRepository defines the interface for contact persistence
type ContactRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Contact, error)
	FindVendorByLinkedTenant(ctx context.Context, tenantID, linkedTenantID uuid.UUID) (*Contact, error)
	FindVendorByName(ctx context.Context, tenantID uuid.UUID, name string) (*Contact, error)
	Create(ctx context.Context, contact *Contact) error
}

// TransactionRepository is append-only: transactions are never updated or deleted
type TransactionRepository interface {
	Create(ctx context.Context, txs ...*Transaction) error
	FindByDocument(ctx context.Context, tenantID uuid.UUID, doc DocumentRef) ([]Transaction, error)

	// SumByDocument returns the authoritative paid total of a document
	SumByDocument(ctx context.Context, tenantID uuid.UUID, doc DocumentRef) (decimal.Decimal, error)
}

// PayslipRepository defines the interface for payslip persistence
type PayslipRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payslip, error)
	LockForPayment(ctx context.Context, tenantID, id uuid.UUID) (*Payslip, error)
	Create(ctx context.Context, payslip *Payslip) error
	Save(ctx context.Context, payslip *Payslip, expected shared.ExpectedVersion) error
}
