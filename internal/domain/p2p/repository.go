package p2p

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*PurchaseOrder, error)

	// LockForSupplier loads an order addressed to the supplier tenant under an
	// exclusive, non-waiting row lock
	LockForSupplier(ctx context.Context, supplierTenantID, id uuid.UUID) (*PurchaseOrder, error)

	Create(ctx context.Context, po *PurchaseOrder) error
	Save(ctx context.Context, po *PurchaseOrder, expected shared.ExpectedVersion) error
}

// InvoiceRepository defines the interface for P2P invoice persistence
type InvoiceRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByIDForBuyer loads an invoice addressed to the buyer tenant
	FindByIDForBuyer(ctx context.Context, buyerTenantID, id uuid.UUID) (*Invoice, error)

	// LockForBuyer loads an invoice addressed to the buyer tenant under an
	// exclusive, non-waiting row lock
	LockForBuyer(ctx context.Context, buyerTenantID, id uuid.UUID) (*Invoice, error)

	Create(ctx context.Context, inv *Invoice) error
	Save(ctx context.Context, inv *Invoice, expected shared.ExpectedVersion) error
}

// ReconciliationRepository persists bill reconciliation records
type ReconciliationRepository interface {
	Create(ctx context.Context, r *BillReconciliation) error
	Update(ctx context.Context, r *BillReconciliation) error
	FindPendingByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*BillReconciliation, error)

	// FindPending returns pending records across tenants, oldest first
	FindPending(ctx context.Context, limit int) ([]BillReconciliation, error)
}
