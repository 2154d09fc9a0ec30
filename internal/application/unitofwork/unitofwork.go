// Package unitofwork defines the transactional boundary the application services
// run their writes in.
package unitofwork

import (
	"context"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/erp/backoffice/internal/domain/procurement"
	"github.com/erp/backoffice/internal/domain/shared"
)

// TransactionalRepositories gives access to every repository bound to one
// database transaction, or to no transaction when obtained from Repositories.
type TransactionalRepositories interface {
	Bills() finance.BillRepository
	Accounts() finance.AccountRepository
	Contacts() finance.ContactRepository
	Transactions() finance.TransactionRepository
	Payslips() finance.PayslipRepository
	PurchaseBills() procurement.PurchaseBillRepository
	InventoryItems() procurement.InventoryItemRepository
	Stocks() procurement.InventoryStockRepository
	PurchaseOrders() p2p.PurchaseOrderRepository
	Invoices() p2p.InvoiceRepository
	Reconciliations() p2p.ReconciliationRepository
	Audit() shared.AuditWriter
}

// TransactionScope runs fn in one database transaction. If fn returns an error
// every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error

	// Repositories returns repositories outside any transaction, for reads
	Repositories() TransactionalRepositories
}
