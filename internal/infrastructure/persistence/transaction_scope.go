package persistence

import (
	"context"
	"database/sql"

	"github.com/erp/backoffice/internal/application/unitofwork"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/erp/backoffice/internal/domain/procurement"
	"github.com/erp/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db   *gorm.DB
	opts StoreOptions
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, opts StoreOptions) *GormTransactionScope {
	return &GormTransactionScope{db: db, opts: opts}
}

// Execute runs fn within a READ COMMITTED transaction. Payment and receiving
// serialize on the row locks they take, not on the isolation level.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos unitofwork.TransactionalRepositories) error) error {
	var txOpts []*sql.TxOptions
	if s.db.Dialector.Name() == "postgres" {
		txOpts = append(txOpts, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{db: tx, opts: s.opts})
	}, txOpts...)
}

// Repositories returns repositories on the plain connection pool
func (s *GormTransactionScope) Repositories() unitofwork.TransactionalRepositories {
	return &gormTransactionalRepositories{db: s.db, opts: s.opts}
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	db   *gorm.DB
	opts StoreOptions
}

func (r *gormTransactionalRepositories) Bills() finance.BillRepository {
	return NewGormBillRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) Accounts() finance.AccountRepository {
	return NewGormAccountRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) Contacts() finance.ContactRepository {
	return NewGormContactRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) Transactions() finance.TransactionRepository {
	return NewGormTransactionRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) Payslips() finance.PayslipRepository {
	return NewGormPayslipRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) PurchaseBills() procurement.PurchaseBillRepository {
	return NewGormPurchaseBillRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) InventoryItems() procurement.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) Stocks() procurement.InventoryStockRepository {
	return NewGormInventoryStockRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) PurchaseOrders() p2p.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) Invoices() p2p.InvoiceRepository {
	return NewGormInvoiceRepository(r.db, r.opts)
}

func (r *gormTransactionalRepositories) Reconciliations() p2p.ReconciliationRepository {
	return NewGormReconciliationRepository(r.db)
}

func (r *gormTransactionalRepositories) Audit() shared.AuditWriter {
	return NewGormAuditRepository(r.db)
}

// Ensure GormTransactionScope implements TransactionScope
var _ unitofwork.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ unitofwork.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
