package persistence

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTransactionRepository implements finance.TransactionRepository using GORM.
// It only inserts and reads; transactions are immutable.
type GormTransactionRepository struct {
	store *VersionedStore
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB, opts StoreOptions) *GormTransactionRepository {
	return &GormTransactionRepository{store: NewVersionedStore(db, opts)}
}

// Create inserts one or more transactions
func (r *GormTransactionRepository) Create(ctx context.Context, txs ...*finance.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([]*models.TransactionModel, len(txs))
	for i, t := range txs {
		rows[i] = models.TransactionModelFromDomain(t)
	}
	return r.store.Insert(ctx, models.TransactionModel{}.TableName(), rows)
}

// FindByDocument lists the transactions settling a document, oldest first
func (r *GormTransactionRepository) FindByDocument(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) ([]finance.Transaction, error) {
	column, err := documentColumn(doc.Kind)
	if err != nil {
		return nil, err
	}
	var rows []models.TransactionModel
	if err := r.store.DB(ctx).
		Where("tenant_id = ? AND "+column+" = ?", tenantID, doc.ID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]finance.Transaction, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// SumByDocument returns the sum of all transactions referencing the document
func (r *GormTransactionRepository) SumByDocument(ctx context.Context, tenantID uuid.UUID, doc finance.DocumentRef) (decimal.Decimal, error) {
	column, err := documentColumn(doc.Kind)
	if err != nil {
		return decimal.Zero, err
	}
	var sum decimal.NullDecimal
	err = r.store.DB(ctx).Model(&models.TransactionModel{}).
		Select("SUM(amount)").
		Where("tenant_id = ? AND "+column+" = ?", tenantID, doc.ID).
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, classifyError(err, "transaction")
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	// sqlite sums decimals as floats
	return sum.Decimal.Round(2), nil
}

func documentColumn(kind finance.DocumentKind) (string, error) {
	switch kind {
	case finance.DocumentBill:
		return "bill_id", nil
	case finance.DocumentPurchaseBill:
		return "purchase_bill_id", nil
	case finance.DocumentPayslip:
		return "payslip_id", nil
	}
	return "", fmt.Errorf("document kind %q: %w", kind, shared.ErrInvalidInput)
}

// GormPayslipRepository implements finance.PayslipRepository using GORM
type GormPayslipRepository struct {
	store *VersionedStore
}

// NewGormPayslipRepository creates a new GormPayslipRepository
func NewGormPayslipRepository(db *gorm.DB, opts StoreOptions) *GormPayslipRepository {
	return &GormPayslipRepository{store: NewVersionedStore(db, opts)}
}

// FindByIDForTenant finds a live payslip by ID within a tenant
func (r *GormPayslipRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payslip, error) {
	var model models.PayslipModel
	if err := r.store.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, "payslip")
	}
	return model.ToDomain()
}

// LockForPayment loads a payslip under FOR UPDATE NOWAIT
func (r *GormPayslipRepository) LockForPayment(ctx context.Context, tenantID, id uuid.UUID) (*finance.Payslip, error) {
	locked, err := r.store.Locked(ctx)
	if err != nil {
		return nil, classifyError(err, "payslip")
	}
	var model models.PayslipModel
	if err := locked.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, "payslip")
	}
	return model.ToDomain()
}

// Create inserts a new payslip at version 1
func (r *GormPayslipRepository) Create(ctx context.Context, payslip *finance.Payslip) error {
	payslip.Version = shared.VersionOf(1)
	model, err := models.PayslipModelFromDomain(payslip)
	if err != nil {
		return err
	}
	return r.store.Insert(ctx, model.TableName(), model)
}

// Save writes the payslip through the versioned store
func (r *GormPayslipRepository) Save(ctx context.Context, payslip *finance.Payslip, expected shared.ExpectedVersion) error {
	model, err := models.PayslipModelFromDomain(payslip)
	if err != nil {
		return err
	}
	v, err := r.store.Upsert(ctx, model, expected)
	if err != nil {
		return err
	}
	payslip.Version = v
	return nil
}

// Ensure the repositories implement the domain interfaces
var (
	_ finance.TransactionRepository = (*GormTransactionRepository)(nil)
	_ finance.PayslipRepository     = (*GormPayslipRepository)(nil)
)
