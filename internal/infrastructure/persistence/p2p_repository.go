package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements p2p.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	store *VersionedStore
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB, opts StoreOptions) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{store: NewVersionedStore(db, opts)}
}

// FindByIDForTenant finds an order owned by the buyer tenant
func (r *GormPurchaseOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*p2p.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.store.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, "purchase order")
	}
	return model.ToDomain()
}

// LockForSupplier locks an order addressed to the supplier tenant.
// An order of another supplier is reported as not found.
func (r *GormPurchaseOrderRepository) LockForSupplier(ctx context.Context, supplierTenantID, id uuid.UUID) (*p2p.PurchaseOrder, error) {
	locked, err := r.store.Locked(ctx)
	if err != nil {
		return nil, classifyError(err, "purchase order")
	}
	var model models.PurchaseOrderModel
	if err := locked.Where("supplier_tenant_id = ? AND id = ?", supplierTenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, "purchase order")
	}
	return model.ToDomain()
}

// Create inserts a new order at version 1
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, po *p2p.PurchaseOrder) error {
	po.Version = shared.VersionOf(1)
	model, err := models.PurchaseOrderModelFromDomain(po)
	if err != nil {
		return err
	}
	return r.store.Insert(ctx, model.TableName(), model)
}

// Save writes the order through the versioned store
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, po *p2p.PurchaseOrder, expected shared.ExpectedVersion) error {
	model, err := models.PurchaseOrderModelFromDomain(po)
	if err != nil {
		return err
	}
	v, err := r.store.Upsert(ctx, model, expected)
	if err != nil {
		return err
	}
	po.Version = v
	return nil
}

// GormInvoiceRepository implements p2p.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	store *VersionedStore
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB, opts StoreOptions) *GormInvoiceRepository {
	return &GormInvoiceRepository{store: NewVersionedStore(db, opts)}
}

// FindByIDForTenant finds an invoice issued by the supplier tenant
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*p2p.Invoice, error) {
	return r.first(r.store.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindByIDForBuyer finds an invoice addressed to the buyer tenant
func (r *GormInvoiceRepository) FindByIDForBuyer(ctx context.Context, buyerTenantID, id uuid.UUID) (*p2p.Invoice, error) {
	return r.first(r.store.DB(ctx).Where("buyer_tenant_id = ? AND id = ?", buyerTenantID, id))
}

// LockForBuyer locks an invoice addressed to the buyer tenant
func (r *GormInvoiceRepository) LockForBuyer(ctx context.Context, buyerTenantID, id uuid.UUID) (*p2p.Invoice, error) {
	locked, err := r.store.Locked(ctx)
	if err != nil {
		return nil, classifyError(err, "invoice")
	}
	return r.first(locked.Where("buyer_tenant_id = ? AND id = ?", buyerTenantID, id))
}

// Create inserts a new invoice at version 1. The po_id unique index rejects a
// second invoice for the same order.
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *p2p.Invoice) error {
	inv.Version = shared.VersionOf(1)
	model, err := models.P2PInvoiceModelFromDomain(inv)
	if err != nil {
		return err
	}
	return r.store.Insert(ctx, model.TableName(), model)
}

// Save writes the invoice through the versioned store
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *p2p.Invoice, expected shared.ExpectedVersion) error {
	model, err := models.P2PInvoiceModelFromDomain(inv)
	if err != nil {
		return err
	}
	v, err := r.store.Upsert(ctx, model, expected)
	if err != nil {
		return err
	}
	inv.Version = v
	return nil
}

func (r *GormInvoiceRepository) first(query *gorm.DB) (*p2p.Invoice, error) {
	var model models.P2PInvoiceModel
	if err := query.First(&model).Error; err != nil {
		return nil, classifyError(err, "invoice")
	}
	return model.ToDomain()
}

// GormReconciliationRepository implements p2p.ReconciliationRepository using GORM
type GormReconciliationRepository struct {
	db *gorm.DB
}

// NewGormReconciliationRepository creates a new GormReconciliationRepository
func NewGormReconciliationRepository(db *gorm.DB) *GormReconciliationRepository {
	return &GormReconciliationRepository{db: db}
}

// Create inserts a reconciliation record
func (r *GormReconciliationRepository) Create(ctx context.Context, rec *p2p.BillReconciliation) error {
	return classifyError(r.db.WithContext(ctx).Create(models.BillReconciliationModelFromDomain(rec)).Error, "reconciliation")
}

// Update writes the record's progress
func (r *GormReconciliationRepository) Update(ctx context.Context, rec *p2p.BillReconciliation) error {
	res := r.db.WithContext(ctx).Model(&models.BillReconciliationModel{}).
		Where("id = ? AND tenant_id = ?", rec.ID, rec.TenantID).
		Updates(map[string]any{
			"status":      string(rec.Status),
			"attempts":    rec.Attempts,
			"last_error":  rec.LastError,
			"bill_id":     rec.BillID,
			"resolved_at": rec.ResolvedAt,
			"updated_at":  rec.UpdatedAt,
		})
	if res.Error != nil {
		return classifyError(res.Error, "reconciliation")
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindPendingByInvoice returns the open record of an invoice
func (r *GormReconciliationRepository) FindPendingByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*p2p.BillReconciliation, error) {
	var model models.BillReconciliationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ? AND status = ?", tenantID, invoiceID, string(p2p.ReconciliationPending)).
		First(&model).Error; err != nil {
		return nil, classifyError(err, "reconciliation")
	}
	return model.ToDomain(), nil
}

// FindPending returns pending records of all tenants, oldest first. It is only
// used by the reconciliation worker, which acts for every tenant.
func (r *GormReconciliationRepository) FindPending(ctx context.Context, limit int) ([]p2p.BillReconciliation, error) {
	var rows []models.BillReconciliationModel
	query := r.db.WithContext(ctx).
		Where("status = ?", string(p2p.ReconciliationPending)).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]p2p.BillReconciliation, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// GormAuditRepository appends audit entries. It has no update or delete methods.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts the entries
func (r *GormAuditRepository) Append(ctx context.Context, entries ...shared.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.AuditEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.AuditEntryModelFromDomain(e)
	}
	return classifyError(r.db.WithContext(ctx).Create(rows).Error, "audit")
}

// FindByEntity lists the audit trail of an entity, oldest first
func (r *GormAuditRepository) FindByEntity(ctx context.Context, tenantID uuid.UUID, entityType string, entityID uuid.UUID) ([]models.AuditEntryModel, error) {
	var rows []models.AuditEntryModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tenantID, entityType, entityID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Ensure the repositories implement the domain interfaces
var (
	_ p2p.PurchaseOrderRepository  = (*GormPurchaseOrderRepository)(nil)
	_ p2p.InvoiceRepository        = (*GormInvoiceRepository)(nil)
	_ p2p.ReconciliationRepository = (*GormReconciliationRepository)(nil)
	_ shared.AuditWriter           = (*GormAuditRepository)(nil)
)
