package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBillRepository implements finance.BillRepository using GORM
type GormBillRepository struct {
	store *VersionedStore
}

// NewGormBillRepository creates a new GormBillRepository
func NewGormBillRepository(db *gorm.DB, opts StoreOptions) *GormBillRepository {
	return &GormBillRepository{store: NewVersionedStore(db, opts)}
}

// FindByIDForTenant finds a live bill by ID within a tenant
func (r *GormBillRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Bill, error) {
	return r.find(r.store.DB(ctx), tenantID, id)
}

// FindByIDIncludingDeleted also returns soft-deleted bills
func (r *GormBillRepository) FindByIDIncludingDeleted(ctx context.Context, tenantID, id uuid.UUID) (*finance.Bill, error) {
	return r.find(r.store.DB(ctx).Unscoped(), tenantID, id)
}

// LockForPayment loads a bill under FOR UPDATE NOWAIT
func (r *GormBillRepository) LockForPayment(ctx context.Context, tenantID, id uuid.UUID) (*finance.Bill, error) {
	locked, err := r.store.Locked(ctx)
	if err != nil {
		return nil, classifyError(err, "bill")
	}
	var model models.BillModel
	if err := locked.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, "bill")
	}
	return model.ToDomain(), nil
}

// FindBySourceInvoice finds the bill materialized from a P2P invoice
func (r *GormBillRepository) FindBySourceInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*finance.Bill, error) {
	var model models.BillModel
	err := r.store.DB(ctx).Unscoped().
		Preload("Items").
		Where("tenant_id = ? AND source_invoice_id = ?", tenantID, invoiceID).
		First(&model).Error
	if err != nil {
		return nil, classifyError(err, "bill")
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists live bills with pagination
func (r *GormBillRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter finance.BillFilter) ([]finance.Bill, int64, error) {
	query := r.store.DB(ctx).Model(&models.BillModel{}).Where("tenant_id = ?", tenantID)
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.ContactID != nil {
		query = query.Where("contact_id = ?", *filter.ContactID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, billOrderColumns, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.BillModel
	if err := query.Preload("Items").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	bills := make([]finance.Bill, len(rows))
	for i := range rows {
		bills[i] = *rows[i].ToDomain()
	}
	return bills, total, nil
}

// Create inserts a new bill with its items at version 1
func (r *GormBillRepository) Create(ctx context.Context, bill *finance.Bill) error {
	bill.Version = shared.VersionOf(1)
	model := models.BillModelFromDomain(bill)
	return r.store.Insert(ctx, model.TableName(), model)
}

// Save writes the bill's fields through the versioned store
func (r *GormBillRepository) Save(ctx context.Context, bill *finance.Bill, expected shared.ExpectedVersion) error {
	return r.upsert(ctx, bill, expected)
}

// SoftDelete marks the bill deleted
func (r *GormBillRepository) SoftDelete(ctx context.Context, bill *finance.Bill, expected shared.ExpectedVersion) error {
	if bill.DeletedAt == nil {
		return shared.NewDomainError("INVALID_STATE", "Bill must be marked deleted first")
	}
	return r.upsert(ctx, bill, expected, WithSoftDelete(*bill.DeletedAt))
}

// Restore clears deleted_at. It is the only write that resurrects a bill.
func (r *GormBillRepository) Restore(ctx context.Context, bill *finance.Bill, expected shared.ExpectedVersion) error {
	return r.upsert(ctx, bill, expected, WithResurrect())
}

func (r *GormBillRepository) upsert(ctx context.Context, bill *finance.Bill, expected shared.ExpectedVersion, opts ...UpsertOption) error {
	v, err := r.store.Upsert(ctx, models.BillModelFromDomain(bill), expected, opts...)
	if err != nil {
		return err
	}
	bill.Version = v
	return nil
}

func (r *GormBillRepository) find(db *gorm.DB, tenantID, id uuid.UUID) (*finance.Bill, error) {
	var model models.BillModel
	if err := db.Preload("Items").Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GormAccountRepository implements finance.AccountRepository using GORM
type GormAccountRepository struct {
	store *VersionedStore
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB, opts StoreOptions) *GormAccountRepository {
	return &GormAccountRepository{store: NewVersionedStore(db, opts)}
}

// FindByIDForTenant finds a live account by ID within a tenant
func (r *GormAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Account, error) {
	var model models.AccountModel
	if err := r.store.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error; err != nil {
		return nil, classifyError(err, "account")
	}
	return model.ToDomain(), nil
}

// Create inserts a new account at version 1
func (r *GormAccountRepository) Create(ctx context.Context, account *finance.Account) error {
	account.Version = shared.VersionOf(1)
	model := models.AccountModelFromDomain(account)
	return r.store.Insert(ctx, model.TableName(), model)
}

// Save writes the account's descriptive fields through the versioned store
func (r *GormAccountRepository) Save(ctx context.Context, account *finance.Account, expected shared.ExpectedVersion) error {
	v, err := r.store.Upsert(ctx, models.AccountModelFromDomain(account), expected)
	if err != nil {
		return err
	}
	account.Version = v
	return nil
}

// ApplyBalanceDelta adds delta to the balance in one statement and bumps the version
func (r *GormAccountRepository) ApplyBalanceDelta(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) error {
	res := r.store.DB(ctx).Model(&models.AccountModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]any{
			"balance": gorm.Expr("balance + ?", delta),
			"version": gorm.Expr("COALESCE(version, 0) + 1"),
		})
	if res.Error != nil {
		return classifyError(res.Error, "account")
	}
	if res.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GormContactRepository implements finance.ContactRepository using GORM
type GormContactRepository struct {
	store *VersionedStore
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB, opts StoreOptions) *GormContactRepository {
	return &GormContactRepository{store: NewVersionedStore(db, opts)}
}

// FindByIDForTenant finds a live contact by ID within a tenant
func (r *GormContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Contact, error) {
	return r.first(r.store.DB(ctx).Where("tenant_id = ? AND id = ?", tenantID, id))
}

// FindVendorByLinkedTenant finds the vendor contact that represents a supplier tenant
func (r *GormContactRepository) FindVendorByLinkedTenant(ctx context.Context, tenantID, linkedTenantID uuid.UUID) (*finance.Contact, error) {
	return r.first(r.store.DB(ctx).
		Where("tenant_id = ? AND type = ? AND linked_tenant_id = ?", tenantID, string(finance.ContactTypeVendor), linkedTenantID).
		Order("created_at ASC"))
}

// FindVendorByName finds a vendor contact by case-insensitive name
func (r *GormContactRepository) FindVendorByName(ctx context.Context, tenantID uuid.UUID, name string) (*finance.Contact, error) {
	return r.first(r.store.DB(ctx).
		Where("tenant_id = ? AND type = ? AND LOWER(name) = ?", tenantID, string(finance.ContactTypeVendor), strings.ToLower(strings.TrimSpace(name))).
		Order("created_at ASC"))
}

// Create inserts a new contact at version 1
func (r *GormContactRepository) Create(ctx context.Context, contact *finance.Contact) error {
	contact.Version = shared.VersionOf(1)
	model := models.ContactModelFromDomain(contact)
	return r.store.Insert(ctx, model.TableName(), model)
}

func (r *GormContactRepository) first(query *gorm.DB) (*finance.Contact, error) {
	var model models.ContactModel
	if err := query.First(&model).Error; err != nil {
		return nil, classifyError(err, "contact")
	}
	return model.ToDomain(), nil
}

// Ensure the repositories implement the domain interfaces
var (
	_ finance.BillRepository    = (*GormBillRepository)(nil)
	_ finance.AccountRepository = (*GormAccountRepository)(nil)
	_ finance.ContactRepository = (*GormContactRepository)(nil)
)
