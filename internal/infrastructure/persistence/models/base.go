package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VersionedTenantModel provides the common persistence fields of tenant-scoped
// mutable rows. Version is nullable: rows written before versioning have none.
type VersionedTenantModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Version   *int           `gorm:"column:version"`
	CreatedBy *uuid.UUID     `gorm:"type:uuid"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Key returns the row id and its owning tenant
func (m *VersionedTenantModel) Key() (uuid.UUID, uuid.UUID) {
	return m.ID, m.TenantID
}

// IdentityColumns are written once, on insert
func (m *VersionedTenantModel) IdentityColumns() map[string]any {
	return map[string]any{
		"id":         m.ID,
		"tenant_id":  m.TenantID,
		"created_by": m.CreatedBy,
		"created_at": m.CreatedAt,
	}
}

// SetVersion records the version assigned by the store
func (m *VersionedTenantModel) SetVersion(v shared.NullableVersion) {
	m.Version = v.Ptr()
}

// FromDomainTenantAggregateRoot populates the base fields from a domain aggregate
func (m *VersionedTenantModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.ID = t.ID
	m.TenantID = t.TenantID
	m.Version = t.Version.Ptr()
	m.CreatedBy = t.CreatedBy
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
	if t.DeletedAt != nil {
		m.DeletedAt = gorm.DeletedAt{Time: *t.DeletedAt, Valid: true}
	}
}

// PopulateTenantAggregateRoot populates a domain aggregate from the base fields
func (m *VersionedTenantModel) PopulateTenantAggregateRoot(t *shared.TenantAggregateRoot) {
	t.ID = m.ID
	t.CreatedAt = m.CreatedAt
	t.UpdatedAt = m.UpdatedAt
	t.Version = versionFromPtr(m.Version)
	t.TenantID = m.TenantID
	t.CreatedBy = m.CreatedBy
	if m.DeletedAt.Valid {
		deletedAt := m.DeletedAt.Time
		t.DeletedAt = &deletedAt
	}
}

func versionFromPtr(v *int) shared.NullableVersion {
	if v == nil {
		return shared.NoVersion()
	}
	return shared.VersionOf(*v)
}

// All returns every model, in dependency order, for AutoMigrate and the schema check
func All() []any {
	return []any{
		&AccountModel{},
		&ContactModel{},
		&BillModel{},
		&BillItemModel{},
		&PayslipModel{},
		&TransactionModel{},
		&InventoryItemModel{},
		&PurchaseBillModel{},
		&PurchaseBillItemModel{},
		&InventoryStockModel{},
		&PurchaseOrderModel{},
		&P2PInvoiceModel{},
		&BillReconciliationModel{},
		&AuditEntryModel{},
	}
}
