package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditEntryModel is an append-only audit row. It is never updated or deleted.
type AuditEntryModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityType  string    `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:1"`
	EntityID    uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entity,priority:2"`
	Action      string    `gorm:"type:varchar(30);not null"`
	FromStatus  string    `gorm:"type:varchar(30)"`
	ToStatus    string    `gorm:"type:varchar(30)"`
	ActorUserID uuid.UUID `gorm:"type:uuid"`
	Reason      string    `gorm:"type:varchar(500)"`
	Details     string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

// OptionalColumns lists columns that older schemas may lack
func (AuditEntryModel) OptionalColumns() []string {
	return []string{"details"}
}

// AuditEntryModelFromDomain creates a persistence model from an audit entry
func AuditEntryModelFromDomain(e shared.AuditEntry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:          e.ID,
		TenantID:    e.TenantID,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Action:      e.Action,
		FromStatus:  e.FromStatus,
		ToStatus:    e.ToStatus,
		ActorUserID: e.ActorUserID,
		Reason:      e.Reason,
		Details:     e.DetailsJSON(),
		CreatedAt:   e.CreatedAt,
	}
}
