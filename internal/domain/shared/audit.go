package shared

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Audit actions
const (
	AuditActionStatusChange  = "STATUS_CHANGE"
	AuditActionCreated       = "CREATED"
	AuditActionLinked        = "LINKED"
	AuditActionPaymentPosted = "PAYMENT_POSTED"
)

// AuditEntry is an append-only record of a state transition or balance change.
// Entries are never updated or deleted.
type AuditEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	EntityType  string
	EntityID    uuid.UUID
	Action      string
	FromStatus  string
	ToStatus    string
	ActorUserID uuid.UUID
	Reason      string
	Details     map[string]any
	CreatedAt   time.Time
}

// NewStatusAudit records a status transition
func NewStatusAudit(tenantID uuid.UUID, entityType string, entityID uuid.UUID, from, to string, actor uuid.UUID, reason string) AuditEntry {
	return AuditEntry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      AuditActionStatusChange,
		FromStatus:  from,
		ToStatus:    to,
		ActorUserID: actor,
		Reason:      reason,
		CreatedAt:   time.Now(),
	}
}

// NewActionAudit records a non-transition event such as a posted payment
func NewActionAudit(tenantID uuid.UUID, entityType string, entityID uuid.UUID, action string, actor uuid.UUID, details map[string]any) AuditEntry {
	return AuditEntry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		ActorUserID: actor,
		Details:     details,
		CreatedAt:   time.Now(),
	}
}

// DetailsJSON renders the details for storage
func (a AuditEntry) DetailsJSON() string {
	if len(a.Details) == 0 {
		return "{}"
	}
	b, err := json.Marshal(a.Details)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// AuditWriter appends audit entries. It has no update or delete operations.
type AuditWriter interface {
	Append(ctx context.Context, entries ...AuditEntry) error
}
