package p2p

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationStatus tracks a pending bill synthesis
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "PENDING"
	ReconciliationResolved ReconciliationStatus = "RESOLVED"
	ReconciliationFailed   ReconciliationStatus = "FAILED"
)

// BillReconciliation is written when an approved invoice could not be turned into a
// bill. A background process retries the synthesis without re-running the approval.
type BillReconciliation struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	InvoiceID  uuid.UUID
	Status     ReconciliationStatus
	Attempts   int
	LastError  string
	BillID     *uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// NewBillReconciliation records the first failed attempt
func NewBillReconciliation(tenantID, invoiceID uuid.UUID, cause error) *BillReconciliation {
	now := time.Now()
	r := &BillReconciliation{
		ID:        uuid.New(),
		TenantID:  tenantID,
		InvoiceID: invoiceID,
		Status:    ReconciliationPending,
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cause != nil {
		r.LastError = cause.Error()
	}
	return r
}

// Resolve marks the record done
func (r *BillReconciliation) Resolve(billID uuid.UUID) {
	now := time.Now()
	r.Status = ReconciliationResolved
	r.BillID = &billID
	r.ResolvedAt = &now
	r.UpdatedAt = now
}

// RecordFailure counts a failed retry; after maxAttempts the record is given up
func (r *BillReconciliation) RecordFailure(cause error, maxAttempts int) {
	r.Attempts++
	r.LastError = cause.Error()
	r.UpdatedAt = time.Now()
	if maxAttempts > 0 && r.Attempts >= maxAttempts {
		r.Status = ReconciliationFailed
	}
}
