package dto

import (
	"time"

	p2papp "github.com/erp/backoffice/internal/application/p2p"
	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FlipRequest is the optional body of POST /purchase-orders/:id/flip
type FlipRequest struct {
	IssueDate *time.Time `json:"issue_date"`
}

// DecisionRequest is the body of the approve and reject endpoints
type DecisionRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// InvoiceResponse is a P2P invoice as returned by the API
type InvoiceResponse struct {
	ID               uuid.UUID       `json:"id"`
	SupplierTenantID uuid.UUID       `json:"supplier_tenant_id"`
	BuyerTenantID    uuid.UUID       `json:"buyer_tenant_id"`
	POID             uuid.UUID       `json:"po_id"`
	SupplierName     string          `json:"supplier_name"`
	InvoiceNumber    string          `json:"invoice_number"`
	Status           string          `json:"status"`
	IssueDate        time.Time       `json:"issue_date"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Items            []p2p.LineItem  `json:"items"`
	DecidedBy        *uuid.UUID      `json:"decided_by,omitempty"`
	DecidedAt        *time.Time      `json:"decided_at,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	Version          *int            `json:"version"`
}

// ToInvoiceResponse maps an invoice
func ToInvoiceResponse(inv *p2p.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:               inv.ID,
		SupplierTenantID: inv.TenantID,
		BuyerTenantID:    inv.BuyerTenantID,
		POID:             inv.POID,
		SupplierName:     inv.SupplierName,
		InvoiceNumber:    inv.InvoiceNumber,
		Status:           string(inv.Status),
		IssueDate:        inv.IssueDate,
		TotalAmount:      inv.TotalAmount,
		Items:            inv.Items,
		DecidedBy:        inv.DecidedBy,
		DecidedAt:        inv.DecidedAt,
		Reason:           inv.Reason,
		Version:          inv.Version.Ptr(),
	}
}

// ApprovalResponse reports both phases of an approval
type ApprovalResponse struct {
	Invoice          InvoiceResponse `json:"invoice"`
	Approved         bool            `json:"approved"`
	BillCreated      bool            `json:"bill_created"`
	BillID           *uuid.UUID      `json:"bill_id,omitempty"`
	ReconciliationID *uuid.UUID      `json:"reconciliation_id,omitempty"`
}

// ToApprovalResponse maps an approval result
func ToApprovalResponse(r *p2papp.ApprovalResult) ApprovalResponse {
	resp := ApprovalResponse{
		Invoice:          ToInvoiceResponse(r.Invoice),
		Approved:         r.Approved,
		BillCreated:      r.BillCreated,
		ReconciliationID: r.ReconciliationID,
	}
	if r.Bill != nil {
		id := r.Bill.ID
		resp.BillID = &id
	}
	return resp
}
