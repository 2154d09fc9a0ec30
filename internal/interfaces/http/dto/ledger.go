package dto

import (
	"time"

	"github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest is the body of POST /accounts
type CreateAccountRequest struct {
	Name           string          `json:"name" binding:"required,max=200"`
	Type           string          `json:"type" binding:"required,oneof=bank cash credit_card"`
	Currency       string          `json:"currency" binding:"required,len=3"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// UpdateAccountRequest is the body of PUT /accounts/:id
type UpdateAccountRequest struct {
	Version  *int   `json:"version"`
	Name     string `json:"name" binding:"required,max=200"`
	Type     string `json:"type" binding:"required,oneof=bank cash credit_card"`
	Currency string `json:"currency" binding:"required,len=3"`
}

// AccountResponse is an account as returned by the API
type AccountResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Version   *int            `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ToAccountResponse maps an account
func ToAccountResponse(a *finance.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Currency:  a.Currency,
		Balance:   a.Balance,
		Version:   a.Version.Ptr(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// BillItemRequest is one line of a new bill
type BillItemRequest struct {
	Description string          `json:"description" binding:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateBillRequest is the body of POST /bills
type CreateBillRequest struct {
	BillNumber  string            `json:"bill_number" binding:"required,max=50"`
	ContactID   uuid.UUID         `json:"contact_id" binding:"required"`
	ProjectID   *uuid.UUID        `json:"project_id"`
	IssueDate   time.Time         `json:"issue_date" binding:"required"`
	DueDate     time.Time         `json:"due_date" binding:"required"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Notes       string            `json:"notes" binding:"max=2000"`
	Items       []BillItemRequest `json:"items" binding:"dive"`
}

// ToInput converts the request into service input
func (r CreateBillRequest) ToInput(tenantID, actorID uuid.UUID) ledger.CreateBillInput {
	items := make([]ledger.BillItemInput, len(r.Items))
	for i, it := range r.Items {
		items[i] = ledger.BillItemInput{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	return ledger.CreateBillInput{
		TenantID:    tenantID,
		ActorID:     actorID,
		BillNumber:  r.BillNumber,
		ContactID:   r.ContactID,
		ProjectID:   r.ProjectID,
		IssueDate:   r.IssueDate,
		DueDate:     r.DueDate,
		TotalAmount: r.TotalAmount,
		Notes:       r.Notes,
		Items:       items,
	}
}

// UpdateBillRequest is the body of PUT /bills/:id. Omitted fields are left
// unchanged; a missing version performs a blind write.
type UpdateBillRequest struct {
	Version     *int             `json:"version"`
	BillNumber  *string          `json:"bill_number" binding:"omitempty,max=50"`
	ContactID   *uuid.UUID       `json:"contact_id"`
	ProjectID   *uuid.UUID       `json:"project_id"`
	IssueDate   *time.Time       `json:"issue_date"`
	DueDate     *time.Time       `json:"due_date"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Notes       *string          `json:"notes" binding:"omitempty,max=2000"`
}

// ToChanges converts the request into a bill change set
func (r UpdateBillRequest) ToChanges() finance.BillChanges {
	return finance.BillChanges{
		BillNumber:  r.BillNumber,
		ContactID:   r.ContactID,
		ProjectID:   r.ProjectID,
		IssueDate:   r.IssueDate,
		DueDate:     r.DueDate,
		TotalAmount: r.TotalAmount,
		Notes:       r.Notes,
	}
}

// VersionRequest carries only the expected version, used by delete and restore
type VersionRequest struct {
	Version *int `json:"version" form:"version"`
}

// ListBillsRequest holds the query parameters of GET /bills
type ListBillsRequest struct {
	ListRequest
	Status    string `form:"status" binding:"omitempty,oneof=Unpaid PartiallyPaid Paid"`
	ContactID string `form:"contact_id" binding:"omitempty,uuid"`
}

// ToFilter converts the query into a repository filter
func (r ListBillsRequest) ToFilter() finance.BillFilter {
	f := finance.BillFilter{}
	f.Page = r.Page
	f.PageSize = r.PageSize
	f.OrderBy = r.OrderBy
	f.OrderDir = r.OrderDir
	if r.Status != "" {
		s := finance.PaymentStatus(r.Status)
		f.Status = &s
	}
	if r.ContactID != "" {
		if id, err := uuid.Parse(r.ContactID); err == nil {
			f.ContactID = &id
		}
	}
	return f
}

// BillItemResponse is a bill line as returned by the API
type BillItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// BillResponse is a bill as returned by the API
type BillResponse struct {
	ID               uuid.UUID          `json:"id"`
	BillNumber       string             `json:"bill_number"`
	ContactID        uuid.UUID          `json:"contact_id"`
	ProjectID        *uuid.UUID         `json:"project_id,omitempty"`
	SourceInvoiceID  *uuid.UUID         `json:"source_invoice_id,omitempty"`
	IssueDate        time.Time          `json:"issue_date"`
	DueDate          time.Time          `json:"due_date"`
	TotalAmount      decimal.Decimal    `json:"total_amount"`
	PaidAmount       decimal.Decimal    `json:"paid_amount"`
	RemainingBalance decimal.Decimal    `json:"remaining_balance"`
	Status           string             `json:"status"`
	Notes            string             `json:"notes,omitempty"`
	Items            []BillItemResponse `json:"items"`
	Version          *int               `json:"version"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// ToBillResponse maps a bill
func ToBillResponse(b *finance.Bill) BillResponse {
	items := make([]BillItemResponse, len(b.Items))
	for i, it := range b.Items {
		items[i] = BillItemResponse{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		}
	}
	remaining := b.TotalAmount.Sub(b.PaidAmount)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return BillResponse{
		ID:               b.ID,
		BillNumber:       b.BillNumber,
		ContactID:        b.ContactID,
		ProjectID:        b.ProjectID,
		SourceInvoiceID:  b.SourceInvoiceID,
		IssueDate:        b.IssueDate,
		DueDate:          b.DueDate,
		TotalAmount:      b.TotalAmount,
		PaidAmount:       b.PaidAmount,
		RemainingBalance: remaining,
		Status:           string(b.Status),
		Notes:            b.Notes,
		Items:            items,
		Version:          b.Version.Ptr(),
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

// ToBillResponses maps a page of bills
func ToBillResponses(bills []finance.Bill) []BillResponse {
	out := make([]BillResponse, len(bills))
	for i := range bills {
		out[i] = ToBillResponse(&bills[i])
	}
	return out
}

// PaymentRequest is the body of every payment endpoint
type PaymentRequest struct {
	AccountID   uuid.UUID       `json:"account_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Date        *time.Time      `json:"date"`
	ProjectID   *uuid.UUID      `json:"project_id"`
	Description string          `json:"description" binding:"max=500"`
	Reference   string          `json:"reference" binding:"max=100"`
}

// ToInput converts the request into a posting request. A missing date means now.
func (r PaymentRequest) ToInput(tenantID, actorID, documentID uuid.UUID, now time.Time) ledger.PaymentRequest {
	date := now
	if r.Date != nil {
		date = *r.Date
	}
	return ledger.PaymentRequest{
		TenantID:    tenantID,
		ActorID:     actorID,
		DocumentID:  documentID,
		AccountID:   r.AccountID,
		Amount:      r.Amount,
		Date:        date,
		ProjectID:   r.ProjectID,
		Description: r.Description,
		Reference:   r.Reference,
	}
}

// TransactionResponse is a posted transaction
type TransactionResponse struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	AccountID   uuid.UUID       `json:"account_id"`
	ContactID   *uuid.UUID      `json:"contact_id,omitempty"`
	ProjectID   *uuid.UUID      `json:"project_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Reference   string          `json:"reference,omitempty"`
}

// PaymentResponse is the committed document state after a payment
type PaymentResponse struct {
	DocumentID       uuid.UUID             `json:"document_id"`
	DocumentType     string                `json:"document_type"`
	Transactions     []TransactionResponse `json:"transactions"`
	TotalAmount      decimal.Decimal       `json:"total_amount"`
	PaidAmount       decimal.Decimal       `json:"paid_amount"`
	RemainingBalance decimal.Decimal       `json:"remaining_balance"`
	PreviousStatus   string                `json:"previous_status"`
	Status           string                `json:"status"`
	Version          *int                  `json:"version"`
}

// ToPaymentResponse maps a posting result
func ToPaymentResponse(r *ledger.PaymentResult) PaymentResponse {
	txs := make([]TransactionResponse, len(r.Transactions))
	for i, tx := range r.Transactions {
		txs[i] = TransactionResponse{
			ID:          tx.ID,
			Type:        string(tx.Type),
			Amount:      tx.Amount,
			Date:        tx.Date,
			AccountID:   tx.AccountID,
			ContactID:   tx.ContactID,
			ProjectID:   tx.ProjectID,
			Description: tx.Description,
			Reference:   tx.Reference,
		}
	}
	return PaymentResponse{
		DocumentID:       r.Document.ID,
		DocumentType:     string(r.Document.Kind),
		Transactions:     txs,
		TotalAmount:      r.TotalAmount,
		PaidAmount:       r.PaidAmount,
		RemainingBalance: r.RemainingBalance,
		PreviousStatus:   string(r.PreviousStatus),
		Status:           string(r.Status),
		Version:          r.Version.Ptr(),
	}
}
