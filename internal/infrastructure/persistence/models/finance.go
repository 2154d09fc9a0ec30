package models

import (
	"encoding/json"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	VersionedTenantModel
	Name     string          `gorm:"type:varchar(100);not null"`
	Type     string          `gorm:"type:varchar(20);not null"`
	Currency string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Balance  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// EntityName names the aggregate in conflict errors
func (AccountModel) EntityName() string {
	return "Account"
}

// WriteColumns lists the columns a versioned write may change. The balance only
// moves through ApplyBalanceDelta.
func (m *AccountModel) WriteColumns() map[string]any {
	return map[string]any{
		"name":     m.Name,
		"type":     m.Type,
		"currency": m.Currency,
	}
}

// OptionalColumns lists columns that older schemas may lack
func (AccountModel) OptionalColumns() []string {
	return nil
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *finance.Account {
	a := &finance.Account{
		Name:     m.Name,
		Type:     finance.AccountType(m.Type),
		Currency: m.Currency,
		Balance:  m.Balance,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// AccountModelFromDomain creates a persistence model from a domain Account
func AccountModelFromDomain(a *finance.Account) *AccountModel {
	m := &AccountModel{
		Name:     a.Name,
		Type:     string(a.Type),
		Currency: a.Currency,
		Balance:  a.Balance,
	}
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	return m
}

// ContactModel is the persistence model for the Contact aggregate root.
type ContactModel struct {
	VersionedTenantModel
	Name           string     `gorm:"type:varchar(200);not null;index"`
	Type           string     `gorm:"type:varchar(20);not null"`
	Email          string     `gorm:"type:varchar(200)"`
	LinkedTenantID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// EntityName names the aggregate in conflict errors
func (ContactModel) EntityName() string {
	return "Contact"
}

// WriteColumns lists the columns a versioned write may change
func (m *ContactModel) WriteColumns() map[string]any {
	return map[string]any{
		"name":             m.Name,
		"type":             m.Type,
		"email":            m.Email,
		"linked_tenant_id": m.LinkedTenantID,
	}
}

// OptionalColumns lists columns that older schemas may lack
func (ContactModel) OptionalColumns() []string {
	return []string{"email", "linked_tenant_id"}
}

// ToDomain converts the persistence model to a domain Contact
func (m *ContactModel) ToDomain() *finance.Contact {
	c := &finance.Contact{
		Name:           m.Name,
		Type:           finance.ContactType(m.Type),
		Email:          m.Email,
		LinkedTenantID: m.LinkedTenantID,
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// ContactModelFromDomain creates a persistence model from a domain Contact
func ContactModelFromDomain(c *finance.Contact) *ContactModel {
	m := &ContactModel{
		Name:           c.Name,
		Type:           string(c.Type),
		Email:          c.Email,
		LinkedTenantID: c.LinkedTenantID,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m
}

// BillModel is the persistence model for the Bill aggregate root.
type BillModel struct {
	VersionedTenantModel
	BillNumber      string          `gorm:"type:varchar(50);not null"`
	ContactID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProjectID       *uuid.UUID      `gorm:"type:uuid"`
	SourceInvoiceID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	IssueDate       time.Time       `gorm:"not null"`
	DueDate         time.Time       `gorm:"not null;index"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Status          string          `gorm:"type:varchar(20);not null;index"`
	Notes           string          `gorm:"type:text"`
	Items           []BillItemModel `gorm:"foreignKey:BillID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (BillModel) TableName() string {
	return "bills"
}

// EntityName names the aggregate in conflict errors
func (BillModel) EntityName() string {
	return "Bill"
}

// WriteColumns lists the columns a versioned write may change
func (m *BillModel) WriteColumns() map[string]any {
	return map[string]any{
		"bill_number":  m.BillNumber,
		"contact_id":   m.ContactID,
		"project_id":   m.ProjectID,
		"issue_date":   m.IssueDate,
		"due_date":     m.DueDate,
		"total_amount": m.TotalAmount,
		"paid_amount":  m.PaidAmount,
		"status":       m.Status,
		"notes":        m.Notes,
	}
}

// OptionalColumns lists columns that older schemas may lack
func (BillModel) OptionalColumns() []string {
	return []string{"project_id", "notes"}
}

// ToDomain converts the persistence model to a domain Bill
func (m *BillModel) ToDomain() *finance.Bill {
	b := &finance.Bill{
		BillNumber:      m.BillNumber,
		ContactID:       m.ContactID,
		ProjectID:       m.ProjectID,
		SourceInvoiceID: m.SourceInvoiceID,
		IssueDate:       m.IssueDate,
		DueDate:         m.DueDate,
		TotalAmount:     m.TotalAmount,
		PaidAmount:      m.PaidAmount,
		Status:          finance.PaymentStatus(m.Status),
		Notes:           m.Notes,
		Items:           make([]finance.BillItem, len(m.Items)),
	}
	m.PopulateTenantAggregateRoot(&b.TenantAggregateRoot)
	for i, item := range m.Items {
		b.Items[i] = item.ToDomain()
	}
	return b
}

// BillModelFromDomain creates a persistence model from a domain Bill
func BillModelFromDomain(b *finance.Bill) *BillModel {
	m := &BillModel{
		BillNumber:      b.BillNumber,
		ContactID:       b.ContactID,
		ProjectID:       b.ProjectID,
		SourceInvoiceID: b.SourceInvoiceID,
		IssueDate:       b.IssueDate,
		DueDate:         b.DueDate,
		TotalAmount:     b.TotalAmount,
		PaidAmount:      b.PaidAmount,
		Status:          string(b.Status),
		Notes:           b.Notes,
		Items:           make([]BillItemModel, len(b.Items)),
	}
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	for i, item := range b.Items {
		m.Items[i] = BillItemModel{
			ID:          item.ID,
			BillID:      b.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		}
	}
	return m
}

// BillItemModel is the persistence model for a bill line.
type BillItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BillID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(500)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (BillItemModel) TableName() string {
	return "bill_items"
}

// ToDomain converts the persistence model to a domain BillItem
func (m *BillItemModel) ToDomain() finance.BillItem {
	return finance.BillItem{
		ID:          m.ID,
		BillID:      m.BillID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		LineTotal:   m.LineTotal,
	}
}

// TransactionModel is the persistence model for an immutable Transaction.
// It has no version and no soft delete: rows are only ever inserted.
type TransactionModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type           string          `gorm:"type:varchar(20);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Date           time.Time       `gorm:"not null"`
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	BillID         *uuid.UUID      `gorm:"type:uuid;index"`
	PurchaseBillID *uuid.UUID      `gorm:"type:uuid;index"`
	PayslipID      *uuid.UUID      `gorm:"type:uuid;index"`
	ContactID      *uuid.UUID      `gorm:"type:uuid"`
	ProjectID      *uuid.UUID      `gorm:"type:uuid"`
	Description    string          `gorm:"type:varchar(500)"`
	Reference      string          `gorm:"type:varchar(100)"`
	CreatedBy      uuid.UUID       `gorm:"type:uuid"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// OptionalColumns lists columns that older schemas may lack
func (TransactionModel) OptionalColumns() []string {
	return []string{"project_id", "reference"}
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() finance.Transaction {
	return finance.Transaction{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.CreatedAt,
		},
		TenantID:       m.TenantID,
		Type:           finance.TransactionType(m.Type),
		Amount:         m.Amount,
		Date:           m.Date,
		AccountID:      m.AccountID,
		BillID:         m.BillID,
		PurchaseBillID: m.PurchaseBillID,
		PayslipID:      m.PayslipID,
		ContactID:      m.ContactID,
		ProjectID:      m.ProjectID,
		Description:    m.Description,
		Reference:      m.Reference,
		CreatedBy:      m.CreatedBy,
	}
}

// TransactionModelFromDomain creates a persistence model from a domain Transaction
func TransactionModelFromDomain(t *finance.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:             t.ID,
		TenantID:       t.TenantID,
		Type:           string(t.Type),
		Amount:         t.Amount,
		Date:           t.Date,
		AccountID:      t.AccountID,
		BillID:         t.BillID,
		PurchaseBillID: t.PurchaseBillID,
		PayslipID:      t.PayslipID,
		ContactID:      t.ContactID,
		ProjectID:      t.ProjectID,
		Description:    t.Description,
		Reference:      t.Reference,
		CreatedBy:      t.CreatedBy,
		CreatedAt:      t.CreatedAt,
	}
}

// PayslipModel is the persistence model for the Payslip aggregate root.
// Allocations are stored as a JSON array.
type PayslipModel struct {
	VersionedTenantModel
	EmployeeContactID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Period            string          `gorm:"type:varchar(20);not null"`
	NetPay            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null"`
	Allocations       string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PayslipModel) TableName() string {
	return "payslips"
}

// EntityName names the aggregate in conflict errors
func (PayslipModel) EntityName() string {
	return "Payslip"
}

// WriteColumns lists the columns a versioned write may change
func (m *PayslipModel) WriteColumns() map[string]any {
	return map[string]any{
		"employee_contact_id": m.EmployeeContactID,
		"period":              m.Period,
		"net_pay":             m.NetPay,
		"paid_amount":         m.PaidAmount,
		"status":              m.Status,
		"allocations":         m.Allocations,
	}
}

// OptionalColumns lists columns that older schemas may lack
func (PayslipModel) OptionalColumns() []string {
	return []string{"allocations"}
}

type allocationJSON struct {
	ProjectID  uuid.UUID       `json:"project_id"`
	Percentage decimal.Decimal `json:"percentage"`
}

// ToDomain converts the persistence model to a domain Payslip
func (m *PayslipModel) ToDomain() (*finance.Payslip, error) {
	p := &finance.Payslip{
		EmployeeContactID: m.EmployeeContactID,
		Period:            m.Period,
		NetPay:            m.NetPay,
		PaidAmount:        m.PaidAmount,
		Status:            finance.PaymentStatus(m.Status),
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	if m.Allocations != "" {
		var allocs []allocationJSON
		if err := json.Unmarshal([]byte(m.Allocations), &allocs); err != nil {
			return nil, err
		}
		for _, a := range allocs {
			p.Allocations = append(p.Allocations, finance.ProjectAllocation{ProjectID: a.ProjectID, Percentage: a.Percentage})
		}
	}
	return p, nil
}

// PayslipModelFromDomain creates a persistence model from a domain Payslip
func PayslipModelFromDomain(p *finance.Payslip) (*PayslipModel, error) {
	m := &PayslipModel{
		EmployeeContactID: p.EmployeeContactID,
		Period:            p.Period,
		NetPay:            p.NetPay,
		PaidAmount:        p.PaidAmount,
		Status:            string(p.Status),
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	if len(p.Allocations) > 0 {
		allocs := make([]allocationJSON, len(p.Allocations))
		for i, a := range p.Allocations {
			allocs[i] = allocationJSON{ProjectID: a.ProjectID, Percentage: a.Percentage}
		}
		raw, err := json.Marshal(allocs)
		if err != nil {
			return nil, err
		}
		m.Allocations = string(raw)
	}
	return m, nil
}
