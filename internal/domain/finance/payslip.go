package finance

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ProjectAllocation assigns a share of a payslip's cost to a project
type ProjectAllocation struct {
	ProjectID  uuid.UUID
	Percentage decimal.Decimal
}

// AllocationSplit is the part of a payment booked against one project
type AllocationSplit struct {
	ProjectID *uuid.UUID
	Amount    decimal.Decimal
}

// Payslip is an employee's net pay for a period, optionally split across projects
type Payslip struct {
	shared.TenantAggregateRoot
	EmployeeContactID uuid.UUID
	Period            string
	NetPay            decimal.Decimal
	PaidAmount        decimal.Decimal
	Status            PaymentStatus
	Allocations       []ProjectAllocation
}

// NewPayslip creates an unpaid payslip
func NewPayslip(tenantID, createdBy, employeeContactID uuid.UUID, period string, netPay decimal.Decimal, allocs []ProjectAllocation) (*Payslip, error) {
	if employeeContactID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Employee contact ID cannot be empty")
	}
	if !netPay.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Net pay must be positive")
	}
	if err := ValidateAllocations(allocs); err != nil {
		return nil, err
	}
	return &Payslip{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		EmployeeContactID:   employeeContactID,
		Period:              period,
		NetPay:              netPay,
		PaidAmount:          decimal.Zero,
		Status:              PaymentStatusUnpaid,
		Allocations:         allocs,
	}, nil
}

// ValidateAllocations checks that percentages are positive and add up to 100
func ValidateAllocations(allocs []ProjectAllocation) error {
	if len(allocs) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, a := range allocs {
		if a.ProjectID == uuid.Nil {
			return shared.NewDomainError("INVALID_ALLOCATION", "Allocation project cannot be empty")
		}
		if !a.Percentage.IsPositive() {
			return shared.NewDomainError("INVALID_ALLOCATION", "Allocation percentage must be positive")
		}
		sum = sum.Add(a.Percentage)
	}
	if !sum.Equal(hundred) {
		return shared.NewDomainError("INVALID_ALLOCATION", "Allocation percentages must add up to 100")
	}
	return nil
}

// SplitPayment divides a payment across the project allocations. Shares are the
// differences between cumulative boundaries rounded to cents, so none is negative
// and the splits sum to amount.
func (p *Payslip) SplitPayment(amount decimal.Decimal) ([]AllocationSplit, error) {
	if err := ValidateAllocations(p.Allocations); err != nil {
		return nil, err
	}
	if len(p.Allocations) == 0 {
		return []AllocationSplit{{Amount: amount}}, nil
	}

	splits := make([]AllocationSplit, 0, len(p.Allocations))
	cumPct := decimal.Zero
	boundary := decimal.Zero
	for i, a := range p.Allocations {
		projectID := a.ProjectID
		cumPct = cumPct.Add(a.Percentage)
		next := amount.Mul(cumPct).Div(hundred).Round(2)
		if i == len(p.Allocations)-1 || next.GreaterThan(amount) {
			next = amount
		}
		share := next.Sub(boundary)
		boundary = next
		if share.IsZero() {
			continue
		}
		splits = append(splits, AllocationSplit{ProjectID: &projectID, Amount: share})
	}
	return splits, nil
}

// ApplyPaidTotal sets the authoritative paid amount and re-derives the status
func (p *Payslip) ApplyPaidTotal(paid, eps decimal.Decimal) PaymentStatus {
	prev := p.Status
	p.PaidAmount = paid
	p.Status = DerivePaymentStatus(p.NetPay, paid, eps)
	p.Touch()
	return prev
}
