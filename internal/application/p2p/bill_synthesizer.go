package p2p

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/application/unitofwork"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultNetDays is the payment term of synthesized bills when none is configured
const DefaultNetDays = 30

// BillSynthesizer turns an approved invoice into a payable bill in the buyer tenant
type BillSynthesizer struct {
	scope   unitofwork.TransactionScope
	netDays int
}

// NewBillSynthesizer creates a new BillSynthesizer
func NewBillSynthesizer(scope unitofwork.TransactionScope, netDays int) *BillSynthesizer {
	if netDays <= 0 {
		netDays = DefaultNetDays
	}
	return &BillSynthesizer{scope: scope, netDays: netDays}
}

// Synthesize creates the bill for an approved invoice. It is idempotent on the
// invoice id: an existing bill for the invoice is returned unchanged.
func (s *BillSynthesizer) Synthesize(ctx context.Context, inv *p2p.Invoice, actorID uuid.UUID) (*finance.Bill, error) {
	if inv.Status != p2p.InvoiceStatusApproved {
		return nil, shared.NewDomainError("INVALID_STATE", "Only approved invoices produce bills")
	}

	var bill *finance.Bill
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		existing, err := repos.Bills().FindBySourceInvoice(ctx, inv.BuyerTenantID, inv.ID)
		if err == nil {
			bill = existing
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		vendor, err := s.resolveVendor(ctx, repos, inv)
		if err != nil {
			return err
		}
		bill, err = s.newBill(inv, vendor, actorID)
		if err != nil {
			return err
		}
		if err := repos.Bills().Create(ctx, bill); err != nil {
			return err
		}
		return repos.Audit().Append(ctx, shared.NewActionAudit(inv.BuyerTenantID, "Bill", bill.ID,
			shared.AuditActionCreated, actorID, map[string]any{
				"source_invoice_id": inv.ID.String(),
				"contact_id":        vendor.ID.String(),
			}))
	})
	if errors.Is(err, shared.ErrAlreadyExists) {
		// a concurrent synthesis won the unique source_invoice_id index
		return s.scope.Repositories().Bills().FindBySourceInvoice(ctx, inv.BuyerTenantID, inv.ID)
	}
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// resolveVendor finds the buyer's contact for the supplier tenant, then falls
// back to a vendor with the supplier's name, and creates one when neither exists.
func (s *BillSynthesizer) resolveVendor(ctx context.Context, repos unitofwork.TransactionalRepositories, inv *p2p.Invoice) (*finance.Contact, error) {
	contacts := repos.Contacts()
	vendor, err := contacts.FindVendorByLinkedTenant(ctx, inv.BuyerTenantID, inv.TenantID)
	if err == nil || !errors.Is(err, shared.ErrNotFound) {
		return vendor, err
	}

	name := inv.SupplierName
	if name == "" {
		name = fmt.Sprintf("Supplier %s", inv.TenantID.String()[:8])
	}
	vendor, err = contacts.FindVendorByName(ctx, inv.BuyerTenantID, name)
	if err == nil || !errors.Is(err, shared.ErrNotFound) {
		return vendor, err
	}

	supplierTenantID := inv.TenantID
	vendor, err = finance.NewVendorContact(inv.BuyerTenantID, name, &supplierTenantID)
	if err != nil {
		return nil, err
	}
	if err := contacts.Create(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *BillSynthesizer) newBill(inv *p2p.Invoice, vendor *finance.Contact, actorID uuid.UUID) (*finance.Bill, error) {
	items := make([]finance.BillItem, 0, len(inv.Items))
	for _, line := range inv.Items {
		item, err := finance.NewBillItem(line.Description, line.Quantity, line.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	invoiceID := inv.ID
	issue := inv.IssueDate
	if issue.IsZero() {
		issue = time.Now()
	}
	return finance.NewBill(finance.NewBillParams{
		TenantID:        inv.BuyerTenantID,
		CreatedBy:       actorID,
		BillNumber:      inv.InvoiceNumber,
		ContactID:       vendor.ID,
		SourceInvoiceID: &invoiceID,
		IssueDate:       issue,
		DueDate:         issue.AddDate(0, 0, s.netDays),
		TotalAmount:     inv.TotalAmount,
		Notes:           fmt.Sprintf("Created from P2P invoice %s", inv.InvoiceNumber),
		Items:           items,
	})
}
