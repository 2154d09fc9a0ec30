package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/application/unitofwork"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/erp/backoffice/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Dec parses a decimal literal and panics on malformed input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Fixtures seeds rows for one tenant through the real repositories.
type Fixtures struct {
	t        *testing.T
	repos    unitofwork.TransactionalRepositories
	seq      int
	TenantID uuid.UUID
	ActorID  uuid.UUID
}

// NewFixtures creates a fixture builder for tenantID.
func NewFixtures(t *testing.T, scope unitofwork.TransactionScope, tenantID uuid.UUID) *Fixtures {
	return &Fixtures{
		t:        t,
		repos:    scope.Repositories(),
		TenantID: tenantID,
		ActorID:  uuid.New(),
	}
}

func (f *Fixtures) next(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%03d", prefix, f.seq)
}

// Vendor creates a vendor contact, optionally linked to a supplier tenant.
func (f *Fixtures) Vendor(name string, linkedTenantID *uuid.UUID) *finance.Contact {
	f.t.Helper()
	c, err := finance.NewVendorContact(f.TenantID, name, linkedTenantID)
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.Contacts().Create(context.Background(), c))
	return c
}

// Account creates a bank account with an opening balance.
func (f *Fixtures) Account(opening string) *finance.Account {
	f.t.Helper()
	acc, err := finance.NewAccount(f.TenantID, f.ActorID, f.next("Account"), finance.AccountTypeBank, "USD", Dec(opening))
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.Accounts().Create(context.Background(), acc))
	return acc
}

// Bill creates an unpaid bill with the given total against a new vendor.
func (f *Fixtures) Bill(total string) *finance.Bill {
	f.t.Helper()
	vendor := f.Vendor(f.next("Vendor"), nil)
	issue := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	b, err := finance.NewBill(finance.NewBillParams{
		TenantID:    f.TenantID,
		CreatedBy:   f.ActorID,
		BillNumber:  f.next("BILL"),
		ContactID:   vendor.ID,
		IssueDate:   issue,
		DueDate:     issue.AddDate(0, 0, 30),
		TotalAmount: Dec(total),
	})
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.Bills().Create(context.Background(), b))
	return b
}

// InventoryItem creates a catalog item.
func (f *Fixtures) InventoryItem() *procurement.InventoryItem {
	f.t.Helper()
	sku := f.next("SKU")
	item, err := procurement.NewInventoryItem(f.TenantID, sku, "Item "+sku, "pcs")
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.InventoryItems().Create(context.Background(), item))
	return item
}

// PurchaseLine describes one line of a fixture purchase bill.
type PurchaseLine struct {
	InventoryItemID uuid.UUID
	Ordered         string
	Price           string
}

// PurchaseBill creates an unpaid purchase bill.
func (f *Fixtures) PurchaseBill(lines ...PurchaseLine) *procurement.PurchaseBill {
	f.t.Helper()
	items := make([]procurement.PurchaseBillItem, 0, len(lines))
	for _, l := range lines {
		item, err := procurement.NewPurchaseBillItem(l.InventoryItemID, Dec(l.Ordered), Dec(l.Price))
		require.NoError(f.t, err)
		items = append(items, item)
	}
	supplier := f.Vendor(f.next("Supplier"), nil)
	pb, err := procurement.NewPurchaseBill(f.TenantID, f.ActorID, f.next("PB"), supplier.ID, time.Now(), items)
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.PurchaseBills().Create(context.Background(), pb))
	return pb
}

// Payslip creates an unpaid payslip.
func (f *Fixtures) Payslip(netPay string, allocs ...finance.ProjectAllocation) *finance.Payslip {
	f.t.Helper()
	employee, err := finance.NewVendorContact(f.TenantID, f.next("Employee"), nil)
	require.NoError(f.t, err)
	employee.Type = finance.ContactTypeEmployee
	require.NoError(f.t, f.repos.Contacts().Create(context.Background(), employee))

	slip, err := finance.NewPayslip(f.TenantID, f.ActorID, employee.ID, "2026-03", Dec(netPay), allocs)
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.Payslips().Create(context.Background(), slip))
	return slip
}

// PurchaseOrder creates a SENT order from this tenant to the supplier tenant.
func (f *Fixtures) PurchaseOrder(supplierTenantID uuid.UUID, supplierName string, lines ...[2]string) *p2p.PurchaseOrder {
	f.t.Helper()
	items := make([]p2p.LineItem, 0, len(lines))
	for _, l := range lines {
		item, err := p2p.NewLineItem("line "+l[0], Dec(l[0]), Dec(l[1]))
		require.NoError(f.t, err)
		items = append(items, item)
	}
	po, err := p2p.NewPurchaseOrder(f.TenantID, supplierTenantID, supplierName, f.next("PO"), items)
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.PurchaseOrders().Create(context.Background(), po))
	return po
}
