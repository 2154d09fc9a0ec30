package p2p

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/erp/backoffice/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var issueDate = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

type p2pFixture struct {
	scope       *persistence.GormTransactionScope
	db          *gorm.DB
	events      *testutil.RecordingPublisher
	synthesizer *BillSynthesizer
	service     *StateMachineService
	buyer       *testutil.Fixtures
	supplierID  uuid.UUID
}

func newP2PFixture(t *testing.T) *p2pFixture {
	scope, db := testutil.NewScope(t)
	events := testutil.NewRecordingPublisher()
	synth := NewBillSynthesizer(scope, 30)
	return &p2pFixture{
		scope:       scope,
		db:          db,
		events:      events,
		synthesizer: synth,
		service:     NewStateMachineService(scope, events, synth),
		buyer:       testutil.NewFixtures(t, scope, testutil.NewTestUUID("buyer")),
		supplierID:  testutil.NewTestUUID("supplier"),
	}
}

func (f *p2pFixture) order() *p2p.PurchaseOrder {
	return f.buyer.PurchaseOrder(f.supplierID, "Acme Supplier", [2]string{"2", "50.00"}, [2]string{"1", "25.00"})
}

func (f *p2pFixture) flip(t *testing.T, po *p2p.PurchaseOrder) *p2p.Invoice {
	t.Helper()
	inv, err := f.service.Flip(context.Background(), FlipRequest{
		TenantID: f.supplierID, ActorID: testutil.NewTestUUID("supplier-user"), POID: po.ID, IssueDate: issueDate,
	})
	require.NoError(t, err)
	return inv
}

func (f *p2pFixture) decision(inv *p2p.Invoice, reason string) DecisionRequest {
	return DecisionRequest{
		TenantID:  f.buyer.TenantID,
		ActorID:   testutil.NewTestUUID("buyer-user"),
		InvoiceID: inv.ID,
		Reason:    reason,
	}
}

func (f *p2pFixture) billsFor(t *testing.T, invoiceID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.BillModel{}).Where("source_invoice_id = ?", invoiceID).Count(&n).Error)
	return n
}

func (f *p2pFixture) audits(t *testing.T, entityID uuid.UUID) []models.AuditEntryModel {
	t.Helper()
	var rows []models.AuditEntryModel
	require.NoError(t, f.db.Where("entity_id = ?", entityID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func TestStateMachineService_Flip(t *testing.T) {
	ctx := context.Background()

	t.Run("supplier flips a sent order", func(t *testing.T) {
		f := newP2PFixture(t)
		po := f.order()

		inv := f.flip(t, po)
		assert.Equal(t, p2p.InvoiceStatusPending, inv.Status)
		assert.Equal(t, f.supplierID, inv.TenantID)
		assert.Equal(t, f.buyer.TenantID, inv.BuyerTenantID)
		assert.Equal(t, "INV-"+po.PONumber, inv.InvoiceNumber)
		assert.Equal(t, "125.00", inv.TotalAmount.StringFixed(2))
		assert.Len(t, inv.Items, 2)

		stored, err := f.scope.Repositories().PurchaseOrders().FindByIDForTenant(ctx, f.buyer.TenantID, po.ID)
		require.NoError(t, err)
		assert.Equal(t, p2p.PurchaseOrderStatusInvoiced, stored.Status)

		poAudit := f.audits(t, po.ID)
		require.Len(t, poAudit, 1)
		assert.Equal(t, "SENT", poAudit[0].FromStatus)
		assert.Equal(t, "INVOICED", poAudit[0].ToStatus)
		invAudit := f.audits(t, inv.ID)
		require.Len(t, invAudit, 1)
		assert.Equal(t, shared.AuditActionLinked, invAudit[0].Action)

		assert.Equal(t, []string{p2p.EventTypeInvoiceFlipped}, f.events.Types())
	})

	t.Run("second flip of the same order is rejected", func(t *testing.T) {
		f := newP2PFixture(t)
		po := f.order()
		f.flip(t, po)

		_, err := f.service.Flip(ctx, FlipRequest{TenantID: f.supplierID, POID: po.ID})
		var transition *shared.TransitionError
		require.ErrorAs(t, err, &transition)
		assert.Equal(t, "INVOICED", transition.From)

		var n int64
		require.NoError(t, f.db.Model(&models.P2PInvoiceModel{}).Where("po_id = ?", po.ID).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})

	t.Run("non-supplier sees not found", func(t *testing.T) {
		f := newP2PFixture(t)
		po := f.order()

		for _, tenant := range []uuid.UUID{f.buyer.TenantID, uuid.New()} {
			_, err := f.service.Flip(ctx, FlipRequest{TenantID: tenant, POID: po.ID})
			assert.ErrorIs(t, err, shared.ErrNotFound)
		}
	})
}

func TestStateMachineService_Approve(t *testing.T) {
	ctx := context.Background()

	t.Run("approval creates exactly one unpaid bill", func(t *testing.T) {
		f := newP2PFixture(t)
		inv := f.flip(t, f.order())

		result, err := f.service.Approve(ctx, f.decision(inv, ""))
		require.NoError(t, err)
		assert.True(t, result.Approved)
		assert.True(t, result.BillCreated)
		assert.Nil(t, result.ReconciliationID)
		assert.Equal(t, p2p.InvoiceStatusApproved, result.Invoice.Status)

		bill := result.Bill
		require.NotNil(t, bill)
		assert.Equal(t, f.buyer.TenantID, bill.TenantID)
		assert.Equal(t, finance.PaymentStatusUnpaid, bill.Status)
		assert.True(t, bill.PaidAmount.IsZero())
		assert.Equal(t, "125.00", bill.TotalAmount.StringFixed(2))
		assert.True(t, bill.DueDate.Equal(issueDate.AddDate(0, 0, 30)), bill.DueDate)
		require.NotNil(t, bill.SourceInvoiceID)
		assert.Equal(t, inv.ID, *bill.SourceInvoiceID)

		vendor, err := f.scope.Repositories().Contacts().FindVendorByLinkedTenant(ctx, f.buyer.TenantID, f.supplierID)
		require.NoError(t, err)
		assert.Equal(t, vendor.ID, bill.ContactID)
		assert.Equal(t, "Acme Supplier", vendor.Name)

		_, err = f.service.Approve(ctx, f.decision(inv, ""))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		assert.Equal(t, int64(1), f.billsFor(t, inv.ID))

		assert.Contains(t, f.events.Types(), p2p.EventTypeInvoiceApproved)
		assert.Contains(t, f.events.Types(), finance.EventTypeBillCreated)

		rows := f.audits(t, inv.ID)
		require.Len(t, rows, 2)
		assert.Equal(t, "PENDING", rows[1].FromStatus)
		assert.Equal(t, "APPROVED", rows[1].ToStatus)
	})

	t.Run("existing linked vendor is reused", func(t *testing.T) {
		f := newP2PFixture(t)
		supplier := f.supplierID
		vendor := f.buyer.Vendor("Acme (linked)", &supplier)
		inv := f.flip(t, f.order())

		result, err := f.service.Approve(ctx, f.decision(inv, "ok"))
		require.NoError(t, err)
		assert.Equal(t, vendor.ID, result.Bill.ContactID)
	})

	t.Run("vendor with the supplier name is reused", func(t *testing.T) {
		f := newP2PFixture(t)
		vendor := f.buyer.Vendor("Acme Supplier", nil)
		inv := f.flip(t, f.order())

		result, err := f.service.Approve(ctx, f.decision(inv, ""))
		require.NoError(t, err)
		assert.Equal(t, vendor.ID, result.Bill.ContactID)
	})

	t.Run("supplier cannot approve its own invoice", func(t *testing.T) {
		f := newP2PFixture(t)
		inv := f.flip(t, f.order())
		req := f.decision(inv, "")
		req.TenantID = f.supplierID

		_, err := f.service.Approve(ctx, req)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("synthesis failure keeps the approval and queues reconciliation", func(t *testing.T) {
		f := newP2PFixture(t)
		inv := f.flip(t, f.order())
		require.NoError(t, f.db.Migrator().DropTable(&models.ContactModel{}))

		result, err := f.service.Approve(ctx, f.decision(inv, ""))
		require.NoError(t, err)
		assert.True(t, result.Approved)
		assert.False(t, result.BillCreated)
		require.NotNil(t, result.ReconciliationID)

		stored, err := f.scope.Repositories().Invoices().FindByIDForBuyer(ctx, f.buyer.TenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, p2p.InvoiceStatusApproved, stored.Status)
		assert.Equal(t, int64(0), f.billsFor(t, inv.ID))

		rec, err := f.scope.Repositories().Reconciliations().FindPendingByInvoice(ctx, f.buyer.TenantID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, *result.ReconciliationID, rec.ID)
		assert.Equal(t, 1, rec.Attempts)
		assert.NotEmpty(t, rec.LastError)
	})
}

func TestStateMachineService_Reject(t *testing.T) {
	ctx := context.Background()
	f := newP2PFixture(t)
	inv := f.flip(t, f.order())

	t.Run("reason is required", func(t *testing.T) {
		_, err := f.service.Reject(ctx, f.decision(inv, "   "))
		assert.Equal(t, "INVALID_REASON", shared.ErrorCode(err))
	})

	t.Run("rejects with a reason", func(t *testing.T) {
		rejected, err := f.service.Reject(ctx, f.decision(inv, "wrong prices"))
		require.NoError(t, err)
		assert.Equal(t, p2p.InvoiceStatusRejected, rejected.Status)
		assert.Equal(t, "wrong prices", rejected.Reason)
		assert.Equal(t, int64(0), f.billsFor(t, inv.ID))
	})

	t.Run("rejected invoice is terminal", func(t *testing.T) {
		_, err := f.service.Approve(ctx, f.decision(inv, ""))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		_, err = f.service.Reject(ctx, f.decision(inv, "again"))
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	})
}

func TestStateMachineService_Metrics(t *testing.T) {
	ctx := context.Background()
	f := newP2PFixture(t)
	reader := testutil.NewMetricReader(t)
	m, err := telemetry.NewLedgerMetrics(reader.Meter())
	require.NoError(t, err)
	f.service.SetMetrics(m)

	approved := f.flip(t, f.order())
	_, err = f.service.Approve(ctx, f.decision(approved, ""))
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, f.decision(approved, ""))
	require.ErrorIs(t, err, shared.ErrInvalidTransition)

	queued := f.flip(t, f.order())
	require.NoError(t, f.db.Migrator().DropTable(&models.ContactModel{}))
	result, err := f.service.Approve(ctx, f.decision(queued, ""))
	require.NoError(t, err)
	require.False(t, result.BillCreated)

	assert.Equal(t, int64(2), reader.Sum("backoffice_invoice_decision_total",
		telemetry.AttrDecision.String(string(p2p.InvoiceStatusApproved))))
	assert.Equal(t, int64(1), reader.Sum("backoffice_bill_synthesis_total",
		telemetry.AttrOutcome.String(telemetry.OutcomeCreated)))
	assert.Equal(t, int64(1), reader.Sum("backoffice_bill_synthesis_total",
		telemetry.AttrOutcome.String(telemetry.OutcomeQueued)))
	assert.Equal(t, int64(1), reader.Sum("backoffice_operation_rejected_total",
		telemetry.AttrOperation.String("approve"),
		telemetry.AttrErrorCode.String("INVALID_TRANSITION")))
}
