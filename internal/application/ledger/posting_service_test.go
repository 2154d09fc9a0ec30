package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
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

type postingFixture struct {
	scope    *persistence.GormTransactionScope
	db       *gorm.DB
	events   *testutil.RecordingPublisher
	service  *PostingService
	fixtures *testutil.Fixtures
	account  *finance.Account
}

func newPostingFixture(t *testing.T) *postingFixture {
	scope, db := testutil.NewScope(t)
	events := testutil.NewRecordingPublisher()
	f := testutil.NewFixtures(t, scope, testutil.TestTenantID())
	return &postingFixture{
		scope:    scope,
		db:       db,
		events:   events,
		service:  NewPostingService(scope, events, finance.DefaultEpsilon),
		fixtures: f,
		account:  f.Account("5000.00"),
	}
}

func (p *postingFixture) request(docID uuid.UUID, amount string) PaymentRequest {
	return PaymentRequest{
		TenantID:   testutil.TestTenantID(),
		ActorID:    testutil.TestUserID(),
		DocumentID: docID,
		AccountID:  p.account.ID,
		Amount:     testutil.Dec(amount),
		Date:       time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (p *postingFixture) transactionCount(t *testing.T, doc finance.DocumentRef) int {
	t.Helper()
	txs, err := p.scope.Repositories().Transactions().FindByDocument(context.Background(), testutil.TestTenantID(), doc)
	require.NoError(t, err)
	return len(txs)
}

func (p *postingFixture) balance(t *testing.T) string {
	t.Helper()
	acc, err := p.scope.Repositories().Accounts().FindByIDForTenant(context.Background(), testutil.TestTenantID(), p.account.ID)
	require.NoError(t, err)
	return acc.Balance.StringFixed(2)
}

func TestPostingService_PayBill(t *testing.T) {
	ctx := context.Background()

	t.Run("partial then full payment then overpayment", func(t *testing.T) {
		p := newPostingFixture(t)
		bill := p.fixtures.Bill("1000.00")
		doc := finance.DocumentRef{Kind: finance.DocumentBill, ID: bill.ID}

		first, err := p.service.PayBill(ctx, p.request(bill.ID, "600.00"))
		require.NoError(t, err)
		assert.Equal(t, finance.PaymentStatusUnpaid, first.PreviousStatus)
		assert.Equal(t, finance.PaymentStatusPartiallyPaid, first.Status)
		assert.Equal(t, "600.00", first.PaidAmount.StringFixed(2))
		assert.Equal(t, "400.00", first.RemainingBalance.StringFixed(2))
		require.Len(t, first.Transactions, 1)

		second, err := p.service.PayBill(ctx, p.request(bill.ID, "400.00"))
		require.NoError(t, err)
		assert.Equal(t, finance.PaymentStatusPaid, second.Status)
		assert.Equal(t, "1000.00", second.PaidAmount.StringFixed(2))
		assert.True(t, second.RemainingBalance.IsZero())

		_, err = p.service.PayBill(ctx, p.request(bill.ID, "0.01"))
		require.Error(t, err)
		var over *shared.OverpaymentError
		require.ErrorAs(t, err, &over)
		assert.True(t, over.RemainingBalance.IsZero())
		assert.ErrorIs(t, err, shared.ErrOverpayment)

		assert.Equal(t, 2, p.transactionCount(t, doc))
		assert.Equal(t, "4000.00", p.balance(t))

		stored, err := p.scope.Repositories().Bills().FindByIDForTenant(ctx, testutil.TestTenantID(), bill.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.PaymentStatusPaid, stored.Status)
		assert.Equal(t, "1000.00", stored.PaidAmount.StringFixed(2))

		assert.Equal(t, []string{finance.EventTypePaymentPosted, finance.EventTypePaymentPosted}, p.events.Types())
	})

	t.Run("second payment exceeding the remainder is rejected", func(t *testing.T) {
		p := newPostingFixture(t)
		bill := p.fixtures.Bill("1000.00")

		_, err := p.service.PayBill(ctx, p.request(bill.ID, "600.00"))
		require.NoError(t, err)

		_, err = p.service.PayBill(ctx, p.request(bill.ID, "500.00"))
		var over *shared.OverpaymentError
		require.ErrorAs(t, err, &over)
		assert.Equal(t, "400.00", over.RemainingBalance.StringFixed(2))
		assert.Equal(t, "500.00", over.Attempted.StringFixed(2))

		assert.Equal(t, 1, p.transactionCount(t, finance.DocumentRef{Kind: finance.DocumentBill, ID: bill.ID}))
	})

	t.Run("paid amount is re-summed from transactions", func(t *testing.T) {
		p := newPostingFixture(t)
		bill := p.fixtures.Bill("100.00")

		for _, amount := range []string{"33.33", "33.33", "33.34"} {
			_, err := p.service.PayBill(ctx, p.request(bill.ID, amount))
			require.NoError(t, err)
		}

		stored, err := p.scope.Repositories().Bills().FindByIDForTenant(ctx, testutil.TestTenantID(), bill.ID)
		require.NoError(t, err)
		assert.Equal(t, "100.00", stored.PaidAmount.StringFixed(2))
		assert.Equal(t, finance.PaymentStatusPaid, stored.Status)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		p := newPostingFixture(t)
		bill := p.fixtures.Bill("100.00")

		for _, amount := range []string{"0", "-5"} {
			_, err := p.service.PayBill(ctx, p.request(bill.ID, amount))
			assert.Equal(t, "INVALID_AMOUNT", shared.ErrorCode(err))
		}
	})

	t.Run("unknown bill is not found", func(t *testing.T) {
		p := newPostingFixture(t)

		_, err := p.service.PayBill(ctx, p.request(uuid.New(), "10.00"))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("another tenant's bill is not found", func(t *testing.T) {
		p := newPostingFixture(t)
		other := testutil.NewFixtures(t, p.scope, uuid.New()).Bill("100.00")

		_, err := p.service.PayBill(ctx, p.request(other.ID, "10.00"))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("missing account rolls back the payment", func(t *testing.T) {
		p := newPostingFixture(t)
		bill := p.fixtures.Bill("100.00")
		req := p.request(bill.ID, "10.00")
		req.AccountID = uuid.New()

		_, err := p.service.PayBill(ctx, req)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		assert.Equal(t, 0, p.transactionCount(t, finance.DocumentRef{Kind: finance.DocumentBill, ID: bill.ID}))
		stored, err := p.scope.Repositories().Bills().FindByIDForTenant(ctx, testutil.TestTenantID(), bill.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.PaymentStatusUnpaid, stored.Status)
		assert.Empty(t, p.events.Events())
	})

	t.Run("publish failure does not fail the payment", func(t *testing.T) {
		p := newPostingFixture(t)
		bill := p.fixtures.Bill("100.00")
		p.events.SetError(errors.New("broker down"))

		result, err := p.service.PayBill(ctx, p.request(bill.ID, "100.00"))
		require.NoError(t, err)
		assert.Equal(t, finance.PaymentStatusPaid, result.Status)
	})

	t.Run("writes an audit row with the status change", func(t *testing.T) {
		p := newPostingFixture(t)
		bill := p.fixtures.Bill("100.00")

		_, err := p.service.PayBill(ctx, p.request(bill.ID, "40.00"))
		require.NoError(t, err)

		var entries []models.AuditEntryModel
		require.NoError(t, p.db.Where("entity_id = ?", bill.ID).Find(&entries).Error)
		require.Len(t, entries, 1)
		assert.Equal(t, string(shared.AuditActionPaymentPosted), entries[0].Action)
		assert.Equal(t, "Unpaid", entries[0].FromStatus)
		assert.Equal(t, "PartiallyPaid", entries[0].ToStatus)
		assert.Contains(t, entries[0].Details, "40")
	})

	t.Run("transaction inherits the bill project", func(t *testing.T) {
		p := newPostingFixture(t)
		bill := p.fixtures.Bill("100.00")
		projectID := uuid.New()
		require.NoError(t, p.db.Model(&models.BillModel{}).Where("id = ?", bill.ID).Update("project_id", projectID).Error)

		result, err := p.service.PayBill(ctx, p.request(bill.ID, "10.00"))
		require.NoError(t, err)
		require.NotNil(t, result.Transactions[0].ProjectID)
		assert.Equal(t, projectID, *result.Transactions[0].ProjectID)
		require.NotNil(t, result.Transactions[0].BillID)
		assert.Equal(t, bill.ID, *result.Transactions[0].BillID)
	})
}

func TestPostingService_PayPayslip(t *testing.T) {
	ctx := context.Background()
	p := newPostingFixture(t)
	projectA, projectB := uuid.New(), uuid.New()
	slip := p.fixtures.Payslip("100.00",
		finance.ProjectAllocation{ProjectID: projectA, Percentage: testutil.Dec("33.33")},
		finance.ProjectAllocation{ProjectID: projectB, Percentage: testutil.Dec("66.67")},
	)

	result, err := p.service.PayPayslip(ctx, p.request(slip.ID, "100.00"))
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, projectA, *result.Transactions[0].ProjectID)
	assert.Equal(t, "33.33", result.Transactions[0].Amount.StringFixed(2))
	assert.Equal(t, "66.67", result.Transactions[1].Amount.StringFixed(2))
	assert.Equal(t, finance.PaymentStatusPaid, result.Status)

	_, err = p.service.PayPayslip(ctx, p.request(slip.ID, "0.02"))
	assert.ErrorIs(t, err, shared.ErrOverpayment)
}

func TestPostingService_PayPurchaseBill(t *testing.T) {
	ctx := context.Background()
	p := newPostingFixture(t)
	item := p.fixtures.InventoryItem()
	pb := p.fixtures.PurchaseBill(testutil.PurchaseLine{InventoryItemID: item.ID, Ordered: "10", Price: "5.00"})

	result, err := p.service.PayPurchaseBill(ctx, p.request(pb.ID, "20.00"))
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentStatusPartiallyPaid, result.Status)

	result, err = p.service.PayPurchaseBill(ctx, p.request(pb.ID, "30.00"))
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentStatusPaid, result.Status)

	stored, err := p.scope.Repositories().PurchaseBills().FindByIDForTenant(ctx, testutil.TestTenantID(), pb.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentStatusPaid, stored.Status)
	assert.Equal(t, "4950.00", p.balance(t))
}

func TestPostingService_PayPayslip_SubCentSplit(t *testing.T) {
	ctx := context.Background()
	p := newPostingFixture(t)
	allocs := make([]finance.ProjectAllocation, 4)
	for i := range allocs {
		allocs[i] = finance.ProjectAllocation{ProjectID: uuid.New(), Percentage: testutil.Dec("25")}
	}
	slip := p.fixtures.Payslip("0.02", allocs...)

	result, err := p.service.PayPayslip(ctx, p.request(slip.ID, "0.02"))
	require.NoError(t, err)
	assert.Equal(t, finance.PaymentStatusPaid, result.Status)

	sum := testutil.Dec("0")
	for _, tx := range result.Transactions {
		assert.True(t, tx.Amount.IsPositive(), "transaction amount %s", tx.Amount)
		sum = sum.Add(tx.Amount)
	}
	assert.Equal(t, "0.02", sum.StringFixed(2))
	assert.Equal(t, "4999.98", p.balance(t))
}

func TestPostingService_Metrics(t *testing.T) {
	ctx := context.Background()
	p := newPostingFixture(t)
	reader := testutil.NewMetricReader(t)
	m, err := telemetry.NewLedgerMetrics(reader.Meter())
	require.NoError(t, err)
	p.service.SetMetrics(m)

	bill := p.fixtures.Bill("100.00")
	_, err = p.service.PayBill(ctx, p.request(bill.ID, "40.00"))
	require.NoError(t, err)
	_, err = p.service.PayBill(ctx, p.request(bill.ID, "60.00"))
	require.NoError(t, err)
	_, err = p.service.PayBill(ctx, p.request(bill.ID, "1.00"))
	require.ErrorIs(t, err, shared.ErrOverpayment)

	assert.Equal(t, int64(2), reader.Sum("backoffice_payment_posted_total",
		telemetry.AttrDocumentKind.String(string(finance.DocumentBill))))
	assert.Equal(t, int64(1), reader.Sum("backoffice_payment_posted_total",
		telemetry.AttrPaymentStatus.String(string(finance.PaymentStatusPaid))))
	assert.Equal(t, int64(10000), reader.Sum("backoffice_payment_amount_total"))
	assert.Equal(t, int64(1), reader.Sum("backoffice_operation_rejected_total",
		telemetry.AttrOperation.String("pay_bill"),
		telemetry.AttrErrorCode.String("OVERPAYMENT"),
		telemetry.AttrRetriable.Bool(false)))
}
