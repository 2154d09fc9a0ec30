package telemetry

import (
	"context"
	"errors"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when an instrument set is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Bill synthesis outcomes
const (
	OutcomeCreated = "created"
	OutcomeQueued  = "queued"
)

// Reconciliation retry outcomes
const (
	OutcomeResolved = "resolved"
	OutcomeFailed   = "failed"
	OutcomeGivenUp  = "given_up"
)

// LedgerMetrics counts what the posting, receiving and procure-to-pay services do.
// Rejections carry the error code and whether the caller may retry, so lock
// contention and overpayment attempts can be told apart.
// A nil *LedgerMetrics records nothing.
type LedgerMetrics struct {
	paymentsPosted     *Counter
	paymentAmountCents *Counter
	rejections         *Counter
	linesReceived      *Counter
	invoiceDecisions   *Counter
	billSynthesis      *Counter
	reconciliations    *Counter
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &LedgerMetrics{}
	var err error
	if m.paymentsPosted, err = NewCounter(meter, "backoffice_payment_posted_total",
		"Payments committed against payable documents", "{payment}"); err != nil {
		return nil, err
	}
	if m.paymentAmountCents, err = NewCounter(meter, "backoffice_payment_amount_total",
		"Committed payment amount in cents", "{cent}"); err != nil {
		return nil, err
	}
	if m.rejections, err = NewCounter(meter, "backoffice_operation_rejected_total",
		"Ledger operations that returned an error, by code", "{operation}"); err != nil {
		return nil, err
	}
	if m.linesReceived, err = NewCounter(meter, "backoffice_goods_received_lines_total",
		"Purchase bill lines applied to stock", "{line}"); err != nil {
		return nil, err
	}
	if m.invoiceDecisions, err = NewCounter(meter, "backoffice_invoice_decision_total",
		"Invoice approvals and rejections", "{invoice}"); err != nil {
		return nil, err
	}
	if m.billSynthesis, err = NewCounter(meter, "backoffice_bill_synthesis_total",
		"Bills created on approval or queued for reconciliation", "{bill}"); err != nil {
		return nil, err
	}
	if m.reconciliations, err = NewCounter(meter, "backoffice_reconciliation_attempt_total",
		"Reconciliation retry outcomes", "{attempt}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordPayment counts a committed payment
func (m *LedgerMetrics) RecordPayment(ctx context.Context, tenantID uuid.UUID, kind string, status string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.paymentsPosted.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrDocumentKind.String(kind),
		AttrPaymentStatus.String(status),
	)
	m.paymentAmountCents.Add(ctx, amount.Shift(2).IntPart(), AttrDocumentKind.String(kind))
}

// RecordRejection counts a failed operation. Errors without a domain code are
// counted as INTERNAL.
func (m *LedgerMetrics) RecordRejection(ctx context.Context, operation string, err error) {
	if m == nil || err == nil {
		return
	}
	code := shared.ErrorCode(err)
	if code == "" {
		code = "INTERNAL"
	}
	m.rejections.Inc(ctx,
		AttrOperation.String(operation),
		AttrErrorCode.String(code),
		AttrRetriable.Bool(shared.IsRetriable(err)),
	)
}

// RecordReceipt counts lines applied by one goods receipt
func (m *LedgerMetrics) RecordReceipt(ctx context.Context, tenantID uuid.UUID, lines int, deliveryStatus string) {
	if m == nil {
		return
	}
	m.linesReceived.Add(ctx, int64(lines),
		AttrTenantID.String(tenantID.String()),
		AttrDeliveryStatus.String(deliveryStatus),
	)
}

// RecordDecision counts an approved or rejected invoice
func (m *LedgerMetrics) RecordDecision(ctx context.Context, decision string) {
	if m == nil {
		return
	}
	m.invoiceDecisions.Inc(ctx, AttrDecision.String(decision))
}

// RecordBillSynthesis counts OutcomeCreated or OutcomeQueued
func (m *LedgerMetrics) RecordBillSynthesis(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.billSynthesis.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordReconciliation counts one retry outcome
func (m *LedgerMetrics) RecordReconciliation(ctx context.Context, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.reconciliations.Add(ctx, int64(n), AttrOutcome.String(outcome))
}
