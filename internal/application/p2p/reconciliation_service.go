package p2p

import (
	"context"

	"github.com/erp/backoffice/internal/application/unitofwork"
	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds how often a bill synthesis is retried
const DefaultMaxAttempts = 10

// ReconciliationService retries bill synthesis for approved invoices whose bill
// could not be created at approval time.
type ReconciliationService struct {
	scope       unitofwork.TransactionScope
	synthesizer *BillSynthesizer
	maxAttempts int
	metrics     *telemetry.LedgerMetrics
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(scope unitofwork.TransactionScope, synthesizer *BillSynthesizer, maxAttempts int) *ReconciliationService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &ReconciliationService{scope: scope, synthesizer: synthesizer, maxAttempts: maxAttempts}
}

// SetMetrics sets the ledger metrics collector
func (s *ReconciliationService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// RetryReport summarizes one pass
type RetryReport struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
	GivenUp   int `json:"given_up"`
}

// RetryPending re-runs synthesis for up to batch pending records, oldest first.
// A failure on one record does not stop the pass.
func (s *ReconciliationService) RetryPending(ctx context.Context, batch int) (RetryReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "p2p", "retry_reconciliations")
	defer span.End()

	var report RetryReport
	repos := s.scope.Repositories()
	pending, err := repos.Reconciliations().FindPending(ctx, batch)
	if err != nil {
		telemetry.RecordError(span, err)
		return report, err
	}

	log := logger.FromContext(ctx)
	for i := range pending {
		rec := &pending[i]
		report.Attempted++

		inv, err := repos.Invoices().FindByIDForBuyer(ctx, rec.TenantID, rec.InvoiceID)
		if err == nil {
			bill, synthErr := s.synthesizer.Synthesize(ctx, inv, actorOf(inv))
			if synthErr == nil {
				rec.Resolve(bill.ID)
				report.Resolved++
			}
			err = synthErr
		}
		if err != nil {
			rec.RecordFailure(err, s.maxAttempts)
			report.Failed++
			if rec.Status == p2p.ReconciliationFailed {
				report.GivenUp++
			}
			log.Warn("bill reconciliation attempt failed",
				zap.String("reconciliation_id", rec.ID.String()),
				zap.String("invoice_id", rec.InvoiceID.String()),
				zap.Int("attempts", rec.Attempts),
				zap.Error(err),
			)
		}

		if err := repos.Reconciliations().Update(ctx, rec); err != nil {
			telemetry.RecordError(span, err)
			return report, err
		}
	}

	s.metrics.RecordReconciliation(ctx, telemetry.OutcomeResolved, report.Resolved)
	s.metrics.RecordReconciliation(ctx, telemetry.OutcomeFailed, report.Failed-report.GivenUp)
	s.metrics.RecordReconciliation(ctx, telemetry.OutcomeGivenUp, report.GivenUp)
	telemetry.SetAttributes(span,
		"attempted", report.Attempted,
		"resolved", report.Resolved,
		"failed", report.Failed,
	)
	return report, nil
}

// actorOf attributes a retried synthesis to the user who approved the invoice
func actorOf(inv *p2p.Invoice) uuid.UUID {
	if inv.DecidedBy != nil {
		return *inv.DecidedBy
	}
	return uuid.Nil
}
