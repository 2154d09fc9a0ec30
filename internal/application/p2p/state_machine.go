// Package p2p drives the cross-tenant procure-to-pay flow: a supplier flips a
// purchase order into an invoice, the buyer approves or rejects it, and an
// approval materializes a payable bill in the buyer's ledger.
package p2p

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/application/unitofwork"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/p2p"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	entityPurchaseOrder = "PurchaseOrder"
	entityInvoice       = "P2PInvoice"
)

// StateMachineService runs the invoice lifecycle
type StateMachineService struct {
	scope       unitofwork.TransactionScope
	events      shared.EventPublisher
	synthesizer *BillSynthesizer
	metrics     *telemetry.LedgerMetrics
}

// NewStateMachineService creates a new StateMachineService
func NewStateMachineService(scope unitofwork.TransactionScope, events shared.EventPublisher, synthesizer *BillSynthesizer) *StateMachineService {
	return &StateMachineService{scope: scope, events: events, synthesizer: synthesizer}
}

// SetMetrics sets the ledger metrics collector
func (s *StateMachineService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// FlipRequest turns a purchase order into an invoice. TenantID is the caller,
// who must be the order's supplier.
type FlipRequest struct {
	TenantID  uuid.UUID
	ActorID   uuid.UUID
	POID      uuid.UUID
	IssueDate time.Time
}

// DecisionRequest approves or rejects an invoice. TenantID is the caller,
// who must be the invoice's buyer.
type DecisionRequest struct {
	TenantID  uuid.UUID
	ActorID   uuid.UUID
	InvoiceID uuid.UUID
	Reason    string
}

// ApprovalResult reports both phases of an approval. Approved is always true
// when no error is returned; BillCreated is false when bill synthesis failed
// and was queued for reconciliation.
type ApprovalResult struct {
	Invoice          *p2p.Invoice  `json:"invoice"`
	Approved         bool          `json:"approved"`
	BillCreated      bool          `json:"bill_created"`
	Bill             *finance.Bill `json:"-"`
	ReconciliationID *uuid.UUID    `json:"reconciliation_id,omitempty"`
}

// Flip creates a pending invoice from a sent or received purchase order and
// marks the order invoiced, in one transaction.
func (s *StateMachineService) Flip(ctx context.Context, req FlipRequest) (*p2p.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "p2p", "flip")
	defer span.End()
	telemetry.SetAttributes(span, "tenant_id", req.TenantID, "po_id", req.POID)

	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	var inv *p2p.Invoice
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		po, err := repos.PurchaseOrders().LockForSupplier(ctx, req.TenantID, req.POID)
		if err != nil {
			return err
		}
		from := po.Status
		if err := po.MarkInvoiced(); err != nil {
			return err
		}

		inv = p2p.NewInvoiceFromOrder(po, req.ActorID, issueDate)
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return err
		}
		if err := repos.PurchaseOrders().Save(ctx, po, shared.AnyVersion()); err != nil {
			return err
		}

		return repos.Audit().Append(ctx,
			shared.NewActionAudit(inv.TenantID, entityInvoice, inv.ID, shared.AuditActionLinked, req.ActorID,
				map[string]any{"po_id": po.ID.String(), "po_number": po.PONumber}),
			shared.NewStatusAudit(po.TenantID, entityPurchaseOrder, po.ID,
				string(from), string(po.Status), req.ActorID, ""),
		)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRejection(ctx, "flip", err)
		return nil, err
	}

	s.publish(ctx, p2p.NewInvoiceFlippedEvent(inv, req.ActorID))
	return inv, nil
}

// Approve moves a pending invoice to APPROVED and then synthesizes the bill.
// The approval commits first; a synthesis failure is recorded for
// reconciliation and reported in the result instead of failing the call.
func (s *StateMachineService) Approve(ctx context.Context, req DecisionRequest) (*ApprovalResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "p2p", "approve")
	defer span.End()
	telemetry.SetAttributes(span, "tenant_id", req.TenantID, "invoice_id", req.InvoiceID)

	inv, err := s.decide(ctx, req, func(inv *p2p.Invoice) (p2p.InvoiceStatus, error) {
		return inv.Approve(req.ActorID, req.Reason)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRejection(ctx, "approve", err)
		return nil, err
	}
	s.metrics.RecordDecision(ctx, string(inv.Status))

	result := &ApprovalResult{Invoice: inv, Approved: true}
	bill, err := s.synthesizer.Synthesize(ctx, inv, req.ActorID)
	if err != nil {
		telemetry.RecordError(span, err)
		logger.FromContext(ctx).Warn("bill synthesis failed, queued for reconciliation",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("tenant_id", inv.BuyerTenantID.String()),
			zap.Error(err),
		)
		result.ReconciliationID = s.recordReconciliation(ctx, inv, err)
		s.metrics.RecordBillSynthesis(ctx, telemetry.OutcomeQueued)
	} else {
		result.BillCreated = true
		result.Bill = bill
		telemetry.AddEvent(span, "bill_created", "bill_id", bill.ID)
		s.metrics.RecordBillSynthesis(ctx, telemetry.OutcomeCreated)
	}

	var billID *uuid.UUID
	if bill != nil {
		billID = &bill.ID
	}
	s.publish(ctx, p2p.NewInvoiceApprovedEvent(inv, req.ActorID, billID))
	if bill != nil {
		s.publish(ctx, finance.NewBillCreatedEvent(bill, req.ActorID))
	}
	return result, nil
}

// Reject moves a pending invoice to REJECTED. A reason is required.
func (s *StateMachineService) Reject(ctx context.Context, req DecisionRequest) (*p2p.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "p2p", "reject")
	defer span.End()
	telemetry.SetAttributes(span, "tenant_id", req.TenantID, "invoice_id", req.InvoiceID)

	inv, err := s.decide(ctx, req, func(inv *p2p.Invoice) (p2p.InvoiceStatus, error) {
		return inv.Reject(req.ActorID, req.Reason)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRejection(ctx, "reject", err)
		return nil, err
	}
	s.metrics.RecordDecision(ctx, string(inv.Status))
	s.publish(ctx, p2p.NewInvoiceRejectedEvent(inv, req.ActorID))
	return inv, nil
}

// decide locks the invoice for its buyer, applies the transition and writes the audit row
func (s *StateMachineService) decide(
	ctx context.Context,
	req DecisionRequest,
	transition func(inv *p2p.Invoice) (p2p.InvoiceStatus, error),
) (*p2p.Invoice, error) {
	var inv *p2p.Invoice
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		inv, err = repos.Invoices().LockForBuyer(ctx, req.TenantID, req.InvoiceID)
		if err != nil {
			return err
		}
		from, err := transition(inv)
		if err != nil {
			return err
		}
		if err := repos.Invoices().Save(ctx, inv, shared.AnyVersion()); err != nil {
			return err
		}
		return repos.Audit().Append(ctx, shared.NewStatusAudit(req.TenantID, entityInvoice, inv.ID,
			string(from), string(inv.Status), req.ActorID, inv.Reason))
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *StateMachineService) recordReconciliation(ctx context.Context, inv *p2p.Invoice, cause error) *uuid.UUID {
	rec := p2p.NewBillReconciliation(inv.BuyerTenantID, inv.ID, cause)
	if err := s.scope.Repositories().Reconciliations().Create(ctx, rec); err != nil {
		logger.FromContext(ctx).Error("failed to record bill reconciliation",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	return &rec.ID
}

func (s *StateMachineService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("failed to publish p2p event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}
