// Package ledger posts payments against payable documents and manages bills and accounts.
package ledger

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/application/unitofwork"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PostingService records payments. Each payment runs as one transaction that
// locks the document row, checks for overpayment, inserts the transaction rows,
// re-sums the paid amount and writes the derived status.
type PostingService struct {
	scope   unitofwork.TransactionScope
	events  shared.EventPublisher
	epsilon decimal.Decimal
	metrics *telemetry.LedgerMetrics
}

// NewPostingService creates a new PostingService. A zero epsilon uses finance.DefaultEpsilon.
func NewPostingService(scope unitofwork.TransactionScope, events shared.EventPublisher, epsilon decimal.Decimal) *PostingService {
	if !epsilon.IsPositive() {
		epsilon = finance.DefaultEpsilon
	}
	return &PostingService{scope: scope, events: events, epsilon: epsilon}
}

// SetMetrics sets the ledger metrics collector
func (s *PostingService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// PaymentRequest describes one payment against a payable document
type PaymentRequest struct {
	TenantID    uuid.UUID
	ActorID     uuid.UUID
	DocumentID  uuid.UUID
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Date        time.Time
	ProjectID   *uuid.UUID
	Description string
	Reference   string
}

// PaymentResult is the committed state after a payment
type PaymentResult struct {
	Document         finance.DocumentRef    `json:"-"`
	Transactions     []finance.Transaction  `json:"transactions"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	PaidAmount       decimal.Decimal        `json:"paid_amount"`
	RemainingBalance decimal.Decimal        `json:"remaining_balance"`
	PreviousStatus   finance.PaymentStatus  `json:"previous_status"`
	Status           finance.PaymentStatus  `json:"status"`
	Version          shared.NullableVersion `json:"version"`
}

// payable adapts a locked document to the posting algorithm
type payable struct {
	doc       finance.DocumentRef
	total     decimal.Decimal
	paid      decimal.Decimal
	contactID *uuid.UUID
	projectID *uuid.UUID
	split     func(amount decimal.Decimal) ([]finance.AllocationSplit, error)
	apply     func(paid decimal.Decimal) (prev, next finance.PaymentStatus)
	save      func(ctx context.Context) (shared.NullableVersion, error)
}

// PayBill pays a bill
func (s *PostingService) PayBill(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	return s.post(ctx, "pay_bill", req, func(ctx context.Context, repos unitofwork.TransactionalRepositories) (*payable, error) {
		bill, err := repos.Bills().LockForPayment(ctx, req.TenantID, req.DocumentID)
		if err != nil {
			return nil, err
		}
		contactID := bill.ContactID
		return &payable{
			doc:       finance.DocumentRef{Kind: finance.DocumentBill, ID: bill.ID},
			total:     bill.TotalAmount,
			paid:      bill.PaidAmount,
			contactID: &contactID,
			projectID: bill.ProjectID,
			apply: func(paid decimal.Decimal) (finance.PaymentStatus, finance.PaymentStatus) {
				prev := bill.ApplyPaidTotal(paid, s.epsilon)
				return prev, bill.Status
			},
			save: func(ctx context.Context) (shared.NullableVersion, error) {
				err := repos.Bills().Save(ctx, bill, shared.AnyVersion())
				return bill.Version, err
			},
		}, nil
	})
}

// PayPurchaseBill pays a purchase bill. A paid purchase bill is the precondition for receiving goods.
func (s *PostingService) PayPurchaseBill(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	return s.post(ctx, "pay_purchase_bill", req, func(ctx context.Context, repos unitofwork.TransactionalRepositories) (*payable, error) {
		pb, err := repos.PurchaseBills().LockForUpdate(ctx, req.TenantID, req.DocumentID)
		if err != nil {
			return nil, err
		}
		contactID := pb.SupplierContactID
		return &payable{
			doc:       finance.DocumentRef{Kind: finance.DocumentPurchaseBill, ID: pb.ID},
			total:     pb.TotalAmount,
			paid:      pb.PaidAmount,
			contactID: &contactID,
			apply: func(paid decimal.Decimal) (finance.PaymentStatus, finance.PaymentStatus) {
				prev := pb.ApplyPaidTotal(paid, s.epsilon)
				return prev, pb.Status
			},
			save: func(ctx context.Context) (shared.NullableVersion, error) {
				err := repos.PurchaseBills().Save(ctx, pb, shared.AnyVersion())
				return pb.Version, err
			},
		}, nil
	})
}

// PayPayslip pays a payslip, booking one transaction per project allocation
func (s *PostingService) PayPayslip(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	return s.post(ctx, "pay_payslip", req, func(ctx context.Context, repos unitofwork.TransactionalRepositories) (*payable, error) {
		slip, err := repos.Payslips().LockForPayment(ctx, req.TenantID, req.DocumentID)
		if err != nil {
			return nil, err
		}
		contactID := slip.EmployeeContactID
		return &payable{
			doc:       finance.DocumentRef{Kind: finance.DocumentPayslip, ID: slip.ID},
			total:     slip.NetPay,
			paid:      slip.PaidAmount,
			contactID: &contactID,
			split:     slip.SplitPayment,
			apply: func(paid decimal.Decimal) (finance.PaymentStatus, finance.PaymentStatus) {
				prev := slip.ApplyPaidTotal(paid, s.epsilon)
				return prev, slip.Status
			},
			save: func(ctx context.Context) (shared.NullableVersion, error) {
				err := repos.Payslips().Save(ctx, slip, shared.AnyVersion())
				return slip.Version, err
			},
		}, nil
	})
}

func (s *PostingService) post(
	ctx context.Context,
	method string,
	req PaymentRequest,
	lock func(ctx context.Context, repos unitofwork.TransactionalRepositories) (*payable, error),
) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", method)
	defer span.End()
	telemetry.SetAttributes(span,
		"tenant_id", req.TenantID,
		"document_id", req.DocumentID,
		"account_id", req.AccountID,
		"amount", req.Amount.String(),
	)

	if !req.Amount.IsPositive() {
		err := shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
		telemetry.RecordError(span, err)
		s.metrics.RecordRejection(ctx, method, err)
		return nil, err
	}

	var result *PaymentResult
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		target, err := lock(ctx, repos)
		if err != nil {
			return err
		}
		// totals come from the locked row, never from an earlier read
		if err := finance.CheckPayment(target.total, target.paid, req.Amount, s.epsilon); err != nil {
			return err
		}

		txs, err := s.buildTransactions(req, target)
		if err != nil {
			return err
		}
		if err := repos.Transactions().Create(ctx, txs...); err != nil {
			return err
		}

		paid, err := repos.Transactions().SumByDocument(ctx, req.TenantID, target.doc)
		if err != nil {
			return err
		}
		prev, next := target.apply(paid)
		version, err := target.save(ctx)
		if err != nil {
			return err
		}

		if err := repos.Accounts().ApplyBalanceDelta(ctx, req.TenantID, req.AccountID, req.Amount.Neg()); err != nil {
			return err
		}

		txIDs := make([]string, len(txs))
		for i, tx := range txs {
			txIDs[i] = tx.ID.String()
		}
		entry := shared.NewActionAudit(req.TenantID, string(target.doc.Kind), target.doc.ID,
			shared.AuditActionPaymentPosted, req.ActorID, map[string]any{
				"transaction_ids": txIDs,
				"account_id":      req.AccountID.String(),
				"amount":          req.Amount.String(),
				"paid_amount":     paid.String(),
			})
		entry.FromStatus = string(prev)
		entry.ToStatus = string(next)
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		result = &PaymentResult{
			Document:         target.doc,
			TotalAmount:      target.total,
			PaidAmount:       paid,
			RemainingBalance: finance.RemainingBalance(target.total, paid),
			PreviousStatus:   prev,
			Status:           next,
			Version:          version,
		}
		for _, tx := range txs {
			result.Transactions = append(result.Transactions, *tx)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRejection(ctx, method, err)
		return nil, err
	}

	s.metrics.RecordPayment(ctx, req.TenantID, string(result.Document.Kind), string(result.Status), req.Amount)
	telemetry.AddEvent(span, "payment_posted",
		"paid_amount", result.PaidAmount.String(),
		"status", string(result.Status),
	)
	s.publish(ctx, req, result)
	return result, nil
}

func (s *PostingService) buildTransactions(req PaymentRequest, target *payable) ([]*finance.Transaction, error) {
	projectID := req.ProjectID
	if projectID == nil {
		projectID = target.projectID
	}
	splits := []finance.AllocationSplit{{ProjectID: projectID, Amount: req.Amount}}
	if target.split != nil {
		var err error
		if splits, err = target.split(req.Amount); err != nil {
			return nil, err
		}
	}

	txs := make([]*finance.Transaction, 0, len(splits))
	for _, sp := range splits {
		tx, err := finance.NewExpense(finance.ExpenseParams{
			TenantID:    req.TenantID,
			Document:    target.doc,
			AccountID:   req.AccountID,
			Amount:      sp.Amount,
			Date:        req.Date,
			ContactID:   target.contactID,
			ProjectID:   sp.ProjectID,
			Description: req.Description,
			Reference:   req.Reference,
			CreatedBy:   req.ActorID,
		})
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// publish emits the payment event. The payment is already committed, so a
// failure here is only logged.
func (s *PostingService) publish(ctx context.Context, req PaymentRequest, result *PaymentResult) {
	if s.events == nil {
		return
	}
	txIDs := make([]uuid.UUID, len(result.Transactions))
	for i, tx := range result.Transactions {
		txIDs[i] = tx.ID
	}
	event := finance.NewPaymentPostedEvent(req.TenantID, req.ActorID, result.Document, txIDs,
		req.AccountID, req.Amount, result.PaidAmount, result.Status)
	if err := s.events.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("failed to publish payment event",
			zap.String("document", result.Document.String()),
			zap.Error(err),
		)
	}
}
