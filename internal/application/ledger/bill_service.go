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

// BillService handles versioned CRUD on bills. Settled bills are immutable.
type BillService struct {
	scope   unitofwork.TransactionScope
	events  shared.EventPublisher
	epsilon decimal.Decimal
}

// NewBillService creates a new BillService
func NewBillService(scope unitofwork.TransactionScope, events shared.EventPublisher, epsilon decimal.Decimal) *BillService {
	if !epsilon.IsPositive() {
		epsilon = finance.DefaultEpsilon
	}
	return &BillService{scope: scope, events: events, epsilon: epsilon}
}

// BillItemInput is one line of a new bill
type BillItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreateBillInput holds the fields of a new bill
type CreateBillInput struct {
	TenantID    uuid.UUID
	ActorID     uuid.UUID
	BillNumber  string
	ContactID   uuid.UUID
	ProjectID   *uuid.UUID
	IssueDate   time.Time
	DueDate     time.Time
	TotalAmount decimal.Decimal
	Notes       string
	Items       []BillItemInput
}

// UpdateBillInput carries the changes and the version the caller last saw.
// A nil Version performs a blind write.
type UpdateBillInput struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
	ID       uuid.UUID
	Version  *int
	Changes  finance.BillChanges
}

// CreateBill creates an unpaid bill
func (s *BillService) CreateBill(ctx context.Context, in CreateBillInput) (*finance.Bill, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", "create")
	defer span.End()

	items := make([]finance.BillItem, 0, len(in.Items))
	for _, line := range in.Items {
		item, err := finance.NewBillItem(line.Description, line.Quantity, line.UnitPrice)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		items = append(items, item)
	}
	bill, err := finance.NewBill(finance.NewBillParams{
		TenantID:    in.TenantID,
		CreatedBy:   in.ActorID,
		BillNumber:  in.BillNumber,
		ContactID:   in.ContactID,
		ProjectID:   in.ProjectID,
		IssueDate:   in.IssueDate,
		DueDate:     in.DueDate,
		TotalAmount: in.TotalAmount,
		Notes:       in.Notes,
		Items:       items,
		Epsilon:     s.epsilon,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	err = s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		if _, err := repos.Contacts().FindByIDForTenant(ctx, in.TenantID, in.ContactID); err != nil {
			return err
		}
		return repos.Bills().Create(ctx, bill)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, finance.NewBillCreatedEvent(bill, in.ActorID))
	return bill, nil
}

// GetBill returns a live bill
func (s *BillService) GetBill(ctx context.Context, tenantID, id uuid.UUID) (*finance.Bill, error) {
	return s.scope.Repositories().Bills().FindByIDForTenant(ctx, tenantID, id)
}

// ListBills lists the tenant's live bills
func (s *BillService) ListBills(ctx context.Context, tenantID uuid.UUID, filter finance.BillFilter) (shared.Paginated[finance.Bill], error) {
	bills, total, err := s.scope.Repositories().Bills().FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return shared.Paginated[finance.Bill]{}, err
	}
	return shared.NewPaginated(bills, total, filter.Page, filter.PageSize), nil
}

// UpdateBill edits a bill. The row is locked so a concurrent payment cannot
// settle it between the immutability check and the write.
func (s *BillService) UpdateBill(ctx context.Context, in UpdateBillInput) (*finance.Bill, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", "update")
	defer span.End()
	telemetry.SetAttributes(span, "bill_id", in.ID, "tenant_id", in.TenantID)

	var bill *finance.Bill
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		bill, err = repos.Bills().LockForPayment(ctx, in.TenantID, in.ID)
		if err != nil {
			return err
		}
		if err := checkVersion("Bill", bill.ID, bill.Version, in.Version); err != nil {
			return err
		}
		if in.Changes.ContactID != nil {
			if _, err := repos.Contacts().FindByIDForTenant(ctx, in.TenantID, *in.Changes.ContactID); err != nil {
				return err
			}
		}
		if err := bill.Apply(in.Changes, s.epsilon); err != nil {
			return err
		}
		return repos.Bills().Save(ctx, bill, shared.ExpectFromPtr(in.Version))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return bill, nil
}

// DeleteBill soft-deletes a bill. A settled bill cannot be deleted.
func (s *BillService) DeleteBill(ctx context.Context, tenantID, id uuid.UUID, version *int) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", "delete")
	defer span.End()

	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		bill, err := repos.Bills().LockForPayment(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if err := checkVersion("Bill", bill.ID, bill.Version, version); err != nil {
			return err
		}
		if err := bill.MarkDeleted(); err != nil {
			return err
		}
		return repos.Bills().SoftDelete(ctx, bill, shared.ExpectFromPtr(version))
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// RestoreBill clears the soft-delete marker. It is the only path that brings a deleted bill back.
func (s *BillService) RestoreBill(ctx context.Context, tenantID, id uuid.UUID, version *int) (*finance.Bill, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bill", "restore")
	defer span.End()

	var bill *finance.Bill
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		bill, err = repos.Bills().FindByIDIncludingDeleted(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !bill.IsDeleted() {
			return shared.NewDomainError("INVALID_STATE", "Bill is not deleted")
		}
		bill.Restore()
		return repos.Bills().Restore(ctx, bill, shared.ExpectFromPtr(version))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return bill, nil
}

func (s *BillService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("failed to publish bill event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

// checkVersion rejects a stale version before any domain rule runs.
// The store repeats the comparison atomically on write.
func checkVersion(entity string, id uuid.UUID, stored shared.NullableVersion, expected *int) error {
	if !stored.Matches(shared.ExpectFromPtr(expected)) {
		return shared.NewConflictError(entity, id, stored)
	}
	return nil
}
