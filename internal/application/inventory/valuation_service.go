// Package inventory receives goods against paid purchase bills and keeps the
// weighted-average cost of stock.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/backoffice/internal/application/unitofwork"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/procurement"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ValuationService applies goods receipts to stock
type ValuationService struct {
	scope   unitofwork.TransactionScope
	events  shared.EventPublisher
	epsilon decimal.Decimal
	metrics *telemetry.LedgerMetrics
}

// NewValuationService creates a new ValuationService
func NewValuationService(scope unitofwork.TransactionScope, events shared.EventPublisher, epsilon decimal.Decimal) *ValuationService {
	if !epsilon.IsPositive() {
		epsilon = finance.DefaultEpsilon
	}
	return &ValuationService{scope: scope, events: events, epsilon: epsilon}
}

// SetMetrics sets the ledger metrics collector
func (s *ValuationService) SetMetrics(m *telemetry.LedgerMetrics) {
	s.metrics = m
}

// Receive records cumulative received quantities for the given lines. All lines
// are applied in one transaction under a lock on the purchase bill; any failing
// line aborts the call with no stock change.
func (s *ValuationService) Receive(ctx context.Context, req ReceiveRequest) (*ReceiveResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "receive")
	defer span.End()
	telemetry.SetAttributes(span,
		"tenant_id", req.TenantID,
		"purchase_bill_id", req.PurchaseBillID,
		"lines", len(req.Lines),
	)

	if len(req.Lines) == 0 {
		err := shared.NewDomainError("INVALID_INPUT", "At least one line is required")
		telemetry.RecordError(span, err)
		s.metrics.RecordRejection(ctx, "receive", err)
		return nil, err
	}

	var (
		bill    *procurement.PurchaseBill
		applied []procurement.ReceivedLine
	)
	err := s.scope.Execute(ctx, func(repos unitofwork.TransactionalRepositories) error {
		var err error
		bill, err = repos.PurchaseBills().LockForUpdate(ctx, req.TenantID, req.PurchaseBillID)
		if err != nil {
			return err
		}
		if err := bill.EnsureReceivable(); err != nil {
			return err
		}

		applied = make([]procurement.ReceivedLine, 0, len(req.Lines))
		for _, line := range req.Lines {
			rl, err := s.receiveLine(ctx, repos, bill, line)
			if err != nil {
				return err
			}
			applied = append(applied, rl)
		}

		if err := repos.PurchaseBills().SaveReceivedQuantities(ctx, bill); err != nil {
			return err
		}
		bill.RefreshDelivery(s.epsilon)
		return repos.PurchaseBills().Save(ctx, bill, shared.AnyVersion())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRejection(ctx, "receive", err)
		return nil, err
	}

	s.metrics.RecordReceipt(ctx, req.TenantID, len(applied), string(bill.DeliveryStatus))
	telemetry.AddEvent(span, "items_received",
		"delivery_status", string(bill.DeliveryStatus),
	)
	s.publish(ctx, procurement.NewItemsReceivedEvent(bill, req.ActorID, applied))
	return toReceiveResponse(bill), nil
}

func (s *ValuationService) receiveLine(
	ctx context.Context,
	repos unitofwork.TransactionalRepositories,
	bill *procurement.PurchaseBill,
	line ReceiveLine,
) (procurement.ReceivedLine, error) {
	item, ok := bill.Item(line.ItemID)
	if !ok {
		return procurement.ReceivedLine{}, fmt.Errorf("purchase bill item %s: %w", line.ItemID, shared.ErrNotFound)
	}
	if _, err := repos.InventoryItems().FindByIDForTenant(ctx, bill.TenantID, item.InventoryItemID); err != nil {
		return procurement.ReceivedLine{}, err
	}

	delta, err := item.SetReceived(line.ReceivedQuantity)
	if err != nil {
		return procurement.ReceivedLine{}, err
	}
	switch {
	case delta.IsPositive():
		err = repos.Stocks().Accumulate(ctx, bill.TenantID, item.InventoryItemID, delta, item.PricePerUnit)
	case delta.IsNegative():
		err = repos.Stocks().Contract(ctx, bill.TenantID, item.InventoryItemID, delta.Abs())
	}
	if err != nil {
		return procurement.ReceivedLine{}, err
	}

	return procurement.ReceivedLine{
		ItemID:           item.ID,
		InventoryItemID:  item.InventoryItemID,
		ReceivedQuantity: item.ReceivedQuantity,
		Delta:            delta,
	}, nil
}

// GetStock returns the stock of an inventory item. An item that never received
// anything has zero quantity and zero cost.
func (s *ValuationService) GetStock(ctx context.Context, tenantID, inventoryItemID uuid.UUID) (*StockResponse, error) {
	repos := s.scope.Repositories()
	if _, err := repos.InventoryItems().FindByIDForTenant(ctx, tenantID, inventoryItemID); err != nil {
		return nil, err
	}
	stock, err := repos.Stocks().FindByItem(ctx, tenantID, inventoryItemID)
	if errors.Is(err, shared.ErrNotFound) {
		return &StockResponse{InventoryItemID: inventoryItemID}, nil
	}
	if err != nil {
		return nil, err
	}
	return toStockResponse(stock), nil
}

func (s *ValuationService) publish(ctx context.Context, event shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("failed to publish receiving event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}
