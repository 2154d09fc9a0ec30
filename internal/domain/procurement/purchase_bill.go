package procurement

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseBillItem is a line of a purchase bill. It is owned by its bill and
// deleted with it.
type PurchaseBillItem struct {
	ID               uuid.UUID
	PurchaseBillID   uuid.UUID
	InventoryItemID  uuid.UUID
	OrderedQuantity  decimal.Decimal
	ReceivedQuantity decimal.Decimal
	PricePerUnit     decimal.Decimal
	LineTotal        decimal.Decimal
}

// NewPurchaseBillItem creates a line with lineTotal = orderedQuantity x pricePerUnit
func NewPurchaseBillItem(inventoryItemID uuid.UUID, ordered, price decimal.Decimal) (PurchaseBillItem, error) {
	if inventoryItemID == uuid.Nil {
		return PurchaseBillItem{}, shared.NewDomainError("INVALID_ITEM", "Inventory item ID cannot be empty")
	}
	if !ordered.IsPositive() {
		return PurchaseBillItem{}, shared.NewDomainError("INVALID_QUANTITY", "Ordered quantity must be positive")
	}
	if price.IsNegative() {
		return PurchaseBillItem{}, shared.NewDomainError("INVALID_PRICE", "Price per unit cannot be negative")
	}
	return PurchaseBillItem{
		ID:               uuid.New(),
		InventoryItemID:  inventoryItemID,
		OrderedQuantity:  ordered,
		ReceivedQuantity: decimal.Zero,
		PricePerUnit:     price,
		LineTotal:        ordered.Mul(price).Round(2),
	}, nil
}

// SetReceived records a new cumulative received quantity and returns the delta
// against the previous one. The quantity must lie within [0, ordered].
func (i *PurchaseBillItem) SetReceived(received decimal.Decimal) (decimal.Decimal, error) {
	if received.IsNegative() || received.GreaterThan(i.OrderedQuantity) {
		return decimal.Zero, &shared.InvalidQuantityError{
			ItemID:   i.ID,
			Received: received,
			Ordered:  i.OrderedQuantity,
		}
	}
	delta := received.Sub(i.ReceivedQuantity)
	i.ReceivedQuantity = received
	return delta, nil
}

// PurchaseBill is a supplier bill for stocked goods
type PurchaseBill struct {
	shared.TenantAggregateRoot
	BillNumber        string
	SupplierContactID uuid.UUID
	IssueDate         time.Time
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	Status            finance.PaymentStatus
	DeliveryStatus    DeliveryStatus
	ItemsReceived     bool
	Items             []PurchaseBillItem
}

// NewPurchaseBill creates an unpaid purchase bill whose total is the sum of its lines
func NewPurchaseBill(tenantID, createdBy uuid.UUID, billNumber string, supplierContactID uuid.UUID, issueDate time.Time, items []PurchaseBillItem) (*PurchaseBill, error) {
	billNumber = strings.TrimSpace(billNumber)
	if billNumber == "" {
		return nil, shared.NewDomainError("INVALID_BILL_NUMBER", "Bill number cannot be empty")
	}
	if supplierContactID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier contact ID cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Purchase bill must have at least one item")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	pb := &PurchaseBill{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		BillNumber:          billNumber,
		SupplierContactID:   supplierContactID,
		IssueDate:           issueDate,
		TotalAmount:         decimal.Zero,
		PaidAmount:          decimal.Zero,
		Status:              finance.PaymentStatusUnpaid,
		DeliveryStatus:      DeliveryStatusPending,
	}
	for _, item := range items {
		item.PurchaseBillID = pb.ID
		pb.TotalAmount = pb.TotalAmount.Add(item.LineTotal)
		pb.Items = append(pb.Items, item)
	}
	return pb, nil
}

// Item returns the line with the given id
func (b *PurchaseBill) Item(id uuid.UUID) (*PurchaseBillItem, bool) {
	for idx := range b.Items {
		if b.Items[idx].ID == id {
			return &b.Items[idx], true
		}
	}
	return nil, false
}

// EnsureReceivable rejects receiving goods before the bill is settled
func (b *PurchaseBill) EnsureReceivable() error {
	if b.Status != finance.PaymentStatusPaid {
		return shared.NewDomainError("BILL_NOT_PAID", "Goods can only be received against a paid purchase bill")
	}
	return nil
}

// ApplyPaidTotal sets the authoritative paid amount and re-derives the status
func (b *PurchaseBill) ApplyPaidTotal(paid, eps decimal.Decimal) finance.PaymentStatus {
	prev := b.Status
	b.PaidAmount = paid
	b.Status = finance.DerivePaymentStatus(b.TotalAmount, paid, eps)
	b.Touch()
	return prev
}

// RefreshDelivery recomputes the delivery status from the lines
func (b *PurchaseBill) RefreshDelivery(eps decimal.Decimal) DeliveryStatus {
	lines := make([]ReceiptLine, len(b.Items))
	for i, item := range b.Items {
		lines[i] = ReceiptLine{Ordered: item.OrderedQuantity, Received: item.ReceivedQuantity}
	}
	b.DeliveryStatus = ResolveDeliveryStatus(lines, eps)
	b.ItemsReceived = b.DeliveryStatus == DeliveryStatusReceived
	b.Touch()
	return b.DeliveryStatus
}
