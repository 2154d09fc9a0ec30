package procurement

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventTypeItemsReceived is raised after a receiving call has been committed
const EventTypeItemsReceived = "procurement.items_received"

// ReceivedLine describes one applied line of a receiving call
type ReceivedLine struct {
	ItemID           uuid.UUID       `json:"item_id"`
	InventoryItemID  uuid.UUID       `json:"inventory_item_id"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	Delta            decimal.Decimal `json:"delta"`
}

// ItemsReceivedEvent is raised when goods are received against a purchase bill
type ItemsReceivedEvent struct {
	shared.BaseDomainEvent
	PurchaseBillID uuid.UUID      `json:"purchase_bill_id"`
	Lines          []ReceivedLine `json:"lines"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	AllReceived    bool           `json:"all_received"`
}

// NewItemsReceivedEvent creates an ItemsReceivedEvent
func NewItemsReceivedEvent(b *PurchaseBill, actorID uuid.UUID, lines []ReceivedLine) *ItemsReceivedEvent {
	return &ItemsReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemsReceived, "PurchaseBill", b.ID, b.TenantID, actorID),
		PurchaseBillID:  b.ID,
		Lines:           lines,
		DeliveryStatus:  b.DeliveryStatus,
		AllReceived:     b.ItemsReceived,
	}
}
