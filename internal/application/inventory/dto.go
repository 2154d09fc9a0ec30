package inventory

import (
	"github.com/erp/backoffice/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiveLine sets the cumulative received quantity of one purchase bill line
type ReceiveLine struct {
	ItemID           uuid.UUID       `json:"item_id" binding:"required"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
}

// ReceiveRequest is one receiving call against a purchase bill
type ReceiveRequest struct {
	TenantID       uuid.UUID
	ActorID        uuid.UUID
	PurchaseBillID uuid.UUID
	Lines          []ReceiveLine
}

// ReceivedItemResponse is a purchase bill line after receiving
type ReceivedItemResponse struct {
	ItemID           uuid.UUID       `json:"item_id"`
	InventoryItemID  uuid.UUID       `json:"inventory_item_id"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	PricePerUnit     decimal.Decimal `json:"price_per_unit"`
}

// ReceiveResponse is the committed state of the purchase bill after receiving
type ReceiveResponse struct {
	PurchaseBillID uuid.UUID                  `json:"purchase_bill_id"`
	Items          []ReceivedItemResponse     `json:"items"`
	AllReceived    bool                       `json:"all_received"`
	DeliveryStatus procurement.DeliveryStatus `json:"delivery_status"`
}

// StockResponse is the on-hand quantity and average cost of an item
type StockResponse struct {
	InventoryItemID uuid.UUID       `json:"inventory_item_id"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	AverageCost     decimal.Decimal `json:"average_cost"`
	TotalValue      decimal.Decimal `json:"total_value"`
}

func toReceiveResponse(b *procurement.PurchaseBill) *ReceiveResponse {
	resp := &ReceiveResponse{
		PurchaseBillID: b.ID,
		Items:          make([]ReceivedItemResponse, len(b.Items)),
		AllReceived:    b.ItemsReceived,
		DeliveryStatus: b.DeliveryStatus,
	}
	for i, item := range b.Items {
		resp.Items[i] = ReceivedItemResponse{
			ItemID:           item.ID,
			InventoryItemID:  item.InventoryItemID,
			OrderedQuantity:  item.OrderedQuantity,
			ReceivedQuantity: item.ReceivedQuantity,
			PricePerUnit:     item.PricePerUnit,
		}
	}
	return resp
}

func toStockResponse(s *procurement.InventoryStock) *StockResponse {
	return &StockResponse{
		InventoryItemID: s.InventoryItemID,
		CurrentQuantity: s.CurrentQuantity,
		AverageCost:     s.AverageCost,
		TotalValue:      s.CurrentQuantity.Mul(s.AverageCost).Round(2),
	}
}
