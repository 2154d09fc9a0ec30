package dto

import (
	"github.com/erp/backoffice/internal/application/inventory"
	"github.com/google/uuid"
)

// ReceiveRequest is the body of POST /purchase-bills/:id/receive
type ReceiveRequest struct {
	Lines []inventory.ReceiveLine `json:"lines" binding:"required,min=1,dive"`
}

// ToInput converts the request into service input
func (r ReceiveRequest) ToInput(tenantID, actorID, purchaseBillID uuid.UUID) inventory.ReceiveRequest {
	return inventory.ReceiveRequest{
		TenantID:       tenantID,
		ActorID:        actorID,
		PurchaseBillID: purchaseBillID,
		Lines:          r.Lines,
	}
}
