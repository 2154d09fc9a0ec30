package handler

import (
	"github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// InventoryHandler handles receiving and stock lookups
type InventoryHandler struct {
	BaseHandler
	valuation *inventory.ValuationService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(valuation *inventory.ValuationService) *InventoryHandler {
	return &InventoryHandler{valuation: valuation}
}

// Receive handles POST /purchase-bills/:id/receive
func (h *InventoryHandler) Receive(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	billID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReceiveRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.valuation.Receive(c.Request.Context(), req.ToInput(id.TenantID, id.UserID, billID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetStock handles GET /inventory/stock/:itemId
func (h *InventoryHandler) GetStock(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "itemId")
	if !ok {
		return
	}

	stock, err := h.valuation.GetStock(c.Request.Context(), id.TenantID, itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock)
}
