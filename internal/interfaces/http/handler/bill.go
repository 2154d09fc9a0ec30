package handler

import (
	"github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BillHandler handles bill CRUD endpoints
type BillHandler struct {
	BaseHandler
	bills *ledger.BillService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(bills *ledger.BillService) *BillHandler {
	return &BillHandler{bills: bills}
}

// Create handles POST /bills
func (h *BillHandler) Create(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.CreateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bill, err := h.bills.CreateBill(c.Request.Context(), req.ToInput(id.TenantID, id.UserID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToBillResponse(bill))
}

// Get handles GET /bills/:id
func (h *BillHandler) Get(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	billID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	bill, err := h.bills.GetBill(c.Request.Context(), id.TenantID, billID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToBillResponse(bill))
}

// List handles GET /bills
func (h *BillHandler) List(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.ListBillsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.bills.ListBills(c.Request.Context(), id.TenantID, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.ToBillResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Update handles PUT /bills/:id. The body's version guards against lost updates.
func (h *BillHandler) Update(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	billID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateBillRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bill, err := h.bills.UpdateBill(c.Request.Context(), ledger.UpdateBillInput{
		TenantID: id.TenantID,
		ActorID:  id.UserID,
		ID:       billID,
		Version:  req.Version,
		Changes:  req.ToChanges(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToBillResponse(bill))
}

// Delete handles DELETE /bills/:id. The version may come as ?version=N.
func (h *BillHandler) Delete(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	billID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.VersionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.bills.DeleteBill(c.Request.Context(), id.TenantID, billID, req.Version); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Restore handles POST /bills/:id/restore
func (h *BillHandler) Restore(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	billID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.VersionRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	bill, err := h.bills.RestoreBill(c.Request.Context(), id.TenantID, billID, req.Version)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToBillResponse(bill))
}
