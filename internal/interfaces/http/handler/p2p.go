package handler

import (
	"time"

	p2papp "github.com/erp/backoffice/internal/application/p2p"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// P2PHandler drives the procure-to-pay state machine
type P2PHandler struct {
	BaseHandler
	machine *p2papp.StateMachineService
	now     func() time.Time
}

// NewP2PHandler creates a new P2PHandler
func NewP2PHandler(machine *p2papp.StateMachineService) *P2PHandler {
	return &P2PHandler{machine: machine, now: time.Now}
}

// Flip handles POST /purchase-orders/:id/flip. The caller must be the supplier.
func (h *P2PHandler) Flip(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	poID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.FlipRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	issueDate := h.now()
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}

	inv, err := h.machine.Flip(c.Request.Context(), p2papp.FlipRequest{
		TenantID:  id.TenantID,
		ActorID:   id.UserID,
		POID:      poID,
		IssueDate: issueDate,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToInvoiceResponse(inv))
}

// Approve handles POST /p2p-invoices/:id/approve. The approval stands even
// when the bill could not be created; bill_created reports which happened.
func (h *P2PHandler) Approve(c *gin.Context) {
	req, ok := h.decision(c)
	if !ok {
		return
	}
	result, err := h.machine.Approve(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToApprovalResponse(result))
}

// Reject handles POST /p2p-invoices/:id/reject
func (h *P2PHandler) Reject(c *gin.Context) {
	req, ok := h.decision(c)
	if !ok {
		return
	}
	inv, err := h.machine.Reject(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToInvoiceResponse(inv))
}

func (h *P2PHandler) decision(c *gin.Context) (p2papp.DecisionRequest, bool) {
	id, ok := h.identity(c)
	if !ok {
		return p2papp.DecisionRequest{}, false
	}
	invID, ok := h.pathID(c, "id")
	if !ok {
		return p2papp.DecisionRequest{}, false
	}
	var req dto.DecisionRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return p2papp.DecisionRequest{}, false
	}
	return p2papp.DecisionRequest{
		TenantID:  id.TenantID,
		ActorID:   id.UserID,
		InvoiceID: invID,
		Reason:    req.Reason,
	}, true
}
