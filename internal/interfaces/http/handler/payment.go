package handler

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PaymentHandler posts payments against bills, purchase bills and payslips
type PaymentHandler struct {
	BaseHandler
	posting *ledger.PostingService
	now     func() time.Time
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(posting *ledger.PostingService) *PaymentHandler {
	return &PaymentHandler{posting: posting, now: time.Now}
}

type postFunc func(ctx context.Context, req ledger.PaymentRequest) (*ledger.PaymentResult, error)

// PayBill handles POST /bills/:id/payments
func (h *PaymentHandler) PayBill(c *gin.Context) {
	h.pay(c, h.posting.PayBill)
}

// PayPurchaseBill handles POST /purchase-bills/:id/payments
func (h *PaymentHandler) PayPurchaseBill(c *gin.Context) {
	h.pay(c, h.posting.PayPurchaseBill)
}

// PayPayslip handles POST /payslips/:id/payments
func (h *PaymentHandler) PayPayslip(c *gin.Context) {
	h.pay(c, h.posting.PayPayslip)
}

func (h *PaymentHandler) pay(c *gin.Context, post postFunc) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	docID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := post(c.Request.Context(), req.ToInput(id.TenantID, id.UserID, docID, h.now()))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToPaymentResponse(result))
}
