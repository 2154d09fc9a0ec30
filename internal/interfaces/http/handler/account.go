package handler

import (
	"github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// AccountHandler handles money account endpoints
type AccountHandler struct {
	BaseHandler
	accounts *ledger.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *ledger.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Create handles POST /accounts
func (h *AccountHandler) Create(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req dto.CreateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	acc, err := h.accounts.CreateAccount(c.Request.Context(), ledger.CreateAccountInput{
		TenantID:       id.TenantID,
		ActorID:        id.UserID,
		Name:           req.Name,
		Type:           finance.AccountType(req.Type),
		Currency:       req.Currency,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToAccountResponse(acc))
}

// Get handles GET /accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	accID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	acc, err := h.accounts.GetAccount(c.Request.Context(), id.TenantID, accID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToAccountResponse(acc))
}

// Update handles PUT /accounts/:id
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	accID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}

	acc, err := h.accounts.UpdateAccount(c.Request.Context(), ledger.UpdateAccountInput{
		TenantID: id.TenantID,
		ID:       accID,
		Version:  req.Version,
		Name:     req.Name,
		Type:     finance.AccountType(req.Type),
		Currency: req.Currency,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToAccountResponse(acc))
}
