package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/application/inventory"
	"github.com/erp/backoffice/internal/application/ledger"
	p2papp "github.com/erp/backoffice/internal/application/p2p"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/cache"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/erp/backoffice/internal/interfaces/http/handler"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/erp/backoffice/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiStack struct {
	engine *gin.Engine
	jwt    *auth.JWTService
	fx     *testutil.Fixtures
	token  string
}

func newAPIStack(t *testing.T) *apiStack {
	t.Helper()

	scope, _ := testutil.NewScope(t)
	events := testutil.NewRecordingPublisher()
	eps := decimal.RequireFromString("0.01")

	synth := p2papp.NewBillSynthesizer(scope, 30)
	jwtSvc := auth.NewJWTService(config.JWTConfig{Secret: "router-test-secret-0123456789abcdef", Issuer: "backoffice"})
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	engine := New(Config{
		Verifier:         jwtSvc,
		IdempotencyStore: store,
		IdempotencyTTL:   time.Hour,
		Tracing:          middleware.TracingConfig{Enabled: false},
	}, Handlers{
		Bills:     handler.NewBillHandler(ledger.NewBillService(scope, events, eps)),
		Accounts:  handler.NewAccountHandler(ledger.NewAccountService(scope)),
		Payments:  handler.NewPaymentHandler(ledger.NewPostingService(scope, events, eps)),
		Inventory: handler.NewInventoryHandler(inventory.NewValuationService(scope, events, eps)),
		P2P:       handler.NewP2PHandler(p2papp.NewStateMachineService(scope, events, synth)),
		Health:    handler.NewHealthHandler(nil),
	})

	fx := testutil.NewFixtures(t, scope, testutil.TestTenantID())
	return &apiStack{
		engine: engine,
		jwt:    jwtSvc,
		fx:     fx,
		token:  issue(t, jwtSvc, fx.TenantID, fx.ActorID),
	}
}

func issue(t *testing.T, jwtSvc *auth.JWTService, tenantID, userID uuid.UUID) string {
	t.Helper()
	token, err := jwtSvc.Issue(tenantID, userID, "tester", time.Hour)
	require.NoError(t, err)
	return token
}

type apiResponse struct {
	Code    int
	Header  http.Header
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   map[string]interface{} `json:"error"`
	Meta    map[string]interface{} `json:"meta"`
}

func (s *apiStack) do(t *testing.T, token, method, path string, body interface{}, headers ...string) apiResponse {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	resp := apiResponse{Code: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		var raw map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
		resp.Success, _ = raw["success"].(bool)
		resp.Data, _ = raw["data"].(map[string]interface{})
		resp.Error, _ = raw["error"].(map[string]interface{})
		resp.Meta, _ = raw["meta"].(map[string]interface{})
	}
	return resp
}

func dec(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(fmt.Sprint(v))
	require.NoError(t, err)
	return d
}

func TestRouter_PublicAndAuth(t *testing.T) {
	s := newAPIStack(t)

	health := s.do(t, "", http.MethodGet, HealthPath, nil)
	assert.Equal(t, http.StatusOK, health.Code)

	unauth := s.do(t, "", http.MethodGet, "/api/v1/bills", nil)
	assert.Equal(t, http.StatusUnauthorized, unauth.Code)
	assert.Equal(t, "UNAUTHORIZED", unauth.Error["code"])

	badID := s.do(t, s.token, http.MethodGet, "/api/v1/bills/nope", nil)
	assert.Equal(t, http.StatusBadRequest, badID.Code)
}

func TestRouter_BillLifecycle(t *testing.T) {
	s := newAPIStack(t)
	vendor := s.fx.Vendor("Acme", nil)
	account := s.fx.Account("1000")

	created := s.do(t, s.token, http.MethodPost, "/api/v1/bills", map[string]interface{}{
		"bill_number":  "B-100",
		"contact_id":   vendor.ID,
		"issue_date":   "2026-03-01T00:00:00Z",
		"due_date":     "2026-03-31T00:00:00Z",
		"total_amount": "100",
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Error)
	billID := created.Data["id"].(string)
	assert.Equal(t, float64(1), created.Data["version"])
	assert.Equal(t, "Unpaid", created.Data["status"])

	list := s.do(t, s.token, http.MethodGet, "/api/v1/bills?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, float64(1), list.Meta["total"])

	t.Run("optimistic concurrency", func(t *testing.T) {
		updated := s.do(t, s.token, http.MethodPut, "/api/v1/bills/"+billID, map[string]interface{}{
			"version": 1,
			"notes":   "first edit",
		})
		require.Equal(t, http.StatusOK, updated.Code, updated.Error)
		assert.Equal(t, float64(2), updated.Data["version"])

		stale := s.do(t, s.token, http.MethodPut, "/api/v1/bills/"+billID, map[string]interface{}{
			"version": 1,
			"notes":   "lost update",
		})
		require.Equal(t, http.StatusConflict, stale.Code)
		assert.Equal(t, "CONCURRENCY_CONFLICT", stale.Error["code"])
		details := stale.Error["details"].(map[string]interface{})
		assert.Equal(t, float64(2), details["server_version"])
	})

	payPath := "/api/v1/bills/" + billID + "/payments"

	t.Run("partial payment", func(t *testing.T) {
		paid := s.do(t, s.token, http.MethodPost, payPath, map[string]interface{}{
			"account_id": account.ID,
			"amount":     "60",
		})
		require.Equal(t, http.StatusCreated, paid.Code, paid.Error)
		assert.Equal(t, "PartiallyPaid", paid.Data["status"])
		assert.True(t, dec(t, paid.Data["remaining_balance"]).Equal(decimal.NewFromInt(40)))
		assert.Len(t, paid.Data["transactions"], 1)
	})

	t.Run("overpayment is rejected with the remaining balance", func(t *testing.T) {
		over := s.do(t, s.token, http.MethodPost, payPath, map[string]interface{}{
			"account_id": account.ID,
			"amount":     "50",
		})
		require.Equal(t, http.StatusBadRequest, over.Code)
		assert.Equal(t, "OVERPAYMENT", over.Error["code"])
		details := over.Error["details"].(map[string]interface{})
		assert.Equal(t, "40.00", details["remaining_balance"])
	})

	t.Run("idempotent settlement", func(t *testing.T) {
		body := map[string]interface{}{"account_id": account.ID, "amount": "40"}

		first := s.do(t, s.token, http.MethodPost, payPath, body, middleware.IdempotencyKeyHeader, "settle-1")
		require.Equal(t, http.StatusCreated, first.Code, first.Error)
		assert.Equal(t, "Paid", first.Data["status"])

		again := s.do(t, s.token, http.MethodPost, payPath, body, middleware.IdempotencyKeyHeader, "settle-1")
		assert.Equal(t, http.StatusConflict, again.Code)
		assert.Equal(t, "DUPLICATE_REQUEST", again.Error["code"])
	})

	t.Run("paid bill is immutable", func(t *testing.T) {
		edit := s.do(t, s.token, http.MethodPut, "/api/v1/bills/"+billID, map[string]interface{}{"notes": "late"})
		assert.Equal(t, http.StatusUnprocessableEntity, edit.Code)
		assert.Equal(t, "IMMUTABLE_RECORD", edit.Error["code"])

		del := s.do(t, s.token, http.MethodDelete, "/api/v1/bills/"+billID, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, del.Code)
	})

	t.Run("other tenants cannot see the bill", func(t *testing.T) {
		other := issue(t, s.jwt, uuid.New(), uuid.New())
		resp := s.do(t, other, http.MethodGet, "/api/v1/bills/"+billID, nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestRouter_DeleteAndRestore(t *testing.T) {
	s := newAPIStack(t)
	bill := s.fx.Bill("75")
	path := "/api/v1/bills/" + bill.ID.String()

	del := s.do(t, s.token, http.MethodDelete, path+"?version=1", nil)
	require.Equal(t, http.StatusNoContent, del.Code, del.Error)

	gone := s.do(t, s.token, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, gone.Code)

	restored := s.do(t, s.token, http.MethodPost, path+"/restore", nil)
	require.Equal(t, http.StatusOK, restored.Code, restored.Error)
	assert.Equal(t, bill.ID.String(), restored.Data["id"])

	again := s.do(t, s.token, http.MethodPost, path+"/restore", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, again.Code)
	assert.Equal(t, "INVALID_STATE", again.Error["code"])
}

func TestRouter_ReceiveRequiresPaidPurchaseBill(t *testing.T) {
	s := newAPIStack(t)
	item := s.fx.InventoryItem()
	pb := s.fx.PurchaseBill(testutil.PurchaseLine{InventoryItemID: item.ID, Ordered: "10", Price: "4"})
	account := s.fx.Account("500")
	base := "/api/v1/purchase-bills/" + pb.ID.String()
	receive := map[string]interface{}{
		"lines": []map[string]interface{}{{"item_id": pb.Items[0].ID, "received_quantity": "5"}},
	}

	early := s.do(t, s.token, http.MethodPost, base+"/receive", receive)
	require.Equal(t, http.StatusUnprocessableEntity, early.Code)
	assert.Equal(t, "BILL_NOT_PAID", early.Error["code"])

	paid := s.do(t, s.token, http.MethodPost, base+"/payments", map[string]interface{}{
		"account_id": account.ID,
		"amount":     "40",
	})
	require.Equal(t, http.StatusCreated, paid.Code, paid.Error)
	assert.Equal(t, "Paid", paid.Data["status"])

	received := s.do(t, s.token, http.MethodPost, base+"/receive", receive)
	require.Equal(t, http.StatusOK, received.Code, received.Error)
	assert.Equal(t, false, received.Data["all_received"])

	stock := s.do(t, s.token, http.MethodGet, "/api/v1/inventory/stock/"+item.ID.String(), nil)
	require.Equal(t, http.StatusOK, stock.Code, stock.Error)
	assert.True(t, dec(t, stock.Data["current_quantity"]).Equal(decimal.NewFromInt(5)))
	assert.True(t, dec(t, stock.Data["average_cost"]).Equal(decimal.NewFromInt(4)))

	tooMany := s.do(t, s.token, http.MethodPost, base+"/receive", map[string]interface{}{
		"lines": []map[string]interface{}{{"item_id": pb.Items[0].ID, "received_quantity": "11"}},
	})
	assert.Equal(t, http.StatusBadRequest, tooMany.Code)
	assert.Equal(t, "INVALID_QUANTITY", tooMany.Error["code"])
}

func TestRouter_ProcureToPay(t *testing.T) {
	s := newAPIStack(t)
	supplierTenant, supplierUser := uuid.New(), uuid.New()
	supplierToken := issue(t, s.jwt, supplierTenant, supplierUser)

	po := s.fx.PurchaseOrder(supplierTenant, "Widget Co", [2]string{"2", "50"})

	buyerFlip := s.do(t, s.token, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/flip", nil)
	assert.NotEqual(t, http.StatusCreated, buyerFlip.Code)

	flipped := s.do(t, supplierToken, http.MethodPost, "/api/v1/purchase-orders/"+po.ID.String()+"/flip", nil)
	require.Equal(t, http.StatusCreated, flipped.Code, flipped.Error)
	assert.Equal(t, "PENDING", flipped.Data["status"])
	invoiceID := flipped.Data["id"].(string)

	approved := s.do(t, s.token, http.MethodPost, "/api/v1/p2p-invoices/"+invoiceID+"/approve", map[string]interface{}{
		"reason": "goods match order",
	})
	require.Equal(t, http.StatusOK, approved.Code, approved.Error)
	assert.Equal(t, true, approved.Data["approved"])
	assert.Equal(t, true, approved.Data["bill_created"])
	billID, ok := approved.Data["bill_id"].(string)
	require.True(t, ok)

	bill := s.do(t, s.token, http.MethodGet, "/api/v1/bills/"+billID, nil)
	require.Equal(t, http.StatusOK, bill.Code, bill.Error)
	assert.True(t, dec(t, bill.Data["total_amount"]).Equal(decimal.NewFromInt(100)))
	assert.Equal(t, invoiceID, bill.Data["source_invoice_id"])

	rejected := s.do(t, s.token, http.MethodPost, "/api/v1/p2p-invoices/"+invoiceID+"/reject", map[string]interface{}{
		"reason": "changed my mind",
	})
	require.Equal(t, http.StatusBadRequest, rejected.Code)
	assert.Equal(t, "INVALID_TRANSITION", rejected.Error["code"])
	details := rejected.Error["details"].(map[string]interface{})
	assert.Equal(t, "APPROVED", details["from"])
	assert.Equal(t, "REJECTED", details["to"])
}

func TestRouter_ValidationDetails(t *testing.T) {
	s := newAPIStack(t)
	pb := s.fx.PurchaseBill(testutil.PurchaseLine{InventoryItemID: s.fx.InventoryItem().ID, Ordered: "1", Price: "1"})

	empty := s.do(t, s.token, http.MethodPost, "/api/v1/purchase-bills/"+pb.ID.String()+"/receive",
		map[string]interface{}{"lines": []interface{}{}})
	require.Equal(t, http.StatusBadRequest, empty.Code)
	assert.Equal(t, "INVALID_INPUT", empty.Error["code"])
	details := empty.Error["details"].(map[string]interface{})
	assert.Equal(t, "Must be at least 1", details["lines"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_JSON")
}
