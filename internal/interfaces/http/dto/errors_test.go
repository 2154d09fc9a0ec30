package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	five := 5

	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantRetriable bool
		wantDetails   map[string]any
	}{
		{
			name:       "not found",
			err:        fmt.Errorf("bill %s: %w", id, shared.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:        "version conflict carries server version",
			err:         &shared.ConflictError{Entity: "Bill", ID: id, ServerVersion: &five},
			wantStatus:  http.StatusConflict,
			wantCode:    "CONCURRENCY_CONFLICT",
			wantDetails: map[string]any{"entity": "Bill", "id": id, "server_version": 5},
		},
		{
			name:        "conflict on unversioned row",
			err:         &shared.ConflictError{Entity: "Bill", ID: id},
			wantStatus:  http.StatusConflict,
			wantCode:    "CONCURRENCY_CONFLICT",
			wantDetails: map[string]any{"entity": "Bill", "id": id, "server_version": nil},
		},
		{
			name:          "lock timeout is retriable",
			err:           &shared.LockTimeoutError{Resource: "bill", Cause: errors.New("55P03")},
			wantStatus:    http.StatusConflict,
			wantCode:      "LOCK_TIMEOUT",
			wantRetriable: true,
			wantDetails:   map[string]any{"resource": "bill"},
		},
		{
			name:        "overpayment carries remaining balance",
			err:         &shared.OverpaymentError{RemainingBalance: decimal.RequireFromString("40"), Attempted: decimal.RequireFromString("50.5")},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "OVERPAYMENT",
			wantDetails: map[string]any{"remaining_balance": "40.00", "attempted": "50.50"},
		},
		{
			name:        "invalid quantity",
			err:         &shared.InvalidQuantityError{ItemID: id, Received: decimal.RequireFromString("11"), Ordered: decimal.RequireFromString("10")},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "INVALID_QUANTITY",
			wantDetails: map[string]any{"item_id": id, "received": "11", "ordered": "10"},
		},
		{
			name:        "invalid transition names the pair",
			err:         &shared.TransitionError{Entity: "P2PInvoice", From: "APPROVED", To: "REJECTED"},
			wantStatus:  http.StatusBadRequest,
			wantCode:    "INVALID_TRANSITION",
			wantDetails: map[string]any{"entity": "P2PInvoice", "from": "APPROVED", "to": "REJECTED"},
		},
		{
			name:        "immutable record",
			err:         &shared.ImmutableRecordError{Entity: "Bill", ID: id, Status: "Paid"},
			wantStatus:  http.StatusUnprocessableEntity,
			wantCode:    "IMMUTABLE_RECORD",
			wantDetails: map[string]any{"entity": "Bill", "id": id, "status": "Paid"},
		},
		{
			name:       "record deleted",
			err:        shared.ErrRecordDeleted,
			wantStatus: http.StatusGone,
			wantCode:   "RECORD_DELETED",
		},
		{
			name:       "unlisted invalid code is a bad request",
			err:        shared.NewDomainError("INVALID_AMOUNT", "Amount must be positive"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_AMOUNT",
		},
		{
			name:       "other business rule",
			err:        shared.NewDomainError("BILL_NOT_PAID", "Purchase bill must be paid"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "BILL_NOT_PAID",
		},
		{
			name:       "unknown error hides its message",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, info := FromError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantCode, info.Code)
			assert.Equal(t, tc.wantRetriable, info.Retriable)
			assert.Equal(t, tc.wantDetails, info.Details)
			assert.NotContains(t, info.Message, "pq:")
		})
	}
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, GetHTTPStatus(ErrCodeRateLimited))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus("DUPLICATE_REQUEST"))
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus("INVALID_REASON"))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(""))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1}, 41, 2, 20)
	assert.True(t, resp.Success)
	assert.Equal(t, &Meta{Total: 41, Page: 2, PageSize: 20, TotalPages: 3}, resp.Meta)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}
