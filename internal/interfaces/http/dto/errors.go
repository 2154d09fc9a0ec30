package dto

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
)

// Transport-level codes that have no domain error
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeNotFound        = "NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	"FORBIDDEN":         http.StatusForbidden,

	"NOT_FOUND":      http.StatusNotFound,
	"RECORD_DELETED": http.StatusGone,

	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"LOCK_TIMEOUT":         http.StatusConflict,
	"DUPLICATE_REQUEST":    http.StatusConflict,

	"OVERPAYMENT":        http.StatusBadRequest,
	"INVALID_QUANTITY":   http.StatusBadRequest,
	"INVALID_TRANSITION": http.StatusBadRequest,
	ErrCodeInvalidInput:  http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,

	"IMMUTABLE_RECORD": http.StatusUnprocessableEntity,
	"INVALID_STATE":    http.StatusUnprocessableEntity,
	"BILL_NOT_PAID":    http.StatusUnprocessableEntity,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the status for a code. Unlisted INVALID_* codes are
// input errors; any other domain code is a business rule rejection.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	if code == "" {
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

// FromError converts err into a status and error body. Errors without a
// domain code are reported as INTERNAL_ERROR with a generic message.
func FromError(err error) (int, ErrorInfo) {
	code := shared.ErrorCode(err)
	if code == "" {
		return http.StatusInternalServerError, ErrorInfo{
			Code:    ErrCodeInternal,
			Message: "An unexpected error occurred",
		}
	}

	info := ErrorInfo{
		Code:      code,
		Message:   err.Error(),
		Retriable: shared.IsRetriable(err),
		Details:   errorDetails(err),
	}
	return GetHTTPStatus(code), info
}

func errorDetails(err error) map[string]any {
	var (
		conflict  *shared.ConflictError
		overpay   *shared.OverpaymentError
		quantity  *shared.InvalidQuantityError
		transit   *shared.TransitionError
		immutable *shared.ImmutableRecordError
		lock      *shared.LockTimeoutError
	)
	switch {
	case errors.As(err, &conflict):
		d := map[string]any{"entity": conflict.Entity, "id": conflict.ID}
		if conflict.ServerVersion != nil {
			d["server_version"] = *conflict.ServerVersion
		} else {
			d["server_version"] = nil
		}
		return d
	case errors.As(err, &overpay):
		return map[string]any{
			"remaining_balance": overpay.RemainingBalance.StringFixed(2),
			"attempted":         overpay.Attempted.StringFixed(2),
		}
	case errors.As(err, &quantity):
		return map[string]any{
			"item_id":  quantity.ItemID,
			"received": quantity.Received.String(),
			"ordered":  quantity.Ordered.String(),
		}
	case errors.As(err, &transit):
		return map[string]any{"entity": transit.Entity, "from": transit.From, "to": transit.To}
	case errors.As(err, &immutable):
		return map[string]any{"entity": immutable.Entity, "id": immutable.ID, "status": immutable.Status}
	case errors.As(err, &lock):
		if lock.Resource != "" {
			return map[string]any{"resource": lock.Resource}
		}
	}
	return nil
}
