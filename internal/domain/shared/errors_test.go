package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTypedErrors(t *testing.T) {
	id := uuid.New()
	cause := errors.New("pq: could not obtain lock")

	tests := []struct {
		name      string
		err       error
		sentinel  error
		code      string
		retriable bool
	}{
		{"conflict", NewConflictError("Bill", id, VersionOf(4)), ErrConcurrencyConflict, "CONCURRENCY_CONFLICT", false},
		{"lock timeout", &LockTimeoutError{Resource: "bill", Cause: cause}, ErrLockTimeout, "LOCK_TIMEOUT", true},
		{"overpayment", &OverpaymentError{RemainingBalance: decimal.NewFromInt(10), Attempted: decimal.NewFromInt(11)}, ErrOverpayment, "OVERPAYMENT", false},
		{"invalid quantity", &InvalidQuantityError{ItemID: id}, ErrInvalidQuantity, "INVALID_QUANTITY", false},
		{"invalid transition", &TransitionError{Entity: "P2PInvoice", From: "APPROVED", To: "REJECTED"}, ErrInvalidTransition, "INVALID_TRANSITION", false},
		{"immutable", &ImmutableRecordError{Entity: "Bill", ID: id, Status: "Paid"}, ErrImmutableRecord, "IMMUTABLE_RECORD", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("pay bill: %w", tc.err)
			assert.ErrorIs(t, wrapped, tc.sentinel)
			assert.Equal(t, tc.code, ErrorCode(wrapped))
			assert.Equal(t, tc.retriable, IsRetriable(wrapped))
		})
	}
}

func TestConflictError_ServerVersion(t *testing.T) {
	id := uuid.New()

	withVersion := NewConflictError("Bill", id, VersionOf(4))
	assert.Equal(t, 4, *withVersion.ServerVersion)
	assert.Contains(t, withVersion.Error(), "server version 4")

	legacy := NewConflictError("Bill", id, NoVersion())
	assert.Nil(t, legacy.ServerVersion)
}

func TestLockTimeoutError_KeepsCause(t *testing.T) {
	cause := errors.New("driver: lock not available")
	err := &LockTimeoutError{Resource: "purchase bill", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "purchase bill is locked by a concurrent request", err.Error())
}

func TestErrorCode_Unknown(t *testing.T) {
	assert.Equal(t, "", ErrorCode(errors.New("boom")))
	assert.False(t, IsRetriable(ErrConcurrencyConflict))
}
