package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrRecordDeleted       = NewDomainError("RECORD_DELETED", "Resource has been deleted")
	ErrLockTimeout         = NewDomainError("LOCK_TIMEOUT", "Resource is locked by a concurrent request")
	ErrOverpayment         = NewDomainError("OVERPAYMENT", "Payment exceeds the remaining balance")
	ErrInvalidQuantity     = NewDomainError("INVALID_QUANTITY", "Received quantity is out of range")
	ErrInvalidTransition   = NewDomainError("INVALID_TRANSITION", "Status transition is not allowed")
	ErrImmutableRecord     = NewDomainError("IMMUTABLE_RECORD", "Record is immutable")
	ErrDuplicateRequest    = NewDomainError("DUPLICATE_REQUEST", "Request with this idempotency key was already processed")
)

// ConflictError is returned when an expected version does not match the stored one.
// ServerVersion is nil when the stored row has no version yet.
type ConflictError struct {
	Entity        string
	ID            uuid.UUID
	ServerVersion *int
}

func (e *ConflictError) Error() string {
	if e.ServerVersion == nil {
		return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %s was modified concurrently (server version %d)", e.Entity, e.ID, *e.ServerVersion)
}

func (e *ConflictError) Unwrap() error { return ErrConcurrencyConflict }

// NewConflictError creates a ConflictError carrying the version currently stored
func NewConflictError(entity string, id uuid.UUID, server NullableVersion) *ConflictError {
	err := &ConflictError{Entity: entity, ID: id}
	if v, ok := server.Get(); ok {
		err.ServerVersion = &v
	}
	return err
}

// LockTimeoutError signals that a row lock could not be acquired without waiting.
// It is the only retriable error class.
type LockTimeoutError struct {
	Resource string
	Cause    error
}

func (e *LockTimeoutError) Error() string {
	if e.Resource == "" {
		return "resource is locked by a concurrent request"
	}
	return fmt.Sprintf("%s is locked by a concurrent request", e.Resource)
}

func (e *LockTimeoutError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrLockTimeout}
	}
	return []error{ErrLockTimeout, e.Cause}
}

// OverpaymentError is returned when a payment would push the paid amount past the total
type OverpaymentError struct {
	RemainingBalance decimal.Decimal
	Attempted        decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds remaining balance %s",
		e.Attempted.StringFixed(2), e.RemainingBalance.StringFixed(2))
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// InvalidQuantityError is returned when a received quantity is negative or above the ordered quantity
type InvalidQuantityError struct {
	ItemID   uuid.UUID
	Received decimal.Decimal
	Ordered  decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("received quantity %s for item %s must be between 0 and %s",
		e.Received.String(), e.ItemID, e.Ordered.String())
}

func (e *InvalidQuantityError) Unwrap() error { return ErrInvalidQuantity }

// TransitionError names the rejected status pair
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ImmutableRecordError is returned on any edit or delete of a settled record
type ImmutableRecordError struct {
	Entity string
	ID     uuid.UUID
	Status string
}

func (e *ImmutableRecordError) Error() string {
	return fmt.Sprintf("%s %s is %s and can no longer be modified", e.Entity, e.ID, e.Status)
}

func (e *ImmutableRecordError) Unwrap() error { return ErrImmutableRecord }

// IsRetriable reports whether the caller may retry the same request unchanged
func IsRetriable(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}

// ErrorCode returns the domain code carried by err, or an empty string
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
