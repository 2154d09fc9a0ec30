package finance

import (
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is derived from the paid amount of a payable document
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "Unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "PartiallyPaid"
	PaymentStatusPaid          PaymentStatus = "Paid"
)

// DefaultEpsilon absorbs currency rounding when comparing paid and total amounts
var DefaultEpsilon = decimal.New(1, -2)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartiallyPaid, PaymentStatusPaid:
		return true
	}
	return false
}

func (s PaymentStatus) String() string {
	return string(s)
}

// DerivePaymentStatus maps a paid amount to a status:
// Paid once paid >= total - eps, PartiallyPaid while 0 < paid, Unpaid otherwise.
func DerivePaymentStatus(total, paid, eps decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total.Sub(eps)):
		return PaymentStatusPaid
	case paid.IsPositive():
		return PaymentStatusPartiallyPaid
	default:
		return PaymentStatusUnpaid
	}
}

// RemainingBalance returns total - paid floored at zero
func RemainingBalance(total, paid decimal.Decimal) decimal.Decimal {
	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// CheckPayment validates a payment against the locked totals.
// A payment is an overpayment when the excess over the total reaches eps.
func CheckPayment(total, paid, amount, eps decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	excess := paid.Add(amount).Sub(total)
	if excess.GreaterThanOrEqual(eps) {
		return &shared.OverpaymentError{
			RemainingBalance: RemainingBalance(total, paid),
			Attempted:        amount,
		}
	}
	return nil
}

// DocumentKind identifies which payable document a transaction settles
type DocumentKind string

const (
	DocumentBill         DocumentKind = "Bill"
	DocumentPurchaseBill DocumentKind = "PurchaseBill"
	DocumentPayslip      DocumentKind = "Payslip"
)

// DocumentRef points at a payable document
type DocumentRef struct {
	Kind DocumentKind
	ID   uuid.UUID
}

func (r DocumentRef) String() string {
	return fmt.Sprintf("%s %s", r.Kind, r.ID)
}
