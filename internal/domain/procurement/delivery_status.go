package procurement

import "github.com/shopspring/decimal"

// DeliveryStatus is the aggregate receipt status of a purchase bill
type DeliveryStatus string

const (
	DeliveryStatusPending           DeliveryStatus = "Pending"
	DeliveryStatusPartiallyReceived DeliveryStatus = "PartiallyReceived"
	DeliveryStatusReceived          DeliveryStatus = "Received"
)

// ReceiptLine is the ordered/received pair of one line
type ReceiptLine struct {
	Ordered  decimal.Decimal
	Received decimal.Decimal
}

// ResolveDeliveryStatus derives the status of a set of lines.
// Received when every line has received >= ordered - eps, Pending when nothing
// was received, PartiallyReceived otherwise. An empty set is Pending.
func ResolveDeliveryStatus(lines []ReceiptLine, eps decimal.Decimal) DeliveryStatus {
	if len(lines) == 0 {
		return DeliveryStatusPending
	}
	all, some := true, false
	for _, l := range lines {
		if l.Received.LessThan(l.Ordered.Sub(eps)) {
			all = false
		}
		if l.Received.IsPositive() {
			some = true
		}
	}
	switch {
	case all:
		return DeliveryStatusReceived
	case some:
		return DeliveryStatusPartiallyReceived
	default:
		return DeliveryStatusPending
	}
}
