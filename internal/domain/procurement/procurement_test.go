package procurement

import (
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/finance"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWeightedAverage(t *testing.T) {
	t.Run("first receipt takes the price", func(t *testing.T) {
		qty, avg := WeightedAverage(decimal.Zero, decimal.Zero, d("4"), d("5.00"))
		assert.True(t, qty.Equal(d("4")))
		assert.True(t, avg.Equal(d("5")))
	})

	t.Run("two receipts average by quantity", func(t *testing.T) {
		qty, avg := WeightedAverage(d("4"), d("5.00"), d("6"), d("8.00"))
		assert.True(t, qty.Equal(d("10")))
		assert.True(t, avg.Equal(d("6.8")))
	})

	t.Run("order of receipts does not change the result", func(t *testing.T) {
		q1, a1 := WeightedAverage(decimal.Zero, decimal.Zero, d("4"), d("5.00"))
		q1, a1 = WeightedAverage(q1, a1, d("6"), d("8.00"))

		q2, a2 := WeightedAverage(decimal.Zero, decimal.Zero, d("6"), d("8.00"))
		q2, a2 = WeightedAverage(q2, a2, d("4"), d("5.00"))

		assert.True(t, q1.Equal(q2))
		assert.True(t, a1.Equal(a2))
	})

	t.Run("cost is rounded to the cost scale", func(t *testing.T) {
		_, avg := WeightedAverage(d("1"), d("1"), d("2"), d("2"))
		assert.Equal(t, "1.6667", avg.StringFixed(CostScale))
	})

	t.Run("non-positive result falls back to the price", func(t *testing.T) {
		qty, avg := WeightedAverage(d("2"), d("3"), d("-2"), d("7"))
		assert.True(t, qty.IsZero())
		assert.True(t, avg.Equal(d("7")))
	})
}

func TestContract(t *testing.T) {
	assert.True(t, Contract(d("5"), d("2")).Equal(d("3")))
	assert.True(t, Contract(d("5"), d("8")).IsZero())
}

func TestResolveDeliveryStatus(t *testing.T) {
	eps := finance.DefaultEpsilon
	line := func(ordered, received string) ReceiptLine {
		return ReceiptLine{Ordered: d(ordered), Received: d(received)}
	}

	tests := []struct {
		name  string
		lines []ReceiptLine
		want  DeliveryStatus
	}{
		{"empty", nil, DeliveryStatusPending},
		{"nothing received", []ReceiptLine{line("10", "0"), line("5", "0")}, DeliveryStatusPending},
		{"one line partly", []ReceiptLine{line("10", "4"), line("5", "0")}, DeliveryStatusPartiallyReceived},
		{"one line complete", []ReceiptLine{line("10", "10"), line("5", "0")}, DeliveryStatusPartiallyReceived},
		{"all complete", []ReceiptLine{line("10", "10"), line("5", "5")}, DeliveryStatusReceived},
		{"within epsilon", []ReceiptLine{line("10", "9.995")}, DeliveryStatusReceived},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveDeliveryStatus(tc.lines, eps))
		})
	}
}

func newPurchaseBill(t *testing.T) *PurchaseBill {
	t.Helper()
	i1, err := NewPurchaseBillItem(uuid.New(), d("10"), d("5.00"))
	require.NoError(t, err)
	i2, err := NewPurchaseBillItem(uuid.New(), d("2"), d("12.50"))
	require.NoError(t, err)
	pb, err := NewPurchaseBill(uuid.New(), uuid.New(), "PB-7", uuid.New(), time.Now(), []PurchaseBillItem{i1, i2})
	require.NoError(t, err)
	return pb
}

func TestPurchaseBill(t *testing.T) {
	t.Run("total is the sum of lines", func(t *testing.T) {
		pb := newPurchaseBill(t)
		assert.True(t, pb.TotalAmount.Equal(d("75")))
		assert.Equal(t, DeliveryStatusPending, pb.DeliveryStatus)
		assert.Equal(t, pb.ID, pb.Items[0].PurchaseBillID)
	})

	t.Run("receiving requires a paid bill", func(t *testing.T) {
		pb := newPurchaseBill(t)
		assert.Error(t, pb.EnsureReceivable())

		pb.ApplyPaidTotal(d("40"), finance.DefaultEpsilon)
		assert.Error(t, pb.EnsureReceivable())

		pb.ApplyPaidTotal(d("75"), finance.DefaultEpsilon)
		assert.NoError(t, pb.EnsureReceivable())
	})

	t.Run("set received returns the delta", func(t *testing.T) {
		pb := newPurchaseBill(t)
		item := &pb.Items[0]

		delta, err := item.SetReceived(d("4"))
		require.NoError(t, err)
		assert.True(t, delta.Equal(d("4")))

		delta, err = item.SetReceived(d("3"))
		require.NoError(t, err)
		assert.True(t, delta.Equal(d("-1")))
	})

	t.Run("received quantity must stay within the ordered quantity", func(t *testing.T) {
		pb := newPurchaseBill(t)
		item := &pb.Items[0]

		_, err := item.SetReceived(d("11"))
		var qtyErr *shared.InvalidQuantityError
		require.ErrorAs(t, err, &qtyErr)
		assert.Equal(t, item.ID, qtyErr.ItemID)

		_, err = item.SetReceived(d("-1"))
		assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
		assert.True(t, item.ReceivedQuantity.IsZero())
	})

	t.Run("refresh delivery sets the received flag", func(t *testing.T) {
		pb := newPurchaseBill(t)
		for i := range pb.Items {
			_, err := pb.Items[i].SetReceived(pb.Items[i].OrderedQuantity)
			require.NoError(t, err)
		}
		assert.Equal(t, DeliveryStatusReceived, pb.RefreshDelivery(finance.DefaultEpsilon))
		assert.True(t, pb.ItemsReceived)
	})

	t.Run("item lookup", func(t *testing.T) {
		pb := newPurchaseBill(t)
		_, ok := pb.Item(pb.Items[1].ID)
		assert.True(t, ok)
		_, ok = pb.Item(uuid.New())
		assert.False(t, ok)
	})
}
