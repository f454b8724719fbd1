package orders

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/angelmondragon/foodrescue/internal/gateway"
	"github.com/angelmondragon/foodrescue/pkg/enums"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestNormalizePaymentStatus(t *testing.T) {
	cases := []struct {
		name string
		in   *string
		want enums.PaymentStatus
	}{
		{"completed maps to paid", strPtr("COMPLETED"), enums.PaymentStatusPaid},
		{"null is pending", nil, enums.PaymentStatusPending},
		{"blank is pending", strPtr("  "), enums.PaymentStatusPending},
		{"uppercase failed", strPtr("FAILED"), enums.PaymentStatusFailed},
		{"mixed case paid", strPtr("Paid"), enums.PaymentStatusPaid},
		{"unknown lowercased", strPtr("REFUNDED"), enums.PaymentStatus("refunded")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizePaymentStatus(tc.in); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNormalizeOrderStatus(t *testing.T) {
	cases := map[string]enums.OrderStatus{
		"PENDING":   enums.OrderStatusPending,
		"Confirmed": enums.OrderStatusConfirmed,
		"ready":     enums.OrderStatusReady,
		"CANCELED":  enums.OrderStatusCancelled,
		"":          enums.OrderStatusPending,
		"ON_HOLD":   enums.OrderStatus("on_hold"),
	}
	for in, want := range cases {
		if got := NormalizeOrderStatus(in); got != want {
			t.Fatalf("NormalizeOrderStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeOrderFromGatewayJSON(t *testing.T) {
	raw := `{
		"id": 42,
		"status": "READY",
		"totalPrice": "12.50",
		"items": [{"id": 1, "productId": 7, "quantity": 2, "price": 6.25, "productName": "Veggie box"}],
		"createdAt": "2026-03-01T10:15:00",
		"pickupTime": "2026-03-01T12:00:00Z",
		"paymentStatus": "COMPLETED",
		"paymentId": "PAY-9"
	}`
	var res gateway.OrderResource
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}

	order := NormalizeOrder(res)
	if order.ID != "42" || order.Status != enums.OrderStatusReady || order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("unexpected order %+v", order)
	}
	if !order.TotalPrice.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected total %s", order.TotalPrice)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID != "7" || order.Items[0].Name != "Veggie box" {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if !order.CreatedAt.Equal(time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected createdAt %s", order.CreatedAt)
	}
	if order.PaymentReference != "PAY-9" {
		t.Fatalf("unexpected payment reference %q", order.PaymentReference)
	}
}

func TestNormalizeOrderTotalFallsBackToItems(t *testing.T) {
	var res gateway.OrderResource
	if err := json.Unmarshal([]byte(`{"id":"a","items":[{"productId":"1","quantity":3,"price":"2.00 €"}]}`), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	order := NormalizeOrder(res)
	if !order.TotalPrice.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected total 6, got %s", order.TotalPrice)
	}
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending defaults, got %+v", order)
	}
}

func TestNormalizeOrderPrefersTotalAmount(t *testing.T) {
	var res gateway.OrderResource
	if err := json.Unmarshal([]byte(`{"id":1,"totalAmount":10,"totalPrice":11}`), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := NormalizeOrder(res).TotalPrice; !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected totalAmount to win, got %s", got)
	}
}
