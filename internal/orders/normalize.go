package orders

import (
	"strings"
	"time"

	"github.com/angelmondragon/foodrescue/internal/gateway"
	"github.com/angelmondragon/foodrescue/pkg/enums"
	"github.com/shopspring/decimal"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizeOrderStatus maps a gateway status of any casing to the canonical
// form. Empty input is pending; unrecognized values are kept lowercased.
func NormalizeOrderStatus(raw string) enums.OrderStatus {
	if status, err := enums.ParseOrderStatus(raw); err == nil {
		return status
	}
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return enums.OrderStatusPending
	}
	return enums.OrderStatus(trimmed)
}

// NormalizePaymentStatus maps a gateway payment status to the canonical form.
// A missing value is pending and COMPLETED is paid; unrecognized values are
// kept lowercased.
func NormalizePaymentStatus(raw *string) enums.PaymentStatus {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return enums.PaymentStatusPending
	}
	if status, err := enums.ParsePaymentStatus(*raw); err == nil {
		return status
	}
	return enums.PaymentStatus(strings.ToLower(strings.TrimSpace(*raw)))
}

// NormalizeOrder converts a gateway order into the local model.
func NormalizeOrder(res gateway.OrderResource) Order {
	items := normalizeItems(res.Items)
	total, ok := resourceTotal(res)
	if !ok {
		total = linesTotal(items)
	}
	createdAt, _ := parseTimestamp(res.CreatedAt)
	pickupTime, _ := parseTimestamp(res.PickupTime)

	return Order{
		ID:               res.ID.String(),
		Status:           NormalizeOrderStatus(res.Status),
		TotalPrice:       total,
		Items:            items,
		CreatedAt:        createdAt,
		PickupTime:       pickupTime,
		PaymentStatus:    NormalizePaymentStatus(res.PaymentStatus),
		PaymentReference: strings.TrimSpace(res.PaymentID),
	}
}

func normalizeItems(items []gateway.OrderItemResource) []OrderLine {
	out := make([]OrderLine, 0, len(items))
	for _, item := range items {
		line := OrderLine{
			ProductID: item.ProductID.String(),
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: decimal.Zero,
		}
		if item.Price != nil {
			line.UnitPrice = item.Price.Decimal
		}
		out = append(out, line)
	}
	return out
}

// resourceTotal prefers totalAmount and falls back to totalPrice; the
// gateway's endpoints disagree on the field name.
func resourceTotal(res gateway.OrderResource) (decimal.Decimal, bool) {
	if res.TotalAmount != nil {
		return res.TotalAmount.Decimal, true
	}
	if res.TotalPrice != nil {
		return res.TotalPrice.Decimal, true
	}
	return decimal.Zero, false
}

func linesTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
