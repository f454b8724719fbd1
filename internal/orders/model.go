package orders

import (
	"time"

	"github.com/angelmondragon/foodrescue/pkg/enums"
	"github.com/shopspring/decimal"
)

// Order is the canonical local order record. Status and PaymentStatus are
// lowercase regardless of how the gateway spelled them, except a Status set
// by UpdateOrderStatus, which keeps the uppercase value sent until the next
// refresh.
type Order struct {
	ID               string              `json:"id"`
	Status           enums.OrderStatus   `json:"status"`
	TotalPrice       decimal.Decimal     `json:"totalPrice"`
	Items            []OrderLine         `json:"items"`
	CreatedAt        time.Time           `json:"createdAt"`
	PickupTime       time.Time           `json:"pickupTime"`
	PaymentStatus    enums.PaymentStatus `json:"paymentStatus"`
	PaymentReference string              `json:"paymentReference,omitempty"`
}

// OrderLine is one product within an order.
type OrderLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

func (o Order) clone() Order {
	out := o
	out.Items = append([]OrderLine(nil), o.Items...)
	return out
}

// PaymentOutcome is the result of initiating payment for an order.
type PaymentOutcome struct {
	OrderID       string                `json:"orderId"`
	Provider      enums.PaymentProvider `json:"provider,omitempty"`
	RedirectURL   string                `json:"redirectUrl,omitempty"`
	PaymentID     string                `json:"paymentId,omitempty"`
	PaymentStatus enums.PaymentStatus   `json:"paymentStatus"`
	Message       string                `json:"message,omitempty"`
}

// CheckoutResult reports each step of the create-then-pay saga separately.
type CheckoutResult struct {
	Order     *Order
	Created   bool
	CreateErr error

	Payment        *PaymentOutcome
	PaymentSkipped bool
	Paid           bool
	PaymentErr     error
}

type snapshot struct {
	Orders []Order `json:"orders"`
}
