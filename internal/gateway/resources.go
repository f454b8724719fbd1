package gateway

import (
	"github.com/angelmondragon/foodrescue/pkg/types"
)

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	PickupTime string             `json:"pickupTime" validate:"required"`
	Items      []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// OrderItemRequest is one line of a create order request.
type OrderItemRequest struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0"`
}

// OrderResource is the order shape returned by the gateway. Casing and
// optional fields vary between endpoints.
type OrderResource struct {
	ID            types.FlexibleID    `json:"id"`
	Status        string              `json:"status"`
	TotalAmount   *types.Price        `json:"totalAmount,omitempty"`
	TotalPrice    *types.Price        `json:"totalPrice,omitempty"`
	Items         []OrderItemResource `json:"items,omitempty"`
	CreatedAt     string              `json:"createdAt,omitempty"`
	PickupTime    string              `json:"pickupTime,omitempty"`
	PaymentStatus *string             `json:"paymentStatus"`
	PaymentID     string              `json:"paymentId,omitempty"`
}

// OrderItemResource is one line of a gateway order.
type OrderItemResource struct {
	ID          types.FlexibleID `json:"id,omitempty"`
	ProductID   types.FlexibleID `json:"productId"`
	Quantity    int              `json:"quantity"`
	Price       *types.Price     `json:"price,omitempty"`
	ProductName string           `json:"productName,omitempty"`
}

// PayResponse is the body of POST /orders/{id}/pay.
type PayResponse struct {
	Success       *bool   `json:"success,omitempty"`
	Message       string  `json:"message,omitempty"`
	RedirectURL   string  `json:"redirectUrl,omitempty"`
	PaymentID     string  `json:"paymentId,omitempty"`
	PayerID       string  `json:"payerId,omitempty"`
	PaymentStatus *string `json:"paymentStatus,omitempty"`
}

// Failed reports whether the gateway explicitly flagged the payment as unsuccessful.
func (p PayResponse) Failed() bool {
	return p.Success != nil && !*p.Success
}
