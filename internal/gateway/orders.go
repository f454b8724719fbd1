package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/foodrescue/pkg/errors"
)

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResource, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var out OrderResource
	if err := c.do(ctx, call{
		operation: "create_order",
		method:    http.MethodPost,
		path:      "/orders",
		body:      req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PayOrder initiates payment for an order. An empty provider lets the gateway pick.
func (c *Client) PayOrder(ctx context.Context, orderID, provider string) (*PayResponse, error) {
	path, err := orderPath(orderID, "pay")
	if err != nil {
		return nil, err
	}
	var query url.Values
	if provider = strings.TrimSpace(provider); provider != "" {
		query = url.Values{"provider": []string{provider}}
	}
	var out PayResponse
	if err := c.do(ctx, call{
		operation: "pay_order",
		method:    http.MethodPost,
		path:      path,
		query:     query,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelOrder asks the gateway to cancel an order. The response body is ignored.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path, err := orderPath(orderID, "cancel")
	if err != nil {
		return err
	}
	return c.do(ctx, call{
		operation: "cancel_order",
		method:    http.MethodPost,
		path:      path,
	}, nil)
}

// ListOrders returns every order visible to the caller.
func (c *Client) ListOrders(ctx context.Context) ([]OrderResource, error) {
	var out []OrderResource
	if err := c.do(ctx, call{
		operation: "list_orders",
		method:    http.MethodGet,
		path:      "/orders",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrder returns a single order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderResource, error) {
	path, err := orderPath(orderID, "")
	if err != nil {
		return nil, err
	}
	var out OrderResource
	if err := c.do(ctx, call{
		operation: "get_order",
		method:    http.MethodGet,
		path:      path,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrderStatus sends the status in the gateway's uppercase form.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	path, err := orderPath(orderID, "status")
	if err != nil {
		return err
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "status is required")
	}
	return c.do(ctx, call{
		operation: "update_order_status",
		method:    http.MethodPut,
		path:      path,
		query:     url.Values{"status": []string{status}},
	}, nil)
}

// PaymentProviders lists the provider identifiers enabled on the gateway.
func (c *Client) PaymentProviders(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, call{
		operation: "payment_providers",
		method:    http.MethodGet,
		path:      "/payment-providers",
	}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func orderPath(orderID, action string) (string, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	path := "/orders/" + url.PathEscape(id)
	if action != "" {
		path += "/" + action
	}
	return path, nil
}
