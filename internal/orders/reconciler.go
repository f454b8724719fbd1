package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/foodrescue/internal/cart"
	"github.com/angelmondragon/foodrescue/internal/gateway"
	"github.com/angelmondragon/foodrescue/pkg/enums"
	pkgerrors "github.com/angelmondragon/foodrescue/pkg/errors"
	"github.com/angelmondragon/foodrescue/pkg/logger"
	"github.com/angelmondragon/foodrescue/pkg/storage"
	"github.com/angelmondragon/foodrescue/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	defaultPickupOffset = time.Hour

	msgCreateFailed       = "Failed to create order"
	msgPaymentFailed      = "Failed to process payment"
	msgCancelFailed       = "Failed to cancel order"
	msgFetchOrdersFailed  = "Failed to fetch orders"
	msgFetchOrderFailed   = "Failed to fetch order details"
	msgUpdateStatusFailed = "Failed to update order status"
)

// Gateway is the subset of the order gateway the reconciler drives.
type Gateway interface {
	CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.OrderResource, error)
	PayOrder(ctx context.Context, orderID, provider string) (*gateway.PayResponse, error)
	CancelOrder(ctx context.Context, orderID string) error
	ListOrders(ctx context.Context) ([]gateway.OrderResource, error)
	GetOrder(ctx context.Context, orderID string) (*gateway.OrderResource, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// Persister stores the order list snapshot.
type Persister interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, payload []byte) error
	Delete(ctx context.Context, names ...string) error
}

// PaymentHandoff receives the provider checkout URL returned when payment is
// initiated. The CLI prints it; a mobile shell would open a browser.
type PaymentHandoff func(ctx context.Context, orderID, redirectURL string) error

// ReconcilerParams wires the reconciler dependencies.
type ReconcilerParams struct {
	Gateway         Gateway
	Persister       Persister
	Logger          *logger.Logger
	Clock           func() time.Time
	PickupOffset    time.Duration
	DefaultProvider enums.PaymentProvider
	Handoff         PaymentHandoff
	// SkipPayment disables the payment step of Checkout.
	SkipPayment bool
	StorageKey  string
}

// Reconciler keeps the local order list in sync with the gateway. Gateway
// calls run outside the lock; the response that arrives last wins.
type Reconciler struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	orders  []Order
	lastErr error

	gateway         Gateway
	persister       Persister
	logg            *logger.Logger
	now             func() time.Time
	pickupOffset    time.Duration
	defaultProvider enums.PaymentProvider
	handoff         PaymentHandoff
	skipPayment     bool
	key             string
}

// NewReconciler validates params and builds an empty reconciler.
func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	if params.Persister == nil {
		return nil, fmt.Errorf("order persister required")
	}
	if params.DefaultProvider != "" && !params.DefaultProvider.IsValid() {
		return nil, fmt.Errorf("invalid default payment provider %q", params.DefaultProvider)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	offset := params.PickupOffset
	if offset <= 0 {
		offset = defaultPickupOffset
	}
	key := params.StorageKey
	if key == "" {
		key = storage.OrderSnapshot
	}
	return &Reconciler{
		orders:          []Order{},
		gateway:         params.Gateway,
		persister:       params.Persister,
		logg:            logg,
		now:             now,
		pickupOffset:    offset,
		defaultProvider: params.DefaultProvider,
		handoff:         params.Handoff,
		skipPayment:     params.SkipPayment,
		key:             key,
	}, nil
}

// CreateOrder submits the cart lines and prepends a provisional order built
// from the response, falling back to request-time values.
func (r *Reconciler) CreateOrder(ctx context.Context, lines []cart.Line, pickupTime *time.Time) (*Order, bool) {
	r.ClearError()

	requestedPickup := r.now().Add(r.pickupOffset)
	if pickupTime != nil && !pickupTime.IsZero() {
		requestedPickup = *pickupTime
	}
	req, err := buildCreateRequest(lines, requestedPickup)
	if err != nil {
		r.fail(ctx, "create order rejected", err, msgCreateFailed)
		return nil, false
	}

	res, err := r.gateway.CreateOrder(ctx, req)
	if err != nil {
		r.fail(ctx, "create order failed", err, msgCreateFailed)
		return nil, false
	}

	order := provisionalOrder(res, lines, requestedPickup, r.now())
	ctx = r.logg.WithOrderID(ctx, order.ID)
	r.update(ctx, func(list []Order) []Order {
		return append([]Order{order}, list...)
	})
	r.logg.Info(ctx, "order created")
	out := order.clone()
	return &out, true
}

// PayOrder initiates payment. A returned redirect URL is passed to the
// handoff and the order stays pending until the provider redirects back; a
// synchronous completion marks the order paid immediately.
func (r *Reconciler) PayOrder(ctx context.Context, orderID string, provider enums.PaymentProvider) (PaymentOutcome, bool) {
	r.ClearError()
	ctx = r.logg.WithOrderID(ctx, orderID)
	if provider == "" {
		provider = r.defaultProvider
	}
	if provider != "" {
		ctx = r.logg.WithProvider(ctx, provider.String())
	}

	res, err := r.gateway.PayOrder(ctx, orderID, string(provider))
	if err != nil {
		r.fail(ctx, "pay order failed", r.staleOn404(err, orderID), msgPaymentFailed)
		return PaymentOutcome{OrderID: orderID, Provider: provider}, false
	}
	if res.Failed() {
		msg := strings.TrimSpace(res.Message)
		if msg == "" {
			msg = msgPaymentFailed
		}
		r.fail(ctx, "payment rejected", pkgerrors.New(pkgerrors.CodeGateway, msg), msg)
		return PaymentOutcome{OrderID: orderID, Provider: provider, Message: res.Message}, false
	}

	outcome := PaymentOutcome{
		OrderID:       orderID,
		Provider:      provider,
		RedirectURL:   strings.TrimSpace(res.RedirectURL),
		PaymentID:     strings.TrimSpace(res.PaymentID),
		PaymentStatus: enums.PaymentStatusPending,
		Message:       res.Message,
	}
	if res.PaymentStatus != nil && NormalizePaymentStatus(res.PaymentStatus) == enums.PaymentStatusPaid {
		outcome.PaymentStatus = enums.PaymentStatusPaid
	}

	r.update(ctx, func(list []Order) []Order {
		idx := indexOf(list, orderID)
		if idx < 0 {
			r.logg.Warn(ctx, "paid order not in local list")
			return list
		}
		list[idx].PaymentStatus = outcome.PaymentStatus
		if outcome.PaymentID != "" {
			list[idx].PaymentReference = outcome.PaymentID
		}
		return list
	})

	if outcome.RedirectURL != "" {
		if r.handoff == nil {
			r.logg.Warn(ctx, "payment redirect returned but no handoff configured")
		} else if err := r.handoff(ctx, orderID, outcome.RedirectURL); err != nil {
			r.logg.WarnErr(ctx, "payment handoff failed", err)
		}
	}
	r.logg.Info(ctx, "payment initiated")
	return outcome, true
}

// Checkout runs the create-then-pay saga. A failed payment step never undoes
// the created order.
func (r *Reconciler) Checkout(ctx context.Context, lines []cart.Line, pickupTime *time.Time) CheckoutResult {
	var result CheckoutResult
	order, ok := r.CreateOrder(ctx, lines, pickupTime)
	if !ok {
		result.CreateErr = r.Err()
		return result
	}
	result.Order = order
	result.Created = true

	if r.skipPayment {
		result.PaymentSkipped = true
		return result
	}
	outcome, ok := r.PayOrder(ctx, order.ID, r.defaultProvider)
	result.Payment = &outcome
	result.Paid = ok
	if !ok {
		result.PaymentErr = r.Err()
	}
	return result
}

// CancelOrder cancels on the gateway and marks the local order cancelled on
// any successful response.
func (r *Reconciler) CancelOrder(ctx context.Context, orderID string) bool {
	r.ClearError()
	ctx = r.logg.WithOrderID(ctx, orderID)
	if err := r.gateway.CancelOrder(ctx, orderID); err != nil {
		r.fail(ctx, "cancel order failed", r.staleOn404(err, orderID), msgCancelFailed)
		return false
	}
	r.update(ctx, func(list []Order) []Order {
		if idx := indexOf(list, orderID); idx >= 0 {
			list[idx].Status = enums.OrderStatusCancelled
		} else {
			r.logg.Warn(ctx, "cancelled order not in local list")
		}
		return list
	})
	r.logg.Info(ctx, "order cancelled")
	return true
}

// FetchOrders replaces the local list with the gateway's view.
func (r *Reconciler) FetchOrders(ctx context.Context) bool {
	r.ClearError()
	resources, err := r.gateway.ListOrders(ctx)
	if err != nil {
		r.fail(ctx, "fetch orders failed", err, msgFetchOrdersFailed)
		return false
	}
	fetched := make([]Order, 0, len(resources))
	for _, res := range resources {
		fetched = append(fetched, NormalizeOrder(res))
	}
	r.update(ctx, func([]Order) []Order {
		return fetched
	})
	return true
}

// FetchOrderByID returns the gateway's view of one order without touching
// the local list.
func (r *Reconciler) FetchOrderByID(ctx context.Context, orderID string) (*Order, bool) {
	r.ClearError()
	ctx = r.logg.WithOrderID(ctx, orderID)
	res, err := r.gateway.GetOrder(ctx, orderID)
	if err != nil {
		r.fail(ctx, "fetch order failed", r.staleOn404(err, orderID), msgFetchOrderFailed)
		return nil, false
	}
	order := NormalizeOrder(*res)
	return &order, true
}

// UpdateOrderStatus sends the uppercase status and stores it locally as sent.
// A later FetchOrders brings the order back to lowercase.
func (r *Reconciler) UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) bool {
	r.ClearError()
	ctx = r.logg.WithOrderID(ctx, orderID)
	if !status.IsValid() {
		r.fail(ctx, "update order status rejected",
			pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status)), msgUpdateStatusFailed)
		return false
	}
	sent := status.Wire()
	if err := r.gateway.UpdateOrderStatus(ctx, orderID, sent); err != nil {
		r.fail(ctx, "update order status failed", r.staleOn404(err, orderID), msgUpdateStatusFailed)
		return false
	}
	r.update(ctx, func(list []Order) []Order {
		if idx := indexOf(list, orderID); idx >= 0 {
			list[idx].Status = enums.OrderStatus(sent)
		}
		return list
	})
	return true
}

// Orders returns a copy of the local list, newest first.
func (r *Reconciler) Orders() []Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, len(r.orders))
	for i, order := range r.orders {
		out[i] = order.clone()
	}
	return out
}

// OrderByID returns a copy of the local order.
func (r *Reconciler) OrderByID(orderID string) (Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := indexOf(r.orders, orderID)
	if idx < 0 {
		return Order{}, false
	}
	return r.orders[idx].clone(), true
}

// LastError is the display message of the last failed operation.
func (r *Reconciler) LastError() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return pkgerrors.MessageOf(r.lastErr)
}

// Err returns the typed error of the last failed operation.
func (r *Reconciler) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

func (r *Reconciler) ClearError() {
	r.mu.Lock()
	r.lastErr = nil
	r.mu.Unlock()
}

// Reset drops every local order and the persisted snapshot.
func (r *Reconciler) Reset(ctx context.Context) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.mu.Lock()
	r.orders = []Order{}
	r.lastErr = nil
	r.mu.Unlock()
	if err := r.persister.Delete(ctx, r.key); err != nil {
		r.logg.WarnErr(ctx, "delete order snapshot", err)
	}
}

// Restore loads the persisted order list. A missing snapshot leaves the list empty.
func (r *Reconciler) Restore(ctx context.Context) error {
	payload, err := r.persister.Load(ctx, r.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order snapshot")
	}
	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode order snapshot")
	}
	if snap.Orders == nil {
		snap.Orders = []Order{}
	}
	r.writeMu.Lock()
	r.mu.Lock()
	r.orders = snap.Orders
	r.mu.Unlock()
	r.writeMu.Unlock()
	return nil
}

// update applies fn to a private copy of the list, commits it and persists.
func (r *Reconciler) update(ctx context.Context, fn func([]Order) []Order) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.Lock()
	working := make([]Order, len(r.orders))
	for i, order := range r.orders {
		working[i] = order.clone()
	}
	next := fn(working)
	if next == nil {
		next = []Order{}
	}
	r.orders = next
	payload, err := json.Marshal(snapshot{Orders: next})
	r.mu.Unlock()

	if err != nil {
		r.logg.WarnErr(ctx, "encode order snapshot", err)
		return
	}
	if err := r.persister.Save(ctx, r.key, payload); err != nil {
		r.logg.WarnErr(ctx, "persist order snapshot", err)
	}
}

func (r *Reconciler) fail(ctx context.Context, logMsg string, err error, fallback string) {
	r.mu.Lock()
	r.lastErr = pkgerrors.Wrap(codeOf(err), err, displayMessage(err, fallback))
	r.mu.Unlock()
	r.logg.Error(ctx, logMsg, err)
}

func (r *Reconciler) staleOn404(err error, orderID string) error {
	if gateway.IsStatus(err, http.StatusNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeStaleReference, err, fmt.Sprintf("order %s no longer exists", orderID))
	}
	return err
}

func codeOf(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeGateway
}

// displayMessage prefers the gateway's own message, then the message of a
// validation or auth error raised before the request was sent, then the
// per-operation fallback.
func displayMessage(err error, fallback string) string {
	if msg := gateway.ServerMessage(err); msg != "" {
		return msg
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		return fallback
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeValidation) || pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
			return typed.Message()
		}
	}
	return fallback
}

func indexOf(list []Order, orderID string) int {
	for i, order := range list {
		if order.ID == orderID {
			return i
		}
	}
	return -1
}

func buildCreateRequest(lines []cart.Line, pickup time.Time) (gateway.CreateOrderRequest, error) {
	if len(lines) == 0 {
		return gateway.CreateOrderRequest{}, pkgerrors.New(pkgerrors.CodeValidation, "Your cart is empty")
	}
	items := make([]gateway.OrderItemRequest, 0, len(lines))
	for _, line := range lines {
		id, err := parseProductID(line.ProductID)
		if err != nil {
			return gateway.CreateOrderRequest{}, err
		}
		items = append(items, gateway.OrderItemRequest{ProductID: id, Quantity: line.Quantity})
	}
	return gateway.CreateOrderRequest{
		PickupTime: pickup.UTC().Format(time.RFC3339),
		Items:      items,
	}, nil
}

func parseProductID(raw string) (int64, error) {
	id, err := types.FlexibleID(raw).Int64()
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product id %q", raw))
	}
	return id, nil
}

func provisionalOrder(res *gateway.OrderResource, lines []cart.Line, pickup, now time.Time) Order {
	items := make([]OrderLine, 0, len(lines))
	cartTotal := decimal.Zero
	for _, line := range lines {
		items = append(items, OrderLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.Decimal,
		})
		cartTotal = cartTotal.Add(line.UnitPrice.Times(line.Quantity))
	}

	order := Order{
		Status:        enums.OrderStatusPending,
		TotalPrice:    cartTotal,
		Items:         items,
		CreatedAt:     now.UTC(),
		PickupTime:    pickup.UTC(),
		PaymentStatus: enums.PaymentStatusPending,
	}
	if res == nil {
		return order
	}
	order.ID = res.ID.String()
	if strings.TrimSpace(res.Status) != "" {
		order.Status = NormalizeOrderStatus(res.Status)
	}
	if total, ok := resourceTotal(*res); ok {
		order.TotalPrice = total
	}
	if ts, ok := parseTimestamp(res.CreatedAt); ok {
		order.CreatedAt = ts
	}
	if ts, ok := parseTimestamp(res.PickupTime); ok {
		order.PickupTime = ts
	}
	order.PaymentStatus = NormalizePaymentStatus(res.PaymentStatus)
	order.PaymentReference = strings.TrimSpace(res.PaymentID)
	return order
}
