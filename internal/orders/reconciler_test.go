package orders

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
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

type fakeGateway struct {
	mu sync.Mutex

	createReq  gateway.CreateOrderRequest
	createRes  *gateway.OrderResource
	createErr  error
	payRes     *gateway.PayResponse
	payErr     error
	payCalls   []string
	cancelErr  error
	listRes    []gateway.OrderResource
	listErr    error
	listCalls  int
	getRes     *gateway.OrderResource
	getErr     error
	statusSent string
	statusErr  error
}

func (f *fakeGateway) CreateOrder(_ context.Context, req gateway.CreateOrderRequest) (*gateway.OrderResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createReq = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createRes == nil {
		return &gateway.OrderResource{ID: "1"}, nil
	}
	return f.createRes, nil
}

func (f *fakeGateway) PayOrder(_ context.Context, orderID, provider string) (*gateway.PayResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payCalls = append(f.payCalls, orderID+"|"+provider)
	if f.payErr != nil {
		return nil, f.payErr
	}
	if f.payRes == nil {
		return &gateway.PayResponse{}, nil
	}
	return f.payRes, nil
}

func (f *fakeGateway) CancelOrder(context.Context, string) error {
	return f.cancelErr
}

func (f *fakeGateway) ListOrders(context.Context) ([]gateway.OrderResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.listRes, f.listErr
}

func (f *fakeGateway) GetOrder(context.Context, string) (*gateway.OrderResource, error) {
	return f.getRes, f.getErr
}

func (f *fakeGateway) UpdateOrderStatus(_ context.Context, _ string, status string) error {
	f.statusSent = status
	return f.statusErr
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler(t *testing.T, gw *fakeGateway, mutate ...func(*ReconcilerParams)) (*Reconciler, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	params := ReconcilerParams{
		Gateway:   gw,
		Persister: store,
		Logger:    logger.Nop(),
		Clock:     func() time.Time { return fixedNow },
	}
	for _, fn := range mutate {
		fn(&params)
	}
	rec, err := NewReconciler(params)
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	return rec, store
}

func cartLine(id string, qty int, price string) cart.Line {
	return cart.Line{ProductID: id, Name: "Deal " + id, Quantity: qty, UnitPrice: types.ParsePrice(price)}
}

func TestCreateOrderCoercesIDsAndDefaultsPickup(t *testing.T) {
	gw := &fakeGateway{}
	rec, _ := newTestReconciler(t, gw)

	order, ok := rec.CreateOrder(context.Background(), []cart.Line{cartLine("7", 3, "2.00")}, nil)
	if !ok {
		t.Fatalf("create failed: %s", rec.LastError())
	}
	if len(gw.createReq.Items) != 1 || gw.createReq.Items[0].ProductID != 7 || gw.createReq.Items[0].Quantity != 3 {
		t.Fatalf("unexpected request items %+v", gw.createReq.Items)
	}
	pickup, err := time.Parse(time.RFC3339, gw.createReq.PickupTime)
	if err != nil {
		t.Fatalf("pickup not ISO8601: %v", err)
	}
	if diff := pickup.Sub(fixedNow); diff != time.Hour {
		t.Fatalf("expected pickup now+1h, got %s", diff)
	}
	if order.Status != enums.OrderStatusPending || order.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("unexpected provisional order %+v", order)
	}
	if !order.TotalPrice.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected cart total fallback 6, got %s", order.TotalPrice)
	}
}

func TestCreateOrderUsesServerValuesAndPrepends(t *testing.T) {
	total := types.ParsePrice("9.99")
	gw := &fakeGateway{createRes: &gateway.OrderResource{
		ID:          "100",
		Status:      "CONFIRMED",
		TotalAmount: &total,
		CreatedAt:   "2026-03-01T11:59:00Z",
	}}
	rec, store := newTestReconciler(t, gw)
	_ = rec.Restore(context.Background())

	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)
	gw.createRes = &gateway.OrderResource{ID: "101"}
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("2", 1, "1")}, nil)

	list := rec.Orders()
	if len(list) != 2 || list[0].ID != "101" || list[1].ID != "100" {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if list[1].Status != enums.OrderStatusConfirmed || !list[1].TotalPrice.Equal(total.Decimal) {
		t.Fatalf("server values not applied: %+v", list[1])
	}

	raw, err := store.Load(context.Background(), storage.OrderSnapshot)
	if err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil || len(snap.Orders) != 2 {
		t.Fatalf("unexpected snapshot %s (%v)", raw, err)
	}
}

func TestCreateOrderRejectsNonNumericIDWithoutNetwork(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("must not be called")}
	rec, _ := newTestReconciler(t, gw)

	if _, ok := rec.CreateOrder(context.Background(), []cart.Line{cartLine("abc", 1, "1")}, nil); ok {
		t.Fatalf("expected failure")
	}
	if gw.createReq.Items != nil {
		t.Fatalf("request must not be sent")
	}
	if !pkgerrors.IsCode(rec.Err(), pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", rec.Err())
	}
}

func TestCreateOrderCoercesPaddedProductIDs(t *testing.T) {
	gw := &fakeGateway{createRes: &gateway.OrderResource{ID: "12"}}
	rec, _ := newTestReconciler(t, gw)

	if _, ok := rec.CreateOrder(context.Background(), []cart.Line{cartLine(" 42 ", 2, "1")}, nil); !ok {
		t.Fatalf("create failed: %s", rec.LastError())
	}
	if len(gw.createReq.Items) != 1 || gw.createReq.Items[0].ProductID != 42 || gw.createReq.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items %+v", gw.createReq.Items)
	}
}

func TestCreateOrderFailureUsesServerMessageOrFallback(t *testing.T) {
	gw := &fakeGateway{createErr: pkgerrors.Wrap(pkgerrors.CodeGateway,
		&gateway.APIError{Operation: "create_order", Status: 409, Message: "Product sold out"}, "conflict")}
	rec, _ := newTestReconciler(t, gw)

	if _, ok := rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil); ok {
		t.Fatalf("expected failure")
	}
	if rec.LastError() != "Product sold out" {
		t.Fatalf("unexpected last error %q", rec.LastError())
	}

	gw.createErr = pkgerrors.Wrap(pkgerrors.CodeGateway, errors.New("dial tcp: refused"), "execute create_order request")
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)
	if rec.LastError() != "Failed to create order" {
		t.Fatalf("unexpected fallback %q", rec.LastError())
	}
	if len(rec.Orders()) != 0 {
		t.Fatalf("failed create must not add orders")
	}
}

func TestCancelOrderForcesCancelled(t *testing.T) {
	gw := &fakeGateway{createRes: &gateway.OrderResource{ID: "42", Status: "PENDING"}}
	rec, _ := newTestReconciler(t, gw)
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)

	if !rec.CancelOrder(context.Background(), "42") {
		t.Fatalf("cancel failed: %s", rec.LastError())
	}
	order, _ := rec.OrderByID("42")
	if order.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", order.Status)
	}
}

func TestCancelOrderStaleReference(t *testing.T) {
	gw := &fakeGateway{cancelErr: pkgerrors.Wrap(pkgerrors.CodeNotFound,
		&gateway.APIError{Operation: "cancel_order", Status: 404}, "missing")}
	rec, _ := newTestReconciler(t, gw)

	if rec.CancelOrder(context.Background(), "77") {
		t.Fatalf("expected failure")
	}
	if !pkgerrors.IsCode(rec.Err(), pkgerrors.CodeStaleReference) {
		t.Fatalf("expected stale reference, got %v", rec.Err())
	}
	if rec.LastError() != "Failed to cancel order" {
		t.Fatalf("unexpected message %q", rec.LastError())
	}
}

func TestPayOrderRedirectKeepsPendingAndHandsOff(t *testing.T) {
	gw := &fakeGateway{
		createRes: &gateway.OrderResource{ID: "5"},
		payRes:    &gateway.PayResponse{RedirectURL: "https://paypal.test/approve", PaymentID: "PAY-1"},
	}
	var handedOff string
	rec, _ := newTestReconciler(t, gw, func(p *ReconcilerParams) {
		p.Handoff = func(_ context.Context, orderID, url string) error {
			handedOff = orderID + " " + url
			return nil
		}
	})
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)

	outcome, ok := rec.PayOrder(context.Background(), "5", enums.PaymentProviderPayPal)
	if !ok {
		t.Fatalf("pay failed: %s", rec.LastError())
	}
	if handedOff != "5 https://paypal.test/approve" {
		t.Fatalf("unexpected handoff %q", handedOff)
	}
	if outcome.PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", outcome.PaymentStatus)
	}
	order, _ := rec.OrderByID("5")
	if order.PaymentStatus != enums.PaymentStatusPending || order.PaymentReference != "PAY-1" {
		t.Fatalf("unexpected order %+v", order)
	}
	if gw.payCalls[0] != "5|paypal" {
		t.Fatalf("unexpected pay call %q", gw.payCalls[0])
	}
}

func TestPayOrderSynchronousCompletionMarksPaid(t *testing.T) {
	success := true
	gw := &fakeGateway{
		createRes: &gateway.OrderResource{ID: "6"},
		payRes:    &gateway.PayResponse{Success: &success, PaymentStatus: strPtr("COMPLETED")},
	}
	rec, _ := newTestReconciler(t, gw)
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)

	if _, ok := rec.PayOrder(context.Background(), "6", ""); !ok {
		t.Fatalf("pay failed")
	}
	order, _ := rec.OrderByID("6")
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", order.PaymentStatus)
	}
}

func TestPayOrderExplicitFailure(t *testing.T) {
	failed := false
	gw := &fakeGateway{payRes: &gateway.PayResponse{Success: &failed, Message: "Card declined"}}
	rec, _ := newTestReconciler(t, gw)

	if _, ok := rec.PayOrder(context.Background(), "6", enums.PaymentProviderStripe); ok {
		t.Fatalf("expected failure")
	}
	if rec.LastError() != "Card declined" {
		t.Fatalf("unexpected error %q", rec.LastError())
	}
}

func TestCheckoutSagaReportsStepsSeparately(t *testing.T) {
	gw := &fakeGateway{
		createRes: &gateway.OrderResource{ID: "9"},
		payErr:    pkgerrors.Wrap(pkgerrors.CodeGateway, errors.New("timeout"), "execute pay_order request"),
	}
	rec, _ := newTestReconciler(t, gw, func(p *ReconcilerParams) {
		p.DefaultProvider = enums.PaymentProviderStripe
	})

	result := rec.Checkout(context.Background(), []cart.Line{cartLine("3", 2, "4")}, nil)
	if !result.Created || result.Order == nil || result.Order.ID != "9" {
		t.Fatalf("expected order created, got %+v", result)
	}
	if result.Paid || result.PaymentErr == nil {
		t.Fatalf("expected payment step failure, got %+v", result)
	}
	if pkgerrors.MessageOf(result.PaymentErr) != "Failed to process payment" {
		t.Fatalf("unexpected payment error %q", pkgerrors.MessageOf(result.PaymentErr))
	}
	if _, ok := rec.OrderByID("9"); !ok {
		t.Fatalf("created order must survive a failed payment")
	}
	if gw.payCalls[0] != "9|stripe" {
		t.Fatalf("expected default provider, got %q", gw.payCalls[0])
	}
}

func TestCheckoutSkipPayment(t *testing.T) {
	gw := &fakeGateway{}
	rec, _ := newTestReconciler(t, gw, func(p *ReconcilerParams) { p.SkipPayment = true })

	result := rec.Checkout(context.Background(), []cart.Line{cartLine("3", 1, "4")}, nil)
	if !result.Created || !result.PaymentSkipped || len(gw.payCalls) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckoutCreateFailureSkipsPayment(t *testing.T) {
	gw := &fakeGateway{}
	rec, _ := newTestReconciler(t, gw)

	result := rec.Checkout(context.Background(), nil, nil)
	if result.Created || result.CreateErr == nil || len(gw.payCalls) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestFetchOrdersReplacesList(t *testing.T) {
	gw := &fakeGateway{createRes: &gateway.OrderResource{ID: "local"}}
	rec, _ := newTestReconciler(t, gw)
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)

	gw.listRes = []gateway.OrderResource{
		{ID: "1", Status: "COMPLETED", PaymentStatus: strPtr("COMPLETED")},
		{ID: "2", Status: "pending"},
	}
	if !rec.FetchOrders(context.Background()) {
		t.Fatalf("fetch failed")
	}
	list := rec.Orders()
	if len(list) != 2 || list[0].ID != "1" || list[0].PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("unexpected list %+v", list)
	}
	if _, ok := rec.OrderByID("local"); ok {
		t.Fatalf("fetch must replace the list")
	}
}

func TestFetchOrdersFailureKeepsState(t *testing.T) {
	gw := &fakeGateway{createRes: &gateway.OrderResource{ID: "keep"}}
	rec, _ := newTestReconciler(t, gw)
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)

	gw.listErr = pkgerrors.New(pkgerrors.CodeGateway, "boom")
	if rec.FetchOrders(context.Background()) {
		t.Fatalf("expected failure")
	}
	if rec.LastError() != "Failed to fetch orders" {
		t.Fatalf("unexpected error %q", rec.LastError())
	}
	if _, ok := rec.OrderByID("keep"); !ok {
		t.Fatalf("failed fetch must not drop orders")
	}
}

func TestFetchOrderByIDDoesNotReplaceList(t *testing.T) {
	gw := &fakeGateway{getRes: &gateway.OrderResource{ID: "3", Status: "READY"}}
	rec, _ := newTestReconciler(t, gw)

	order, ok := rec.FetchOrderByID(context.Background(), "3")
	if !ok || order.Status != enums.OrderStatusReady {
		t.Fatalf("unexpected order %+v", order)
	}
	if len(rec.Orders()) != 0 {
		t.Fatalf("list must stay untouched")
	}

	gw.getErr = pkgerrors.Wrap(pkgerrors.CodeNotFound, &gateway.APIError{Status: 404, Message: "Order not found"}, "missing")
	if _, ok := rec.FetchOrderByID(context.Background(), "3"); ok {
		t.Fatalf("expected failure")
	}
	if rec.LastError() != "Order not found" || !pkgerrors.IsCode(rec.Err(), pkgerrors.CodeStaleReference) {
		t.Fatalf("unexpected error %q (%v)", rec.LastError(), rec.Err())
	}
}

func TestUpdateOrderStatusStoresStatusAsSent(t *testing.T) {
	gw := &fakeGateway{createRes: &gateway.OrderResource{ID: "8"}}
	rec, _ := newTestReconciler(t, gw)
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)

	if !rec.UpdateOrderStatus(context.Background(), "8", enums.OrderStatusReady) {
		t.Fatalf("update failed: %s", rec.LastError())
	}
	if gw.statusSent != "READY" {
		t.Fatalf("expected uppercase on the wire, got %q", gw.statusSent)
	}
	order, _ := rec.OrderByID("8")
	if string(order.Status) != gw.statusSent {
		t.Fatalf("expected stored status %q, got %q", gw.statusSent, order.Status)
	}

	if rec.UpdateOrderStatus(context.Background(), "8", enums.OrderStatus("bogus")) {
		t.Fatalf("expected invalid status to fail")
	}
}

func TestResetAndRestore(t *testing.T) {
	gw := &fakeGateway{createRes: &gateway.OrderResource{ID: "1", PaymentStatus: strPtr("PAID")}}
	rec, store := newTestReconciler(t, gw)
	_, _ = rec.CreateOrder(context.Background(), []cart.Line{cartLine("1", 1, "1")}, nil)

	restored, err := NewReconciler(ReconcilerParams{Gateway: gw, Persister: store})
	if err != nil {
		t.Fatalf("new reconciler: %v", err)
	}
	if err := restored.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	order, ok := restored.OrderByID("1")
	if !ok || order.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("unexpected restored order %+v", order)
	}

	restored.Reset(context.Background())
	if len(restored.Orders()) != 0 {
		t.Fatalf("expected empty list after reset")
	}
	if _, err := store.Load(context.Background(), storage.OrderSnapshot); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected snapshot deleted, got %v", err)
	}
}

func TestNewReconcilerValidatesParams(t *testing.T) {
	if _, err := NewReconciler(ReconcilerParams{Persister: storage.NewMemoryStore()}); err == nil {
		t.Fatalf("expected error without gateway")
	}
	if _, err := NewReconciler(ReconcilerParams{Gateway: &fakeGateway{}}); err == nil {
		t.Fatalf("expected error without persister")
	}
	if _, err := NewReconciler(ReconcilerParams{
		Gateway:         &fakeGateway{},
		Persister:       storage.NewMemoryStore(),
		DefaultProvider: enums.PaymentProvider("venmo"),
	}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
