package payments

import (
	"context"
	"errors"

	"github.com/angelmondragon/foodrescue/pkg/logger"
	"github.com/angelmondragon/foodrescue/pkg/metrics"
)

// OrderRefresher reloads the local order list from the gateway.
type OrderRefresher interface {
	FetchOrders(ctx context.Context) bool
	LastError() string
}

// HandlerParams wires the redirect handler.
type HandlerParams struct {
	Orders  OrderRefresher
	Guard   *IdempotencyGuard
	Logger  *logger.Logger
	Metrics *metrics.CallbackMetrics
}

// Handler turns payment provider redirects into display notices.
type Handler struct {
	orders  OrderRefresher
	guard   *IdempotencyGuard
	logg    *logger.Logger
	metrics *metrics.CallbackMetrics
}

func NewHandler(params HandlerParams) (*Handler, error) {
	if params.Orders == nil {
		return nil, errors.New("order refresher required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Handler{
		orders:  params.Orders,
		guard:   params.Guard,
		logg:    logg,
		metrics: params.Metrics,
	}, nil
}

// HandleSuccess refreshes orders once and reports the outcome the provider
// sent. The notice follows cb.Status only; the refreshed order list is not
// consulted. A failed refresh is logged and does not change the notice.
func (h *Handler) HandleSuccess(ctx context.Context, cb Callback) Notice {
	ctx = h.logg.WithProvider(ctx, cb.Provider.String())
	notice := resultNotice(cb)
	h.metrics.IncReceived(string(notice.Kind), cb.Provider.String())

	if h.isDuplicate(ctx, cb) {
		notice.Duplicate = true
		return notice
	}

	if h.orders.FetchOrders(ctx) {
		notice.Refreshed = true
	} else {
		h.logg.Warn(ctx, "order refresh after payment redirect failed: "+h.orders.LastError())
		h.release(ctx, cb)
	}
	h.logg.Info(ctx, "payment redirect handled")
	return notice
}

// HandleCancel reports a cancelled checkout. The order itself is left as is;
// the user can retry payment from the order list.
func (h *Handler) HandleCancel(ctx context.Context, cb Callback) Notice {
	ctx = h.logg.WithProvider(ctx, cb.Provider.String())
	h.metrics.IncReceived(string(NoticeCancelled), cb.Provider.String())
	h.logg.Info(ctx, "payment cancelled by user")
	return cancelNotice(cb)
}

func (h *Handler) isDuplicate(ctx context.Context, cb Callback) bool {
	if h.guard == nil || cb.ReferenceID == "" {
		return false
	}
	duplicate, err := h.guard.CheckAndMark(ctx, cb.ReferenceID)
	if err != nil {
		h.logg.WarnErr(ctx, "payment redirect dedupe unavailable", err)
		return false
	}
	if duplicate {
		h.metrics.IncDuplicate(cb.Provider.String())
		h.logg.Info(ctx, "duplicate payment redirect skipped")
	}
	return duplicate
}

func (h *Handler) release(ctx context.Context, cb Callback) {
	if h.guard == nil || cb.ReferenceID == "" {
		return
	}
	if err := h.guard.Delete(ctx, cb.ReferenceID); err != nil {
		h.logg.WarnErr(ctx, "release payment reference", err)
	}
}
