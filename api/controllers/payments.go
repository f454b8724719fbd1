package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/foodrescue/api/responses"
	"github.com/angelmondragon/foodrescue/internal/payments"
	"github.com/angelmondragon/foodrescue/pkg/logger"
)

// RedirectHandler is the payment redirect surface the callback routes drive.
type RedirectHandler interface {
	HandleSuccess(ctx context.Context, cb payments.Callback) payments.Notice
	HandleCancel(ctx context.Context, cb payments.Callback) payments.Notice
}

// PaymentSuccess handles the provider return URL. The response is always 200;
// the notice kind tells success from failure.
func PaymentSuccess(handler RedirectHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cb := payments.ParseCallback(r.URL.Query())
		ctx := r.Context()
		if logg != nil && cb.ReferenceID != "" {
			ctx = logg.WithField(ctx, "payment_reference", cb.ReferenceID)
		}
		responses.WriteSuccess(w, handler.HandleSuccess(ctx, cb))
	}
}

// PaymentCancel handles the provider cancel URL.
func PaymentCancel(handler RedirectHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cb := payments.ParseCallback(r.URL.Query())
		ctx := r.Context()
		if logg != nil && cb.ReferenceID != "" {
			ctx = logg.WithField(ctx, "payment_reference", cb.ReferenceID)
		}
		responses.WriteSuccess(w, handler.HandleCancel(ctx, cb))
	}
}
