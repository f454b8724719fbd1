package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/angelmondragon/foodrescue/api/routes"
	"github.com/angelmondragon/foodrescue/internal/gateway"
	"github.com/angelmondragon/foodrescue/internal/orders"
	"github.com/angelmondragon/foodrescue/internal/payments"
	"github.com/angelmondragon/foodrescue/pkg/config"
	"github.com/angelmondragon/foodrescue/pkg/instance"
	"github.com/angelmondragon/foodrescue/pkg/logger"
	"github.com/angelmondragon/foodrescue/pkg/metrics"
	"github.com/angelmondragon/foodrescue/pkg/storage"
	"github.com/angelmondragon/foodrescue/pkg/telemetry"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	serviceName     = "callback-server"
	dedupScope      = "payment-callback"
	shutdownTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	shutdownTracing, err := telemetry.Setup(cfg.Tracing, serviceName, os.Stderr)
	requireResource(context.Background(), logg, "tracing", err)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	backend, closeBackend, err := storage.Open(context.Background(), cfg, logg)
	requireResource(context.Background(), logg, "storage", err)
	defer func() {
		if err := closeBackend(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := gateway.NewClient(cfg.Gateway,
		gateway.WithLogger(logg),
		gateway.WithMetrics(metrics.NewGatewayMetrics(registry)),
	)
	requireResource(context.Background(), logg, "order gateway", err)

	reconciler, err := orders.NewReconciler(orders.ReconcilerParams{
		Gateway:      client,
		Persister:    backend,
		Logger:       logg,
		PickupOffset: cfg.Checkout.PickupOffset,
	})
	requireResource(context.Background(), logg, "order reconciler", err)
	requireResource(context.Background(), logg, "order snapshot", reconciler.Restore(context.Background()))

	guard, err := payments.NewIdempotencyGuard(backend, cfg.Callback.DedupTTL, dedupScope)
	requireResource(context.Background(), logg, "idempotency guard", err)

	redirects, err := payments.NewHandler(payments.HandlerParams{
		Orders:  reconciler,
		Guard:   guard,
		Logger:  logg,
		Metrics: metrics.NewCallbackMetrics(registry),
	})
	requireResource(context.Background(), logg, "payment redirect handler", err)

	addr := ":" + cfg.Callback.Port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
		"storage":  cfg.Storage.NormalizedDriver(),
	})
	logg.Info(ctx, "starting callback server")

	server := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(routes.NewRouter(cfg, logg, backend, redirects, registry), serviceName),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "callback server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "callback server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "callback server shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
