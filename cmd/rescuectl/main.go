package main

import (
	"context"
	"fmt"
	"os"

	"github.com/angelmondragon/foodrescue/internal/cart"
	"github.com/angelmondragon/foodrescue/internal/gateway"
	"github.com/angelmondragon/foodrescue/internal/orders"
	"github.com/angelmondragon/foodrescue/pkg/config"
	"github.com/angelmondragon/foodrescue/pkg/db"
	"github.com/angelmondragon/foodrescue/pkg/enums"
	"github.com/angelmondragon/foodrescue/pkg/logger"
	"github.com/angelmondragon/foodrescue/pkg/metrics"
	"github.com/angelmondragon/foodrescue/pkg/migrate"
	"github.com/angelmondragon/foodrescue/pkg/storage"
	"github.com/angelmondragon/foodrescue/pkg/telemetry"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

const serviceName = "rescuectl"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName, Output: os.Stderr})

	if err := godotenv.Load(); err != nil {
		logg.Debug(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      os.Stderr,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"storage": cfg.Storage.NormalizedDriver(),
	})

	shutdownTracing, err := telemetry.Setup(cfg.Tracing, serviceName, os.Stderr)
	requireResource(ctx, logg, "tracing", err)
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			logg.Error(ctx, "error flushing traces", err)
		}
	}()

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "migrate" {
		if err := runMigrate(ctx, cfg, logg, args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	backend, closeBackend, err := storage.Open(ctx, cfg, logg)
	requireResource(ctx, logg, "storage", err)
	defer func() {
		if err := closeBackend(); err != nil {
			logg.Error(ctx, "error closing storage", err)
		}
	}()

	client, err := gateway.NewClient(cfg.Gateway,
		gateway.WithLogger(logg),
		gateway.WithMetrics(metrics.NewGatewayMetrics(prometheus.NewRegistry())),
	)
	requireResource(ctx, logg, "order gateway", err)

	ledger, err := cart.NewLedger(cart.LedgerParams{Persister: backend, Logger: logg})
	requireResource(ctx, logg, "cart ledger", err)
	requireResource(ctx, logg, "cart snapshot", ledger.Restore(ctx))

	provider, err := defaultProvider(cfg.Checkout.DefaultProvider)
	requireResource(ctx, logg, "checkout provider", err)

	reconciler, err := orders.NewReconciler(orders.ReconcilerParams{
		Gateway:         client,
		Persister:       backend,
		Logger:          logg,
		PickupOffset:    cfg.Checkout.PickupOffset,
		DefaultProvider: provider,
		Handoff:         printHandoff(os.Stdout),
		SkipPayment:     !cfg.Checkout.AutoPay,
	})
	requireResource(ctx, logg, "order reconciler", err)
	requireResource(ctx, logg, "order snapshot", reconciler.Restore(ctx))

	a := &app{
		out:       os.Stdout,
		ledger:    ledger,
		orders:    reconciler,
		providers: client,
	}
	if err := a.run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, cfg *config.Config, logg *logger.Logger, args []string) error {
	command, extra := "status", []string(nil)
	if len(args) > 0 {
		command, extra = args[0], args[1:]
	}
	if command == "validate" {
		if err := migrate.ValidateFS(migrate.Migrations(), migrate.DefaultDir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	dbClient, err := db.New(ctx, cfg.Storage, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "cmd", command)
	logg.Info(ctx, "migrate ready")

	if command == "version" {
		version, err := migrate.Version(ctx, sqlDB, dbClient.Driver())
		if err != nil {
			return err
		}
		fmt.Println("schema version:", version)
		return nil
	}
	return migrate.Run(ctx, sqlDB, dbClient.Driver(), command, extra...)
}

func defaultProvider(raw string) (enums.PaymentProvider, error) {
	if raw == "" {
		return "", nil
	}
	return enums.ParsePaymentProvider(raw)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
