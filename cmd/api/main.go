package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/orderflow/api/routes"
	"github.com/angelmondragon/orderflow/internal/cart"
	"github.com/angelmondragon/orderflow/internal/checkout"
	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/internal/payments"
	"github.com/angelmondragon/orderflow/internal/products"
	stripewebhook "github.com/angelmondragon/orderflow/internal/webhooks/stripe"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/db"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/metrics"
	"github.com/angelmondragon/orderflow/pkg/migrate"
	"github.com/angelmondragon/orderflow/pkg/outbox"
	"github.com/angelmondragon/orderflow/pkg/redis"
	"github.com/angelmondragon/orderflow/pkg/stripe"
)

const (
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
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
	cfg.Service.Kind = serviceName

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return fmt.Errorf("bootstrap stripe: %w", err)
	}

	deps, err := wire(cfg, logg, dbClient, redisClient, stripeClient)
	if err != nil {
		return err
	}

	addr := ":" + cmp.Or(os.Getenv("PORT"), cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": cmp.Or(os.Getenv("DYNO"), "local"),
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, logg, server)
}

// wire builds the services behind the router.
func wire(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, stripeClient *stripe.Client) (deps routes.Dependencies, err error) {
	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	orderRepo := orders.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	gateway := payments.NewStripeGateway(cfg.Stripe, paymentMetrics, logg)

	deps = routes.Dependencies{
		DB:             dbClient,
		Redis:          redisClient,
		StripeClient:   stripeClient,
		PaymentMetrics: paymentMetrics,
	}

	var errs error
	deps.Checkout, err = checkout.NewService(dbClient, cartRepo, orderRepo, emitter, logg)
	errs = multierr.Append(errs, err)
	deps.Orders, err = orders.NewService(orderRepo)
	errs = multierr.Append(errs, err)
	deps.Cart, err = cart.NewService(cartRepo, products.NewRepository(dbClient.DB()))
	errs = multierr.Append(errs, err)
	deps.Sessions, err = payments.NewSessionService(payments.SessionServiceParams{
		Orders:    orderRepo,
		Gateway:   gateway,
		Config:    cfg.Stripe,
		PublicURL: cfg.App.PublicURL,
		Logger:    logg,
	})
	errs = multierr.Append(errs, err)
	deps.Reconcile, err = payments.NewReconcileService(orderRepo, gateway)
	errs = multierr.Append(errs, err)
	deps.StripeProcessor, err = stripewebhook.NewProcessor(stripewebhook.ProcessorParams{
		Orders:  orderRepo,
		Tx:      dbClient,
		Outbox:  emitter,
		Metrics: paymentMetrics,
		Logger:  logg,
	})
	errs = multierr.Append(errs, err)
	deps.StripeGuard, err = stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL, stripewebhook.DefaultScope)
	errs = multierr.Append(errs, err)

	if errs != nil {
		return routes.Dependencies{}, fmt.Errorf("wire services: %w", errs)
	}
	return deps, nil
}

// serve blocks until the server fails or ctx is canceled, then drains
// in-flight requests.
func serve(ctx context.Context, logg *logger.Logger, server *http.Server) error {
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.ListenAndServe() }()
	logg.Info(ctx, "starting api server")

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logg.Info(ctx, "api server shut down gracefully")
	return nil
}
