package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/orderflow/api/controllers"
	cartcontrollers "github.com/angelmondragon/orderflow/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/orderflow/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/orderflow/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/orderflow/api/controllers/webhooks"
	"github.com/angelmondragon/orderflow/api/middleware"
	"github.com/angelmondragon/orderflow/internal/cart"
	checkoutsvc "github.com/angelmondragon/orderflow/internal/checkout"
	"github.com/angelmondragon/orderflow/internal/orders"
	"github.com/angelmondragon/orderflow/internal/payments"
	stripewebhook "github.com/angelmondragon/orderflow/internal/webhooks/stripe"
	"github.com/angelmondragon/orderflow/pkg/config"
	"github.com/angelmondragon/orderflow/pkg/logger"
	"github.com/angelmondragon/orderflow/pkg/metrics"
	"github.com/angelmondragon/orderflow/pkg/redis"
	"github.com/angelmondragon/orderflow/pkg/stripe"
)

// Dependencies carries everything the HTTP surface needs. Nil services make
// their handlers answer 500 rather than panic.
type Dependencies struct {
	DB    controllers.Pinger
	Redis *redis.Client

	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Cart      cart.Service
	Sessions  payments.SessionService
	Reconcile payments.ReconcileService

	StripeClient    *stripe.Client
	StripeProcessor *stripewebhook.Processor
	StripeGuard     *stripewebhook.IdempotencyGuard
	PaymentMetrics  *metrics.PaymentMetrics

	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicURL),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Get("/api/public/ping", controllers.PublicPing())

	stripeHandler := webhookcontrollers.StripeWebhook(stripeWebhookDeps(deps, logg))
	r.Post("/api/v1/webhooks/stripe", stripeHandler)
	// path registered in the Stripe dashboard before the versioned route existed
	r.Post("/payments/webhook", stripeHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, cfg.Eventing.RequestIdempotencyTTL, logg))
		}

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Checkout, logg))
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		})

		r.Route("/payments/sessions", func(r chi.Router) {
			r.Post("/", paymentcontrollers.CreateSession(deps.Sessions, logg))
			r.Get("/verify", paymentcontrollers.VerifySession(deps.Reconcile, logg))
			r.Post("/verify", paymentcontrollers.VerifySessionBody(deps.Reconcile, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(deps.Cart, logg))
			r.Patch("/items/{productId}", cartcontrollers.CartUpdateItem(deps.Cart, logg))
			r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(deps.Cart, logg))
		})
	})

	return r
}

// stripeWebhookDeps leaves unset collaborators as untyped nil so the
// controller's nil checks see them.
func stripeWebhookDeps(deps Dependencies, logg *logger.Logger) webhookcontrollers.StripeWebhookDeps {
	out := webhookcontrollers.StripeWebhookDeps{Metrics: deps.PaymentMetrics, Logger: logg}
	if deps.StripeProcessor != nil {
		out.Processor = deps.StripeProcessor
	}
	if deps.StripeClient != nil {
		out.Client = deps.StripeClient
	}
	if deps.StripeGuard != nil {
		out.Guard = deps.StripeGuard
	}
	return out
}
