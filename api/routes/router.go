package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	healthcontrollers "github.com/craftora/marketplace-backend/api/controllers/health"
	ordercontrollers "github.com/craftora/marketplace-backend/api/controllers/orders"
	paymentcontrollers "github.com/craftora/marketplace-backend/api/controllers/payments"
	webhookcontrollers "github.com/craftora/marketplace-backend/api/controllers/webhooks"
	"github.com/craftora/marketplace-backend/api/middleware"
	checkoutsvc "github.com/craftora/marketplace-backend/internal/checkout"
	fulfillmentsvc "github.com/craftora/marketplace-backend/internal/fulfillment"
	orderssvc "github.com/craftora/marketplace-backend/internal/orders"
	paymentssvc "github.com/craftora/marketplace-backend/internal/payments"
	"github.com/craftora/marketplace-backend/pkg/config"
	"github.com/craftora/marketplace-backend/pkg/db"
	"github.com/craftora/marketplace-backend/pkg/logger"
	"github.com/craftora/marketplace-backend/pkg/redis"
	"github.com/craftora/marketplace-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	checkoutService *checkoutsvc.Service,
	ordersService *orderssvc.Service,
	fulfillmentService *fulfillmentsvc.Service,
	paymentsService *paymentssvc.Service,
	stripeClient *stripe.Client,
	webhookGuard *paymentssvc.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", healthcontrollers.Live())
		r.Get("/ready", healthcontrollers.Ready(dbP, redisClient, logg))
	})

	// Stripe authenticates with its signature, not a bearer token.
	r.Post("/api/v1/payments/webhook", webhookcontrollers.Stripe(paymentsService, stripeClient, webhookGuard, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(checkoutService, logg))
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Get(ordersService, logg))
			r.Put("/{orderId}/cancel", ordercontrollers.Cancel(ordersService, logg))
			r.Put("/{orderId}/vendor-status", ordercontrollers.VendorStatus(fulfillmentService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/create-payment-intent", paymentcontrollers.CreateIntent(paymentsService, logg))
			r.Post("/confirm-payment", paymentcontrollers.Confirm(paymentsService, logg))
			r.Post("/refund", paymentcontrollers.Refund(paymentsService, logg))
		})
	})

	return r
}
