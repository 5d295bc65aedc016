package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmarroquin/kitloop-backend/api/controllers"
	"github.com/dmarroquin/kitloop-backend/api/middleware"
	"github.com/dmarroquin/kitloop-backend/internal/bookings"
	"github.com/dmarroquin/kitloop-backend/internal/catalog"
	"github.com/dmarroquin/kitloop-backend/internal/payments"
	"github.com/dmarroquin/kitloop-backend/internal/penalties"
	"github.com/dmarroquin/kitloop-backend/internal/search"
	"github.com/dmarroquin/kitloop-backend/pkg/config"
	"github.com/dmarroquin/kitloop-backend/pkg/db"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
	"github.com/dmarroquin/kitloop-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	searchService search.Service,
	bookingService bookings.Service,
	paymentService payments.Service,
	penaltyService penalties.Service,
	catalogService catalog.Service,
) http.Handler {
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Availability search is public; the gateway callbacks authenticate via
	// the HMAC signature carried in the body.
	r.Get("/api/v1/search", controllers.SearchUnits(searchService, logg))

	r.Route("/api/v1/webhooks/gateway", func(r chi.Router) {
		r.Post("/payment", controllers.GatewayPaymentCallback(paymentService, logg))
		r.Post("/payment-failure", controllers.GatewayPaymentFailure(paymentService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", controllers.CreateBooking(bookingService, logg))
			r.Get("/", controllers.ListBookings(bookingService, logg))
			r.Get("/{bookingId}", controllers.GetBooking(bookingService, logg))
			r.Post("/{bookingId}/extend", controllers.ExtendBooking(bookingService, logg))
			r.Post("/{bookingId}/cancel", controllers.CancelBooking(bookingService, logg))
			r.Post("/{bookingId}/return", controllers.ReturnBooking(bookingService, logg))
			r.Post("/{bookingId}/payment-intent", controllers.CreatePaymentIntent(paymentService, logg))
			r.Get("/{bookingId}/payment-intent", controllers.GetPaymentIntent(paymentService, logg))
			r.Get("/{bookingId}/fines", controllers.ListBookingFines(penaltyService, bookingService, logg))
		})

		r.Route("/fines", func(r chi.Router) {
			r.Get("/", controllers.ListMyFines(penaltyService, logg))
			r.Post("/{fineId}/disputes", controllers.RaiseDispute(penaltyService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("ops", logg))
			r.Post("/bookings/{bookingId}/fines", controllers.CreateDamageFine(penaltyService, logg))
			r.Post("/bookings/{bookingId}/fines/recompute", controllers.RecomputeOverdueFine(penaltyService, logg))
			r.Get("/fines/{fineId}", controllers.GetFine(penaltyService, logg))
			r.Post("/fines/{fineId}/paid", controllers.MarkFinePaid(penaltyService, logg))
			r.Post("/disputes/{disputeId}/review", controllers.StartDisputeReview(penaltyService, logg))
			r.Post("/disputes/{disputeId}/resolve", controllers.ResolveDispute(penaltyService, logg))
			r.Put("/units/{unitId}/fee-policy", controllers.SetFeePolicy(catalogService, logg))
		})
	})

	return r
}
