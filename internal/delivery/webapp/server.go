package webapp

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yourusername/cartech-bot/internal/infrastructure/metrics"
	"github.com/yourusername/cartech-bot/internal/usecase"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Orders        usecase.OrderUseCase
	Profiles      usecase.ProfileUseCase
	Pricing       usecase.PricingUseCase
	Auth          *Authenticator
	Store         Pinger
	AllowedOrigin string
}

type api struct {
	orders   usecase.OrderUseCase
	profiles usecase.ProfileUseCase
	pricing  usecase.PricingUseCase
	auth     *Authenticator
	store    Pinger
}

// NewRouter builds the storefront HTTP API.
func NewRouter(d Deps) http.Handler {
	a := &api{
		orders:   d.Orders,
		profiles: d.Profiles,
		pricing:  d.Pricing,
		auth:     d.Auth,
		store:    d.Store,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, requestLog, cors(d.AllowedOrigin))

	r.Get("/healthz", a.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/telegram", a.authTelegram)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(d.Auth))

			r.Get("/me/profile", a.getProfile)
			r.Put("/me/profile", a.putProfile)
			r.Get("/me/garage", a.listGarage)
			r.Post("/me/garage", a.addCar)
			r.Delete("/me/garage", a.clearGarage)
			r.Delete("/me/garage/{carID}", a.removeCar)
			r.Post("/me/garage/{carID}/primary", a.setPrimaryCar)

			r.Get("/orders", a.listOrders)
			r.Post("/orders", a.createOrder)
			r.Get("/orders/{id}", a.getOrder)
			r.Post("/orders/{id}/cancel", a.cancelOrder)

			r.Get("/pricing", a.getPricing)
			r.Post("/pricing/quote", a.quote)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireOperator)
				r.Get("/orders", a.adminListOrders)
				r.Post("/orders/{id}/status", a.adminSetStatus)
				r.Post("/orders/{id}/tracking", a.adminSetTracking)
				r.Delete("/orders/{id}", a.adminDeleteOrder)
				r.Put("/markup", a.adminSetMarkup)
			})
		})
	})
	return r
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	if a.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
