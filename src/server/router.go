package server

import (
	"net/http"
	"time"

	"evergreen/src/auth"
	"evergreen/src/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"
)

// RouterDeps is everything the HTTP API serves.
type RouterDeps struct {
	Trading        handler.TradingService
	Coexistence    handler.CoexistenceResolver
	Metrics        http.Handler
	APITokenHash   string
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if deps.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.RequestTimeout))
	}

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("healthcheck write failed")
		}
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	// Token protected routes
	r.Route("/api/trading", func(r chi.Router) {
		r.Use(auth.RequireToken(deps.APITokenHash))

		r.Get("/balances", handler.GetBalancesHandler(deps.Trading))
		r.Get("/orders/chance", handler.GetOrderChanceHandler(deps.Trading))
		r.Post("/orders", handler.CreateOrderHandler(deps.Trading))
		r.Get("/orders/{clientOrderId}", handler.GetOrderHandler(deps.Trading))
		r.Post("/orders/{clientOrderId}/cancel", handler.CancelOrderHandler(deps.Trading))
		r.Post("/signal-execute", handler.SignalExecuteHandler(deps.Trading))
		r.Get("/coexistence", handler.CoexistenceHandler(deps.Coexistence))
	})

	return r
}
