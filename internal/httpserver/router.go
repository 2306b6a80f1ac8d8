package httpserver

import (
	"net/http"

	"sigflow/internal/accounts"
	"sigflow/internal/auth"
	"sigflow/internal/health"
	"sigflow/internal/httputil"
	"sigflow/internal/orders"
	"sigflow/internal/webhook"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	WebhookHandler *webhook.Handler
	OrderHandler   *orders.Handler
	AuthHandler    *auth.Handler
	HealthHandler  *health.Handler
	AccountService *accounts.Service
	OrdersWS       http.Handler
	InvalidWS      http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(RateLimitMiddleware)

	r.Get("/health", d.HealthHandler.Ready)
	r.Get("/health/live", d.HealthHandler.Live)
	r.Get("/health/metrics", d.HealthHandler.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(WithAPIKey(d.AccountService))
			r.Post("/signals", func(w http.ResponseWriter, r *http.Request) {
				acct, ok := Account(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.WebhookHandler.Receive(w, r, acct)
			})
			r.Post("/auth/token", func(w http.ResponseWriter, r *http.Request) {
				acct, ok := Account(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.AuthHandler.Token(w, r, acct)
			})
		})

		r.Get("/ws/orders", d.OrdersWS.ServeHTTP)
		r.Get("/ws/signals/invalid", d.InvalidWS.ServeHTTP)

		r.Get("/orders", d.OrderHandler.List)
		r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
			d.OrderHandler.Get(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/orders/{id}/history", func(w http.ResponseWriter, r *http.Request) {
			d.OrderHandler.History(w, r, chi.URLParam(r, "id"))
		})
		r.Post("/orders/{id}/close", func(w http.ResponseWriter, r *http.Request) {
			d.OrderHandler.Close(w, r, chi.URLParam(r, "id"))
		})
	})

	return r
}
