package handlers

import (
	"net/http"
	"strings"

	"ledger/internal/middleware"
	"ledger/internal/respond"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestLogger(h.logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(h.allowedOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key", "X-Request-ID"},
		MaxAge:         300,
	}))

	authenticated := middleware.APIKeyAuth(h.authenticator)

	router.Route("/api", func(r chi.Router) {
		r.Post("/accounts", h.CreateAccount)
		r.Post("/admin/bootstrap", h.BootstrapAdmin)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Get("/accounts/{id}", h.GetAccount)
			r.Get("/accounts/{id}/balance", h.GetBalance)
			r.Get("/accounts/{id}/keys", h.ListAccountKeys)

			r.Post("/keys", h.GenerateKey)
			r.Patch("/keys/{id}", h.UpdateKey)
			r.With(middleware.RequireAdmin).Get("/keys", h.ListKeys)

			r.Post("/transactions", h.CreateTransaction)
			r.Get("/transactions/{id}", h.GetTransaction)
			r.Get("/transactions/account/{account_id}", h.ListAccountTransactions)

			r.Post("/webhooks", h.RegisterWebhook)
			r.Get("/webhooks", h.ListWebhooks)
			r.Get("/webhooks/{id}", h.GetWebhook)
			r.Get("/webhooks/{id}/events", h.ListWebhookEvents)
			r.Delete("/webhooks/{id}", h.DeleteWebhook)

			r.With(middleware.RequireAdmin).Get("/admin/audit", h.ListAuditLogs)
			r.With(middleware.RequireAdmin).Get("/admin/reconcile", h.Reconcile)
		})
	})

	router.With(middleware.APIKeyAuthWS(h.authenticator)).Get("/ws/balances", h.WSBalances)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
