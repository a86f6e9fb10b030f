package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"ledger/internal/apperror"
	"ledger/internal/auth"
	"ledger/internal/middleware"
	"ledger/internal/money"
	"ledger/internal/respond"
	"ledger/internal/validator"
	"ledger/internal/websocket"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type Services struct {
	Accounts     AccountService
	Keys         KeyService
	Transactions TransactionService
	Webhooks     WebhookService
	Audit        AuditStore
	Reconciler   Reconciler
}

type Handler struct {
	allowedOrigins string
	authenticator  middleware.Authenticator
	accounts       AccountService
	keys           KeyService
	transactions   TransactionService
	webhooks       WebhookService
	audit          AuditStore
	reconciler     Reconciler
	hub            *websocket.Hub
	logger         *slog.Logger
}

func New(allowedOrigins string, authenticator middleware.Authenticator, svc Services, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		allowedOrigins: allowedOrigins,
		authenticator:  authenticator,
		accounts:       svc.Accounts,
		keys:           svc.Keys,
		transactions:   svc.Transactions,
		webhooks:       svc.Webhooks,
		audit:          svc.Audit,
		reconciler:     svc.Reconciler,
		hub:            hub,
		logger:         logger,
	}
}

// identity returns the caller resolved by middleware.APIKeyAuth. A missing
// identity means the route was mounted without the middleware.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, apperror.InvalidAPIKey())
		return auth.Identity{}, false
	}
	return identity, true
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.BadRequest("request body is required")
		}
		return apperror.BadRequest("invalid payload: %v", err)
	}
	return validator.Struct(dst)
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.BadRequest("%s must be a positive integer", name)
	}
	return id, nil
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// fail logs unexpected errors and writes the mapped response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if kind := apperror.KindOf(err); kind == 0 || kind == apperror.KindStorage {
		h.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	respond.Error(w, err)
}

func balanceDisplay(balance int64, currency string) string {
	return money.FormatMinor(balance, currency)
}
