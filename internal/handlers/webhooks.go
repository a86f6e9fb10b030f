package handlers

import (
	"net/http"
	"strconv"

	"ledger/internal/apperror"
	"ledger/internal/respond"
	"ledger/internal/services"
)

type registerWebhookRequest struct {
	URL       string   `json:"url" validate:"required,http_url,max=2048"`
	Events    []string `json:"events" validate:"required,min=1,dive,required,max=100"`
	AccountID *int64   `json:"account_id" validate:"omitempty,gt=0"`
}

func (h *Handler) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req registerWebhookRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	registered, err := h.webhooks.Register(r.Context(), identity, services.RegisterWebhookRequest{
		AccountID: req.AccountID,
		URL:       req.URL,
		Events:    req.Events,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, webhookView{WebhookEndpoint: registered.Endpoint, Secret: registered.Secret})
}

func (h *Handler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var accountID *int64
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			h.fail(w, r, apperror.BadRequest("account_id must be a positive integer"))
			return
		}
		accountID = &parsed
	}
	endpoints, err := h.webhooks.List(r.Context(), identity, accountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, endpoints)
}

func (h *Handler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	endpointID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	endpoint, err := h.webhooks.Get(r.Context(), identity, endpointID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, endpoint)
}

func (h *Handler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	endpointID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.webhooks.Delete(r.Context(), identity, endpointID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListWebhookEvents(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	endpointID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	events, err := h.webhooks.Events(r.Context(), identity, endpointID, parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	views := make([]webhookEventView, 0, len(events))
	for _, event := range events {
		views = append(views, newWebhookEventView(event))
	}
	respond.JSON(w, http.StatusOK, views)
}
