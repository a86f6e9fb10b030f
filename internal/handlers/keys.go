package handlers

import (
	"net/http"

	"ledger/internal/models"
	"ledger/internal/respond"
	"ledger/internal/services"
)

type generateKeyRequest struct {
	AccountID          *int64  `json:"account_id" validate:"omitempty,gt=0"`
	Name               *string `json:"name" validate:"omitempty,max=255"`
	RateLimitPerMinute *int    `json:"rate_limit_per_minute" validate:"omitempty,gt=0"`
	Role               string  `json:"role" validate:"omitempty,oneof=admin customer"`
}

type updateKeyRequest struct {
	Name               *string `json:"name" validate:"omitempty,max=255"`
	RateLimitPerMinute *int    `json:"rate_limit_per_minute" validate:"omitempty,gt=0"`
	IsActive           *bool   `json:"is_active"`
}

type bootstrapRequest struct {
	Name *string `json:"name" validate:"omitempty,max=255"`
}

func (h *Handler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req generateKeyRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	generated, err := h.keys.GenerateKey(r.Context(), identity, services.GenerateKeyRequest{
		AccountID:          req.AccountID,
		Name:               req.Name,
		RateLimitPerMinute: req.RateLimitPerMinute,
		Role:               models.Role(req.Role),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, newGeneratedKeyView(generated))
}

func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	keys, err := h.keys.ListAllKeys(r.Context(), identity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, keys)
}

func (h *Handler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	keyID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req updateKeyRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.keys.UpdateKey(r.Context(), identity, keyID, services.UpdateKeyRequest{
		Name:               req.Name,
		RateLimitPerMinute: req.RateLimitPerMinute,
		IsActive:           req.IsActive,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, updated)
}

// BootstrapAdmin is public until the first active admin key exists.
func (h *Handler) BootstrapAdmin(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	generated, err := h.keys.BootstrapAdmin(r.Context(), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, newGeneratedKeyView(generated))
}
