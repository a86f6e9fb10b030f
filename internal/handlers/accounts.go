package handlers

import (
	"net/http"

	"ledger/internal/respond"
	"ledger/internal/services"
)

type createAccountRequest struct {
	BusinessName string `json:"business_name" validate:"required,min=1,max=255"`
	Currency     string `json:"currency" validate:"omitempty,iso4217"`
}

// CreateAccount is public: it opens an account and returns its first key.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.accounts.CreateAccount(r.Context(), services.CreateAccountRequest{
		BusinessName: req.BusinessName,
		Currency:     req.Currency,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, createdAccountView{
		Account:      newAccountView(created.Account),
		SecretAPIKey: created.Key.Secret,
		KeyPrefix:    created.Key.Key.KeyPrefix,
		KeyID:        created.Key.Key.ID,
	})
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	accountID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), identity, accountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, newAccountView(account))
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	accountID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), identity, accountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, balanceView{
		AccountID:      account.ID,
		Balance:        account.Balance,
		BalanceDisplay: balanceDisplay(account.Balance, account.Currency),
		Currency:       account.Currency,
	})
}

func (h *Handler) ListAccountKeys(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	accountID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	keys, err := h.keys.ListAccountKeys(r.Context(), identity, accountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, keys)
}
