package handlers

import (
	"net/http"

	"ledger/internal/models"
	"ledger/internal/respond"
	"ledger/internal/services"
)

type createTransactionRequest struct {
	TransactionType string  `json:"transaction_type" validate:"required,oneof=credit debit transfer"`
	FromAccountID   *int64  `json:"from_account_id" validate:"omitempty,gt=0"`
	ToAccountID     *int64  `json:"to_account_id" validate:"omitempty,gt=0"`
	Amount          int64   `json:"amount" validate:"gt=0"`
	Description     *string `json:"description" validate:"omitempty,max=1024"`
	IdempotencyKey  *string `json:"idempotency_key" validate:"omitempty,max=255"`
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req createTransactionRequest
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	record, err := h.transactions.CreateTransaction(r.Context(), identity, services.CreateTransactionRequest{
		Type:           models.TransactionType(req.TransactionType),
		FromAccountID:  req.FromAccountID,
		ToAccountID:    req.ToAccountID,
		Amount:         req.Amount,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, newTransactionView(record))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	transactionID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	record, err := h.transactions.GetTransaction(r.Context(), identity, transactionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, newTransactionView(record))
}

func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	accountID, err := idParam(r, "account_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	records, err := h.transactions.ListAccountTransactions(r.Context(), identity, accountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, newTransactionViews(records))
}
