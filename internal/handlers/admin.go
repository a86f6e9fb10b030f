package handlers

import (
	"net/http"

	"ledger/internal/apperror"
	"ledger/internal/respond"
)

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	if limit > 500 {
		limit = 500
	}
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, apperror.Storage(err))
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

// Reconcile reports, per account, the stored balance against the net of its
// completed transactions.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reconciler.Reconcile(r.Context())
	if err != nil {
		h.fail(w, r, apperror.Storage(err))
		return
	}
	type reconciliationView struct {
		AccountID       int64  `json:"account_id"`
		Currency        string `json:"currency"`
		JournalSum      string `json:"journal_sum"`
		AccountBalance  string `json:"account_balance"`
		Difference      string `json:"difference"`
		DifferenceMinor int64  `json:"difference_minor"`
	}
	views := make([]reconciliationView, 0, len(rows))
	for _, row := range rows {
		views = append(views, reconciliationView{
			AccountID:       row.AccountID,
			Currency:        row.Currency,
			JournalSum:      balanceDisplay(row.JournalSum, row.Currency),
			AccountBalance:  balanceDisplay(row.Balance, row.Currency),
			Difference:      balanceDisplay(row.Difference, row.Currency),
			DifferenceMinor: row.Difference,
		})
	}
	respond.JSON(w, http.StatusOK, views)
}
