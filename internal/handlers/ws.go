package handlers

import (
	"context"
	"net/http"
	"strconv"

	"ledger/internal/apperror"
	"ledger/internal/auth"
	"ledger/internal/websocket"
)

// WSBalances streams balance updates for one account, starting with the
// current balance. The key may be passed in the api_key query parameter
// since browsers cannot set headers on websocket upgrades.
func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	accountID, err := strconv.ParseInt(r.URL.Query().Get("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		h.fail(w, r, apperror.BadRequest("account_id must be a positive integer"))
		return
	}
	if err := auth.RequireAccountAccess(identity, accountID); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := h.accounts.GetAccount(r.Context(), identity, accountID); err != nil {
		h.fail(w, r, err)
		return
	}
	snapshot := func(ctx context.Context) (websocket.BalanceUpdate, error) {
		account, err := h.accounts.GetAccount(ctx, identity, accountID)
		if err != nil {
			return websocket.BalanceUpdate{}, err
		}
		return websocket.BalanceUpdate{
			AccountID:      account.ID,
			Balance:        account.Balance,
			BalanceDisplay: balanceDisplay(account.Balance, account.Currency),
			Currency:       account.Currency,
		}, nil
	}
	websocket.ServeWS(w, r, h.hub, accountID, snapshot, h.logger)
}
