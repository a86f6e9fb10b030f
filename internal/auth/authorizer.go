package auth

import (
	"ledger/internal/apperror"
	"ledger/internal/models"
)

func RequireAdmin(id Identity) error {
	if !id.IsAdmin() {
		return apperror.Forbidden("admin access required")
	}
	return nil
}

// RequireAccountAccess allows admins everywhere and customers only on their
// own account.
func RequireAccountAccess(id Identity, accountID int64) error {
	if id.IsAdmin() || id.OwnsAccount(accountID) {
		return nil
	}
	return apperror.Forbidden("access to account denied")
}

// RequireTransactionView allows admins everywhere and customers on
// transactions their account sent or received.
func RequireTransactionView(id Identity, tx models.Transaction) error {
	if id.IsAdmin() {
		return nil
	}
	if id.AccountID == nil {
		return apperror.Forbidden("key is not bound to an account")
	}
	if !tx.Involves(*id.AccountID) {
		return apperror.Forbidden("access to transaction denied")
	}
	return nil
}

// RequireMovementAccess decides whether id may initiate m. Admins may move
// funds between any accounts; customers may only debit or transfer out of
// their own account and credit their own account.
func RequireMovementAccess(id Identity, m models.Movement) error {
	if id.IsAdmin() {
		return nil
	}
	if id.AccountID == nil {
		return apperror.Forbidden("key is not bound to an account")
	}
	owned := m.From()
	if m.Type() == models.TransactionCredit {
		owned = m.To()
	}
	if owned == nil || *owned != *id.AccountID {
		return apperror.Forbidden("access to account denied")
	}
	return nil
}
