package auth

import "ledger/internal/models"

// Identity is the resolved caller of a request. AccountID is nil for
// admin keys that are not bound to an account.
type Identity struct {
	KeyID     int64
	AccountID *int64
	Role      models.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// OwnsAccount reports whether the identity is bound to accountID.
func (i Identity) OwnsAccount(accountID int64) bool {
	return i.AccountID != nil && *i.AccountID == accountID
}
