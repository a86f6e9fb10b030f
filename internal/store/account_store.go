package store

import (
	"context"

	"ledger/internal/models"
)

const accountColumns = `id, business_name, balance, currency, is_active, created_at, updated_at`

type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Getter, businessName, currency string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		INSERT INTO accounts (business_name, currency)
		VALUES ($1, $2)
		RETURNING `+accountColumns, businessName, currency)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetByID(ctx context.Context, accountID int64) (models.Account, error) {
	return s.get(ctx, s.db, accountID)
}

// GetByIDTx reads an account inside an open unit of work without locking it.
func (s *AccountStore) GetByIDTx(ctx context.Context, tx Getter, accountID int64) (models.Account, error) {
	return s.get(ctx, tx, accountID)
}

func (s *AccountStore) get(ctx context.Context, q Getter, accountID int64) (models.Account, error) {
	var row models.Account
	err := q.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID int64) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	if err != nil {
		return models.Account{}, err
	}
	return row, nil
}

// BalanceChange is an account's state right after a debit or credit.
type BalanceChange struct {
	AccountID int64  `db:"id"`
	Balance   int64  `db:"balance"`
	Currency  string `db:"currency"`
}

// Debit subtracts amount only when the balance covers it. sql.ErrNoRows
// means the account is missing or the balance is short.
func (s *AccountStore) Debit(ctx context.Context, tx Getter, accountID, amount int64) (BalanceChange, error) {
	var row BalanceChange
	err := tx.GetContext(ctx, &row, `
		UPDATE accounts
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
		RETURNING id, balance, currency
	`, amount, accountID)
	return row, err
}

// Credit adds amount. sql.ErrNoRows means the account is missing.
func (s *AccountStore) Credit(ctx context.Context, tx Getter, accountID, amount int64) (BalanceChange, error) {
	var row BalanceChange
	err := tx.GetContext(ctx, &row, `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, balance, currency
	`, amount, accountID)
	return row, err
}
