package store

import (
	"context"

	"ledger/internal/models"
)

const transactionColumns = `id, from_account_id, to_account_id, amount, transaction_type, status,
		       description, idempotency_key, created_at, updated_at`

type TransactionStore struct {
	db DB
}

type TransactionInput struct {
	FromAccountID  *int64
	ToAccountID    *int64
	Amount         int64
	Type           models.TransactionType
	Status         models.TransactionStatus
	Description    *string
	IdempotencyKey *string
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Getter, input TransactionInput) (models.Transaction, error) {
	var row models.Transaction
	err := tx.GetContext(ctx, &row, `
		INSERT INTO transactions (from_account_id, to_account_id, amount, transaction_type, status, description, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+transactionColumns,
		input.FromAccountID, input.ToAccountID, input.Amount, input.Type, input.Status,
		input.Description, input.IdempotencyKey,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

func (s *TransactionStore) IdempotencyKeyExists(ctx context.Context, tx Getter, key string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM transactions WHERE idempotency_key = $1)`, key)
	return exists, err
}

func (s *TransactionStore) GetByID(ctx context.Context, transactionID int64) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

// ListByAccount returns every transaction the account sent or received,
// oldest first.
func (s *TransactionStore) ListByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	rows := []models.Transaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at, id
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Reconciliation compares an account's stored balance with the net of its
// completed journal entries. A non-zero Difference means the two diverged.
type Reconciliation struct {
	AccountID  int64  `db:"account_id" json:"account_id"`
	Currency   string `db:"currency" json:"currency"`
	JournalSum int64  `db:"journal_sum" json:"journal_sum"`
	Balance    int64  `db:"balance" json:"balance"`
	Difference int64  `db:"difference" json:"difference"`
}

func (s *TransactionStore) Reconcile(ctx context.Context) ([]Reconciliation, error) {
	rows := []Reconciliation{}
	err := s.db.SelectContext(ctx, &rows, `
		WITH movements AS (
			SELECT to_account_id AS account_id, amount
			FROM transactions
			WHERE status = 'completed' AND to_account_id IS NOT NULL
			UNION ALL
			SELECT from_account_id AS account_id, -amount
			FROM transactions
			WHERE status = 'completed' AND from_account_id IS NOT NULL
		)
		SELECT a.id AS account_id,
		       a.currency,
		       COALESCE(SUM(m.amount), 0) AS journal_sum,
		       a.balance,
		       a.balance - COALESCE(SUM(m.amount), 0) AS difference
		FROM accounts a
		LEFT JOIN movements m ON m.account_id = a.id
		GROUP BY a.id, a.currency, a.balance
		ORDER BY a.id
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
