package store

import (
	"context"

	"ledger/internal/models"
)

const apiKeyColumns = `id, account_id, key_hash, key_prefix, name, role, rate_limit_per_minute,
		       is_active, last_used_at, created_at, updated_at`

const bootstrapLockID = 7_311_001

type APIKeyStore struct {
	db DB
}

type APIKeyInput struct {
	AccountID          *int64
	KeyHash            string
	KeyPrefix          string
	Name               *string
	Role               models.Role
	RateLimitPerMinute int
}

// APIKeyUpdate carries the mutable fields of a key; nil fields are left as-is.
type APIKeyUpdate struct {
	Name               *string
	RateLimitPerMinute *int
	IsActive           *bool
}

func NewAPIKeyStore(db DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

func (s *APIKeyStore) Create(ctx context.Context, tx Getter, input APIKeyInput) (models.APIKey, error) {
	var row models.APIKey
	err := tx.GetContext(ctx, &row, `
		INSERT INTO api_keys (account_id, key_hash, key_prefix, name, role, rate_limit_per_minute)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+apiKeyColumns,
		input.AccountID, input.KeyHash, input.KeyPrefix, input.Name, input.Role, input.RateLimitPerMinute,
	)
	if err != nil {
		return models.APIKey{}, err
	}
	return row, nil
}

// GetActiveByHash resolves a digest to an active credential.
func (s *APIKeyStore) GetActiveByHash(ctx context.Context, keyHash string) (models.APIKey, error) {
	var row models.APIKey
	err := s.db.GetContext(ctx, &row, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE key_hash = $1 AND is_active = TRUE
	`, keyHash)
	if err != nil {
		return models.APIKey{}, err
	}
	return row, nil
}

func (s *APIKeyStore) GetByID(ctx context.Context, keyID int64) (models.APIKey, error) {
	var row models.APIKey
	err := s.db.GetContext(ctx, &row, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE id = $1
	`, keyID)
	if err != nil {
		return models.APIKey{}, err
	}
	return row, nil
}

func (s *APIKeyStore) ListByAccount(ctx context.Context, accountID int64) ([]models.APIKey, error) {
	rows := []models.APIKey{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *APIKeyStore) ListAll(ctx context.Context) ([]models.APIKey, error) {
	rows := []models.APIKey{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *APIKeyStore) Update(ctx context.Context, tx Getter, keyID int64, update APIKeyUpdate) (models.APIKey, error) {
	var row models.APIKey
	err := tx.GetContext(ctx, &row, `
		UPDATE api_keys
		SET name = COALESCE($1, name),
		    rate_limit_per_minute = COALESCE($2, rate_limit_per_minute),
		    is_active = COALESCE($3, is_active),
		    updated_at = NOW()
		WHERE id = $4
		RETURNING `+apiKeyColumns,
		update.Name, update.RateLimitPerMinute, update.IsActive, keyID,
	)
	if err != nil {
		return models.APIKey{}, err
	}
	return row, nil
}

func (s *APIKeyStore) TouchLastUsed(ctx context.Context, keyID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, keyID)
	return err
}

// LockBootstrap serialises admin bootstrap attempts until the surrounding
// transaction ends.
func (s *APIKeyStore) LockBootstrap(ctx context.Context, tx Execer) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockID)
	return err
}

func (s *APIKeyStore) HasActiveAdmin(ctx context.Context, q Getter) (bool, error) {
	var count int
	err := q.GetContext(ctx, &count, `SELECT COUNT(1) FROM api_keys WHERE role = 'admin' AND is_active = TRUE`)
	return count > 0, err
}
