package store

import (
	"context"

	"ledger/internal/models"

	"github.com/lib/pq"
)

const webhookEndpointColumns = `id, account_id, url, secret, events, is_active, retry_max_attempts, created_at, updated_at`

const webhookEventColumns = `id, endpoint_id, event_type, payload, signature, status, attempt_count, next_retry_at, created_at`

type WebhookStore struct {
	db DB
}

type WebhookEndpointInput struct {
	AccountID        int64
	URL              string
	Secret           string
	Events           models.Events
	RetryMaxAttempts int
}

type WebhookEventInput struct {
	EndpointID int64
	EventType  string
	Payload    string
	Signature  string
}

func NewWebhookStore(db DB) *WebhookStore {
	return &WebhookStore{db: db}
}

func (s *WebhookStore) CreateEndpoint(ctx context.Context, input WebhookEndpointInput) (models.WebhookEndpoint, error) {
	var row models.WebhookEndpoint
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO webhook_endpoints (account_id, url, secret, events, retry_max_attempts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+webhookEndpointColumns,
		input.AccountID, input.URL, input.Secret, input.Events, input.RetryMaxAttempts,
	)
	if err != nil {
		return models.WebhookEndpoint{}, err
	}
	return row, nil
}

func (s *WebhookStore) GetEndpoint(ctx context.Context, endpointID int64) (models.WebhookEndpoint, error) {
	var row models.WebhookEndpoint
	err := s.db.GetContext(ctx, &row, `
		SELECT `+webhookEndpointColumns+`
		FROM webhook_endpoints
		WHERE id = $1
	`, endpointID)
	if err != nil {
		return models.WebhookEndpoint{}, err
	}
	return row, nil
}

func (s *WebhookStore) ListEndpointsByAccount(ctx context.Context, accountID int64) ([]models.WebhookEndpoint, error) {
	rows := []models.WebhookEndpoint{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+webhookEndpointColumns+`
		FROM webhook_endpoints
		WHERE account_id = $1 AND is_active = TRUE
		ORDER BY id
	`, accountID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveForAccounts returns the active endpoints owned by any of accountIDs.
func (s *WebhookStore) ListActiveForAccounts(ctx context.Context, accountIDs []int64) ([]models.WebhookEndpoint, error) {
	rows := []models.WebhookEndpoint{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+webhookEndpointColumns+`
		FROM webhook_endpoints
		WHERE account_id = ANY($1) AND is_active = TRUE
		ORDER BY id
	`, pq.Array(accountIDs))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate soft-deletes an endpoint and reports how many rows changed.
func (s *WebhookStore) Deactivate(ctx context.Context, endpointID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE webhook_endpoints
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active = TRUE
	`, endpointID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *WebhookStore) CreateEvent(ctx context.Context, input WebhookEventInput) (models.WebhookEvent, error) {
	var row models.WebhookEvent
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO webhook_events (endpoint_id, event_type, payload, signature, status, next_retry_at)
		VALUES ($1, $2, $3, $4, 'pending', NOW())
		RETURNING `+webhookEventColumns,
		input.EndpointID, input.EventType, input.Payload, input.Signature,
	)
	if err != nil {
		return models.WebhookEvent{}, err
	}
	return row, nil
}

func (s *WebhookStore) ListEvents(ctx context.Context, endpointID int64, limit int) ([]models.WebhookEvent, error) {
	rows := []models.WebhookEvent{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE endpoint_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, endpointID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
