package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"ledger/internal/apperror"
	"ledger/internal/auth"
	"ledger/internal/models"
	"ledger/internal/store"
	"ledger/internal/webhook"
)

const (
	defaultRetryMaxAttempts = 5
	defaultEventListLimit   = 50
	maxEventListLimit       = 200
)

// WebhookService manages webhook endpoints and records signed, pending
// events for them. Delivery is handled elsewhere.
type WebhookService struct {
	webhooks WebhookStore
	accounts AccountReader
	logger   *slog.Logger
	now      func() time.Time
}

func NewWebhookService(webhooks WebhookStore, accounts AccountReader, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		webhooks: webhooks,
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

type RegisterWebhookRequest struct {
	AccountID *int64
	URL       string
	Events    []string
}

// RegisteredWebhook carries the endpoint secret, which is only returned here.
type RegisteredWebhook struct {
	Endpoint models.WebhookEndpoint
	Secret   string
}

type transactionEvent struct {
	Event      string             `json:"event"`
	OccurredAt time.Time          `json:"occurred_at"`
	Data       models.Transaction `json:"data"`
}

func (s *WebhookService) Register(ctx context.Context, actor auth.Identity, req RegisterWebhookRequest) (RegisteredWebhook, error) {
	accountID, err := targetAccount(actor, req.AccountID)
	if err != nil {
		return RegisteredWebhook{}, err
	}
	if err := validateWebhookURL(req.URL); err != nil {
		return RegisteredWebhook{}, err
	}
	events := models.Events{}
	for _, event := range req.Events {
		event = strings.TrimSpace(event)
		if event == "" {
			return RegisteredWebhook{}, apperror.BadRequest("event names cannot be empty")
		}
		events = append(events, event)
	}
	if len(events) == 0 {
		return RegisteredWebhook{}, apperror.BadRequest("at least one event is required")
	}
	if _, err := s.accounts.Lookup(ctx, accountID); err != nil {
		return RegisteredWebhook{}, err
	}
	secret, err := webhook.NewSecret()
	if err != nil {
		return RegisteredWebhook{}, err
	}
	endpoint, err := s.webhooks.CreateEndpoint(ctx, store.WebhookEndpointInput{
		AccountID:        accountID,
		URL:              req.URL,
		Secret:           secret,
		Events:           events,
		RetryMaxAttempts: defaultRetryMaxAttempts,
	})
	if err != nil {
		return RegisteredWebhook{}, apperror.Storage(err)
	}
	return RegisteredWebhook{Endpoint: endpoint, Secret: secret}, nil
}

// List returns the active endpoints of accountID, or of the caller's own
// account when accountID is nil.
func (s *WebhookService) List(ctx context.Context, actor auth.Identity, accountID *int64) ([]models.WebhookEndpoint, error) {
	target, err := targetAccount(actor, accountID)
	if err != nil {
		return nil, err
	}
	endpoints, err := s.webhooks.ListEndpointsByAccount(ctx, target)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return endpoints, nil
}

func (s *WebhookService) Get(ctx context.Context, actor auth.Identity, endpointID int64) (models.WebhookEndpoint, error) {
	endpoint, err := s.webhooks.GetEndpoint(ctx, endpointID)
	if err != nil {
		return models.WebhookEndpoint{}, notFoundOr(err, apperror.EntityWebhook)
	}
	if err := auth.RequireAccountAccess(actor, endpoint.AccountID); err != nil {
		return models.WebhookEndpoint{}, err
	}
	return endpoint, nil
}

// Delete deactivates the endpoint; its events are kept.
func (s *WebhookService) Delete(ctx context.Context, actor auth.Identity, endpointID int64) error {
	if _, err := s.Get(ctx, actor, endpointID); err != nil {
		return err
	}
	affected, err := s.webhooks.Deactivate(ctx, endpointID)
	if err != nil {
		return apperror.Storage(err)
	}
	if affected == 0 {
		return apperror.NotFound(apperror.EntityWebhook)
	}
	return nil
}

func (s *WebhookService) Events(ctx context.Context, actor auth.Identity, endpointID int64, limit int) ([]models.WebhookEvent, error) {
	if _, err := s.Get(ctx, actor, endpointID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultEventListLimit
	}
	if limit > maxEventListLimit {
		limit = maxEventListLimit
	}
	events, err := s.webhooks.ListEvents(ctx, endpointID, limit)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return events, nil
}

// TransactionCompleted queues a signed event for every active endpoint of
// the accounts involved in tx. Failures are logged and dropped.
func (s *WebhookService) TransactionCompleted(ctx context.Context, tx models.Transaction) {
	var accountIDs []int64
	for _, id := range []*int64{tx.FromAccountID, tx.ToAccountID} {
		if id != nil {
			accountIDs = append(accountIDs, *id)
		}
	}
	endpoints, err := s.webhooks.ListActiveForAccounts(ctx, accountIDs)
	if err != nil {
		s.logger.Warn("failed to load webhook endpoints", slog.Int64("transaction_id", tx.ID), slog.Any("error", err))
		return
	}
	now := s.now()
	payload, err := json.Marshal(transactionEvent{Event: webhook.EventTransactionCompleted, OccurredAt: now, Data: tx})
	if err != nil {
		s.logger.Warn("failed to encode webhook payload", slog.Int64("transaction_id", tx.ID), slog.Any("error", err))
		return
	}
	for _, endpoint := range endpoints {
		if !endpoint.Subscribed(webhook.EventTransactionCompleted) {
			continue
		}
		signature, err := webhook.Sign(endpoint.Secret, endpoint.ID, webhook.EventTransactionCompleted, payload, now)
		if err != nil {
			s.logger.Warn("failed to sign webhook event", slog.Int64("endpoint_id", endpoint.ID), slog.Any("error", err))
			continue
		}
		_, err = s.webhooks.CreateEvent(ctx, store.WebhookEventInput{
			EndpointID: endpoint.ID,
			EventType:  webhook.EventTransactionCompleted,
			Payload:    string(payload),
			Signature:  signature,
		})
		if err != nil {
			s.logger.Warn("failed to record webhook event", slog.Int64("endpoint_id", endpoint.ID), slog.Any("error", err))
		}
	}
}

func targetAccount(actor auth.Identity, requested *int64) (int64, error) {
	if requested == nil {
		requested = actor.AccountID
	}
	if requested == nil {
		return 0, apperror.BadRequest("account_id is required")
	}
	if err := auth.RequireAccountAccess(actor, *requested); err != nil {
		return 0, err
	}
	return *requested, nil
}

func validateWebhookURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "https" && parsed.Scheme != "http") {
		return apperror.BadRequest("url must be an absolute http(s) URL")
	}
	return nil
}
