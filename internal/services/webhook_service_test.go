package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"ledger/internal/apperror"
	"ledger/internal/models"
	"ledger/internal/webhook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWebhookFixture(endpoints ...models.WebhookEndpoint) (*WebhookService, *stubWebhookStore) {
	webhooks := newStubWebhookStore(endpoints...)
	accounts := NewAccountService(fakeTxRunner{}, newMemAccountStore(twoAccounts()...), nil, &stubAuditStore{}, "USD", discardLogger())
	service := NewWebhookService(webhooks, accounts, discardLogger())
	service.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return service, webhooks
}

func TestRegisterWebhookDefaultsToOwnAccount(t *testing.T) {
	service, _ := newWebhookFixture()

	registered, err := service.Register(context.Background(), customerIdentity, RegisterWebhookRequest{
		URL:    "https://example.com/hooks",
		Events: []string{" transaction.completed "},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), registered.Endpoint.AccountID)
	assert.Equal(t, models.Events{"transaction.completed"}, registered.Endpoint.Events)
	assert.Equal(t, defaultRetryMaxAttempts, registered.Endpoint.RetryMaxAttempts)
	assert.True(t, strings.HasPrefix(registered.Secret, webhook.SecretPrefix))
}

func TestRegisterWebhookRejects(t *testing.T) {
	service, _ := newWebhookFixture()
	ctx := context.Background()

	_, err := service.Register(ctx, customerIdentity, RegisterWebhookRequest{AccountID: int64Ptr(2), URL: "https://example.com", Events: []string{"*"}})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = service.Register(ctx, customerIdentity, RegisterWebhookRequest{URL: "ftp://example.com", Events: []string{"*"}})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = service.Register(ctx, customerIdentity, RegisterWebhookRequest{URL: "https://example.com"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	_, err = service.Register(ctx, adminIdentity, RegisterWebhookRequest{URL: "https://example.com", Events: []string{"*"}})
	assert.ErrorIs(t, err, apperror.ErrBadRequest, "admin without account needs account_id")

	_, err = service.Register(ctx, adminIdentity, RegisterWebhookRequest{AccountID: int64Ptr(9), URL: "https://example.com", Events: []string{"*"}})
	assert.ErrorIs(t, err, apperror.ErrAccountNotFound)
}

func TestWebhookGetAndDelete(t *testing.T) {
	service, _ := newWebhookFixture(
		models.WebhookEndpoint{ID: 1, AccountID: 1, URL: "https://a.example", IsActive: true},
		models.WebhookEndpoint{ID: 2, AccountID: 2, URL: "https://b.example", IsActive: true},
	)
	ctx := context.Background()

	_, err := service.Get(ctx, customerIdentity, 2)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = service.Get(ctx, customerIdentity, 3)
	assert.ErrorIs(t, err, apperror.ErrWebhookNotFound)

	require.NoError(t, service.Delete(ctx, customerIdentity, 1))
	assert.ErrorIs(t, service.Delete(ctx, customerIdentity, 1), apperror.ErrWebhookNotFound)

	endpoints, err := service.List(ctx, customerIdentity, nil)
	require.NoError(t, err)
	assert.Empty(t, endpoints)
}

func TestTransactionCompletedQueuesSignedEvents(t *testing.T) {
	service, webhooks := newWebhookFixture(
		models.WebhookEndpoint{ID: 1, AccountID: 1, Secret: "whsec_one", Events: models.Events{webhook.EventTransactionCompleted}, IsActive: true},
		models.WebhookEndpoint{ID: 2, AccountID: 2, Secret: "whsec_two", Events: models.Events{"*"}, IsActive: true},
		models.WebhookEndpoint{ID: 3, AccountID: 2, Secret: "whsec_three", Events: models.Events{"account.created"}, IsActive: true},
		models.WebhookEndpoint{ID: 4, AccountID: 3, Secret: "whsec_four", Events: models.Events{"*"}, IsActive: true},
	)
	tx := models.Transaction{ID: 7, FromAccountID: int64Ptr(1), ToAccountID: int64Ptr(2), Amount: 4000, Type: models.TransactionTransfer, Status: models.StatusCompleted}

	service.TransactionCompleted(context.Background(), tx)

	require.Len(t, webhooks.events, 2)
	assert.Equal(t, int64(1), webhooks.events[0].EndpointID)
	assert.Equal(t, int64(2), webhooks.events[1].EndpointID)

	event := webhooks.events[0]
	claims, err := webhook.Verify("whsec_one", event.Signature, []byte(event.Payload))
	require.NoError(t, err)
	assert.Equal(t, webhook.EventTransactionCompleted, claims.EventType)

	var body struct {
		Event string             `json:"event"`
		Data  models.Transaction `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(event.Payload), &body))
	assert.Equal(t, webhook.EventTransactionCompleted, body.Event)
	assert.Equal(t, int64(4000), body.Data.Amount)
}

func TestTransactionCompletedSwallowsStoreErrors(t *testing.T) {
	service, webhooks := newWebhookFixture()
	webhooks.listErr = errors.New("connection refused")

	service.TransactionCompleted(context.Background(), models.Transaction{ID: 1, ToAccountID: int64Ptr(1)})
	assert.Empty(t, webhooks.events)
}

func TestWebhookEventsLimit(t *testing.T) {
	service, webhooks := newWebhookFixture(models.WebhookEndpoint{ID: 1, AccountID: 1, Secret: "s", Events: models.Events{"*"}, IsActive: true})
	for i := 0; i < 3; i++ {
		service.TransactionCompleted(context.Background(), models.Transaction{ID: int64(i + 1), ToAccountID: int64Ptr(1)})
	}
	require.Len(t, webhooks.events, 3)

	events, err := service.Events(context.Background(), customerIdentity, 1, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
