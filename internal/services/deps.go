package services

import (
	"context"

	"ledger/internal/models"
	"ledger/internal/store"
	"ledger/internal/websocket"
)

type AccountStore interface {
	Create(ctx context.Context, tx store.Getter, businessName, currency string) (models.Account, error)
	GetByID(ctx context.Context, accountID int64) (models.Account, error)
	GetByIDTx(ctx context.Context, tx store.Getter, accountID int64) (models.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID int64) (models.Account, error)
	Debit(ctx context.Context, tx store.Getter, accountID, amount int64) (store.BalanceChange, error)
	Credit(ctx context.Context, tx store.Getter, accountID, amount int64) (store.BalanceChange, error)
}

type APIKeyStore interface {
	Create(ctx context.Context, tx store.Getter, input store.APIKeyInput) (models.APIKey, error)
	GetByID(ctx context.Context, keyID int64) (models.APIKey, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.APIKey, error)
	ListAll(ctx context.Context) ([]models.APIKey, error)
	Update(ctx context.Context, tx store.Getter, keyID int64, update store.APIKeyUpdate) (models.APIKey, error)
	LockBootstrap(ctx context.Context, tx store.Execer) error
	HasActiveAdmin(ctx context.Context, q store.Getter) (bool, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Getter, input store.TransactionInput) (models.Transaction, error)
	IdempotencyKeyExists(ctx context.Context, tx store.Getter, key string) (bool, error)
	GetByID(ctx context.Context, transactionID int64) (models.Transaction, error)
	ListByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error)
}

type WebhookStore interface {
	CreateEndpoint(ctx context.Context, input store.WebhookEndpointInput) (models.WebhookEndpoint, error)
	GetEndpoint(ctx context.Context, endpointID int64) (models.WebhookEndpoint, error)
	ListEndpointsByAccount(ctx context.Context, accountID int64) ([]models.WebhookEndpoint, error)
	ListActiveForAccounts(ctx context.Context, accountIDs []int64) ([]models.WebhookEndpoint, error)
	Deactivate(ctx context.Context, endpointID int64) (int64, error)
	CreateEvent(ctx context.Context, input store.WebhookEventInput) (models.WebhookEvent, error)
	ListEvents(ctx context.Context, endpointID int64, limit int) ([]models.WebhookEvent, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorKeyID *int64, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

type BalanceHub interface {
	BroadcastBalance(update websocket.BalanceUpdate)
}

// EventRecorder is notified after a transaction has committed.
type EventRecorder interface {
	TransactionCompleted(ctx context.Context, tx models.Transaction)
}
