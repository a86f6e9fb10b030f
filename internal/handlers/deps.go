package handlers

import (
	"context"

	"ledger/internal/auth"
	"ledger/internal/models"
	"ledger/internal/services"
	"ledger/internal/store"
)

type AccountService interface {
	CreateAccount(ctx context.Context, req services.CreateAccountRequest) (services.CreatedAccount, error)
	GetAccount(ctx context.Context, viewer auth.Identity, accountID int64) (models.Account, error)
}

type KeyService interface {
	GenerateKey(ctx context.Context, actor auth.Identity, req services.GenerateKeyRequest) (services.GeneratedKey, error)
	BootstrapAdmin(ctx context.Context, name *string) (services.GeneratedKey, error)
	ListAccountKeys(ctx context.Context, viewer auth.Identity, accountID int64) ([]models.APIKey, error)
	ListAllKeys(ctx context.Context, viewer auth.Identity) ([]models.APIKey, error)
	UpdateKey(ctx context.Context, actor auth.Identity, keyID int64, req services.UpdateKeyRequest) (models.APIKey, error)
}

type TransactionService interface {
	CreateTransaction(ctx context.Context, initiator auth.Identity, req services.CreateTransactionRequest) (models.Transaction, error)
	GetTransaction(ctx context.Context, viewer auth.Identity, transactionID int64) (models.Transaction, error)
	ListAccountTransactions(ctx context.Context, viewer auth.Identity, accountID int64) ([]models.Transaction, error)
}

type WebhookService interface {
	Register(ctx context.Context, actor auth.Identity, req services.RegisterWebhookRequest) (services.RegisteredWebhook, error)
	List(ctx context.Context, actor auth.Identity, accountID *int64) ([]models.WebhookEndpoint, error)
	Get(ctx context.Context, actor auth.Identity, endpointID int64) (models.WebhookEndpoint, error)
	Delete(ctx context.Context, actor auth.Identity, endpointID int64) error
	Events(ctx context.Context, actor auth.Identity, endpointID int64, limit int) ([]models.WebhookEvent, error)
}

type AuditStore interface {
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context) ([]store.Reconciliation, error)
}
