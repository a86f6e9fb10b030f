package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"ledger/internal/apperror"
	"ledger/internal/auth"
	"ledger/internal/models"
	"ledger/internal/services"
	"ledger/internal/store"
	"ledger/internal/websocket"
)

const (
	adminKey    = "sk_prod_admin"
	customerKey = "sk_prod_customer"
)

var (
	adminIdentity    = auth.Identity{KeyID: 1, Role: models.RoleAdmin}
	customerIdentity = auth.Identity{KeyID: 2, AccountID: int64Ptr(1), Role: models.RoleCustomer}
)

type stubAuthenticator struct {
	identities map[string]auth.Identity
	err        error
}

func (s stubAuthenticator) Authenticate(_ context.Context, raw string) (auth.Identity, error) {
	if s.err != nil {
		return auth.Identity{}, s.err
	}
	identity, ok := s.identities[raw]
	if !ok {
		return auth.Identity{}, apperror.InvalidAPIKey()
	}
	return identity, nil
}

type stubAccountService struct {
	createFn func(ctx context.Context, req services.CreateAccountRequest) (services.CreatedAccount, error)
	getFn    func(ctx context.Context, viewer auth.Identity, accountID int64) (models.Account, error)
}

func (s stubAccountService) CreateAccount(ctx context.Context, req services.CreateAccountRequest) (services.CreatedAccount, error) {
	return s.createFn(ctx, req)
}

func (s stubAccountService) GetAccount(ctx context.Context, viewer auth.Identity, accountID int64) (models.Account, error) {
	return s.getFn(ctx, viewer, accountID)
}

type stubKeyService struct {
	generateFn  func(ctx context.Context, actor auth.Identity, req services.GenerateKeyRequest) (services.GeneratedKey, error)
	bootstrapFn func(ctx context.Context, name *string) (services.GeneratedKey, error)
	listFn      func(ctx context.Context, viewer auth.Identity, accountID int64) ([]models.APIKey, error)
	listAllFn   func(ctx context.Context, viewer auth.Identity) ([]models.APIKey, error)
	updateFn    func(ctx context.Context, actor auth.Identity, keyID int64, req services.UpdateKeyRequest) (models.APIKey, error)
}

func (s stubKeyService) GenerateKey(ctx context.Context, actor auth.Identity, req services.GenerateKeyRequest) (services.GeneratedKey, error) {
	return s.generateFn(ctx, actor, req)
}

func (s stubKeyService) BootstrapAdmin(ctx context.Context, name *string) (services.GeneratedKey, error) {
	return s.bootstrapFn(ctx, name)
}

func (s stubKeyService) ListAccountKeys(ctx context.Context, viewer auth.Identity, accountID int64) ([]models.APIKey, error) {
	return s.listFn(ctx, viewer, accountID)
}

func (s stubKeyService) ListAllKeys(ctx context.Context, viewer auth.Identity) ([]models.APIKey, error) {
	return s.listAllFn(ctx, viewer)
}

func (s stubKeyService) UpdateKey(ctx context.Context, actor auth.Identity, keyID int64, req services.UpdateKeyRequest) (models.APIKey, error) {
	return s.updateFn(ctx, actor, keyID, req)
}

type stubTransactionService struct {
	createFn func(ctx context.Context, initiator auth.Identity, req services.CreateTransactionRequest) (models.Transaction, error)
	getFn    func(ctx context.Context, viewer auth.Identity, transactionID int64) (models.Transaction, error)
	listFn   func(ctx context.Context, viewer auth.Identity, accountID int64) ([]models.Transaction, error)
}

func (s stubTransactionService) CreateTransaction(ctx context.Context, initiator auth.Identity, req services.CreateTransactionRequest) (models.Transaction, error) {
	return s.createFn(ctx, initiator, req)
}

func (s stubTransactionService) GetTransaction(ctx context.Context, viewer auth.Identity, transactionID int64) (models.Transaction, error) {
	return s.getFn(ctx, viewer, transactionID)
}

func (s stubTransactionService) ListAccountTransactions(ctx context.Context, viewer auth.Identity, accountID int64) ([]models.Transaction, error) {
	return s.listFn(ctx, viewer, accountID)
}

type stubWebhookService struct {
	registerFn func(ctx context.Context, actor auth.Identity, req services.RegisterWebhookRequest) (services.RegisteredWebhook, error)
	listFn     func(ctx context.Context, actor auth.Identity, accountID *int64) ([]models.WebhookEndpoint, error)
	getFn      func(ctx context.Context, actor auth.Identity, endpointID int64) (models.WebhookEndpoint, error)
	deleteFn   func(ctx context.Context, actor auth.Identity, endpointID int64) error
	eventsFn   func(ctx context.Context, actor auth.Identity, endpointID int64, limit int) ([]models.WebhookEvent, error)
}

func (s stubWebhookService) Register(ctx context.Context, actor auth.Identity, req services.RegisterWebhookRequest) (services.RegisteredWebhook, error) {
	return s.registerFn(ctx, actor, req)
}

func (s stubWebhookService) List(ctx context.Context, actor auth.Identity, accountID *int64) ([]models.WebhookEndpoint, error) {
	return s.listFn(ctx, actor, accountID)
}

func (s stubWebhookService) Get(ctx context.Context, actor auth.Identity, endpointID int64) (models.WebhookEndpoint, error) {
	return s.getFn(ctx, actor, endpointID)
}

func (s stubWebhookService) Delete(ctx context.Context, actor auth.Identity, endpointID int64) error {
	return s.deleteFn(ctx, actor, endpointID)
}

func (s stubWebhookService) Events(ctx context.Context, actor auth.Identity, endpointID int64, limit int) ([]models.WebhookEvent, error) {
	return s.eventsFn(ctx, actor, endpointID, limit)
}

type stubAuditStore struct {
	listFn func(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]models.AuditLog, error) {
	return s.listFn(ctx, limit, offset)
}

type stubReconciler struct {
	rows []store.Reconciliation
}

func (s stubReconciler) Reconcile(context.Context) ([]store.Reconciliation, error) {
	return s.rows, nil
}

func newTestHandler(svc Services) http.Handler {
	authenticator := stubAuthenticator{identities: map[string]auth.Identity{
		adminKey:    adminIdentity,
		customerKey: customerIdentity,
	}}
	return New("*", authenticator, svc, websocket.NewHub(), discardLogger()).Routes()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func doRequest(t *testing.T, handler http.Handler, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			encoded, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("failed to encode body: %v", err)
			}
			reader = bytes.NewReader(encoded)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func int64Ptr(v int64) *int64 { return &v }
