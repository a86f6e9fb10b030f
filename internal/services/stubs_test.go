package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ledger/internal/models"
	"ledger/internal/store"
	"ledger/internal/websocket"

	"github.com/jmoiron/sqlx"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func int64Ptr(v int64) *int64 { return &v }

func stringPtr(v string) *string { return &v }

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// rollbackTxRunner restores the in-memory account balances when fn fails.
type rollbackTxRunner struct {
	accounts *memAccountStore
}

func (r rollbackTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	snapshot := r.accounts.snapshot()
	if err := fn(nil); err != nil {
		r.accounts.restore(snapshot)
		return err
	}
	return nil
}

// memAccountStore mirrors the SQL semantics of store.AccountStore: a debit
// that would overdraw reports sql.ErrNoRows like the conditional UPDATE.
type memAccountStore struct {
	mu       sync.Mutex
	accounts map[int64]models.Account
	nextID   int64
	locked    []int64
	debitErr  error
	creditErr error
}

func newMemAccountStore(accounts ...models.Account) *memAccountStore {
	m := &memAccountStore{accounts: map[int64]models.Account{}, nextID: 1}
	for _, account := range accounts {
		m.accounts[account.ID] = account
		if account.ID >= m.nextID {
			m.nextID = account.ID + 1
		}
	}
	return m
}

func (m *memAccountStore) snapshot() map[int64]models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[int64]models.Account, len(m.accounts))
	for id, account := range m.accounts {
		copied[id] = account
	}
	return copied
}

func (m *memAccountStore) restore(accounts map[int64]models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = accounts
}

func (m *memAccountStore) balance(id int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *memAccountStore) Create(_ context.Context, _ store.Getter, businessName, currency string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account := models.Account{ID: m.nextID, BusinessName: businessName, Currency: currency, IsActive: true}
	m.accounts[account.ID] = account
	m.nextID++
	return account, nil
}

func (m *memAccountStore) GetByID(_ context.Context, accountID int64) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[accountID]
	if !ok {
		return models.Account{}, sql.ErrNoRows
	}
	return account, nil
}

func (m *memAccountStore) GetByIDTx(ctx context.Context, _ store.Getter, accountID int64) (models.Account, error) {
	return m.GetByID(ctx, accountID)
}

func (m *memAccountStore) GetForUpdate(ctx context.Context, _ store.Getter, accountID int64) (models.Account, error) {
	m.mu.Lock()
	m.locked = append(m.locked, accountID)
	m.mu.Unlock()
	return m.GetByID(ctx, accountID)
}

func (m *memAccountStore) Debit(_ context.Context, _ store.Getter, accountID, amount int64) (store.BalanceChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.debitErr != nil {
		return store.BalanceChange{}, m.debitErr
	}
	account, ok := m.accounts[accountID]
	if !ok || account.Balance < amount {
		return store.BalanceChange{}, sql.ErrNoRows
	}
	account.Balance -= amount
	m.accounts[accountID] = account
	return store.BalanceChange{AccountID: accountID, Balance: account.Balance, Currency: account.Currency}, nil
}

func (m *memAccountStore) Credit(_ context.Context, _ store.Getter, accountID, amount int64) (store.BalanceChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creditErr != nil {
		return store.BalanceChange{}, m.creditErr
	}
	account, ok := m.accounts[accountID]
	if !ok {
		return store.BalanceChange{}, sql.ErrNoRows
	}
	account.Balance += amount
	m.accounts[accountID] = account
	return store.BalanceChange{AccountID: accountID, Balance: account.Balance, Currency: account.Currency}, nil
}

type stubTransactionStore struct {
	mu       sync.Mutex
	records  []models.Transaction
	usedKeys map[string]bool
	createFn func(ctx context.Context, input store.TransactionInput) (models.Transaction, error)
}

func (s *stubTransactionStore) Create(ctx context.Context, _ store.Getter, input store.TransactionInput) (models.Transaction, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record := models.Transaction{
		ID:             int64(len(s.records) + 1),
		FromAccountID:  input.FromAccountID,
		ToAccountID:    input.ToAccountID,
		Amount:         input.Amount,
		Type:           input.Type,
		Status:         input.Status,
		Description:    input.Description,
		IdempotencyKey: input.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	s.records = append(s.records, record)
	if input.IdempotencyKey != nil {
		if s.usedKeys == nil {
			s.usedKeys = map[string]bool{}
		}
		s.usedKeys[*input.IdempotencyKey] = true
	}
	return record, nil
}

func (s *stubTransactionStore) IdempotencyKeyExists(_ context.Context, _ store.Getter, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usedKeys[key], nil
}

func (s *stubTransactionStore) GetByID(_ context.Context, transactionID int64) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.ID == transactionID {
			return record, nil
		}
	}
	return models.Transaction{}, sql.ErrNoRows
}

func (s *stubTransactionStore) ListByAccount(_ context.Context, accountID int64) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, record := range s.records {
		if record.Involves(accountID) {
			out = append(out, record)
		}
	}
	return out, nil
}

type stubAPIKeyStore struct {
	mu       sync.Mutex
	keys     map[int64]models.APIKey
	nextID   int64
	locks    int
	createFn func(input store.APIKeyInput) error
}

func newStubAPIKeyStore(keys ...models.APIKey) *stubAPIKeyStore {
	s := &stubAPIKeyStore{keys: map[int64]models.APIKey{}, nextID: 1}
	for _, key := range keys {
		s.keys[key.ID] = key
		if key.ID >= s.nextID {
			s.nextID = key.ID + 1
		}
	}
	return s
}

func (s *stubAPIKeyStore) Create(_ context.Context, _ store.Getter, input store.APIKeyInput) (models.APIKey, error) {
	if s.createFn != nil {
		if err := s.createFn(input); err != nil {
			return models.APIKey{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.APIKey{
		ID:                 s.nextID,
		AccountID:          input.AccountID,
		KeyHash:            input.KeyHash,
		KeyPrefix:          input.KeyPrefix,
		Name:               input.Name,
		Role:               input.Role,
		RateLimitPerMinute: input.RateLimitPerMinute,
		IsActive:           true,
	}
	s.keys[key.ID] = key
	s.nextID++
	return key, nil
}

func (s *stubAPIKeyStore) GetByID(_ context.Context, keyID int64) (models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[keyID]
	if !ok {
		return models.APIKey{}, sql.ErrNoRows
	}
	return key, nil
}

func (s *stubAPIKeyStore) ListByAccount(_ context.Context, accountID int64) ([]models.APIKey, error) {
	all, _ := s.ListAll(context.Background())
	var out []models.APIKey
	for _, key := range all {
		if key.AccountID != nil && *key.AccountID == accountID {
			out = append(out, key)
		}
	}
	return out, nil
}

func (s *stubAPIKeyStore) ListAll(context.Context) ([]models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubAPIKeyStore) Update(_ context.Context, _ store.Getter, keyID int64, update store.APIKeyUpdate) (models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[keyID]
	if !ok {
		return models.APIKey{}, sql.ErrNoRows
	}
	if update.Name != nil {
		key.Name = update.Name
	}
	if update.RateLimitPerMinute != nil {
		key.RateLimitPerMinute = *update.RateLimitPerMinute
	}
	if update.IsActive != nil {
		key.IsActive = *update.IsActive
	}
	s.keys[keyID] = key
	return key, nil
}

func (s *stubAPIKeyStore) LockBootstrap(context.Context, store.Execer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks++
	return nil
}

func (s *stubAPIKeyStore) HasActiveAdmin(context.Context, store.Getter) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.keys {
		if key.Role == models.RoleAdmin && key.IsActive {
			return true, nil
		}
	}
	return false, nil
}

type auditEntry struct {
	actorKeyID *int64
	action     string
	entityType string
	entityID   string
	data       string
}

type stubAuditStore struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (s *stubAuditStore) Log(_ context.Context, _ store.Execer, actorKeyID *int64, action, entityType, entityID, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, auditEntry{actorKeyID, action, entityType, entityID, data})
	return nil
}

func (s *stubAuditStore) List(context.Context, int, int) ([]models.AuditLog, error) {
	return nil, nil
}

func (s *stubAuditStore) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry.action)
	}
	return out
}

type stubHub struct {
	mu    sync.Mutex
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(update websocket.BalanceUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, update)
}

type stubEventRecorder struct {
	mu       sync.Mutex
	recorded []models.Transaction
}

func (s *stubEventRecorder) TransactionCompleted(_ context.Context, tx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, tx)
}

type stubWebhookStore struct {
	mu        sync.Mutex
	endpoints map[int64]models.WebhookEndpoint
	events    []store.WebhookEventInput
	nextID    int64
	listErr   error
}

func newStubWebhookStore(endpoints ...models.WebhookEndpoint) *stubWebhookStore {
	s := &stubWebhookStore{endpoints: map[int64]models.WebhookEndpoint{}, nextID: 1}
	for _, endpoint := range endpoints {
		s.endpoints[endpoint.ID] = endpoint
		if endpoint.ID >= s.nextID {
			s.nextID = endpoint.ID + 1
		}
	}
	return s
}

func (s *stubWebhookStore) CreateEndpoint(_ context.Context, input store.WebhookEndpointInput) (models.WebhookEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint := models.WebhookEndpoint{
		ID:               s.nextID,
		AccountID:        input.AccountID,
		URL:              input.URL,
		Secret:           input.Secret,
		Events:           input.Events,
		IsActive:         true,
		RetryMaxAttempts: input.RetryMaxAttempts,
	}
	s.endpoints[endpoint.ID] = endpoint
	s.nextID++
	return endpoint, nil
}

func (s *stubWebhookStore) GetEndpoint(_ context.Context, endpointID int64) (models.WebhookEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[endpointID]
	if !ok {
		return models.WebhookEndpoint{}, sql.ErrNoRows
	}
	return endpoint, nil
}

func (s *stubWebhookStore) ListEndpointsByAccount(ctx context.Context, accountID int64) ([]models.WebhookEndpoint, error) {
	return s.ListActiveForAccounts(ctx, []int64{accountID})
}

func (s *stubWebhookStore) ListActiveForAccounts(_ context.Context, accountIDs []int64) ([]models.WebhookEndpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.WebhookEndpoint
	for _, endpoint := range s.endpoints {
		if !endpoint.IsActive {
			continue
		}
		for _, id := range accountIDs {
			if endpoint.AccountID == id {
				out = append(out, endpoint)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubWebhookStore) Deactivate(_ context.Context, endpointID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[endpointID]
	if !ok || !endpoint.IsActive {
		return 0, nil
	}
	endpoint.IsActive = false
	s.endpoints[endpointID] = endpoint
	return 1, nil
}

func (s *stubWebhookStore) CreateEvent(_ context.Context, input store.WebhookEventInput) (models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, input)
	return models.WebhookEvent{ID: int64(len(s.events)), EndpointID: input.EndpointID, EventType: input.EventType, Payload: input.Payload}, nil
}

func (s *stubWebhookStore) ListEvents(_ context.Context, endpointID int64, limit int) ([]models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.WebhookEvent
	for i, input := range s.events {
		if input.EndpointID == endpointID && len(out) < limit {
			out = append(out, models.WebhookEvent{ID: int64(i + 1), EndpointID: endpointID, EventType: input.EventType, Payload: input.Payload})
		}
	}
	return out, nil
}
