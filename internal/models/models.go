package models

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

type TransactionType string

const (
	TransactionCredit   TransactionType = "credit"
	TransactionDebit    TransactionType = "debit"
	TransactionTransfer TransactionType = "transfer"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

type Account struct {
	ID           int64     `db:"id" json:"id"`
	BusinessName string    `db:"business_name" json:"business_name"`
	Balance      int64     `db:"balance" json:"balance"`
	Currency     string    `db:"currency" json:"currency"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// APIKey is a stored credential. The raw secret is never persisted.
type APIKey struct {
	ID                 int64      `db:"id" json:"id"`
	AccountID          *int64     `db:"account_id" json:"account_id,omitempty"`
	KeyHash            string     `db:"key_hash" json:"-"`
	KeyPrefix          string     `db:"key_prefix" json:"key_prefix"`
	Name               *string    `db:"name" json:"name,omitempty"`
	Role               Role       `db:"role" json:"role"`
	RateLimitPerMinute int        `db:"rate_limit_per_minute" json:"rate_limit_per_minute"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	LastUsedAt         *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"-"`
}

type Transaction struct {
	ID             int64             `db:"id" json:"id"`
	FromAccountID  *int64            `db:"from_account_id" json:"from_account_id,omitempty"`
	ToAccountID    *int64            `db:"to_account_id" json:"to_account_id,omitempty"`
	Amount         int64             `db:"amount" json:"amount"`
	Type           TransactionType   `db:"transaction_type" json:"transaction_type"`
	Status         TransactionStatus `db:"status" json:"status"`
	Description    *string           `db:"description" json:"description,omitempty"`
	IdempotencyKey *string           `db:"idempotency_key" json:"-"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"-"`
}

// Involves reports whether accountID is the sender or receiver.
func (t Transaction) Involves(accountID int64) bool {
	return (t.FromAccountID != nil && *t.FromAccountID == accountID) ||
		(t.ToAccountID != nil && *t.ToAccountID == accountID)
}

type WebhookEndpoint struct {
	ID               int64     `db:"id" json:"id"`
	AccountID        int64     `db:"account_id" json:"account_id"`
	URL              string    `db:"url" json:"url"`
	Secret           string    `db:"secret" json:"-"`
	Events           Events    `db:"events" json:"events"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	RetryMaxAttempts int       `db:"retry_max_attempts" json:"retry_max_attempts"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"-"`
}

// Subscribed reports whether the endpoint wants eventType.
func (e WebhookEndpoint) Subscribed(eventType string) bool {
	for _, event := range e.Events {
		if event == eventType || event == "*" {
			return true
		}
	}
	return false
}

type WebhookEventStatus string

const (
	WebhookPending   WebhookEventStatus = "pending"
	WebhookDelivered WebhookEventStatus = "delivered"
	WebhookFailed    WebhookEventStatus = "failed"
)

type WebhookEvent struct {
	ID           int64              `db:"id" json:"id"`
	EndpointID   int64              `db:"endpoint_id" json:"endpoint_id"`
	EventType    string             `db:"event_type" json:"event_type"`
	Payload      string             `db:"payload" json:"payload"`
	Signature    string             `db:"signature" json:"signature"`
	Status       WebhookEventStatus `db:"status" json:"status"`
	AttemptCount int                `db:"attempt_count" json:"attempt_count"`
	NextRetryAt  *time.Time         `db:"next_retry_at" json:"next_retry_at,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
}

type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	ActorKeyID *int64    `db:"actor_key_id" json:"actor_key_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	Data       string    `db:"data" json:"data"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
