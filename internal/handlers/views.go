package handlers

import (
	"encoding/json"
	"time"

	"ledger/internal/models"
	"ledger/internal/services"
)

type accountView struct {
	ID             int64     `json:"id"`
	BusinessName   string    `json:"business_name"`
	Balance        int64     `json:"balance"`
	BalanceDisplay string    `json:"balance_display"`
	Currency       string    `json:"currency"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func newAccountView(account models.Account) accountView {
	return accountView{
		ID:             account.ID,
		BusinessName:   account.BusinessName,
		Balance:        account.Balance,
		BalanceDisplay: balanceDisplay(account.Balance, account.Currency),
		Currency:       account.Currency,
		IsActive:       account.IsActive,
		CreatedAt:      account.CreatedAt,
	}
}

type balanceView struct {
	AccountID      int64  `json:"account_id"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	Currency       string `json:"currency"`
}

type transactionView struct {
	ID              int64                    `json:"id"`
	FromAccountID   *int64                   `json:"from_account_id,omitempty"`
	ToAccountID     *int64                   `json:"to_account_id,omitempty"`
	Amount          int64                    `json:"amount"`
	TransactionType models.TransactionType   `json:"transaction_type"`
	Status          models.TransactionStatus `json:"status"`
	Description     *string                  `json:"description,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

func newTransactionView(tx models.Transaction) transactionView {
	return transactionView{
		ID:              tx.ID,
		FromAccountID:   tx.FromAccountID,
		ToAccountID:     tx.ToAccountID,
		Amount:          tx.Amount,
		TransactionType: tx.Type,
		Status:          tx.Status,
		Description:     tx.Description,
		CreatedAt:       tx.CreatedAt,
	}
}

func newTransactionViews(records []models.Transaction) []transactionView {
	views := make([]transactionView, 0, len(records))
	for _, record := range records {
		views = append(views, newTransactionView(record))
	}
	return views
}

// generatedKeyView is the only response that ever carries a raw secret.
type generatedKeyView struct {
	Key       string        `json:"key"`
	KeyPrefix string        `json:"key_prefix"`
	KeyID     int64         `json:"key_id"`
	APIKey    models.APIKey `json:"api_key"`
}

func newGeneratedKeyView(generated services.GeneratedKey) generatedKeyView {
	return generatedKeyView{
		Key:       generated.Secret,
		KeyPrefix: generated.Key.KeyPrefix,
		KeyID:     generated.Key.ID,
		APIKey:    generated.Key,
	}
}

type createdAccountView struct {
	Account      accountView `json:"account"`
	SecretAPIKey string      `json:"secret_api_key"`
	KeyPrefix    string      `json:"key_prefix"`
	KeyID        int64       `json:"key_id"`
}

type webhookView struct {
	models.WebhookEndpoint
	Secret string `json:"secret,omitempty"`
}

type webhookEventView struct {
	ID           int64                     `json:"id"`
	EndpointID   int64                     `json:"endpoint_id"`
	EventType    string                    `json:"event_type"`
	Payload      json.RawMessage           `json:"payload"`
	Signature    string                    `json:"signature"`
	Status       models.WebhookEventStatus `json:"status"`
	AttemptCount int                       `json:"attempt_count"`
	NextRetryAt  *time.Time                `json:"next_retry_at,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
}

func newWebhookEventView(event models.WebhookEvent) webhookEventView {
	payload := json.RawMessage(event.Payload)
	if !json.Valid(payload) {
		encoded, _ := json.Marshal(event.Payload)
		payload = encoded
	}
	return webhookEventView{
		ID:           event.ID,
		EndpointID:   event.EndpointID,
		EventType:    event.EventType,
		Payload:      payload,
		Signature:    event.Signature,
		Status:       event.Status,
		AttemptCount: event.AttemptCount,
		NextRetryAt:  event.NextRetryAt,
		CreatedAt:    event.CreatedAt,
	}
}
