package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"ledger/internal/apperror"
	"ledger/internal/auth"
	"ledger/internal/db"
	"ledger/internal/models"
	"ledger/internal/store"

	"github.com/jmoiron/sqlx"
)

// AccountService is the account ledger: account lifecycle plus the debit and
// credit primitives every balance change goes through.
type AccountService struct {
	txRunner        db.TxRunner
	accounts        AccountStore
	keys            KeyIssuer
	audit           AuditStore
	defaultCurrency string
	logger          *slog.Logger
}

// KeyIssuer creates a credential inside an open unit of work.
type KeyIssuer interface {
	IssueInTx(ctx context.Context, tx store.Tx, actorKeyID *int64, req GenerateKeyRequest) (GeneratedKey, error)
}

func NewAccountService(txRunner db.TxRunner, accounts AccountStore, keys KeyIssuer, audit AuditStore, defaultCurrency string, logger *slog.Logger) *AccountService {
	return &AccountService{
		txRunner:        txRunner,
		accounts:        accounts,
		keys:            keys,
		audit:           audit,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

type CreateAccountRequest struct {
	BusinessName string
	Currency     string
}

// CreatedAccount is a new account together with its first customer key.
type CreatedAccount struct {
	Account models.Account
	Key     GeneratedKey
}

// CreateAccount opens an account with a zero balance and issues its first
// customer key in the same transaction.
func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (CreatedAccount, error) {
	name := strings.TrimSpace(req.BusinessName)
	if name == "" {
		return CreatedAccount{}, apperror.BadRequest("business_name is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !isCurrencyCode(currency) {
		return CreatedAccount{}, apperror.BadRequest("currency must be a 3-letter ISO-4217 code")
	}

	var created CreatedAccount
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.Create(ctx, tx, name, currency)
		if err != nil {
			return err
		}
		accountID := account.ID
		keyName := "default"
		key, err := s.keys.IssueInTx(ctx, tx, nil, GenerateKeyRequest{
			AccountID: &accountID,
			Name:      &keyName,
			Role:      models.RoleCustomer,
		})
		if err != nil {
			return err
		}
		created = CreatedAccount{Account: account, Key: key}
		return s.audit.Log(ctx, tx, nil, "account.created", "account", strconv.FormatInt(account.ID, 10),
			auditData(map[string]any{"business_name": name, "currency": currency}))
	})
	if err != nil {
		return CreatedAccount{}, apperror.Storage(err)
	}
	s.logger.Info("account created", slog.Int64("account_id", created.Account.ID), slog.String("currency", currency))
	return created, nil
}

// GetAccount returns the account if viewer may see it.
func (s *AccountService) GetAccount(ctx context.Context, viewer auth.Identity, accountID int64) (models.Account, error) {
	if err := auth.RequireAccountAccess(viewer, accountID); err != nil {
		return models.Account{}, err
	}
	return s.Lookup(ctx, accountID)
}

// Lookup loads an account without an access check.
func (s *AccountService) Lookup(ctx context.Context, accountID int64) (models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return models.Account{}, notFoundOr(err, apperror.EntityAccount)
	}
	return account, nil
}

// Debit removes amount from the account. It fails with InsufficientBalance,
// leaving the balance untouched, when the balance does not cover amount.
func (s *AccountService) Debit(ctx context.Context, tx store.Getter, accountID, amount int64) (store.BalanceChange, error) {
	if amount <= 0 {
		return store.BalanceChange{}, apperror.BadRequest("amount must be positive")
	}
	change, err := s.accounts.Debit(ctx, tx, accountID, amount)
	if err == nil {
		return change, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return store.BalanceChange{}, apperror.Storage(err)
	}
	if _, err := s.accounts.GetByIDTx(ctx, tx, accountID); err != nil {
		return store.BalanceChange{}, notFoundOr(err, apperror.EntityAccount)
	}
	return store.BalanceChange{}, apperror.InsufficientBalance()
}

func (s *AccountService) Credit(ctx context.Context, tx store.Getter, accountID, amount int64) (store.BalanceChange, error) {
	if amount <= 0 {
		return store.BalanceChange{}, apperror.BadRequest("amount must be positive")
	}
	change, err := s.accounts.Credit(ctx, tx, accountID, amount)
	if err != nil {
		return store.BalanceChange{}, notFoundOr(err, apperror.EntityAccount)
	}
	return change, nil
}

// LockPair takes row locks on both accounts in ascending id order so that
// opposing transfers cannot deadlock.
func (s *AccountService) LockPair(ctx context.Context, tx store.Getter, firstID, secondID int64) (models.Account, models.Account, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := s.accounts.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return models.Account{}, models.Account{}, notFoundOr(err, apperror.EntityAccount)
	}
	right, err := s.accounts.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return models.Account{}, models.Account{}, notFoundOr(err, apperror.EntityAccount)
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID int64) (int64, int64) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
