package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ledger/internal/apperror"
	"ledger/internal/auth"
	"ledger/internal/db"
	"ledger/internal/models"
	"ledger/internal/money"
	"ledger/internal/store"
	"ledger/internal/websocket"

	"github.com/jmoiron/sqlx"
)

const (
	idempotencyConstraint   = "transactions_idempotency_key_key"
	maxIdempotencyKeyLength = 255
	maxDescriptionLength    = 1024
)

// Ledger is the set of balance primitives the journal applies movements with.
type Ledger interface {
	Debit(ctx context.Context, tx store.Getter, accountID, amount int64) (store.BalanceChange, error)
	Credit(ctx context.Context, tx store.Getter, accountID, amount int64) (store.BalanceChange, error)
	LockPair(ctx context.Context, tx store.Getter, firstID, secondID int64) (models.Account, models.Account, error)
}

// AccountReader loads an account by id, failing with NotFound when absent.
type AccountReader interface {
	Lookup(ctx context.Context, accountID int64) (models.Account, error)
}

// TransactionService is the transaction journal. Each transaction's balance
// changes and its record commit or roll back together.
type TransactionService struct {
	txRunner db.TxRunner
	ledger   Ledger
	accounts AccountReader
	txStore  TransactionStore
	hub      BalanceHub
	events   EventRecorder
	logger   *slog.Logger
}

func NewTransactionService(txRunner db.TxRunner, ledger Ledger, accounts AccountReader, txStore TransactionStore, hub BalanceHub, events EventRecorder, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		txRunner: txRunner,
		ledger:   ledger,
		accounts: accounts,
		txStore:  txStore,
		hub:      hub,
		events:   events,
		logger:   logger,
	}
}

type CreateTransactionRequest struct {
	Type           models.TransactionType
	FromAccountID  *int64
	ToAccountID    *int64
	Amount         int64
	Description    *string
	IdempotencyKey *string
}

// CreateTransaction validates the request, checks initiator may move the
// funds, then applies the movement and records it in one unit of work.
// A reused idempotency key fails with DuplicateIdempotencyKey and leaves
// balances untouched.
func (s *TransactionService) CreateTransaction(ctx context.Context, initiator auth.Identity, req CreateTransactionRequest) (models.Transaction, error) {
	if req.Amount <= 0 {
		return models.Transaction{}, apperror.BadRequest("amount must be positive")
	}
	movement, err := models.NewMovement(req.Type, req.FromAccountID, req.ToAccountID)
	if err != nil {
		return models.Transaction{}, err
	}
	idempotencyKey := normalizeOptional(req.IdempotencyKey)
	if idempotencyKey != nil && len(*idempotencyKey) > maxIdempotencyKeyLength {
		return models.Transaction{}, apperror.BadRequest("idempotency_key must be at most %d characters", maxIdempotencyKeyLength)
	}
	description := normalizeOptional(req.Description)
	if description != nil && len(*description) > maxDescriptionLength {
		return models.Transaction{}, apperror.BadRequest("description must be at most %d characters", maxDescriptionLength)
	}
	if err := auth.RequireMovementAccess(initiator, movement); err != nil {
		return models.Transaction{}, err
	}

	var record models.Transaction
	var changes []store.BalanceChange
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if idempotencyKey != nil {
			used, err := s.txStore.IdempotencyKeyExists(ctx, tx, *idempotencyKey)
			if err != nil {
				return err
			}
			if used {
				return apperror.DuplicateIdempotencyKey()
			}
		}
		applied, err := s.apply(ctx, tx, movement, req.Amount)
		if err != nil {
			return err
		}
		changes = applied
		record, err = s.txStore.Create(ctx, tx, store.TransactionInput{
			FromAccountID:  movement.From(),
			ToAccountID:    movement.To(),
			Amount:         req.Amount,
			Type:           movement.Type(),
			Status:         models.StatusCompleted,
			Description:    description,
			IdempotencyKey: idempotencyKey,
		})
		return err
	})
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && constraint == idempotencyConstraint {
			return models.Transaction{}, apperror.DuplicateIdempotencyKey()
		}
		if apperror.KindOf(err) == 0 {
			s.logger.Error("transaction failed", slog.String("type", string(req.Type)), slog.Any("error", err))
		}
		return models.Transaction{}, apperror.Storage(err)
	}

	s.logger.Info("transaction completed",
		slog.Int64("transaction_id", record.ID),
		slog.String("type", string(record.Type)),
		slog.Int64("amount", record.Amount),
		slog.Int64("initiator_key_id", initiator.KeyID),
	)
	for _, change := range changes {
		s.hub.BroadcastBalance(websocket.BalanceUpdate{
			AccountID:      change.AccountID,
			Balance:        change.Balance,
			BalanceDisplay: money.FormatMinor(change.Balance, change.Currency),
			Currency:       change.Currency,
		})
	}
	if s.events != nil {
		s.events.TransactionCompleted(ctx, record)
	}
	return record, nil
}

func (s *TransactionService) apply(ctx context.Context, tx store.Getter, movement models.Movement, amount int64) ([]store.BalanceChange, error) {
	switch m := movement.(type) {
	case models.CreditMovement:
		change, err := s.ledger.Credit(ctx, tx, m.Account, amount)
		if err != nil {
			return nil, err
		}
		return []store.BalanceChange{change}, nil
	case models.DebitMovement:
		change, err := s.ledger.Debit(ctx, tx, m.Account, amount)
		if err != nil {
			return nil, err
		}
		return []store.BalanceChange{change}, nil
	case models.TransferMovement:
		if _, _, err := s.ledger.LockPair(ctx, tx, m.Source, m.Destination); err != nil {
			return nil, err
		}
		debited, err := s.ledger.Debit(ctx, tx, m.Source, amount)
		if err != nil {
			return nil, err
		}
		credited, err := s.ledger.Credit(ctx, tx, m.Destination, amount)
		if err != nil {
			return nil, err
		}
		return []store.BalanceChange{debited, credited}, nil
	default:
		return nil, errors.New("unsupported movement")
	}
}

func (s *TransactionService) GetTransaction(ctx context.Context, viewer auth.Identity, transactionID int64) (models.Transaction, error) {
	record, err := s.txStore.GetByID(ctx, transactionID)
	if err != nil {
		return models.Transaction{}, notFoundOr(err, apperror.EntityTransaction)
	}
	if err := auth.RequireTransactionView(viewer, record); err != nil {
		return models.Transaction{}, err
	}
	return record, nil
}

// ListAccountTransactions returns every transaction the account sent or
// received, oldest first.
func (s *TransactionService) ListAccountTransactions(ctx context.Context, viewer auth.Identity, accountID int64) ([]models.Transaction, error) {
	if err := auth.RequireAccountAccess(viewer, accountID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.Lookup(ctx, accountID); err != nil {
		return nil, err
	}
	records, err := s.txStore.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return records, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
