package auth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/apperror"
	"ledger/internal/models"
)

type CredentialStore interface {
	GetActiveByHash(ctx context.Context, keyHash string) (models.APIKey, error)
	TouchLastUsed(ctx context.Context, keyID int64) error
}

type RateLimiter interface {
	Allow(keyID int64, limit int) bool
}

// Authenticator turns a presented raw key into an Identity, charging the
// key's request budget on the way.
type Authenticator struct {
	keys         CredentialStore
	limiter      RateLimiter
	hasher       Hasher
	logger       *slog.Logger
	touchTimeout time.Duration
	touches      sync.WaitGroup
}

func NewAuthenticator(keys CredentialStore, limiter RateLimiter, hasher Hasher, logger *slog.Logger, touchTimeout time.Duration) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if touchTimeout <= 0 {
		touchTimeout = 2 * time.Second
	}
	return &Authenticator{
		keys:         keys,
		limiter:      limiter,
		hasher:       hasher,
		logger:       logger,
		touchTimeout: touchTimeout,
	}
}

// Authenticate resolves raw to an active key. Empty, unknown and inactive
// keys all yield the same InvalidAPIKey error. An exhausted budget yields
// RateLimitExceeded before any other work happens.
func (a *Authenticator) Authenticate(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, apperror.InvalidAPIKey()
	}
	key, err := a.keys.GetActiveByHash(ctx, a.hasher.Digest(raw))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, apperror.InvalidAPIKey()
		}
		return Identity{}, apperror.Storage(err)
	}
	if !key.IsActive {
		return Identity{}, apperror.InvalidAPIKey()
	}
	if !a.limiter.Allow(key.ID, key.RateLimitPerMinute) {
		a.logger.Warn("rate limit exceeded", slog.Int64("key_id", key.ID), slog.String("key_prefix", key.KeyPrefix))
		return Identity{}, apperror.RateLimitExceeded()
	}
	a.touch(ctx, key.ID)
	return Identity{KeyID: key.ID, AccountID: key.AccountID, Role: key.Role}, nil
}

// touch records last use in the background. Failures are logged and never
// reach the caller.
func (a *Authenticator) touch(ctx context.Context, keyID int64) {
	a.touches.Add(1)
	go func() {
		defer a.touches.Done()
		touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.touchTimeout)
		defer cancel()
		if err := a.keys.TouchLastUsed(touchCtx, keyID); err != nil {
			a.logger.Warn("failed to record api key usage", slog.Int64("key_id", keyID), slog.Any("error", err))
		}
	}()
}

// Wait blocks until pending last-used updates have finished.
func (a *Authenticator) Wait() {
	a.touches.Wait()
}
