package services

import (
	"context"
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

const maxKeyNameLength = 255

// KeyService manages the lifecycle of API keys. Raw secrets leave it exactly
// once, in the GeneratedKey returned at creation.
type KeyService struct {
	txRunner         db.TxRunner
	keys             APIKeyStore
	accounts         AccountStore
	audit            AuditStore
	hasher           auth.Hasher
	defaultRateLimit int
	logger           *slog.Logger
}

func NewKeyService(txRunner db.TxRunner, keys APIKeyStore, accounts AccountStore, audit AuditStore, hasher auth.Hasher, defaultRateLimit int, logger *slog.Logger) *KeyService {
	return &KeyService{
		txRunner:         txRunner,
		keys:             keys,
		accounts:         accounts,
		audit:            audit,
		hasher:           hasher,
		defaultRateLimit: defaultRateLimit,
		logger:           logger,
	}
}

type GenerateKeyRequest struct {
	AccountID          *int64
	Name               *string
	RateLimitPerMinute *int
	Role               models.Role
}

type GeneratedKey struct {
	Secret string
	Key    models.APIKey
}

type UpdateKeyRequest struct {
	Name               *string
	RateLimitPerMinute *int
	IsActive           *bool
}

// GenerateKey issues a key on behalf of actor. Admins may issue any role for
// any account with any budget; customers may only issue customer keys with
// the default budget for their own account.
func (s *KeyService) GenerateKey(ctx context.Context, actor auth.Identity, req GenerateKeyRequest) (GeneratedKey, error) {
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}
	if !actor.IsAdmin() {
		if req.Role != models.RoleCustomer {
			return GeneratedKey{}, apperror.Forbidden("only admins can issue admin keys")
		}
		if req.RateLimitPerMinute != nil {
			return GeneratedKey{}, apperror.Forbidden("only admins can set rate_limit_per_minute")
		}
		if req.AccountID == nil {
			req.AccountID = actor.AccountID
		}
		if req.AccountID == nil {
			return GeneratedKey{}, apperror.Forbidden("key is not bound to an account")
		}
		if err := auth.RequireAccountAccess(actor, *req.AccountID); err != nil {
			return GeneratedKey{}, err
		}
	}
	if err := s.validateRequest(req); err != nil {
		return GeneratedKey{}, err
	}
	if req.AccountID != nil {
		if _, err := s.accounts.GetByID(ctx, *req.AccountID); err != nil {
			return GeneratedKey{}, notFoundOr(err, apperror.EntityAccount)
		}
	}
	actorKeyID := actor.KeyID
	var generated GeneratedKey
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		generated, err = s.IssueInTx(ctx, tx, &actorKeyID, req)
		return err
	})
	if err != nil {
		return GeneratedKey{}, apperror.Storage(err)
	}
	return generated, nil
}

// BootstrapAdmin issues the first admin key. It is refused once any active
// admin key exists.
func (s *KeyService) BootstrapAdmin(ctx context.Context, name *string) (GeneratedKey, error) {
	req := GenerateKeyRequest{Name: name, Role: models.RoleAdmin}
	if err := s.validateRequest(req); err != nil {
		return GeneratedKey{}, err
	}
	var generated GeneratedKey
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.keys.LockBootstrap(ctx, tx); err != nil {
			return err
		}
		hasAdmin, err := s.keys.HasActiveAdmin(ctx, tx)
		if err != nil {
			return err
		}
		if hasAdmin {
			return apperror.Forbidden("an admin key already exists")
		}
		generated, err = s.IssueInTx(ctx, tx, nil, req)
		return err
	})
	if err != nil {
		return GeneratedKey{}, apperror.Storage(err)
	}
	s.logger.Warn("bootstrap admin key issued", slog.Int64("key_id", generated.Key.ID), slog.String("key_prefix", generated.Key.KeyPrefix))
	return generated, nil
}

// IssueInTx generates, stores and audits a key inside tx. Callers are
// responsible for authorization.
func (s *KeyService) IssueInTx(ctx context.Context, tx store.Tx, actorKeyID *int64, req GenerateKeyRequest) (GeneratedKey, error) {
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}
	if err := s.validateRequest(req); err != nil {
		return GeneratedKey{}, err
	}
	rateLimit := s.defaultRateLimit
	if req.RateLimitPerMinute != nil {
		rateLimit = *req.RateLimitPerMinute
	}
	secret, prefix, err := auth.GenerateSecret()
	if err != nil {
		return GeneratedKey{}, err
	}
	key, err := s.keys.Create(ctx, tx, store.APIKeyInput{
		AccountID:          req.AccountID,
		KeyHash:            s.hasher.Digest(secret),
		KeyPrefix:          prefix,
		Name:               req.Name,
		Role:               req.Role,
		RateLimitPerMinute: rateLimit,
	})
	if err != nil {
		return GeneratedKey{}, err
	}
	data := auditData(map[string]any{
		"role":                  key.Role,
		"account_id":            key.AccountID,
		"key_prefix":            key.KeyPrefix,
		"rate_limit_per_minute": key.RateLimitPerMinute,
	})
	if err := s.audit.Log(ctx, tx, actorKeyID, "api_key.generated", "api_key", strconv.FormatInt(key.ID, 10), data); err != nil {
		return GeneratedKey{}, err
	}
	return GeneratedKey{Secret: secret, Key: key}, nil
}

func (s *KeyService) validateRequest(req GenerateKeyRequest) error {
	if !req.Role.Valid() {
		return apperror.BadRequest("role must be admin or customer")
	}
	if req.Role == models.RoleCustomer && req.AccountID == nil {
		return apperror.BadRequest("customer keys require account_id")
	}
	if req.RateLimitPerMinute != nil && *req.RateLimitPerMinute <= 0 {
		return apperror.BadRequest("rate_limit_per_minute must be positive")
	}
	if req.Name != nil && len(strings.TrimSpace(*req.Name)) > maxKeyNameLength {
		return apperror.BadRequest("name must be at most %d characters", maxKeyNameLength)
	}
	return nil
}

// ListAccountKeys lists the keys bound to accountID.
func (s *KeyService) ListAccountKeys(ctx context.Context, viewer auth.Identity, accountID int64) ([]models.APIKey, error) {
	if err := auth.RequireAccountAccess(viewer, accountID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.GetByID(ctx, accountID); err != nil {
		return nil, notFoundOr(err, apperror.EntityAccount)
	}
	keys, err := s.keys.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return keys, nil
}

func (s *KeyService) ListAllKeys(ctx context.Context, viewer auth.Identity) ([]models.APIKey, error) {
	if err := auth.RequireAdmin(viewer); err != nil {
		return nil, err
	}
	keys, err := s.keys.ListAll(ctx)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return keys, nil
}

// UpdateKey changes a key's name, budget or active flag. Admins may update
// any key; customers only the name and active flag of the customer keys of
// their own account.
// Deactivation applies from the next authentication.
func (s *KeyService) UpdateKey(ctx context.Context, actor auth.Identity, keyID int64, req UpdateKeyRequest) (models.APIKey, error) {
	if req.Name == nil && req.RateLimitPerMinute == nil && req.IsActive == nil {
		return models.APIKey{}, apperror.BadRequest("nothing to update")
	}
	if req.RateLimitPerMinute != nil && *req.RateLimitPerMinute <= 0 {
		return models.APIKey{}, apperror.BadRequest("rate_limit_per_minute must be positive")
	}
	if req.Name != nil && len(strings.TrimSpace(*req.Name)) > maxKeyNameLength {
		return models.APIKey{}, apperror.BadRequest("name must be at most %d characters", maxKeyNameLength)
	}
	current, err := s.keys.GetByID(ctx, keyID)
	if err != nil {
		return models.APIKey{}, notFoundOr(err, apperror.EntityAPIKey)
	}
	if !actor.IsAdmin() {
		if current.Role != models.RoleCustomer || current.AccountID == nil {
			return models.APIKey{}, apperror.Forbidden("access to api key denied")
		}
		if req.RateLimitPerMinute != nil {
			return models.APIKey{}, apperror.Forbidden("only admins can change rate_limit_per_minute")
		}
		if err := auth.RequireAccountAccess(actor, *current.AccountID); err != nil {
			return models.APIKey{}, err
		}
	}
	actorKeyID := actor.KeyID
	var updated models.APIKey
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		updated, err = s.keys.Update(ctx, tx, keyID, store.APIKeyUpdate{
			Name:               req.Name,
			RateLimitPerMinute: req.RateLimitPerMinute,
			IsActive:           req.IsActive,
		})
		if err != nil {
			return notFoundOr(err, apperror.EntityAPIKey)
		}
		action := "api_key.updated"
		if req.IsActive != nil && !*req.IsActive {
			action = "api_key.deactivated"
		}
		return s.audit.Log(ctx, tx, &actorKeyID, action, "api_key", strconv.FormatInt(keyID, 10), auditData(map[string]any{
			"name":                  req.Name,
			"rate_limit_per_minute": req.RateLimitPerMinute,
			"is_active":             req.IsActive,
		}))
	})
	if err != nil {
		return models.APIKey{}, apperror.Storage(err)
	}
	s.logger.Info("api key updated", slog.Int64("key_id", keyID), slog.Int64("actor_key_id", actor.KeyID))
	return updated, nil
}
