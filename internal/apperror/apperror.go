// Package apperror defines the typed failures surfaced by the ledger and the
// access-control layer.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindBadRequest Kind = iota + 1
	KindInvalidAPIKey
	KindForbidden
	KindNotFound
	KindInsufficientBalance
	KindDuplicateIdempotencyKey
	KindRateLimitExceeded
	KindStorage
)

// Error codes carried in API responses.
const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeInvalidAPIKey       = "INVALID_API_KEY"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeTransactionNotFound = "TRANSACTION_NOT_FOUND"
	CodeAPIKeyNotFound      = "API_KEY_NOT_FOUND"
	CodeWebhookNotFound     = "WEBHOOK_NOT_FOUND"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeDuplicateRequest    = "DUPLICATE_REQUEST"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeStorage             = "DATABASE_ERROR"
)

// Entities that can be missing.
const (
	EntityAccount     = "account"
	EntityTransaction = "transaction"
	EntityAPIKey      = "api key"
	EntityWebhook     = "webhook"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperror.ErrForbidden)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && e.Code != t.Code {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrBadRequest              = &Error{Kind: KindBadRequest}
	ErrInvalidAPIKey           = &Error{Kind: KindInvalidAPIKey}
	ErrForbidden               = &Error{Kind: KindForbidden}
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrAccountNotFound         = &Error{Kind: KindNotFound, Code: CodeAccountNotFound}
	ErrTransactionNotFound     = &Error{Kind: KindNotFound, Code: CodeTransactionNotFound}
	ErrAPIKeyNotFound          = &Error{Kind: KindNotFound, Code: CodeAPIKeyNotFound}
	ErrWebhookNotFound         = &Error{Kind: KindNotFound, Code: CodeWebhookNotFound}
	ErrInsufficientBalance     = &Error{Kind: KindInsufficientBalance}
	ErrDuplicateIdempotencyKey = &Error{Kind: KindDuplicateIdempotencyKey}
	ErrRateLimitExceeded       = &Error{Kind: KindRateLimitExceeded}
	ErrStorage                 = &Error{Kind: KindStorage}
)

func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

func InvalidAPIKey() *Error {
	return &Error{Kind: KindInvalidAPIKey, Code: CodeInvalidAPIKey, Message: "invalid api key"}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

func NotFound(entity string) *Error {
	code := CodeNotFound
	switch entity {
	case EntityAccount:
		code = CodeAccountNotFound
	case EntityTransaction:
		code = CodeTransactionNotFound
	case EntityAPIKey:
		code = CodeAPIKeyNotFound
	case EntityWebhook:
		code = CodeWebhookNotFound
	}
	return &Error{Kind: KindNotFound, Code: code, Message: entity + " not found"}
}

func InsufficientBalance() *Error {
	return &Error{Kind: KindInsufficientBalance, Code: CodeInsufficientBalance, Message: "insufficient balance"}
}

func DuplicateIdempotencyKey() *Error {
	return &Error{Kind: KindDuplicateIdempotencyKey, Code: CodeDuplicateRequest, Message: "idempotency key already used"}
}

func RateLimitExceeded() *Error {
	return &Error{Kind: KindRateLimitExceeded, Code: CodeRateLimitExceeded, Message: "rate limit exceeded"}
}

// Storage wraps a persistence failure. Errors that already carry a Kind are
// returned untouched so translation is idempotent.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return &Error{Kind: KindStorage, Code: CodeStorage, Message: "storage error", Err: err}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return 0
}
