// Package respond writes JSON bodies and translates typed errors into HTTP
// responses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledger/internal/apperror"
	"ledger/internal/validator"
)

type ErrorBody struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes err with the status of its kind. Storage and untyped errors
// become a generic 500 so internals never leak.
func Error(w http.ResponseWriter, err error) {
	var fieldErrs validator.Errors
	if errors.As(err, &fieldErrs) {
		JSON(w, http.StatusBadRequest, ErrorBody{
			Error:   "validation failed",
			Code:    apperror.CodeBadRequest,
			Details: fieldErrs,
		})
		return
	}
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperror.KindStorage {
		JSON(w, http.StatusInternalServerError, ErrorBody{Error: "internal error", Code: apperror.CodeStorage})
		return
	}
	JSON(w, Status(appErr.Kind), ErrorBody{Error: appErr.Message, Code: appErr.Code})
}

func Status(kind apperror.Kind) int {
	switch kind {
	case apperror.KindBadRequest:
		return http.StatusBadRequest
	case apperror.KindInvalidAPIKey:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindInsufficientBalance, apperror.KindDuplicateIdempotencyKey:
		return http.StatusConflict
	case apperror.KindRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
