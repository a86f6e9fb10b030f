package services

import (
	"database/sql"
	"encoding/json"
	"errors"

	"ledger/internal/apperror"
)

// notFoundOr maps sql.ErrNoRows to a NotFound for entity and anything else
// to a storage error.
func notFoundOr(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(entity)
	}
	return apperror.Storage(err)
}

func auditData(fields map[string]any) string {
	data, err := json.Marshal(fields)
	if err != nil {
		return "{}"
	}
	return string(data)
}
