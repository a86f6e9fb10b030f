package store

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = sqlDB.Close()
	})
	return sqlx.NewDb(sqlDB, "postgres"), mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "business_name", "balance", "currency", "is_active", "created_at", "updated_at"})
}

func apiKeyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "account_id", "key_hash", "key_prefix", "name", "role", "rate_limit_per_minute", "is_active", "last_used_at", "created_at", "updated_at"})
}

func transactionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "from_account_id", "to_account_id", "amount", "transaction_type", "status", "description", "idempotency_key", "created_at", "updated_at"})
}

func endpointRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "account_id", "url", "secret", "events", "is_active", "retry_max_attempts", "created_at", "updated_at"})
}
