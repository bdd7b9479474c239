package db

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAuditLog(t *testing.T) {
	mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs("Jane Doe", "login").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, AddAuditLog("Jane Doe", "login"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func auditRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "action", "timestamp"}).
		AddRow(2, "boss", "Viewed admin panel", time.Now()).
		AddRow(1, "Jane Doe", "login", time.Now().Add(-time.Hour))
}

func TestGetAuditLogs(t *testing.T) {
	t.Run("NoFilters", func(t *testing.T) {
		mock := newMockDB(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs ORDER BY timestamp DESC OFFSET $1 LIMIT $2")).
			WithArgs(0, 10).
			WillReturnRows(auditRows())

		logs, err := GetAuditLogs("", "", nil, nil, 0, 10)

		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "boss", logs[0].Username)
	})

	t.Run("SubstringFilters", func(t *testing.T) {
		mock := newMockDB(t)

		mock.ExpectQuery(regexp.QuoteMeta("WHERE username ILIKE $1 AND action ILIKE $2 ORDER BY timestamp DESC OFFSET $3 LIMIT $4")).
			WithArgs("%jane%", "%login%", 0, 10).
			WillReturnRows(auditRows())

		_, err := GetAuditLogs("jane", "login", nil, nil, 0, 10)

		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DateRangeAndPaging", func(t *testing.T) {
		mock := newMockDB(t)

		start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 7, 31, 23, 59, 59, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE timestamp BETWEEN $1 AND $2 ORDER BY timestamp DESC OFFSET $3 LIMIT $4")).
			WithArgs(start, end, 20, 10).
			WillReturnRows(auditRows())

		_, err := GetAuditLogs("", "", &start, &end, 20, 10)

		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
