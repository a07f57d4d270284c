package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(sqlx.NewDb(db, "sqlmock"), "exchange_rates"), mock
}

var rateColumns = []string{"id", "from_currency", "to_currency", "rate", "created_at"}

func TestStorage_ListRates(t *testing.T) {
	s, mock := newMockStorage(t)
	created := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "exchange_rates"`) + `.*` +
		regexp.QuoteMeta(`AND from_currency = $1 AND to_currency = $2 ORDER BY created_at DESC, id DESC LIMIT $3`)).
		WithArgs("HKD", "USD", 11).
		WillReturnRows(sqlmock.NewRows(rateColumns).
			AddRow(int64(2), "HKD", "USD", "0.13", created).
			AddRow(int64(1), "HKD", "USD", "0.12", created.Add(-time.Minute)))

	rates, err := s.ListRates(context.Background(), RateFilter{From: "HKD", To: "USD", PageSize: 10})

	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, int64(2), rates[0].ID)
	assert.Equal(t, "0.13", rates[0].Rate)
	assert.Equal(t, created, rates[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListRates_Cursor(t *testing.T) {
	s, mock := newMockStorage(t)
	cursor := &RateCursor{CreatedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), ID: 7}

	mock.ExpectQuery(regexp.QuoteMeta(`AND (created_at, id) < ($1, $2) ORDER BY created_at DESC, id DESC LIMIT $3`)).
		WithArgs(cursor.CreatedAt, cursor.ID, 51).
		WillReturnRows(sqlmock.NewRows(rateColumns))

	rates, err := s.ListRates(context.Background(), RateFilter{PageSize: 50, Cursor: cursor})

	require.NoError(t, err)
	assert.Empty(t, rates)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListRates_Error(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("db down"))

	_, err := s.ListRates(context.Background(), RateFilter{PageSize: 50})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list rates")
}

func TestStorage_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	s := NewStorage(sqlx.NewDb(db, "sqlmock"), "exchange_rates")
	mock.ExpectPing()

	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
