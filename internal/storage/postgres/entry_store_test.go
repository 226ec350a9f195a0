package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

func newMockStore(t *testing.T, hasIPHash bool) (*EntryStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewEntryStoreWithPool(mock, hasIPHash, zap.NewNop())
	require.NoError(t, err)
	return store, mock
}

// anyArgs returns n pgxmock.AnyArg matchers; pgxmock enforces argument
// counts even when a test does not care about the values.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func sampleEntry() waitlist.Entry {
	now := time.Unix(1700000000, 0).UTC()
	qualifier := "founder"
	return waitlist.Entry{
		Email:        "a@b.com",
		IPAddress:    "203.0.113.9",
		IPHash:       "deadbeef",
		Qualifier:    &qualifier,
		MetadataJSON: []byte(`{"edge":{}}`),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUpsertEntryWithoutIPHashColumn(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, false)
	mock.ExpectQuery(`INSERT INTO waitlist_entries`).
		WithArgs(anyArgs(35)...).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(true))

	created, err := store.UpsertEntry(context.Background(), sampleEntry())
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEntryUpdateReportsNotCreated(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, true)
	mock.ExpectQuery(`ip_hash`).
		WithArgs(anyArgs(36)...).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(false))

	created, err := store.UpsertEntry(context.Background(), sampleEntry())
	require.NoError(t, err)
	require.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEntryRetriesWithIPHashOnNotNullViolation(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, false)
	mock.ExpectQuery(`INSERT INTO waitlist_entries`).
		WithArgs(anyArgs(35)...).
		WillReturnError(&pgconn.PgError{Code: codeNotNullViolation, ColumnName: "ip_hash"})
	mock.ExpectQuery(`ip_hash`).
		WithArgs(anyArgs(36)...).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(true))

	created, err := store.UpsertEntry(context.Background(), sampleEntry())
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, store.hasIPHash.Load())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEntryRetriesWithoutIPHashOnUndefinedColumn(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, true)
	mock.ExpectQuery(`ip_hash`).
		WithArgs(anyArgs(36)...).
		WillReturnError(&pgconn.PgError{Code: codeUndefinedColumn})
	mock.ExpectQuery(`INSERT INTO waitlist_entries`).
		WithArgs(anyArgs(35)...).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(true))

	created, err := store.UpsertEntry(context.Background(), sampleEntry())
	require.NoError(t, err)
	require.True(t, created)
	require.False(t, store.hasIPHash.Load())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEntryPropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, false)
	mock.ExpectQuery(`INSERT INTO waitlist_entries`).
		WithArgs(anyArgs(35)...).
		WillReturnError(&pgconn.PgError{Code: "53300"})

	_, err := store.UpsertEntry(context.Background(), sampleEntry())
	require.Error(t, err)
	require.False(t, store.hasIPHash.Load())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEntryRequiresEmail(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t, false)
	entry := sampleEntry()
	entry.Email = ""
	_, err := store.UpsertEntry(context.Background(), entry)
	require.Error(t, err)
}

func TestCountSubmissionsByIPAddress(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, false)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Nanosecond)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM waitlist_entries WHERE ip_address`).
		WithArgs("203.0.113.9", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	count, err := store.CountSubmissions(context.Background(), "203.0.113.9", "deadbeef", from, to)
	require.NoError(t, err)
	require.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSubmissionsByIPHash(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, true)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Nanosecond)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM waitlist_entries WHERE ip_hash`).
		WithArgs("deadbeef", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	count, err := store.CountSubmissions(context.Background(), "203.0.113.9", "deadbeef", from, to)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountSubmissionsFlipsOnUndefinedColumn(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, true)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	mock.ExpectQuery(`WHERE ip_hash`).
		WithArgs(anyArgs(3)...).
		WillReturnError(&pgconn.PgError{Code: codeUndefinedColumn})
	mock.ExpectQuery(`WHERE ip_address`).
		WithArgs("203.0.113.9", from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	count, err := store.CountSubmissions(context.Background(), "203.0.113.9", "deadbeef", from, to)
	require.NoError(t, err)
	require.Zero(t, count)
	require.False(t, store.hasIPHash.Load())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlipOnSchemaError(t *testing.T) {
	t.Parallel()

	retry, ok := flipOnSchemaError(&pgconn.PgError{Code: codeUndefinedColumn}, true)
	require.True(t, ok)
	require.False(t, retry)

	retry, ok = flipOnSchemaError(&pgconn.PgError{Code: codeNotNullViolation, ColumnName: "ip_hash"}, false)
	require.True(t, ok)
	require.True(t, retry)

	// Not-null on a different column is a real fault, not a schema race.
	_, ok = flipOnSchemaError(&pgconn.PgError{Code: codeNotNullViolation, ColumnName: "email"}, false)
	require.False(t, ok)

	_, ok = flipOnSchemaError(errors.New("plain"), true)
	require.False(t, ok)
}
