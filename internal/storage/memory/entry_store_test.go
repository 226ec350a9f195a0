package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

func TestEntryStoreUpsertPreservesCreatedAt(t *testing.T) {
	t.Parallel()

	store := NewEntryStore()
	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)

	created, err := store.UpsertEntry(context.Background(), waitlist.Entry{
		Email:     "a@b.com",
		IPAddress: "203.0.113.9",
		CreatedAt: first,
		UpdatedAt: first,
	})
	require.NoError(t, err)
	require.True(t, created)

	created, err = store.UpsertEntry(context.Background(), waitlist.Entry{
		Email:     "a@b.com",
		IPAddress: "198.51.100.7",
		CreatedAt: second,
		UpdatedAt: second,
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, 1, store.Len())

	entry, ok := store.Get("a@b.com")
	require.True(t, ok)
	require.Equal(t, first, entry.CreatedAt)
	require.Equal(t, second, entry.UpdatedAt)
	require.Equal(t, "198.51.100.7", entry.IPAddress)
}

func TestEntryStoreCountSubmissionsWindow(t *testing.T) {
	t.Parallel()

	store := NewEntryStore()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	put := func(email string, at time.Time) {
		_, err := store.UpsertEntry(context.Background(), waitlist.Entry{
			Email:     email,
			IPAddress: "203.0.113.9",
			IPHash:    "hash-9",
			CreatedAt: at,
		})
		require.NoError(t, err)
	}
	put("one@b.com", day.Add(1*time.Hour))
	put("two@b.com", day.Add(23*time.Hour))
	put("prev@b.com", day.Add(-time.Minute))

	from := day
	to := day.Add(24*time.Hour - time.Nanosecond)
	count, err := store.CountSubmissions(context.Background(), "203.0.113.9", "hash-9", from, to)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	count, err = store.CountSubmissions(context.Background(), "other", "other-hash", from, to)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestEntryStoreCountMatchesHashOnly(t *testing.T) {
	t.Parallel()

	store := NewEntryStore()
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_, err := store.UpsertEntry(context.Background(), waitlist.Entry{
		Email:     "a@b.com",
		IPHash:    "hash-only",
		CreatedAt: at,
	})
	require.NoError(t, err)

	count, err := store.CountSubmissions(context.Background(), "203.0.113.9", "hash-only", at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
