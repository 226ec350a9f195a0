package waitlist

import (
	"context"
	"time"
)

// EntryStore persists waitlist entries keyed by email.
type EntryStore interface {
	// UpsertEntry inserts the entry or, when the email already exists,
	// overwrites every mutable column. It reports whether a new row was
	// created. The upsert is a single atomic statement at the store level.
	UpsertEntry(ctx context.Context, entry Entry) (created bool, err error)

	// CountSubmissions returns how many rows the given client wrote with
	// created_at inside [from, to]. Depending on schema generation the
	// lookup keys on the raw IP or its hash; callers supply both.
	CountSubmissions(ctx context.Context, ip, ipHash string, from, to time.Time) (int, error)
}

// Hasher computes the one-way digest stored in the ip_hash column.
type Hasher interface {
	Hash(s string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
