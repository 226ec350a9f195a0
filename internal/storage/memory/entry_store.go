// Package memory stores waitlist entries in-memory for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

// EntryStore keeps entries keyed by email behind a mutex. It mirrors the
// Postgres store's semantics: last write wins, created_at is preserved across
// updates.
type EntryStore struct {
	mu      sync.Mutex
	entries map[string]waitlist.Entry
}

// NewEntryStore creates a new in-memory entry store.
func NewEntryStore() *EntryStore {
	return &EntryStore{entries: make(map[string]waitlist.Entry)}
}

// UpsertEntry inserts or fully overwrites the entry for its email.
func (s *EntryStore) UpsertEntry(_ context.Context, entry waitlist.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.entries[entry.Email]
	if found {
		entry.CreatedAt = existing.CreatedAt
	}
	s.entries[entry.Email] = entry
	return !found, nil
}

// CountSubmissions counts entries the client created inside [from, to].
// Both the raw address and its hash are checked so callers behave the same
// against either schema generation.
func (s *EntryStore) CountSubmissions(_ context.Context, ip, ipHash string, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, entry := range s.entries {
		if entry.IPAddress != ip && (ipHash == "" || entry.IPHash != ipHash) {
			continue
		}
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		count++
	}
	return count, nil
}

// Get returns the stored entry for an email (test helper).
func (s *EntryStore) Get(email string) (waitlist.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[email]
	return entry, ok
}

// Len reports how many unique emails are stored.
func (s *EntryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
