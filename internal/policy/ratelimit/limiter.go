// Package ratelimit caps submissions per client IP per UTC calendar day.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// DefaultDailyLimit applies when configuration supplies no usable ceiling.
const DefaultDailyLimit = 10

// Counter is the slice of the entry store the limiter needs.
type Counter interface {
	CountSubmissions(ctx context.Context, ip, ipHash string, from, to time.Time) (int, error)
}

// Decision is the outcome of one limit evaluation.
type Decision struct {
	Allowed bool
	// RetryAfterSeconds is set when Allowed is false: whole seconds until
	// the next UTC midnight, minimum 1.
	RetryAfterSeconds int
}

// Ceiling returns the effective daily limit. Non-positive configuration
// silently falls back to the default.
func Ceiling(configured int) int {
	if configured <= 0 {
		return DefaultDailyLimit
	}
	return configured
}

// Window returns the inclusive UTC calendar-day bounds containing now.
func Window(now time.Time) (start, end time.Time) {
	now = now.UTC()
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end = start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// RetryAfter computes ceil(seconds until the next UTC midnight), minimum 1.
func RetryAfter(now time.Time) int {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	remaining := midnight.Sub(now)
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Evaluate counts the IP's prior submissions in the current UTC day and
// compares against the limit. The count and the subsequent insert are separate
// statements: two near-simultaneous requests can both pass at the boundary and
// overshoot the cap by a small margin.
func Evaluate(ctx context.Context, counter Counter, ip, ipHash string, now time.Time, limit int) (Decision, error) {
	start, end := Window(now)
	count, err := counter.CountSubmissions(ctx, ip, ipHash, start, end)
	if err != nil {
		return Decision{}, fmt.Errorf("count submissions: %w", err)
	}
	if count >= Ceiling(limit) {
		return Decision{Allowed: false, RetryAfterSeconds: RetryAfter(now)}, nil
	}
	return Decision{Allowed: true}, nil
}
