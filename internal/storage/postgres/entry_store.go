// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/LouisDeconinck/waitlist-template2/internal/waitlist"
)

// Postgres error codes used to detect which schema generation the target
// table is on. The ip_hash column is rolled out by a separate migration, so
// a deploy may race it in either direction.
const (
	codeUndefinedColumn  = "42703"
	codeNotNullViolation = "23502"
)

// EntryStoreConfig controls the Postgres connection pool used for waitlist
// rows.
type EntryStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// EntryStore implements waitlist.EntryStore on Postgres.
type EntryStore struct {
	pool   querier
	logger *zap.Logger

	// hasIPHash caches whether the ip_hash column exists. Probed once at
	// startup, flipped when a write reveals the probe went stale.
	hasIPHash atomic.Bool
}

// NewEntryStore connects a pool and probes the schema generation.
func NewEntryStore(ctx context.Context, cfg EntryStoreConfig, logger *zap.Logger) (*EntryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &EntryStore{pool: pool, logger: logger}
	hasColumn, err := store.probeIPHashColumn(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("probe schema: %w", err)
	}
	store.hasIPHash.Store(hasColumn)
	logger.Info("entry store ready", zap.Bool("ip_hash_column", hasColumn))
	return store, nil
}

// NewEntryStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewEntryStoreWithPool(pool querier, hasIPHash bool, logger *zap.Logger) (*EntryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	store := &EntryStore{pool: pool, logger: logger}
	store.hasIPHash.Store(hasIPHash)
	return store, nil
}

// Close releases the underlying pool resources.
func (s *EntryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *EntryStore) probeIPHashColumn(ctx context.Context) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM information_schema.columns
	WHERE table_name = 'waitlist_entries' AND column_name = 'ip_hash'
)`
	var exists bool
	if err := s.pool.QueryRow(ctx, query).Scan(&exists); err != nil {
		return false, fmt.Errorf("query information_schema: %w", err)
	}
	return exists, nil
}

const upsertColumns = `
	email, ip_address, %s qualifier, use_case, source_url, landing_path,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	screen_width, screen_height, viewport_width, viewport_height,
	platform, timezone, timezone_offset, color_scheme, reduced_motion,
	cookies_enabled, do_not_track, device_memory, hardware_concurrency,
	max_touch_points, country, city, user_agent, referrer,
	accept_language, origin, host, metadata_json, created_at, updated_at`

const upsertUpdates = `
	ip_address = EXCLUDED.ip_address, %s
	qualifier = EXCLUDED.qualifier, use_case = EXCLUDED.use_case,
	source_url = EXCLUDED.source_url, landing_path = EXCLUDED.landing_path,
	utm_source = EXCLUDED.utm_source, utm_medium = EXCLUDED.utm_medium,
	utm_campaign = EXCLUDED.utm_campaign, utm_term = EXCLUDED.utm_term,
	utm_content = EXCLUDED.utm_content,
	screen_width = EXCLUDED.screen_width, screen_height = EXCLUDED.screen_height,
	viewport_width = EXCLUDED.viewport_width, viewport_height = EXCLUDED.viewport_height,
	platform = EXCLUDED.platform, timezone = EXCLUDED.timezone,
	timezone_offset = EXCLUDED.timezone_offset, color_scheme = EXCLUDED.color_scheme,
	reduced_motion = EXCLUDED.reduced_motion, cookies_enabled = EXCLUDED.cookies_enabled,
	do_not_track = EXCLUDED.do_not_track, device_memory = EXCLUDED.device_memory,
	hardware_concurrency = EXCLUDED.hardware_concurrency,
	max_touch_points = EXCLUDED.max_touch_points,
	country = EXCLUDED.country, city = EXCLUDED.city,
	user_agent = EXCLUDED.user_agent, referrer = EXCLUDED.referrer,
	accept_language = EXCLUDED.accept_language, origin = EXCLUDED.origin,
	host = EXCLUDED.host, metadata_json = EXCLUDED.metadata_json,
	updated_at = EXCLUDED.updated_at`

func upsertQuery(withIPHash bool) string {
	columnExtra, updateExtra := "", ""
	placeholders := 35
	if withIPHash {
		columnExtra = "ip_hash,"
		updateExtra = "ip_hash = EXCLUDED.ip_hash,"
		placeholders = 36
	}
	var values strings.Builder
	for i := 1; i <= placeholders; i++ {
		if i > 1 {
			values.WriteByte(',')
		}
		fmt.Fprintf(&values, "$%d", i)
	}
	return fmt.Sprintf(
		"INSERT INTO waitlist_entries (%s) VALUES (%s)\nON CONFLICT (email) DO UPDATE SET %s\nRETURNING (xmax = 0) AS created",
		fmt.Sprintf(upsertColumns, columnExtra),
		values.String(),
		fmt.Sprintf(upsertUpdates, updateExtra),
	)
}

func upsertArgs(entry waitlist.Entry, withIPHash bool) []any {
	args := []any{entry.Email, entry.IPAddress}
	if withIPHash {
		args = append(args, entry.IPHash)
	}
	return append(args,
		entry.Qualifier, entry.UseCase, entry.SourceURL, entry.LandingPath,
		entry.UTMSource, entry.UTMMedium, entry.UTMCampaign, entry.UTMTerm, entry.UTMContent,
		entry.ScreenWidth, entry.ScreenHeight, entry.ViewportWidth, entry.ViewportHeight,
		entry.Platform, entry.Timezone, entry.TimezoneOffset, entry.ColorScheme, entry.ReducedMotion,
		entry.CookiesEnabled, entry.DoNotTrack, entry.DeviceMemory, entry.HardwareConcurrency,
		entry.MaxTouchPoints, entry.Country, entry.City, entry.UserAgent, entry.Referrer,
		entry.AcceptLanguage, entry.Origin, entry.Host, entry.MetadataJSON,
		entry.CreatedAt, entry.UpdatedAt,
	)
}

// UpsertEntry writes one row per email; a conflicting email overwrites every
// mutable column and refreshes updated_at, leaving created_at untouched. When
// the write fails because the cached schema generation is stale, the variant
// is flipped and the statement retried exactly once.
func (s *EntryStore) UpsertEntry(ctx context.Context, entry waitlist.Entry) (bool, error) {
	if entry.Email == "" {
		return false, fmt.Errorf("entry email is required")
	}
	withIPHash := s.hasIPHash.Load()
	created, err := s.execUpsert(ctx, entry, withIPHash)
	if err == nil {
		return created, nil
	}
	retryWith, ok := flipOnSchemaError(err, withIPHash)
	if !ok {
		return false, fmt.Errorf("upsert entry: %w", err)
	}
	s.hasIPHash.Store(retryWith)
	s.logger.Warn("schema generation changed, retrying upsert",
		zap.Bool("ip_hash_column", retryWith))
	created, err = s.execUpsert(ctx, entry, retryWith)
	if err != nil {
		return false, fmt.Errorf("upsert entry after schema retry: %w", err)
	}
	return created, nil
}

func (s *EntryStore) execUpsert(ctx context.Context, entry waitlist.Entry, withIPHash bool) (bool, error) {
	var created bool
	err := s.pool.QueryRow(ctx, upsertQuery(withIPHash), upsertArgs(entry, withIPHash)...).Scan(&created)
	if err != nil {
		return false, err
	}
	return created, nil
}

// CountSubmissions counts rows written by the client inside [from, to]. The
// lookup keys on ip_hash when that schema generation is live, raw ip_address
// otherwise.
func (s *EntryStore) CountSubmissions(ctx context.Context, ip, ipHash string, from, to time.Time) (int, error) {
	withIPHash := s.hasIPHash.Load()
	count, err := s.execCount(ctx, ip, ipHash, from, to, withIPHash)
	if err == nil {
		return count, nil
	}
	retryWith, ok := flipOnSchemaError(err, withIPHash)
	if !ok {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	s.hasIPHash.Store(retryWith)
	count, err = s.execCount(ctx, ip, ipHash, from, to, retryWith)
	if err != nil {
		return 0, fmt.Errorf("count submissions after schema retry: %w", err)
	}
	return count, nil
}

func (s *EntryStore) execCount(ctx context.Context, ip, ipHash string, from, to time.Time, withIPHash bool) (int, error) {
	query := `SELECT COUNT(*) FROM waitlist_entries WHERE ip_address = $1 AND created_at >= $2 AND created_at <= $3`
	key := ip
	if withIPHash {
		query = `SELECT COUNT(*) FROM waitlist_entries WHERE ip_hash = $1 AND created_at >= $2 AND created_at <= $3`
		key = ipHash
	}
	var count int
	if err := s.pool.QueryRow(ctx, query, key, from, to).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// flipOnSchemaError reports whether the error means the cached ip_hash
// capability is wrong, and if so which variant to retry with. Detection works
// on structured Postgres error codes, never on message text.
func flipOnSchemaError(err error, usedIPHash bool) (retryWith bool, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false, false
	}
	if usedIPHash && pgErr.Code == codeUndefinedColumn {
		// Wrote ip_hash into a table that does not have it yet.
		return false, true
	}
	if !usedIPHash && pgErr.Code == codeNotNullViolation && pgErr.ColumnName == "ip_hash" {
		// Table now requires ip_hash and we left it out.
		return true, true
	}
	return false, false
}
