// Package postgres provides a Postgres-backed summary store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/llmlogs/botwatch/internal/botlog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for summary rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store keeps one JSON summary row per processed date.
type Store struct {
	pool  pgxPool
	table string
}

// New creates a Postgres-backed summary store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("summary.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "daily_summaries"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
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
	return &Store{
		pool:  pool,
		table: table,
	}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool pgxPool, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "daily_summaries"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// PutDaily upserts the summary row for its date. Re-processing a date
// replaces the whole row.
func (s *Store) PutDaily(ctx context.Context, summary botlog.DailySummary) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("summary store is not configured")
	}
	if summary.Date == "" {
		return fmt.Errorf("summary date is required")
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (summary_date, payload, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (summary_date)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`, s.table)
	if _, err := s.pool.Exec(ctx, query, summary.Date, payload); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// GetDaily loads the summary for the given date. The second return value
// reports whether the date has been processed.
func (s *Store) GetDaily(ctx context.Context, date time.Time) (botlog.DailySummary, bool, error) {
	if s == nil || s.pool == nil {
		return botlog.DailySummary{}, false, fmt.Errorf("summary store is not configured")
	}
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE summary_date = $1`, s.table)
	var payload []byte
	err := s.pool.QueryRow(ctx, query, date.Format(botlog.DateLayout)).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return botlog.DailySummary{}, false, nil
		}
		return botlog.DailySummary{}, false, fmt.Errorf("query summary: %w", err)
	}
	var summary botlog.DailySummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return botlog.DailySummary{}, false, fmt.Errorf("unmarshal summary: %w", err)
	}
	return summary, true, nil
}

// ListDates returns every processed date, ascending.
func (s *Store) ListDates(ctx context.Context) ([]time.Time, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("summary store is not configured")
	}
	query := fmt.Sprintf(`SELECT summary_date FROM %s ORDER BY summary_date`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		date, err := time.ParseInLocation(botlog.DateLayout, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", raw, err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dates: %w", err)
	}
	return dates, nil
}
