package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/httpwatchdog/internal/domain"
	"github.com/hamed0406/httpwatchdog/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

// Store persists probe history and alert state. The live status table stays
// in memory; this is an optional sink next to it.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS results (
  id          BIGSERIAL PRIMARY KEY,
  entry_key   TEXT NOT NULL,
  url         TEXT NOT NULL,
  up          BOOLEAN NOT NULL,
  verdict     TEXT NOT NULL,
  http_status INTEGER NULL,
  latency_ms  DOUBLE PRECISION NOT NULL,
  reason      TEXT NOT NULL,
  checked_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_entry_time ON results (entry_key, checked_at DESC);

CREATE TABLE IF NOT EXISTS alerts (
  entry_key    TEXT PRIMARY KEY,
  last_state   BOOLEAN NOT NULL,
  last_sent_at TIMESTAMPTZ NULL
);
`

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Debug("schema_ready")
	return nil
}

// ---- ResultStore ----

func (s *Store) Append(ctx context.Context, cr *domain.CheckResult) error {
	if cr.CheckedAt.IsZero() {
		cr.CheckedAt = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO results
		   (entry_key, url, up, verdict, http_status, latency_ms, reason, checked_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		cr.EntryKey, cr.URL, cr.Up, cr.Verdict, cr.HTTPStatus, cr.LatencyMS, cr.Reason, cr.CheckedAt,
	).Scan(&cr.ID)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// Recent returns the newest results for one entry, newest first.
func (s *Store) Recent(ctx context.Context, entryKey string, limit int) ([]domain.CheckResult, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, entry_key, url, up, verdict, http_status, latency_ms, reason, checked_at
  FROM results
 WHERE entry_key = $1
 ORDER BY checked_at DESC, id DESC
 LIMIT $2`, entryKey, limit)
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckResult
	for rows.Next() {
		var r domain.CheckResult
		if err := rows.Scan(&r.ID, &r.EntryKey, &r.URL, &r.Up, &r.Verdict, &r.HTTPStatus, &r.LatencyMS, &r.Reason, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
