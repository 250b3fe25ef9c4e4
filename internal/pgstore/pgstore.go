// Package pgstore is a PostgreSQL-backed hub event collection with the
// same contract as package store.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/querysql"
	"github.com/dpshade/permahub/internal/store"
)

var compiler = querysql.NewCompiler(querysql.Postgres)

// PgStore is a PostgreSQL event collection.
type PgStore struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for dsn, pings it and ensures the schema exists.
func Connect(ctx context.Context, dsn string) (*PgStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := New(pool)
	if err := s.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Close releases the pool.
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping reports whether the database is reachable.
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureTable creates the events table and indexes if they don't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			seq         BIGSERIAL PRIMARY KEY,
			id          TEXT   NOT NULL UNIQUE,
			author      TEXT   NOT NULL,
			kind        TEXT   NOT NULL,
			content     TEXT   NOT NULL DEFAULT '',
			tags        TEXT   NOT NULL DEFAULT '[]',
			timestamp   BIGINT NOT NULL,
			e           TEXT   NOT NULL DEFAULT '',
			p           TEXT   NOT NULL DEFAULT '',
			marker      TEXT   NOT NULL DEFAULT '',
			original_id TEXT   NOT NULL DEFAULT '',
			toggle_key  TEXT   NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp DESC, id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_author_kind ON events(author, kind, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_events_toggle_key ON events(toggle_key)`,
		`CREATE TABLE IF NOT EXISTS unfollows (author TEXT PRIMARY KEY)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure events table: %w", err)
		}
	}
	return nil
}

// Insert stores e; a duplicate id is ignored.
func (s *PgStore) Insert(ctx context.Context, e event.Event) error {
	tags, err := store.MarshalTags(e.Tags)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO events (id, author, kind, content, tags, timestamp, e, p, marker, original_id, toggle_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.From, e.Kind, e.Content, tags, e.Timestamp, e.E, e.P, e.Marker, e.OriginalID, e.ToggleKey())
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Delete removes an event by id.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Unfollow removes every Follow event by author and records the
// unfollow in one transaction.
func (s *PgStore) Unfollow(ctx context.Context, author string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("unfollow: %w", err)
	}
	defer tx.Rollback(ctx) // no-op once committed

	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE author = $1 AND kind = $2`, author, event.KindFollow)
	if err != nil {
		return 0, fmt.Errorf("delete follows: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO unfollows (author) VALUES ($1) ON CONFLICT (author) DO NOTHING`, author); err != nil {
		return 0, fmt.Errorf("record unfollow: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("unfollow: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClearUnfollow forgets a recorded unfollow by author.
func (s *PgStore) ClearUnfollow(ctx context.Context, author string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM unfollows WHERE author = $1`, author); err != nil {
		return fmt.Errorf("clear unfollow: %w", err)
	}
	return nil
}

// HasUnfollowed reports whether author has an unfollow on record.
func (s *PgStore) HasUnfollowed(ctx context.Context, author string) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM unfollows WHERE author = $1)`, author).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("check unfollow: %w", err)
	}
	return found, nil
}

// Get returns one event or store.ErrNotFound.
func (s *PgStore) Get(ctx context.Context, id string) (event.Event, error) {
	e, ok, err := s.scanOne(ctx, "get event", `SELECT `+querysql.Columns+` FROM events WHERE id = $1`, id)
	if err != nil {
		return event.Event{}, err
	}
	if !ok {
		return event.Event{}, store.ErrNotFound
	}
	return e, nil
}

// FindByToggleKey returns the most recent event occupying key.
func (s *PgStore) FindByToggleKey(ctx context.Context, key string) (event.Event, bool, error) {
	return s.scanOne(ctx, "find by toggle key", `
		SELECT `+querysql.Columns+` FROM events
		WHERE toggle_key = $1 ORDER BY seq DESC LIMIT 1`, key)
}

// LatestFollowBy returns author's most recent Follow event.
func (s *PgStore) LatestFollowBy(ctx context.Context, author string) (event.Event, bool, error) {
	return s.scanOne(ctx, "latest follow", `
		SELECT `+querysql.Columns+` FROM events
		WHERE author = $1 AND kind = $2 ORDER BY seq DESC LIMIT 1`, author, event.KindFollow)
}

// FollowerAuthors returns distinct non-hub Follow authors, most recent first.
func (s *PgStore) FollowerAuthors(ctx context.Context, hubID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT author FROM events
		WHERE kind = $1 AND author <> $2
		GROUP BY author
		ORDER BY MAX(seq) DESC`, event.KindFollow, hubID)
	if err != nil {
		return nil, fmt.Errorf("query followers: %w", err)
	}
	authors, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect followers: %w", err)
	}
	if authors == nil {
		authors = []string{}
	}
	return authors, nil
}

// LastTimestamp returns the newest timestamp, or 0.
func (s *PgStore) LastTimestamp(ctx context.Context) (int64, error) {
	var ts int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(timestamp), 0) FROM events`).Scan(&ts); err != nil {
		return 0, fmt.Errorf("last timestamp: %w", err)
	}
	return ts, nil
}

// Count returns the number of stored events.
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Candidates returns the column-level candidates for fs in result order.
func (s *PgStore) Candidates(ctx context.Context, fs filter.FilterSet, lim filter.Limits) ([]event.Event, error) {
	q := compiler.Compile(fs, lim)
	rows, err := s.pool.Query(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		e, err := store.ScanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return events, nil
}

// All returns every stored event in result order.
func (s *PgStore) All(ctx context.Context) ([]event.Event, error) {
	return s.Candidates(ctx, nil, filter.Limits{})
}

func (s *PgStore) scanOne(ctx context.Context, op, sql string, args ...any) (event.Event, bool, error) {
	e, err := store.ScanEvent(s.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return event.Event{}, false, nil
	}
	if err != nil {
		return event.Event{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return e, true, nil
}
