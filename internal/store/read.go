package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/querysql"
)

var compiler = querysql.NewCompiler(querysql.SQLite)

// Get returns the event with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (event.Event, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+querysql.Columns+` FROM events WHERE id = ?`, id)
	e, err := ScanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, ErrNotFound
	}
	if err != nil {
		return event.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// FindByToggleKey returns the most recently inserted event occupying key.
func (s *Store) FindByToggleKey(ctx context.Context, key string) (event.Event, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+querysql.Columns+`
		FROM events
		WHERE toggle_key = ?
		ORDER BY seq DESC
		LIMIT 1
	`, key)
	return scanOptional(row, "find by toggle key")
}

// LatestFollowBy returns the most recently inserted Follow event by author.
func (s *Store) LatestFollowBy(ctx context.Context, author string) (event.Event, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+querysql.Columns+`
		FROM events
		WHERE author = ? AND kind = ?
		ORDER BY seq DESC
		LIMIT 1
	`, author, event.KindFollow)
	return scanOptional(row, "latest follow")
}

// HasUnfollowed reports whether author has an unfollow on record.
func (s *Store) HasUnfollowed(ctx context.Context, author string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM unfollows WHERE author = ?`, author).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check unfollow: %w", err)
	}
	return n > 0, nil
}

// FollowerAuthors returns the distinct authors of Follow events other than
// hubID, most recently active first.
func (s *Store) FollowerAuthors(ctx context.Context, hubID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT author
		FROM events
		WHERE kind = ? AND author != ?
		GROUP BY author
		ORDER BY MAX(seq) DESC
	`, event.KindFollow, hubID)
	if err != nil {
		return nil, fmt.Errorf("query followers: %w", err)
	}
	defer rows.Close()

	authors := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("scan follower: %w", err)
		}
		authors = append(authors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate followers: %w", err)
	}
	return authors, nil
}

// LastTimestamp returns the newest stored timestamp, or 0 when empty.
func (s *Store) LastTimestamp(ctx context.Context) (int64, error) {
	var ts int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(timestamp), 0) FROM events`).Scan(&ts); err != nil {
		return 0, fmt.Errorf("last timestamp: %w", err)
	}
	return ts, nil
}

// Count returns the number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Candidates returns the events the column predicates of fs admit, in
// result order. When the compiled query is not exact the caller must still
// run filter.Evaluate over the result.
func (s *Store) Candidates(ctx context.Context, fs filter.FilterSet, lim filter.Limits) ([]event.Event, error) {
	q := compiler.Compile(fs, lim)
	rows, err := s.db.QueryContext(ctx, q.SQL, q.Params...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	// Return empty slice instead of nil
	events := []event.Event{}
	for rows.Next() {
		e, err := ScanEvent(rows)
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
func (s *Store) All(ctx context.Context) ([]event.Event, error) {
	return s.Candidates(ctx, nil, filter.Limits{})
}

func scanOptional(row *sql.Row, op string) (event.Event, bool, error) {
	e, err := ScanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, false, nil
	}
	if err != nil {
		return event.Event{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return e, true, nil
}
