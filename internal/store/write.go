package store

import (
	"context"
	"fmt"

	"github.com/dpshade/permahub/internal/event"
)

// Insert stores e. A duplicate id is silently ignored so a retried
// insert is harmless.
func (s *Store) Insert(ctx context.Context, e event.Event) error {
	tags, err := MarshalTags(e.Tags)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, author, kind, content, tags, timestamp, e, p, marker, original_id, toggle_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.From,
		e.Kind,
		e.Content,
		tags,
		e.Timestamp,
		e.E,
		e.P,
		e.Marker,
		e.OriginalID,
		e.ToggleKey(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Delete removes the event with the given id. Deleting a missing id is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Unfollow removes every Follow event authored by author and records
// that author has unfollowed, in one transaction. It returns how many
// Follow events were removed.
func (s *Store) Unfollow(ctx context.Context, author string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("unfollow: %w", err)
	}
	defer tx.Rollback() // no-op once committed

	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE author = ? AND kind = ?`, author, event.KindFollow)
	if err != nil {
		return 0, fmt.Errorf("delete follows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete follows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO unfollows (author) VALUES (?) ON CONFLICT(author) DO NOTHING`, author); err != nil {
		return 0, fmt.Errorf("record unfollow: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("unfollow: %w", err)
	}
	return n, nil
}

// ClearUnfollow forgets a recorded unfollow by author. Clearing an author
// with no record is not an error.
func (s *Store) ClearUnfollow(ctx context.Context, author string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM unfollows WHERE author = ?`, author); err != nil {
		return fmt.Errorf("clear unfollow: %w", err)
	}
	return nil
}
