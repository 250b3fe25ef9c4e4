package store

import (
	"encoding/json"
	"fmt"

	"github.com/dpshade/permahub/internal/event"
)

// MarshalTags encodes tags as a JSON array of [name, value] pairs.
func MarshalTags(tags []event.Tag) (string, error) {
	pairs := make([][2]string, len(tags))
	for i, t := range tags {
		pairs[i] = [2]string{t.Name, t.Value}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

// UnmarshalTags decodes the column written by MarshalTags.
func UnmarshalTags(data string) ([]event.Tag, error) {
	if data == "" {
		return nil, nil
	}
	var pairs [][2]string
	if err := json.Unmarshal([]byte(data), &pairs); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	tags := make([]event.Tag, len(pairs))
	for i, p := range pairs {
		tags[i] = event.Tag{Name: p[0], Value: p[1]}
	}
	return tags, nil
}

// Scanner is satisfied by *sql.Row, *sql.Rows and pgx.Row.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanEvent reads one row selected with querysql.Columns.
func ScanEvent(row Scanner) (event.Event, error) {
	var e event.Event
	var tags string
	if err := row.Scan(&e.ID, &e.From, &e.Kind, &e.Content, &tags, &e.Timestamp, &e.E, &e.P, &e.Marker, &e.OriginalID); err != nil {
		return event.Event{}, err
	}
	parsed, err := UnmarshalTags(tags)
	if err != nil {
		return event.Event{}, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.Tags = parsed
	return e, nil
}
