package results

import (
	"slices"

	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
)

// Options controls Process.
type Options struct {
	// Sort re-sorts newest first. Idempotent on hub output.
	Sort bool
	// Limit truncates when positive.
	Limit int
	// IncludeMetadata fills the timestamp range of the returned events.
	IncludeMetadata bool
}

// Result is a post-processed page of events.
type Result struct {
	Events  []event.Event `json:"events"`
	HasMore bool          `json:"hasMore"`
	// TotalCount is the number of events before the limit was applied.
	TotalCount      int   `json:"totalCount"`
	NewestTimestamp int64 `json:"newestTimestamp,omitempty"`
	OldestTimestamp int64 `json:"oldestTimestamp,omitempty"`
	Metadata        bool  `json:"metadata"`
}

// Process applies opts to events. The input slice is not modified.
func Process(events []event.Event, opts Options) Result {
	out := slices.Clone(events)
	if out == nil {
		out = []event.Event{}
	}
	if opts.Sort {
		filter.Sort(out)
	}

	r := Result{TotalCount: len(out)}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
		r.HasMore = true
	}
	r.Events = out

	if opts.IncludeMetadata {
		r.Metadata = true
		for i, e := range out {
			if i == 0 || e.Timestamp > r.NewestTimestamp {
				r.NewestTimestamp = e.Timestamp
			}
			if i == 0 || e.Timestamp < r.OldestTimestamp {
				r.OldestTimestamp = e.Timestamp
			}
		}
	}
	return r
}
