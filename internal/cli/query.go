package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpshade/permahub/internal/client"
	"github.com/dpshade/permahub/internal/event"
	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/results"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	clientFlags

	File   string
	Legacy bool

	IDs     []string
	Authors []string
	Kinds   []string
	Since   int64
	Until   int64
	Tags    []string // name=value
	Search  string
	Limit   int

	Sort      bool
	PageLimit int
	Metadata  bool
}

// QueryResult is the query command's output.
type QueryResult struct {
	Status    client.Status      `json:"status"`
	Filters   filter.FilterSet   `json:"filters"`
	Page      results.Result     `json:"page"`
	Telemetry *results.Telemetry `json:"telemetry,omitempty"`
	Warning   string             `json:"warning,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Query a hub",
		Long: `Query a hub with a filter set.

Filters come from flags (one clause), from a JSONC file (--file), or
from free text, which is turned into an id lookup, a category lookup or
a tag search.

When the hub is unreachable, previously cached events answer the query
and the status is "fallback".

Exit codes:
  0 - Query answered (by the hub or the cache)
  1 - Hub unreachable and nothing cached
  2 - Invalid filters

Examples:
  permahub query --kinds 1 --authors <id> --limit 20
  permahub query --file filters.jsonc --sort --page-limit 10
  permahub query --file old.json --legacy
  permahub query "my preferences"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args, cmd)
		},
	}

	opts.clientFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "JSONC filter set file")
	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "file holds legacy single-valued filters to merge")
	cmd.Flags().StringSliceVar(&opts.IDs, "ids", nil, "event ids")
	cmd.Flags().StringSliceVar(&opts.Authors, "authors", nil, "author identities")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kinds", nil, "event kinds")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only events after this timestamp")
	cmd.Flags().Int64Var(&opts.Until, "until", 0, "only events before this timestamp")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "tag as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Search, "search", "", "case-insensitive substring of a tag value")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum events from the hub")
	cmd.Flags().BoolVar(&opts.Sort, "sort", true, "sort newest first")
	cmd.Flags().IntVar(&opts.PageLimit, "page-limit", 0, "truncate the page and report hasMore")
	cmd.Flags().BoolVar(&opts.Metadata, "metadata", false, "include the timestamp range")
	cmd.MarkFlagsMutuallyExclusive("file", "ids")
	cmd.MarkFlagsMutuallyExclusive("file", "authors")
	cmd.MarkFlagsMutuallyExclusive("file", "search")

	return cmd
}

// flagFilter builds the one-clause filter set the flags describe.
func (opts *QueryOptions) flagFilter(cmd *cobra.Command) (filter.FilterSet, error) {
	f := filter.Filter{
		IDs:     opts.IDs,
		Authors: opts.Authors,
		Kinds:   opts.Kinds,
		Search:  opts.Search,
		Limit:   opts.Limit,
	}
	if cmd.Flags().Changed("since") {
		f.Since = filter.Int64(opts.Since)
	}
	if cmd.Flags().Changed("until") {
		f.Until = filter.Int64(opts.Until)
	}
	for _, raw := range opts.Tags {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("tag %q: want name=value", raw)
		}
		if f.Tags == nil {
			f.Tags = make(map[string][]string)
		}
		f.Tags[name] = append(f.Tags[name], value)
	}
	return filter.FilterSet{f}, nil
}

func (opts *QueryOptions) pageOptions() results.Options {
	return results.Options{Sort: opts.Sort, Limit: opts.PageLimit, IncludeMetadata: opts.Metadata}
}

func runQuery(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	var fs filter.FilterSet
	var err error
	switch {
	case len(args) == 1 && opts.File != "":
		return f.Fail(ExitCommandError, CodeInvalidInput, "give either query text or --file, not both", nil)
	case opts.File != "":
		fs, err = readFilterFile(opts.File, opts.Legacy)
	case len(args) == 0:
		fs, err = opts.flagFilter(cmd)
	}
	if err != nil {
		if filter.IsValidation(err) {
			return f.Fail(ExitCommandError, CodeInvalidFilter, err.Error(), nil)
		}
		return f.Fail(ExitCommandError, CodeInvalidInput, err.Error(), nil)
	}

	s, err := opts.connect(cmd, opts.clientFlags)
	if err != nil {
		return err
	}

	var out QueryResult
	var r client.Result
	if len(args) == 1 {
		intent := client.Intent{Query: args[0], Kinds: opts.Kinds, Limit: opts.Limit}
		sr := s.client.Search(cmd.Context(), intent, opts.pageOptions())
		r = sr.Result
		out = QueryResult{Status: r.Status, Filters: r.Attempted, Page: sr.Page, Telemetry: &sr.Telemetry}
	} else {
		r = s.client.Fetch(cmd.Context(), fs)
		out = QueryResult{Status: r.Status, Filters: r.Attempted, Page: results.Process(r.Events, opts.pageOptions())}
	}

	switch r.Status {
	case client.StatusInvalid:
		return f.Fail(ExitCommandError, CodeInvalidFilter, r.Err.Error(), r.Attempted)
	case client.StatusUnconfirmed:
		return f.Fail(ExitFailure, CodeUnconfirmed, r.Err.Error(), r.Attempted)
	case client.StatusFallback:
		out.Warning = fmt.Sprintf("hub unreachable, answered from cache: %v", r.Err)
	}

	return f.Emit(out, func(w io.Writer) {
		if out.Warning != "" {
			fmt.Fprintf(w, "! %s\n", out.Warning)
		}
		writeEvents(w, out.Page.Events)
		more := ""
		if out.Page.HasMore {
			more = ", more available"
		}
		fmt.Fprintf(w, "%d of %d event(s)%s\n", len(out.Page.Events), out.Page.TotalCount, more)
		if out.Page.Metadata && len(out.Page.Events) > 0 {
			fmt.Fprintf(w, "range: %d .. %d\n", out.Page.OldestTimestamp, out.Page.NewestTimestamp)
		}
	})
}

// writeEvents prints one line per event.
func writeEvents(w io.Writer, events []event.Event) {
	for _, e := range events {
		fmt.Fprintf(w, "%s  %d  kind=%s  from=%s", e.ID, e.Timestamp, e.Kind, e.From)
		if e.Content != "" {
			fmt.Fprintf(w, "  %q", e.Content)
		}
		fmt.Fprintln(w)
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one event by id",
		Long: `Fetch one event by id.

Exit codes:
  0 - Event found
  1 - Not found, or the hub is unreachable and the cache cannot answer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, *flags, args[0], cmd)
		},
	}
	flags.register(cmd)
	return cmd
}

func runGet(opts *RootOptions, flags clientFlags, id string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	s, err := opts.connect(cmd, flags)
	if err != nil {
		return err
	}

	e, err := s.client.Get(cmd.Context(), id)
	var unconfirmed *client.UnconfirmedError
	switch {
	case errors.Is(err, client.ErrNotFound):
		return f.Fail(ExitFailure, CodeNotFound, err.Error(), nil)
	case errors.As(err, &unconfirmed):
		return f.Fail(ExitFailure, CodeUnconfirmed, err.Error(), nil)
	case filter.IsValidation(err):
		return f.Fail(ExitCommandError, CodeInvalidFilter, err.Error(), nil)
	case err != nil:
		return f.Fail(ExitFailure, CodeTransport, err.Error(), nil)
	}

	return f.Emit(e, func(w io.Writer) {
		writeEvents(w, []event.Event{e})
		for _, t := range e.Tags {
			fmt.Fprintf(w, "  %s=%s\n", t.Name, t.Value)
		}
	})
}
