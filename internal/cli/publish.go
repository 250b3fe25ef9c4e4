package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpshade/permahub/internal/event"
)

// PublishOptions holds flags for the publish command.
type PublishOptions struct {
	*RootOptions
	clientFlags
	ID      string
	Kind    string
	Content string
	E       string
	P       []string
	Marker  string
	Tags    []string // name=value
}

// PublishResult is the publish command's output. The hub acknowledges
// receipt only, so there is no decision to report.
type PublishResult struct {
	Hub  string `json:"hub"`
	From string `json:"from"`
	Kind string `json:"kind"`
}

// NewPublishCommand creates the publish command.
func NewPublishCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PublishOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Send an event to a hub",
		Long: `Sign and send one event to the hub.

The hub replies with a receipt only. Whether the event was stored shows
up in later queries.

Examples:
  permahub publish --kind 1 --content "hello"
  permahub publish --kind 3 --p <hub-id>                 # follow a hub
  permahub publish --kind 7 --content + --e <id> --p <author>
  permahub publish --kind 1 --tag topic=go --tag lang=en --content notes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(opts, cmd)
		},
	}

	opts.clientFlags.register(cmd)
	cmd.Flags().StringVar(&opts.ID, "id", "", "event id (the hub assigns one when empty)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "event kind (required)")
	cmd.Flags().StringVar(&opts.Content, "content", "", "event content")
	cmd.Flags().StringVar(&opts.E, "e", "", "referenced event id")
	cmd.Flags().StringSliceVar(&opts.P, "p", nil, "participant identities")
	cmd.Flags().StringVar(&opts.Marker, "marker", "", "marker, e.g. reply")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "tag as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

// buildEvent turns publish flags into an event.
func (opts *PublishOptions) buildEvent() (event.Event, error) {
	e := event.Event{
		ID:      opts.ID,
		Kind:    opts.Kind,
		Content: opts.Content,
		E:       opts.E,
		Marker:  opts.Marker,
	}
	if len(opts.P) > 0 {
		p, err := json.Marshal(opts.P)
		if err != nil {
			return event.Event{}, err
		}
		e.P = string(p)
	}
	for _, raw := range opts.Tags {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return event.Event{}, fmt.Errorf("tag %q: want name=value", raw)
		}
		e.Tags = append(e.Tags, event.Tag{Name: name, Value: value})
	}
	return e, nil
}

func runPublish(opts *PublishOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	e, err := opts.buildEvent()
	if err != nil {
		return f.Fail(ExitCommandError, CodeInvalidInput, err.Error(), nil)
	}

	s, err := opts.connect(cmd, opts.clientFlags)
	if err != nil {
		return err
	}
	if err := s.client.Publish(cmd.Context(), e); err != nil {
		return f.Fail(ExitFailure, CodeTransport, err.Error(), nil)
	}

	result := PublishResult{Hub: s.cfg.Client.HubID, From: s.wallet.ID(), Kind: e.Kind}
	return f.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ kind %s sent as %s\n", result.Kind, result.From)
	})
}
