package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show a hub's follow graph",
		Long: `Show who the hub follows and who follows it.

Examples:
  permahub graph
  permahub graph --hub-url http://peer:8080 --hub-id <id> --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			s, err := rootOpts.connect(cmd, *flags)
			if err != nil {
				return err
			}
			g, err := s.client.Graph(cmd.Context())
			if err != nil {
				return f.Fail(ExitFailure, CodeTransport, err.Error(), nil)
			}
			return f.Emit(g, func(w io.Writer) {
				fmt.Fprintf(w, "hub %s\n", g.ID)
				fmt.Fprintf(w, "following (%d)\n", len(g.FollowList))
				for _, id := range g.FollowList {
					fmt.Fprintf(w, "  %s\n", id)
				}
				fmt.Fprintf(w, "followers (%d)\n", len(g.Followers))
				for _, id := range g.Followers {
					fmt.Fprintf(w, "  %s\n", id)
				}
			})
		},
	}
	flags.register(cmd)
	return cmd
}
