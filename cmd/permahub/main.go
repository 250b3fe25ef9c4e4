// Command permahub runs a personal event hub and talks to one.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dpshade/permahub/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
