package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dpshade/permahub/internal/config"
	"github.com/dpshade/permahub/internal/wallet"
)

// KeygenOptions holds flags for the keygen command.
type KeygenOptions struct {
	*RootOptions
	Out   string
	Force bool
}

// KeygenResult is the keygen command's output.
type KeygenResult struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeygenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an identity key",
		Long: `Generate an Ed25519 key and write it as a JSON key file.

The identity printed is the hub or client id other peers address.
An existing file is kept unless --force is given.

Examples:
  permahub keygen
  permahub keygen --out hub-key.json --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "key file to write (default hub.key_file)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing key file")

	return cmd
}

func runKeygen(opts *KeygenOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	path := opts.Out
	if path == "" {
		loader, err := opts.loadConfig(opts.newLogger(config.LogConfig{}, cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		path = loader.Config().Hub.KeyFile
	}

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return f.Fail(ExitCommandError, CodeKey, fmt.Sprintf("key file %s already exists (use --force to replace)", path), nil)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return f.Fail(ExitCommandError, CodeKey, err.Error(), nil)
	}

	w, err := wallet.Generate()
	if err != nil {
		return f.Fail(ExitCommandError, CodeKey, err.Error(), nil)
	}
	if err := w.Save(path); err != nil {
		return f.Fail(ExitCommandError, CodeKey, err.Error(), nil)
	}
	f.VerboseLog("wrote %s", path)

	result := KeygenResult{ID: w.ID(), Path: path}
	return f.Emit(result, func(out io.Writer) {
		fmt.Fprintf(out, "✓ %s\n", result.ID)
		fmt.Fprintf(out, "  key file: %s\n", result.Path)
	})
}
