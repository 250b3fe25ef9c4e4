package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dpshade/permahub/internal/harness"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Legacy bool
}

// FileResult is the validation outcome for one file.
type FileResult struct {
	Path  string `json:"path"`
	Type  string `json:"type"` // filters | scenario
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateResult is the validate command's output.
type ValidateResult struct {
	Files   []FileResult `json:"files"`
	Valid   int          `json:"valid"`
	Invalid int          `json:"invalid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check filter files and scenarios",
		Long: `Check files without contacting a hub.

.json and .jsonc files are filter sets and are checked against the
filter schema. .yaml and .yml files are harness scenarios.

Exit codes:
  0 - All files valid
  2 - One or more files invalid

Examples:
  permahub validate filters.jsonc
  permahub validate --legacy old-filters.json
  permahub validate scenarios/*.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "filter files hold legacy single-valued filters")

	return cmd
}

func validateFile(path string, legacy bool) FileResult {
	var err error
	r := FileResult{Path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		r.Type = "scenario"
		_, err = harness.LoadScenario(path)
	case ".json", ".jsonc":
		r.Type = "filters"
		_, err = readFilterFile(path, legacy)
	default:
		r.Error = "unknown file type (want .json, .jsonc, .yaml or .yml)"
		return r
	}
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Valid = true
	return r
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	result := ValidateResult{Files: make([]FileResult, 0, len(paths))}
	for _, path := range paths {
		r := validateFile(path, opts.Legacy)
		result.Files = append(result.Files, r)
		if r.Valid {
			result.Valid++
		} else {
			result.Invalid++
		}
		f.VerboseLog("checked %s (%s)", path, r.Type)
	}

	if result.Invalid > 0 {
		if !f.JSON() {
			writeValidateText(f.Writer, result)
		}
		return f.Fail(ExitCommandError, CodeInvalidFilter,
			fmt.Sprintf("%d of %d file(s) invalid", result.Invalid, len(paths)), result)
	}

	return f.Emit(result, func(w io.Writer) {
		writeValidateText(w, result)
	})
}

func writeValidateText(w io.Writer, result ValidateResult) {
	for _, r := range result.Files {
		if r.Valid {
			fmt.Fprintf(w, "✓ %s\n", r.Path)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", r.Path)
		for _, line := range strings.Split(r.Error, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}
