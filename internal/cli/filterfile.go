package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/dpshade/permahub/internal/filter"
	"github.com/dpshade/permahub/internal/results"
)

// readFilterFile reads a JSONC filter file. Comments and trailing commas
// are stripped before the schema check, so the file may be documented.
//
// A legacy file holds single-valued filters (id, author, kind, ...) that
// are merged into one clause.
func readFilterFile(path string, legacy bool) (filter.FilterSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	stripped := jsonc.ToJSON(data)

	if legacy {
		return parseLegacy(stripped)
	}
	return filter.ParseFilterSet(stripped)
}

func parseLegacy(data []byte) (filter.FilterSet, error) {
	trimmed := bytes.TrimSpace(data)
	var list []results.LegacyFilter
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one results.LegacyFilter
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("parsing legacy filter: %w", err)
		}
		list = append(list, one)
	} else if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("parsing legacy filters: %w", err)
	}

	fs := filter.FilterSet{results.MergeLegacy(list)}
	if err := filter.Validate(fs); err != nil {
		return nil, err
	}
	return fs, nil
}
