package results

import "github.com/dpshade/permahub/internal/filter"

// Classification labels a filter for query telemetry.
type Classification string

const (
	DirectLookup Classification = "direct_lookup"
	AuthorLookup Classification = "author_lookup"
	KindLookup   Classification = "kind_lookup"
	TextSearch   Classification = "text_search"
	Complex      Classification = "complex"
)

// Classify returns the first matching label in priority order: any ids,
// exactly one author, exactly one kind, a search string, else complex.
func Classify(f filter.Filter) Classification {
	switch {
	case len(f.IDs) > 0:
		return DirectLookup
	case len(f.Authors) == 1:
		return AuthorLookup
	case len(f.Kinds) == 1:
		return KindLookup
	case f.Search != "":
		return TextSearch
	default:
		return Complex
	}
}

// ClassifySet classifies a set by its first clause. Multi-clause sets
// are complex.
func ClassifySet(fs filter.FilterSet) Classification {
	if len(fs) != 1 {
		return Complex
	}
	return Classify(fs[0])
}

// Efficiency is the share of candidates the filter removed:
// (original-final)/original, or 0 when original is 0.
func Efficiency(original, final int) float64 {
	if original == 0 {
		return 0
	}
	return float64(original-final) / float64(original)
}

// Telemetry describes one query.
type Telemetry struct {
	Classification Classification `json:"classification"`
	Efficiency     float64        `json:"efficiency"`
}

// Analyze combines Classify and Efficiency.
func Analyze(f filter.Filter, original, final int) Telemetry {
	return Telemetry{Classification: Classify(f), Efficiency: Efficiency(original, final)}
}
