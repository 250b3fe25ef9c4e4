// Package filter implements the VIP-01 filter protocol: Filter clauses,
// FilterSets and the one evaluator shared by the hub and the client
// fallback path.
//
// EVALUATION:
//
// A FilterSet narrows sequentially. The output of clause i is the input of
// clause i+1, so clauses AND together while the lists inside one clause OR.
// After the last clause the survivors are sorted newest first (ties by id
// ascending) and truncated to the effective limit.
//
//	[events] → clause 0 → clause 1 → ... → sort → limit
//
// Both execution contexts call Evaluate. There is no second copy of the
// matching rules anywhere in the module; querysql only narrows candidates
// before Evaluate runs.
//
// ABSENT VS EMPTY:
//
// A nil list, nil map, nil bound, empty search or zero limit is absent and
// does not constrain. A present but empty list matches nothing.
//
// VALIDATION:
//
// Raw JSON is checked against an embedded CUE schema (filter.cue) before it
// is decoded, then Validate applies the range rules. Invalid filters are
// rejected whole.
package filter
