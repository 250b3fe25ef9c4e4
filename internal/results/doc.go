// Package results post-processes query results on the client side.
//
// Process re-sorts with the evaluator's comparator, applies a client
// limit and reports hasMore and timestamp metadata. Classify, Efficiency
// and Analyze produce query telemetry. MergeLegacy folds older, looser
// filter objects into one canonical filter.Filter.
package results
