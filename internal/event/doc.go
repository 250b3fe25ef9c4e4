// Package event defines the hub's stored record and its wire encodings.
//
// Event is the one canonical in-memory representation. Every boundary
// (publish payloads, query results, the flattened legacy shape) translates
// into and out of it here, so nothing else in the module deals with field
// casing or tag shapes.
//
// Key constraints:
//   - An empty string means "absent" for every optional field
//   - Ids and timestamps are assigned by the acceptance engine, never by callers
//   - Field lookups go through an explicit table and fail closed on unknown keys
package event
