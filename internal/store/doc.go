// Package store provides SQLite-backed storage for the hub's event
// collection.
//
// The collection is a mutable set, not an append-only log: toggles and
// unfollows delete rows. Only the acceptance engine writes; readers run
// concurrently under WAL.
//
// # Ordering
//
// Query results use ORDER BY timestamp DESC, id ASC COLLATE BINARY, the
// same order filter.Compare defines. Follow-graph scans use seq, the
// insertion order.
//
// # Toggle keys
//
// Every row stores event.ToggleKey() so toggle lookups are a single
// indexed equality match.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - one open connection, so writes never contend
package store
