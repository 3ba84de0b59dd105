// Package store records conformance runs in SQLite.
//
// A run is one execution of a suite against one base URL. Each verdict is
// one classified response. Verdict ids are content-addressed (see
// canon.VerdictID) so recording the same run twice is a no-op.
//
// All reads order by seq ASC, id COLLATE BINARY ASC. Wall-clock columns are
// informational only.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package store
