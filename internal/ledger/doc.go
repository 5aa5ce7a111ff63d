// Package ledger keeps a history of sweep passes in SQLite.
//
// Each pass that discovered at least one file becomes one row. The ledger is
// operator tooling only: the daemon keeps sweeping when it cannot be opened
// or written. When changing the row layout, update schema.sql and bump
// schemaVersion.
package ledger
