// Package repositories implements SQLite persistence for the run-history database.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
//
// Key Implementations:
//   - [RunRepository] : Sync run history with per-resource touched/skipped counters
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
