// Package tasks implements the cross-catalog synchronization engine with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface defines three operations:
//
//  1. [SyncEngine.Run] : Full source → target sync of the selected resource types
//     - Validates the selection and the privileged marker-store precondition up front
//     - Executes one handler per resource type in a fixed order: collections,
//     posters, markers, then the user-specific history and playlists, which
//     reuse the identity cache warmed by the earlier handlers
//     - Returns per-type touched ids and per-entity skips; a hard error halts
//     remaining handlers but already-applied writes stand
//
//  2. [SyncEngine.Diff] : Compare container state across catalogs
//     - Reports matched, missing, and extra collections and playlists
//     - Mutates nothing; useful as a dry-run preview
//
//  3. [SyncEngine.Snapshot] : Fetch one side's full catalog state
//     - Libraries, items, collections, playlists with per-endpoint error collection
//
// # Identity Resolution
//
// The two catalogs share no primary key. The [Resolver] establishes
// correspondence per entity: identifier (GUID) intersection first, exact
// normalized-title equality as the documented fallback, first match wins.
// A miss is NotFound, never an error; callers skip the entity. Resolutions
// are memoized for the run under the entity's identifier set (or title).
//
// # Request Cache
//
// Every read funnels through the run-scoped [RequestCache], keyed by
// (side, endpoint, parameters), so two handlers enumerating the same
// listing cost one network call. Entries are invalidated explicitly after
// deletes; failed calls are never memoized. Caches are owned by one run,
// never process-wide.
//
// # Reconciliation
//
// Collections and playlists converge by idempotent replace: delete every
// existing target container of the kind, then recreate from source state.
// Repeated runs therefore converge instead of duplicating, and renames
// leave no orphans. Watch history pushes one write per entity, with a
// whole-series shortcut for uniformly watched or unwatched shows. Intro
// markers update existing rows in the target's local store and never
// insert.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and
// optional data for advanced UI rendering. Updates use select with default
// to prevent blocking.
//
// # Implementation
//
// [CatalogEngine] implements [SyncEngine] with dependencies on:
//   - [services.Catalog] : source and target server clients
//   - [services.MarkerStore] : optional privileged store, only on the target host
package tasks
