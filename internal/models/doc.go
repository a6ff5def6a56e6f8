// Package models defines domain entities and persistence interfaces for the plexsync catalog mirroring tool.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing remote catalog data
//   - [Library] : A named, typed partition of a catalog (movie / show / music)
//   - [Entity] : Any synchronizable object (movie, show, season, episode, artist, album, track)
//   - [Container] : A named list of entity references (collection or playlist)
//   - [Marker] : A detected intro boundary on an episode
//   - [User] / [UserPair] : Catalog accounts matched by username across the two sides
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [SyncRun] : One synchronization run with per-resource-type counters
//
// Entities carry two kinds of identifiers. RatingKey is catalog-local and
// meaningless outside its own catalog. GUIDs are stable external references
// (tmdb://…, tvdb://…) and are the only reliable way to establish that two
// catalogs contain logically the same item; title equality within the same
// library type is the documented, weaker fallback.
//
// All persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
