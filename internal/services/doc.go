// Package services defines the [Catalog] interface for media server catalogs and implements it for Plex-style servers.
//
// # Catalog Interface
//
// Both sides of a sync run implement the same abstraction, so every engine
// operation works uniformly whichever direction the run points.
//
// # Plex Implementation
//
// [PlexCatalog] talks to one server over its HTTP API with token
// authentication (X-Plex-Token header) and Accept: application/json.
//
// Every request passes through a shared rate limiter ([rate.Limiter]) and a
// configurable per-call timeout, since full library scans against remote
// servers are the dominant latency source of a run.
//
// [PlexCatalog.WithToken] produces a user-scoped view of the same server for
// watched-state and playlist operations; the clone shares the limiter so the
// per-server request budget holds across users.
//
// # Privileged Marker Store
//
// The HTTP API in scope exposes no marker mutation, so the intro-marker
// resource type writes directly into the target's local metadata database
// through the [MarkerStore] interface. [SQLiteMarkerStore] implements it and
// is injected only when the process runs where that database is reachable;
// everywhere else the markers resource type fails before touching anything.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrAPIRequest] : HTTP request failed or returned a non-2xx status
//   - [shared.ErrEntityNotFound] : rating key unknown to the server
//   - [shared.ErrMarkerStore] : privileged store missing or unreadable
package services
