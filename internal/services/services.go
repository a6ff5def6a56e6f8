// package services defines interface Catalog for interacting with media server HTTP APIs
package services

import (
	"context"

	"github.com/desertthunder/plexsync/internal/models"
)

// AssetKind selects which binary asset of an entity an upload targets.
type AssetKind string

const (
	PosterAsset AssetKind = "poster"
	ArtAsset    AssetKind = "art"
)

// ItemFilter narrows a library item listing.
type ItemFilter struct {
	Type         models.EntityType // optional content sub-type (e.g. episode within a show library)
	IncludeGUIDs bool              // ask the server to attach cross-catalog identifiers
}

// Catalog defines the operations the sync engine needs from one media server
// side. Both the source and the target of a run implement it; all entity
// identifiers that cross this interface are catalog-local rating keys.
type Catalog interface {
	// Name returns the configured display name for this catalog side.
	Name() string

	// Libraries lists the catalog's library partitions.
	Libraries(ctx context.Context) ([]models.Library, error)

	// Items lists the entities of one library, optionally filtered.
	Items(ctx context.Context, libraryKey string, filter ItemFilter) ([]models.Entity, error)

	// Item fetches one entity's detail view, including markers and
	// identifiers when the server can supply them.
	Item(ctx context.Context, ratingKey string) (*models.Entity, error)

	// Children lists the direct children of an entity (seasons of a show,
	// episodes of a season, albums of an artist).
	Children(ctx context.Context, ratingKey string) ([]models.Entity, error)

	// Leaves lists every leaf entity under a show or artist (all episodes,
	// all tracks) in one call.
	Leaves(ctx context.Context, ratingKey string) ([]models.Entity, error)

	// Collections lists the collections of one library.
	Collections(ctx context.Context, libraryKey string) ([]models.Container, error)

	// CollectionItems lists the member entities of a collection.
	CollectionItems(ctx context.Context, ratingKey string) ([]models.Entity, error)

	// CreateCollection creates a collection in a library with the given
	// members and returns its new rating key.
	CreateCollection(ctx context.Context, libraryKey, title string, itemKeys []string) (string, error)

	// DeleteCollection removes a collection.
	DeleteCollection(ctx context.Context, ratingKey string) error

	// Playlists lists the playlists owned by the catalog's credential holder.
	Playlists(ctx context.Context) ([]models.Container, error)

	// PlaylistItems lists the member entities of a playlist.
	PlaylistItems(ctx context.Context, ratingKey string) ([]models.Entity, error)

	// CreatePlaylist creates a playlist with the given members and returns
	// its new rating key.
	CreatePlaylist(ctx context.Context, title string, itemKeys []string) (string, error)

	// DeletePlaylist removes a playlist.
	DeletePlaylist(ctx context.Context, ratingKey string) error

	// UpdateAttributes writes non-identity attributes (summary, sort title,
	// content rating) of an entity or container.
	UpdateAttributes(ctx context.Context, ratingKey string, attrs map[string]string) error

	// UploadAsset uploads a poster or background image for an entity.
	UploadAsset(ctx context.Context, ratingKey string, kind AssetKind, data []byte) error

	// AssetBytes downloads a server-relative asset path (thumb/art reference).
	AssetBytes(ctx context.Context, path string) ([]byte, error)

	// MarkWatched records a full watch of the entity for the catalog's
	// credential holder.
	MarkWatched(ctx context.Context, ratingKey string) error

	// MarkUnwatched clears the watched state of the entity.
	MarkUnwatched(ctx context.Context, ratingKey string) error

	// SetProgress records a partial-watch resume offset in milliseconds.
	SetProgress(ctx context.Context, ratingKey string, offset int64) error

	// Users lists the accounts known to this catalog.
	Users(ctx context.Context) ([]models.User, error)

	// WithToken returns a view of the same catalog authenticated as a
	// different user. Watched-state and playlist operations on the returned
	// catalog act as that user.
	WithToken(token string) Catalog
}

// MarkerStore is the privileged escape hatch for the intro-marker resource
// type: direct statements against the target server's local metadata store.
// It is injected only when the process runs on the target host with access
// to that store; everywhere else it is nil and the markers resource type is
// rejected before any entity is processed.
type MarkerStore interface {
	// Exec runs one statement and returns the number of affected rows.
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)

	// Close releases the underlying store handle.
	Close() error
}
