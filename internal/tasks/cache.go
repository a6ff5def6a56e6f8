package tasks

import (
	"context"
	"strings"
	"sync"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
)

// Catalog sides used as the leading cache key component.
const (
	SourceSide = "source"
	TargetSide = "target"
)

// RequestCache memoizes read responses for the lifetime of one sync run,
// keyed by (side, endpoint, parameter set). A failed call is never memoized.
//
// Each run owns its own instance; there is no process-wide cache, so two
// independent runs never share state.
type RequestCache struct {
	mu      sync.Mutex
	entries map[string]any
	hits    int
	misses  int
}

// NewRequestCache creates an empty run-scoped cache.
func NewRequestCache() *RequestCache {
	return &RequestCache{entries: make(map[string]any)}
}

// CacheKey derives the cache key for a read operation.
func CacheKey(side, endpoint string, params ...string) string {
	parts := append([]string{side, endpoint}, params...)
	return strings.Join(parts, "|")
}

// Invalidate clears one entry, forcing the next identical read to hit the
// network. Used after deletes, whose results make prior listings stale.
func (c *RequestCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Stats reports hit and miss counts for the run so far.
func (c *RequestCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// cached returns the memoized value for key, calling fetch on first access.
// Errors propagate uncached.
func cached[T any](c *RequestCache, key string, fetch func() (T, error)) (T, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return entry.(T), nil
	}
	c.misses++
	c.mu.Unlock()

	value, err := fetch()
	if err != nil {
		return value, err
	}

	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
	return value, nil
}

// Cached read helpers shared by the resolver and every handler, so that two
// components enumerating the same listing cost one network call per run.

func cachedLibraries(ctx context.Context, c *RequestCache, side string, cat services.Catalog) ([]models.Library, error) {
	return cached(c, CacheKey(side, "libraries"), func() ([]models.Library, error) {
		return cat.Libraries(ctx)
	})
}

// cachedItems lists a library's entities. The scope parameter separates
// user-scoped listings (watch state differs per user) from the shared view.
func cachedItems(ctx context.Context, c *RequestCache, side, scope string, cat services.Catalog, libraryKey string, filter services.ItemFilter) ([]models.Entity, error) {
	guids := "0"
	if filter.IncludeGUIDs {
		guids = "1"
	}
	key := CacheKey(side, "items", scope, libraryKey, string(filter.Type), guids)
	return cached(c, key, func() ([]models.Entity, error) {
		return cat.Items(ctx, libraryKey, filter)
	})
}

func cachedItem(ctx context.Context, c *RequestCache, side string, cat services.Catalog, ratingKey string) (*models.Entity, error) {
	return cached(c, CacheKey(side, "item", ratingKey), func() (*models.Entity, error) {
		return cat.Item(ctx, ratingKey)
	})
}

func cachedLeaves(ctx context.Context, c *RequestCache, side, scope string, cat services.Catalog, ratingKey string) ([]models.Entity, error) {
	return cached(c, CacheKey(side, "leaves", scope, ratingKey), func() ([]models.Entity, error) {
		return cat.Leaves(ctx, ratingKey)
	})
}

func collectionsKey(side, libraryKey string) string {
	return CacheKey(side, "collections", libraryKey)
}

func cachedCollections(ctx context.Context, c *RequestCache, side string, cat services.Catalog, libraryKey string) ([]models.Container, error) {
	return cached(c, collectionsKey(side, libraryKey), func() ([]models.Container, error) {
		return cat.Collections(ctx, libraryKey)
	})
}

func cachedCollectionItems(ctx context.Context, c *RequestCache, side string, cat services.Catalog, ratingKey string) ([]models.Entity, error) {
	return cached(c, CacheKey(side, "collection-items", ratingKey), func() ([]models.Entity, error) {
		return cat.CollectionItems(ctx, ratingKey)
	})
}

func playlistsKey(side, scope string) string {
	return CacheKey(side, "playlists", scope)
}

func cachedPlaylists(ctx context.Context, c *RequestCache, side, scope string, cat services.Catalog) ([]models.Container, error) {
	return cached(c, playlistsKey(side, scope), func() ([]models.Container, error) {
		return cat.Playlists(ctx)
	})
}

func cachedPlaylistItems(ctx context.Context, c *RequestCache, side, scope string, cat services.Catalog, ratingKey string) ([]models.Entity, error) {
	return cached(c, CacheKey(side, "playlist-items", scope, ratingKey), func() ([]models.Entity, error) {
		return cat.PlaylistItems(ctx, ratingKey)
	})
}

func cachedUsers(ctx context.Context, c *RequestCache, side string, cat services.Catalog) ([]models.User, error) {
	return cached(c, CacheKey(side, "users"), func() ([]models.User, error) {
		return cat.Users(ctx)
	})
}
