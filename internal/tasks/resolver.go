package tasks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
	"github.com/desertthunder/plexsync/internal/shared"
)

// Resolver maps a source entity to its target-catalog counterpart's rating
// key. Matching is tiered: identifier intersection first, exact normalized
// title equality as the documented fallback. First match wins.
//
// The title fallback applies to identified entities too: an entity whose
// identifiers match nothing on the target still resolves by title, since
// the two catalogs may disagree on which identifiers they carry for the
// same item.
//
// Resolutions (including misses) are memoized for the run, so repeated
// lookups for the same logical entity across handlers cost one library scan.
type Resolver struct {
	target services.Catalog
	cache  *RequestCache

	mu       sync.Mutex
	resolved map[string]string // match key -> target rating key, "" for a miss
}

// NewResolver creates a resolver against the given target catalog, sharing
// the run's request cache for its library scans.
func NewResolver(target services.Catalog, cache *RequestCache) *Resolver {
	return &Resolver{
		target:   target,
		cache:    cache,
		resolved: make(map[string]string),
	}
}

// MatchKey derives the run-scoped identity key for an entity: its sorted
// identifier set when it has one, its typed normalized title otherwise.
func MatchKey(e models.Entity) string {
	if len(e.GUIDs) > 0 {
		guids := append([]string(nil), e.GUIDs...)
		sort.Strings(guids)
		return "guid|" + strings.Join(guids, "|")
	}
	return "title|" + string(e.Type) + "|" + shared.NormalizeTitleKey(e.Title)
}

// Resolve finds the target-catalog counterpart of a source entity.
//
// Returns (ratingKey, true) on a match and ("", false) when no target entity
// corresponds. A miss is not an error and callers must treat it as "skip
// this entity". Errors are reserved for failed target reads.
func (r *Resolver) Resolve(ctx context.Context, src models.Entity) (string, bool, error) {
	key := MatchKey(src)

	r.mu.Lock()
	if ratingKey, ok := r.resolved[key]; ok {
		r.mu.Unlock()
		return ratingKey, ratingKey != "", nil
	}
	r.mu.Unlock()

	ratingKey, err := r.scan(ctx, src)
	if err != nil {
		return "", false, err
	}

	r.mu.Lock()
	r.resolved[key] = ratingKey
	r.mu.Unlock()

	return ratingKey, ratingKey != "", nil
}

// scan walks the target's compatible libraries looking for a counterpart.
func (r *Resolver) scan(ctx context.Context, src models.Entity) (string, error) {
	libraries, err := cachedLibraries(ctx, r.cache, TargetSide, r.target)
	if err != nil {
		return "", err
	}

	wantLibrary := models.LibraryTypeFor(src.Type)
	srcTitle := shared.NormalizeTitleKey(src.Title)
	titleMatch := ""

	for _, library := range libraries {
		if library.Type != wantLibrary {
			continue
		}

		filter := services.ItemFilter{Type: src.Type, IncludeGUIDs: true}
		candidates, err := cachedItems(ctx, r.cache, TargetSide, "", r.target, library.Key, filter)
		if err != nil {
			return "", err
		}

		for _, candidate := range candidates {
			if len(src.GUIDs) == 0 {
				// Title-only matching is the documented precision
				// limitation: duplicate titles resolve to whichever
				// candidate is seen first.
				if shared.NormalizeTitleKey(candidate.Title) == srcTitle {
					return candidate.RatingKey, nil
				}
				continue
			}

			if guidsIntersect(src.GUIDs, candidate.GUIDs) {
				return candidate.RatingKey, nil
			}

			// Remembered in case no identifier matches anywhere.
			if titleMatch == "" && shared.NormalizeTitleKey(candidate.Title) == srcTitle {
				titleMatch = candidate.RatingKey
			}
		}
	}

	// No identifier matched anywhere; fall back to the first title match.
	return titleMatch, nil
}

// TargetLibrary finds the target library matching a source library by
// (type, title) equality. Returns nil when the target has no counterpart.
func (r *Resolver) TargetLibrary(ctx context.Context, src models.Library) (*models.Library, error) {
	libraries, err := cachedLibraries(ctx, r.cache, TargetSide, r.target)
	if err != nil {
		return nil, err
	}

	for _, library := range libraries {
		if library.Type == src.Type && library.Title == src.Title {
			match := library
			return &match, nil
		}
	}

	return nil, nil
}

// guidsIntersect reports whether the two identifier sets share any value.
// Intersection rather than strict set equality: catalogs frequently carry
// different identifier subsets for the same item (one side tmdb+tvdb, the
// other tvdb only).
func guidsIntersect(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	set := make(map[string]struct{}, len(a))
	for _, guid := range a {
		set[guid] = struct{}{}
	}

	for _, guid := range b {
		if _, ok := set[guid]; ok {
			return true
		}
	}

	return false
}
