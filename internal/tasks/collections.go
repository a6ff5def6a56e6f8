package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
)

// syncCollections mirrors every non-smart collection of every matched
// library from source to target using idempotent replace: all existing
// target collections are deleted, then each source collection is recreated
// with its resolved member list. A target collection that no longer exists
// on the source disappears, and a renamed source collection leaves no
// orphaned duplicate.
func (e *CatalogEngine) syncCollections(ctx context.Context, st *runState) error {
	sourceLibraries, err := cachedLibraries(ctx, st.cache, SourceSide, e.source)
	if err != nil {
		return err
	}

	for _, library := range sourceLibraries {
		targetLibrary, err := st.resolver.TargetLibrary(ctx, library)
		if err != nil {
			return err
		}
		if targetLibrary == nil {
			st.skip(models.Collections, library.Title, "no matching target library")
			continue
		}

		collections, err := cachedCollections(ctx, st.cache, SourceSide, e.source, library.Key)
		if err != nil {
			return err
		}

		existing, err := cachedCollections(ctx, st.cache, TargetSide, e.target, targetLibrary.Key)
		if err != nil {
			return err
		}

		// Delete-then-recreate keeps the convergence invariant simple:
		// after the pass, target state equals freshly computed source state.
		for _, old := range existing {
			if old.Smart {
				continue
			}
			if err := e.target.DeleteCollection(ctx, old.RatingKey); err != nil {
				st.skip(models.Collections, old.Title, fmt.Sprintf("delete failed: %v", err))
			}
		}
		st.cache.Invalidate(collectionsKey(TargetSide, targetLibrary.Key))

		for i, collection := range collections {
			if collection.Smart {
				continue
			}
			e.sendProgress(st.progress, entityUpdate(models.Collections, i+1, len(collections), collection.Title))

			members, err := cachedCollectionItems(ctx, st.cache, SourceSide, e.source, collection.RatingKey)
			if err != nil {
				return err
			}

			memberKeys := st.resolveMembers(ctx, models.Collections, members)
			if len(memberKeys) == 0 {
				st.skip(models.Collections, collection.Title, "no members resolved on target")
				continue
			}

			newKey, err := e.target.CreateCollection(ctx, targetLibrary.Key, collection.Title, memberKeys)
			if err != nil {
				// A failed creation skips this one collection, not the run.
				st.skip(models.Collections, collection.Title, fmt.Sprintf("create failed: %v", err))
				continue
			}

			st.touch(models.Collections, newKey)
			e.pushContainerExtras(ctx, st, models.Collections, e.target, collection, newKey)
		}
	}

	return nil
}

// resolveMembers maps container members to target rating keys, dropping
// members with no target counterpart as per-entity skips.
func (s *runState) resolveMembers(ctx context.Context, resource models.ResourceType, members []models.Entity) []string {
	keys := make([]string, 0, len(members))
	for _, member := range members {
		ratingKey, found, err := s.resolver.Resolve(ctx, member)
		if err != nil || !found {
			s.skip(resource, member.RatingKey, fmt.Sprintf("member %q not resolved on target", member.Title))
			continue
		}
		keys = append(keys, ratingKey)
	}
	return keys
}

// pushContainerExtras writes a new container's non-identity attributes and
// poster/art assets. The three writes touch disjoint sub-resources of the
// same container and fan out concurrently; containers themselves stay
// sequential to keep delete-then-recreate ordering deterministic.
func (e *CatalogEngine) pushContainerExtras(ctx context.Context, st *runState, resource models.ResourceType, target services.Catalog, src models.Container, newKey string) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []string

	fail := func(what string, err error) {
		mu.Lock()
		failures = append(failures, fmt.Sprintf("%s: %v", what, err))
		mu.Unlock()
	}

	attrs := make(map[string]string)
	if src.Summary != "" {
		attrs["summary"] = src.Summary
	}
	if src.TitleSort != "" {
		attrs["titleSort"] = src.TitleSort
	}
	if src.ContentRating != "" {
		attrs["contentRating"] = src.ContentRating
	}
	if len(attrs) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := target.UpdateAttributes(ctx, newKey, attrs); err != nil {
				fail("attributes", err)
			}
		}()
	}

	copyAsset := func(path string, kind services.AssetKind, what string) {
		defer wg.Done()
		data, err := e.source.AssetBytes(ctx, path)
		if err != nil {
			fail(what, err)
			return
		}
		if err := target.UploadAsset(ctx, newKey, kind, data); err != nil {
			fail(what, err)
		}
	}

	if src.Thumb != "" {
		wg.Add(1)
		go copyAsset(src.Thumb, services.PosterAsset, "poster")
	}
	if src.Art != "" {
		wg.Add(1)
		go copyAsset(src.Art, services.ArtAsset, "art")
	}

	wg.Wait()

	for _, failure := range failures {
		st.skip(resource, src.Title, failure)
	}
}
