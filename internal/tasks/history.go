package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
)

// syncHistory makes the target's per-user watched state match the source's
// for every resolved user token pair.
//
// Three states are distinguished per entity: a resume offset pushes a
// progress write with that exact offset, a view count pushes "mark seen",
// neither pushes "mark unseen". A show whose episodes are all watched or
// all unwatched is synchronized with a single whole-series write instead of
// one write per episode.
func (e *CatalogEngine) syncHistory(ctx context.Context, st *runState) error {
	sourceLibraries, err := cachedLibraries(ctx, st.cache, SourceSide, e.source)
	if err != nil {
		return err
	}

	for _, pair := range st.users {
		sourceCatalog := userCatalog(e.source, pair.Source)
		targetCatalog := userCatalog(e.target, pair.Target)

		for _, library := range sourceLibraries {
			var err error
			switch library.Type {
			case models.ShowLibrary:
				err = e.syncShowHistory(ctx, st, pair.Name, sourceCatalog, targetCatalog, library)
			case models.MusicLibrary:
				err = e.syncLeafHistory(ctx, st, pair.Name, sourceCatalog, targetCatalog, library, models.TrackEntity)
			default:
				err = e.syncLeafHistory(ctx, st, pair.Name, sourceCatalog, targetCatalog, library, models.MovieEntity)
			}
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// syncLeafHistory pushes watch state for the flat entities of a library.
func (e *CatalogEngine) syncLeafHistory(ctx context.Context, st *runState, scope string, source, target services.Catalog, library models.Library, entityType models.EntityType) error {
	filter := services.ItemFilter{Type: entityType, IncludeGUIDs: true}
	entities, err := cachedItems(ctx, st.cache, SourceSide, scope, source, library.Key, filter)
	if err != nil {
		return err
	}

	for i, entity := range entities {
		e.sendProgress(st.progress, entityUpdate(models.History, i+1, len(entities), fmt.Sprintf("%s (%s)", entity.Title, scope)))
		e.pushWatchState(ctx, st, target, entity)
	}

	return nil
}

// syncShowHistory walks a show library, taking the whole-series shortcut
// when a show's watched leaf count is zero or equal to its leaf count.
func (e *CatalogEngine) syncShowHistory(ctx context.Context, st *runState, scope string, source, target services.Catalog, library models.Library) error {
	filter := services.ItemFilter{Type: models.ShowEntity, IncludeGUIDs: true}
	shows, err := cachedItems(ctx, st.cache, SourceSide, scope, source, library.Key, filter)
	if err != nil {
		return err
	}

	for i, show := range shows {
		e.sendProgress(st.progress, entityUpdate(models.History, i+1, len(shows), fmt.Sprintf("%s (%s)", show.Title, scope)))

		targetKey, found, err := st.resolver.Resolve(ctx, show)
		if err != nil {
			return err
		}
		if !found {
			st.skip(models.History, show.RatingKey, fmt.Sprintf("%q not resolved on target", show.Title))
			continue
		}

		// One whole-series write replaces N per-episode writes when the
		// show is uniformly watched or uniformly unwatched.
		if show.LeafCount > 0 && show.ViewedLeafCount == show.LeafCount {
			if err := target.MarkWatched(ctx, targetKey); err != nil {
				st.skip(models.History, show.RatingKey, fmt.Sprintf("mark watched failed: %v", err))
				continue
			}
			st.touch(models.History, targetKey)
			continue
		}
		if show.ViewedLeafCount == 0 {
			if err := target.MarkUnwatched(ctx, targetKey); err != nil {
				st.skip(models.History, show.RatingKey, fmt.Sprintf("mark unwatched failed: %v", err))
				continue
			}
			st.touch(models.History, targetKey)
			continue
		}

		// Partially watched: per-episode writes.
		episodes, err := cachedLeaves(ctx, st.cache, SourceSide, scope, source, show.RatingKey)
		if err != nil {
			return err
		}
		for _, episode := range episodes {
			e.pushWatchState(ctx, st, target, episode)
		}
	}

	return nil
}

// pushWatchState issues the single write that makes the target's state for
// one entity match the source's. Write failures skip that entity only.
func (e *CatalogEngine) pushWatchState(ctx context.Context, st *runState, target services.Catalog, entity models.Entity) {
	targetKey, found, err := st.resolver.Resolve(ctx, entity)
	if err != nil || !found {
		st.skip(models.History, entity.RatingKey, fmt.Sprintf("%q not resolved on target", entity.Title))
		return
	}

	switch {
	case entity.ViewOffset > 0:
		err = target.SetProgress(ctx, targetKey, entity.ViewOffset)
	case entity.ViewCount > 0:
		err = target.MarkWatched(ctx, targetKey)
	default:
		err = target.MarkUnwatched(ctx, targetKey)
	}

	if err != nil {
		st.skip(models.History, entity.RatingKey, fmt.Sprintf("watch state write failed: %v", err))
		return
	}

	st.touch(models.History, targetKey)
}
