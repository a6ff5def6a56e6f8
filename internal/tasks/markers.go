package tasks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
)

// updateIntroMarkerStmt updates the existing intro marker row for one
// episode. Rows are never inserted: the target is assumed to have scanned
// its own media and to own a marker for the episode already.
const updateIntroMarkerStmt = `UPDATE taggings SET time_offset = ?, end_time_offset = ? WHERE metadata_item_id = ? AND text = 'intro'`

// syncMarkers copies intro boundaries from source episodes into the
// target's local metadata database. The orchestrator guarantees the marker
// store is present before this handler runs; a statement failure here is a
// hard error, because a partially-applied privileged write is unsafe to
// continue past.
func (e *CatalogEngine) syncMarkers(ctx context.Context, st *runState) error {
	sourceLibraries, err := cachedLibraries(ctx, st.cache, SourceSide, e.source)
	if err != nil {
		return err
	}

	for _, library := range sourceLibraries {
		if library.Type != models.ShowLibrary {
			continue
		}

		filter := services.ItemFilter{Type: models.EpisodeEntity, IncludeGUIDs: true}
		episodes, err := cachedItems(ctx, st.cache, SourceSide, "", e.source, library.Key, filter)
		if err != nil {
			return err
		}

		for i, episode := range episodes {
			e.sendProgress(st.progress, entityUpdate(models.Markers, i+1, len(episodes), episode.Title))

			// Markers only appear on the detail view.
			detail, err := cachedItem(ctx, st.cache, SourceSide, e.source, episode.RatingKey)
			if err != nil {
				return err
			}
			if detail.Marker == nil {
				continue
			}

			targetKey, found, err := st.resolver.Resolve(ctx, episode)
			if err != nil {
				return err
			}
			if !found {
				st.skip(models.Markers, episode.RatingKey, fmt.Sprintf("%q not resolved on target", episode.Title))
				continue
			}

			targetID, err := strconv.ParseInt(targetKey, 10, 64)
			if err != nil {
				st.skip(models.Markers, episode.RatingKey, fmt.Sprintf("non-numeric target key %q", targetKey))
				continue
			}

			affected, err := e.markers.Exec(ctx, updateIntroMarkerStmt, detail.Marker.StartOffset, detail.Marker.EndOffset, targetID)
			if err != nil {
				return err
			}
			if affected == 0 {
				st.skip(models.Markers, episode.RatingKey, "target has no intro marker row for this episode")
				continue
			}

			st.touch(models.Markers, targetKey)
		}
	}

	return nil
}
