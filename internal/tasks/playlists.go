package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/plexsync/internal/models"
)

// syncPlaylists mirrors every non-smart playlist from source to target,
// once per resolved user token pair, with the same idempotent replace
// strategy as collections scoped to each user's playlist set.
func (e *CatalogEngine) syncPlaylists(ctx context.Context, st *runState) error {
	for _, pair := range st.users {
		sourceCatalog := userCatalog(e.source, pair.Source)
		targetCatalog := userCatalog(e.target, pair.Target)

		playlists, err := cachedPlaylists(ctx, st.cache, SourceSide, pair.Name, sourceCatalog)
		if err != nil {
			return err
		}

		existing, err := cachedPlaylists(ctx, st.cache, TargetSide, pair.Name, targetCatalog)
		if err != nil {
			return err
		}

		for _, old := range existing {
			if old.Smart {
				continue
			}
			if err := targetCatalog.DeletePlaylist(ctx, old.RatingKey); err != nil {
				st.skip(models.Playlists, old.Title, fmt.Sprintf("delete failed for %s: %v", pair.Name, err))
			}
		}
		st.cache.Invalidate(playlistsKey(TargetSide, pair.Name))

		for i, playlist := range playlists {
			if playlist.Smart {
				continue
			}
			e.sendProgress(st.progress, entityUpdate(models.Playlists, i+1, len(playlists), fmt.Sprintf("%s (%s)", playlist.Title, pair.Name)))

			members, err := cachedPlaylistItems(ctx, st.cache, SourceSide, pair.Name, sourceCatalog, playlist.RatingKey)
			if err != nil {
				return err
			}

			memberKeys := st.resolveMembers(ctx, models.Playlists, members)
			if len(memberKeys) == 0 {
				st.skip(models.Playlists, playlist.Title, "no members resolved on target")
				continue
			}

			newKey, err := targetCatalog.CreatePlaylist(ctx, playlist.Title, memberKeys)
			if err != nil {
				st.skip(models.Playlists, playlist.Title, fmt.Sprintf("create failed: %v", err))
				continue
			}

			st.touch(models.Playlists, newKey)
			e.pushContainerExtras(ctx, st, models.Playlists, targetCatalog, playlist, newKey)
		}
	}

	return nil
}
