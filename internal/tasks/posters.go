package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
)

// posterJob is one resolved entity whose assets get copied to the target.
type posterJob struct {
	sourceKey string
	targetKey string
	title     string
	thumb     string
	art       string
}

// syncPosters copies poster and background art from every source entity to
// its resolved target counterpart. Season and series level art is always
// included for show libraries; episode level art sits behind a flag since
// it multiplies request volume substantially.
//
// Resolution happens sequentially so the identity cache warms once per
// entity; the asset pushes for one library then fan out concurrently.
func (e *CatalogEngine) syncPosters(ctx context.Context, st *runState) error {
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
			st.skip(models.Posters, library.Title, "no matching target library")
			continue
		}

		levels := []models.EntityType{""}
		if library.Type == models.ShowLibrary {
			levels = []models.EntityType{models.ShowEntity, models.SeasonEntity}
			if st.opts.IncludeEpisodePosters {
				levels = append(levels, models.EpisodeEntity)
			}
		}

		var jobs []posterJob
		for _, level := range levels {
			filter := services.ItemFilter{Type: level, IncludeGUIDs: true}
			entities, err := cachedItems(ctx, st.cache, SourceSide, "", e.source, library.Key, filter)
			if err != nil {
				return err
			}

			for _, entity := range entities {
				if entity.Thumb == "" && entity.Art == "" {
					continue
				}

				targetKey, found, err := st.resolver.Resolve(ctx, entity)
				if err != nil {
					return err
				}
				if !found {
					st.skip(models.Posters, entity.RatingKey, fmt.Sprintf("%q not resolved on target", entity.Title))
					continue
				}

				jobs = append(jobs, posterJob{
					sourceKey: entity.RatingKey,
					targetKey: targetKey,
					title:     entity.Title,
					thumb:     entity.Thumb,
					art:       entity.Art,
				})
			}
		}

		e.sendProgress(st.progress, entityUpdate(models.Posters, len(jobs), len(jobs), fmt.Sprintf("%s: pushing %d posters", library.Title, len(jobs))))
		e.pushPosters(ctx, st, jobs)
	}

	return nil
}

// pushPosters issues all asset writes for one library concurrently.
// Individual failures skip that entity only.
func (e *CatalogEngine) pushPosters(ctx context.Context, st *runState, jobs []posterJob) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, job := range jobs {
		wg.Add(1)
		go func(job posterJob) {
			defer wg.Done()

			if err := e.copyEntityAssets(ctx, job); err != nil {
				mu.Lock()
				st.skip(models.Posters, job.sourceKey, fmt.Sprintf("%s: %v", job.title, err))
				mu.Unlock()
				return
			}

			mu.Lock()
			st.touch(models.Posters, job.targetKey)
			mu.Unlock()
		}(job)
	}

	wg.Wait()
}

func (e *CatalogEngine) copyEntityAssets(ctx context.Context, job posterJob) error {
	if job.thumb != "" {
		data, err := e.source.AssetBytes(ctx, job.thumb)
		if err != nil {
			return fmt.Errorf("poster download: %w", err)
		}
		if err := e.target.UploadAsset(ctx, job.targetKey, services.PosterAsset, data); err != nil {
			return fmt.Errorf("poster upload: %w", err)
		}
	}

	if job.art != "" {
		data, err := e.source.AssetBytes(ctx, job.art)
		if err != nil {
			return fmt.Errorf("art download: %w", err)
		}
		if err := e.target.UploadAsset(ctx, job.targetKey, services.ArtAsset, data); err != nil {
			return fmt.Errorf("art upload: %w", err)
		}
	}

	return nil
}
