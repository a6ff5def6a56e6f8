package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/shared"
)

// ContainerDiff summarizes how one container kind differs across catalogs.
type ContainerDiff struct {
	Matched         int                // containers present on both sides by title
	MissingInTarget []models.Container // on source but not on target
	ExtraInTarget   []models.Container // on target but not on source
}

// DiffResult contains the non-mutating comparison of both catalogs'
// container state, as a dry-run preview of what a sync would change.
type DiffResult struct {
	Collections ContainerDiff
	Playlists   ContainerDiff
}

// Diff compares source and target container state without mutating either
// side. Smart containers are excluded, matching what a sync run would touch.
func (e *CatalogEngine) Diff(ctx context.Context, progress chan<- ProgressUpdate) (*DiffResult, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	cache := NewRequestCache()
	resolver := NewResolver(e.target, cache)
	result := &DiffResult{}

	e.sendProgress(progress, compareUpdate(1, 2, "Comparing collections..."))

	sourceLibraries, err := cachedLibraries(ctx, cache, SourceSide, e.source)
	if err != nil {
		return nil, err
	}

	var sourceCollections, targetCollections []models.Container
	for _, library := range sourceLibraries {
		targetLibrary, err := resolver.TargetLibrary(ctx, library)
		if err != nil {
			return nil, err
		}
		if targetLibrary == nil {
			continue
		}

		cols, err := cachedCollections(ctx, cache, SourceSide, e.source, library.Key)
		if err != nil {
			return nil, err
		}
		sourceCollections = append(sourceCollections, cols...)

		cols, err = cachedCollections(ctx, cache, TargetSide, e.target, targetLibrary.Key)
		if err != nil {
			return nil, err
		}
		targetCollections = append(targetCollections, cols...)
	}

	result.Collections = diffContainers(sourceCollections, targetCollections)

	e.sendProgress(progress, compareUpdate(2, 2, "Comparing playlists..."))

	sourcePlaylists, err := cachedPlaylists(ctx, cache, SourceSide, models.SelfUser, e.source)
	if err != nil {
		return nil, err
	}
	targetPlaylists, err := cachedPlaylists(ctx, cache, TargetSide, models.SelfUser, e.target)
	if err != nil {
		return nil, err
	}

	result.Playlists = diffContainers(sourcePlaylists, targetPlaylists)
	return result, nil
}

// diffContainers matches two container sets by normalized title.
func diffContainers(source, target []models.Container) ContainerDiff {
	diff := ContainerDiff{}

	targetByTitle := make(map[string]models.Container)
	for _, container := range target {
		if container.Smart {
			continue
		}
		targetByTitle[shared.NormalizeTitleKey(container.Title)] = container
	}

	sourceByTitle := make(map[string]models.Container)
	for _, container := range source {
		if container.Smart {
			continue
		}
		key := shared.NormalizeTitleKey(container.Title)
		sourceByTitle[key] = container

		if _, ok := targetByTitle[key]; ok {
			diff.Matched++
		} else {
			diff.MissingInTarget = append(diff.MissingInTarget, container)
		}
	}

	for key, container := range targetByTitle {
		if _, ok := sourceByTitle[key]; !ok {
			diff.ExtraInTarget = append(diff.ExtraInTarget, container)
		}
	}

	return diff
}
