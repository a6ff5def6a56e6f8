package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
	"github.com/desertthunder/plexsync/internal/shared"
)

// EndpointResult records one failed fetch during a snapshot.
type EndpointResult struct {
	Endpoint string `json:"endpoint"`
	Error    string `json:"error"`
}

// SnapshotResult contains one catalog side's full state for backup or
// analysis. Fetch failures collect into Errors instead of aborting.
type SnapshotResult struct {
	Catalog     string                        `json:"catalog"`
	Libraries   []models.Library              `json:"libraries"`
	Items       map[string][]models.Entity    `json:"items,omitempty"`       // library key -> entities
	Collections map[string][]models.Container `json:"collections,omitempty"` // library key -> collections
	Playlists   []models.Container            `json:"playlists,omitempty"`
	Errors      []EndpointResult              `json:"errors,omitempty"`
}

// Snapshot fetches libraries, items, collections and playlists of one side.
// The side argument is "source" or "target".
func (e *CatalogEngine) Snapshot(ctx context.Context, progress chan<- ProgressUpdate, side string) (*SnapshotResult, error) {
	var catalog services.Catalog
	switch side {
	case SourceSide:
		catalog = e.source
	case TargetSide:
		catalog = e.target
	default:
		return nil, fmt.Errorf("%w: unknown side %q", shared.ErrInvalidArgument, side)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	result := &SnapshotResult{
		Catalog:     catalog.Name(),
		Items:       make(map[string][]models.Entity),
		Collections: make(map[string][]models.Container),
	}

	e.sendProgress(progress, librariesUpdate(1, 1))
	libraries, err := catalog.Libraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list libraries: %v", shared.ErrAPIRequest, err)
	}
	result.Libraries = libraries

	for i, library := range libraries {
		e.sendProgress(progress, snapshotUpdate(i+1, len(libraries), library.Title))

		items, err := catalog.Items(ctx, library.Key, services.ItemFilter{IncludeGUIDs: true})
		if err != nil {
			result.Errors = append(result.Errors, EndpointResult{
				Endpoint: fmt.Sprintf("items/%s", library.Key),
				Error:    err.Error(),
			})
		} else {
			result.Items[library.Key] = items
		}

		collections, err := catalog.Collections(ctx, library.Key)
		if err != nil {
			result.Errors = append(result.Errors, EndpointResult{
				Endpoint: fmt.Sprintf("collections/%s", library.Key),
				Error:    err.Error(),
			})
		} else {
			result.Collections[library.Key] = collections
		}
	}

	e.sendProgress(progress, snapshotUpdate(3, 3, "playlists"))
	playlists, err := catalog.Playlists(ctx)
	if err != nil {
		result.Errors = append(result.Errors, EndpointResult{Endpoint: "playlists", Error: err.Error()})
	} else {
		result.Playlists = playlists
	}

	return result, nil
}
