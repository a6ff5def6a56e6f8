package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
	"github.com/desertthunder/plexsync/internal/shared"
)

// RunOptions selects what one synchronization run covers.
type RunOptions struct {
	Resources             []models.ResourceType // non-empty subset of the known handler set
	Users                 []string              // usernames for user-specific types; defaults to @me
	IncludeEpisodePosters bool                  // push episode-level posters (multiplies request volume)
}

// Skip records one entity or container the run left untouched, with the
// reason. Skips are reported, never fatal.
type Skip struct {
	Resource models.ResourceType
	Key      string // source rating key or container title
	Reason   string
}

// RunResult contains all data from one synchronization run.
type RunResult struct {
	RunID      string
	Touched    map[models.ResourceType][]string // target-side ids affected, per resource type
	Skipped    []Skip
	StartedAt  time.Time
	FinishedAt time.Time
}

// SyncEngine defines operations for mirroring catalog state between servers.
type SyncEngine interface {
	// Run performs a full source → target sync of the selected resource
	// types. On a hard error the partial result is returned alongside it;
	// already-applied writes are never rolled back.
	Run(ctx context.Context, progress chan<- ProgressUpdate, opts RunOptions) (*RunResult, error)

	// Diff compares source and target container state without mutating
	// either side.
	Diff(ctx context.Context, progress chan<- ProgressUpdate) (*DiffResult, error)

	// Snapshot fetches one side's full catalog state for backup or analysis.
	Snapshot(ctx context.Context, progress chan<- ProgressUpdate, side string) (*SnapshotResult, error)
}

// CatalogEngine implements SyncEngine for a source/target catalog pair.
//
// The marker store is nil unless the process runs on the target host with
// access to its local metadata database.
type CatalogEngine struct {
	source  services.Catalog
	target  services.Catalog
	markers services.MarkerStore
}

var _ SyncEngine = (*CatalogEngine)(nil)

// NewCatalogEngine creates an engine for the given catalog pair.
func NewCatalogEngine(source, target services.Catalog, markers services.MarkerStore) *CatalogEngine {
	return &CatalogEngine{source: source, target: target, markers: markers}
}

// runState carries the per-run caches and bookkeeping shared by handlers.
// Its cache and resolver are created fresh for every run and dropped after,
// so repeated runs never see stale listings.
type runState struct {
	opts     RunOptions
	cache    *RequestCache
	resolver *Resolver
	result   *RunResult
	progress chan<- ProgressUpdate
	users    []models.UserPair
}

func (s *runState) touch(resource models.ResourceType, ratingKey string) {
	s.result.Touched[resource] = append(s.result.Touched[resource], ratingKey)
}

func (s *runState) skip(resource models.ResourceType, key, reason string) {
	s.result.Skipped = append(s.result.Skipped, Skip{Resource: resource, Key: key, Reason: reason})
	if s.progress == nil {
		return
	}
	select {
	case s.progress <- skipUpdate(resource, reason):
	default:
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls execution.
func (e *CatalogEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}

// handlerOrder fixes the execution order: non-user-specific types first so
// they warm the identity cache the user-specific types reuse.
var handlerOrder = []models.ResourceType{
	models.Collections,
	models.Posters,
	models.Markers,
	models.History,
	models.Playlists,
}

// Run performs a full source → target sync of the selected resource types.
func (e *CatalogEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts RunOptions) (*RunResult, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	requested, err := e.validateSelection(opts)
	if err != nil {
		return nil, err
	}

	state := &runState{
		opts:  opts,
		cache: NewRequestCache(),
		result: &RunResult{
			RunID:     shared.GenerateID(),
			Touched:   make(map[models.ResourceType][]string),
			StartedAt: time.Now().UTC(),
		},
		progress: progress,
	}
	state.resolver = NewResolver(e.target, state.cache)

	if needsUsers(requested) {
		pairs, err := e.matchUsers(ctx, state)
		if err != nil {
			state.result.FinishedAt = time.Now().UTC()
			return state.result, err
		}
		state.users = pairs
		e.sendProgress(progress, usersUpdate(pairs))
	}

	handlers := map[models.ResourceType]func(context.Context, *runState) error{
		models.Collections: e.syncCollections,
		models.Posters:     e.syncPosters,
		models.Markers:     e.syncMarkers,
		models.History:     e.syncHistory,
		models.Playlists:   e.syncPlaylists,
	}

	step := 0
	for _, resource := range handlerOrder {
		if _, ok := requested[resource]; !ok {
			continue
		}
		step++
		e.sendProgress(progress, resourceStartUpdate(resource, step, len(requested)))

		if err := handlers[resource](ctx, state); err != nil {
			// Stop scheduling further handlers; prior results stand.
			state.result.FinishedAt = time.Now().UTC()
			return state.result, fmt.Errorf("%s sync failed: %w", resource, err)
		}
	}

	state.result.FinishedAt = time.Now().UTC()
	return state.result, nil
}

// validateSelection checks the resource selection and the marker-store
// precondition before anything is mutated.
func (e *CatalogEngine) validateSelection(opts RunOptions) (map[models.ResourceType]struct{}, error) {
	if len(opts.Resources) == 0 {
		return nil, fmt.Errorf("%w: no resource types requested", shared.ErrInvalidSelection)
	}

	requested := make(map[models.ResourceType]struct{}, len(opts.Resources))
	for _, resource := range opts.Resources {
		known := false
		for _, k := range models.KnownResourceTypes {
			if resource == k {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w: unknown resource type %q", shared.ErrInvalidSelection, resource)
		}
		requested[resource] = struct{}{}
	}

	if _, ok := requested[models.Markers]; ok && e.markers == nil {
		return nil, fmt.Errorf("%w: markers require direct access to the target's metadata database", shared.ErrMarkerStore)
	}

	return requested, nil
}

func needsUsers(requested map[models.ResourceType]struct{}) bool {
	for resource := range requested {
		if resource.UserSpecific() {
			return true
		}
	}
	return false
}

// matchUsers establishes the run's user token pairs by matching usernames
// present on both catalogs. @me denotes the run's own credential holder and
// @all expands to every matched username.
func (e *CatalogEngine) matchUsers(ctx context.Context, state *runState) ([]models.UserPair, error) {
	selection := state.opts.Users
	if len(selection) == 0 {
		selection = []string{models.SelfUser}
	}

	wantAll := false
	names := make(map[string]struct{})
	var pairs []models.UserPair

	for _, name := range selection {
		switch name {
		case models.SelfUser:
			// The base catalogs already act as the credential holder.
			pairs = append(pairs, models.UserPair{Name: models.SelfUser})
		case models.AllUsers:
			wantAll = true
		default:
			names[name] = struct{}{}
		}
	}

	if !wantAll && len(names) == 0 {
		return pairs, nil
	}

	sourceUsers, err := cachedUsers(ctx, state.cache, SourceSide, e.source)
	if err != nil {
		return nil, err
	}
	targetUsers, err := cachedUsers(ctx, state.cache, TargetSide, e.target)
	if err != nil {
		return nil, err
	}

	targetByName := make(map[string]models.User, len(targetUsers))
	for _, user := range targetUsers {
		targetByName[user.Name] = user
	}

	matched := make(map[string]struct{})
	for _, sourceUser := range sourceUsers {
		targetUser, ok := targetByName[sourceUser.Name]
		if !ok {
			continue
		}
		if _, requested := names[sourceUser.Name]; !wantAll && !requested {
			continue
		}
		matched[sourceUser.Name] = struct{}{}
		pairs = append(pairs, models.UserPair{
			Name:   sourceUser.Name,
			Source: sourceUser,
			Target: targetUser,
		})
	}

	// Requested users absent from either side are skipped, not fatal. The
	// skip is recorded under each selected user-specific resource type.
	for name := range names {
		if _, ok := matched[name]; ok {
			continue
		}
		for _, resource := range state.opts.Resources {
			if resource.UserSpecific() {
				state.skip(resource, name, "user not present on both catalogs")
			}
		}
	}

	return pairs, nil
}

// userCatalog scopes a catalog to one user of a token pair. An empty token
// means the pair denotes the run's own credential holder.
func userCatalog(base services.Catalog, user models.User) services.Catalog {
	if user.Token == "" {
		return base
	}
	return base.WithToken(user.Token)
}
