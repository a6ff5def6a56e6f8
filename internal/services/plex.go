// Plex Media Server [Catalog] implementation
//
// Talks to one server over its HTTP API with Accept: application/json.
// Response shapes follow the MediaContainer envelope the server wraps every
// payload in.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/shared"
	"golang.org/x/time/rate"
)

// Numeric content types used by the /library/sections/{key}/all type filter.
var plexTypeCodes = map[models.EntityType]string{
	models.MovieEntity:   "1",
	models.ShowEntity:    "2",
	models.SeasonEntity:  "3",
	models.EpisodeEntity: "4",
	models.ArtistEntity:  "8",
	models.AlbumEntity:   "9",
	models.TrackEntity:   "10",
}

const scrobbleIdentifier = "com.plexapp.plugins.library"

// PlexCatalog implements the Catalog interface for one Plex-style server.
//
// All requests share a rate limiter and a per-call timeout so large library
// scans cannot starve the server or hang the run.
type PlexCatalog struct {
	name       string
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu      sync.Mutex
	machine string // machineIdentifier, fetched lazily for container create URIs
}

// PlexOpts configures a PlexCatalog.
type PlexOpts struct {
	Name              string
	URL               string
	Token             string
	TimeoutSeconds    int
	RequestsPerSecond int
	HTTPClient        *http.Client // overrides timeout when set, used by tests
}

// NewPlexCatalog creates a catalog client for one server side.
func NewPlexCatalog(opts PlexOpts) (*PlexCatalog, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("%w: missing server url", shared.ErrInvalidConfig)
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("%w: missing server token", shared.ErrMissingCredentials)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := 60 * time.Second
		if opts.TimeoutSeconds > 0 {
			timeout = time.Duration(opts.TimeoutSeconds) * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 8
	}

	name := opts.Name
	if name == "" {
		name = opts.URL
	}

	return &PlexCatalog{
		name:       name,
		baseURL:    strings.TrimRight(opts.URL, "/"),
		token:      opts.Token,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// Name returns the configured display name for this catalog side.
func (p *PlexCatalog) Name() string {
	return p.name
}

// WithToken returns a shallow copy of the catalog authenticated as a
// different user. The HTTP client, limiter, and machine identifier are
// shared so the per-server rate limit still applies across users.
func (p *PlexCatalog) WithToken(token string) Catalog {
	clone := &PlexCatalog{
		name:       p.name,
		baseURL:    p.baseURL,
		token:      token,
		httpClient: p.httpClient,
		limiter:    p.limiter,
	}
	p.mu.Lock()
	clone.machine = p.machine
	p.mu.Unlock()
	return clone
}

// mediaContainer is the envelope every JSON response arrives in.
type mediaContainer struct {
	MediaContainer struct {
		MachineIdentifier string          `json:"machineIdentifier"`
		Directory         []directoryJSON `json:"Directory"`
		Metadata          []metadataJSON  `json:"Metadata"`
		Account           []accountJSON   `json:"Account"`
	} `json:"MediaContainer"`
}

type directoryJSON struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type guidJSON struct {
	ID string `json:"id"`
}

type markerJSON struct {
	Type        string `json:"type"`
	StartOffset int64  `json:"startTimeOffset"`
	EndOffset   int64  `json:"endTimeOffset"`
}

type metadataJSON struct {
	RatingKey       string       `json:"ratingKey"`
	Type            string       `json:"type"`
	Title           string       `json:"title"`
	TitleSort       string       `json:"titleSort"`
	Summary         string       `json:"summary"`
	ContentRating   string       `json:"contentRating"`
	Thumb           string       `json:"thumb"`
	Art             string       `json:"art"`
	Duration        int64        `json:"duration"`
	ViewCount       int          `json:"viewCount"`
	ViewOffset      int64        `json:"viewOffset"`
	LeafCount       int          `json:"leafCount"`
	ViewedLeafCount int          `json:"viewedLeafCount"`
	Index           int          `json:"index"`
	ParentIndex     int          `json:"parentIndex"`
	Smart           bool         `json:"smart"`
	GUIDs           []guidJSON   `json:"Guid"`
	Markers         []markerJSON `json:"Marker"`
}

func (m metadataJSON) toEntity() models.Entity {
	e := models.Entity{
		RatingKey:       m.RatingKey,
		Type:            models.EntityType(m.Type),
		Title:           m.Title,
		Summary:         m.Summary,
		Thumb:           m.Thumb,
		Art:             m.Art,
		Duration:        m.Duration,
		ViewCount:       m.ViewCount,
		ViewOffset:      m.ViewOffset,
		LeafCount:       m.LeafCount,
		ViewedLeafCount: m.ViewedLeafCount,
		Index:           m.Index,
		ParentIndex:     m.ParentIndex,
	}

	for _, g := range m.GUIDs {
		if g.ID != "" {
			e.GUIDs = append(e.GUIDs, g.ID)
		}
	}

	for _, mk := range m.Markers {
		if mk.Type == "intro" {
			e.Marker = &models.Marker{Type: mk.Type, StartOffset: mk.StartOffset, EndOffset: mk.EndOffset}
			break
		}
	}

	return e
}

func (m metadataJSON) toContainer() models.Container {
	return models.Container{
		RatingKey:     m.RatingKey,
		Title:         m.Title,
		TitleSort:     m.TitleSort,
		Summary:       m.Summary,
		ContentRating: m.ContentRating,
		Smart:         m.Smart,
		Thumb:         m.Thumb,
		Art:           m.Art,
		LeafCount:     m.LeafCount,
	}
}

type accountJSON struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

func (p *PlexCatalog) doRequest(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, result any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	apiURL := p.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Token", p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned status %d", shared.ErrAPIRequest, method, endpoint, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// machineIdentifier fetches and caches the server's unique identifier,
// needed to build the item URIs the container create endpoints expect.
func (p *PlexCatalog) machineIdentifier(ctx context.Context) (string, error) {
	p.mu.Lock()
	cached := p.machine
	p.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodGet, "/", nil, nil, &container); err != nil {
		return "", err
	}

	machine := container.MediaContainer.MachineIdentifier
	if machine == "" {
		return "", fmt.Errorf("%w: server did not report a machine identifier", shared.ErrAPIRequest)
	}

	p.mu.Lock()
	p.machine = machine
	p.mu.Unlock()
	return machine, nil
}

func (p *PlexCatalog) itemURI(machine string, itemKeys []string) string {
	return fmt.Sprintf("server://%s/%s/library/metadata/%s", machine, scrobbleIdentifier, strings.Join(itemKeys, ","))
}

// Libraries lists the server's library sections.
func (p *PlexCatalog) Libraries(ctx context.Context) ([]models.Library, error) {
	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodGet, "/library/sections", nil, nil, &container); err != nil {
		return nil, err
	}

	libraries := make([]models.Library, 0, len(container.MediaContainer.Directory))
	for _, d := range container.MediaContainer.Directory {
		libraries = append(libraries, models.Library{
			Key:   d.Key,
			Title: d.Title,
			Type:  models.LibraryType(d.Type),
		})
	}

	return libraries, nil
}

// Items lists the entities of one library section.
func (p *PlexCatalog) Items(ctx context.Context, libraryKey string, filter ItemFilter) ([]models.Entity, error) {
	query := url.Values{}
	if code, ok := plexTypeCodes[filter.Type]; ok && filter.Type != "" {
		query.Set("type", code)
	}
	if filter.IncludeGUIDs {
		query.Set("includeGuids", "1")
	}

	endpoint := fmt.Sprintf("/library/sections/%s/all", libraryKey)
	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodGet, endpoint, query, nil, &container); err != nil {
		return nil, err
	}

	return metadataToEntities(container), nil
}

// Item fetches one entity's detail view, with identifiers and markers attached.
func (p *PlexCatalog) Item(ctx context.Context, ratingKey string) (*models.Entity, error) {
	query := url.Values{}
	query.Set("includeGuids", "1")
	query.Set("includeMarkers", "1")

	endpoint := fmt.Sprintf("/library/metadata/%s", ratingKey)
	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodGet, endpoint, query, nil, &container); err != nil {
		return nil, err
	}

	if len(container.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("%w: rating key %s", shared.ErrEntityNotFound, ratingKey)
	}

	entity := container.MediaContainer.Metadata[0].toEntity()
	return &entity, nil
}

// Children lists the direct children of an entity.
func (p *PlexCatalog) Children(ctx context.Context, ratingKey string) ([]models.Entity, error) {
	return p.metadataListing(ctx, fmt.Sprintf("/library/metadata/%s/children", ratingKey))
}

// Leaves lists every leaf entity under a show or artist.
func (p *PlexCatalog) Leaves(ctx context.Context, ratingKey string) ([]models.Entity, error) {
	return p.metadataListing(ctx, fmt.Sprintf("/library/metadata/%s/allLeaves", ratingKey))
}

func (p *PlexCatalog) metadataListing(ctx context.Context, endpoint string) ([]models.Entity, error) {
	query := url.Values{}
	query.Set("includeGuids", "1")

	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodGet, endpoint, query, nil, &container); err != nil {
		return nil, err
	}

	return metadataToEntities(container), nil
}

func metadataToEntities(container mediaContainer) []models.Entity {
	entities := make([]models.Entity, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		entities = append(entities, m.toEntity())
	}
	return entities
}

func metadataToContainers(container mediaContainer) []models.Container {
	containers := make([]models.Container, 0, len(container.MediaContainer.Metadata))
	for _, m := range container.MediaContainer.Metadata {
		containers = append(containers, m.toContainer())
	}
	return containers
}

// Collections lists the collections of one library section.
func (p *PlexCatalog) Collections(ctx context.Context, libraryKey string) ([]models.Container, error) {
	endpoint := fmt.Sprintf("/library/sections/%s/collections", libraryKey)
	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodGet, endpoint, nil, nil, &container); err != nil {
		return nil, err
	}

	return metadataToContainers(container), nil
}

// CollectionItems lists the member entities of a collection.
func (p *PlexCatalog) CollectionItems(ctx context.Context, ratingKey string) ([]models.Entity, error) {
	return p.metadataListing(ctx, fmt.Sprintf("/library/collections/%s/children", ratingKey))
}

// CreateCollection creates a collection in a library with the given members.
func (p *PlexCatalog) CreateCollection(ctx context.Context, libraryKey, title string, itemKeys []string) (string, error) {
	machine, err := p.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("title", title)
	query.Set("smart", "0")
	query.Set("sectionId", libraryKey)
	query.Set("uri", p.itemURI(machine, itemKeys))

	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodPost, "/library/collections", query, nil, &container); err != nil {
		return "", err
	}

	if len(container.MediaContainer.Metadata) == 0 {
		return "", fmt.Errorf("%w: create collection returned no metadata", shared.ErrAPIRequest)
	}

	return container.MediaContainer.Metadata[0].RatingKey, nil
}

// DeleteCollection removes a collection.
func (p *PlexCatalog) DeleteCollection(ctx context.Context, ratingKey string) error {
	return p.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/library/collections/%s", ratingKey), nil, nil, nil)
}

// Playlists lists the playlists owned by this catalog's credential holder.
func (p *PlexCatalog) Playlists(ctx context.Context) ([]models.Container, error) {
	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodGet, "/playlists", nil, nil, &container); err != nil {
		return nil, err
	}

	return metadataToContainers(container), nil
}

// PlaylistItems lists the member entities of a playlist.
func (p *PlexCatalog) PlaylistItems(ctx context.Context, ratingKey string) ([]models.Entity, error) {
	return p.metadataListing(ctx, fmt.Sprintf("/playlists/%s/items", ratingKey))
}

// CreatePlaylist creates a playlist with the given members.
func (p *PlexCatalog) CreatePlaylist(ctx context.Context, title string, itemKeys []string) (string, error) {
	machine, err := p.machineIdentifier(ctx)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("title", title)
	query.Set("smart", "0")
	query.Set("type", "video")
	query.Set("uri", p.itemURI(machine, itemKeys))

	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodPost, "/playlists", query, nil, &container); err != nil {
		return "", err
	}

	if len(container.MediaContainer.Metadata) == 0 {
		return "", fmt.Errorf("%w: create playlist returned no metadata", shared.ErrAPIRequest)
	}

	return container.MediaContainer.Metadata[0].RatingKey, nil
}

// DeletePlaylist removes a playlist.
func (p *PlexCatalog) DeletePlaylist(ctx context.Context, ratingKey string) error {
	return p.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/playlists/%s", ratingKey), nil, nil, nil)
}

// UpdateAttributes writes non-identity attributes of an entity or container.
func (p *PlexCatalog) UpdateAttributes(ctx context.Context, ratingKey string, attrs map[string]string) error {
	if len(attrs) == 0 {
		return nil
	}

	query := url.Values{}
	for key, value := range attrs {
		query.Set(key, value)
	}

	return p.doRequest(ctx, http.MethodPut, fmt.Sprintf("/library/metadata/%s", ratingKey), query, nil, nil)
}

// UploadAsset uploads a poster or background image for an entity.
func (p *PlexCatalog) UploadAsset(ctx context.Context, ratingKey string, kind AssetKind, data []byte) error {
	segment := "posters"
	if kind == ArtAsset {
		segment = "arts"
	}

	endpoint := fmt.Sprintf("/library/metadata/%s/%s", ratingKey, segment)
	return p.doRequest(ctx, http.MethodPost, endpoint, nil, bytes.NewReader(data), nil)
}

// AssetBytes downloads a server-relative asset path (a thumb or art reference).
func (p *PlexCatalog) AssetBytes(ctx context.Context, path string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: asset %s returned status %d", shared.ErrAPIRequest, path, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// MarkWatched records a full watch for the credential holder.
func (p *PlexCatalog) MarkWatched(ctx context.Context, ratingKey string) error {
	return p.scrobble(ctx, "/:/scrobble", ratingKey, nil)
}

// MarkUnwatched clears the watched state for the credential holder.
func (p *PlexCatalog) MarkUnwatched(ctx context.Context, ratingKey string) error {
	return p.scrobble(ctx, "/:/unscrobble", ratingKey, nil)
}

// SetProgress records a partial-watch resume offset in milliseconds.
func (p *PlexCatalog) SetProgress(ctx context.Context, ratingKey string, offset int64) error {
	extra := url.Values{}
	extra.Set("time", strconv.FormatInt(offset, 10))
	extra.Set("state", "stopped")
	return p.scrobble(ctx, "/:/progress", ratingKey, extra)
}

func (p *PlexCatalog) scrobble(ctx context.Context, endpoint, ratingKey string, extra url.Values) error {
	query := url.Values{}
	query.Set("key", ratingKey)
	query.Set("identifier", scrobbleIdentifier)
	for key, values := range extra {
		for _, value := range values {
			query.Add(key, value)
		}
	}

	return p.doRequest(ctx, http.MethodGet, endpoint, query, nil, nil)
}

// Users lists the accounts known to this server.
func (p *PlexCatalog) Users(ctx context.Context) ([]models.User, error) {
	var container mediaContainer
	if err := p.doRequest(ctx, http.MethodGet, "/accounts", nil, nil, &container); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(container.MediaContainer.Account))
	for _, a := range container.MediaContainer.Account {
		if a.Name == "" {
			continue
		}
		token := a.Token
		if token == "" {
			// Account 1 is the server owner; its operations use the
			// catalog's own credential.
			token = p.token
		}
		users = append(users, models.User{
			ID:    strconv.Itoa(a.ID),
			Name:  a.Name,
			Token: token,
		})
	}

	return users, nil
}
