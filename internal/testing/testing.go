// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/services"
)

// FakeCatalog is a stateful in-memory test double for [services.Catalog].
//
// Reads come from the exported maps; writes mutate them so repeated engine
// runs observe their own effects. Every method counts its invocations in
// Calls, which cache tests use to assert request deduplication.
type FakeCatalog struct {
	CatalogName        string
	Libs               []models.Library
	LibraryItems       map[string][]models.Entity    // library key -> entities
	Details            map[string]*models.Entity     // rating key -> detail view
	ChildrenOf         map[string][]models.Entity    // rating key -> direct children
	LeavesOf           map[string][]models.Entity    // rating key -> leaf entities
	LibraryCollections map[string][]models.Container // library key -> collections
	ContainerItems     map[string][]models.Entity    // collection/playlist key -> members
	PlaylistList       []models.Container
	Accounts           []models.User
	AssetData          map[string][]byte

	// UserViews maps user tokens to the catalog views WithToken returns.
	UserViews map[string]*FakeCatalog

	// Error hooks. The func hooks receive the container title so tests can
	// fail one creation out of several.
	ItemsErr            error
	CollectionsErr      error
	PlaylistsErr        error
	CreateCollectionErr func(title string) error
	CreatePlaylistErr   func(title string) error

	// Recorded mutations, in call order.
	CreatedCollections []string
	CreatedPlaylists   []string
	DeletedKeys        []string
	WatchedKeys        []string
	UnwatchedKeys      []string
	ProgressSet        map[string]int64
	Uploaded           map[string][]services.AssetKind
	UpdatedAttrs       map[string]map[string]string

	Calls map[string]int

	mu      sync.Mutex
	nextKey int
}

var _ services.Catalog = (*FakeCatalog)(nil)

// NewFakeCatalog creates an empty fake with all maps initialized.
func NewFakeCatalog(name string) *FakeCatalog {
	return &FakeCatalog{
		CatalogName:        name,
		LibraryItems:       make(map[string][]models.Entity),
		Details:            make(map[string]*models.Entity),
		ChildrenOf:         make(map[string][]models.Entity),
		LeavesOf:           make(map[string][]models.Entity),
		LibraryCollections: make(map[string][]models.Container),
		ContainerItems:     make(map[string][]models.Entity),
		AssetData:          make(map[string][]byte),
		UserViews:          make(map[string]*FakeCatalog),
		ProgressSet:        make(map[string]int64),
		Uploaded:           make(map[string][]services.AssetKind),
		UpdatedAttrs:       make(map[string]map[string]string),
		Calls:              make(map[string]int),
	}
}

func (f *FakeCatalog) count(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
}

func (f *FakeCatalog) Name() string { return f.CatalogName }

func (f *FakeCatalog) Libraries(ctx context.Context) ([]models.Library, error) {
	f.count("Libraries")
	return f.Libs, nil
}

func (f *FakeCatalog) Items(ctx context.Context, libraryKey string, filter services.ItemFilter) ([]models.Entity, error) {
	f.count("Items")
	if f.ItemsErr != nil {
		return nil, f.ItemsErr
	}

	items := f.LibraryItems[libraryKey]
	if filter.Type == "" {
		return items, nil
	}

	var filtered []models.Entity
	for _, item := range items {
		if item.Type == filter.Type {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

func (f *FakeCatalog) Item(ctx context.Context, ratingKey string) (*models.Entity, error) {
	f.count("Item")
	if detail, ok := f.Details[ratingKey]; ok {
		return detail, nil
	}
	return nil, fmt.Errorf("no entity %s", ratingKey)
}

func (f *FakeCatalog) Children(ctx context.Context, ratingKey string) ([]models.Entity, error) {
	f.count("Children")
	return f.ChildrenOf[ratingKey], nil
}

func (f *FakeCatalog) Leaves(ctx context.Context, ratingKey string) ([]models.Entity, error) {
	f.count("Leaves")
	return f.LeavesOf[ratingKey], nil
}

func (f *FakeCatalog) Collections(ctx context.Context, libraryKey string) ([]models.Container, error) {
	f.count("Collections")
	if f.CollectionsErr != nil {
		return nil, f.CollectionsErr
	}
	return f.LibraryCollections[libraryKey], nil
}

func (f *FakeCatalog) CollectionItems(ctx context.Context, ratingKey string) ([]models.Entity, error) {
	f.count("CollectionItems")
	return f.ContainerItems[ratingKey], nil
}

func (f *FakeCatalog) CreateCollection(ctx context.Context, libraryKey, title string, itemKeys []string) (string, error) {
	f.count("CreateCollection")
	if f.CreateCollectionErr != nil {
		if err := f.CreateCollectionErr(title); err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextKey++
	key := fmt.Sprintf("coll-%d", f.nextKey)
	f.LibraryCollections[libraryKey] = append(f.LibraryCollections[libraryKey], models.Container{
		RatingKey: key,
		Title:     title,
		LeafCount: len(itemKeys),
	})
	members := make([]models.Entity, len(itemKeys))
	for i, itemKey := range itemKeys {
		members[i] = models.Entity{RatingKey: itemKey}
	}
	f.ContainerItems[key] = members
	f.CreatedCollections = append(f.CreatedCollections, title)

	return key, nil
}

func (f *FakeCatalog) DeleteCollection(ctx context.Context, ratingKey string) error {
	f.count("DeleteCollection")

	f.mu.Lock()
	defer f.mu.Unlock()

	for libraryKey, collections := range f.LibraryCollections {
		kept := collections[:0]
		for _, collection := range collections {
			if collection.RatingKey != ratingKey {
				kept = append(kept, collection)
			}
		}
		f.LibraryCollections[libraryKey] = kept
	}
	delete(f.ContainerItems, ratingKey)
	f.DeletedKeys = append(f.DeletedKeys, ratingKey)

	return nil
}

func (f *FakeCatalog) Playlists(ctx context.Context) ([]models.Container, error) {
	f.count("Playlists")
	if f.PlaylistsErr != nil {
		return nil, f.PlaylistsErr
	}
	return f.PlaylistList, nil
}

func (f *FakeCatalog) PlaylistItems(ctx context.Context, ratingKey string) ([]models.Entity, error) {
	f.count("PlaylistItems")
	return f.ContainerItems[ratingKey], nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, title string, itemKeys []string) (string, error) {
	f.count("CreatePlaylist")
	if f.CreatePlaylistErr != nil {
		if err := f.CreatePlaylistErr(title); err != nil {
			return "", err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextKey++
	key := fmt.Sprintf("pl-%d", f.nextKey)
	f.PlaylistList = append(f.PlaylistList, models.Container{
		RatingKey: key,
		Title:     title,
		LeafCount: len(itemKeys),
	})
	members := make([]models.Entity, len(itemKeys))
	for i, itemKey := range itemKeys {
		members[i] = models.Entity{RatingKey: itemKey}
	}
	f.ContainerItems[key] = members
	f.CreatedPlaylists = append(f.CreatedPlaylists, title)

	return key, nil
}

func (f *FakeCatalog) DeletePlaylist(ctx context.Context, ratingKey string) error {
	f.count("DeletePlaylist")

	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.PlaylistList[:0]
	for _, playlist := range f.PlaylistList {
		if playlist.RatingKey != ratingKey {
			kept = append(kept, playlist)
		}
	}
	f.PlaylistList = kept
	delete(f.ContainerItems, ratingKey)
	f.DeletedKeys = append(f.DeletedKeys, ratingKey)

	return nil
}

func (f *FakeCatalog) UpdateAttributes(ctx context.Context, ratingKey string, attrs map[string]string) error {
	f.count("UpdateAttributes")

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdatedAttrs[ratingKey] == nil {
		f.UpdatedAttrs[ratingKey] = make(map[string]string)
	}
	for k, v := range attrs {
		f.UpdatedAttrs[ratingKey][k] = v
	}
	return nil
}

func (f *FakeCatalog) UploadAsset(ctx context.Context, ratingKey string, kind services.AssetKind, data []byte) error {
	f.count("UploadAsset")

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Uploaded[ratingKey] = append(f.Uploaded[ratingKey], kind)
	return nil
}

func (f *FakeCatalog) AssetBytes(ctx context.Context, path string) ([]byte, error) {
	f.count("AssetBytes")
	if data, ok := f.AssetData[path]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("no asset at %s", path)
}

func (f *FakeCatalog) MarkWatched(ctx context.Context, ratingKey string) error {
	f.count("MarkWatched")

	f.mu.Lock()
	defer f.mu.Unlock()

	f.WatchedKeys = append(f.WatchedKeys, ratingKey)
	return nil
}

func (f *FakeCatalog) MarkUnwatched(ctx context.Context, ratingKey string) error {
	f.count("MarkUnwatched")

	f.mu.Lock()
	defer f.mu.Unlock()

	f.UnwatchedKeys = append(f.UnwatchedKeys, ratingKey)
	return nil
}

func (f *FakeCatalog) SetProgress(ctx context.Context, ratingKey string, offset int64) error {
	f.count("SetProgress")

	f.mu.Lock()
	defer f.mu.Unlock()

	f.ProgressSet[ratingKey] = offset
	return nil
}

func (f *FakeCatalog) Users(ctx context.Context) ([]models.User, error) {
	f.count("Users")
	return f.Accounts, nil
}

func (f *FakeCatalog) WithToken(token string) services.Catalog {
	f.count("WithToken")
	if view, ok := f.UserViews[token]; ok {
		return view
	}
	return f
}

// FakeMarkerStore records statements executed against it.
type FakeMarkerStore struct {
	Affected int64 // rows affected returned for every Exec
	ExecErr  error
	Stmts    []string
	Args     [][]any
	Closed   bool
}

var _ services.MarkerStore = (*FakeMarkerStore)(nil)

func (f *FakeMarkerStore) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	if f.ExecErr != nil {
		return 0, f.ExecErr
	}
	f.Stmts = append(f.Stmts, stmt)
	f.Args = append(f.Args, args)
	return f.Affected, nil
}

func (f *FakeMarkerStore) Close() error {
	f.Closed = true
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
