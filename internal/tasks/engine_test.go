package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/shared"
	tu "github.com/desertthunder/plexsync/internal/testing"
)

// moviePair builds a source/target fixture with one matched movie library
// and two movies resolvable by identifier.
func moviePair() (*tu.FakeCatalog, *tu.FakeCatalog) {
	source := tu.NewFakeCatalog("src")
	source.Libs = []models.Library{{Key: "1", Title: "Movies", Type: models.MovieLibrary}}
	source.LibraryItems["1"] = []models.Entity{
		{RatingKey: "m1", Type: models.MovieEntity, Title: "Heat", GUIDs: []string{"tmdb://949"}},
		{RatingKey: "m2", Type: models.MovieEntity, Title: "Ronin", GUIDs: []string{"tmdb://8834"}},
	}

	target := tu.NewFakeCatalog("dst")
	target.Libs = []models.Library{{Key: "10", Title: "Movies", Type: models.MovieLibrary}}
	target.LibraryItems["10"] = []models.Entity{
		{RatingKey: "t1", Type: models.MovieEntity, Title: "Heat", GUIDs: []string{"tmdb://949"}},
		{RatingKey: "t2", Type: models.MovieEntity, Title: "Ronin", GUIDs: []string{"tmdb://8834"}},
	}

	return source, target
}

func sourceMovies(source *tu.FakeCatalog) []models.Entity {
	return source.LibraryItems["1"]
}

func TestValidateSelection(t *testing.T) {
	source, target := moviePair()
	engine := NewCatalogEngine(source, target, nil)

	t.Run("empty selection rejected", func(t *testing.T) {
		_, err := engine.Run(context.Background(), nil, RunOptions{})
		if !errors.Is(err, shared.ErrInvalidSelection) {
			t.Errorf("expected ErrInvalidSelection, got %v", err)
		}
	})

	t.Run("unknown resource type rejected", func(t *testing.T) {
		_, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{"watchlists"},
		})
		if !errors.Is(err, shared.ErrInvalidSelection) {
			t.Errorf("expected ErrInvalidSelection, got %v", err)
		}
	})

	t.Run("markers without store rejected before any write", func(t *testing.T) {
		_, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.Collections, models.Markers},
		})
		if !errors.Is(err, shared.ErrMarkerStore) {
			t.Errorf("expected ErrMarkerStore, got %v", err)
		}
		if len(target.CreatedCollections) != 0 {
			t.Error("expected no writes when the selection is invalid")
		}
	})

	t.Run("uninitialized catalogs rejected", func(t *testing.T) {
		empty := NewCatalogEngine(nil, nil, nil)
		_, err := empty.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.Collections},
		})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSyncCollections(t *testing.T) {
	newFixture := func() (*tu.FakeCatalog, *tu.FakeCatalog, *CatalogEngine) {
		source, target := moviePair()
		source.LibraryCollections["1"] = []models.Container{
			{RatingKey: "c1", Title: "Crime", TitleSort: "Crime Films", Summary: "heists", ContentRating: "R"},
		}
		source.ContainerItems["c1"] = sourceMovies(source)
		engine := NewCatalogEngine(source, target, nil)
		return source, target, engine
	}

	opts := RunOptions{Resources: []models.ResourceType{models.Collections}}

	t.Run("recreates source collections on target", func(t *testing.T) {
		_, target, engine := newFixture()

		result, err := engine.Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		collections := target.LibraryCollections["10"]
		if len(collections) != 1 || collections[0].Title != "Crime" {
			t.Fatalf("expected one Crime collection on target, got %+v", collections)
		}
		members := target.ContainerItems[collections[0].RatingKey]
		if len(members) != 2 || members[0].RatingKey != "t1" || members[1].RatingKey != "t2" {
			t.Errorf("expected resolved members t1,t2, got %+v", members)
		}
		if len(result.Touched[models.Collections]) != 1 {
			t.Errorf("expected one touched collection, got %d", len(result.Touched[models.Collections]))
		}

		attrs := target.UpdatedAttrs[collections[0].RatingKey]
		wantAttrs := map[string]string{"summary": "heists", "titleSort": "Crime Films", "contentRating": "R"}
		for key, want := range wantAttrs {
			if attrs[key] != want {
				t.Errorf("expected %s %q pushed to the new collection, got %q", key, want, attrs[key])
			}
		}
	})

	t.Run("second run converges to the same state", func(t *testing.T) {
		_, target, engine := newFixture()

		if _, err := engine.Run(context.Background(), nil, opts); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		firstKey := target.LibraryCollections["10"][0].RatingKey

		if _, err := engine.Run(context.Background(), nil, opts); err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		collections := target.LibraryCollections["10"]
		if len(collections) != 1 || collections[0].Title != "Crime" {
			t.Fatalf("expected exactly one Crime collection after second run, got %+v", collections)
		}

		deleted := false
		for _, key := range target.DeletedKeys {
			if key == firstKey {
				deleted = true
			}
		}
		if !deleted {
			t.Error("expected the first run's collection to be replaced")
		}
	})

	t.Run("renamed source collection leaves no orphan", func(t *testing.T) {
		source, target, engine := newFixture()

		if _, err := engine.Run(context.Background(), nil, opts); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		source.LibraryCollections["1"][0].Title = "Classics"
		if _, err := engine.Run(context.Background(), nil, opts); err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		collections := target.LibraryCollections["10"]
		if len(collections) != 1 || collections[0].Title != "Classics" {
			t.Errorf("expected only the renamed collection, got %+v", collections)
		}
	})

	t.Run("smart collections survive untouched", func(t *testing.T) {
		source, target, engine := newFixture()
		source.LibraryCollections["1"] = append(source.LibraryCollections["1"],
			models.Container{RatingKey: "c2", Title: "Recently Added", Smart: true})
		target.LibraryCollections["10"] = []models.Container{
			{RatingKey: "sm1", Title: "Top Rated", Smart: true},
		}

		if _, err := engine.Run(context.Background(), nil, opts); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		var smartKept bool
		for _, collection := range target.LibraryCollections["10"] {
			if collection.RatingKey == "sm1" {
				smartKept = true
			}
			if collection.Title == "Recently Added" {
				t.Error("smart source collection should not be recreated")
			}
		}
		if !smartKept {
			t.Error("smart target collection should not be deleted")
		}
	})

	t.Run("one failed creation skips that collection only", func(t *testing.T) {
		source, target, engine := newFixture()
		source.LibraryCollections["1"] = []models.Container{
			{RatingKey: "c1", Title: "Crime"},
			{RatingKey: "c2", Title: "Bad"},
			{RatingKey: "c3", Title: "Slow Burns"},
		}
		source.ContainerItems["c1"] = sourceMovies(source)
		source.ContainerItems["c2"] = sourceMovies(source)
		source.ContainerItems["c3"] = sourceMovies(source)
		target.CreateCollectionErr = func(title string) error {
			if title == "Bad" {
				return errors.New("server rejected collection")
			}
			return nil
		}

		result, err := engine.Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("run should not fail on a single creation error: %v", err)
		}

		if len(result.Touched[models.Collections]) != 2 {
			t.Errorf("expected 2 touched collections, got %d", len(result.Touched[models.Collections]))
		}

		var skipFound bool
		for _, skip := range result.Skipped {
			if skip.Key == "Bad" && strings.Contains(skip.Reason, "create failed") {
				skipFound = true
			}
		}
		if !skipFound {
			t.Errorf("expected a create-failed skip for Bad, got %+v", result.Skipped)
		}
	})

	t.Run("unresolvable members produce skips", func(t *testing.T) {
		source, _, engine := newFixture()
		source.ContainerItems["c1"] = []models.Entity{
			{RatingKey: "m9", Type: models.MovieEntity, Title: "Only Here", GUIDs: []string{"tmdb://404"}},
		}

		result, err := engine.Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(result.Touched[models.Collections]) != 0 {
			t.Error("expected no touched collections when no members resolve")
		}
		var emptySkip bool
		for _, skip := range result.Skipped {
			if skip.Key == "Crime" && strings.Contains(skip.Reason, "no members resolved") {
				emptySkip = true
			}
		}
		if !emptySkip {
			t.Errorf("expected an empty-collection skip, got %+v", result.Skipped)
		}
	})

	t.Run("missing target library skips the library", func(t *testing.T) {
		source, target, engine := newFixture()
		source.Libs = append(source.Libs, models.Library{Key: "2", Title: "Anime", Type: models.ShowLibrary})
		_ = target

		result, err := engine.Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		var librarySkip bool
		for _, skip := range result.Skipped {
			if skip.Key == "Anime" && strings.Contains(skip.Reason, "no matching target library") {
				librarySkip = true
			}
		}
		if !librarySkip {
			t.Errorf("expected a library skip for Anime, got %+v", result.Skipped)
		}
	})

	t.Run("read error aborts the handler", func(t *testing.T) {
		source, _, engine := newFixture()
		source.CollectionsErr = errors.New("listing unavailable")

		result, err := engine.Run(context.Background(), nil, opts)
		if err == nil {
			t.Fatal("expected error when source collections cannot be listed")
		}
		if !strings.Contains(err.Error(), "collections sync failed") {
			t.Errorf("expected resource-qualified error, got %v", err)
		}
		if result == nil {
			t.Error("expected partial result alongside the error")
		}
	})
}

func TestSyncHistory(t *testing.T) {
	t.Run("three watch states map to three writes", func(t *testing.T) {
		source, target := moviePair()
		source.LibraryItems["1"] = []models.Entity{
			{RatingKey: "m1", Type: models.MovieEntity, Title: "Heat", GUIDs: []string{"tmdb://949"}, ViewCount: 2},
			{RatingKey: "m2", Type: models.MovieEntity, Title: "Ronin", GUIDs: []string{"tmdb://8834"}, ViewOffset: 5000},
			{RatingKey: "m3", Type: models.MovieEntity, Title: "Spartan", GUIDs: []string{"tmdb://11017"}},
		}
		target.LibraryItems["10"] = append(target.LibraryItems["10"],
			models.Entity{RatingKey: "t3", Type: models.MovieEntity, Title: "Spartan", GUIDs: []string{"tmdb://11017"}})

		engine := NewCatalogEngine(source, target, nil)
		result, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.History},
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(target.WatchedKeys) != 1 || target.WatchedKeys[0] != "t1" {
			t.Errorf("expected t1 marked watched, got %v", target.WatchedKeys)
		}
		if target.ProgressSet["t2"] != 5000 {
			t.Errorf("expected exact 5000ms offset on t2, got %d", target.ProgressSet["t2"])
		}
		if len(target.UnwatchedKeys) != 1 || target.UnwatchedKeys[0] != "t3" {
			t.Errorf("expected t3 marked unwatched, got %v", target.UnwatchedKeys)
		}
		if len(result.Touched[models.History]) != 3 {
			t.Errorf("expected 3 touched entities, got %d", len(result.Touched[models.History]))
		}
	})

	t.Run("uniform shows use the whole-series shortcut", func(t *testing.T) {
		source := tu.NewFakeCatalog("src")
		source.Libs = []models.Library{{Key: "2", Title: "TV", Type: models.ShowLibrary}}
		source.LibraryItems["2"] = []models.Entity{
			{RatingKey: "s1", Type: models.ShowEntity, Title: "The Wire", GUIDs: []string{"tvdb://79126"}, LeafCount: 5, ViewedLeafCount: 5},
			{RatingKey: "s2", Type: models.ShowEntity, Title: "Deadwood", GUIDs: []string{"tvdb://72023"}, LeafCount: 4, ViewedLeafCount: 2},
			{RatingKey: "e1", Type: models.EpisodeEntity, Title: "Deadwood e1", GUIDs: []string{"tvdb://ep1"}},
			{RatingKey: "e2", Type: models.EpisodeEntity, Title: "Deadwood e2", GUIDs: []string{"tvdb://ep2"}},
		}
		source.LeavesOf["s2"] = []models.Entity{
			{RatingKey: "e1", Type: models.EpisodeEntity, Title: "Deadwood e1", GUIDs: []string{"tvdb://ep1"}, ViewCount: 1},
			{RatingKey: "e2", Type: models.EpisodeEntity, Title: "Deadwood e2", GUIDs: []string{"tvdb://ep2"}},
		}

		target := tu.NewFakeCatalog("dst")
		target.Libs = []models.Library{{Key: "20", Title: "TV", Type: models.ShowLibrary}}
		target.LibraryItems["20"] = []models.Entity{
			{RatingKey: "ts1", Type: models.ShowEntity, Title: "The Wire", GUIDs: []string{"tvdb://79126"}},
			{RatingKey: "ts2", Type: models.ShowEntity, Title: "Deadwood", GUIDs: []string{"tvdb://72023"}},
			{RatingKey: "te1", Type: models.EpisodeEntity, Title: "Deadwood e1", GUIDs: []string{"tvdb://ep1"}},
			{RatingKey: "te2", Type: models.EpisodeEntity, Title: "Deadwood e2", GUIDs: []string{"tvdb://ep2"}},
		}

		engine := NewCatalogEngine(source, target, nil)
		if _, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.History},
		}); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		var wireWatched bool
		for _, key := range target.WatchedKeys {
			if key == "ts1" {
				wireWatched = true
			}
		}
		if !wireWatched {
			t.Errorf("expected single whole-series write for ts1, got %v", target.WatchedKeys)
		}
		if source.Calls["Leaves"] != 1 {
			t.Errorf("expected leaves fetched only for the partially watched show, got %d calls", source.Calls["Leaves"])
		}

		var e1Watched, e2Unwatched bool
		for _, key := range target.WatchedKeys {
			if key == "te1" {
				e1Watched = true
			}
		}
		for _, key := range target.UnwatchedKeys {
			if key == "te2" {
				e2Unwatched = true
			}
		}
		if !e1Watched || !e2Unwatched {
			t.Errorf("expected per-episode writes for Deadwood, watched=%v unwatched=%v", target.WatchedKeys, target.UnwatchedKeys)
		}
	})

	t.Run("unresolved entity is a skip, not an error", func(t *testing.T) {
		source, target := moviePair()
		source.LibraryItems["1"] = append(source.LibraryItems["1"],
			models.Entity{RatingKey: "m9", Type: models.MovieEntity, Title: "Only Here", GUIDs: []string{"tmdb://404"}, ViewCount: 1})

		engine := NewCatalogEngine(source, target, nil)
		result, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.History},
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		var skipFound bool
		for _, skip := range result.Skipped {
			if skip.Key == "m9" {
				skipFound = true
			}
		}
		if !skipFound {
			t.Errorf("expected a skip for the unresolved movie, got %+v", result.Skipped)
		}
	})
}

func TestSyncMarkers(t *testing.T) {
	newFixture := func() (*tu.FakeCatalog, *tu.FakeCatalog) {
		source := tu.NewFakeCatalog("src")
		source.Libs = []models.Library{{Key: "2", Title: "TV", Type: models.ShowLibrary}}
		source.LibraryItems["2"] = []models.Entity{
			{RatingKey: "e1", Type: models.EpisodeEntity, Title: "Pilot", GUIDs: []string{"tvdb://ep1"}},
		}
		source.Details["e1"] = &models.Entity{
			RatingKey: "e1", Type: models.EpisodeEntity, Title: "Pilot", GUIDs: []string{"tvdb://ep1"},
			Marker: &models.Marker{Type: "intro", StartOffset: 1000, EndOffset: 91000},
		}

		target := tu.NewFakeCatalog("dst")
		target.Libs = []models.Library{{Key: "20", Title: "TV", Type: models.ShowLibrary}}
		target.LibraryItems["20"] = []models.Entity{
			{RatingKey: "4242", Type: models.EpisodeEntity, Title: "Pilot", GUIDs: []string{"tvdb://ep1"}},
		}

		return source, target
	}

	opts := RunOptions{Resources: []models.ResourceType{models.Markers}}

	t.Run("updates the existing intro marker row", func(t *testing.T) {
		source, target := newFixture()
		store := &tu.FakeMarkerStore{Affected: 1}
		engine := NewCatalogEngine(source, target, store)

		result, err := engine.Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(store.Stmts) != 1 {
			t.Fatalf("expected one statement, got %d", len(store.Stmts))
		}
		if !strings.Contains(store.Stmts[0], "UPDATE taggings") || !strings.Contains(store.Stmts[0], "text = 'intro'") {
			t.Errorf("unexpected statement: %s", store.Stmts[0])
		}
		args := store.Args[0]
		if args[0] != int64(1000) || args[1] != int64(91000) || args[2] != int64(4242) {
			t.Errorf("unexpected statement args: %v", args)
		}
		if len(result.Touched[models.Markers]) != 1 {
			t.Errorf("expected one touched marker, got %d", len(result.Touched[models.Markers]))
		}
	})

	t.Run("zero affected rows is a skip, never an insert", func(t *testing.T) {
		source, target := newFixture()
		store := &tu.FakeMarkerStore{Affected: 0}
		engine := NewCatalogEngine(source, target, store)

		result, err := engine.Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(result.Touched[models.Markers]) != 0 {
			t.Error("expected no touched markers")
		}
		var skipFound bool
		for _, skip := range result.Skipped {
			if strings.Contains(skip.Reason, "no intro marker row") {
				skipFound = true
			}
		}
		if !skipFound {
			t.Errorf("expected a no-row skip, got %+v", result.Skipped)
		}
	})

	t.Run("statement error aborts the run", func(t *testing.T) {
		source, target := newFixture()
		store := &tu.FakeMarkerStore{ExecErr: errors.New("database is locked")}
		engine := NewCatalogEngine(source, target, store)

		_, err := engine.Run(context.Background(), nil, opts)
		if err == nil {
			t.Fatal("expected error when the marker statement fails")
		}
		if !strings.Contains(err.Error(), "markers sync failed") {
			t.Errorf("expected resource-qualified error, got %v", err)
		}
	})

	t.Run("episodes without markers are passed over silently", func(t *testing.T) {
		source, target := newFixture()
		source.Details["e1"].Marker = nil
		store := &tu.FakeMarkerStore{Affected: 1}
		engine := NewCatalogEngine(source, target, store)

		result, err := engine.Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if len(store.Stmts) != 0 {
			t.Error("expected no statements for a markerless episode")
		}
		if len(result.Skipped) != 0 {
			t.Errorf("a missing source marker is not a skip, got %+v", result.Skipped)
		}
	})
}

func TestSyncPlaylists(t *testing.T) {
	t.Run("replaces own playlists by default", func(t *testing.T) {
		source, target := moviePair()
		source.PlaylistList = []models.Container{{RatingKey: "p1", Title: "Road Trip"}}
		source.ContainerItems["p1"] = sourceMovies(source)
		target.PlaylistList = []models.Container{
			{RatingKey: "old1", Title: "Stale Mix"},
			{RatingKey: "smart1", Title: "Most Played", Smart: true},
		}

		engine := NewCatalogEngine(source, target, nil)
		result, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.Playlists},
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		titles := make([]string, 0, len(target.PlaylistList))
		for _, playlist := range target.PlaylistList {
			titles = append(titles, playlist.Title)
		}
		if len(titles) != 2 {
			t.Fatalf("expected smart playlist plus recreated playlist, got %v", titles)
		}
		var roadTrip, smartKept bool
		for _, title := range titles {
			if title == "Road Trip" {
				roadTrip = true
			}
			if title == "Most Played" {
				smartKept = true
			}
		}
		if !roadTrip || !smartKept {
			t.Errorf("expected Road Trip recreated and smart playlist kept, got %v", titles)
		}
		if len(result.Touched[models.Playlists]) != 1 {
			t.Errorf("expected one touched playlist, got %d", len(result.Touched[models.Playlists]))
		}
	})

	t.Run("named users sync through their own token views", func(t *testing.T) {
		source, target := moviePair()
		source.Accounts = []models.User{{ID: "1", Name: "alice", Token: "src-alice"}}
		target.Accounts = []models.User{{ID: "9", Name: "alice", Token: "dst-alice"}}

		aliceSource := tu.NewFakeCatalog("src-alice")
		aliceSource.PlaylistList = []models.Container{{RatingKey: "ap1", Title: "Alice Mix"}}
		aliceSource.ContainerItems["ap1"] = sourceMovies(source)
		source.UserViews["src-alice"] = aliceSource

		aliceTarget := tu.NewFakeCatalog("dst-alice")
		target.UserViews["dst-alice"] = aliceTarget

		engine := NewCatalogEngine(source, target, nil)
		if _, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.Playlists},
			Users:     []string{"alice"},
		}); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(aliceTarget.CreatedPlaylists) != 1 || aliceTarget.CreatedPlaylists[0] != "Alice Mix" {
			t.Errorf("expected Alice Mix created on alice's target view, got %v", aliceTarget.CreatedPlaylists)
		}
		if len(target.CreatedPlaylists) != 0 {
			t.Errorf("expected no playlists created on the base target view, got %v", target.CreatedPlaylists)
		}
	})

	t.Run("user missing on one side is a skip", func(t *testing.T) {
		source, target := moviePair()
		source.Accounts = []models.User{{ID: "1", Name: "ghost"}}

		engine := NewCatalogEngine(source, target, nil)
		result, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.Playlists},
			Users:     []string{"ghost"},
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		var skipFound bool
		for _, skip := range result.Skipped {
			if skip.Key == "ghost" && strings.Contains(skip.Reason, "not present on both") {
				skipFound = true
				// The run only selected playlists, so the skip must not
				// name a resource type that never ran.
				if skip.Resource != models.Playlists {
					t.Errorf("expected the skip recorded under playlists, got %s", skip.Resource)
				}
			}
		}
		if !skipFound {
			t.Errorf("expected a skip for the unmatched user, got %+v", result.Skipped)
		}
	})
}

func TestSyncPosters(t *testing.T) {
	t.Run("copies thumb and art for resolved entities", func(t *testing.T) {
		source, target := moviePair()
		source.LibraryItems["1"][0].Thumb = "/thumb/m1"
		source.LibraryItems["1"][0].Art = "/art/m1"
		source.AssetData["/thumb/m1"] = []byte("poster-bytes")
		source.AssetData["/art/m1"] = []byte("art-bytes")

		engine := NewCatalogEngine(source, target, nil)
		result, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.Posters},
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if len(target.Uploaded["t1"]) != 2 {
			t.Errorf("expected poster and art uploaded for t1, got %v", target.Uploaded["t1"])
		}
		if len(result.Touched[models.Posters]) != 1 {
			t.Errorf("expected one touched entity, got %d", len(result.Touched[models.Posters]))
		}
	})

	t.Run("entities without assets are passed over silently", func(t *testing.T) {
		source, target := moviePair()
		engine := NewCatalogEngine(source, target, nil)

		result, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.Posters},
		})
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if len(result.Touched[models.Posters]) != 0 || len(result.Skipped) != 0 {
			t.Errorf("expected nothing touched or skipped, got %+v", result)
		}
		if len(target.Uploaded) != 0 {
			t.Errorf("expected no uploads, got %v", target.Uploaded)
		}
	})
}

func TestRunCaching(t *testing.T) {
	t.Run("shared listings cost one call across handlers", func(t *testing.T) {
		source, target := moviePair()
		source.LibraryItems["1"][0].Thumb = "/thumb/m1"
		source.AssetData["/thumb/m1"] = []byte("poster-bytes")
		source.LibraryCollections["1"] = []models.Container{{RatingKey: "c1", Title: "Crime"}}
		source.ContainerItems["c1"] = sourceMovies(source)

		engine := NewCatalogEngine(source, target, nil)
		if _, err := engine.Run(context.Background(), nil, RunOptions{
			Resources: []models.ResourceType{models.Collections, models.Posters},
		}); err != nil {
			t.Fatalf("run failed: %v", err)
		}

		if source.Calls["Libraries"] != 1 {
			t.Errorf("expected one source library listing, got %d", source.Calls["Libraries"])
		}
		if target.Calls["Libraries"] != 1 {
			t.Errorf("expected one target library listing, got %d", target.Calls["Libraries"])
		}
		// Both handlers resolve against the same target movie listing.
		if target.Calls["Items"] != 1 {
			t.Errorf("expected one target item listing, got %d", target.Calls["Items"])
		}
	})

	t.Run("runs never share cached state", func(t *testing.T) {
		source, target := moviePair()
		source.LibraryCollections["1"] = []models.Container{{RatingKey: "c1", Title: "Crime"}}
		source.ContainerItems["c1"] = sourceMovies(source)

		engine := NewCatalogEngine(source, target, nil)
		opts := RunOptions{Resources: []models.ResourceType{models.Collections}}

		if _, err := engine.Run(context.Background(), nil, opts); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		first := source.Calls["Collections"]
		if _, err := engine.Run(context.Background(), nil, opts); err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		if source.Calls["Collections"] != first*2 {
			t.Errorf("expected the second run to refetch listings, got %d calls after %d", source.Calls["Collections"], first)
		}
	})
}

func TestRunProgress(t *testing.T) {
	source, target := moviePair()
	source.LibraryCollections["1"] = []models.Container{{RatingKey: "c1", Title: "Crime"}}
	source.ContainerItems["c1"] = sourceMovies(source)

	engine := NewCatalogEngine(source, target, nil)
	progress := make(chan ProgressUpdate, 100)

	if _, err := engine.Run(context.Background(), progress, RunOptions{
		Resources: []models.ResourceType{models.Collections},
	}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	close(progress)

	var sawCollections bool
	for update := range progress {
		if update.Phase == CollectionsSync {
			sawCollections = true
		}
	}
	if !sawCollections {
		t.Error("expected collections progress updates")
	}
}

func TestRunProgressNeverBlocks(t *testing.T) {
	source, target := moviePair()
	source.LibraryCollections["1"] = []models.Container{{RatingKey: "c1", Title: "Crime"}}
	source.ContainerItems["c1"] = sourceMovies(source)

	engine := NewCatalogEngine(source, target, nil)
	// Unbuffered channel with no reader: sends must be dropped, not block.
	progress := make(chan ProgressUpdate)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := engine.Run(context.Background(), progress, RunOptions{
			Resources: []models.ResourceType{models.Collections},
		}); err != nil {
			t.Errorf("run failed: %v", err)
		}
	}()

	<-done
}
