package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/shared"
)

func TestDiff(t *testing.T) {
	source, target := moviePair()
	source.LibraryCollections["1"] = []models.Container{
		{RatingKey: "c1", Title: "Crime"},
		{RatingKey: "c2", Title: "Only On Source"},
		{RatingKey: "c3", Title: "Recently Added", Smart: true},
	}
	target.LibraryCollections["10"] = []models.Container{
		{RatingKey: "tc1", Title: "crime"},
		{RatingKey: "tc2", Title: "Only On Target"},
	}
	source.PlaylistList = []models.Container{{RatingKey: "p1", Title: "Road Trip"}}

	engine := NewCatalogEngine(source, target, nil)
	result, err := engine.Diff(context.Background(), nil)
	if err != nil {
		t.Fatalf("diff failed: %v", err)
	}

	collections := result.Collections
	if collections.Matched != 1 {
		t.Errorf("expected 1 matched collection by normalized title, got %d", collections.Matched)
	}
	if len(collections.MissingInTarget) != 1 || collections.MissingInTarget[0].Title != "Only On Source" {
		t.Errorf("unexpected missing set %+v", collections.MissingInTarget)
	}
	if len(collections.ExtraInTarget) != 1 || collections.ExtraInTarget[0].Title != "Only On Target" {
		t.Errorf("unexpected extra set %+v", collections.ExtraInTarget)
	}

	playlists := result.Playlists
	if playlists.Matched != 0 || len(playlists.MissingInTarget) != 1 {
		t.Errorf("unexpected playlist diff %+v", playlists)
	}

	// Diff never mutates either side.
	if len(target.CreatedCollections) != 0 || len(target.DeletedKeys) != 0 {
		t.Error("expected no writes during a diff")
	}
}

func TestDiffUninitialized(t *testing.T) {
	engine := NewCatalogEngine(nil, nil, nil)
	if _, err := engine.Diff(context.Background(), nil); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	t.Run("captures one side's full state", func(t *testing.T) {
		source, target := moviePair()
		source.LibraryCollections["1"] = []models.Container{{RatingKey: "c1", Title: "Crime"}}
		source.PlaylistList = []models.Container{{RatingKey: "p1", Title: "Road Trip"}}

		engine := NewCatalogEngine(source, target, nil)
		result, err := engine.Snapshot(context.Background(), nil, SourceSide)
		if err != nil {
			t.Fatalf("snapshot failed: %v", err)
		}

		if result.Catalog != "src" {
			t.Errorf("expected catalog name src, got %q", result.Catalog)
		}
		if len(result.Libraries) != 1 || len(result.Items["1"]) != 2 {
			t.Errorf("unexpected library state %+v", result)
		}
		if len(result.Collections["1"]) != 1 || len(result.Playlists) != 1 {
			t.Errorf("unexpected container state %+v", result)
		}
		if len(result.Errors) != 0 {
			t.Errorf("expected no fetch errors, got %+v", result.Errors)
		}
	})

	t.Run("fetch failures collect instead of aborting", func(t *testing.T) {
		source, target := moviePair()
		source.ItemsErr = errors.New("section unavailable")

		engine := NewCatalogEngine(source, target, nil)
		result, err := engine.Snapshot(context.Background(), nil, SourceSide)
		if err != nil {
			t.Fatalf("snapshot failed: %v", err)
		}

		if len(result.Errors) != 1 || result.Errors[0].Endpoint != "items/1" {
			t.Errorf("expected one recorded fetch error, got %+v", result.Errors)
		}
		if len(result.Libraries) != 1 {
			t.Error("expected libraries captured despite the item failure")
		}
	})

	t.Run("unknown side rejected", func(t *testing.T) {
		source, target := moviePair()
		engine := NewCatalogEngine(source, target, nil)
		if _, err := engine.Snapshot(context.Background(), nil, "middle"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
