package models

import (
	"strings"
	"testing"
)

func TestLibraryTypeFor(t *testing.T) {
	cases := []struct {
		entity EntityType
		want   LibraryType
	}{
		{MovieEntity, MovieLibrary},
		{ShowEntity, ShowLibrary},
		{SeasonEntity, ShowLibrary},
		{EpisodeEntity, ShowLibrary},
		{TrackEntity, MusicLibrary},
	}

	for _, tc := range cases {
		if got := LibraryTypeFor(tc.entity); got != tc.want {
			t.Errorf("LibraryTypeFor(%s) = %s, want %s", tc.entity, got, tc.want)
		}
	}
}

func TestUserSpecific(t *testing.T) {
	if !Playlists.UserSpecific() || !History.UserSpecific() {
		t.Error("expected playlists and history to be user-specific")
	}
	if Collections.UserSpecific() || Posters.UserSpecific() || Markers.UserSpecific() {
		t.Error("expected collections, posters, and markers to be shared")
	}
}

func TestParseResourceTypes(t *testing.T) {
	t.Run("parses a comma list with whitespace", func(t *testing.T) {
		types, err := ParseResourceTypes("collections, history ,posters")
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		want := []ResourceType{Collections, History, Posters}
		if len(types) != len(want) {
			t.Fatalf("expected %d types, got %d", len(want), len(types))
		}
		for i, r := range want {
			if types[i] != r {
				t.Errorf("expected %s at %d, got %s", r, i, types[i])
			}
		}
	})

	t.Run("rejects unknown types", func(t *testing.T) {
		_, err := ParseResourceTypes("collections,watchlists")
		if err == nil || !strings.Contains(err.Error(), "watchlists") {
			t.Errorf("expected the unknown type named, got %v", err)
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		for _, in := range []string{"", "  ", ",,"} {
			if _, err := ParseResourceTypes(in); err == nil {
				t.Errorf("expected error for %q", in)
			}
		}
	})
}

func TestSyncRunValidate(t *testing.T) {
	run := NewSyncRun("run1", "living-room", "office", []ResourceType{Collections})
	if err := run.Validate(); err != nil {
		t.Errorf("expected valid run, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*SyncRun)
	}{
		{"missing id", func(r *SyncRun) { r.RunID = "" }},
		{"missing source", func(r *SyncRun) { r.Source = "" }},
		{"missing target", func(r *SyncRun) { r.Target = "" }},
		{"no resources", func(r *SyncRun) { r.Resources = nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			run := NewSyncRun("run1", "living-room", "office", []ResourceType{Collections})
			tc.mutate(run)
			if err := run.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
