// package models defines the data model for the catalog sync tool
package models

import (
	"fmt"
	"strings"
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations include SyncRun.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// LibraryType classifies a library partition of a catalog.
type LibraryType string

const (
	MovieLibrary LibraryType = "movie"
	ShowLibrary  LibraryType = "show"
	MusicLibrary LibraryType = "artist"
)

// EntityType classifies a synchronizable catalog object.
type EntityType string

const (
	MovieEntity   EntityType = "movie"
	ShowEntity    EntityType = "show"
	SeasonEntity  EntityType = "season"
	EpisodeEntity EntityType = "episode"
	ArtistEntity  EntityType = "artist"
	AlbumEntity   EntityType = "album"
	TrackEntity   EntityType = "track"
)

// LibraryTypeFor returns the library type that can contain entities of type t.
func LibraryTypeFor(t EntityType) LibraryType {
	switch t {
	case ShowEntity, SeasonEntity, EpisodeEntity:
		return ShowLibrary
	case ArtistEntity, AlbumEntity, TrackEntity:
		return MusicLibrary
	default:
		return MovieLibrary
	}
}

// Library represents a named, typed partition of a catalog.
//
// Libraries carry no cross-catalog identifier; they are matched across
// catalogs by (type, title) equality.
type Library struct {
	Key   string      `json:"key"`
	Title string      `json:"title"`
	Type  LibraryType `json:"type"`
}

// Marker represents a detected segment boundary (e.g., an intro) on an
// episode. Offsets are in milliseconds.
type Marker struct {
	Type        string `json:"type"`
	StartOffset int64  `json:"startOffset"`
	EndOffset   int64  `json:"endOffset"`
}

// Entity represents any synchronizable catalog object.
//
// RatingKey is the catalog-local identifier and is meaningless outside its
// own catalog. GUIDs are stable external identifiers (tmdb://…, tvdb://…)
// usable for cross-catalog matching.
type Entity struct {
	RatingKey       string     `json:"ratingKey"`
	Type            EntityType `json:"type"`
	Title           string     `json:"title"`
	GUIDs           []string   `json:"guids,omitempty"`
	Thumb           string     `json:"thumb,omitempty"`
	Art             string     `json:"art,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Duration        int64      `json:"duration,omitempty"`
	ViewCount       int        `json:"viewCount,omitempty"`
	ViewOffset      int64      `json:"viewOffset,omitempty"`
	LeafCount       int        `json:"leafCount,omitempty"`
	ViewedLeafCount int        `json:"viewedLeafCount,omitempty"`
	Index           int        `json:"index,omitempty"`
	ParentIndex     int        `json:"parentIndex,omitempty"`
	Marker          *Marker    `json:"marker,omitempty"`
}

// Container represents a named list of entity references: a collection or a
// playlist. Smart containers are rule-generated and never synchronized.
type Container struct {
	RatingKey     string `json:"ratingKey"`
	Title         string `json:"title"`
	TitleSort     string `json:"titleSort,omitempty"`
	Summary       string `json:"summary,omitempty"`
	ContentRating string `json:"contentRating,omitempty"`
	Smart         bool   `json:"smart,omitempty"`
	Thumb         string `json:"thumb,omitempty"`
	Art           string `json:"art,omitempty"`
	LeafCount     int    `json:"leafCount,omitempty"`
}

// User represents a catalog account usable for user-scoped operations.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Token string `json:"-"`
}

// UserPair associates the same username on both catalogs with the
// credentials needed to act as that user on each side.
type UserPair struct {
	Name   string
	Source User
	Target User
}

// Usernames that expand specially when selecting users for a run.
const (
	SelfUser = "@me"  // the run's own credential holder
	AllUsers = "@all" // every username present on both catalogs
)

// ResourceType identifies one synchronizable resource category.
type ResourceType string

const (
	Collections ResourceType = "collections"
	Posters     ResourceType = "posters"
	Playlists   ResourceType = "playlists"
	History     ResourceType = "history"
	Markers     ResourceType = "markers"
)

// KnownResourceTypes lists every handler the engine implements.
var KnownResourceTypes = []ResourceType{Collections, Posters, Playlists, History, Markers}

// UserSpecific reports whether the resource type is synchronized per user
// token pair rather than once per run.
func (r ResourceType) UserSpecific() bool {
	return r == Playlists || r == History
}

// ParseResourceTypes parses a comma-separated resource selection.
// Returns an error naming the first unknown type.
func ParseResourceTypes(s string) ([]ResourceType, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty resource selection")
	}

	var types []ResourceType
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		found := false
		for _, known := range KnownResourceTypes {
			if part == string(known) {
				types = append(types, known)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown resource type %q", part)
		}
	}

	if len(types) == 0 {
		return nil, fmt.Errorf("empty resource selection")
	}

	return types, nil
}
