package tasks

import (
	"fmt"

	"github.com/desertthunder/plexsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLibraries Phase = iota
	MatchUsers
	CollectionsSync
	PostersSync
	MarkersSync
	HistorySync
	PlaylistsSync
	SnapshotFetch
	Compare
)

func (p Phase) String() string {
	switch p {
	case FetchLibraries:
		return "fetch_libraries"
	case MatchUsers:
		return "match_users"
	case CollectionsSync:
		return "collections"
	case PostersSync:
		return "posters"
	case MarkersSync:
		return "markers"
	case HistorySync:
		return "history"
	case PlaylistsSync:
		return "playlists"
	case SnapshotFetch:
		return "snapshot"
	case Compare:
		return "compare"
	default:
		return ""
	}
}

// resourcePhases maps each resource type to its progress phase.
var resourcePhases = map[models.ResourceType]Phase{
	models.Collections: CollectionsSync,
	models.Posters:     PostersSync,
	models.Markers:     MarkersSync,
	models.History:     HistorySync,
	models.Playlists:   PlaylistsSync,
}

func librariesUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibraries,
		Step:    step,
		Total:   total,
		Message: "Fetching libraries...",
	}
}

func usersUpdate(pairs []models.UserPair) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MatchUsers,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Matched %d user(s) across catalogs", len(pairs)),
		Data:    pairs,
	}
}

func resourceStartUpdate(resource models.ResourceType, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   resourcePhases[resource],
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Syncing %s (%d/%d)...", resource, step, total),
	}
}

func entityUpdate(resource models.ResourceType, step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   resourcePhases[resource],
		Step:    step,
		Total:   total,
		Message: title,
	}
}

func skipUpdate(resource models.ResourceType, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   resourcePhases[resource],
		Message: fmt.Sprintf("Skipped: %s", reason),
	}
}

func snapshotUpdate(step, total int, endpoint string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SnapshotFetch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching %s...", endpoint),
	}
}

func compareUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Compare,
		Step:    step,
		Total:   total,
		Message: message,
	}
}
