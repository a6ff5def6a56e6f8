package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/plexsync/internal/models"
)

var _ list.Item = resourceItem{}

// resourceDescriptions explains what each resource type mirrors.
var resourceDescriptions = map[models.ResourceType]string{
	models.Collections: "library collections and their artwork",
	models.Posters:     "posters and background art for matched items",
	models.Playlists:   "per-user playlists",
	models.History:     "per-user watched state and playback progress",
	models.Markers:     "intro marker timestamps (requires target database access)",
}

// resourceItem wraps [models.ResourceType] to implement [list.Item].
type resourceItem struct {
	resource models.ResourceType
	selected bool
}

func (i resourceItem) FilterValue() string { return string(i.resource) }

func (i resourceItem) Title() string {
	box := "[ ]"
	if i.selected {
		box = "[x]"
	}
	return fmt.Sprintf("%s %s", box, i.resource)
}

func (i resourceItem) Description() string {
	return resourceDescriptions[i.resource]
}
