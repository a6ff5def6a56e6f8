package ui

import (
	"github.com/desertthunder/plexsync/internal/tasks"
)

// progressUpdateMsg delivers one engine progress update to the event loop.
type progressUpdateMsg tasks.ProgressUpdate

// syncCompleteMsg signals that the engine run finished, successfully or not.
type syncCompleteMsg struct {
	result *tasks.RunResult
	err    error
}
