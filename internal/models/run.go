package models

import (
	"fmt"
	"time"
)

var _ Model = (*SyncRun)(nil)

// SyncRun records one synchronization run for the history database.
type SyncRun struct {
	RunID      string
	Sequence   int
	Source     string // source catalog name
	Target     string // target catalog name
	Resources  []ResourceType
	Touched    map[ResourceType]int
	Skipped    map[ResourceType]int
	ErrorText  string // empty when the run completed cleanly
	StartedAt  time.Time
	FinishedAt time.Time
	Created    time.Time
	Updated    time.Time
}

// NewSyncRun creates a run record for the given catalog pair and selection.
func NewSyncRun(runID, source, target string, resources []ResourceType) *SyncRun {
	now := time.Now().UTC()
	return &SyncRun{
		RunID:     runID,
		Source:    source,
		Target:    target,
		Resources: resources,
		Touched:   make(map[ResourceType]int),
		Skipped:   make(map[ResourceType]int),
		StartedAt: now,
		Created:   now,
		Updated:   now,
	}
}

func (r *SyncRun) ID() string           { return r.RunID }
func (r *SyncRun) CreatedAt() time.Time { return r.Created }
func (r *SyncRun) UpdatedAt() time.Time { return r.Updated }

// Validate checks that the run has an identifier, both catalog names, and a
// non-empty resource selection.
func (r *SyncRun) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("sync run missing id")
	}
	if r.Source == "" || r.Target == "" {
		return fmt.Errorf("sync run missing catalog names")
	}
	if len(r.Resources) == 0 {
		return fmt.Errorf("sync run has no resource types")
	}
	return nil
}
