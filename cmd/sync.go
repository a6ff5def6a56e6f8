package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/plexsync/internal/formatter"
	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/repositories"
	"github.com/desertthunder/plexsync/internal/shared"
	"github.com/desertthunder/plexsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync mirrors the selected resource types from the source to the target.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	resources, err := models.ParseResourceTypes(cmd.String("resources"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidSelection, err)
	}

	var users []string
	if raw := cmd.String("users"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				users = append(users, name)
			}
		}
	}

	opts := tasks.RunOptions{
		Resources:             resources,
		Users:                 users,
		IncludeEpisodePosters: cmd.Bool("episode-posters") || r.config.Sync.IncludeEpisodePosters,
	}

	if cmd.Bool("dry-run") {
		return r.syncDryRun(ctx, resources)
	}

	r.logger.Info("starting sync", "source", r.config.Source.Name, "target", r.config.Target.Name, "resources", cmd.String("resources"))
	r.writePlain("Starting catalog sync...\n")
	r.writePlain("Source: %s\n", r.config.Source.Name)
	r.writePlain("Target: %s\n\n", r.config.Target.Name)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		last := tasks.Phase(-1)
		for update := range progressCh {
			switch update.Phase {
			case tasks.MatchUsers:
				r.writePlain("👥 %s\n", update.Message)
			case tasks.CollectionsSync, tasks.PostersSync, tasks.MarkersSync, tasks.HistorySync, tasks.PlaylistsSync:
				// The first update of each resource phase is its header.
				if update.Phase != last {
					r.writePlain("\n📦 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			}
			last = update.Phase
		}
	}()

	result, runErr := r.engine.Run(ctx, progressCh, opts)
	close(progressCh)

	if result != nil && !cmd.Bool("no-save") {
		if err := r.saveRun(result, resources, runErr); err != nil {
			r.logger.Warn("failed to record run", "error", err)
		}
	}

	if runErr != nil {
		if result != nil {
			r.writePlain("\nSync aborted; partial results below.\n")
			r.printRunSummary(result)
		}
		return runErr
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.printRunSummary(result)

	if path := cmd.String("summary-file"); path != "" {
		written, err := formatter.WriteTextExport(result, path)
		if err != nil {
			return err
		}
		r.writePlain("\nSummary written to %s\n", written)
	}

	return nil
}

// syncDryRun previews the run without mutating the target: it diffs the
// container state for the selected resource types and prints what a real
// run would create or replace.
func (r *Runner) syncDryRun(ctx context.Context, resources []models.ResourceType) error {
	r.logger.Info("dry run requested", "source", r.config.Source.Name, "target", r.config.Target.Name)
	r.writePlain("Dry run: no changes will be made.\n\n")

	result, err := r.engine.Diff(ctx, nil)
	if err != nil {
		return err
	}

	text, err := formatter.ExportDiffToText(result)
	if err != nil {
		return err
	}

	r.writePlainHeader("Planned Changes")
	r.writePlain("%s", text)

	for _, resource := range resources {
		switch resource {
		case models.Collections, models.Playlists:
			continue
		default:
			r.writePlain("\n%s: resolved per entity during the run; not previewed.\n", resource)
		}
	}

	return nil
}

func (r *Runner) printRunSummary(result *tasks.RunResult) {
	for _, resource := range models.KnownResourceTypes {
		touched, ok := result.Touched[resource]
		if !ok {
			continue
		}
		r.writePlain("%s: %d touched\n", resource, len(touched))
	}

	if len(result.Skipped) > 0 {
		r.writePlain("\nSkipped %d entries:\n", len(result.Skipped))
		for _, skip := range result.Skipped {
			r.writePlain("  - [%s] %s: %s\n", skip.Resource, skip.Key, skip.Reason)
		}
	}
}

// saveRun records the run outcome in the history database.
func (r *Runner) saveRun(result *tasks.RunResult, resources []models.ResourceType, runErr error) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	run := models.NewSyncRun(result.RunID, r.config.Source.Name, r.config.Target.Name, resources)
	run.StartedAt = result.StartedAt
	run.FinishedAt = result.FinishedAt
	if runErr != nil {
		run.ErrorText = runErr.Error()
	}
	for resource, touched := range result.Touched {
		run.Touched[resource] = len(touched)
	}
	for _, skip := range result.Skipped {
		run.Skipped[skip.Resource]++
	}

	return repositories.NewRunRepository(db).Create(run)
}
