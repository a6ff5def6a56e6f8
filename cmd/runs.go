package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/repositories"
	"github.com/desertthunder/plexsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runs lists recorded sync runs from the history database.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config := r.config
	if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
		config = loadedConfig
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	repo := repositories.NewRunRepository(db)
	runs, err := repo.List(map[string]any{"limit": cmd.Int("limit")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}

	if len(runs) == 0 {
		r.writePlain("No runs recorded. Run 'plexsync sync' first.\n")
		return nil
	}

	r.writePlainHeader("Sync Runs")
	for _, run := range runs {
		status := "ok"
		if run.ErrorText != "" {
			status = "failed"
		}

		var touched, skipped int
		for _, resource := range run.Resources {
			touched += run.Touched[resource]
			skipped += run.Skipped[resource]
		}

		r.writePlain("#%d  %s  %s → %s  [%s]\n", run.Sequence, run.StartedAt.Format(time.RFC3339), run.Source, run.Target, status)
		r.writePlain("    resources: %s  touched: %d  skipped: %d\n", resourceNames(run.Resources), touched, skipped)
		if run.ErrorText != "" {
			r.writePlain("    error: %s\n", run.ErrorText)
		}
	}

	return nil
}

func resourceNames(resources []models.ResourceType) string {
	out := ""
	for i, resource := range resources {
		if i > 0 {
			out += ","
		}
		out += string(resource)
	}
	return out
}
