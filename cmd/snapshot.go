package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plexsync/internal/formatter"
	"github.com/desertthunder/plexsync/internal/shared"
	"github.com/desertthunder/plexsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Diff compares collections and playlists across both catalogs without
// mutating either side.
func (r *Runner) Diff(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("diff requested", "source", r.config.Source.Name, "target", r.config.Target.Name)
	r.writePlain("Comparing catalogs...\n\n")

	progressCh := make(chan tasks.ProgressUpdate, 10)
	go func() {
		for update := range progressCh {
			r.writePlain("📥 %s\n", update.Message)
		}
	}()

	result, err := r.engine.Diff(ctx, progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	text, err := formatter.ExportDiffToText(result)
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Comparison Results")
	r.writePlain("%s", text)

	return nil
}

// Snapshot fetches one catalog side's full state and writes it in the
// requested format.
func (r *Runner) Snapshot(ctx context.Context, cmd *cli.Command) error {
	side := cmd.String("side")
	format := cmd.String("format")
	output := cmd.String("output")

	r.logger.Info("snapshot requested", "side", side, "format", format)

	progressCh := make(chan tasks.ProgressUpdate, 10)
	go func() {
		for update := range progressCh {
			r.writePlain("📥 %s\n", update.Message)
		}
	}()

	result, err := r.engine.Snapshot(ctx, progressCh, side)
	close(progressCh)

	if err != nil {
		return err
	}

	if len(result.Errors) > 0 {
		r.writePlain("\n%d endpoints failed; snapshot is partial:\n", len(result.Errors))
		for _, fetchErr := range result.Errors {
			r.writePlain("  - %s: %s\n", fetchErr.Endpoint, fetchErr.Error)
		}
		r.writePlain("\n")
	}

	if dir := cmd.String("posters"); dir != "" {
		catalog, err := r.catalogSide(side)
		if err != nil {
			return err
		}
		written, err := formatter.WritePosterExport(ctx, catalog, result, dir)
		if err != nil {
			return err
		}
		r.writePlain("✓ %d posters written to %s\n", len(written), dir)
	}

	switch format {
	case "json":
		return r.writeJSON(result, cmd.Bool("pretty"))
	case "csv":
		written, err := formatter.WriteCSVExport(result, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Items written to %s\n", written.ItemsFile)
		r.writePlain("✓ Metadata written to %s\n", written.MetadataFile)
		return nil
	case "markdown", "md":
		written, err := formatter.WriteMarkdownExport(result, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Snapshot written to %s\n", written)
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}
