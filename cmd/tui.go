package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plexsync/internal/shared"
	"github.com/desertthunder/plexsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for catalog synchronization.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if r.source == nil || r.target == nil {
		return fmt.Errorf("%w: both catalogs must be configured", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/plexsync-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	var users []string
	if raw := cmd.String("users"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				users = append(users, name)
			}
		}
	}

	model := ui.NewModel(ctx, r.engine, ui.Options{
		Users:                 users,
		IncludeEpisodePosters: cmd.Bool("episode-posters") || r.config.Sync.IncludeEpisodePosters,
		HasMarkerStore:        r.markers != nil,
	})
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
