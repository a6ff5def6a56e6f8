// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the run-history database and credentials.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize run-history database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "token",
				Usage: "Extract a server access token from a browser cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SetupToken,
			},
		},
	}
}

// syncCommand runs the source → target synchronization.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror selected resource types from source to target",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "resources",
				Aliases: []string{"r"},
				Usage:   "Comma-separated resource types (collections,posters,playlists,history,markers)",
				Value:   "collections,posters,playlists,history",
			},
			&cli.StringFlag{
				Name:    "users",
				Aliases: []string{"u"},
				Usage:   "Comma-separated usernames for user-specific types (@me, @all, or names)",
			},
			&cli.BoolFlag{
				Name:  "episode-posters",
				Usage: "Also push per-episode posters (multiplies request volume)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Preview the planned container changes without writing anything",
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Usage: "Skip recording the run in the history database",
			},
			&cli.StringFlag{
				Name:  "summary-file",
				Usage: "Write a plain text run summary to this path",
			},
		},
		Action: r.Sync,
	}
}

// diffCommand compares container state without writing anything.
func diffCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Compare collections and playlists across both catalogs (read-only)",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Diff,
	}
}

// snapshotCommand exports one catalog side's full state.
func snapshotCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Fetch one side's libraries, items, collections and playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "side",
				Usage: "Which catalog to snapshot (source or target)",
				Value: "source",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (json, csv, markdown)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file or directory base path",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "posters",
				Usage: "Also download every item's poster into this directory",
			},
		},
		Action: r.Snapshot,
	}
}

// catalogCommand handles read-only catalog inspection.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Inspect catalog state",
		Commands: []*cli.Command{
			{
				Name:  "libraries",
				Usage: "List libraries on one side",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "side",
						Usage: "Which catalog to list (source or target)",
						Value: "source",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.Libraries,
			},
			{
				Name:  "users",
				Usage: "List accounts on both sides and which usernames match",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.Users,
			},
		},
	}
}

// runsCommand lists recorded sync runs.
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "Show sync run history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Runs,
	}
}

// tuiCommand returns the top-level TUI command for interactive synchronization.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for catalog synchronization",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "users",
				Aliases: []string{"u"},
				Usage:   "Comma-separated usernames for user-specific types",
			},
			&cli.BoolFlag{
				Name:  "episode-posters",
				Usage: "Also push per-episode posters",
			},
		},
		Action: r.TUI,
	}
}
