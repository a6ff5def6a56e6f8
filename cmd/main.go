package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/plexsync/internal/services"
	"github.com/desertthunder/plexsync/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var source, target services.Catalog
	if config.Source.URL != "" && config.Source.Token != "" {
		if cat, err := services.NewPlexCatalog(services.PlexOpts{
			Name:              config.Source.Name,
			URL:               config.Source.URL,
			Token:             config.Source.Token,
			TimeoutSeconds:    config.Sync.TimeoutSeconds,
			RequestsPerSecond: config.Sync.RequestsPerSecond,
		}); err == nil {
			source = cat
		}
	}
	if config.Target.URL != "" && config.Target.Token != "" {
		if cat, err := services.NewPlexCatalog(services.PlexOpts{
			Name:              config.Target.Name,
			URL:               config.Target.URL,
			Token:             config.Target.Token,
			TimeoutSeconds:    config.Sync.TimeoutSeconds,
			RequestsPerSecond: config.Sync.RequestsPerSecond,
		}); err == nil {
			target = cat
		}
	}

	var markers services.MarkerStore
	if config.Markers.DatabasePath != "" {
		if store, err := services.OpenMarkerStore(config.Markers.DatabasePath); err == nil {
			markers = store
		} else {
			logger.Warn("marker store unavailable", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Source:  source,
		Target:  target,
		Markers: markers,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "plexsync",
		Usage:    "Mirror collections, posters, playlists, watch history & intro markers between media servers",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
