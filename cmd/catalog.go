package main

import (
	"context"
	"sort"

	"github.com/desertthunder/plexsync/internal/models"
	"github.com/desertthunder/plexsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Libraries lists the libraries on one catalog side.
func (r *Runner) Libraries(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalogSide(cmd.String("side"))
	if err != nil {
		return err
	}

	libraries, err := catalog.Libraries(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(libraries, true)
	}

	r.writePlainHeader(catalog.Name() + " Libraries")
	for _, library := range libraries {
		r.writePlain("%s  %s (%s)\n", library.Key, library.Title, library.Type)
	}

	return nil
}

// userListing summarizes account presence across both catalogs.
type userListing struct {
	Name     string `json:"name"`
	OnSource bool   `json:"on_source"`
	OnTarget bool   `json:"on_target"`
}

// Users lists accounts on both sides and which usernames match.
func (r *Runner) Users(ctx context.Context, cmd *cli.Command) error {
	if r.source == nil || r.target == nil {
		return shared.ErrServiceUnavailable
	}

	sourceUsers, err := r.source.Users(ctx)
	if err != nil {
		return err
	}
	targetUsers, err := r.target.Users(ctx)
	if err != nil {
		return err
	}

	listings := make(map[string]*userListing)
	record := func(users []models.User, source bool) {
		for _, user := range users {
			listing, ok := listings[user.Name]
			if !ok {
				listing = &userListing{Name: user.Name}
				listings[user.Name] = listing
			}
			if source {
				listing.OnSource = true
			} else {
				listing.OnTarget = true
			}
		}
	}
	record(sourceUsers, true)
	record(targetUsers, false)

	names := make([]string, 0, len(listings))
	for name := range listings {
		names = append(names, name)
	}
	sort.Strings(names)

	if cmd.Bool("json") {
		ordered := make([]userListing, 0, len(names))
		for _, name := range names {
			ordered = append(ordered, *listings[name])
		}
		return r.writeJSON(ordered, true)
	}

	r.writePlainHeader("Accounts")
	for _, name := range names {
		listing := listings[name]
		switch {
		case listing.OnSource && listing.OnTarget:
			r.writePlain("✓ %s (both)\n", name)
		case listing.OnSource:
			r.writePlain("  %s (source only)\n", name)
		default:
			r.writePlain("  %s (target only)\n", name)
		}
	}

	return nil
}
