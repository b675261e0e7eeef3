package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunegraph/internal/formatter"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) libraryTools() (*tasks.LibraryTools, error) {
	spotify, err := r.requireSpotify()
	if err != nil {
		return nil, err
	}
	return tasks.NewLibraryTools(spotify, r.logger), nil
}

// LibraryLonely lists saved tracks that are on none of the user's playlists.
//
// --save collects them into a new private playlist; --output exports them as csv, markdown or text.
func (r *Runner) LibraryLonely(ctx context.Context, cmd *cli.Command) error {
	tools, err := r.libraryTools()
	if err != nil {
		return err
	}

	var lonely []services.SpotifyTrack
	err = r.withReauth(ctx, func() error {
		return r.track(func(progress chan<- tasks.ProgressUpdate) error {
			var scanErr error
			lonely, scanErr = tools.LonelySongs(ctx, progress)
			return scanErr
		})
	})
	if err != nil {
		return err
	}

	title := cmd.String("name")
	if out := cmd.String("output"); out != "" {
		if err := formatter.WriteExport(out, title, lonely); err != nil {
			return err
		}
		r.logger.Info("lonely songs exported", "path", out, "tracks", len(lonely))
	}

	if cmd.Bool("save") {
		pl, err := tools.SaveLonelyPlaylist(ctx, title, lonely)
		if err != nil {
			return err
		}
		if pl != nil {
			r.writePlain("✓ Created playlist %q (%s) with %d track(s)\n", pl.Name, pl.ID, len(lonely))
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(lonely, cmd.Bool("pretty"))
	}
	if len(lonely) == 0 {
		return r.writePlain("Every saved track is on at least one playlist\n")
	}

	r.writePlainHeader(fmt.Sprintf("%d lonely song(s)", len(lonely)))
	return r.writePlain("%s\n", formatter.TrackTable(lonely))
}

// LibraryAppears lists the user's playlists that include a track.
func (r *Runner) LibraryAppears(ctx context.Context, cmd *cli.Command) error {
	tools, err := r.libraryTools()
	if err != nil {
		return err
	}

	var track *services.SpotifyTrack
	var playlists []services.SpotifySimplePlaylist
	err = r.withReauth(ctx, func() error {
		return r.track(func(progress chan<- tasks.ProgressUpdate) error {
			var findErr error
			track, playlists, findErr = tools.PlaylistsContaining(ctx, cmd.StringArg("track"), progress)
			return findErr
		})
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"track": track, "playlists": playlists}, cmd.Bool("pretty"))
	}

	label := fmt.Sprintf("%s - %s", formatter.Artists(*track), track.Name)
	if len(playlists) == 0 {
		return r.writePlain("%s is not on any of your playlists\n", label)
	}

	r.writePlainHeader(fmt.Sprintf("%s appears on %d playlist(s)", label, len(playlists)))
	return r.writePlain("%s\n", formatter.PlaylistTable(playlists))
}

// LibraryDiff lists the tracks found on exactly one of two playlists.
func (r *Runner) LibraryDiff(ctx context.Context, cmd *cli.Command) error {
	tools, err := r.libraryTools()
	if err != nil {
		return err
	}

	var diff []services.SpotifyTrack
	err = r.withReauth(ctx, func() error {
		var diffErr error
		diff, diffErr = tools.PlaylistDiff(ctx, cmd.StringArg("a"), cmd.StringArg("b"))
		return diffErr
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(diff, cmd.Bool("pretty"))
	}
	if len(diff) == 0 {
		return r.writePlain("The playlists hold the same tracks\n")
	}

	r.writePlainHeader(fmt.Sprintf("%d track(s) on only one playlist", len(diff)))
	return r.writePlain("%s\n", formatter.TrackTable(diff))
}
