package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunegraph/internal/formatter"
	"github.com/desertthunder/tunegraph/internal/shared"
	"github.com/desertthunder/tunegraph/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) albumScanner(cmd *cli.Command) (*tasks.AlbumScanner, error) {
	spotify, err := r.requireSpotify()
	if err != nil {
		return nil, err
	}

	var classifier tasks.AlbumClassifier
	if cmd.Bool("filter") || r.config.Albums.Filter {
		classifier = tasks.NewCompilationFilter()
	}
	return tasks.NewAlbumScanner(spotify, classifier, r.logger), nil
}

func (r *Runner) statePath(cmd *cli.Command) string {
	if p := cmd.String("state"); p != "" {
		return p
	}
	return r.config.Albums.StatePath
}

// AlbumsRecent lists albums released within the last --days days by the artists in the saved library.
func (r *Runner) AlbumsRecent(ctx context.Context, cmd *cli.Command) error {
	days := cmd.Int("days")
	if days <= 0 {
		days = r.config.Albums.CutoffDays
	}
	if days <= 0 {
		return fmt.Errorf("%w: --days must be positive", shared.ErrInvalidArgument)
	}

	scanner, err := r.albumScanner(cmd)
	if err != nil {
		return err
	}

	cutoff := r.now().AddDate(0, 0, -days)
	r.logger.Info("scanning for recent albums", "cutoff", cutoff.Format("2006-01-02"))

	var only []string
	if ids := cmd.StringSlice("artist"); len(ids) > 0 {
		only = ids
	}

	var artists []tasks.ArtistAlbums
	err = r.withReauth(ctx, func() error {
		return r.track(func(progress chan<- tasks.ProgressUpdate) error {
			var scanErr error
			artists, scanErr = scanner.Recent(ctx, cutoff, only, progress)
			return scanErr
		})
	})
	if err != nil {
		return err
	}

	recent := make([]tasks.ArtistAlbums, 0, len(artists))
	for _, a := range artists {
		if len(a.Albums) > 0 {
			recent = append(recent, a)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(recent, cmd.Bool("pretty"))
	}
	if len(recent) == 0 {
		return r.writePlain("No albums released in the last %d days\n", days)
	}

	r.writePlainHeader(fmt.Sprintf("Released since %s", cutoff.Format("2006-01-02")))
	return r.writePlain("%s\n", formatter.RecentTable(recent))
}

// AlbumsNew reports artists whose latest album changed since the last run, appends them to the
// release log and saves the new state.
func (r *Runner) AlbumsNew(ctx context.Context, cmd *cli.Command) error {
	scanner, err := r.albumScanner(cmd)
	if err != nil {
		return err
	}

	statePath := r.statePath(cmd)
	state, err := tasks.LoadReleaseState(statePath)
	if err != nil {
		return err
	}

	var releases []tasks.NewRelease
	err = r.withReauth(ctx, func() error {
		return r.track(func(progress chan<- tasks.ProgressUpdate) error {
			var detectErr error
			releases, detectErr = scanner.DetectNewReleases(ctx, state, progress)
			return detectErr
		})
	})
	if err != nil {
		return err
	}
	tasks.SortReleases(releases)

	logPath := cmd.String("log")
	if logPath == "" {
		logPath = r.config.Albums.LogPath
	}
	if err := formatter.AppendReleaseReport(logPath, r.now(), releases); err != nil {
		return err
	}
	if err := state.Save(statePath); err != nil {
		return err
	}
	r.logger.Info("release state saved", "path", statePath, "artists", len(state), "new", len(releases))

	if cmd.Bool("json") {
		return r.writeJSON(releases, cmd.Bool("pretty"))
	}
	if len(releases) == 0 {
		return r.writePlain("No new releases\n")
	}

	r.writePlain("%s\n", formatter.ReleaseTable(releases))
	return r.writePlain("✓ %d new release(s) appended to %s\n", len(releases), logPath)
}

// AlbumsSeed records the current latest album of every saved artist without reporting anything.
func (r *Runner) AlbumsSeed(ctx context.Context, cmd *cli.Command) error {
	scanner, err := r.albumScanner(cmd)
	if err != nil {
		return err
	}

	statePath := r.statePath(cmd)
	state, err := tasks.LoadReleaseState(statePath)
	if err != nil {
		return err
	}

	var n int
	err = r.withReauth(ctx, func() error {
		return r.track(func(progress chan<- tasks.ProgressUpdate) error {
			var seedErr error
			n, seedErr = scanner.Seed(ctx, state, progress)
			return seedErr
		})
	})
	if err != nil {
		return err
	}

	if err := state.Save(statePath); err != nil {
		return err
	}
	return r.writePlain("✓ Recorded the latest album of %d artist(s) in %s\n", n, statePath)
}
