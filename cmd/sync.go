package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunegraph/internal/formatter"
	"github.com/desertthunder/tunegraph/internal/tasks"
	"github.com/urfave/cli/v3"
)

// syncJobs maps a sync subcommand name onto the jobs it runs.
func syncJobs(name string) ([]tasks.Job, error) {
	if name == "all" {
		return tasks.Jobs, nil
	}
	job, err := tasks.ParseJob(name)
	if err != nil {
		return nil, err
	}
	return []tasks.Job{job}, nil
}

func (r *Runner) syncOptions(cmd *cli.Command) tasks.SyncOptions {
	friends := cmd.StringSlice("friend")
	if len(friends) == 0 {
		friends = r.config.Graph.Friends
	}
	return tasks.SyncOptions{Friends: friends, Full: cmd.Bool("full")}
}

// Sync runs the merge jobs named by the subcommand against the configured graph store.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	jobs, err := syncJobs(cmd.Name)
	if err != nil {
		return err
	}

	spotify, err := r.requireSpotify()
	if err != nil {
		return err
	}

	if cmd.Bool("tui") {
		return r.runTUI(ctx, cmd, jobs)
	}

	store, release, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	engine := tasks.NewSyncEngine(spotify, store, r.logger, r.syncOptions(cmd))

	var result *tasks.SyncResult
	err = r.withReauth(ctx, func() error {
		return r.track(func(progress chan<- tasks.ProgressUpdate) error {
			var runErr error
			result, runErr = engine.Run(ctx, jobs, progress)
			return runErr
		})
	})

	if cmd.Bool("json") {
		if result != nil {
			if werr := r.writeJSON(result, cmd.Bool("pretty")); werr != nil {
				return werr
			}
		}
		return err
	}

	if result != nil && len(result.Jobs) > 0 {
		r.writePlain("%s\n", formatter.SyncTable(result))
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return r.writePlain("✓ Sync %s finished (%d job(s))\n", result.RunID, len(result.Jobs))
}
