package main

import (
	"context"

	"github.com/desertthunder/tunegraph/internal/formatter"
	"github.com/urfave/cli/v3"
)

// GraphStats prints node counts per kind and relationship counts per type.
func (r *Runner) GraphStats(ctx context.Context, cmd *cli.Command) error {
	store, release, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", formatter.StatsTable(stats))
}
