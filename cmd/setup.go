package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tunegraph/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file when none exists and prepares the graph store.
//
// For SQLite this runs the embedded migrations; for Neo4j it creates the uniqueness constraints.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return err
		}
		r.writePlain("✓ Wrote %s; add your Spotify client id and secret, then run 'tunegraph auth'\n", r.configPath)
	}

	backend := r.config.Graph.Backend
	if backend == "" {
		backend = "sqlite"
	}
	r.logger.Info("preparing graph store", "backend", backend)

	store, release, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	defer release()

	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read graph store: %w", err)
	}

	nodes := 0
	for _, n := range stats.Nodes {
		nodes += n
	}

	switch backend {
	case "neo4j":
		return r.writePlain("✓ Graph store ready (neo4j at %s, %d nodes)\n", r.config.Graph.URI, nodes)
	default:
		return r.writePlain("✓ Graph store ready (sqlite at %s, %d nodes)\n", r.config.Graph.Path, nodes)
	}
}
