package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/desertthunder/tunegraph/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted")
			os.Exit(130)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tunegraph",
		Usage:   "Mirror a Spotify library into a graph and dig through it",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("TUNEGRAPH_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log at debug level",
			},
		},
		Before:   r.load,
		Commands: r.register(),
	}
}
