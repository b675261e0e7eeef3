// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/tunegraph/internal/tasks"
	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "full",
			Usage: "Revisit every anchor, not only those missing the job's relationship",
		},
		&cli.StringSliceFlag{
			Name:  "friend",
			Usage: "Spotify user id to load (repeatable, overrides graph.friends)",
		},
		&cli.StringFlag{
			Name:  "log",
			Usage: "Log file used while the terminal UI is running",
			Value: "./tmp/tunegraph-tui.log",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write a config file if missing and prepare the graph store",
		Action: r.Setup,
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize with Spotify using OAuth2 and save the tokens",
		Action: r.Auth,
	}
}

// syncCommand has one subcommand per merge job plus "all".
func syncCommand(r *Runner) *cli.Command {
	flags := func() []cli.Flag {
		f := append(syncFlags(), outputFlags()...)
		return append(f, &cli.BoolFlag{Name: "tui", Usage: "Show progress in the terminal UI"})
	}

	subcommands := make([]*cli.Command, 0, len(tasks.Jobs)+1)
	for _, job := range tasks.Jobs {
		subcommands = append(subcommands, &cli.Command{
			Name:   job.String(),
			Usage:  jobUsage[job],
			Flags:  flags(),
			Action: r.Sync,
		})
	}
	subcommands = append(subcommands, &cli.Command{
		Name:   "all",
		Usage:  "Run every job in dependency order",
		Flags:  flags(),
		Action: r.Sync,
	})

	return &cli.Command{
		Name:     "sync",
		Usage:    "Mirror the Spotify library into the graph store",
		Commands: subcommands,
	}
}

var jobUsage = map[tasks.Job]string{
	tasks.JobFriends:   "Load the configured friends as users",
	tasks.JobPlaylists: "Link users to the playlists they own",
	tasks.JobSongs:     "Link playlists to the songs they include",
	tasks.JobAlbums:    "Link songs to their albums",
	tasks.JobArtists:   "Link albums to the artists who released them",
	tasks.JobPerforms:  "Link songs to the artists who perform them",
	tasks.JobGenres:    "Link artists to their genres",
}

func filterFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "filter",
		Usage: "Leave out compilations, soundtracks and other collections",
	}
}

func stateFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "state",
		Usage: "Release state file (defaults to albums.state_path)",
	}
}

func albumsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "albums",
		Usage: "Track album releases of the artists in your library",
		Commands: []*cli.Command{
			{
				Name:  "recent",
				Usage: "List albums released within the last few days",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:    "days",
						Aliases: []string{"d"},
						Usage:   "Window in days (defaults to albums.cutoff_days)",
					},
					&cli.StringSliceFlag{
						Name:  "artist",
						Usage: "Artist id to scan instead of the saved library (repeatable)",
					},
					filterFlag(),
				}, outputFlags()...),
				Action: r.AlbumsRecent,
			},
			{
				Name:  "new",
				Usage: "Report artists whose latest album changed since the last run",
				Flags: append([]cli.Flag{
					stateFlag(),
					filterFlag(),
					&cli.StringFlag{
						Name:  "log",
						Usage: "Release log to append to (defaults to albums.log_path)",
					},
				}, outputFlags()...),
				Action: r.AlbumsNew,
			},
			{
				Name:   "seed",
				Usage:  "Record the latest album of every saved artist without reporting",
				Flags:  []cli.Flag{stateFlag(), filterFlag()},
				Action: r.AlbumsSeed,
			},
		},
	}
}

func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Compare saved tracks and playlists",
		Commands: []*cli.Command{
			{
				Name:  "lonely",
				Usage: "List saved tracks that are on none of your playlists",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Collect the tracks into a new private playlist",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Name of the saved playlist and export title",
						Value: tasks.LonelyPlaylistName,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Export to a .csv, .md or .txt file",
					},
				}, outputFlags()...),
				Action: r.LibraryLonely,
			},
			{
				Name:  "appears",
				Usage: "List your playlists that include a track",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "track",
						UsageText: "track id, URI or link",
					},
				},
				Flags:  outputFlags(),
				Action: r.LibraryAppears,
			},
			{
				Name:  "diff",
				Usage: "List tracks found on exactly one of two playlists",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "a"},
					&cli.StringArg{Name: "b"},
				},
				Flags:  outputFlags(),
				Action: r.LibraryDiff,
			},
		},
	}
}

func graphCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Inspect the graph store",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Count nodes per kind and relationships per type",
				Flags:  outputFlags(),
				Action: r.GraphStats,
			},
		},
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Pick and run sync jobs in the terminal UI",
		Flags:  syncFlags(),
		Action: r.TUI,
	}
}
