package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/repositories"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
	"github.com/desertthunder/tunegraph/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Spotify is the part of the music service the commands use.
type Spotify interface {
	tasks.GraphSource
	tasks.Catalog
	tasks.Library
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	spotify    Spotify
	oauth      services.OAuthService
	store      repositories.Store
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time

	openBrowser func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Config, Spotify and Store left nil are built from the config file when a command runs.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    Spotify
	Store      repositories.Store
	Logger     *log.Logger
	Output     io.Writer
	Now        func() time.Time

	// OpenBrowser shows the authorization page. Defaults to [shared.OpenBrowser].
	OpenBrowser func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.ConfigPath == "" {
		opts.ConfigPath = "config.toml"
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		spotify:    opts.Spotify,
		store:      opts.Store,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,

		openBrowser: opts.OpenBrowser,
	}
	if o, ok := opts.Spotify.(services.OAuthService); ok {
		r.oauth = o
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, syncCommand, albumsCommand, libraryCommand, graphCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// load reads the config file named by --config and builds the Spotify client.
// Dependencies injected through [RunnerOpts] are kept.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.config == nil {
		r.config = shared.DefaultConfig()
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
	}

	level := r.config.Logging.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	if r.spotify != nil {
		return ctx, nil
	}

	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return ctx, nil
	}

	svc, err := services.NewSpotifyService(creds.Map(),
		services.WithLogger(shared.WithLogger(r.logger, "service", "spotify")),
		services.WithRateLimit(r.config.API.RequestsPerSecond, r.config.API.Burst),
	)
	if err != nil {
		r.logger.Warn("spotify client not configured", "error", err)
		return ctx, nil
	}
	svc.SetTokenRefreshCallback(r.saveToken)

	r.spotify = svc
	r.oauth = svc
	return ctx, nil
}

// saveToken persists a refreshed token so the next run starts with it.
func (r *Runner) saveToken(token *oauth2.Token) {
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		r.logger.Warn("ignoring refreshed token", "error", err)
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
		return
	}
	r.logger.Debug("refreshed token saved", "path", r.configPath)
}

func (r *Runner) requireSpotify() (Spotify, error) {
	if r.spotify == nil {
		return nil, fmt.Errorf("%w: set credentials.spotify in %s and run 'tunegraph auth'", shared.ErrMissingCredentials, r.configPath)
	}
	return r.spotify, nil
}

// openStore returns the graph store and a func that releases it.
// An injected store is shared and never closed here.
func (r *Runner) openStore(ctx context.Context) (repositories.Store, func(), error) {
	if r.store != nil {
		return r.store, func() {}, nil
	}

	store, err := repositories.Open(ctx, r.config.Graph, r.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			r.logger.Warn("failed to close graph store", "error", err)
		}
	}, nil
}

// logProgress drains progress into the logger until the channel is closed.
func (r *Runner) logProgress(progress <-chan tasks.ProgressUpdate, done chan<- struct{}) {
	defer close(done)
	for update := range progress {
		switch update.Phase {
		case tasks.StartJob, tasks.FinishJob:
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		default:
			r.logger.Debug(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}
}

// track runs fn with a progress channel that is logged, and waits for the log to drain.
func (r *Runner) track(fn func(progress chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 100)
	done := make(chan struct{})
	go r.logProgress(progress, done)

	err := fn(progress)
	close(progress)
	<-done
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
