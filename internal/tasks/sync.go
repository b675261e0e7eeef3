package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/models"
	"github.com/desertthunder/tunegraph/internal/repositories"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// GraphSource is the remote side of a sync run.
type GraphSource interface {
	User(ctx context.Context, userID string) (*services.SpotifyUser, error)
	UserPlaylists(ctx context.Context, userID string) ([]services.SpotifySimplePlaylist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]services.SpotifyPlaylistTrack, error)
	Tracks(ctx context.Context, ids []string) (*services.Batch[services.SpotifyTrack], error)
	Albums(ctx context.Context, ids []string) (*services.Batch[services.SpotifyAlbum], error)
	Artists(ctx context.Context, ids []string) (*services.Batch[services.SpotifyArtist], error)
	Playlists(ctx context.Context, ids []string) (*services.Batch[services.SpotifyPlaylist], error)
}

// Job is one merge pass of a sync run.
type Job int

const (
	JobFriends Job = iota
	JobPlaylists
	JobSongs
	JobAlbums
	JobArtists
	JobPerforms
	JobGenres
)

// Jobs lists every job in dependency order.
var Jobs = []Job{JobFriends, JobPlaylists, JobSongs, JobAlbums, JobArtists, JobPerforms, JobGenres}

func (j Job) String() string {
	switch j {
	case JobFriends:
		return "friends"
	case JobPlaylists:
		return "playlists"
	case JobSongs:
		return "songs"
	case JobAlbums:
		return "albums"
	case JobArtists:
		return "artists"
	case JobPerforms:
		return "performs"
	case JobGenres:
		return "genres"
	default:
		return ""
	}
}

// MarshalText encodes a job by name.
func (j Job) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

// ParseJob accepts a job name in any letter case.
func ParseJob(s string) (Job, error) {
	for _, j := range Jobs {
		if strings.EqualFold(j.String(), s) {
			return j, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown sync job %q", shared.ErrInvalidArgument, s)
}

// MergeResult summarizes one job.
type MergeResult struct {
	Job           Job
	Anchors       int      // anchor nodes scanned
	Relationships int      // relationships merged, new or existing
	Nodes         int      // counterpart nodes merged
	Created       int      // nodes and relationships that did not exist before
	Deferred      int      // distinct counterparts queued for resolution
	Unresolved    int      // queued links whose counterpart the remote never returned
	Ignored       int      // local files and removed tracks
	Skipped       []string // ids dropped by failed lookups
	Duration      time.Duration
}

// SyncResult collects the results of a run.
type SyncResult struct {
	RunID string
	Jobs  []*MergeResult
}

// SyncOptions configures a [SyncEngine].
type SyncOptions struct {
	// Friends are the user ids loaded by the friends job.
	Friends []string
	// Full scans every anchor instead of only those still missing the job's relationship.
	Full bool
}

// SyncEngine mirrors the remote library graph into a [repositories.Store].
//
// Each job scans anchors from the store, fetches their remote detail and links them to counterparts.
// Links whose counterpart is not stored yet are queued; the queue is resolved once per job by
// fetching and merging the missing counterparts and then attaching every queued link.
type SyncEngine struct {
	source GraphSource
	store  repositories.Store
	logger *log.Logger
	opts   SyncOptions
}

// NewSyncEngine creates a SyncEngine. A nil logger writes to stderr.
func NewSyncEngine(source GraphSource, store repositories.Store, logger *log.Logger, opts SyncOptions) *SyncEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SyncEngine{source: source, store: store, logger: logger, opts: opts}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run executes jobs in the given order. A consistency failure aborts the run; merges already made stay committed.
func (e *SyncEngine) Run(ctx context.Context, jobs []Job, progress chan<- ProgressUpdate) (*SyncResult, error) {
	result := &SyncResult{RunID: shared.GenerateID()}
	logger := shared.WithLogger(e.logger, "run", result.RunID)
	logger.Info("sync started", "jobs", len(jobs), "full", e.opts.Full)

	for i, job := range jobs {
		sendProgress(progress, jobStartedUpdate(i+1, len(jobs), job))

		res, err := e.runJob(ctx, job, shared.WithLogger(logger, "job", job.String()), progress)
		if res != nil {
			result.Jobs = append(result.Jobs, res)
		}
		if err != nil {
			logger.Error("sync aborted", "job", job.String(), "error", err)
			return result, fmt.Errorf("%s: %w", job, err)
		}

		sendProgress(progress, jobDoneUpdate(i+1, len(jobs), res))
	}

	logger.Info("sync finished", "jobs", len(result.Jobs))
	return result, nil
}

// RunJob executes a single job.
func (e *SyncEngine) RunJob(ctx context.Context, job Job, progress chan<- ProgressUpdate) (*MergeResult, error) {
	return e.runJob(ctx, job, shared.WithLogger(e.logger, "job", job.String()), progress)
}

func (e *SyncEngine) runJob(ctx context.Context, job Job, logger *log.Logger, progress chan<- ProgressUpdate) (*MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.refresh(ctx, logger)

	started := time.Now()
	p := &pass{
		engine:   e,
		job:      job,
		logger:   logger,
		progress: progress,
		result:   &MergeResult{Job: job},
		queue:    map[string][]link{},
	}

	var err error
	switch job {
	case JobFriends:
		err = p.friends(ctx, e.opts.Friends)
	case JobPlaylists:
		err = p.playlists(ctx)
	case JobSongs:
		err = p.songs(ctx)
	case JobAlbums:
		err = p.albums(ctx)
	case JobArtists:
		err = p.artists(ctx)
	case JobPerforms:
		err = p.performs(ctx)
	case JobGenres:
		err = p.genres(ctx)
	default:
		err = fmt.Errorf("%w: unknown sync job %d", shared.ErrInvalidArgument, job)
	}

	p.result.Duration = time.Since(started)
	if err != nil {
		return p.result, err
	}

	logger.Info("job finished",
		"anchors", p.result.Anchors,
		"relationships", p.result.Relationships,
		"created", p.result.Created,
		"deferred", p.result.Deferred,
		"unresolved", p.result.Unresolved,
		"skipped", len(p.result.Skipped),
		"took", p.result.Duration.Round(time.Millisecond),
	)
	return p.result, nil
}

// refresh re-acquires credentials before a long job when the source supports it.
func (e *SyncEngine) refresh(ctx context.Context, logger *log.Logger) {
	r, ok := e.source.(services.Refresher)
	if !ok {
		return
	}
	if err := r.Refresh(ctx); err != nil {
		logger.Warn("could not refresh credentials before job", "error", err)
	}
}

// anchors scans the store for the nodes a job starts from.
func (e *SyncEngine) anchors(ctx context.Context, kind models.Kind, rel models.RelType) ([]*models.Node, error) {
	if e.opts.Full {
		return e.store.FindAll(ctx, kind)
	}
	return e.store.FindMissing(ctx, kind, rel)
}

// aligned checks a batch answer against the ids asked for.
//
// Items must equal ids minus Skipped, in the same order. Anything else means the remote and the store disagree.
func aligned[T any](ids []string, batch *services.Batch[T], id func(T) string) ([]T, []string, error) {
	skipped := make(map[string]bool, len(batch.Skipped))
	for _, s := range batch.Skipped {
		skipped[s] = true
	}

	expected := make([]string, 0, len(ids))
	for _, i := range ids {
		if !skipped[i] {
			expected = append(expected, i)
		}
	}

	if len(batch.Items) != len(expected) {
		return nil, nil, fmt.Errorf("%w: asked for %d entities, %d skipped, got %d",
			shared.ErrConsistency, len(ids), len(batch.Skipped), len(batch.Items))
	}
	for i, item := range batch.Items {
		if got := id(item); got != expected[i] {
			return nil, nil, fmt.Errorf("%w: entity %d is %q, expected %q", shared.ErrConsistency, i, got, expected[i])
		}
	}
	return batch.Items, expected, nil
}

func keys(nodes []*models.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
