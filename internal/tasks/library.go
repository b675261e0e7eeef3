package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// LonelyPlaylistName is the default name of the playlist created from lonely songs.
const LonelyPlaylistName = "All the Lonely Songs"

// Library is the remote side of the library tools: the current user's saved tracks and playlists.
type Library interface {
	CurrentUser(ctx context.Context) (*services.SpotifyUser, error)
	CurrentUserPlaylists(ctx context.Context) ([]services.SpotifySimplePlaylist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]services.SpotifyPlaylistTrack, error)
	SavedTracks(ctx context.Context) ([]services.SpotifySavedTrack, error)
	Track(ctx context.Context, trackID string) (*services.SpotifyTrack, error)
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.SpotifySimplePlaylist, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// LibraryTools answers questions about how saved tracks and playlists overlap.
type LibraryTools struct {
	lib    Library
	logger *log.Logger
}

// NewLibraryTools creates LibraryTools. A nil logger writes to stderr.
func NewLibraryTools(lib Library, logger *log.Logger) *LibraryTools {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryTools{lib: lib, logger: logger}
}

// playlistTracks returns the identifiable tracks of a playlist.
// A playlist that cannot be read is logged and treated as empty.
func (l *LibraryTools) playlistTracks(ctx context.Context, pl services.SpotifySimplePlaylist) ([]services.SpotifyTrack, error) {
	items, err := l.lib.PlaylistTracks(ctx, pl.ID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		l.logger.Warn("could not read playlist", "playlist", pl.Name, "id", pl.ID, "error", err)
		return nil, nil
	}

	tracks := make([]services.SpotifyTrack, 0, len(items))
	for _, it := range items {
		if it.Track == nil || it.Track.ID == "" {
			continue
		}
		tracks = append(tracks, *it.Track)
	}
	return tracks, nil
}

// LonelySongs returns saved tracks that appear on none of the current user's playlists, in library order.
func (l *LibraryTools) LonelySongs(ctx context.Context, progress chan<- ProgressUpdate) ([]services.SpotifyTrack, error) {
	saved, err := l.lib.SavedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saved tracks: %w", err)
	}

	playlists, err := l.lib.CurrentUserPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlists: %w", err)
	}

	onPlaylist := map[string]bool{}
	for i, pl := range playlists {
		sendProgress(progress, libraryUpdate(i+1, len(playlists), fmt.Sprintf("Reading %s...", pl.Name)))
		tracks, err := l.playlistTracks(ctx, pl)
		if err != nil {
			return nil, err
		}
		for _, t := range tracks {
			onPlaylist[t.ID] = true
		}
	}

	var lonely []services.SpotifyTrack
	seen := map[string]bool{}
	for _, st := range saved {
		id := st.Track.ID
		if id == "" || onPlaylist[id] || seen[id] {
			continue
		}
		seen[id] = true
		lonely = append(lonely, st.Track)
	}

	l.logger.Info("found lonely songs", "count", len(lonely), "saved", len(saved), "playlists", len(playlists))
	return lonely, nil
}

// PlaylistsContaining resolves a track reference and returns the current user's playlists that include it.
func (l *LibraryTools) PlaylistsContaining(ctx context.Context, trackRef string, progress chan<- ProgressUpdate) (*services.SpotifyTrack, []services.SpotifySimplePlaylist, error) {
	id, err := ParseSpotifyID("track", trackRef)
	if err != nil {
		return nil, nil, err
	}

	track, err := l.lib.Track(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch track %s: %w", id, err)
	}

	playlists, err := l.lib.CurrentUserPlaylists(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch playlists: %w", err)
	}

	var found []services.SpotifySimplePlaylist
	for i, pl := range playlists {
		sendProgress(progress, libraryUpdate(i+1, len(playlists), fmt.Sprintf("Reading %s...", pl.Name)))
		tracks, err := l.playlistTracks(ctx, pl)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range tracks {
			if t.ID == track.ID {
				found = append(found, pl)
				break
			}
		}
	}
	return track, found, nil
}

// PlaylistDiff returns the tracks that appear on exactly one of two playlists:
// first those only on a, then those only on b.
func (l *LibraryTools) PlaylistDiff(ctx context.Context, a, b string) ([]services.SpotifyTrack, error) {
	idA, err := ParseSpotifyID("playlist", a)
	if err != nil {
		return nil, err
	}
	idB, err := ParseSpotifyID("playlist", b)
	if err != nil {
		return nil, err
	}

	left, err := l.strictTracks(ctx, idA)
	if err != nil {
		return nil, err
	}
	right, err := l.strictTracks(ctx, idB)
	if err != nil {
		return nil, err
	}

	inLeft := map[string]bool{}
	for _, t := range left {
		inLeft[t.ID] = true
	}
	inRight := map[string]bool{}
	for _, t := range right {
		inRight[t.ID] = true
	}

	var diff []services.SpotifyTrack
	seen := map[string]bool{}
	for _, t := range left {
		if !inRight[t.ID] && !seen[t.ID] {
			seen[t.ID] = true
			diff = append(diff, t)
		}
	}
	for _, t := range right {
		if !inLeft[t.ID] && !seen[t.ID] {
			seen[t.ID] = true
			diff = append(diff, t)
		}
	}
	return diff, nil
}

func (l *LibraryTools) strictTracks(ctx context.Context, playlistID string) ([]services.SpotifyTrack, error) {
	items, err := l.lib.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch playlist %s: %w", playlistID, err)
	}
	tracks := make([]services.SpotifyTrack, 0, len(items))
	for _, it := range items {
		if it.Track != nil && it.Track.ID != "" {
			tracks = append(tracks, *it.Track)
		}
	}
	return tracks, nil
}

// SaveLonelyPlaylist creates a private playlist for the current user holding tracks.
// Nothing is created when tracks is empty.
func (l *LibraryTools) SaveLonelyPlaylist(ctx context.Context, name string, tracks []services.SpotifyTrack) (*services.SpotifySimplePlaylist, error) {
	if len(tracks) == 0 {
		return nil, nil
	}
	if name == "" {
		name = LonelyPlaylistName
	}

	me, err := l.lib.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}

	pl, err := l.lib.CreatePlaylist(ctx, me.ID, name, "", false)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	if err := l.lib.AddTracks(ctx, pl.ID, ids); err != nil {
		return pl, fmt.Errorf("failed to add tracks to %s: %w", pl.ID, err)
	}

	l.logger.Info("created playlist", "name", name, "id", pl.ID, "tracks", len(ids))
	return pl, nil
}

// ParseSpotifyID extracts the id from a bare id, a "spotify:<kind>:<id>" URI or an open.spotify.com link.
func ParseSpotifyID(kind, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: %s reference", shared.ErrMissingArgument, kind)
	}

	if strings.HasPrefix(ref, "spotify:") {
		parts := strings.Split(ref, ":")
		if len(parts) != 3 || parts[1] != kind || parts[2] == "" {
			return "", fmt.Errorf("%w: %q is not a %s URI", shared.ErrInvalidArgument, ref, kind)
		}
		return parts[2], nil
	}

	if strings.Contains(ref, "://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", shared.ErrInvalidArgument, ref, err)
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for i := 0; i+1 < len(segments); i++ {
			if segments[i] == kind && segments[i+1] != "" {
				return segments[i+1], nil
			}
		}
		return "", fmt.Errorf("%w: %q is not a %s link", shared.ErrInvalidArgument, ref, kind)
	}

	if strings.ContainsAny(ref, ":/ ") {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidArgument, ref)
	}
	return ref, nil
}

var (
	_ Library     = (*services.SpotifyService)(nil)
	_ GraphSource = (*services.SpotifyService)(nil)
)
