package tasks

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/repositories"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// fakeSpotify serves a fixed catalog through the same batching helpers the real client uses.
type fakeSpotify struct {
	me             services.SpotifyUser
	users          map[string]services.SpotifyUser
	userPlaylists  map[string][]services.SpotifySimplePlaylist
	playlists      map[string]services.SpotifyPlaylist
	playlistTracks map[string][]services.SpotifyPlaylistTrack
	tracks         map[string]services.SpotifyTrack
	albums         map[string]services.SpotifyAlbum
	artists        map[string]services.SpotifyArtist
	artistAlbums   map[string][]services.SpotifyAlbum
	saved          []services.SpotifySavedTrack

	failIDs map[string]bool // any lookup chunk containing one of these fails
	failErr error           // returned for such chunks, ErrAPIRequest when nil

	refreshes int
	created   []string
	added     map[string][]string
}

func newFakeSpotify() *fakeSpotify {
	return &fakeSpotify{
		users:          map[string]services.SpotifyUser{},
		userPlaylists:  map[string][]services.SpotifySimplePlaylist{},
		playlists:      map[string]services.SpotifyPlaylist{},
		playlistTracks: map[string][]services.SpotifyPlaylistTrack{},
		tracks:         map[string]services.SpotifyTrack{},
		albums:         map[string]services.SpotifyAlbum{},
		artists:        map[string]services.SpotifyArtist{},
		artistAlbums:   map[string][]services.SpotifyAlbum{},
		failIDs:        map[string]bool{},
		added:          map[string][]string{},
	}
}

func lookupFrom[T any](f *fakeSpotify, m map[string]T) services.LookupFunc[T] {
	return func(ctx context.Context, ids []string) ([]*T, error) {
		out := make([]*T, len(ids))
		for i, id := range ids {
			if f.failIDs[id] {
				if f.failErr != nil {
					return nil, f.failErr
				}
				return nil, fmt.Errorf("%w: chunk with %s", shared.ErrAPIRequest, id)
			}
			if v, ok := m[id]; ok {
				out[i] = &v
			}
		}
		return out, nil
	}
}

func (f *fakeSpotify) Refresh(ctx context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeSpotify) User(ctx context.Context, id string) (*services.SpotifyUser, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return &u, nil
}

func (f *fakeSpotify) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	return &f.me, nil
}

func (f *fakeSpotify) UserPlaylists(ctx context.Context, id string) ([]services.SpotifySimplePlaylist, error) {
	return f.userPlaylists[id], nil
}

func (f *fakeSpotify) CurrentUserPlaylists(ctx context.Context) ([]services.SpotifySimplePlaylist, error) {
	return f.userPlaylists[f.me.ID], nil
}

func (f *fakeSpotify) PlaylistTracks(ctx context.Context, id string) ([]services.SpotifyPlaylistTrack, error) {
	items, ok := f.playlistTracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	return items, nil
}

func (f *fakeSpotify) SavedTracks(ctx context.Context) ([]services.SpotifySavedTrack, error) {
	return f.saved, nil
}

func (f *fakeSpotify) ArtistAlbums(ctx context.Context, id string) ([]services.SpotifyAlbum, error) {
	return f.artistAlbums[id], nil
}

func (f *fakeSpotify) Track(ctx context.Context, id string) (*services.SpotifyTrack, error) {
	t, ok := f.tracks[id]
	if !ok {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}
	return &t, nil
}

func (f *fakeSpotify) Tracks(ctx context.Context, ids []string) (*services.Batch[services.SpotifyTrack], error) {
	return services.Lookup(ctx, ids, services.MaxTrackLookup, lookupFrom(f, f.tracks), nil)
}

func (f *fakeSpotify) Albums(ctx context.Context, ids []string) (*services.Batch[services.SpotifyAlbum], error) {
	return services.Lookup(ctx, ids, services.MaxAlbumLookup, lookupFrom(f, f.albums), nil)
}

func (f *fakeSpotify) Artists(ctx context.Context, ids []string) (*services.Batch[services.SpotifyArtist], error) {
	return services.Lookup(ctx, ids, services.MaxArtistLookup, lookupFrom(f, f.artists), nil)
}

func (f *fakeSpotify) Playlists(ctx context.Context, ids []string) (*services.Batch[services.SpotifyPlaylist], error) {
	return services.Lookup(ctx, ids, services.MaxPlaylistLookup, lookupFrom(f, f.playlists), nil)
}

func (f *fakeSpotify) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*services.SpotifySimplePlaylist, error) {
	f.created = append(f.created, name)
	return &services.SpotifySimplePlaylist{ID: "created-1", Name: name, Owner: services.Owner{ID: userID}}, nil
}

func (f *fakeSpotify) AddTracks(ctx context.Context, playlistID string, ids []string) error {
	f.added[playlistID] = append(f.added[playlistID], ids...)
	return nil
}

// fixture helpers

func artist(id, name string, genres ...string) services.SpotifyArtist {
	return services.SpotifyArtist{ID: id, Name: name, Genres: genres, Popularity: 50}
}

func album(id, name, released string, artists ...services.SpotifyArtist) services.SpotifyAlbum {
	return services.SpotifyAlbum{ID: id, Name: name, ReleaseDate: released, Artists: artists}
}

func track(id, name string, al services.SpotifyAlbum, artists ...services.SpotifyArtist) services.SpotifyTrack {
	return services.SpotifyTrack{ID: id, Name: name, Album: al, Artists: artists, DurationMS: 1000, Popularity: 10}
}

func item(t services.SpotifyTrack, addedBy string) services.SpotifyPlaylistTrack {
	return services.SpotifyPlaylistTrack{AddedAt: "2021-01-01T00:00:00Z", AddedBy: &services.Owner{ID: addedBy}, Track: &t}
}

func (f *fakeSpotify) addTrack(t services.SpotifyTrack) {
	f.tracks[t.ID] = t
	f.albums[t.Album.ID] = t.Album
	for _, a := range t.Artists {
		if _, ok := f.artists[a.ID]; !ok {
			f.artists[a.ID] = a
		}
	}
}

func setupTestStore(t *testing.T) *repositories.SQLiteStore {
	t.Helper()

	store, err := repositories.NewSQLiteStore(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testLogger() *log.Logger {
	return shared.NewLogger(io.Discard)
}
