package tasks

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
)

func trackIDs(tracks []services.SpotifyTrack) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func libraryToolsFixture() *fakeSpotify {
	f := newFakeSpotify()
	f.me = services.SpotifyUser{ID: "me"}
	al := album("A1", "Album", "2020")
	t1 := track("T1", "One", al)
	t2 := track("T2", "Two", al)
	t3 := track("T3", "Three", al)
	t4 := track("T4", "Four", al)
	for _, t := range []services.SpotifyTrack{t1, t2, t3, t4} {
		f.addTrack(t)
	}

	f.saved = []services.SpotifySavedTrack{{Track: t1}, {Track: t2}, {Track: t3}}
	f.userPlaylists["me"] = []services.SpotifySimplePlaylist{
		{ID: "P1", Name: "First"},
		{ID: "P2", Name: "Second"},
		{ID: "gone", Name: "Deleted"},
	}
	f.playlistTracks["P1"] = []services.SpotifyPlaylistTrack{item(t1, "me"), {IsLocal: true, Track: &services.SpotifyTrack{Name: "local"}}}
	f.playlistTracks["P2"] = []services.SpotifyPlaylistTrack{item(t3, "me"), item(t4, "me"), item(t1, "me")}
	return f
}

func TestLibraryTools_LonelySongs(t *testing.T) {
	ctx := context.Background()
	f := libraryToolsFixture()
	tools := NewLibraryTools(f, testLogger())

	progress := make(chan ProgressUpdate, 10)
	lonely, err := tools.LonelySongs(ctx, progress)
	if err != nil {
		t.Fatalf("LonelySongs() error = %v", err)
	}
	if got := trackIDs(lonely); !slices.Equal(got, []string{"T2"}) {
		t.Errorf("LonelySongs() = %v, want [T2]", got)
	}
	if len(progress) != 3 {
		t.Errorf("progress updates = %d, want one per playlist", len(progress))
	}

	t.Run("saves them to a new private playlist", func(t *testing.T) {
		pl, err := tools.SaveLonelyPlaylist(ctx, "", lonely)
		if err != nil {
			t.Fatalf("SaveLonelyPlaylist() error = %v", err)
		}
		if pl == nil || pl.Name != LonelyPlaylistName || pl.Owner.ID != "me" {
			t.Fatalf("playlist = %+v", pl)
		}
		if got := f.added[pl.ID]; !slices.Equal(got, []string{"T2"}) {
			t.Errorf("added = %v, want [T2]", got)
		}
	})

	t.Run("creates nothing when every song is on a playlist", func(t *testing.T) {
		before := len(f.created)
		pl, err := tools.SaveLonelyPlaylist(ctx, "custom", nil)
		if err != nil || pl != nil {
			t.Fatalf("SaveLonelyPlaylist(nil) = %v, %v; want nil, nil", pl, err)
		}
		if len(f.created) != before {
			t.Error("no playlist should have been created")
		}
	})
}

func TestLibraryTools_PlaylistsContaining(t *testing.T) {
	ctx := context.Background()
	tools := NewLibraryTools(libraryToolsFixture(), testLogger())

	tests := []struct {
		name string
		ref  string
		want []string
	}{
		{name: "bare id", ref: "T1", want: []string{"P1", "P2"}},
		{name: "uri", ref: "spotify:track:T3", want: []string{"P2"}},
		{name: "link", ref: "https://open.spotify.com/track/T2?si=abc", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, found, err := tools.PlaylistsContaining(ctx, tt.ref, nil)
			if err != nil {
				t.Fatalf("PlaylistsContaining() error = %v", err)
			}
			if tr == nil {
				t.Fatal("track is nil")
			}
			var got []string
			for _, pl := range found {
				got = append(got, pl.ID)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("playlists = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("unknown track", func(t *testing.T) {
		if _, _, err := tools.PlaylistsContaining(ctx, "T9", nil); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestLibraryTools_PlaylistDiff(t *testing.T) {
	ctx := context.Background()
	tools := NewLibraryTools(libraryToolsFixture(), testLogger())

	diff, err := tools.PlaylistDiff(ctx, "P1", "spotify:playlist:P2")
	if err != nil {
		t.Fatalf("PlaylistDiff() error = %v", err)
	}
	if got := trackIDs(diff); !slices.Equal(got, []string{"T3", "T4"}) {
		t.Errorf("PlaylistDiff() = %v, want [T3 T4]", got)
	}

	if _, err := tools.PlaylistDiff(ctx, "P1", "gone"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("PlaylistDiff(gone) error = %v, want ErrNotFound", err)
	}
}

func TestParseSpotifyID(t *testing.T) {
	tests := []struct {
		kind, ref string
		want      string
		wantErr   error
	}{
		{kind: "track", ref: " 4uLU6hMCjMI75M1A2tKUQC ", want: "4uLU6hMCjMI75M1A2tKUQC"},
		{kind: "track", ref: "spotify:track:abc", want: "abc"},
		{kind: "playlist", ref: "https://open.spotify.com/playlist/xyz?si=1", want: "xyz"},
		{kind: "track", ref: "https://open.spotify.com/intl-de/track/abc", want: "abc"},
		{kind: "track", ref: "spotify:album:abc", wantErr: shared.ErrInvalidArgument},
		{kind: "track", ref: "https://open.spotify.com/album/abc", wantErr: shared.ErrInvalidArgument},
		{kind: "track", ref: "a b", wantErr: shared.ErrInvalidArgument},
		{kind: "track", ref: "", wantErr: shared.ErrMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ParseSpotifyID(tt.kind, tt.ref)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseSpotifyID() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSpotifyID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSpotifyID() = %q, want %q", got, tt.want)
			}
		})
	}
}
