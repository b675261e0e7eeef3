package tasks

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// ReleaseRecord is the latest album known for an artist.
type ReleaseRecord struct {
	ID          string `json:"id"`
	ReleaseDate string `json:"release_date"`
}

// UnmarshalJSON also accepts the older "date" key.
func (r *ReleaseRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string `json:"id"`
		ReleaseDate string `json:"release_date"`
		Date        string `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	r.ReleaseDate = raw.ReleaseDate
	if r.ReleaseDate == "" {
		r.ReleaseDate = raw.Date
	}
	return nil
}

// ReleaseState maps artist ids to their latest known album. It persists between runs as JSON.
type ReleaseState map[string]ReleaseRecord

// LoadReleaseState reads the state file. A missing file yields an empty state, so every album counts as new.
func LoadReleaseState(path string) (ReleaseState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ReleaseState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read release state: %w", err)
	}

	state := ReleaseState{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: release state %s: %v", shared.ErrInvalidInput, path, err)
	}
	return state, nil
}

// Save writes the state to path, replacing the file.
func (s ReleaseState) Save(path string) error {
	data, err := shared.MarshalJSON(s, false)
	if err != nil {
		return fmt.Errorf("failed to encode release state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write release state: %w", err)
	}
	return nil
}

// newer reports whether album is later than what the state holds for artistID.
func (s ReleaseState) newer(artistID string, album DatedAlbum) bool {
	known, ok := s[artistID]
	if !ok {
		return true
	}
	stored, err := shared.ParseReleaseDate(known.ReleaseDate)
	if err != nil {
		return true
	}
	return album.Released.After(stored)
}

// NewRelease is one row of the release report.
type NewRelease struct {
	ArtistID    string `json:"artist_id"`
	ArtistName  string `json:"artist_name"`
	AlbumID     string `json:"album_id"`
	Album       string `json:"album"`
	ReleaseDate string `json:"release_date"`
}

// DetectNewReleases compares the latest album of every saved artist with state.
//
// Artists seen for the first time and artists with a later album are reported, and state is updated in place.
func (s *AlbumScanner) DetectNewReleases(ctx context.Context, state ReleaseState, progress chan<- ProgressUpdate) ([]NewRelease, error) {
	artists, err := s.SavedArtists(ctx)
	if err != nil {
		return nil, err
	}

	var found []NewRelease
	for i, id := range artists {
		sendProgress(progress, albumScanUpdate(i+1, len(artists), id))

		dated, err := s.datedAlbums(ctx, id)
		if err != nil {
			return nil, err
		}
		latest, ok := Latest(dated)
		if !ok || !state.newer(id, latest) {
			continue
		}

		state[id] = ReleaseRecord{ID: latest.Album.ID, ReleaseDate: latest.Album.ReleaseDate}
		found = append(found, NewRelease{
			ArtistID:    id,
			ArtistName:  artistName(id, dated),
			AlbumID:     latest.Album.ID,
			Album:       latest.Album.Name,
			ReleaseDate: latest.Album.ReleaseDate,
		})
		sendProgress(progress, releaseUpdate(len(found), len(artists), id, latest.Album.Name))
	}

	if len(found) == 0 {
		s.logger.Info("no new albums found")
		return nil, nil
	}
	if err := s.fillArtistNames(ctx, found); err != nil {
		return nil, err
	}
	s.logger.Info("found new albums", "count", len(found))
	return found, nil
}

// fillArtistNames replaces names taken from album credits with the artists' canonical names.
func (s *AlbumScanner) fillArtistNames(ctx context.Context, releases []NewRelease) error {
	ids := make([]string, len(releases))
	for i, r := range releases {
		ids[i] = r.ArtistID
	}

	batch, err := s.catalog.Artists(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch artist names: %w", err)
	}

	names := make(map[string]string, len(batch.Items))
	for _, a := range batch.Items {
		names[a.ID] = a.Name
	}
	for i := range releases {
		if name := names[releases[i].ArtistID]; name != "" {
			releases[i].ArtistName = name
		}
	}
	return nil
}

// Seed records the latest album of every saved artist without reporting anything. It returns the number of artists recorded.
func (s *AlbumScanner) Seed(ctx context.Context, state ReleaseState, progress chan<- ProgressUpdate) (int, error) {
	artists, err := s.SavedArtists(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, id := range artists {
		sendProgress(progress, albumScanUpdate(i+1, len(artists), id))

		dated, err := s.datedAlbums(ctx, id)
		if err != nil {
			return n, err
		}
		latest, ok := Latest(dated)
		if !ok {
			continue
		}
		state[id] = ReleaseRecord{ID: latest.Album.ID, ReleaseDate: latest.Album.ReleaseDate}
		n++
	}
	return n, nil
}

// SortReleases orders a report by artist name, then release date.
func SortReleases(releases []NewRelease) {
	slices.SortStableFunc(releases, func(a, b NewRelease) int {
		if c := cmp.Compare(a.ArtistName, b.ArtistName); c != 0 {
			return c
		}
		da, errA := shared.ParseReleaseDate(a.ReleaseDate)
		db, errB := shared.ParseReleaseDate(b.ReleaseDate)
		if errA != nil || errB != nil {
			return 0
		}
		return da.Compare(db)
	})
}

var _ Catalog = (*services.SpotifyService)(nil)
