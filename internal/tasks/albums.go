package tasks

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
)

// Catalog is the remote side of the album tools.
type Catalog interface {
	SavedTracks(ctx context.Context) ([]services.SpotifySavedTrack, error)
	ArtistAlbums(ctx context.Context, artistID string) ([]services.SpotifyAlbum, error)
	Artists(ctx context.Context, ids []string) (*services.Batch[services.SpotifyArtist], error)
}

// DatedAlbum pairs an album with its parsed release date.
type DatedAlbum struct {
	Album    services.SpotifyAlbum
	Released shared.ReleaseDate
}

// ArtistAlbums holds the albums kept for one artist, oldest first.
type ArtistAlbums struct {
	ArtistID   string
	ArtistName string
	Albums     []DatedAlbum
}

// AlbumScanner finds recent releases of the artists in a user's library.
type AlbumScanner struct {
	catalog    Catalog
	classifier AlbumClassifier
	logger     *log.Logger
}

// NewAlbumScanner creates an AlbumScanner. A nil classifier keeps every album.
func NewAlbumScanner(catalog Catalog, classifier AlbumClassifier, logger *log.Logger) *AlbumScanner {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AlbumScanner{catalog: catalog, classifier: classifier, logger: logger}
}

// SavedArtists returns the distinct ids of every artist credited on a saved track, in first-seen order.
func (s *AlbumScanner) SavedArtists(ctx context.Context) ([]string, error) {
	saved, err := s.catalog.SavedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch saved tracks: %w", err)
	}

	var ids []string
	for _, st := range saved {
		ids = append(ids, st.Track.ArtistIDs()...)
	}
	ids = shared.Unique(ids)
	s.logger.Info("found saved artists", "count", len(ids))
	return ids, nil
}

// Recent returns, per artist, the albums released on or after cutoff sorted oldest first.
//
// artistIDs defaults to [AlbumScanner.SavedArtists]. Artists without any album are logged and left out,
// as are albums with malformed release dates.
func (s *AlbumScanner) Recent(ctx context.Context, cutoff time.Time, artistIDs []string, progress chan<- ProgressUpdate) ([]ArtistAlbums, error) {
	if artistIDs == nil {
		var err error
		if artistIDs, err = s.SavedArtists(ctx); err != nil {
			return nil, err
		}
	}
	y, m, d := cutoff.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var result []ArtistAlbums
	for i, id := range artistIDs {
		sendProgress(progress, albumScanUpdate(i+1, len(artistIDs), id))

		dated, err := s.datedAlbums(ctx, id)
		if err != nil {
			return nil, err
		}
		if dated == nil {
			continue
		}

		entry := ArtistAlbums{ArtistID: id, ArtistName: artistName(id, dated)}
		for _, da := range dated {
			if da.Released.OnOrAfter(day) {
				entry.Albums = append(entry.Albums, da)
			}
		}
		slices.SortStableFunc(entry.Albums, func(a, b DatedAlbum) int {
			return a.Released.Compare(b.Released)
		})
		result = append(result, entry)
	}
	return result, nil
}

// datedAlbums fetches every album of an artist and parses its release date.
// It returns nil without error when the artist has no usable album.
func (s *AlbumScanner) datedAlbums(ctx context.Context, artistID string) ([]DatedAlbum, error) {
	albums, err := s.catalog.ArtistAlbums(ctx, artistID)
	if isNotFound(err) {
		s.logger.Warn("artist not found", "id", artistID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch albums of %s: %w", artistID, err)
	}
	if len(albums) == 0 {
		s.logger.Warn("couldn't find any albums", "artist", artistID)
		return nil, nil
	}

	dated := make([]DatedAlbum, 0, len(albums))
	for _, a := range albums {
		if s.classifier != nil && s.classifier.Exclude(a) {
			s.logger.Debug("excluding compilation", "album", a.Name)
			continue
		}
		rd, err := shared.ParseReleaseDate(a.ReleaseDate)
		if err != nil {
			s.logger.Warn("skipping album with bad release date", "album", a.Name, "error", err)
			continue
		}
		dated = append(dated, DatedAlbum{Album: a, Released: rd})
	}
	if len(dated) == 0 {
		return nil, nil
	}
	return dated, nil
}

// Latest returns the most recently released album. Ties keep the first one seen.
func Latest(albums []DatedAlbum) (DatedAlbum, bool) {
	if len(albums) == 0 {
		return DatedAlbum{}, false
	}
	best := albums[0]
	for _, a := range albums[1:] {
		if a.Released.After(best.Released) {
			best = a
		}
	}
	return best, true
}

func artistName(id string, albums []DatedAlbum) string {
	for _, da := range albums {
		for _, ar := range da.Album.Artists {
			if ar.ID == id && ar.Name != "" {
				return ar.Name
			}
		}
	}
	return id
}
