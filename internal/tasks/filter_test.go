package tasks

import (
	"strconv"
	"testing"

	"github.com/desertthunder/tunegraph/internal/services"
)

func TestCompilationFilter(t *testing.T) {
	f := NewCompilationFilter()

	t.Run("matches compilation titles", func(t *testing.T) {
		titles := []string{
			"Fast Hip-Hop Urban R&B",
			"80's Supershow   ",
			"Beat the World (Original Motion Picture Soundtrack)",
			"Sorry To Bother You (Original Score)",
			"Time for Music: Relaxing Instrumental Playlists for Lovers",
			"Now That's What I Call Music!",
			"00s Hits",
			"100 Greatest Hip-Hop",
			"Vol. 3 (Live Version)",
			"Classic Rock",
			"Alt Rock for salt socks",
			"the alt-rock for malt mocks",
			" this (remastered)",
			"songs (Acoustic version)",
			"Heartbreak Instrumentals",
			"Playlist: only the bangers",
			"hip hop on pop",
			"Rnb",
		}
		for _, title := range titles {
			if !f.MatchTitle(title) {
				t.Errorf("MatchTitle(%q) = false, want true", title)
			}
		}
	})

	t.Run("keeps regular albums", func(t *testing.T) {
		titles := []string{
			"In Rainbows",
			"Blonde",
			"Classical Variations",
			"Alive",
			"Oliver's Army",
			"The Score",
		}
		for _, title := range titles {
			if f.MatchTitle(title) {
				t.Errorf("MatchTitle(%q) = true, want false", title)
			}
		}
	})

	t.Run("excludes albums with many artists", func(t *testing.T) {
		al := services.SpotifyAlbum{Name: "Friends"}
		for i := range 10 {
			al.Artists = append(al.Artists, services.SpotifyArtist{ID: strconv.Itoa(i)})
		}
		if f.Exclude(al) {
			t.Error("ten artists should not be excluded")
		}

		al.Artists = append(al.Artists, services.SpotifyArtist{ID: "11"})
		if !f.Exclude(al) {
			t.Error("eleven artists should be excluded")
		}
	})
}
