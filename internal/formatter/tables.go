package formatter

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/tunegraph/internal/models"
	"github.com/desertthunder/tunegraph/internal/repositories"
	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/tasks"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

// newTable builds a bordered table with styled headers.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// TrackTable lists tracks with their artists and album.
func TrackTable(tracks []services.SpotifyTrack) string {
	t := newTable("#", "Title", "Artist", "Album", "Length")
	for i, tr := range tracks {
		t.Row(strconv.Itoa(i+1), tr.Name, Artists(tr), tr.Album.Name, FormatDuration(tr.DurationMS))
	}
	return t.String()
}

// PlaylistTable lists playlists with their owner and size.
func PlaylistTable(playlists []services.SpotifySimplePlaylist) string {
	t := newTable("ID", "Name", "Owner", "Tracks")
	for _, pl := range playlists {
		owner := pl.Owner.DisplayName
		if owner == "" {
			owner = pl.Owner.ID
		}
		t.Row(pl.ID, pl.Name, owner, strconv.Itoa(pl.Tracks.Total))
	}
	return t.String()
}

// ReleaseTable lists new releases.
func ReleaseTable(releases []tasks.NewRelease) string {
	t := newTable("Artist", "Album", "Released")
	for _, r := range releases {
		t.Row(r.ArtistName, r.Album, r.ReleaseDate)
	}
	return t.String()
}

// RecentTable lists the recent albums of every artist, one row per album.
func RecentTable(artists []tasks.ArtistAlbums) string {
	t := newTable("Artist", "Album", "Type", "Released")
	for _, a := range artists {
		for _, da := range a.Albums {
			t.Row(a.ArtistName, da.Album.Name, da.Album.AlbumType, da.Released.String())
		}
	}
	return t.String()
}

// StatsTable lists node counts per kind followed by relationship counts per type.
func StatsTable(stats *repositories.Stats) string {
	t := newTable("Entry", "Count")
	for _, k := range models.Kinds {
		t.Row(string(k), strconv.Itoa(stats.Nodes[k]))
	}

	rels := make([]models.RelType, 0, len(stats.Relationships))
	for r := range stats.Relationships {
		rels = append(rels, r)
	}
	slices.Sort(rels)
	for _, r := range rels {
		t.Row(string(r), strconv.Itoa(stats.Relationships[r]))
	}
	return t.String()
}

// SyncTable summarizes the jobs of a sync run.
func SyncTable(result *tasks.SyncResult) string {
	t := newTable("Job", "Anchors", "Links", "Nodes", "Created", "Deferred", "Unresolved", "Skipped", "Took")
	for _, r := range result.Jobs {
		t.Row(
			r.Job.String(),
			strconv.Itoa(r.Anchors),
			strconv.Itoa(r.Relationships),
			strconv.Itoa(r.Nodes),
			strconv.Itoa(r.Created),
			strconv.Itoa(r.Deferred),
			strconv.Itoa(r.Unresolved),
			strconv.Itoa(len(r.Skipped)),
			fmt.Sprint(r.Duration.Round(time.Millisecond)),
		)
	}
	return t.String()
}
