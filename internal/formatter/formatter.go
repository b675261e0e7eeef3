// package formatter renders track lists, release reports and graph summaries as CSV, Markdown, plain text or console tables
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/tunegraph/internal/services"
	"github.com/desertthunder/tunegraph/internal/shared"
	"github.com/desertthunder/tunegraph/internal/tasks"
)

// Format selects an export encoding.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts a format name or a file extension with its leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Artists joins the credited artist names of a track.
func Artists(t services.SpotifyTrack) string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// ExportToCSV converts tracks to CSV with columns: ID, Title, Artist, Album, Duration, ISRC
func ExportToCSV(tracks []services.SpotifyTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range tracks {
		record := []string{
			t.ID,
			t.Name,
			Artists(t),
			t.Album.Name,
			strconv.Itoa(t.DurationMS / 1000),
			t.ExternalIDs.ISRC,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders tracks as a numbered Markdown list under title
func ExportToMarkdown(title string, tracks []services.SpotifyTrack) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(tracks))

	buf.WriteString("## Tracks\n\n")
	for i, t := range tracks {
		albumPart := ""
		if t.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", t.Album.Name)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, Artists(t), t.Name, albumPart, FormatDuration(t.DurationMS))
	}

	return buf.Bytes(), nil
}

// ExportToText renders tracks as plain text
func ExportToText(title string, tracks []services.SpotifyTrack) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", title)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(tracks))

	for i, t := range tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, Artists(t), t.Name)
	}

	return buf.Bytes(), nil
}

// Export encodes tracks in the given format.
func Export(format Format, title string, tracks []services.SpotifyTrack) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(tracks)
	case FormatMarkdown:
		return ExportToMarkdown(title, tracks)
	case FormatText:
		return ExportToText(title, tracks)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport writes tracks to path, choosing the format from the file extension.
func WriteExport(path, title string, tracks []services.SpotifyTrack) error {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}

	data, err := Export(format, title, tracks)
	if err != nil {
		return fmt.Errorf("failed to generate %s export: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// ReleaseReport renders the block appended to the release log: a blank line, the day, then one row per
// release with artist, album and release date padded to the widest entry of each column and joined by tabs.
func ReleaseReport(day time.Time, releases []tasks.NewRelease) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", day.Format(time.DateOnly))

	var widths [3]int
	rows := make([][3]string, len(releases))
	for i, r := range releases {
		rows[i] = [3]string{r.ArtistName, r.Album, r.ReleaseDate}
		for c, cell := range rows[i] {
			widths[c] = max(widths[c], utf8.RuneCountInString(cell))
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for c, cell := range row {
			cells[c] = cell + strings.Repeat(" ", widths[c]-utf8.RuneCountInString(cell))
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

// AppendReleaseReport appends the report for day to the log at path, creating it and its directory if needed.
func AppendReleaseReport(path string, day time.Time, releases []tasks.NewRelease) error {
	if len(releases) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open release log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(ReleaseReport(day, releases)); err != nil {
		return fmt.Errorf("failed to write release log: %w", err)
	}
	return nil
}
