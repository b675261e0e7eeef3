package tasks

import (
	"regexp"
	"strings"

	"github.com/desertthunder/tunegraph/internal/services"
)

// compilationPatterns match album titles of genre samplers, decade mixes, soundtracks and alternate versions.
var compilationPatterns = []string{
	`[0-9]0(?:')?s`,
	`\bClassic\b`,
	`\bR[n&]B\b`,
	`\bAlt(?: |-)Rock\b`,
	`\bHip(?: |-)Hop\b`,
	`\b(?:Summer|Fall|Winter|Spring|Christmas) (?:Pop|Rock)`,
	`\b[0-9]{2,4} Greatest\b`,
	`\([^\(]*Live[^\)]*\)`,
	`\bPlaylist\b`,
	`\bOriginal.*(?:Score|Soundtrack)\b`,
	`\bInstrumentals?\b`,
	`\bRemaster(?:ed)?\b`,
	`\bAcoustic\b`,
	`\bNow That'?s What I Call Music\b`,
}

// AlbumClassifier decides which albums the scanner ignores.
type AlbumClassifier interface {
	Exclude(album services.SpotifyAlbum) bool
}

// CompilationFilter excludes compilations: albums credited to more than MaxArtists artists
// or whose title looks like a sampler, a live recording or a reissue.
type CompilationFilter struct {
	MaxArtists int
	pattern    *regexp.Regexp
}

// NewCompilationFilter returns a filter with the default title patterns and a ten artist limit.
func NewCompilationFilter() *CompilationFilter {
	return &CompilationFilter{
		MaxArtists: 10,
		pattern:    regexp.MustCompile(`(?i)` + strings.Join(compilationPatterns, "|")),
	}
}

// Exclude reports whether album is a compilation.
func (f *CompilationFilter) Exclude(album services.SpotifyAlbum) bool {
	return len(album.Artists) > f.MaxArtists || f.MatchTitle(album.Name)
}

// MatchTitle reports whether title matches any compilation pattern.
func (f *CompilationFilter) MatchTitle(title string) bool {
	return f.pattern.MatchString(title)
}
