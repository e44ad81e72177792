package domain

import (
	"slices"
	"strings"
)

// MediaKind classifies a catalog entry. Values are always lower case.
type MediaKind string

const (
	KindMovie   MediaKind = "movie"
	KindShow    MediaKind = "show"
	KindEpisode MediaKind = "episode"
	KindUnknown MediaKind = "unknown"
)

// UnknownTitle is stored when the source omits a title.
// The quality filter keys on it, so it must never be localized or changed.
const UnknownTitle = "Unknown Title"

// ParseKind normalizes a source media type. Empty input maps to KindUnknown;
// anything else is kept as-is in lower case.
func ParseKind(s string) MediaKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindUnknown
	}
	return MediaKind(s)
}

// ItemRecord is the normalized cache entry for one catalog item.
type ItemRecord struct {
	ID            string    // Source rating key, unique and never empty once stored
	Title         string    // Display title (UnknownTitle when the source omits it)
	Kind          MediaKind // movie, show, episode, unknown
	Genres        []string  // Lower-cased, distinct
	ArtworkRef    string    // Opaque thumb path, resolved into a URL by callers
	Year          *int      // Release year, nil when unknown
	PlayCount     int       // Times played
	LastPlayedAt  *int64    // Unix timestamp of the last play, nil when never played
	Summary       string    // Plot synopsis
	Rating        string    // Source-defined rating ("7.8", "PG-13", ...)
	ParentID      string    // Season for an episode
	GrandparentID string    // Show for an episode
}

// YearValue returns the year or 0 when unknown.
func (r ItemRecord) YearValue() int {
	if r.Year == nil {
		return 0
	}
	return *r.Year
}

// HasGenre reports whether the record carries genre g (case-insensitive).
func (r ItemRecord) HasGenre(g string) bool {
	g = strings.ToLower(g)
	return slices.Contains(r.Genres, g)
}

// IsTV reports whether the record belongs to the TV side of the catalog.
func (r ItemRecord) IsTV() bool {
	return r.Kind == KindShow || r.Kind == KindEpisode
}

// Clone returns a deep copy so callers can never alias snapshot memory.
func (r ItemRecord) Clone() ItemRecord {
	c := r
	c.Genres = slices.Clone(r.Genres)
	if r.Year != nil {
		y := *r.Year
		c.Year = &y
	}
	if r.LastPlayedAt != nil {
		t := *r.LastPlayedAt
		c.LastPlayedAt = &t
	}
	return c
}

// NormalizeGenres lower-cases, trims and de-duplicates genres, keeping first-seen order.
// Returns nil when nothing remains.
func NormalizeGenres(genres []string) []string {
	out := make([]string, 0, len(genres))
	seen := make(map[string]bool, len(genres))
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
