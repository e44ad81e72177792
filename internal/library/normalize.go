package library

import (
	"strings"

	"github.com/mmcdole/reelcache/internal/domain"
)

// Normalize converts raw source metadata into a stored record, applying the
// field defaults collaborators rely on being present.
func Normalize(id string, d domain.ItemDetail) domain.ItemRecord {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = domain.UnknownTitle
	}

	rec := domain.ItemRecord{
		ID:            id,
		Title:         title,
		Kind:          domain.ParseKind(d.MediaType),
		Genres:        domain.NormalizeGenres(d.Genres),
		ArtworkRef:    d.Thumb,
		PlayCount:     max(d.PlayCount, 0),
		Summary:       d.Summary,
		Rating:        strings.TrimSpace(d.Rating),
		ParentID:      d.ParentRatingKey,
		GrandparentID: d.GrandparentRatingKey,
	}
	if d.Year != nil {
		y := *d.Year
		rec.Year = &y
	}
	if d.LastPlayed != nil {
		lp := *d.LastPlayed
		rec.LastPlayedAt = &lp
	}
	return rec
}
