package plex

import (
	"strconv"

	"github.com/mmcdole/reelcache/internal/domain"
)

// MapCollections converts Plex directories to collections
func MapCollections(dirs []Directory) []domain.Collection {
	out := make([]domain.Collection, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, domain.Collection{
			ID:   d.Key,
			Name: d.Title,
			Kind: domain.ParseKind(d.Type),
		})
	}
	return out
}

// MapItemRefs converts a section listing to item references
func MapItemRefs(metadata []Metadata) []domain.ItemRef {
	refs := make([]domain.ItemRef, 0, len(metadata))
	for _, m := range metadata {
		refs = append(refs, domain.ItemRef{ID: m.RatingKey})
	}
	return refs
}

// MapDetail converts a single metadata entry to an item detail
func MapDetail(m Metadata) *domain.ItemDetail {
	d := &domain.ItemDetail{
		Title:                m.Title,
		MediaType:            m.Type,
		Thumb:                m.Thumb,
		PlayCount:            m.ViewCount,
		Summary:              m.Summary,
		Rating:               formatRating(m),
		ParentRatingKey:      m.ParentRatingKey,
		GrandparentRatingKey: m.GrandparentRatingKey,
	}

	// Episodes usually have no artwork of their own
	if d.Thumb == "" {
		d.Thumb = m.GrandparentThumb
	}

	for _, g := range m.Genre {
		d.Genres = append(d.Genres, g.Tag)
	}

	if m.Year > 0 {
		year := m.Year
		d.Year = &year
	}
	if m.LastViewedAt > 0 {
		ts := m.LastViewedAt
		d.LastPlayed = &ts
	}
	return d
}

// formatRating prefers the critic score, then the audience score
func formatRating(m Metadata) string {
	switch {
	case m.Rating > 0:
		return strconv.FormatFloat(m.Rating, 'f', -1, 64)
	case m.AudienceRating > 0:
		return strconv.FormatFloat(m.AudienceRating, 'f', -1, 64)
	default:
		return ""
	}
}
