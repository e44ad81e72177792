package tautulli

import (
	"github.com/mmcdole/reelcache/internal/domain"
)

// MapCollections converts get_libraries rows, dropping rows without a section id.
func MapCollections(libs []Library) []domain.Collection {
	out := make([]domain.Collection, 0, len(libs))
	for _, lib := range libs {
		if lib.SectionID == "" {
			continue
		}
		out = append(out, domain.Collection{
			ID:   lib.SectionID.String(),
			Name: lib.SectionName,
			Kind: domain.ParseKind(lib.SectionType),
		})
	}
	return out
}

// MapItemRefs converts a library listing into item references.
func MapItemRefs(items []MediaInfoItem) []domain.ItemRef {
	out := make([]domain.ItemRef, 0, len(items))
	for _, it := range items {
		out = append(out, domain.ItemRef{ID: it.RatingKey.String()})
	}
	return out
}

// MapDetail converts get_metadata data into an item detail.
func MapDetail(m Metadata) *domain.ItemDetail {
	d := &domain.ItemDetail{
		Title:                m.Title,
		MediaType:            m.MediaType,
		Genres:               m.Genres,
		Thumb:                m.Thumb,
		Summary:              m.Summary,
		Rating:               m.Rating.String(),
		ParentRatingKey:      m.ParentRatingKey.String(),
		GrandparentRatingKey: m.GrandparentRatingKey.String(),
	}
	if y, ok := m.Year.Int(); ok {
		year := int(y)
		d.Year = &year
	}
	if n, ok := m.PlayCount.Int(); ok {
		d.PlayCount = int(n)
	}
	if ts, ok := m.LastPlayed.Int(); ok {
		d.LastPlayed = &ts
	}
	return d
}
