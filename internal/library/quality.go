package library

import (
	"strconv"

	"github.com/mmcdole/reelcache/internal/domain"
)

// IsLowQuality reports whether a record carries too little metadata to be
// worth keeping. Two independent rules:
//   - an UnknownTitle record with no genres, year, play count, summary or non-zero rating
//   - an unknown-kind record with no genres
//
// An unknown-kind record that has genres is kept.
func IsLowQuality(r domain.ItemRecord) bool {
	if r.Title == domain.UnknownTitle &&
		len(r.Genres) == 0 &&
		r.YearValue() == 0 &&
		r.PlayCount == 0 &&
		r.Summary == "" &&
		!hasRating(r.Rating) {
		return true
	}
	return r.Kind == domain.KindUnknown && len(r.Genres) == 0
}

// FilterQuality returns the records worth keeping in input order, and how
// many were dropped. Applying it twice is the same as applying it once.
func FilterQuality(records []domain.ItemRecord) ([]domain.ItemRecord, int) {
	kept := make([]domain.ItemRecord, 0, len(records))
	for _, r := range records {
		if IsLowQuality(r) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, len(records) - len(kept)
}

// hasRating reports whether rating carries a value. A numeric zero is what
// sources send for "unrated", so it counts as absent.
func hasRating(rating string) bool {
	if rating == "" {
		return false
	}
	if f, err := strconv.ParseFloat(rating, 64); err == nil && f == 0 {
		return false
	}
	return true
}
