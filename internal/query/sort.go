package query

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/mmcdole/reelcache/internal/domain"
)

// sortKey is one record's value for a sort field. Missing values sort last
// in descending order.
type sortKey struct {
	present bool
	numeric bool
	num     float64
	str     string
}

// SortFields lists the accepted sort field names (wire names).
var SortFields = []string{
	"title", "media_type", "year", "play_count", "last_played",
	"rating", "summary", "rating_key", "thumb",
}

// canonicalField maps wire names and their camel-case forms to one spelling.
func canonicalField(field string) string {
	f := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(field), "_", ""))
	switch f {
	case "mediatype", "kind", "type":
		return "media_type"
	case "playcount", "plays":
		return "play_count"
	case "lastplayed", "lastplayedat":
		return "last_played"
	case "ratingkey", "id":
		return "rating_key"
	case "thumb", "artworkref":
		return "thumb"
	default:
		return f
	}
}

// IsSortField reports whether field names a sortable field.
func IsSortField(field string) bool {
	return slices.Contains(SortFields, canonicalField(field))
}

func keyFor(r domain.ItemRecord, field string) sortKey {
	switch field {
	case "title":
		return textKey(r.Title)
	case "media_type":
		return textKey(string(r.Kind))
	case "summary":
		return textKey(r.Summary)
	case "rating_key":
		return scalarKey(r.ID)
	case "thumb":
		return textKey(r.ArtworkRef)
	case "year":
		if r.Year == nil {
			return sortKey{}
		}
		return sortKey{present: true, numeric: true, num: float64(*r.Year)}
	case "play_count":
		return sortKey{present: true, numeric: true, num: float64(r.PlayCount)}
	case "last_played":
		if r.LastPlayedAt == nil {
			return sortKey{}
		}
		return sortKey{present: true, numeric: true, num: float64(*r.LastPlayedAt)}
	case "rating":
		return scalarKey(r.Rating)
	default:
		return sortKey{}
	}
}

func textKey(s string) sortKey {
	return sortKey{present: true, str: s}
}

// scalarKey treats numeric-looking strings as numbers ("8.1" > "10" would be wrong as text).
func scalarKey(s string) sortKey {
	s = strings.TrimSpace(s)
	if s == "" {
		return sortKey{}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return sortKey{present: true, numeric: true, num: f, str: s}
	}
	return sortKey{present: true, str: s}
}

func compareKeys(a, b sortKey) int {
	switch {
	case a.present != b.present:
		if a.present {
			return 1
		}
		return -1
	case !a.present:
		return 0
	case a.numeric && b.numeric:
		return cmp.Compare(a.num, b.num)
	case a.numeric != b.numeric:
		// numbers rank above free text
		if a.numeric {
			return 1
		}
		return -1
	default:
		return cmp.Compare(a.str, b.str)
	}
}

// SortDesc stably sorts records in place, descending by field.
// An unknown field leaves the order unchanged.
func SortDesc(records []domain.ItemRecord, field string) {
	field = canonicalField(field)
	if !slices.Contains(SortFields, field) {
		return
	}
	slices.SortStableFunc(records, func(a, b domain.ItemRecord) int {
		return compareKeys(keyFor(b, field), keyFor(a, field))
	})
}
