// Package query implements read-only views over a snapshot's records:
// filter, exclude, order, paginate and substring search. No function here
// modifies its input slice.
package query

import (
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/mmcdole/reelcache/internal/domain"
)

// KindTV is the filter alias covering shows and episodes.
const KindTV = "tv"

// KindSet expands a kind filter into the set of kinds it admits.
// "tv" admits shows and episodes; any other value admits itself (lower case).
// An empty filter returns nil, which admits everything.
func KindSet(kind string) map[domain.MediaKind]bool {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "":
		return nil
	case KindTV:
		return map[domain.MediaKind]bool{domain.KindShow: true, domain.KindEpisode: true}
	default:
		return map[domain.MediaKind]bool{domain.MediaKind(kind): true}
	}
}

// Filter keeps records whose kind is admitted by kind and, when genres is
// non-empty, that share at least one genre with it (case-insensitive).
func Filter(records []domain.ItemRecord, kind string, genres []string) []domain.ItemRecord {
	kinds := KindSet(kind)
	wanted := genreSet(genres)

	out := make([]domain.ItemRecord, 0, len(records))
	for _, r := range records {
		if kinds != nil && !kinds[domain.MediaKind(strings.ToLower(string(r.Kind)))] {
			continue
		}
		if wanted != nil && !anyGenre(r, wanted) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func genreSet(genres []string) map[string]bool {
	var set map[string]bool
	for _, g := range genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" {
			continue
		}
		if set == nil {
			set = make(map[string]bool, len(genres))
		}
		set[g] = true
	}
	return set
}

func anyGenre(r domain.ItemRecord, wanted map[string]bool) bool {
	for _, g := range r.Genres {
		if wanted[strings.ToLower(g)] {
			return true
		}
	}
	return false
}

// IDSet builds an exclusion set from ids.
func IDSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// Exclude drops records whose id is in ids.
func Exclude(records []domain.ItemRecord, ids map[string]struct{}) []domain.ItemRecord {
	if len(ids) == 0 {
		return slices.Clone(records)
	}
	out := make([]domain.ItemRecord, 0, len(records))
	for _, r := range records {
		if _, skip := ids[r.ID]; skip {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Order returns a reordered copy: uniformly shuffled when random is set,
// otherwise sorted descending by field (stable), otherwise unchanged.
func Order(records []domain.ItemRecord, random bool, field string) []domain.ItemRecord {
	out := slices.Clone(records)
	switch {
	case random:
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	case field != "":
		SortDesc(out, field)
	}
	return out
}

// Paginate returns records[offset:offset+limit] clamped to bounds.
// Out-of-range offsets yield an empty result; limit <= 0 means no upper bound.
func Paginate(records []domain.ItemRecord, offset, limit int) []domain.ItemRecord {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []domain.ItemRecord{}
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return slices.Clone(records[offset:end])
}

// Search returns up to limit records whose title contains text,
// case-insensitively, in scan order. limit <= 0 returns every match.
func Search(records []domain.ItemRecord, text string, limit int) []domain.ItemRecord {
	needle := strings.ToLower(text)
	var out []domain.ItemRecord
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.Title), needle) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if out == nil {
		out = []domain.ItemRecord{}
	}
	return out
}
