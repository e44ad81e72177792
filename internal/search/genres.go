package search

import (
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/reelcache/internal/domain"
)

// Genres returns the distinct genres present in records, sorted.
func Genres(records []domain.ItemRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		for _, g := range r.Genres {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	slices.Sort(out)
	return out
}

// ResolveGenre maps free text to known genres. An exact (case-insensitive)
// match wins outright; otherwise every genre the term fuzzily matches is
// returned, closest first.
func ResolveGenre(known []string, term string) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	if slices.Contains(known, term) {
		return []string{term}
	}

	ranks := fuzzy.RankFindNormalizedFold(term, known)
	sort.Sort(ranks)

	out := make([]string, len(ranks))
	for i, r := range ranks {
		out[i] = r.Target
	}
	return out
}

// GenresFor returns the record's own genres, or, when it has none, those of
// its grandparent and then its parent. Episodes usually carry no genres of
// their own; their show does.
func GenresFor(lookup func(id string) (domain.ItemRecord, bool), rec domain.ItemRecord) []string {
	if len(rec.Genres) > 0 {
		return rec.Genres
	}
	for _, id := range []string{rec.GrandparentID, rec.ParentID} {
		if id == "" {
			continue
		}
		if anc, ok := lookup(id); ok && len(anc.Genres) > 0 {
			return anc.Genres
		}
	}
	return nil
}
