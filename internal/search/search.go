package search

import (
	"strings"

	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/sahilm/fuzzy"
)

// Match is a fuzzy title hit with match metadata for highlighting.
type Match struct {
	Record         domain.ItemRecord
	MatchedIndexes []int
	Score          int // Higher is better
}

// titleIndex implements fuzzy.Source over pre-lowered titles.
type titleIndex struct {
	records     []domain.ItemRecord
	lowerTitles []string
}

func newTitleIndex(records []domain.ItemRecord) *titleIndex {
	idx := &titleIndex{
		records:     records,
		lowerTitles: make([]string, len(records)),
	}
	for i, r := range records {
		idx.lowerTitles[i] = strings.ToLower(r.Title)
	}
	return idx
}

// String returns the lowercase title at index i (implements fuzzy.Source)
func (idx *titleIndex) String(i int) string { return idx.lowerTitles[i] }

// Len returns the number of items (implements fuzzy.Source)
func (idx *titleIndex) Len() int { return len(idx.records) }

// FuzzyTitles ranks records by how well their title fuzzily matches query.
// Returns at most limit matches (limit <= 0 means all), best first.
func FuzzyTitles(records []domain.ItemRecord, query string, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || len(records) == 0 {
		return nil
	}

	matches := fuzzy.FindFrom(query, newTitleIndex(records))
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	results := make([]Match, len(matches))
	for i, m := range matches {
		results[i] = Match{
			Record:         records[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}
	return results
}
