package catalog

import (
	"context"
	"strings"

	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/query"
	"github.com/mmcdole/reelcache/internal/search"
)

// ItemsQuery selects records for GetItems. The zero value returns the first
// DefaultLimit records in snapshot order.
type ItemsQuery struct {
	Kind       string   // "tv", "movie", or a literal kind; empty admits all
	Genres     []string // Any-of match, case-insensitive
	ExcludeIDs []string
	Limit      int // DefaultLimit when zero
	Offset     int
	SortBy     string // Wire field name, sorted descending
	Random     bool   // Shuffle instead of sorting
}

// GetItem returns the record with the given id.
func (c *Catalog) GetItem(ctx context.Context, id string) (domain.ItemRecord, bool) {
	c.EnsureValid(ctx)
	rec, ok := c.store.Current().Get(strings.TrimSpace(id))
	if !ok {
		return domain.ItemRecord{}, false
	}
	return rec.Clone(), true
}

// GetItems runs Filter, Exclude, Order and Paginate over the current snapshot.
func (c *Catalog) GetItems(ctx context.Context, q ItemsQuery) []domain.ItemRecord {
	c.EnsureValid(ctx)
	limit := q.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	items := query.Filter(c.store.Current().Records(), q.Kind, q.Genres)
	items = query.Exclude(items, query.IDSet(q.ExcludeIDs...))
	items = query.Order(items, q.Random, q.SortBy)
	items = query.Paginate(items, q.Offset, limit)
	return cloneAll(items)
}

// Search returns up to limit records whose title contains text.
func (c *Catalog) Search(ctx context.Context, text string, limit int) []domain.ItemRecord {
	c.EnsureValid(ctx)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return cloneAll(query.Search(c.store.Current().Records(), text, limit))
}

// FuzzySearch ranks titles by fuzzy similarity to text, best first.
func (c *Catalog) FuzzySearch(ctx context.Context, text string, limit int) []search.Match {
	c.EnsureValid(ctx)
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	matches := search.FuzzyTitles(c.store.Current().Records(), text, limit)
	for i := range matches {
		matches[i].Record = matches[i].Record.Clone()
	}
	return matches
}

// Genres returns every genre in the snapshot, sorted.
func (c *Catalog) Genres(ctx context.Context) []string {
	c.EnsureValid(ctx)
	return search.Genres(c.store.Current().Records())
}

// ResolveGenre maps free text to the snapshot's genres.
func (c *Catalog) ResolveGenre(ctx context.Context, term string) []string {
	return search.ResolveGenre(c.Genres(ctx), term)
}

// GenresFor returns a record's genres, borrowing its show's (or season's)
// when it has none. found is false when id is not in the snapshot.
func (c *Catalog) GenresFor(ctx context.Context, id string) (genres []string, found bool) {
	c.EnsureValid(ctx)
	snap := c.store.Current()
	rec, ok := snap.Get(strings.TrimSpace(id))
	if !ok {
		return nil, false
	}
	return append([]string(nil), search.GenresFor(snap.Get, rec)...), true
}

func cloneAll(records []domain.ItemRecord) []domain.ItemRecord {
	out := make([]domain.ItemRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
