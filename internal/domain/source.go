package domain

import "context"

// Collection is a top-level library section on the remote source.
type Collection struct {
	ID   string
	Name string
	Kind MediaKind
}

// ItemRef identifies an item listed inside a collection.
type ItemRef struct {
	ID string
}

// ItemDetail is the raw per-item metadata returned by a source, before
// normalization. Zero values mean the source omitted the field.
type ItemDetail struct {
	Title                string
	MediaType            string
	Genres               []string
	Thumb                string
	Year                 *int
	PlayCount            int
	LastPlayed           *int64
	Summary              string
	Rating               string
	ParentRatingKey      string
	GrandparentRatingKey string
}

// MetadataSource is the remote metadata service the cache refreshes from.
// Each call is expected to carry its own timeout.
type MetadataSource interface {
	ListCollections(ctx context.Context) ([]Collection, error)
	ListItemsInCollection(ctx context.Context, collectionID string, pageSize int) ([]ItemRef, error)
	FetchItemDetail(ctx context.Context, itemID string) (*ItemDetail, error)
}

// HealthChecker is implemented by sources that can cheaply verify connectivity
// before a refresh starts.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
