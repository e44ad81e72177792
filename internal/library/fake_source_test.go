package library

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcdole/reelcache/internal/domain"
)

// fakeSource is an in-memory MetadataSource that records detail-fetch concurrency.
type fakeSource struct {
	mu          sync.Mutex
	collections []domain.Collection
	listErr     error
	pingErr     error
	items       map[string][]domain.ItemRef
	itemErr     map[string]error
	details     map[string]*domain.ItemDetail
	detailErr   map[string]error
	panicIDs    map[string]bool
	delay       time.Duration

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	detailCalls atomic.Int64
	pings       atomic.Int64
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		items:     make(map[string][]domain.ItemRef),
		itemErr:   make(map[string]error),
		details:   make(map[string]*domain.ItemDetail),
		detailErr: make(map[string]error),
		panicIDs:  make(map[string]bool),
	}
}

// addCollection registers a collection with n movies whose ids are "<colID>-<i>".
func (f *fakeSource) addCollection(id string, kind domain.MediaKind, n int) {
	f.collections = append(f.collections, domain.Collection{ID: id, Name: "Library " + id, Kind: kind})
	for i := range n {
		itemID := fmt.Sprintf("%s-%d", id, i)
		year := 2000 + i
		f.items[id] = append(f.items[id], domain.ItemRef{ID: itemID})
		f.details[itemID] = &domain.ItemDetail{
			Title:     "Title " + itemID,
			MediaType: string(kind),
			Genres:    []string{"Drama"},
			Year:      &year,
		}
	}
}

func (f *fakeSource) Ping(ctx context.Context) error {
	f.pings.Add(1)
	return f.pingErr
}

func (f *fakeSource) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.collections, nil
}

func (f *fakeSource) ListItemsInCollection(ctx context.Context, collectionID string, pageSize int) ([]domain.ItemRef, error) {
	if err := f.itemErr[collectionID]; err != nil {
		return nil, err
	}
	refs := f.items[collectionID]
	if len(refs) > pageSize {
		refs = refs[:pageSize]
	}
	return refs, nil
}

func (f *fakeSource) FetchItemDetail(ctx context.Context, itemID string) (*domain.ItemDetail, error) {
	f.detailCalls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicIDs[itemID] {
		panic("boom")
	}
	if err := f.detailErr[itemID]; err != nil {
		return nil, err
	}
	d, ok := f.details[itemID]
	if !ok {
		return nil, errors.New("no such item")
	}
	return d, nil
}
