package library

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcdole/reelcache/internal/domain"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultMaxConcurrency = 10
	DefaultBatchSize      = 20
	DefaultBatchDelay     = 200 * time.Millisecond
	DefaultPageSize       = 10000
)

// Options tunes the fetch pipeline. Zero values select the defaults, except
// BatchDelay where zero means no pause.
type Options struct {
	MaxConcurrency int           // Detail fetches in flight across the whole refresh
	BatchSize      int           // Item ids per batch within a collection
	BatchDelay     time.Duration // Pause between batches of the same collection
	PageSize       int           // Item listing ceiling per collection
	OnProgress     domain.ProgressFunc
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchDelay < 0 {
		o.BatchDelay = 0
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	return o
}

// Service produces a fresh, filtered record list from a metadata source.
//
// Collections are listed concurrently; every per-item detail fetch, whatever
// its collection, goes through one shared limiter of MaxConcurrency slots.
type Service struct {
	client domain.MetadataSource
	opts   Options
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// NewService creates a new fetch pipeline.
func NewService(client domain.MetadataSource, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	opts = opts.withDefaults()
	return &Service{
		client: client,
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		logger: logger,
	}
}

// tally accumulates counters from concurrent collection workers.
type tally struct {
	collectionsFailed atomic.Int64
	listed            atomic.Int64
	fetched           atomic.Int64
	fetchFailed       atomic.Int64
}

// Fetch runs a full refresh. Only a failed connectivity check, a failed
// collection listing or a cancelled ctx is returned as an error; per-collection
// and per-item failures are logged and counted in the stats. A cancelled
// refresh never returns the partial record list.
func (s *Service) Fetch(ctx context.Context) ([]domain.ItemRecord, domain.RefreshStats, error) {
	start := time.Now()
	var stats domain.RefreshStats

	if hc, ok := s.client.(domain.HealthChecker); ok {
		if err := hc.Ping(ctx); err != nil {
			s.logger.Error("metadata source connection check failed", "error", err)
			return nil, stats, fmt.Errorf("%w: %w", domain.ErrCollectionsUnavailable, err)
		}
	}

	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		s.logger.Error("failed to list collections", "error", err)
		return nil, stats, fmt.Errorf("%w: %w", domain.ErrCollectionsUnavailable, err)
	}
	collections = s.supportedCollections(collections)
	stats.Collections = len(collections)
	s.logger.Info("fetching media items", "collections", len(collections))

	var t tally
	perCollection := make([][]domain.ItemRecord, len(collections))

	var wg sync.WaitGroup
	for i, col := range collections {
		wg.Go(func() {
			perCollection[i] = s.fetchCollection(ctx, col, &t)
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		s.logger.Warn("refresh interrupted, discarding partial results", "error", err)
		return nil, stats, fmt.Errorf("refresh interrupted: %w", err)
	}

	all := slices.Concat(perCollection...)
	kept, dropped := FilterQuality(all)
	if dropped > 0 {
		s.logger.Info("filtered out low-quality media items", "count", dropped)
	}

	stats.CollectionsFailed = int(t.collectionsFailed.Load())
	stats.Listed = int(t.listed.Load())
	stats.FetchFailed = int(t.fetchFailed.Load())
	stats.Dropped = dropped
	stats.Kept = len(kept)
	stats.Duration = time.Since(start)

	if stats.FetchFailed > 0 {
		s.logger.Warn("some item metadata could not be fetched", "failed", stats.FetchFailed, "listed", stats.Listed)
	}
	s.logger.Info("fetched media items",
		"count", stats.Kept,
		"collections", stats.Collections,
		"duration", stats.Duration.Round(time.Millisecond))

	return kept, stats, nil
}

// supportedCollections keeps the collection kinds the cache understands.
func (s *Service) supportedCollections(cols []domain.Collection) []domain.Collection {
	out := make([]domain.Collection, 0, len(cols))
	for _, c := range cols {
		switch c.Kind {
		case domain.KindMovie, domain.KindShow, domain.KindEpisode:
			out = append(out, c)
		default:
			s.logger.Debug("skipping unsupported collection", "collectionID", c.ID, "name", c.Name, "kind", c.Kind)
		}
	}
	return out
}

// fetchCollection lists one collection and fetches its items batch by batch.
// It never fails: a listing error yields zero records for this collection only.
func (s *Service) fetchCollection(ctx context.Context, col domain.Collection, t *tally) []domain.ItemRecord {
	refs, err := s.client.ListItemsInCollection(ctx, col.ID, s.opts.PageSize)
	if err != nil {
		s.logger.Warn("failed to list collection items", "error", err, "collectionID", col.ID, "name", col.Name)
		t.collectionsFailed.Add(1)
		return nil
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ID == "" {
			continue
		}
		ids = append(ids, ref.ID)
	}
	if len(ids) == 0 {
		s.logger.Info("no media items in collection", "collectionID", col.ID, "name", col.Name)
		return nil
	}
	t.listed.Add(int64(len(ids)))
	s.logger.Debug("processing collection", "collectionID", col.ID, "name", col.Name, "items", len(ids))

	records := make([]domain.ItemRecord, 0, len(ids))
	first := true
	for batch := range slices.Chunk(ids, s.opts.BatchSize) {
		if !first {
			if err := sleepCtx(ctx, s.opts.BatchDelay); err != nil {
				s.logger.Warn("collection fetch interrupted", "error", err, "collectionID", col.ID)
				break
			}
		}
		first = false

		records = append(records, s.fetchBatch(ctx, batch, t)...)

		if s.opts.OnProgress != nil {
			s.opts.OnProgress(int(t.fetched.Load()), int(t.listed.Load()))
		}
	}

	s.logger.Debug("completed collection", "collectionID", col.ID, "name", col.Name, "count", len(records))
	return records
}

// fetchBatch fetches every id of a batch concurrently and waits for all of them.
// Failed items are dropped; the result keeps the batch order.
func (s *Service) fetchBatch(ctx context.Context, ids []string, t *tally) []domain.ItemRecord {
	results := make([]*domain.ItemRecord, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Go(func() {
			rec, err := s.fetchItem(ctx, id)
			if err != nil {
				s.logger.Debug("failed to fetch item metadata", "error", err, "itemID", id)
				t.fetchFailed.Add(1)
				return
			}
			t.fetched.Add(1)
			results[i] = &rec
		})
	}
	wg.Wait()

	out := make([]domain.ItemRecord, 0, len(ids))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// fetchItem holds one limiter slot for the duration of a single detail call.
func (s *Service) fetchItem(ctx context.Context, id string) (rec domain.ItemRecord, err error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return rec, err
	}
	defer s.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic fetching item %s: %v", id, r)
		}
	}()

	detail, err := s.client.FetchItemDetail(ctx, id)
	if err != nil {
		return rec, err
	}
	if detail == nil {
		return rec, fmt.Errorf("empty metadata for item %s", id)
	}
	return Normalize(id, *detail), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
