// Package catalog is the metadata cache consumed in-process by the command layer.
//
// A Catalog owns one snapshot store, one fetch pipeline and one persister.
// Every read first makes sure the snapshot is fresh (refreshing at most once
// across concurrent callers), then answers from memory. Refresh failures on
// the read path are logged and the last good snapshot is served; only
// ForceRefresh reports them.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/store"
)

const (
	DefaultTTL         = time.Hour
	DefaultLimit       = 100
	DefaultSearchLimit = 10
)

// Fetcher produces a fresh record list. Implemented by library.Service.
type Fetcher interface {
	Fetch(ctx context.Context) ([]domain.ItemRecord, domain.RefreshStats, error)
}

// Options configures a Catalog.
type Options struct {
	TTL   time.Duration    // Snapshot lifetime; DefaultTTL when zero
	Clock func() time.Time // Time source for staleness; time.Now when nil
}

// Catalog is the metadata cache.
type Catalog struct {
	store     *store.SnapshotStore
	fetcher   Fetcher
	persister domain.SnapshotPersister
	logger    *slog.Logger

	saveMu   sync.Mutex // serializes saves
	savedGen uint64     // generation last written to disk

	statsMu   sync.RWMutex
	lastStats domain.RefreshStats
}

// New creates a catalog. persister may be nil for a memory-only cache.
func New(fetcher Fetcher, persister domain.SnapshotPersister, opts Options, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	var storeOpts []store.Option
	if opts.Clock != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.Clock))
	}
	return &Catalog{
		store:     store.New(opts.TTL, logger, storeOpts...),
		fetcher:   fetcher,
		persister: persister,
		logger:    logger,
	}
}

// Init restores the persisted snapshot and, if nothing usable was found,
// runs one refresh synchronously. It never fails: an unreadable file or an
// unreachable source leaves an empty cache that the next read will retry.
// fetched reports whether the snapshot now in place came from that refresh.
func (c *Catalog) Init(ctx context.Context) (fetched bool) {
	if c.persister != nil {
		records, err := c.persister.Load()
		switch {
		case err != nil:
			c.logger.Error("failed to load media cache from disk", "error", err)
		case len(records) > 0:
			snap := c.store.ReplaceWith(records)
			c.markSaved(snap.Generation())
			c.logger.Info("media cache loaded", "count", snap.Len())
			return false
		default:
			c.logger.Info("no media cache found, starting empty")
		}
	}

	c.logger.Info("cache is empty, triggering initial population")
	if err := c.refresh(ctx, true); err != nil {
		c.logger.Error("failed to initialize media cache", "error", err)
		return false
	}
	return true
}

// IsValid reports whether the snapshot can be served without a refresh.
func (c *Catalog) IsValid() bool {
	return c.store.IsValid()
}

// EnsureValid refreshes a stale snapshot. Failures are logged, not returned.
//
// The refresh is shared by every reader queued behind it, so it is detached
// from ctx's cancellation: a reader that gives up does not abort it.
func (c *Catalog) EnsureValid(ctx context.Context) {
	c.ensureValid(context.WithoutCancel(ctx))
}

func (c *Catalog) ensureValid(ctx context.Context) {
	err := c.refresh(ctx, false)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		c.logger.Info("media cache update interrupted, keeping previous cache", "error", err)
	default:
		c.logger.Error("failed to update media cache", "error", err)
	}
}

// ForceRefresh re-fetches regardless of staleness and reports failure.
// The previous snapshot is kept when it fails.
func (c *Catalog) ForceRefresh(ctx context.Context) error {
	return c.refresh(ctx, true)
}

func (c *Catalog) refresh(ctx context.Context, force bool) error {
	var (
		snap      *store.Snapshot
		refreshed bool
		err       error
	)
	if force {
		snap, err = c.store.Refresh(ctx, c.fetch)
		refreshed = err == nil
	} else {
		snap, refreshed, err = c.store.EnsureValid(ctx, c.fetch)
	}
	if err != nil {
		if errors.Is(err, domain.ErrEmptyRefresh) {
			c.logger.Warn("no media items found during update, keeping previous cache")
		}
		return err
	}
	if refreshed {
		c.logger.Info("media cache updated", "count", snap.Len())
		// Outside the refresh lock: a slow disk never blocks readers or the next refresh.
		c.save(snap)
	}
	return nil
}

func (c *Catalog) fetch(ctx context.Context) ([]domain.ItemRecord, error) {
	c.logger.Info("updating media cache")
	records, stats, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.statsMu.Lock()
	c.lastStats = stats
	c.statsMu.Unlock()
	return records, nil
}

// save writes snap unless a newer snapshot has already been installed,
// in which case that snapshot's own save is the one that counts.
func (c *Catalog) save(snap *store.Snapshot) {
	if c.persister == nil {
		return
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if snap.Generation() < c.store.Current().Generation() || snap.Generation() <= c.savedGen {
		c.logger.Debug("skipping save of superseded snapshot", "generation", snap.Generation())
		return
	}
	if snap.Len() == 0 {
		c.logger.Warn("attempted to save empty cache to disk")
		return
	}
	if err := c.persister.Save(snap.Records()); err != nil {
		c.logger.Error("failed to save media cache to disk", "error", err)
		return
	}
	c.savedGen = snap.Generation()
	c.logger.Debug("media cache saved", "count", snap.Len())
}

func (c *Catalog) markSaved(gen uint64) {
	c.saveMu.Lock()
	c.savedGen = gen
	c.saveMu.Unlock()
}

// Len returns the number of records in the current snapshot.
func (c *Catalog) Len() int { return c.store.Current().Len() }

// LastRefreshed returns when the current snapshot was installed.
func (c *Catalog) LastRefreshed() time.Time { return c.store.Current().RefreshedAt() }

// LastStats returns the stats of the last completed fetch.
func (c *Catalog) LastStats() domain.RefreshStats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.lastStats
}

// AutoRefresh checks staleness every interval until ctx is cancelled.
// Cancelling ctx also interrupts a refresh in progress; the previous
// snapshot is kept.
func (c *Catalog) AutoRefresh(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.ensureValid(ctx)
		}
	}
}

// Close writes any snapshot that has not reached disk yet and releases the persister.
func (c *Catalog) Close() error {
	if c.persister == nil {
		return nil
	}
	c.save(c.store.Current())
	return c.persister.Close()
}
