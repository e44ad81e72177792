package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/reelcache/internal/domain"
)

// RefreshFunc produces the records for a new snapshot.
type RefreshFunc func(ctx context.Context) ([]domain.ItemRecord, error)

// SnapshotStore holds the current snapshot and arbitrates refresh against reads.
//
// Readers take the snapshot pointer under a read lock and then work on an
// immutable value. Refreshes are serialized by refreshMu; the swap itself is
// a pointer assignment under the write lock, so readers see either the old
// or the new snapshot in full.
type SnapshotStore struct {
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	refreshMu sync.Mutex // held for check-fetch-swap; at most one refresh at a time

	mu         sync.RWMutex // protects snap and generation
	snap       *Snapshot
	generation uint64
}

// Option configures a SnapshotStore.
type Option func(*SnapshotStore)

// WithClock overrides the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *SnapshotStore) { s.now = now }
}

// New creates an empty store whose snapshots expire after ttl.
func New(ttl time.Duration, logger *slog.Logger, opts ...Option) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SnapshotStore{
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
		snap:   emptySnapshot,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns the snapshot readers should use. Never nil.
func (s *SnapshotStore) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// IsValid is false when the snapshot is empty, has never been refreshed,
// or is at least ttl old. An empty snapshot is invalid regardless of its timestamp.
func (s *SnapshotStore) IsValid() bool {
	snap := s.Current()
	if snap.Len() == 0 || snap.refreshedAt.IsZero() {
		return false
	}
	return s.now().Sub(snap.refreshedAt) < s.ttl
}

// EnsureValid runs refresh if the snapshot is stale. Validity is checked again
// after acquiring the refresh lock, so callers that queued behind a running
// refresh reuse its result instead of starting another one.
//
// The returned bool reports whether this call installed a new snapshot.
// On error the previous snapshot is kept.
func (s *SnapshotStore) EnsureValid(ctx context.Context, refresh RefreshFunc) (*Snapshot, bool, error) {
	if s.IsValid() {
		return s.Current(), false, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if s.IsValid() {
		s.logger.Debug("snapshot refreshed by another caller")
		return s.Current(), false, nil
	}

	snap, err := s.refreshLocked(ctx, refresh)
	if err != nil {
		return s.Current(), false, err
	}
	return snap, true, nil
}

// Refresh runs refresh unconditionally, still one at a time.
func (s *SnapshotStore) Refresh(ctx context.Context, refresh RefreshFunc) (*Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx, refresh)
}

func (s *SnapshotStore) refreshLocked(ctx context.Context, refresh RefreshFunc) (*Snapshot, error) {
	records, err := refresh(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyRefresh
	}
	return s.swap(records), nil
}

// ReplaceWith installs records as the new snapshot and stamps it with the
// current time. It waits for any in-flight refresh to finish first.
func (s *SnapshotStore) ReplaceWith(records []domain.ItemRecord) *Snapshot {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.swap(records)
}

func (s *SnapshotStore) swap(records []domain.ItemRecord) *Snapshot {
	next := newSnapshot(records, s.now())

	s.mu.Lock()
	s.generation++
	next.generation = s.generation
	s.snap = next
	s.mu.Unlock()

	s.logger.Debug("snapshot replaced", "count", next.Len(), "generation", next.generation)
	return next
}
