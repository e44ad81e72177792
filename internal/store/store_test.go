package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/reelcache/internal/domain"
	"github.com/mmcdole/reelcache/internal/log"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func records(ids ...string) []domain.ItemRecord {
	out := make([]domain.ItemRecord, len(ids))
	for i, id := range ids {
		out[i] = domain.ItemRecord{ID: id, Title: "Title " + id, Kind: domain.KindMovie}
	}
	return out
}

func newTestStore(clock *fakeClock) *SnapshotStore {
	return New(time.Hour, log.NullLogger(), WithClock(clock.Now))
}

func TestIsValid(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	assert.False(t, s.IsValid(), "empty store is never valid")

	s.ReplaceWith(records("1"))
	assert.True(t, s.IsValid())

	clock.Advance(59 * time.Minute)
	assert.True(t, s.IsValid())

	clock.Advance(time.Minute)
	assert.False(t, s.IsValid(), "age equal to ttl is stale")
}

func TestIsValid_EmptySnapshotWithTimestamp(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	s.swap(nil)
	assert.False(t, s.Current().RefreshedAt().IsZero())
	assert.False(t, s.IsValid())
}

func TestEnsureValid_SkipsWhenFresh(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	s.ReplaceWith(records("1"))

	var calls atomic.Int32
	snap, refreshed, err := s.EnsureValid(context.Background(), func(ctx context.Context) ([]domain.ItemRecord, error) {
		calls.Add(1)
		return records("2"), nil
	})
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Zero(t, calls.Load())
	_, ok := snap.Get("1")
	assert.True(t, ok)
}

func TestEnsureValid_AtMostOneConcurrentRefresh(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)

	var calls atomic.Int32
	release := make(chan struct{})
	refresh := func(ctx context.Context) ([]domain.ItemRecord, error) {
		calls.Add(1)
		<-release
		return records("a", "b"), nil
	}

	const callers = 20
	var wg sync.WaitGroup
	var refreshedCount atomic.Int32
	for range callers {
		wg.Go(func() {
			snap, refreshed, err := s.EnsureValid(context.Background(), refresh)
			assert.NoError(t, err)
			assert.Equal(t, 2, snap.Len())
			if refreshed {
				refreshedCount.Add(1)
			}
		})
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), refreshedCount.Load())
}

func TestEnsureValid_StaleDataServedOnFailure(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	s.ReplaceWith(records("1", "2"))
	clock.Advance(2 * time.Hour)

	boom := errors.New("source down")
	snap, refreshed, err := s.EnsureValid(context.Background(), func(ctx context.Context) ([]domain.ItemRecord, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, refreshed)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 2, s.Current().Len())
	assert.False(t, s.IsValid())
}

func TestRefresh_EmptyResultKeepsSnapshot(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	before := s.ReplaceWith(records("1"))

	_, err := s.Refresh(context.Background(), func(ctx context.Context) ([]domain.ItemRecord, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, domain.ErrEmptyRefresh)
	assert.Same(t, before, s.Current())
}

func TestRefresh_AlwaysRuns(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	s.ReplaceWith(records("1"))
	require.True(t, s.IsValid())

	snap, err := s.Refresh(context.Background(), func(ctx context.Context) ([]domain.ItemRecord, error) {
		return records("9"), nil
	})
	require.NoError(t, err)
	_, ok := snap.Get("9")
	assert.True(t, ok)
	_, ok = snap.Get("1")
	assert.False(t, ok, "refresh replaces the whole snapshot")
	assert.Equal(t, uint64(2), snap.Generation())
}

func TestReadersNeverSeePartialSnapshot(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(clock)
	s.ReplaceWith(records("a1", "a2", "a3"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Go(func() {
		for i := 0; ctx.Err() == nil; i++ {
			if i%2 == 0 {
				s.ReplaceWith(records("b1", "b2", "b3", "b4"))
			} else {
				s.ReplaceWith(records("a1", "a2", "a3"))
			}
		}
	})

	for range 1000 {
		snap := s.Current()
		switch snap.Len() {
		case 3:
			_, ok := snap.Get("a2")
			assert.True(t, ok)
		case 4:
			_, ok := snap.Get("b4")
			assert.True(t, ok)
		default:
			t.Fatalf("unexpected snapshot size %d", snap.Len())
		}
	}
	cancel()
	wg.Wait()
}

func TestSnapshot_DuplicateIDsLastWins(t *testing.T) {
	in := []domain.ItemRecord{
		{ID: "1", Title: "first"},
		{ID: "2", Title: "two"},
		{ID: "1", Title: "second"},
		{ID: "", Title: "no id"},
	}
	snap := newSnapshot(in, time.Now())

	require.Equal(t, 2, snap.Len())
	assert.Equal(t, "second", snap.Records()[0].Title)
	assert.Equal(t, "two", snap.Records()[1].Title)
	rec, ok := snap.Get("1")
	require.True(t, ok)
	assert.Equal(t, "second", rec.Title)
}
