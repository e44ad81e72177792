package store

import (
	"time"

	"github.com/mmcdole/reelcache/internal/domain"
)

var emptySnapshot = &Snapshot{index: map[string]int{}}

// Snapshot is an immutable, complete view of the catalog at one point in time.
// Records keep insertion order; a duplicate id replaces the earlier record in place.
type Snapshot struct {
	records     []domain.ItemRecord
	index       map[string]int
	refreshedAt time.Time
	generation  uint64
}

func newSnapshot(records []domain.ItemRecord, at time.Time) *Snapshot {
	snap := &Snapshot{
		records:     make([]domain.ItemRecord, 0, len(records)),
		index:       make(map[string]int, len(records)),
		refreshedAt: at,
	}
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if i, ok := snap.index[r.ID]; ok {
			snap.records[i] = r
			continue
		}
		snap.index[r.ID] = len(snap.records)
		snap.records = append(snap.records, r)
	}
	return snap
}

// Get looks up a record by id.
func (s *Snapshot) Get(id string) (domain.ItemRecord, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.ItemRecord{}, false
	}
	return s.records[i], true
}

// Records returns the snapshot's records in their stable order.
// The slice is shared and must not be modified.
func (s *Snapshot) Records() []domain.ItemRecord { return s.records }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// RefreshedAt returns when the snapshot was installed (zero for the initial empty one).
func (s *Snapshot) RefreshedAt() time.Time { return s.refreshedAt }

// Generation increases by one with every swap. The initial empty snapshot is 0.
func (s *Snapshot) Generation() uint64 { return s.generation }
