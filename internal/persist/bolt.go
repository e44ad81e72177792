package persist

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mmcdole/reelcache/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketItems = []byte("items")
	bucketMeta  = []byte("meta")
)

var (
	keyCount   = []byte("count")
	keySavedAt = []byte("saved_at")
)

// BoltStore persists a snapshot in a BoltDB file. Items are keyed by their
// position so Load returns them in the order they were saved; a Save
// replaces the whole bucket inside one transaction.
type BoltStore struct {
	db     *bolt.DB
	logger *slog.Logger
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketItems, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, logger: logger}, nil
}

// Save replaces the stored snapshot in a single transaction.
func (s *BoltStore) Save(records []domain.ItemRecord) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketItems); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		b, err := tx.CreateBucket(bucketItems)
		if err != nil {
			return err
		}
		for i, r := range records {
			data, err := json.Marshal(toWire(r))
			if err != nil {
				return fmt.Errorf("encode item %s: %w", r.ID, err)
			}
			if err := b.Put(positionKey(i), data); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		if err := meta.Put(keyCount, []byte(strconv.Itoa(len(records)))); err != nil {
			return err
		}
		return meta.Put(keySavedAt, []byte(strconv.FormatInt(time.Now().Unix(), 10)))
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Debug("saved snapshot", "backend", "bolt", "count", len(records))
	return nil
}

// Load returns the stored records in save order.
func (s *BoltStore) Load() ([]domain.ItemRecord, error) {
	var wire []wireRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketItems)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var w wireRecord
			if err := json.Unmarshal(v, &w); err != nil {
				return fmt.Errorf("%w: item at %x: %w", domain.ErrCorruptSnapshot, k, err)
			}
			wire = append(wire, w)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(wire) == 0 {
		return nil, nil
	}

	records, skipped := decodeRecords(wire)
	if skipped > 0 {
		s.logger.Warn("skipped snapshot entries without an id", "count", skipped)
	}
	return records, nil
}

// SavedAt returns when the last snapshot was written, or the zero time.
func (s *BoltStore) SavedAt() time.Time {
	var ts int64
	s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keySavedAt); v != nil {
			ts, _ = strconv.ParseInt(string(v), 10, 64)
		}
		return nil
	})
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// positionKey encodes i big-endian so cursor order matches save order.
func positionKey(i int) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(i))
	return k[:]
}
