// Package persist stores and restores cache snapshots on disk.
package persist

import (
	"fmt"
	"log/slog"

	"github.com/mmcdole/reelcache/internal/domain"
)

// Backend selects the on-disk snapshot format.
type Backend string

const (
	BackendJSON Backend = "json"
	BackendBolt Backend = "bolt"
)

// Open returns the persister for backend at path.
func Open(backend Backend, path string, logger *slog.Logger) (domain.SnapshotPersister, error) {
	switch backend {
	case "", BackendJSON:
		return NewFileStore(path, logger)
	case BackendBolt:
		return NewBoltStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", backend)
	}
}

var (
	_ domain.SnapshotPersister = (*FileStore)(nil)
	_ domain.SnapshotPersister = (*BoltStore)(nil)
)
