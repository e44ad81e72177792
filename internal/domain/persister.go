package domain

// SnapshotPersister durably stores and restores the flat record list of a snapshot.
type SnapshotPersister interface {
	// Save replaces the stored snapshot. A reader never observes a partial write.
	Save(records []ItemRecord) error

	// Load returns the stored records. A missing snapshot is (nil, nil);
	// an unreadable one wraps ErrCorruptSnapshot.
	Load() ([]ItemRecord, error)

	Close() error
}
