package persist

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mmcdole/reelcache/internal/domain"
)

// flushEvery bounds how many encoded records sit in the write buffer.
const flushEvery = 100

// FileStore persists a snapshot as a single JSON array file.
// Writes go to a temp file in the same directory which is then renamed
// over the target, so readers only ever see a complete file.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileStore creates a JSON file store. The parent directory is created if missing.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, errors.New("snapshot path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &FileStore{path: path, logger: logger}, nil
}

// Path returns the snapshot file location.
func (s *FileStore) Path() string { return s.path }

// Save writes records one per line inside a JSON array and atomically
// replaces the previous file.
func (s *FileStore) Save(records []domain.ItemRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := writeRecords(tmp, records); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true

	s.logger.Debug("saved snapshot", "path", s.path, "count", len(records))
	return nil
}

func writeRecords(w io.Writer, records []domain.ItemRecord) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("[\n"); err != nil {
		return err
	}
	for i, r := range records {
		line, err := json.Marshal(toWire(r))
		if err != nil {
			return fmt.Errorf("encode item %s: %w", r.ID, err)
		}
		if i < len(records)-1 {
			line = append(line, ',')
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if (i+1)%flushEvery == 0 {
			if err := bw.Flush(); err != nil {
				return err
			}
		}
	}
	if _, err := bw.WriteString("]\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// Load reads the snapshot file. A missing or empty file yields no records;
// a malformed one returns an error wrapping domain.ErrCorruptSnapshot.
func (s *FileStore) Load() ([]domain.ItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bufio.NewReader(f))
	var wire []wireRecord
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCorruptSnapshot, s.path, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: trailing data after array", domain.ErrCorruptSnapshot, s.path)
	}

	records, skipped := decodeRecords(wire)
	if skipped > 0 {
		s.logger.Warn("skipped snapshot entries without an id", "count", skipped, "path", s.path)
	}
	s.logger.Debug("loaded snapshot", "path", s.path, "count", len(records))
	return records, nil
}

func decodeRecords(wire []wireRecord) ([]domain.ItemRecord, int) {
	records := make([]domain.ItemRecord, 0, len(wire))
	skipped := 0
	for _, w := range wire {
		r, ok := fromWire(w)
		if !ok {
			skipped++
			continue
		}
		records = append(records, r)
	}
	return records, skipped
}

// Close is a no-op; the file is only open during Save and Load.
func (s *FileStore) Close() error { return nil }
