package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/buffcal/pkg/logger"
)

// JSONStore keeps processed messages in a single JSON object that maps
// message IDs to ISO timestamps. Every save rewrites the file atomically.
type JSONStore struct {
	mu   sync.Mutex
	path string
	opts options
}

// NewJSONStore creates a store backed by the file at path. The file is
// created on the first save.
func NewJSONStore(path string, opts ...Option) (*JSONStore, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &JSONStore{path: path, opts: o}, nil
}

// Path returns the backing file path.
func (s *JSONStore) Path() string { return s.path }

// Load reads every record. A missing file yields an empty set. Entries whose
// timestamp cannot be read are skipped.
func (s *JSONStore) Load(ctx context.Context) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]time.Time{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrPersistence, s.path, err)
	}

	raw := map[string]string{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, s.path, err)
		}
	}

	records := make(map[string]time.Time, len(raw))
	for id, ts := range raw {
		at, err := parseTimestamp(ts)
		if err != nil {
			s.opts.logger.Warn(ctx, "skipping record with unreadable timestamp",
				logger.String("message_id", id),
				logger.String("timestamp", ts),
			)
			continue
		}
		records[id] = at
	}
	return records, nil
}

// Save replaces the file contents with records.
//
// The data is written to a temp file in the same directory and renamed over
// the target, so a crash never leaves a half-written file behind.
func (s *JSONStore) Save(_ context.Context, records map[string]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := make(map[string]string, len(records))
	for id, at := range records {
		raw[id] = formatTimestamp(at)
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, ".processed-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write: %v", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrPersistence, err)
	}
	if err := os.Chmod(tmpName, s.opts.fileMode); err != nil {
		return fmt.Errorf("%w: chmod: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}
	return nil
}
