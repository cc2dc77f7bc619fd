package iocache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/safeupdate/internal/contract"
	"github.com/huangsam/safeupdate/schema"
	"gopkg.in/yaml.v3"
)

// FileStore keeps a single YAML document on disk. Keys are accepted for
// interface compatibility but all of them map to the same file.
type FileStore struct {
	path string
}

var _ contract.CacheStore = &FileStore{} // Compile-time check

// fileHeader is the part of the cache document the store itself understands.
type fileHeader struct {
	Version   int                 `yaml:"version"`
	UpdatedAt *time.Time          `yaml:"updated_at"`
	Owners    map[string][]string `yaml:"owners"`
}

// NewFileStore returns a store writing to path. The file is created on the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the cache file.
func (fs *FileStore) Path() string {
	return fs.path
}

// Get returns the document with the version and timestamp read from it.
// A missing file returns an error satisfying os.IsNotExist. A document that
// cannot be parsed is returned with version 0 so callers treat it as stale.
func (fs *FileStore) Get(_ string) ([]byte, int, int64, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		return nil, 0, 0, err
	}

	var header fileHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return data, 0, 0, nil
	}
	var ts int64
	if header.UpdatedAt != nil {
		ts = header.UpdatedAt.Unix()
	}
	return data, header.Version, ts, nil
}

// Set replaces the document. The version and timestamp are expected to be inside value.
func (fs *FileStore) Set(_ string, value []byte, _ int, _ int64) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".safeupdate-cache-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("failed to replace cache file %s: %w", fs.path, err)
	}
	return nil
}

// GetStatus reports the number of packages with a recorded baseline.
func (fs *FileStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{
		Backend:   string(schema.FileBackend),
		Connected: true,
		Location:  fs.path,
	}

	info, err := os.Stat(fs.path)
	if os.IsNotExist(err) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("failed to stat cache file: %w", err)
	}
	status.TableSizeBytes = info.Size()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		return status, fmt.Errorf("failed to read cache file: %w", err)
	}
	var header fileHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return status, fmt.Errorf("failed to parse cache file: %w", err)
	}
	status.TotalEntries = len(header.Owners)
	if header.UpdatedAt != nil {
		status.LastEntryTime = *header.UpdatedAt
		status.OldestEntryTime = *header.UpdatedAt
	}
	return status, nil
}

// Close is a no-op.
func (fs *FileStore) Close() error {
	return nil
}
