package chunkstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore implements Store with one file per chunk under a data
// directory. Chunk IDs map directly to file names; overwriting a chunk
// replaces its file. Concurrent writers to distinct IDs never interact;
// concurrent writers to the same ID race with undefined final content,
// which is acceptable because chunk IDs are never reused.
type DiskStore struct {
	dir string
}

// NewDiskStore creates a disk-backed chunk store rooted at dir,
// creating the directory if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk directory: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Put writes the chunk bytes to disk.
func (d *DiskStore) Put(chunkID string, data []byte) error {
	if err := validateChunkID(chunkID); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(d.dir, chunkID), data, 0o644); err != nil {
		return fmt.Errorf("write chunk %s: %w", chunkID, err)
	}
	return nil
}

// Get reads the chunk bytes from disk.
func (d *DiskStore) Get(chunkID string) ([]byte, error) {
	if err := validateChunkID(chunkID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(d.dir, chunkID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrChunkNotFound
		}
		return nil, fmt.Errorf("read chunk %s: %w", chunkID, err)
	}
	return data, nil
}

// List returns the IDs of all chunks on disk.
func (d *DiskStore) List() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ids = append(ids, entry.Name())
	}
	return ids, nil
}

// Stats walks the data directory and sums chunk sizes.
func (d *DiskStore) Stats() (StoreStats, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return StoreStats{}, fmt.Errorf("stat chunks: %w", err)
	}
	stats := StoreStats{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Chunks++
		stats.Bytes += info.Size()
	}
	return stats, nil
}
