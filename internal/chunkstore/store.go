package chunkstore

import (
	"errors"
	"sync"
)

// ErrChunkNotFound is returned when a chunk ID was never stored.
var ErrChunkNotFound = errors.New("chunk not found")

// ErrInvalidChunkID is returned for chunk IDs that cannot be used as
// storage keys (empty, or containing path separators).
var ErrInvalidChunkID = errors.New("invalid chunk id")

// Store is the byte-blob storage a node keeps its chunks in.
// All implementations must be safe for concurrent access; distinct
// chunk IDs are fully independent keys.
type Store interface {
	// Put persists data under the chunk ID, replacing any previous
	// bytes for the same ID.
	Put(chunkID string, data []byte) error

	// Get retrieves the bytes for a chunk ID.
	// Returns ErrChunkNotFound if the chunk was never stored.
	Get(chunkID string) ([]byte, error)

	// List returns all stored chunk IDs. Order is not guaranteed.
	List() ([]string, error)

	// Stats returns storage statistics.
	Stats() (StoreStats, error)
}

// StoreStats contains statistics about a store.
type StoreStats struct {
	Chunks int   // Number of stored chunks
	Bytes  int64 // Total size of all chunks in bytes
}

// MemoryStore implements Store with in-memory storage.
// Uses sync.RWMutex for thread-safe concurrent access.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates a new in-memory chunk store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Put stores a copy of data so callers cannot mutate stored bytes.
func (m *MemoryStore) Put(chunkID string, data []byte) error {
	if err := validateChunkID(chunkID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[chunkID] = stored
	return nil
}

// Get returns a copy of the stored bytes.
func (m *MemoryStore) Get(chunkID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[chunkID]
	if !exists {
		return nil, ErrChunkNotFound
	}

	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// List returns all stored chunk IDs.
func (m *MemoryStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats returns chunk count and total byte size.
func (m *MemoryStore) Stats() (StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, value := range m.data {
		total += int64(len(value))
	}
	return StoreStats{Chunks: len(m.data), Bytes: total}, nil
}

// validateChunkID rejects IDs that would escape a flat keyspace. Chunk
// IDs minted by the coordinator are "<fileID>_<ordinal>" and always
// pass; this guards the disk backend against hostile keys.
func validateChunkID(chunkID string) error {
	if chunkID == "" {
		return ErrInvalidChunkID
	}
	for _, r := range chunkID {
		if r == '/' || r == '\\' {
			return ErrInvalidChunkID
		}
	}
	if chunkID == "." || chunkID == ".." {
		return ErrInvalidChunkID
	}
	return nil
}
