package chunkstore

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
)

// storeUnderTest builds both implementations so every behavior test
// runs against the in-memory and the disk backend.
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	disk, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(),
		"disk":   disk,
	}
}

func TestStorePutGet(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			data := []byte("chunk payload bytes")
			if err := store.Put("1748775000000_0", data); err != nil {
				t.Fatalf("Put: %v", err)
			}

			got, err := store.Get("1748775000000_0")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("Get returned %q, want %q", got, data)
			}
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put("chunk", []byte("first version")); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := store.Put("chunk", []byte("second")); err != nil {
				t.Fatalf("Put (overwrite): %v", err)
			}

			got, err := store.Get("chunk")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != "second" {
				t.Errorf("overwrite not applied, got %q", got)
			}

			stats, err := store.Stats()
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			if stats.Chunks != 1 {
				t.Errorf("Stats.Chunks = %d after overwrite, want 1", stats.Chunks)
			}
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get("never-stored"); !errors.Is(err, ErrChunkNotFound) {
				t.Errorf("expected ErrChunkNotFound, got %v", err)
			}
		})
	}
}

func TestStoreEmptyChunk(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put("empty", nil); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := store.Get("empty")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected empty chunk, got %d bytes", len(got))
			}
		})
	}
}

func TestStoreListAndStats(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			payloads := map[string][]byte{
				"f_0": bytes.Repeat([]byte{1}, 100),
				"f_1": bytes.Repeat([]byte{2}, 250),
				"f_2": bytes.Repeat([]byte{3}, 7),
			}
			for id, data := range payloads {
				if err := store.Put(id, data); err != nil {
					t.Fatalf("Put(%s): %v", id, err)
				}
			}

			ids, err := store.List()
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			sort.Strings(ids)
			want := []string{"f_0", "f_1", "f_2"}
			if len(ids) != len(want) {
				t.Fatalf("List returned %v, want %v", ids, want)
			}
			for i := range want {
				if ids[i] != want[i] {
					t.Errorf("List[%d] = %s, want %s", i, ids[i], want[i])
				}
			}

			stats, err := store.Stats()
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			if stats.Chunks != 3 || stats.Bytes != 357 {
				t.Errorf("Stats = %+v, want {Chunks:3 Bytes:357}", stats)
			}
		})
	}
}

func TestStoreInvalidChunkIDs(t *testing.T) {
	invalid := []string{"", ".", "..", "a/b", `a\b`, "../escape", "/abs"}

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range invalid {
				if err := store.Put(id, []byte("x")); !errors.Is(err, ErrInvalidChunkID) {
					t.Errorf("Put(%q) = %v, want ErrInvalidChunkID", id, err)
				}
			}
		})
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()

	data := []byte("original")
	if err := store.Put("chunk", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data[0] = 'X'

	got, err := store.Get("chunk")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "original" {
		t.Error("Put did not copy its input")
	}

	got[0] = 'Y'
	again, _ := store.Get("chunk")
	if string(again) != "original" {
		t.Error("Get did not copy the stored bytes")
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				i := i
				wg.Add(1)
				go func() {
					defer wg.Done()
					id := fmt.Sprintf("chunk_%d", i)
					payload := bytes.Repeat([]byte{byte(i)}, 64)
					if err := store.Put(id, payload); err != nil {
						t.Errorf("Put(%s): %v", id, err)
						return
					}
					got, err := store.Get(id)
					if err != nil {
						t.Errorf("Get(%s): %v", id, err)
						return
					}
					if !bytes.Equal(got, payload) {
						t.Errorf("Get(%s) returned wrong bytes", id)
					}
				}()
			}
			wg.Wait()

			stats, err := store.Stats()
			if err != nil {
				t.Fatalf("Stats: %v", err)
			}
			if stats.Chunks != 16 {
				t.Errorf("Stats.Chunks = %d, want 16", stats.Chunks)
			}
		})
	}
}
