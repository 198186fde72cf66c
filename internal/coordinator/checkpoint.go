package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/exp/slices"
)

// Snapshot is the persisted form of the coordinator's full state. It is
// rewritten in its entirety after every mutation and is the source of
// truth when the coordinator restarts.
//
// NodeOrder preserves registration order across restarts; JSON objects
// do not, and round-robin placement must stay deterministic after a
// reload.
type Snapshot struct {
	Files      map[string]*FileRecord `json:"files"`
	Nodes      map[string]*Node       `json:"datanodes"`
	NodeOrder  []string               `json:"node_order"`
	ChunkSize  int64                  `json:"chunk_size"`
	LastFileID int64                  `json:"last_file_id"`
}

// CheckpointStore persists snapshots as a single JSON file, replaced
// atomically on every save so a crash mid-write can never leave a
// half-written snapshot behind.
type CheckpointStore struct {
	path string
}

// NewCheckpointStore creates a store writing to path. The parent
// directory is created on first save.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Save serializes the snapshot to a staging file next to the canonical
// path and renames it into place. Readers (and a restarting process)
// observe either the previous snapshot or this one, never a mix.
func (s *CheckpointStore) Save(snap *Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure checkpoint directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write staging checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Load reads the snapshot from disk. A missing file is not an error: it
// returns the default empty snapshot carrying defaultChunkSize, which is
// how a brand-new coordinator starts.
func (s *CheckpointStore) Load(defaultChunkSize int64) (*Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptySnapshot(defaultChunkSize), nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", s.path, err)
	}
	if snap.Files == nil {
		snap.Files = make(map[string]*FileRecord)
	}
	if snap.Nodes == nil {
		snap.Nodes = make(map[string]*Node)
	}
	if snap.ChunkSize <= 0 {
		snap.ChunkSize = defaultChunkSize
	}
	snap.NodeOrder = reconcileOrder(snap.NodeOrder, snap.Nodes)
	return &snap, nil
}

// emptySnapshot is the state of a coordinator that has never run.
func emptySnapshot(chunkSize int64) *Snapshot {
	return &Snapshot{
		Files:     make(map[string]*FileRecord),
		Nodes:     make(map[string]*Node),
		ChunkSize: chunkSize,
	}
}

// reconcileOrder drops ordered IDs that no longer exist and appends (in
// sorted order, for determinism) any node missing from the recorded
// order, e.g. after loading a snapshot written by an older build.
func reconcileOrder(order []string, nodes map[string]*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, id := range order {
		if _, ok := nodes[id]; ok && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	missing := make([]string, 0)
	for id := range nodes {
		if !slices.Contains(out, id) {
			missing = append(missing, id)
		}
	}
	slices.Sort(missing)
	return append(out, missing...)
}
