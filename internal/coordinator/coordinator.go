package coordinator

import (
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
)

// Defaults applied when the configuration does not say otherwise.
const (
	// DefaultChunkSize is 4 MiB, the cluster-wide chunk size unless
	// configured differently at process start.
	DefaultChunkSize = 4 * 1024 * 1024

	// DefaultLivenessThreshold is how stale a node's heartbeat may be
	// before Nodes() reports it as not alive.
	DefaultLivenessThreshold = 30 * time.Second
)

// Errors returned by Coordinator operations. HTTP handlers map these to
// the caller-visible status codes (400, 400, 503 respectively).
var (
	// ErrInvalidArgument means a required field was missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownNode means a heartbeat arrived from a node that never
	// registered.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoNodesAvailable means file creation was attempted with an
	// empty node registry, so no chunk can be placed.
	ErrNoNodesAvailable = errors.New("no datanodes available")
)

// Node is a registered storage node and its liveness bookkeeping.
// Nodes are created on first registration and mutated only by
// heartbeats; they are never removed.
type Node struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	RegisteredAt  time.Time `json:"registered_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// Alive reports whether the node heartbeated within threshold of now.
func (n *Node) Alive(now time.Time, threshold time.Duration) bool {
	return now.Sub(n.LastHeartbeat) < threshold
}

// FileRecord is the stored metadata for one file: identity, size and the
// chunk plan that reconstitutes it. Records are immutable once created;
// re-registering a filename replaces the whole record.
type FileRecord struct {
	FileID    string             `json:"file_id"`
	Size      int64              `json:"size"`
	CreatedAt time.Time          `json:"created_at"`
	Chunks    []cluster.ChunkRef `json:"chunks"`
}

// clone returns a deep copy so callers can never alias the stored plan.
func (f *FileRecord) clone() *FileRecord {
	cp := *f
	cp.Chunks = append([]cluster.ChunkRef(nil), f.Chunks...)
	return &cp
}

// Coordinator owns the node registry and the file metadata behind a
// single mutex. The critical section of every mutation extends through
// the checkpoint write, so the on-disk snapshot always reflects a state
// the in-memory maps actually passed through.
type Coordinator struct {
	mu         sync.Mutex
	nodes      map[string]*Node
	order      []string // node IDs in registration order, drives round-robin
	files      map[string]*FileRecord
	chunkSize  int64
	lastFileID int64
	liveness   time.Duration
	checkpoint *CheckpointStore
	now        func() time.Time
}

// New creates a coordinator, restoring state from the checkpoint store
// when a prior snapshot exists. A nil store keeps everything in memory
// (used by tests). chunkSize and liveness fall back to the package
// defaults when zero; a snapshot's chunk size wins over the argument so
// already-planned files keep their geometry.
func New(store *CheckpointStore, chunkSize int64, liveness time.Duration) (*Coordinator, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if liveness <= 0 {
		liveness = DefaultLivenessThreshold
	}
	c := &Coordinator{
		nodes:      make(map[string]*Node),
		files:      make(map[string]*FileRecord),
		chunkSize:  chunkSize,
		liveness:   liveness,
		checkpoint: store,
		now:        time.Now,
	}
	if store != nil {
		snap, err := store.Load(chunkSize)
		if err != nil {
			return nil, err
		}
		c.nodes = snap.Nodes
		c.order = snap.NodeOrder
		c.files = snap.Files
		c.chunkSize = snap.ChunkSize
		c.lastFileID = snap.LastFileID
		if len(snap.Nodes) > 0 || len(snap.Files) > 0 {
			log.Printf("coordinator: restored %d node(s), %d file(s) from checkpoint",
				len(snap.Nodes), len(snap.Files))
		}
	}
	return c, nil
}

// RegisterNode adds a storage node to the registry and returns the
// cluster chunk size. Registering an already-known node ID is an
// idempotent no-op: it succeeds without touching the existing record,
// which lets nodes restart and re-announce themselves freely.
func (c *Coordinator) RegisterNode(nodeID, nodeURL string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.nodes[nodeID]; ok {
		return c.chunkSize, nil
	}
	if nodeID == "" || nodeURL == "" {
		return 0, ErrInvalidArgument
	}

	now := c.now()
	c.nodes[nodeID] = &Node{
		ID:            nodeID,
		URL:           nodeURL,
		RegisteredAt:  now,
		LastHeartbeat: now,
	}
	c.order = append(c.order, nodeID)
	c.checkpointLocked()

	log.Printf("coordinator: datanode %s registered at %s", nodeID, nodeURL)
	return c.chunkSize, nil
}

// Heartbeat refreshes a node's last-seen time. Heartbeats from nodes
// that never registered fail with ErrUnknownNode.
func (c *Coordinator) Heartbeat(nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.nodes[nodeID]
	if !ok {
		return ErrUnknownNode
	}
	node.LastHeartbeat = c.now()
	c.checkpointLocked()
	return nil
}

// CreateFile mints a file ID, computes the chunk plan over the current
// node set and commits the record, replacing any prior record with the
// same filename. A zero-size file is valid and yields an empty plan.
// The node set is read, the plan computed and the record checkpointed
// all inside one critical section.
func (c *Coordinator) CreateFile(filename string, filesize int64) (*FileRecord, error) {
	if filename == "" || filesize < 0 {
		return nil, ErrInvalidArgument
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) == 0 {
		return nil, ErrNoNodesAvailable
	}
	targets := make([]*Node, 0, len(c.order))
	for _, id := range c.order {
		targets = append(targets, c.nodes[id])
	}

	record := &FileRecord{
		FileID:    c.mintFileIDLocked(),
		Size:      filesize,
		CreatedAt: c.now(),
	}
	record.Chunks = buildPlan(record.FileID, filesize, c.chunkSize, targets)
	c.files[filename] = record
	c.checkpointLocked()

	log.Printf("coordinator: created metadata for %s (%d bytes, %d chunks)",
		filename, filesize, len(record.Chunks))
	return record.clone(), nil
}

// GetFile returns a copy of the record for filename, or false when the
// file is unknown.
func (c *Coordinator) GetFile(filename string) (*FileRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.files[filename]
	if !ok {
		return nil, false
	}
	return record.clone(), true
}

// ListFiles returns the plan-free summary of every stored file.
func (c *Coordinator) ListFiles() map[string]cluster.FileSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]cluster.FileSummary, len(c.files))
	for name, record := range c.files {
		out[name] = cluster.FileSummary{Size: record.Size, CreatedAt: record.CreatedAt}
	}
	return out
}

// Nodes returns all registered nodes in registration order, with
// liveness derived from the heartbeat threshold. Placement does not
// consult this; it exists so operators can see what placement ignores.
func (c *Coordinator) Nodes() []cluster.NodeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]cluster.NodeStatus, 0, len(c.order))
	for _, id := range c.order {
		node := c.nodes[id]
		out = append(out, cluster.NodeStatus{
			ID:            node.ID,
			URL:           node.URL,
			RegisteredAt:  node.RegisteredAt,
			LastHeartbeat: node.LastHeartbeat,
			Alive:         node.Alive(now, c.liveness),
		})
	}
	return out
}

// ChunkSize returns the cluster-wide chunk size.
func (c *Coordinator) ChunkSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chunkSize
}

// mintFileIDLocked issues a fresh file ID from the millisecond clock,
// bumping past the last issued ID so two files created within the same
// millisecond (or after a fast restart) can never collide.
func (c *Coordinator) mintFileIDLocked() string {
	id := c.now().UnixMilli()
	if id <= c.lastFileID {
		id = c.lastFileID + 1
	}
	c.lastFileID = id
	return strconv.FormatInt(id, 10)
}

// checkpointLocked writes the full-state snapshot. Failures are logged
// and swallowed: the checkpoint is a recovery point of last resort, not
// a write-ahead log, and must not fail the mutation it trails.
func (c *Coordinator) checkpointLocked() {
	if c.checkpoint == nil {
		return
	}
	if err := c.checkpoint.Save(c.snapshotLocked()); err != nil {
		log.Printf("coordinator: checkpoint write failed: %v", err)
	}
}

// snapshotLocked assembles the persisted view of the current state.
func (c *Coordinator) snapshotLocked() *Snapshot {
	return &Snapshot{
		Files:      c.files,
		Nodes:      c.nodes,
		NodeOrder:  c.order,
		ChunkSize:  c.chunkSize,
		LastFileID: c.lastFileID,
	}
}
