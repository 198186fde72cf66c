// Package coordinator implements the coordination service for the
// distributed chunk store: the registry of storage nodes, the
// file-to-chunk-plan metadata, the round-robin placement policy and the
// durable checkpoint of all of it.
//
// Architecture:
//
//	┌──────────────────────────────────────────────┐
//	│                Coordinator                    │
//	├──────────────────────────────────────────────┤
//	│  nodes:  map[nodeID]→Node (+ insertion order) │
//	│  files:  map[filename]→FileRecord             │
//	│  chunkSize, lastFileID                        │
//	│  mu: one mutex over all of the above          │
//	├──────────────────────────────────────────────┤
//	│  CheckpointStore: full-state JSON snapshot,   │
//	│  atomically replaced after every mutation     │
//	└──────────────────────────────────────────────┘
//
// Concurrency model:
//
// Registration, heartbeats and file creation are invoked by arbitrarily
// interleaved HTTP handlers. A single mutex covers "read node set,
// compute plan, commit record, write checkpoint", so a concurrent
// registration can never slide into the middle of a plan computation.
// The maps are never exposed; every accessor returns copies.
//
// Placement policy:
//
// Chunks are assigned round-robin over the node set in registration
// order, computed once at file creation and never revisited. Liveness
// (last heartbeat vs. threshold) is tracked and queryable via Nodes(),
// but deliberately not consulted by placement: a long-dead node stays a
// valid placement target. That is a known limitation of this design,
// kept as-is rather than silently repaired.
//
// Durability:
//
// The checkpoint is a full-state rewrite on every mutation, not a log.
// It is a recovery point of last resort: a reader either sees the
// previous snapshot or the new one, never a partial write (staging file
// plus atomic rename). Checkpoint failures are logged and do not fail
// the mutation that triggered them.
package coordinator
