package cluster

import "time"

// RegisterRequest is sent by a storage node to announce itself to the
// coordinator. Both fields are required.
type RegisterRequest struct {
	NodeID  string `json:"node_id"`
	NodeURL string `json:"node_url"`
}

// RegisterResponse acknowledges a registration and tells the node which
// chunk size the cluster operates with.
type RegisterResponse struct {
	Status    string `json:"status"`
	ChunkSize int64  `json:"chunk_size"`
}

// HeartbeatRequest is sent periodically by a registered storage node.
type HeartbeatRequest struct {
	NodeID string `json:"node_id"`
}

// StatusResponse is the generic acknowledgement body for endpoints that
// only need to confirm an action ("alive", "recorded", ...).
type StatusResponse struct {
	Status string `json:"status"`
}

// CreateFileRequest asks the coordinator to plan chunk placement for a
// file of known size. The file content never travels through the
// coordinator; only the plan does.
type CreateFileRequest struct {
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
}

// ChunkRef is one entry of a chunk plan: a contiguous byte range of a
// file assigned to exactly one storage node.
//
// Start and Size describe the byte range [Start, Start+Size) within the
// original file. Chunk IDs are globally unique (file ID + ordinal).
type ChunkRef struct {
	ChunkID string `json:"chunk_id"`
	NodeID  string `json:"node_id"`
	NodeURL string `json:"node_url"`
	Start   int64  `json:"start"`
	Size    int64  `json:"size"`
}

// CreateFileResponse returns the freshly computed chunk plan.
type CreateFileResponse struct {
	FileID    string     `json:"file_id"`
	Chunks    []ChunkRef `json:"chunks"`
	ChunkSize int64      `json:"chunk_size"`
}

// FileInfoResponse describes a stored file, including its full plan.
type FileInfoResponse struct {
	FileID    string     `json:"file_id"`
	Size      int64      `json:"size"`
	CreatedAt time.Time  `json:"created_at"`
	Chunks    []ChunkRef `json:"chunks"`
}

// FileSummary is the plan-free view of a file used by the listing
// endpoint.
type FileSummary struct {
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsRequest carries an informational throughput sample from a storage
// node to the coordinator. Reporting is best-effort on the node side.
type StatsRequest struct {
	NodeID     string  `json:"node_id"`
	Operation  string  `json:"operation"`
	Bytes      int64   `json:"bytes"`
	DurationMS float64 `json:"duration_ms"`
}

// StoreChunkResponse acknowledges a chunk write on a storage node.
type StoreChunkResponse struct {
	Status  string `json:"status"`
	ChunkID string `json:"chunk_id"`
	Size    int64  `json:"size"`
	NodeID  string `json:"node_id"`
}

// NodeStatus is the coordinator's view of a registered storage node.
// Alive is derived from the last heartbeat; it is informational and does
// not affect chunk placement.
type NodeStatus struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	RegisteredAt  time.Time `json:"registered_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Alive         bool      `json:"alive"`
}

// NodesResponse lists every node the coordinator knows about.
type NodesResponse struct {
	Nodes []NodeStatus `json:"nodes"`
}

// ErrorResponse is the body returned with any non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
