// Package cluster defines the wire contract shared by the coordinator,
// the storage nodes and the client tooling, plus small JSON-over-HTTP
// helpers used on every hop.
//
// Every endpoint has an explicit request/response struct in this package
// rather than a free-form JSON map, so malformed or incomplete bodies
// are rejected at the boundary before any state changes hands.
//
// The coordination API:
//
//	POST /register   RegisterRequest   → RegisterResponse
//	POST /heartbeat  HeartbeatRequest  → StatusResponse
//	POST /file       CreateFileRequest → CreateFileResponse
//	GET  /file/{f}                     → FileInfoResponse
//	GET  /files                        → map[filename]FileSummary
//	POST /stats      StatsRequest      → StatusResponse
//	GET  /nodes                        → NodesResponse
//
// The storage-node API:
//
//	PUT  /chunk/{id}  raw bytes → StoreChunkResponse
//	GET  /chunk/{id}            → raw bytes (404 for unknown chunks)
//	GET  /metrics               → recent read/write samples
//
// Client is a typed wrapper over the coordination API that maps the
// HTTP error taxonomy (404, 503) onto sentinel errors.
package cluster
