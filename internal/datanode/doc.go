// Package datanode implements the storage-node side of the chunk
// transfer protocol: an HTTP server that persists raw chunk bytes under
// opaque chunk IDs and serves them back, a capped log of read/write
// throughput samples, and the background heartbeat loop that keeps the
// node registered with the coordinator.
//
// Endpoints:
//
//	PUT /chunk/{id}  store chunk bytes (overwrite allowed)
//	GET /chunk/{id}  retrieve chunk bytes, 404 if never stored
//	GET /metrics     recent read/write samples
//	GET /health      liveness probe
//
// Metric reporting to the coordinator is fire-and-forget: a failed
// report is logged and never fails the chunk operation it describes.
// Likewise the heartbeat loop is fully decoupled from request handling;
// a dead coordinator does not stop the node from serving chunks.
package datanode
