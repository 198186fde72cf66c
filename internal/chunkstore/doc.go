// Package chunkstore provides the keyed byte storage a node keeps its
// chunks in: a small Store interface with an in-memory
// implementation for tests and a one-file-per-chunk disk implementation
// for real nodes.
//
// The state machine per chunk ID is minimal: absent → stored. An
// overwrite simply replaces the bytes; there is no versioning and no
// delete path, because chunk IDs are minted once per file registration
// and never reused.
package chunkstore
