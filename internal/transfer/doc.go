// Package transfer implements the client-side split/join engine: it
// turns a local file into parallel chunk uploads against the plan the
// coordinator hands out, and reassembles downloaded chunks back into a
// byte-identical file.
//
// Both directions run their chunk I/O inside a bounded worker pool so a
// large file cannot open an unbounded number of sockets. Upload
// attempts every chunk and reports per-chunk success with an aggregate
// flag; already-stored chunks are not rolled back on partial failure.
// Download is strict: any failed chunk cancels the in-flight workers
// and fails the whole operation, so a written file is always complete.
//
// Chunks complete in arbitrary order. Reassembly sorts the retrieved
// chunks by their plan offset before writing; completion order is never
// trusted as byte order.
package transfer
