// Package main implements the coordination service: the node registry,
// the chunk-placement metadata manager and the durable checkpoint,
// exposed over an HTTP/JSON API.
//
// Endpoints:
//
//	POST /register   - register a storage node (idempotent)
//	POST /heartbeat  - refresh a node's last-seen time
//	POST /file       - register a file, returns its chunk plan
//	GET  /file/{f}   - fetch a file's record and plan
//	GET  /files      - list stored files (no plans)
//	POST /stats      - accept a node throughput sample (informational)
//	GET  /nodes      - list nodes with derived liveness
//	GET  /health     - liveness probe
//
// Configuration (env overrides YAML, YAML overrides defaults):
//   - COORDINATOR_LISTEN:   listen address (default ":5000")
//   - COORDINATOR_DATA_DIR: checkpoint directory (default "data")
//   - CHUNK_SIZE:           cluster chunk size in bytes (default 4 MiB)
//   - LIVENESS_THRESHOLD:   heartbeat staleness bound (default "30s")
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/config"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/coordinator"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadCoordinator(*configPath)
	if err != nil {
		logFatal("config: %v", err)
	}

	store := coordinator.NewCheckpointStore(cfg.CheckpointPath())
	coord, err := coordinator.New(store, cfg.ChunkSize, cfg.LivenessThreshold.Std())
	if err != nil {
		logFatal("bootstrap: %v", err)
	}

	srv := &server{coord: coord}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("coordinator listening on %s (chunk size %d)", cfg.Listen, cfg.ChunkSize)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Println("coordinator stopped")
}

// server holds the handler methods for the coordination API.
type server struct {
	coord *coordinator.Coordinator
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.handleRegister)
	mux.HandleFunc("/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("/file", s.handleCreateFile)
	mux.HandleFunc("/file/", s.handleGetFile)
	mux.HandleFunc("/files", s.handleListFiles)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/nodes", s.handleListNodes)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleRegister adds a storage node to the registry. Registering the
// same node ID twice is an idempotent success.
func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req cluster.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	chunkSize, err := s.coord.RegisterNode(req.NodeID, req.NodeURL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing node_id or node_url")
		return
	}
	writeJSON(w, http.StatusOK, cluster.RegisterResponse{
		Status:    "registered",
		ChunkSize: chunkSize,
	})
}

// handleHeartbeat refreshes a node's last-seen time.
func (s *server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req cluster.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	if err := s.coord.Heartbeat(req.NodeID); err != nil {
		writeError(w, http.StatusBadRequest, "unknown node_id")
		return
	}
	writeJSON(w, http.StatusOK, cluster.StatusResponse{Status: "alive"})
}

// handleCreateFile computes and commits a chunk plan for the file.
func (s *server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req cluster.CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	record, err := s.coord.CreateFile(req.Filename, req.Filesize)
	switch {
	case errors.Is(err, coordinator.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "missing filename or invalid filesize")
		return
	case errors.Is(err, coordinator.ErrNoNodesAvailable):
		writeError(w, http.StatusServiceUnavailable, "no active datanodes available")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cluster.CreateFileResponse{
		FileID:    record.FileID,
		Chunks:    record.Chunks,
		ChunkSize: s.coord.ChunkSize(),
	})
}

// handleGetFile returns a file's record including its chunk plan.
// Path: /file/{filename}.
func (s *server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/file/")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing filename")
		return
	}

	record, ok := s.coord.GetFile(name)
	if !ok {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	writeJSON(w, http.StatusOK, cluster.FileInfoResponse{
		FileID:    record.FileID,
		Size:      record.Size,
		CreatedAt: record.CreatedAt,
		Chunks:    record.Chunks,
	})
}

// handleListFiles returns the plan-free summary of every file.
func (s *server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.coord.ListFiles())
}

// handleStats accepts throughput samples from storage nodes. Samples
// are logged for observability; nothing else depends on them.
func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req cluster.StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.NodeID == "" || req.Operation == "" || req.Bytes <= 0 || req.DurationMS <= 0 {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	throughput := (float64(req.Bytes) / 1024 / 1024) / (req.DurationMS / 1000)
	log.Printf("coordinator: node %s - %s: %.2f MB/s (%d bytes in %.2f ms)",
		req.NodeID, req.Operation, throughput, req.Bytes, req.DurationMS)
	writeJSON(w, http.StatusOK, cluster.StatusResponse{Status: "recorded"})
}

// handleListNodes returns every registered node with derived liveness.
func (s *server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, cluster.NodesResponse{Nodes: s.coord.Nodes()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, cluster.ErrorResponse{Error: msg})
}
