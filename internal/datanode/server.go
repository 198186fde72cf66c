package datanode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/chunkstore"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
)

const statsReportTimeout = 3 * time.Second

// Server serves the chunk transfer protocol for one storage node.
// Chunk requests for distinct IDs are handled concurrently with no
// coordination; the store is the only shared state and handles its own
// synchronization.
type Server struct {
	nodeID  string
	store   chunkstore.Store
	metrics *MetricsLog
	coord   *cluster.Client // nil disables stats reporting
}

// NewServer creates a storage-node server. Pass a nil coordinator
// client to disable best-effort stats reporting (tests do this).
func NewServer(nodeID string, store chunkstore.Store, coord *cluster.Client) *Server {
	return &Server{
		nodeID:  nodeID,
		store:   store,
		metrics: NewMetricsLog(),
		coord:   coord,
	}
}

// Metrics exposes the server's metrics log.
func (s *Server) Metrics() *MetricsLog { return s.metrics }

// Handler returns the HTTP handler serving the chunk protocol.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chunk/", s.handleChunk)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleChunk dispatches /chunk/{id} by method.
func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	chunkID := strings.TrimPrefix(r.URL.Path, "/chunk/")
	if chunkID == "" {
		writeError(w, http.StatusBadRequest, "missing chunk id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.handleStore(w, r, chunkID)
	case http.MethodGet:
		s.handleRetrieve(w, r, chunkID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleStore persists the request body under the chunk ID. Storing an
// existing ID replaces its bytes. The throughput sample is recorded
// locally and reported upstream without blocking the response.
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request, chunkID string) {
	start := time.Now()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read chunk body")
		return
	}
	if err := s.store.Put(chunkID, data); err != nil {
		if errors.Is(err, chunkstore.ErrInvalidChunkID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sample := newSample(chunkID, int64(len(data)), time.Since(start), time.Now())
	s.metrics.RecordWrite(sample)
	s.reportStats("write", sample)

	log.Printf("datanode[%s]: stored chunk %s (%d bytes) at %.2f MB/s",
		s.nodeID, chunkID, sample.Size, sample.Throughput)

	writeJSON(w, http.StatusOK, cluster.StoreChunkResponse{
		Status:  "stored",
		ChunkID: chunkID,
		Size:    sample.Size,
		NodeID:  s.nodeID,
	})
}

// handleRetrieve streams the chunk bytes back, or 404 for a chunk that
// was never stored. Unknown chunks are a hard miss, never zero-filled.
func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request, chunkID string) {
	start := time.Now()

	data, err := s.store.Get(chunkID)
	if err != nil {
		if errors.Is(err, chunkstore.ErrChunkNotFound) {
			writeError(w, http.StatusNotFound, "chunk not found")
			return
		}
		if errors.Is(err, chunkstore.ErrInvalidChunkID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sample := newSample(chunkID, int64(len(data)), time.Since(start), time.Now())
	s.metrics.RecordRead(sample)
	s.reportStats("read", sample)

	log.Printf("datanode[%s]: retrieved chunk %s (%d bytes) at %.2f MB/s",
		s.nodeID, chunkID, sample.Size, sample.Throughput)

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(data); err != nil {
		log.Printf("datanode[%s]: error writing chunk response: %v", s.nodeID, err)
	}
}

// handleMetrics returns the retained read/write samples.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// reportStats forwards a sample to the coordinator in the background.
// Failure to report never fails the chunk operation being reported on.
func (s *Server) reportStats(operation string, sample Sample) {
	if s.coord == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), statsReportTimeout)
		defer cancel()
		err := s.coord.ReportStats(ctx, cluster.StatsRequest{
			NodeID:     s.nodeID,
			Operation:  operation,
			Bytes:      sample.Size,
			DurationMS: sample.DurationMS,
		})
		if err != nil {
			log.Printf("datanode[%s]: stats report failed: %v", s.nodeID, err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, cluster.ErrorResponse{Error: msg})
}
