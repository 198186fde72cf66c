package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/chunkstore"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/coordinator"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/datanode"
)

// testCluster wires a real coordinator and real storage-node handlers
// behind httptest servers, so engine tests exercise the actual wire
// protocol end to end.
type testCluster struct {
	coord  *coordinator.Coordinator
	client *cluster.Client
	stores []*chunkstore.MemoryStore
	nodes  []*httptest.Server
}

// nodeMiddleware lets a test intercept chunk traffic on its way to a
// node, e.g. to delay or fail specific chunks.
type nodeMiddleware func(next http.Handler) http.Handler

func newTestCluster(t *testing.T, chunkSize int64, numNodes int, mw nodeMiddleware) *testCluster {
	t.Helper()

	coord, err := coordinator.New(nil, chunkSize, time.Minute)
	require.NoError(t, err)

	tc := &testCluster{coord: coord}
	for i := 0; i < numNodes; i++ {
		store := chunkstore.NewMemoryStore()
		handler := datanode.NewServer(fmt.Sprintf("node-%d", i), store, nil).Handler()
		if mw != nil {
			handler = mw(handler)
		}
		ts := httptest.NewServer(handler)
		t.Cleanup(ts.Close)
		tc.stores = append(tc.stores, store)
		tc.nodes = append(tc.nodes, ts)

		_, err := coord.RegisterNode(fmt.Sprintf("node-%d", i), ts.URL)
		require.NoError(t, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		var req cluster.CreateFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(cluster.ErrorResponse{Error: "bad json"})
			return
		}
		record, err := coord.CreateFile(req.Filename, req.Filesize)
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(cluster.ErrorResponse{Error: err.Error()})
			return
		}
		json.NewEncoder(w).Encode(cluster.CreateFileResponse{
			FileID:    record.FileID,
			Chunks:    record.Chunks,
			ChunkSize: chunkSize,
		})
	})
	mux.HandleFunc("/file/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/file/")
		record, ok := coord.GetFile(name)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(cluster.ErrorResponse{Error: "file not found"})
			return
		}
		json.NewEncoder(w).Encode(cluster.FileInfoResponse{
			FileID:    record.FileID,
			Size:      record.Size,
			CreatedAt: record.CreatedAt,
			Chunks:    record.Chunks,
		})
	})
	coordSrv := httptest.NewServer(mux)
	t.Cleanup(coordSrv.Close)

	tc.client = cluster.NewClient(coordSrv.URL)
	return tc
}

// writeTempFile creates a file of pseudo-random content and returns its
// path and bytes.
func writeTempFile(t *testing.T, size int64) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	rand.New(rand.NewSource(size)).Read(data)
	path := filepath.Join(t.TempDir(), "input.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		size       int64
		wantChunks int
	}{
		{"sub-chunk file", 100, 1},
		{"exactly one chunk", 4096, 1},
		{"multiple chunks with remainder", 10000, 3},
		{"exact chunk multiple", 8192, 2},
		{"zero-size file", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCluster(t, 4096, 2, nil)
			engine := NewEngine(tc.client, 4)

			path, want := writeTempFile(t, tt.size)

			up, err := engine.Upload(context.Background(), path, "roundtrip.bin")
			require.NoError(t, err)
			require.True(t, up.OK, "upload reported chunk failures")
			assert.Len(t, up.Chunks, tt.wantChunks)
			assert.Equal(t, tt.size, up.Bytes)
			assert.NotEmpty(t, up.FileID)

			outPath := filepath.Join(t.TempDir(), "output.bin")
			down, err := engine.Download(context.Background(), "roundtrip.bin", outPath)
			require.NoError(t, err)
			assert.Equal(t, tt.size, down.Bytes)
			assert.Equal(t, tt.wantChunks, down.Chunks)

			got, err := os.ReadFile(outPath)
			require.NoError(t, err)
			assert.Equal(t, want, got, "reassembled bytes differ from the original")
		})
	}
}

// TestUploadDistributesChunks checks that a multi-chunk upload actually
// lands chunks on more than one node.
func TestUploadDistributesChunks(t *testing.T) {
	tc := newTestCluster(t, 4096, 2, nil)
	engine := NewEngine(tc.client, 4)

	path, _ := writeTempFile(t, 10000)
	up, err := engine.Upload(context.Background(), path, "spread.bin")
	require.NoError(t, err)
	require.True(t, up.OK)

	stats0, err := tc.stores[0].Stats()
	require.NoError(t, err)
	stats1, err := tc.stores[1].Stats()
	require.NoError(t, err)

	// 3 chunks over 2 nodes: one node holds 2, the other holds 1.
	assert.Equal(t, 3, stats0.Chunks+stats1.Chunks)
	assert.NotZero(t, stats0.Chunks)
	assert.NotZero(t, stats1.Chunks)
}

// TestDownloadOrdersChunksByOffset delays the file's first chunk so it
// finishes last, then checks reassembly still follows byte order.
func TestDownloadOrdersChunksByOffset(t *testing.T) {
	slowFirst := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "_0") {
				time.Sleep(150 * time.Millisecond)
			}
			next.ServeHTTP(w, r)
		})
	}
	tc := newTestCluster(t, 4096, 2, slowFirst)
	engine := NewEngine(tc.client, 4)

	path, want := writeTempFile(t, 10000)
	up, err := engine.Upload(context.Background(), path, "ordered.bin")
	require.NoError(t, err)
	require.True(t, up.OK)

	outPath := filepath.Join(t.TempDir(), "output.bin")
	_, err = engine.Download(context.Background(), "ordered.bin", outPath)
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, want, got, "out-of-order completion corrupted the output")
}

// TestDownloadFailsWhole verifies a single failing chunk fails the
// entire download and no output file is created.
func TestDownloadFailsWhole(t *testing.T) {
	failSecond := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "_1") {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	tc := newTestCluster(t, 4096, 2, failSecond)
	engine := NewEngine(tc.client, 4)

	path, _ := writeTempFile(t, 10000)
	up, err := engine.Upload(context.Background(), path, "doomed.bin")
	require.NoError(t, err)
	require.True(t, up.OK)

	outPath := filepath.Join(t.TempDir(), "output.bin")
	_, err = engine.Download(context.Background(), "doomed.bin", outPath)
	require.Error(t, err)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr), "failed download must not leave an output file")
}

// TestUploadPartialFailure kills one node before uploading: the upload
// completes with per-chunk outcomes rather than aborting, and the
// chunks bound for the dead node are the ones marked failed.
func TestUploadPartialFailure(t *testing.T) {
	tc := newTestCluster(t, 4096, 2, nil)
	engine := NewEngine(tc.client, 4)

	deadURL := tc.nodes[1].URL
	tc.nodes[1].Close()

	path, _ := writeTempFile(t, 10000)
	up, err := engine.Upload(context.Background(), path, "partial.bin")
	require.NoError(t, err, "partial chunk failure must not fail the call")
	require.False(t, up.OK)
	require.Len(t, up.Chunks, 3)

	for _, cr := range up.Chunks {
		if cr.NodeURL == deadURL {
			assert.False(t, cr.OK)
			assert.Error(t, cr.Err)
		} else {
			assert.True(t, cr.OK)
			assert.NoError(t, cr.Err)
		}
	}

	// The metadata record exists regardless; readers discover the
	// damage on download.
	_, ok := tc.coord.GetFile("partial.bin")
	assert.True(t, ok)
}

func TestDownloadUnknownFile(t *testing.T) {
	tc := newTestCluster(t, 4096, 1, nil)
	engine := NewEngine(tc.client, 4)

	_, err := engine.Download(context.Background(), "no-such-file", filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, cluster.ErrNotFound), "want ErrNotFound, got %v", err)
}

func TestUploadMissingLocalFile(t *testing.T) {
	tc := newTestCluster(t, 4096, 1, nil)
	engine := NewEngine(tc.client, 4)

	_, err := engine.Upload(context.Background(), filepath.Join(t.TempDir(), "absent"), "x")
	require.Error(t, err)
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(cluster.NewClient("http://localhost:5000"), 0)
	assert.Equal(t, DefaultConcurrency, e.concurrency)
}

func TestThroughput(t *testing.T) {
	// 10 MiB in 2s is 5 MB/s.
	assert.InDelta(t, 5.0, throughput(10*1024*1024, 2*time.Second), 0.001)
	// Zero duration must not divide by zero.
	assert.False(t, throughput(1024, 0) < 0)
}
