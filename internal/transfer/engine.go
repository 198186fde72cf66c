package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
)

// DefaultConcurrency bounds how many chunk transfers run at once when
// the caller does not choose a limit.
const DefaultConcurrency = 5

// Engine uploads and downloads files chunk-wise against the plans the
// coordinator computes. Safe for concurrent use.
type Engine struct {
	coord       *cluster.Client
	http        *http.Client
	concurrency int
}

// NewEngine creates a transfer engine talking to the given coordinator.
// concurrency <= 0 selects DefaultConcurrency.
func NewEngine(coord *cluster.Client, concurrency int) *Engine {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Engine{
		coord:       coord,
		http:        &http.Client{Timeout: 30 * time.Second},
		concurrency: concurrency,
	}
}

// ChunkResult is the outcome of one chunk transfer within an upload.
type ChunkResult struct {
	ChunkID string
	NodeURL string
	Size    int64
	OK      bool
	Err     error
}

// UploadResult aggregates an upload. OK is true only when every chunk
// was stored; on partial failure the stored chunks remain on their
// nodes (there is no cross-chunk atomicity).
type UploadResult struct {
	Filename string
	FileID   string
	Bytes    int64
	Chunks   []ChunkResult
	Duration time.Duration
	OK       bool
}

// DownloadResult aggregates a successful download.
type DownloadResult struct {
	Filename string
	FileID   string
	Bytes    int64
	Chunks   int
	Duration time.Duration
}

// ThroughputMBps returns the upload's whole-file throughput.
func (r *UploadResult) ThroughputMBps() float64 { return throughput(r.Bytes, r.Duration) }

// ThroughputMBps returns the download's whole-file throughput.
func (r *DownloadResult) ThroughputMBps() float64 { return throughput(r.Bytes, r.Duration) }

func throughput(n int64, d time.Duration) float64 {
	secs := d.Seconds()
	if secs <= 0 {
		secs = 0.001
	}
	return float64(n) / 1024 / 1024 / secs
}

// Upload registers the file with the coordinator and pushes every
// chunk of the plan to its assigned node, at most e.concurrency chunks
// in flight. Every chunk is attempted even if another one fails; the
// per-chunk outcomes and the aggregate flag land in the result.
func (e *Engine) Upload(ctx context.Context, localPath, name string) (*UploadResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	plan, err := e.coord.CreateFile(ctx, name, info.Size())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]ChunkResult, len(plan.Chunks))
	sem := make(chan struct{}, e.concurrency)
	var g errgroup.Group
	for i := range plan.Chunks {
		i := i
		chunk := plan.Chunks[i]
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = e.uploadChunk(ctx, f, chunk)
			return nil
		})
	}
	_ = g.Wait()

	result := &UploadResult{
		Filename: name,
		FileID:   plan.FileID,
		Bytes:    info.Size(),
		Chunks:   results,
		Duration: time.Since(start),
		OK:       true,
	}
	for _, cr := range results {
		if !cr.OK {
			result.OK = false
			log.Printf("transfer: chunk %s failed: %v", cr.ChunkID, cr.Err)
		}
	}
	return result, nil
}

// uploadChunk reads exactly the chunk's byte range from the local file
// and PUTs it to the assigned node. ReadAt is safe for concurrent use
// on a shared *os.File.
func (e *Engine) uploadChunk(ctx context.Context, f *os.File, chunk cluster.ChunkRef) ChunkResult {
	result := ChunkResult{ChunkID: chunk.ChunkID, NodeURL: chunk.NodeURL, Size: chunk.Size}

	buf := make([]byte, chunk.Size)
	n, err := f.ReadAt(buf, chunk.Start)
	if err != nil && !(err == io.EOF && int64(n) == chunk.Size) {
		result.Err = fmt.Errorf("read range [%d,%d): %w", chunk.Start, chunk.Start+chunk.Size, err)
		return result
	}

	if err := e.storeChunk(ctx, chunk, buf); err != nil {
		result.Err = err
		return result
	}
	result.OK = true
	log.Printf("transfer: uploaded chunk %s to %s", chunk.ChunkID, chunk.NodeURL)
	return result
}

// Download fetches the file's plan, retrieves all chunks concurrently
// and writes them to outPath in ascending offset order. Any chunk
// failure cancels the remaining fetches and fails the whole download;
// a file is only ever written byte-identical and complete.
func (e *Engine) Download(ctx context.Context, name, outPath string) (*DownloadResult, error) {
	info, err := e.coord.GetFile(ctx, name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	type fetched struct {
		start int64
		data  []byte
	}
	parts := make([]fetched, len(info.Chunks))
	sem := make(chan struct{}, e.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := range info.Chunks {
		i := i
		chunk := info.Chunks[i]
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			data, err := e.fetchChunk(gctx, chunk)
			if err != nil {
				return err
			}
			parts[i] = fetched{start: chunk.Start, data: data}
			log.Printf("transfer: downloaded chunk %s from %s", chunk.ChunkID, chunk.NodeURL)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Completion order is not byte order: merge strictly by offset.
	slices.SortFunc(parts, func(a, b fetched) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		default:
			return 0
		}
	})

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	var written int64
	for _, part := range parts {
		n, err := out.Write(part.data)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", outPath, err)
		}
		written += int64(n)
	}
	if written != info.Size {
		return nil, fmt.Errorf("reassembled %d bytes, metadata says %d", written, info.Size)
	}

	return &DownloadResult{
		Filename: name,
		FileID:   info.FileID,
		Bytes:    written,
		Chunks:   len(info.Chunks),
		Duration: time.Since(start),
	}, nil
}

// storeChunk PUTs raw chunk bytes to the node.
func (e *Engine) storeChunk(ctx context.Context, chunk cluster.ChunkRef, data []byte) error {
	url := chunk.NodeURL + "/chunk/" + chunk.ChunkID
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("store chunk %s on %s: %w", chunk.ChunkID, chunk.NodeURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store chunk %s on %s: status %d", chunk.ChunkID, chunk.NodeURL, resp.StatusCode)
	}
	return nil
}

// fetchChunk GETs a chunk's bytes from its node and verifies the length
// against the plan.
func (e *Engine) fetchChunk(ctx context.Context, chunk cluster.ChunkRef) ([]byte, error) {
	url := chunk.NodeURL + "/chunk/" + chunk.ChunkID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch chunk %s from %s: %w", chunk.ChunkID, chunk.NodeURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch chunk %s from %s: status %d", chunk.ChunkID, chunk.NodeURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chunk %s body: %w", chunk.ChunkID, err)
	}
	if int64(len(data)) != chunk.Size {
		return nil, fmt.Errorf("chunk %s: got %d bytes, plan says %d", chunk.ChunkID, len(data), chunk.Size)
	}
	return data, nil
}
