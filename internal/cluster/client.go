package cluster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Sentinel errors mapped from the coordinator's HTTP error taxonomy.
var (
	// ErrNotFound means the requested file is unknown to the coordinator.
	ErrNotFound = errors.New("file not found")
	// ErrNoNodes means no storage node is registered, so no chunk plan
	// can be computed.
	ErrNoNodes = errors.New("no storage nodes available")
)

// Client is a typed client for the coordinator's HTTP API. It is used by
// storage nodes (register, heartbeat, stats) and by the transfer engine
// (file plans and listings).
//
// The zero value is not usable; create one with NewClient. Client is
// safe for concurrent use.
type Client struct {
	base string
}

// NewClient creates a coordinator client for the given base URL, e.g.
// "http://localhost:5000". A trailing slash is tolerated.
func NewClient(baseURL string) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/")}
}

// BaseURL returns the coordinator base URL the client talks to.
func (c *Client) BaseURL() string { return c.base }

// Register announces a storage node to the coordinator. Registration is
// idempotent: repeating it for a known node ID succeeds without
// resetting the node's registration time.
func (c *Client) Register(ctx context.Context, nodeID, nodeURL string) (*RegisterResponse, error) {
	var out RegisterResponse
	req := RegisterRequest{NodeID: nodeID, NodeURL: nodeURL}
	if err := PostJSON(ctx, c.base+"/register", req, &out); err != nil {
		return nil, fmt.Errorf("register node %s: %w", nodeID, err)
	}
	return &out, nil
}

// Heartbeat refreshes the node's last-seen time on the coordinator.
func (c *Client) Heartbeat(ctx context.Context, nodeID string) error {
	req := HeartbeatRequest{NodeID: nodeID}
	if err := PostJSON(ctx, c.base+"/heartbeat", req, nil); err != nil {
		return fmt.Errorf("heartbeat for node %s: %w", nodeID, err)
	}
	return nil
}

// CreateFile registers a file of the given size and returns the chunk
// plan computed for it. Re-registering an existing filename replaces the
// previous record (last writer wins).
func (c *Client) CreateFile(ctx context.Context, filename string, filesize int64) (*CreateFileResponse, error) {
	var out CreateFileResponse
	req := CreateFileRequest{Filename: filename, Filesize: filesize}
	if err := PostJSON(ctx, c.base+"/file", req, &out); err != nil {
		return nil, fmt.Errorf("create file %s: %w", filename, mapStatus(err))
	}
	return &out, nil
}

// GetFile fetches the stored record for filename, including its chunk
// plan. Returns an error wrapping ErrNotFound for unknown files.
func (c *Client) GetFile(ctx context.Context, filename string) (*FileInfoResponse, error) {
	var out FileInfoResponse
	if err := GetJSON(ctx, c.base+"/file/"+url.PathEscape(filename), &out); err != nil {
		return nil, fmt.Errorf("get file %s: %w", filename, mapStatus(err))
	}
	return &out, nil
}

// ListFiles returns the plan-free summary of every stored file, keyed by
// filename.
func (c *Client) ListFiles(ctx context.Context) (map[string]FileSummary, error) {
	out := make(map[string]FileSummary)
	if err := GetJSON(ctx, c.base+"/files", &out); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

// Nodes returns the coordinator's view of all registered storage nodes.
func (c *Client) Nodes(ctx context.Context) ([]NodeStatus, error) {
	var out NodesResponse
	if err := GetJSON(ctx, c.base+"/nodes", &out); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return out.Nodes, nil
}

// ReportStats sends a throughput sample to the coordinator. Callers
// treat failures as non-fatal; the sample is purely informational.
func (c *Client) ReportStats(ctx context.Context, sample StatsRequest) error {
	if err := PostJSON(ctx, c.base+"/stats", sample, nil); err != nil {
		return fmt.Errorf("report stats for node %s: %w", sample.NodeID, err)
	}
	return nil
}

// mapStatus converts the coordinator's error taxonomy into sentinel
// errors callers can test with errors.Is.
func mapStatus(err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w (%s)", ErrNotFound, se.Message)
		case http.StatusServiceUnavailable:
			return fmt.Errorf("%w (%s)", ErrNoNodes, se.Message)
		}
	}
	return err
}
