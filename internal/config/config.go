// Package config loads configuration for the coordinator, node and
// client binaries. Defaults come first, an optional YAML file overrides
// them, and environment variables override both, so containers can be
// configured with env alone.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Coordinator configures the coordination service.
type Coordinator struct {
	Listen            string   `yaml:"listen"`
	DataDir           string   `yaml:"data_dir"`
	ChunkSize         int64    `yaml:"chunk_size"`
	LivenessThreshold Duration `yaml:"liveness_threshold"`
}

// CheckpointPath is where the coordinator persists its snapshot.
func (c *Coordinator) CheckpointPath() string {
	return filepath.Join(c.DataDir, "metadata.json")
}

// Node configures a storage node.
type Node struct {
	NodeID            string   `yaml:"node_id"`
	Listen            string   `yaml:"listen"`
	PublicURL         string   `yaml:"public_url"`
	CoordinatorURL    string   `yaml:"coordinator_url"`
	DataDir           string   `yaml:"data_dir"`
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`
}

// Client configures the transfer CLI.
type Client struct {
	CoordinatorURL string `yaml:"coordinator_url"`
	Concurrency    int    `yaml:"concurrency"`
}

// LoadCoordinator builds the coordinator configuration. path may be
// empty to skip the YAML layer.
func LoadCoordinator(path string) (*Coordinator, error) {
	cfg := &Coordinator{
		Listen:            ":5000",
		DataDir:           "data",
		ChunkSize:         4 * 1024 * 1024,
		LivenessThreshold: Duration(30 * time.Second),
	}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.Listen = getenv("COORDINATOR_LISTEN", cfg.Listen)
	cfg.DataDir = getenv("COORDINATOR_DATA_DIR", cfg.DataDir)
	if err := envInt64("CHUNK_SIZE", &cfg.ChunkSize); err != nil {
		return nil, err
	}
	if err := envDuration("LIVENESS_THRESHOLD", &cfg.LivenessThreshold); err != nil {
		return nil, err
	}
	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk_size must be positive, got %d", cfg.ChunkSize)
	}
	return cfg, nil
}

// LoadNode builds a storage node configuration. When no node ID is
// configured anywhere, a fresh UUID is generated so a node can be
// started with nothing but the coordinator address.
func LoadNode(path string) (*Node, error) {
	cfg := &Node{
		Listen:            ":8001",
		PublicURL:         "http://127.0.0.1:8001",
		CoordinatorURL:    "http://127.0.0.1:5000",
		DataDir:           "data",
		HeartbeatInterval: Duration(10 * time.Second),
	}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.NodeID = getenv("NODE_ID", cfg.NodeID)
	cfg.Listen = getenv("NODE_LISTEN", cfg.Listen)
	cfg.PublicURL = getenv("NODE_ADDR", cfg.PublicURL)
	cfg.CoordinatorURL = getenv("COORDINATOR_ADDR", cfg.CoordinatorURL)
	cfg.DataDir = getenv("NODE_DATA_DIR", cfg.DataDir)
	if err := envDuration("HEARTBEAT_INTERVAL", &cfg.HeartbeatInterval); err != nil {
		return nil, err
	}
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.NewString()
	}
	return cfg, nil
}

// LoadClient builds the CLI configuration.
func LoadClient(path string) (*Client, error) {
	cfg := &Client{
		CoordinatorURL: "http://127.0.0.1:5000",
		Concurrency:    5,
	}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	cfg.CoordinatorURL = getenv("COORDINATOR_ADDR", cfg.CoordinatorURL)
	if err := envInt("CLIENT_CONCURRENCY", &cfg.Concurrency); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, out *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*out = parsed
	return nil
}

func envInt(key string, out *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*out = parsed
	return nil
}

func envDuration(key string, out *Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	*out = Duration(parsed)
	return nil
}
