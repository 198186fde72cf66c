// Package main implements a storage node: it persists raw chunk bytes
// on local disk, serves the chunk transfer protocol, registers itself
// with the coordinator and keeps heartbeating in the background.
//
// Configuration (env overrides YAML, YAML overrides defaults):
//   - NODE_ID:            node identifier (default: fresh UUID)
//   - NODE_LISTEN:        listen address (default ":8001")
//   - NODE_ADDR:          public URL the coordinator hands to clients
//   - COORDINATOR_ADDR:   coordinator base URL
//   - NODE_DATA_DIR:      chunk directory (default "data")
//   - HEARTBEAT_INTERVAL: heartbeat period (default "10s")
//
// Example:
//
//	NODE_ID=node-1 NODE_LISTEN=:8001 NODE_ADDR=http://localhost:8001 \
//	COORDINATOR_ADDR=http://localhost:5000 ./node
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/chunkstore"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/config"
	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/datanode"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.LoadNode(*configPath)
	if err != nil {
		logFatal("config: %v", err)
	}

	store, err := chunkstore.NewDiskStore(cfg.DataDir)
	if err != nil {
		logFatal("chunk store: %v", err)
	}

	coord := cluster.NewClient(cfg.CoordinatorURL)
	node := datanode.NewServer(cfg.NodeID, store, coord)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           node.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("node[%s] listening on %s (public %s)", cfg.NodeID, cfg.Listen, cfg.PublicURL)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logFatal("listen: %v", err)
		}
	}()

	// Register with coordinator (with retries), then start heartbeats.
	register(context.Background(), coord, cfg.NodeID, cfg.PublicURL)
	heartbeater := datanode.NewHeartbeater(coord, cfg.NodeID, cfg.PublicURL, cfg.HeartbeatInterval.Std())
	heartbeater.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	heartbeater.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("node stopped")
}

// register announces the node to the coordinator, retrying to cover
// coordinator startup delays. A node cannot serve its purpose without a
// registration, so persistent failure is fatal.
func register(ctx context.Context, coord *cluster.Client, nodeID, publicURL string) {
	var lastErr error
	for i := 0; i < 10; i++ {
		resp, err := coord.Register(ctx, nodeID, publicURL)
		if err == nil {
			log.Printf("node[%s] registered with coordinator @ %s (chunk size %d)",
				nodeID, coord.BaseURL(), resp.ChunkSize)
			return
		}
		lastErr = err
		log.Printf("register retry %d: %v", i+1, err)
		time.Sleep(400 * time.Millisecond)
	}
	logFatal("failed to register with coordinator: %v", lastErr)
}
