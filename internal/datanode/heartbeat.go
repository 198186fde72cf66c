package datanode

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
)

const heartbeatTimeout = 3 * time.Second

// Heartbeater posts periodic heartbeats to the coordinator from a
// background goroutine, independent of request handling. Failures are
// logged and retried on the next tick; they never stop the node from
// serving chunks.
//
// If the coordinator answers a heartbeat with "unknown node" (it lost
// its state, e.g. a restart with a deleted checkpoint), the heartbeater
// re-registers the node and carries on.
type Heartbeater struct {
	coord    *cluster.Client
	nodeID   string
	nodeURL  string
	interval time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewHeartbeater creates a heartbeat loop for the node. It does not
// start until Start is called.
func NewHeartbeater(coord *cluster.Client, nodeID, nodeURL string, interval time.Duration) *Heartbeater {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Heartbeater{
		coord:    coord,
		nodeID:   nodeID,
		nodeURL:  nodeURL,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start launches the background loop. An initial heartbeat is sent
// immediately so the coordinator sees the node as alive right away.
func (h *Heartbeater) Start() {
	h.wg.Add(1)
	go h.run()
}

// Stop terminates the loop and waits for it to finish.
func (h *Heartbeater) Stop() {
	close(h.stop)
	h.wg.Wait()
}

func (h *Heartbeater) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.beat()
	for {
		select {
		case <-ticker.C:
			h.beat()
		case <-h.stop:
			return
		}
	}
}

// beat sends one heartbeat, re-registering first if the coordinator no
// longer knows this node.
func (h *Heartbeater) beat() {
	ctx, cancel := context.WithTimeout(context.Background(), heartbeatTimeout)
	defer cancel()

	err := h.coord.Heartbeat(ctx, h.nodeID)
	if err == nil {
		return
	}

	var se *cluster.StatusError
	if errors.As(err, &se) && se.Code == http.StatusBadRequest {
		log.Printf("datanode[%s]: coordinator does not know us, re-registering", h.nodeID)
		if _, rerr := h.coord.Register(ctx, h.nodeID, h.nodeURL); rerr != nil {
			log.Printf("datanode[%s]: re-registration failed: %v", h.nodeID, rerr)
		}
		return
	}
	log.Printf("datanode[%s]: heartbeat failed: %v", h.nodeID, err)
}
