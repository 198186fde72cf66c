package coordinator

import (
	"fmt"

	"github.com/ARAldhafeeri/Monty-Python-McChunkin/internal/cluster"
)

// buildPlan computes the chunk plan for a file: ceil(filesize/chunkSize)
// chunks tiling [0, filesize) contiguously, assigned round-robin over
// nodes in the given order. The final chunk is truncated to the
// remaining bytes, so sizes always sum to filesize exactly.
//
// The function is pure: for a fixed node order and count the plan is
// fully deterministic. A zero filesize yields an empty (but non-nil)
// plan, which is still a valid, downloadable file.
func buildPlan(fileID string, filesize, chunkSize int64, nodes []*Node) []cluster.ChunkRef {
	if filesize == 0 {
		return []cluster.ChunkRef{}
	}

	numChunks := (filesize + chunkSize - 1) / chunkSize
	chunks := make([]cluster.ChunkRef, 0, numChunks)
	for i := int64(0); i < numChunks; i++ {
		node := nodes[i%int64(len(nodes))]
		size := chunkSize
		if remaining := filesize - i*chunkSize; remaining < size {
			size = remaining
		}
		chunks = append(chunks, cluster.ChunkRef{
			ChunkID: fmt.Sprintf("%s_%d", fileID, i),
			NodeID:  node.ID,
			NodeURL: node.URL,
			Start:   i * chunkSize,
			Size:    size,
		})
	}
	return chunks
}
