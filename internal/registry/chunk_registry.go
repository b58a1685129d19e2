package registry

import (
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// ChunkRegistry holds the chunk metadata replicated via SET_CHUNK_DATA.
type ChunkRegistry struct {
	mu   sync.RWMutex
	byID map[int64]*model.ChunkData
}

// NewChunkRegistry creates an empty ChunkRegistry.
func NewChunkRegistry() *ChunkRegistry {
	return &ChunkRegistry{byID: make(map[int64]*model.ChunkData)}
}

// Upsert inserts or replaces chunk data in place.
func (r *ChunkRegistry) Upsert(c *model.ChunkData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ChunkID] = c
}

// Get returns a deep copy of the chunk data, or (nil, false).
func (r *ChunkRegistry) Get(chunkID int64) (*model.ChunkData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[chunkID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// All returns a deep copy of every known chunk.
func (r *ChunkRegistry) All() []*model.ChunkData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.ChunkData, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c.Clone())
	}
	return out
}
