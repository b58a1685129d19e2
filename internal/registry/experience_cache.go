package registry

import (
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// ExperienceTableCache holds the level→cumulativeExp table replicated from
// upstream via SET_EXP_LEVEL_TABLE. Until loaded, RequiredExp falls back to
// the local formula (see model.ExperienceTable.RequiredExp).
type ExperienceTableCache struct {
	mu    sync.RWMutex
	table *model.ExperienceTable
}

// NewExperienceTableCache creates a cache with no table loaded.
func NewExperienceTableCache() *ExperienceTableCache {
	return &ExperienceTableCache{}
}

// Set replaces the cached table (SET_EXP_LEVEL_TABLE).
func (c *ExperienceTableCache) Set(levels map[int32]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &model.ExperienceTable{Levels: make(map[int32]int64, len(levels))}
	for k, v := range levels {
		t.Levels[k] = v
	}
	c.table = t
}

// RequiredExp returns the cumulative experience required to reach level,
// from the cached table if loaded, else the local fallback formula.
func (c *ExperienceTableCache) RequiredExp(level int32) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table.RequiredExp(level)
}

// Loaded reports whether a table has been replicated from upstream.
func (c *ExperienceTableCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table != nil
}
