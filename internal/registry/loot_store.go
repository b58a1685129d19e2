package registry

import (
	"sync"

	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
)

// LootPickupRadius is the distance within which pickupDroppedItem succeeds.
// Distinct from, and deliberately not shared with, the harvest corpse's
// interactionRadius — the two mechanics independently came with different
// radii, kept distinct rather than unified.
const LootPickupRadius = 100

// LootStore holds ground-dropped items awaiting pickup, keyed by a monotonic
// uid.
type LootStore struct {
	mu      sync.RWMutex
	byUID   map[int64]*model.DroppedItem
	nextUID idgen.Counter
}

// NewLootStore creates an empty LootStore.
func NewLootStore() *LootStore {
	return &LootStore{byUID: make(map[int64]*model.DroppedItem)}
}

// Insert assigns a uid to item and stores it, returning the assigned uid.
func (s *LootStore) Insert(item *model.DroppedItem) int64 {
	uid := s.nextUID.Next()
	item.UID = uid
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUID[uid] = item
	return uid
}

// Get returns a deep copy of the dropped item, or (nil, false).
func (s *LootStore) Get(uid int64) (*model.DroppedItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.byUID[uid]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// Remove deletes a dropped item by uid.
func (s *LootStore) Remove(uid int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUID, uid)
}

// Near returns deep copies of every pickupable dropped item within radius of
// pos.
func (s *LootStore) Near(pos model.Position, radius float64) []*model.DroppedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.DroppedItem
	for _, item := range s.byUID {
		if !item.CanBePickedUp {
			continue
		}
		if pos.DistanceXY(item.Position) <= radius {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Sweep removes every dropped item whose DropTimeMs is older than maxAgeMs
// relative to nowMs, returning the removed uids for broadcast/logging.
func (s *LootStore) Sweep(nowMs, maxAgeMs int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []int64
	for uid, item := range s.byUID {
		if nowMs-item.DropTimeMs > maxAgeMs {
			removed = append(removed, uid)
			delete(s.byUID, uid)
		}
	}
	return removed
}
