package registry

import (
	"fmt"
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// SpawnZoneRegistry holds every SpawnZone, keyed by zoneId.
type SpawnZoneRegistry struct {
	mu   sync.RWMutex
	byID map[int64]*model.SpawnZone
}

// NewSpawnZoneRegistry creates an empty SpawnZoneRegistry.
func NewSpawnZoneRegistry() *SpawnZoneRegistry {
	return &SpawnZoneRegistry{byID: make(map[int64]*model.SpawnZone)}
}

// ReplaceAll swaps the entire zone set (SET_ALL_SPAWN_ZONES).
func (r *SpawnZoneRegistry) ReplaceAll(zones []*model.SpawnZone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = make(map[int64]*model.SpawnZone, len(zones))
	for _, z := range zones {
		r.byID[z.ZoneID] = z
	}
}

// Get returns a deep copy of the zone, or (nil, false).
func (r *SpawnZoneRegistry) Get(zoneID int64) (*model.SpawnZone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.byID[zoneID]
	if !ok {
		return nil, false
	}
	return z.Clone(), true
}

// All returns a deep copy of every zone.
func (r *SpawnZoneRegistry) All() []*model.SpawnZone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.SpawnZone, 0, len(r.byID))
	for _, z := range r.byID {
		out = append(out, z.Clone())
	}
	return out
}

// ReserveSlots checks how many new mobs zoneId may spawn right now
// (spawnCount - spawnedCount, floored at 0) and, if positive, reserves them
// by bumping SpawnedCount under the write lock before the caller rolls
// positions and registers instances. This keeps two concurrent spawn ticks
// on the same zone from both reserving the same slots.
func (r *SpawnZoneRegistry) ReserveSlots(zoneID int64) (zone *model.SpawnZone, reserved int32, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.byID[zoneID]
	if !ok {
		return nil, 0, fmt.Errorf("registry: spawn zone %d not found", zoneID)
	}
	need := z.SpawnCount - z.SpawnedCount
	if need <= 0 {
		return z.Clone(), 0, nil
	}
	z.SpawnedCount += need
	return z.Clone(), need, nil
}

// RecordSpawned appends newly created mob uids to the zone's SpawnedMobs
// list. Called after MobInstanceRegistry.Register succeeds for each new
// instance, so the zone's roster and the instance registry's zone index
// agree on membership.
func (r *SpawnZoneRegistry) RecordSpawned(zoneID int64, uids []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.byID[zoneID]
	if !ok {
		return
	}
	z.SpawnedMobs = append(z.SpawnedMobs, uids...)
}

// RecordDespawned removes a uid from the zone's SpawnedMobs list and
// decrements SpawnedCount, used when a mob instance is unregistered
// (e.g. permanently removed rather than merely marked dead).
func (r *SpawnZoneRegistry) RecordDespawned(zoneID, uid int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.byID[zoneID]
	if !ok {
		return
	}
	for i, id := range z.SpawnedMobs {
		if id == uid {
			z.SpawnedMobs = append(z.SpawnedMobs[:i], z.SpawnedMobs[i+1:]...)
			if z.SpawnedCount > 0 {
				z.SpawnedCount--
			}
			return
		}
	}
}
