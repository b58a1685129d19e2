package registry

import (
	"fmt"
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// MobInstanceRegistry holds the primary uid→MobInstance map plus a
// zoneId→[]uid secondary index under one lock. Both indices are always
// edited together under the write lock, which is what keeps the "zone index
// consistency" invariant (every uid in a zone's list has that zone's id)
// true at every observable point.
type MobInstanceRegistry struct {
	mu     sync.RWMutex
	byUID  map[int64]*model.MobInstance
	byZone map[int64][]int64
}

// NewMobInstanceRegistry creates an empty MobInstanceRegistry.
func NewMobInstanceRegistry() *MobInstanceRegistry {
	return &MobInstanceRegistry{
		byUID:  make(map[int64]*model.MobInstance),
		byZone: make(map[int64][]int64),
	}
}

// Register inserts a new mob instance. Fails if uid is already present.
func (r *MobInstanceRegistry) Register(inst *model.MobInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byUID[inst.UID]; exists {
		return fmt.Errorf("registry: mob uid %d already registered", inst.UID)
	}
	r.byUID[inst.UID] = inst
	r.byZone[inst.ZoneID] = append(r.byZone[inst.ZoneID], inst.UID)
	return nil
}

// Unregister removes a mob instance from both the primary map and its
// zone's list, dropping the zone's list entry entirely once empty.
func (r *MobInstanceRegistry) Unregister(uid int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byUID[uid]
	if !ok {
		return
	}
	delete(r.byUID, uid)
	r.removeFromZoneLocked(inst.ZoneID, uid)
}

func (r *MobInstanceRegistry) removeFromZoneLocked(zoneID, uid int64) {
	list := r.byZone[zoneID]
	for i, id := range list {
		if id == uid {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.byZone, zoneID)
	} else {
		r.byZone[zoneID] = list
	}
}

// Get returns a deep copy of the instance, or (nil, false).
func (r *MobInstanceRegistry) Get(uid int64) (*model.MobInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.byUID[uid]
	if !ok {
		return nil, false
	}
	return inst.Clone(), true
}

// InZone returns deep copies of every instance currently indexed under zoneID.
func (r *MobInstanceRegistry) InZone(zoneID int64) []*model.MobInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uids := r.byZone[zoneID]
	out := make([]*model.MobInstance, 0, len(uids))
	for _, uid := range uids {
		if inst, ok := r.byUID[uid]; ok {
			out = append(out, inst.Clone())
		}
	}
	return out
}

// UpdateHealth applies a health delta atomically, reporting the death-edge
// transitions the caller needs without a separate read-then-write race.
func (r *MobInstanceRegistry) UpdateHealth(uid int64, newHP int32) (model.HealthUpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byUID[uid]
	if !ok {
		return model.HealthUpdateResult{}, fmt.Errorf("registry: mob uid %d not found", uid)
	}
	if inst.IsDead {
		return model.HealthUpdateResult{Success: true, WasAlreadyDead: true}, nil
	}
	if newHP <= 0 {
		inst.CurrentHealth = 0
		inst.IsDead = true
		return model.HealthUpdateResult{Success: true, MobDied: true}, nil
	}
	inst.CurrentHealth = newHP
	return model.HealthUpdateResult{Success: true}, nil
}

// UpdateMana sets the instance's current mana directly.
func (r *MobInstanceRegistry) UpdateMana(uid int64, newMP int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byUID[uid]
	if !ok {
		return fmt.Errorf("registry: mob uid %d not found", uid)
	}
	inst.CurrentMana = newMP
	return nil
}

// UpdatePosition sets the instance's position directly.
func (r *MobInstanceRegistry) UpdatePosition(uid int64, pos model.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byUID[uid]
	if !ok {
		return fmt.Errorf("registry: mob uid %d not found", uid)
	}
	inst.Position = pos
	return nil
}

// UpdateAIState lets the movement engine persist its per-mob scratch state
// (combat state, next move/attack times, direction, target) back into the
// registry after a tick, under the same write lock as every other mutation.
func (r *MobInstanceRegistry) UpdateAIState(uid int64, fn func(inst *model.MobInstance)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byUID[uid]
	if !ok {
		return fmt.Errorf("registry: mob uid %d not found", uid)
	}
	fn(inst)
	return nil
}

// AliveCountInZone walks the zone index counting non-dead instances.
func (r *MobInstanceRegistry) AliveCountInZone(zoneID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, uid := range r.byZone[zoneID] {
		if inst, ok := r.byUID[uid]; ok && inst.IsAlive() {
			count++
		}
	}
	return count
}

// All returns a deep copy of every mob instance across all zones.
func (r *MobInstanceRegistry) All() []*model.MobInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.MobInstance, 0, len(r.byUID))
	for _, inst := range r.byUID {
		out = append(out, inst.Clone())
	}
	return out
}
