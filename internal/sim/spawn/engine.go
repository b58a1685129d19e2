// Package spawn implements spawnMobsInZone: rolling a zone's missing
// population into new MobInstanceRegistry entries.
package spawn

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
)

// spawnDefaultZ is the fixed Z coordinate given to every newly spawned mob.
// Named rather than inlined so a future implementer who wants per-zone
// terrain height has one place to change.
const spawnDefaultZ = 200

// Engine rolls new mob instances for under-populated spawn zones.
type Engine struct {
	zones     *registry.SpawnZoneRegistry
	templates *registry.MobTemplateRegistry
	instances *registry.MobInstanceRegistry
	uids      *idgen.Counter
	log       *slog.Logger
}

// NewEngine builds a spawn Engine. log may be nil, in which case a
// discarding logger is used.
func NewEngine(zones *registry.SpawnZoneRegistry, templates *registry.MobTemplateRegistry, instances *registry.MobInstanceRegistry, uids *idgen.Counter, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{zones: zones, templates: templates, instances: instances, uids: uids, log: log}
}

// SpawnMobsInZone reserves the zone's missing population slots, rolls a
// random position per slot, and registers a new MobInstance for each.
// Returns the newly created instances for the caller to broadcast.
func (e *Engine) SpawnMobsInZone(zoneID int64) ([]*model.MobInstance, error) {
	zone, reserved, err := e.zones.ReserveSlots(zoneID)
	if err != nil {
		return nil, fmt.Errorf("sim/spawn: %w", err)
	}
	if reserved <= 0 {
		return nil, nil
	}

	template, ok := e.templates.Get(zone.SpawnMobID)
	if !ok {
		return nil, fmt.Errorf("sim/spawn: zone %d references unknown mob template %d", zoneID, zone.SpawnMobID)
	}

	spawned := make([]*model.MobInstance, 0, reserved)
	newUIDs := make([]int64, 0, reserved)

	for i := int32(0); i < reserved; i++ {
		inst := e.rollInstance(zone, template)
		if err := e.instances.Register(inst); err != nil {
			e.log.Warn("sim/spawn: register failed", "zoneId", zoneID, "uid", inst.UID, "error", err)
			continue
		}
		spawned = append(spawned, inst)
		newUIDs = append(newUIDs, inst.UID)
	}

	if len(newUIDs) > 0 {
		e.zones.RecordSpawned(zoneID, newUIDs)
	}

	e.log.Info("spawned mobs", "zoneId", zoneID, "requested", reserved, "spawned", len(spawned))
	return spawned, nil
}

func (e *Engine) rollInstance(zone *model.SpawnZone, template *model.MobTemplate) *model.MobInstance {
	halfX, halfY := zone.Box.SizeX/2, zone.Box.SizeY/2
	x := zone.Box.CenterX - halfX + rand.Float64()*zone.Box.SizeX
	y := zone.Box.CenterY - halfY + rand.Float64()*zone.Box.SizeY
	rotZ := rand.Float64() * 360
	pos := model.NewPosition(x, y, spawnDefaultZ, rotZ)

	maxHP := template.BaseStats["max_health"]
	maxMP := template.BaseStats["max_mana"]

	return &model.MobInstance{
		UID:             e.uids.Next(),
		MobID:           template.MobID,
		ZoneID:          zone.ZoneID,
		Position:        pos,
		SpawnPosition:   pos,
		CurrentHealth:   maxHP,
		MaxHealth:       maxHP,
		CurrentMana:     maxMP,
		MaxMana:         maxMP,
		CombatState:     model.CombatIdle,
		StepMultiplier:  1,
		SpeedMultiplier: 1,
	}
}
