// Package harvest implements the corpse harvesting state machine: claiming a
// corpse, the timed updateHarvestProgress tick that rolls harvest-only loot
// on completion, loot pickup against a harvested corpse, and the periodic
// corpse sweep. The exclusivity/ownership/range checks themselves live in
// registry.HarvestStore; this package is the driver that ticks them and
// turns their results into broadcasts.
package harvest

import (
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
)

// DefaultCorpseMaxAgeMs is how long a corpse lingers before cleanupOldCorpses
// sweeps it, absent a configured override.
const DefaultCorpseMaxAgeMs = 600_000

// Sink receives the broadcasts a harvest state transition produces.
// Implemented by the dispatch layer.
type Sink interface {
	PublishHarvestStart(characterID, corpseUID int64)
	PublishHarvestComplete(characterID, corpseUID int64, loot []model.InventoryEntry)
	PublishHarvestCancel(characterID, corpseUID int64)
}

// Engine drives registry.HarvestStore's state machine.
type Engine struct {
	store *registry.HarvestStore
	items *registry.ItemRegistry
	sink  Sink
	log   *slog.Logger
}

// NewEngine builds a harvest Engine. log may be nil, in which case a
// discarding logger is used.
func NewEngine(store *registry.HarvestStore, items *registry.ItemRegistry, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{store: store, items: items, log: log}
}

// SetSink wires the broadcast sink, breaking the construction-order cycle
// with the dispatch layer.
func (e *Engine) SetSink(sink Sink) { e.sink = sink }

// CreateCorpseOnDeath registers a freshly-dead mob as a harvestable corpse.
// Called by whatever implements combat.MobDeathHandler once it has resolved
// the mob's template (for interactionRadius), not by this package directly,
// since MobDeathHandler's signature carries no mobId.
func (e *Engine) CreateCorpseOnDeath(mobID, mobUID int64, pos model.Position, interactionRadius float64, nowMs int64) {
	if interactionRadius <= 0 {
		interactionRadius = registry.DefaultHarvestInteractionRadius
	}
	e.store.CreateCorpse(&model.Corpse{
		MobUID:            mobUID,
		MobID:             mobID,
		Position:          pos,
		DeathTimeMs:       nowMs,
		InteractionRadius: interactionRadius,
	})
}

// StartHarvest claims a corpse for characterID, broadcasting harvestStart on
// success.
func (e *Engine) StartHarvest(characterID, corpseUID int64, playerPos model.Position, nowMs int64) (*model.HarvestSession, error) {
	session, err := e.store.StartHarvest(characterID, corpseUID, playerPos, nowMs)
	if err != nil {
		return nil, err
	}
	if e.sink != nil {
		e.sink.PublishHarvestStart(characterID, corpseUID)
	}
	return session, nil
}

// CancelHarvest ends characterID's active session, broadcasting
// harvestCancel if one existed.
func (e *Engine) CancelHarvest(characterID int64) {
	corpseUID, ok := e.store.CancelHarvest(characterID)
	if ok && e.sink != nil {
		e.sink.PublishHarvestCancel(characterID, corpseUID)
	}
}

// UpdateHarvestProgress is the scheduler's harvest tick: every session whose
// duration has elapsed rolls the corpse's harvest-only loot table, completes
// the harvest, and broadcasts harvestComplete. The rolled loot is attached to
// the corpse's available loot, not the harvester's inventory directly —
// pickupCorpseLoot is the only path that credits inventory.
func (e *Engine) UpdateHarvestProgress(nowMs int64) {
	due := e.store.DueSessions(nowMs)
	for _, session := range due {
		corpse, ok := e.store.Corpse(session.CorpseUID)
		if !ok {
			continue
		}
		loot := e.rollHarvestLoot(corpse.MobID)
		final, err := e.store.CompleteHarvest(session.CharacterID, session.CorpseUID, loot)
		if err != nil {
			e.log.Warn("harvest: complete failed", "characterId", session.CharacterID, "corpseUid", session.CorpseUID, "error", err)
			continue
		}
		if e.sink != nil {
			e.sink.PublishHarvestComplete(session.CharacterID, session.CorpseUID, final.AvailableLoot)
		}
	}
}

func (e *Engine) rollHarvestLoot(mobID int64) []model.InventoryEntry {
	table := e.items.HarvestLootTable(mobID)
	var loot []model.InventoryEntry
	for _, entry := range table {
		if rand.Float64() <= entry.DropChance {
			loot = append(loot, model.InventoryEntry{ItemID: entry.ItemID, Quantity: 1})
		}
	}
	return loot
}

// PickupCorpseLoot validates ownership/echo/range via HarvestStore, clamps
// qty to what's available, and credits the harvester's inventory with what
// was actually taken.
func (e *Engine) PickupCorpseLoot(characterID, corpseUID, itemID int64, qty int32, playerPos model.Position, inventory *registry.InventoryStore) (int32, error) {
	if qty <= 0 {
		return 0, errors.New(model.ErrorCodeValidationFailed)
	}
	taken, err := e.store.PickupLoot(characterID, corpseUID, itemID, qty, playerPos)
	if err != nil {
		return 0, err
	}
	inventory.Add(characterID, itemID, taken)
	return taken, nil
}

// CleanupOldCorpses sweeps every corpse older than maxAgeMs relative to
// nowMs.
func (e *Engine) CleanupOldCorpses(nowMs, maxAgeMs int64) []int64 {
	if maxAgeMs <= 0 {
		maxAgeMs = DefaultCorpseMaxAgeMs
	}
	return e.store.CleanupOldCorpses(nowMs, maxAgeMs)
}
