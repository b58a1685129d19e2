// Package loot implements generateLootOnMobDeath and pickupDroppedItem: the
// ground-drop half of death loot, distinct from internal/sim/harvest's
// corpse-loot half.
package loot

import (
	"errors"
	"log/slog"
	"math/rand/v2"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
)

// positionJitterRange is the ± spread applied to a dropped item's X/Y so
// multiple drops from one death don't all stack on one point.
const positionJitterRange = 20

// Sink receives the broadcast a roll produces. Implemented by the dispatch
// layer.
type Sink interface {
	PublishItemDrop(item *model.DroppedItem)
}

// Engine rolls a dead mob's non-harvest loot table onto the ground and
// drives pickup/cleanup of what lands there.
type Engine struct {
	items     *registry.ItemRegistry
	store     *registry.LootStore
	inventory *registry.InventoryStore
	sink      Sink
	log       *slog.Logger
}

// NewEngine builds a loot Engine. log may be nil, in which case a discarding
// logger is used.
func NewEngine(items *registry.ItemRegistry, store *registry.LootStore, inventory *registry.InventoryStore, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{items: items, store: store, inventory: inventory, log: log}
}

// SetSink wires the broadcast sink, breaking the construction-order cycle
// with the dispatch layer.
func (e *Engine) SetSink(sink Sink) { e.sink = sink }

// GenerateLootOnMobDeath rolls mobID's non-harvest loot table against pos,
// inserting a DroppedItem for each row that hits and broadcasting one
// ITEM_DROP event per drop. Returns the dropped items for the caller's own
// use (tests, logging).
func (e *Engine) GenerateLootOnMobDeath(mobID, mobUID int64, pos model.Position, nowMs int64) []*model.DroppedItem {
	table := e.items.NonHarvestLootTable(mobID)
	if len(table) == 0 {
		return nil
	}

	var dropped []*model.DroppedItem
	for _, entry := range table {
		if rand.Float64() > entry.DropChance {
			continue
		}
		item := &model.DroppedItem{
			ItemID:          entry.ItemID,
			Quantity:        1,
			Position:        jitter(pos),
			DropTimeMs:      nowMs,
			DroppedByMobUID: mobUID,
			CanBePickedUp:   true,
		}
		item.UID = e.store.Insert(item)
		dropped = append(dropped, item)
		if e.sink != nil {
			e.sink.PublishItemDrop(item)
		}
	}

	e.log.Debug("loot: rolled mob drops", "mobId", mobID, "mobUid", mobUID, "dropped", len(dropped))
	return dropped
}

func jitter(pos model.Position) model.Position {
	dx := rand.Float64()*2*positionJitterRange - positionJitterRange
	dy := rand.Float64()*2*positionJitterRange - positionJitterRange
	return model.NewPosition(pos.X+dx, pos.Y+dy, pos.Z, pos.RotZ)
}

// PickupDroppedItem validates the item exists, is still pickupable, and is
// within registry.LootPickupRadius of playerPos, then credits it to
// characterID's inventory and removes it from the ground.
func (e *Engine) PickupDroppedItem(itemUID, characterID int64, playerPos model.Position) (*model.DroppedItem, error) {
	item, ok := e.store.Get(itemUID)
	if !ok {
		return nil, errors.New(model.ErrorCodeNotFound)
	}
	if !item.CanBePickedUp {
		return nil, errors.New(model.ErrorCodePickupFailed)
	}
	if playerPos.DistanceXY(item.Position) > registry.LootPickupRadius {
		return nil, errors.New(model.ErrorCodePickupFailed)
	}

	e.store.Remove(itemUID)
	e.inventory.Add(characterID, item.ItemID, item.Quantity)
	return item, nil
}

// CleanupOldDroppedItems sweeps every dropped item older than maxAgeMs
// relative to nowMs, returning the removed uids for broadcast/logging.
func (e *Engine) CleanupOldDroppedItems(nowMs, maxAgeMs int64) []int64 {
	return e.store.Sweep(nowMs, maxAgeMs)
}
