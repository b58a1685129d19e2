package loot_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/sim/loot"
)

type fakeSink struct{ drops []*model.DroppedItem }

func (f *fakeSink) PublishItemDrop(item *model.DroppedItem) { f.drops = append(f.drops, item) }

func newEngine() (*loot.Engine, *registry.ItemRegistry, *registry.LootStore, *registry.InventoryStore, *fakeSink) {
	items := registry.NewItemRegistry()
	store := registry.NewLootStore()
	inventory := registry.NewInventoryStore(nil)
	engine := loot.NewEngine(items, store, inventory, nil)
	sink := &fakeSink{}
	engine.SetSink(sink)
	return engine, items, store, inventory, sink
}

func TestGenerateLootOnMobDeathRollsCertainDrops(t *testing.T) {
	engine, items, store, _, sink := newEngine()
	items.ReplaceAllTemplates([]*model.ItemTemplate{{ID: 1, Slug: "bone", IsHarvest: false}})
	items.SetMobLootInfo(7, []model.LootTableEntry{{ItemID: 1, DropChance: 1}})

	pos := model.NewPosition(100, 100, 0, 0)
	dropped := engine.GenerateLootOnMobDeath(7, 99, pos, 1000)
	require.Len(t, dropped, 1)
	assert.EqualValues(t, 1, dropped[0].ItemID)
	assert.EqualValues(t, 99, dropped[0].DroppedByMobUID)
	assert.InDelta(t, pos.X, dropped[0].Position.X, 20)
	assert.Len(t, sink.drops, 1)

	_, ok := store.Get(dropped[0].UID)
	assert.True(t, ok)
}

func TestGenerateLootOnMobDeathSkipsZeroChance(t *testing.T) {
	engine, items, _, _, _ := newEngine()
	items.ReplaceAllTemplates([]*model.ItemTemplate{{ID: 1, IsHarvest: false}})
	items.SetMobLootInfo(7, []model.LootTableEntry{{ItemID: 1, DropChance: 0}})

	dropped := engine.GenerateLootOnMobDeath(7, 99, model.Position{}, 1000)
	assert.Empty(t, dropped)
}

func TestPickupDroppedItemWithinRadiusCreditsInventory(t *testing.T) {
	engine, items, store, inventory, _ := newEngine()
	items.ReplaceAllTemplates([]*model.ItemTemplate{{ID: 1, IsHarvest: false}})
	item := &model.DroppedItem{ItemID: 1, Quantity: 3, Position: model.NewPosition(0, 0, 0, 0), CanBePickedUp: true}
	uid := store.Insert(item)

	got, err := engine.PickupDroppedItem(uid, 42, model.NewPosition(10, 10, 0, 0))
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ItemID)
	assert.EqualValues(t, 3, inventory.Quantity(42, 1))

	_, ok := store.Get(uid)
	assert.False(t, ok)
}

func TestPickupDroppedItemOutOfRangeFails(t *testing.T) {
	engine, _, store, _, _ := newEngine()
	item := &model.DroppedItem{ItemID: 1, Quantity: 1, Position: model.NewPosition(0, 0, 0, 0), CanBePickedUp: true}
	uid := store.Insert(item)

	_, err := engine.PickupDroppedItem(uid, 42, model.NewPosition(1000, 1000, 0, 0))
	assert.Error(t, err)
}

func TestPickupDroppedItemUnknownFails(t *testing.T) {
	engine, _, _, _, _ := newEngine()
	_, err := engine.PickupDroppedItem(404, 42, model.Position{})
	assert.Error(t, err)
}

func TestCleanupOldDroppedItemsSweepsStale(t *testing.T) {
	engine, _, store, _, _ := newEngine()
	item := &model.DroppedItem{ItemID: 1, Quantity: 1, DropTimeMs: 0, CanBePickedUp: true}
	uid := store.Insert(item)

	removed := engine.CleanupOldDroppedItems(400_000, 300_000)
	assert.Contains(t, removed, uid)
}
