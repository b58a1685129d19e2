package registry

import (
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// ItemRegistry holds the immutable item catalog and per-mob loot tables
// (mobId → [{itemId, dropChance}]), both replicated from upstream.
type ItemRegistry struct {
	mu        sync.RWMutex
	templates map[int64]*model.ItemTemplate
	lootTable map[int64][]model.LootTableEntry
}

// NewItemRegistry creates an empty ItemRegistry.
func NewItemRegistry() *ItemRegistry {
	return &ItemRegistry{
		templates: make(map[int64]*model.ItemTemplate),
		lootTable: make(map[int64][]model.LootTableEntry),
	}
}

// ReplaceAllTemplates swaps the entire item catalog (SET_ALL_ITEMS_LIST).
func (r *ItemRegistry) ReplaceAllTemplates(items []*model.ItemTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = make(map[int64]*model.ItemTemplate, len(items))
	for _, it := range items {
		r.templates[it.ID] = it
	}
}

// SetMobLootInfo replaces the loot table for a single mob (SET_MOB_LOOT_INFO).
func (r *ItemRegistry) SetMobLootInfo(mobID int64, entries []model.LootTableEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]model.LootTableEntry, len(entries))
	copy(cp, entries)
	r.lootTable[mobID] = cp
}

// Template returns a deep copy of the item template, or (nil, false).
func (r *ItemRegistry) Template(itemID int64) (*model.ItemTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[itemID]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// LootTable returns a copy of the mob's full loot table.
func (r *ItemRegistry) LootTable(mobID int64) []model.LootTableEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := r.lootTable[mobID]
	out := make([]model.LootTableEntry, len(entries))
	copy(out, entries)
	return out
}

// HarvestLootTable returns only the loot-table rows whose item template has
// IsHarvest set, used by the harvest completion handler.
func (r *ItemRegistry) HarvestLootTable(mobID int64) []model.LootTableEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.LootTableEntry
	for _, e := range r.lootTable[mobID] {
		if t, ok := r.templates[e.ItemID]; ok && t.IsHarvest {
			out = append(out, e)
		}
	}
	return out
}

// NonHarvestLootTable returns only the loot-table rows whose item template
// does not have IsHarvest set, used by LootStore on mob death.
func (r *ItemRegistry) NonHarvestLootTable(mobID int64) []model.LootTableEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.LootTableEntry
	for _, e := range r.lootTable[mobID] {
		if t, ok := r.templates[e.ItemID]; ok && !t.IsHarvest {
			out = append(out, e)
		}
	}
	return out
}
