package registry

import (
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// InventoryNotifier is implemented by whatever wants to know about every
// inventory mutation — every inventory mutation fires an INVENTORY_UPDATE event to
// add/remove so downstream components (e.g. HarvestEngine) don't need to
// push to clients themselves.
type InventoryNotifier interface {
	NotifyInventoryUpdate(characterID int64, entries []model.InventoryEntry)
}

// InventoryStore holds each character's inventory as an ordered, itemId-unique
// list of stacks.
type InventoryStore struct {
	mu       sync.RWMutex
	byOwner  map[int64][]model.InventoryEntry
	notifier InventoryNotifier
}

// NewInventoryStore creates an empty InventoryStore. notifier may be nil
// until wired (see services.GameServices), in which case mutations are
// silent.
func NewInventoryStore(notifier InventoryNotifier) *InventoryStore {
	return &InventoryStore{
		byOwner:  make(map[int64][]model.InventoryEntry),
		notifier: notifier,
	}
}

// SetNotifier wires the notifier after construction, breaking the
// construction-order cycle between InventoryStore and the engines that both
// produce and consume inventory events.
func (s *InventoryStore) SetNotifier(n InventoryNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Add merges qty of itemId into characterId's inventory, creating a new
// stack if none exists yet.
func (s *InventoryStore) Add(characterID, itemID int64, qty int32) {
	s.mu.Lock()
	entries := s.byOwner[characterID]
	found := false
	for i := range entries {
		if entries[i].ItemID == itemID {
			entries[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, model.InventoryEntry{ItemID: itemID, Quantity: qty})
	}
	s.byOwner[characterID] = entries
	snapshot := cloneEntries(entries)
	notifier := s.notifier
	s.mu.Unlock()

	if notifier != nil {
		notifier.NotifyInventoryUpdate(characterID, snapshot)
	}
}

// Remove decrements qty from itemId's stack, erasing the stack entirely once
// it reaches zero. Returns false if the character has no such stack or it
// holds fewer than qty.
func (s *InventoryStore) Remove(characterID, itemID int64, qty int32) bool {
	s.mu.Lock()
	entries := s.byOwner[characterID]
	ok := false
	for i := range entries {
		if entries[i].ItemID == itemID && entries[i].Quantity >= qty {
			entries[i].Quantity -= qty
			if entries[i].Quantity == 0 {
				entries = append(entries[:i], entries[i+1:]...)
			}
			ok = true
			break
		}
	}
	if ok {
		s.byOwner[characterID] = entries
	}
	snapshot := cloneEntries(entries)
	notifier := s.notifier
	s.mu.Unlock()

	if ok && notifier != nil {
		notifier.NotifyInventoryUpdate(characterID, snapshot)
	}
	return ok
}

// Has reports whether characterID holds at least qty of itemID.
func (s *InventoryStore) Has(characterID, itemID int64, qty int32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.byOwner[characterID] {
		if e.ItemID == itemID {
			return e.Quantity >= qty
		}
	}
	return false
}

// Quantity returns how much of itemID characterID currently holds.
func (s *InventoryStore) Quantity(characterID, itemID int64) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.byOwner[characterID] {
		if e.ItemID == itemID {
			return e.Quantity
		}
	}
	return 0
}

// List returns a copy of characterID's full inventory.
func (s *InventoryStore) List(characterID int64) []model.InventoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.byOwner[characterID])
}

func cloneEntries(entries []model.InventoryEntry) []model.InventoryEntry {
	out := make([]model.InventoryEntry, len(entries))
	copy(out, entries)
	return out
}
