package registry

import (
	"fmt"
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// CharacterRegistry holds every joined Character, keyed by characterId.
type CharacterRegistry struct {
	mu   sync.RWMutex
	byID map[int64]*model.Character
}

// NewCharacterRegistry creates an empty CharacterRegistry.
func NewCharacterRegistry() *CharacterRegistry {
	return &CharacterRegistry{byID: make(map[int64]*model.Character)}
}

// Upsert inserts or replaces a character in place (idempotent by id).
func (r *CharacterRegistry) Upsert(c *model.Character) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.CharacterID] = c
}

// Remove deletes a character by id.
func (r *CharacterRegistry) Remove(characterID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, characterID)
}

// Get returns a deep copy of the character, or (nil, false).
func (r *CharacterRegistry) Get(characterID int64) (*model.Character, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[characterID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// All returns a deep copy of every character.
func (r *CharacterRegistry) All() []*model.Character {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Character, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c.Clone())
	}
	return out
}

// Mutate loads the character, applies fn to an owned copy, and writes it
// back atomically under the write lock. This is the only way callers should
// perform read-modify-write updates (position, health, mana, exp, level),
// avoiding a lost-update race between two handlers touching the same
// character concurrently.
func (r *CharacterRegistry) Mutate(characterID int64, fn func(c *model.Character)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[characterID]
	if !ok {
		return fmt.Errorf("registry: character %d not found", characterID)
	}
	owned := c.Clone()
	fn(owned)
	r.byID[characterID] = owned
	return nil
}
