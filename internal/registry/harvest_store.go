package registry

import (
	"errors"
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// DefaultHarvestInteractionRadius is the fallback interactionRadius for a
// corpse that didn't get one from the mob template. Distinct from, and
// deliberately not unified with, LootPickupRadius — see its doc comment.
const DefaultHarvestInteractionRadius = 150

// DefaultHarvestDurationMs is how long a harvest session runs before
// completing, absent any per-mob override.
const DefaultHarvestDurationMs = 3000

// DefaultHarvestMaxMoveDistance is how far a harvester may move from its
// start position before the session would be considered abandoned.
const DefaultHarvestMaxMoveDistance = 50

// HarvestStore holds corpses and the at-most-one-per-character harvest
// sessions against them, under a single lock so the exclusivity invariants
// (one active harvester per corpse, one active session per character) are
// always checked and updated atomically.
type HarvestStore struct {
	mu       sync.RWMutex
	corpses  map[int64]*model.Corpse         // mobUID -> corpse
	sessions map[int64]*model.HarvestSession // characterID -> session
}

// NewHarvestStore creates an empty HarvestStore.
func NewHarvestStore() *HarvestStore {
	return &HarvestStore{
		corpses:  make(map[int64]*model.Corpse),
		sessions: make(map[int64]*model.HarvestSession),
	}
}

// CreateCorpse registers a new harvestable corpse on mob death.
func (s *HarvestStore) CreateCorpse(c *model.Corpse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpses[c.MobUID] = c
}

// Corpse returns a deep copy of the corpse, or (nil, false).
func (s *HarvestStore) Corpse(mobUID int64) (*model.Corpse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corpses[mobUID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Near returns deep copies of every corpse within radius of pos.
func (s *HarvestStore) Near(pos model.Position, radius float64) []*model.Corpse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Corpse
	for _, c := range s.corpses {
		if pos.DistanceXY(c.Position) <= radius {
			out = append(out, c.Clone())
		}
	}
	return out
}

// StartHarvest atomically validates and claims a corpse for characterId,
// enforcing: the corpse exists and is not already harvested, no other
// character already holds it, and this character has no other active
// session. On success it creates and stores the session and returns it.
func (s *HarvestStore) StartHarvest(characterID, corpseUID int64, playerPos model.Position, nowMs int64) (*model.HarvestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	corpse, ok := s.corpses[corpseUID]
	if !ok {
		return nil, errors.New(model.ErrorCodeCorpseNotFound)
	}
	if corpse.HasBeenHarvested {
		return nil, errors.New(model.ErrorCodeCorpseNotAvailable)
	}
	radius := corpse.InteractionRadius
	if radius <= 0 {
		radius = DefaultHarvestInteractionRadius
	}
	if playerPos.DistanceXY(corpse.Position) > radius {
		return nil, errors.New(model.ErrorCodeHarvestFailed)
	}
	if corpse.CurrentHarvesterCharacterID != 0 && corpse.CurrentHarvesterCharacterID != characterID {
		return nil, errors.New(model.ErrorCodeCorpseNotAvailable)
	}
	if existing, ok := s.sessions[characterID]; ok && existing.IsActive {
		return nil, errors.New(model.ErrorCodeHarvestFailed)
	}

	corpse.CurrentHarvesterCharacterID = characterID
	session := &model.HarvestSession{
		CharacterID:     characterID,
		CorpseUID:       corpseUID,
		StartTimeMs:     nowMs,
		DurationMs:      DefaultHarvestDurationMs,
		StartPosition:   playerPos,
		MaxMoveDistance: DefaultHarvestMaxMoveDistance,
		IsActive:        true,
	}
	s.sessions[characterID] = session
	return session.Clone(), nil
}

// CancelHarvest ends characterId's active session, if any, clearing the
// corpse's claim without marking it harvested. Returns the corpse uid that
// was released, if there was a session to cancel.
func (s *HarvestStore) CancelHarvest(characterID int64) (corpseUID int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[characterID]
	if !ok {
		return 0, false
	}
	if corpse, ok := s.corpses[session.CorpseUID]; ok && corpse.CurrentHarvesterCharacterID == characterID {
		corpse.CurrentHarvesterCharacterID = 0
	}
	delete(s.sessions, characterID)
	return session.CorpseUID, true
}

// Session returns a deep copy of characterID's active harvest session, if
// any.
func (s *HarvestStore) Session(characterID int64) (*model.HarvestSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[characterID]
	if !ok {
		return nil, false
	}
	return session.Clone(), true
}

// DueSessions returns deep copies of every active session whose duration has
// elapsed as of nowMs, for the harvest-progress tick to complete.
func (s *HarvestStore) DueSessions(nowMs int64) []*model.HarvestSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.HarvestSession
	for _, session := range s.sessions {
		if session.IsActive && nowMs-session.StartTimeMs >= session.DurationMs {
			out = append(out, session.Clone())
		}
	}
	return out
}

// CompleteHarvest rolls the corpse into its harvested state: marks it
// harvested, records the harvester, clears the active claim, attaches the
// rolled loot, and removes the session. Returns the final corpse state.
func (s *HarvestStore) CompleteHarvest(characterID, corpseUID int64, loot []model.InventoryEntry) (*model.Corpse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	corpse, ok := s.corpses[corpseUID]
	if !ok {
		return nil, errors.New(model.ErrorCodeCorpseNotFound)
	}
	corpse.HasBeenHarvested = true
	corpse.HarvestedByCharacterID = characterID
	corpse.CurrentHarvesterCharacterID = 0
	corpse.AvailableLoot = append(corpse.AvailableLoot, loot...)
	delete(s.sessions, characterID)
	return corpse.Clone(), nil
}

// PickupLoot validates ownership and range, then debits qty of itemID from
// the corpse's available loot, clamping to what's actually available.
// Returns the quantity actually removed.
func (s *HarvestStore) PickupLoot(characterID, corpseUID, itemID int64, qty int32, playerPos model.Position) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	corpse, ok := s.corpses[corpseUID]
	if !ok {
		return 0, errors.New(model.ErrorCodeCorpseNotFound)
	}
	if !corpse.HasBeenHarvested {
		return 0, errors.New(model.ErrorCodeCorpseNotHarvested)
	}
	if corpse.HarvestedByCharacterID != characterID {
		return 0, errors.New(model.ErrorCodeNotYourHarvest)
	}
	radius := corpse.InteractionRadius
	if radius <= 0 {
		radius = DefaultHarvestInteractionRadius
	}
	if playerPos.DistanceXY(corpse.Position) > radius {
		return 0, errors.New(model.ErrorCodeHarvestFailed)
	}

	for i := range corpse.AvailableLoot {
		if corpse.AvailableLoot[i].ItemID != itemID {
			continue
		}
		take := qty
		if take > corpse.AvailableLoot[i].Quantity {
			take = corpse.AvailableLoot[i].Quantity
		}
		corpse.AvailableLoot[i].Quantity -= take
		if corpse.AvailableLoot[i].Quantity == 0 {
			corpse.AvailableLoot = append(corpse.AvailableLoot[:i], corpse.AvailableLoot[i+1:]...)
		}
		return take, nil
	}
	return 0, errors.New(model.ErrorCodePickupFailed)
}

// CleanupOldCorpses removes every corpse older than maxAgeMs relative to
// nowMs, along with any loot it still carries.
func (s *HarvestStore) CleanupOldCorpses(nowMs, maxAgeMs int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []int64
	for uid, c := range s.corpses {
		if nowMs-c.DeathTimeMs > maxAgeMs {
			removed = append(removed, uid)
			delete(s.corpses, uid)
		}
	}
	return removed
}
