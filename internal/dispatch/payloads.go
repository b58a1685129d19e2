package dispatch

import "github.com/StoreStation/chunkserver/internal/model"

// The structs below are the typed request bodies decoded out of
// protocol.Envelope by decodePayload. Field tags follow the same lowerCamel
// wire convention as protocol.Header.

// JoinClientPayload is joinGameClient's body. CharacterID is optional: per
// the body-wins rule (see EventHandler.handleJoinClient), a non-zero value
// here overrides whatever characterId the client registration already
// carries.
type JoinClientPayload struct {
	CharacterID int64 `json:"id"`
}

// JoinCharacterPayload is joinGameCharacter's body: attach the sending
// client to an already-replicated character and plant its initial position.
type JoinCharacterPayload struct {
	CharacterID int64   `json:"id"`
	PosX        float64 `json:"posX"`
	PosY        float64 `json:"posY"`
	PosZ        float64 `json:"posZ"`
	RotZ        float64 `json:"rotZ"`
}

// MoveCharacterPayload is moveCharacter's body.
type MoveCharacterPayload struct {
	CharacterID int64   `json:"id"`
	PosX        float64 `json:"posX"`
	PosY        float64 `json:"posY"`
	PosZ        float64 `json:"posZ"`
	RotZ        float64 `json:"rotZ"`
}

// PlayerAttackPayload is playerAttack's body: a skill-use request. Melee
// auto-attack and skill casts share this one shape. It has no caster field:
// the caster is the client's joined character. Mob AI attacks do not use
// this payload; they go through combat.SkillEngine.AIAttack directly.
type PlayerAttackPayload struct {
	SkillSlug  string           `json:"skillSlug"`
	TargetID   int64            `json:"targetId"`
	TargetType model.TargetType `json:"targetType"`
}

// InterruptActionPayload is interruptAction's body.
type InterruptActionPayload struct {
	Reason model.InterruptReason `json:"reason"`
}

// HarvestStartPayload is harvestStart's body.
type HarvestStartPayload struct {
	CorpseUID int64   `json:"corpseUid"`
	PosX      float64 `json:"posX"`
	PosY      float64 `json:"posY"`
	PosZ      float64 `json:"posZ"`
}

// NearbyQueryPayload backs getNearbyCorpses/getNearbyItems: a position plus
// search radius, radius defaulting to defaultNearbyRadius when omitted.
type NearbyQueryPayload struct {
	PosX   float64 `json:"posX"`
	PosY   float64 `json:"posY"`
	PosZ   float64 `json:"posZ"`
	Radius float64 `json:"radius"`
}

const defaultNearbyRadius = 200

// LootItemRequest is one {itemId, quantity} line item inside a
// corpseLootPickup request.
type LootItemRequest struct {
	ItemID   int64 `json:"itemId"`
	Quantity int32 `json:"quantity"`
}

// CorpseLootPickupPayload is corpseLootPickup's body.
type CorpseLootPickupPayload struct {
	CorpseUID int64             `json:"corpseUid"`
	Items     []LootItemRequest `json:"items"`
	PosX      float64           `json:"posX"`
	PosY      float64           `json:"posY"`
	PosZ      float64           `json:"posZ"`
}

// CorpseLootInspectPayload is corpseLootInspect's body.
type CorpseLootInspectPayload struct {
	CorpseUID int64 `json:"corpseUid"`
}

// ItemPickupPayload is pickupDroppedItem's body.
type ItemPickupPayload struct {
	ItemUID int64   `json:"itemUid"`
	PosX    float64 `json:"posX"`
	PosY    float64 `json:"posY"`
	PosZ    float64 `json:"posZ"`
}

// SpawnBroadcastPayload is how the scheduler's spawn tick hands its result
// back through the dispatch queue for broadcasting, rather than poking
// sockets directly from the scheduler goroutine.
type SpawnBroadcastPayload struct {
	ZoneID  int64
	Spawned []*model.MobInstance
}

// MovementBroadcastPayload is the scheduler's movement tick result, routed
// the same way as SpawnBroadcastPayload.
type MovementBroadcastPayload struct {
	ZoneID  int64
	Changed []*model.MobInstance
}

// Upstream replication payloads. internal/upstream decodes each
// SET_* frame's body into one of these and constructs the matching
// model.Event; EventHandler applies them straight to the registries.

type CharacterAttributesPayload struct {
	CharacterID int64            `json:"characterId"`
	Attributes  map[string]int32 `json:"attributes"`
}

type MobAttributesPayload struct {
	MobID      int64            `json:"mobId"`
	Attributes map[string]int32 `json:"attributes"`
}

type MobSkillsPayload struct {
	MobID  int64                    `json:"mobId"`
	Skills map[string]model.Skill   `json:"skills"`
}

type MobLootInfoPayload struct {
	MobID   int64                    `json:"mobId"`
	Entries []model.LootTableEntry   `json:"entries"`
}
