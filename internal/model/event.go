package model

// EventKind discriminates the typed events flowing through the ingress,
// ping, and upstream queues. Handlers switch on this value; it is never
// used for anything but routing.
type EventKind string

const (
	EventJoinClient          EventKind = "JOIN_CLIENT"
	EventJoinCharacter       EventKind = "JOIN_CHARACTER"
	EventMoveCharacter       EventKind = "MOVE_CHARACTER"
	EventPingClient          EventKind = "PING_CLIENT"
	EventDisconnectClient    EventKind = "DISCONNECT_CLIENT"
	EventSpawnMobsInZone     EventKind = "SPAWN_MOBS_IN_ZONE"
	EventMobsMoved           EventKind = "MOBS_MOVED"
	EventGetConnectedClients EventKind = "GET_CONNECTED_CLIENTS"
	EventPlayerAttack        EventKind = "PLAYER_ATTACK"
	EventInterruptAction     EventKind = "INTERRUPT_COMBAT_ACTION"
	EventHarvestStartRequest EventKind = "HARVEST_START_REQUEST"
	EventHarvestCancelled    EventKind = "HARVEST_CANCELLED"
	EventHarvestComplete     EventKind = "HARVEST_COMPLETE"
	EventGetNearbyCorpses    EventKind = "GET_NEARBY_CORPSES"
	EventCorpseLootPickup    EventKind = "CORPSE_LOOT_PICKUP"
	EventCorpseLootInspect   EventKind = "CORPSE_LOOT_INSPECT"
	EventItemPickup          EventKind = "ITEM_PICKUP"
	EventGetNearbyItems      EventKind = "GET_NEARBY_ITEMS"
	EventGetPlayerInventory  EventKind = "GET_PLAYER_INVENTORY"
	EventGetSpawnZones       EventKind = "GET_SPAWN_ZONES"
	EventItemDrop            EventKind = "ITEM_DROP"
	EventInventoryUpdate     EventKind = "INVENTORY_UPDATE"

	// Upstream replication events.
	EventSetChunkData           EventKind = "SET_CHUNK_DATA"
	EventSetCharacterData       EventKind = "SET_CHARACTER_DATA"
	EventSetCharacterAttributes EventKind = "SET_CHARACTER_ATTRIBUTES"
	EventSetAllSpawnZones       EventKind = "SET_ALL_SPAWN_ZONES"
	EventSetAllMobsList         EventKind = "SET_ALL_MOBS_LIST"
	EventSetAllMobsAttributes   EventKind = "SET_ALL_MOBS_ATTRIBUTES"
	EventSetAllMobsSkills       EventKind = "SET_ALL_MOBS_SKILLS"
	EventSetAllItemsList        EventKind = "SET_ALL_ITEMS_LIST"
	EventSetMobLootInfo         EventKind = "SET_MOB_LOOT_INFO"
	EventSetExpLevelTable       EventKind = "SET_EXP_LEVEL_TABLE"
)

// Event is the unit of work carried by an EventQueue. Payload is the typed,
// already-parsed body; it never holds a Socket — handlers re-resolve the
// socket from ClientRegistry by ClientID.
type Event struct {
	Kind      EventKind
	ClientID  int64
	RequestID string

	// ClientSendMs is the originating client's send timestamp, echoed back
	// on responses that answer this event. Zero when not supplied (e.g.
	// upstream-originated events).
	ClientSendMs int64

	// ServerRecvMs is stamped once per frame by the dispatcher at the
	// ingress boundary, not re-sampled per response, so every reply to the
	// same event shares one receive timestamp.
	ServerRecvMs int64

	Payload any
}
