package dispatch

import "github.com/StoreStation/chunkserver/internal/model"

// wireEventTypes maps the eventType string clients put on the wire (section
// 6 of the protocol: joinGameClient, moveCharacter, ...) to the internal
// model.EventKind the rest of the simulation switches on. Upstream
// replication frames never go through this table: internal/upstream maps
// their eventType to a model.EventKind itself.
var wireEventTypes = map[string]model.EventKind{
	"joinGameClient":         model.EventJoinClient,
	"joinGameCharacter":      model.EventJoinCharacter,
	"moveCharacter":          model.EventMoveCharacter,
	"disconnectClient":       model.EventDisconnectClient,
	"pingClient":             model.EventPingClient,
	"getSpawnZones":          model.EventGetSpawnZones,
	"getConnectedCharacters": model.EventGetConnectedClients,
	"playerAttack":           model.EventPlayerAttack,
	"interruptAction":        model.EventInterruptAction,
	"pickupDroppedItem":      model.EventItemPickup,
	"getNearbyItems":         model.EventGetNearbyItems,
	"getPlayerInventory":     model.EventGetPlayerInventory,
	"harvestStart":           model.EventHarvestStartRequest,
	"harvestCancel":          model.EventHarvestCancelled,
	"getNearbyCorpses":       model.EventGetNearbyCorpses,
	"corpseLootPickup":       model.EventCorpseLootPickup,
	"corpseLootInspect":      model.EventCorpseLootInspect,
}

// kindForWireType resolves a client-supplied eventType to its model.EventKind.
// Upstream frames bypass this: internal/upstream constructs model.Event
// values with the replication EventKind set directly.
func kindForWireType(eventType string) (model.EventKind, bool) {
	kind, ok := wireEventTypes[eventType]
	return kind, ok
}
