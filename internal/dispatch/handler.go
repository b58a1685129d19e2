package dispatch

import (
	"log/slog"

	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/protocol"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/sim/combat"
	"github.com/StoreStation/chunkserver/internal/sim/experience"
	"github.com/StoreStation/chunkserver/internal/sim/harvest"
	"github.com/StoreStation/chunkserver/internal/sim/loot"
)

// EventHandler is the single dispatch(event) entry point. Several ingress
// worker goroutines and one ping worker call HandleEvent concurrently; it
// takes no lock of its own and relies on each registry it drives guarding
// its own state.
//
// EventHandler also implements every sim engine's Sink/Notifier interface
// (combat.EventSink, harvest.Sink, loot.Sink, experience.Sink,
// registry.InventoryNotifier), turning their callbacks into protocol
// broadcasts. Those calls arrive on whatever goroutine the triggering
// engine call runs on — an ingress worker (for client-driven actions) or
// the scheduler goroutine (for ticks) — and may run concurrently with one
// another; Session.Send is safe for concurrent callers.
type EventHandler struct {
	clients      *registry.ClientRegistry
	characters   *registry.CharacterRegistry
	chunks       *registry.ChunkRegistry
	mobTemplates *registry.MobTemplateRegistry
	mobs         *registry.MobInstanceRegistry
	zones        *registry.SpawnZoneRegistry
	items        *registry.ItemRegistry
	inventory    *registry.InventoryStore
	lootStore    *registry.LootStore
	harvestStore *registry.HarvestStore
	expTable     *registry.ExperienceTableCache

	skills  *combat.SkillEngine
	harvest *harvest.Engine
	loot    *loot.Engine
	exp     *experience.Engine

	responses protocol.ResponseBuilder
	clock     idgen.Clock
	log       *slog.Logger
}

// Deps bundles everything EventHandler needs, mirroring the construction
// order design notes lay out: registries first, then the engines built on
// top of them.
type Deps struct {
	Clients      *registry.ClientRegistry
	Characters   *registry.CharacterRegistry
	Chunks       *registry.ChunkRegistry
	MobTemplates *registry.MobTemplateRegistry
	Mobs         *registry.MobInstanceRegistry
	Zones        *registry.SpawnZoneRegistry
	Items        *registry.ItemRegistry
	Inventory    *registry.InventoryStore
	LootStore    *registry.LootStore
	HarvestStore *registry.HarvestStore
	ExpTable     *registry.ExperienceTableCache

	Skills     *combat.SkillEngine
	Harvest    *harvest.Engine
	Loot       *loot.Engine
	Experience *experience.Engine

	Clock idgen.Clock
	Log   *slog.Logger
}

// NewEventHandler builds an EventHandler from deps. It does not wire itself
// as a Sink on any engine — the caller does that explicitly (typically
// internal/services), since an engine wired to a half-constructed handler
// is a harder bug to track down than a missing SetSink call.
func NewEventHandler(d Deps) *EventHandler {
	clock := d.Clock
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	log := d.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &EventHandler{
		clients:      d.Clients,
		characters:   d.Characters,
		chunks:       d.Chunks,
		mobTemplates: d.MobTemplates,
		mobs:         d.Mobs,
		zones:        d.Zones,
		items:        d.Items,
		inventory:    d.Inventory,
		lootStore:    d.LootStore,
		harvestStore: d.HarvestStore,
		expTable:     d.ExpTable,
		skills:       d.Skills,
		harvest:      d.Harvest,
		loot:         d.Loot,
		exp:          d.Experience,
		responses:    protocol.NewResponseBuilder(),
		clock:        clock,
		log:          log,
	}
}

// HandleEvent is the switch every queued event passes through. A panic in
// any one handler is caught and logged so one bad event can never kill the
// worker goroutine draining the queue.
func (h *EventHandler) HandleEvent(e model.Event) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("dispatch: handler panicked, event dropped", "kind", e.Kind, "clientId", e.ClientID, "panic", r)
		}
	}()

	switch e.Kind {
	case model.EventJoinClient:
		h.handleJoinClient(e)
	case model.EventJoinCharacter:
		h.handleJoinCharacter(e)
	case model.EventMoveCharacter:
		h.handleMoveCharacter(e)
	case model.EventDisconnectClient:
		h.handleDisconnectClient(e)
	case model.EventPingClient:
		h.handlePing(e)
	case model.EventGetSpawnZones:
		h.handleGetSpawnZones(e)
	case model.EventGetConnectedClients:
		h.handleGetConnectedClients(e)
	case model.EventPlayerAttack:
		h.handlePlayerAttack(e)
	case model.EventInterruptAction:
		h.handleInterruptAction(e)
	case model.EventHarvestStartRequest:
		h.handleHarvestStart(e)
	case model.EventHarvestCancelled:
		h.handleHarvestCancel(e)
	case model.EventGetNearbyCorpses:
		h.handleGetNearbyCorpses(e)
	case model.EventCorpseLootPickup:
		h.handleCorpseLootPickup(e)
	case model.EventCorpseLootInspect:
		h.handleCorpseLootInspect(e)
	case model.EventItemPickup:
		h.handleItemPickup(e)
	case model.EventGetNearbyItems:
		h.handleGetNearbyItems(e)
	case model.EventGetPlayerInventory:
		h.handleGetPlayerInventory(e)
	case model.EventSpawnMobsInZone:
		h.handleSpawnBroadcast(e)
	case model.EventMobsMoved:
		h.handleMobsMoved(e)
	case model.EventSetChunkData:
		h.handleSetChunkData(e)
	case model.EventSetCharacterData:
		h.handleSetCharacterData(e)
	case model.EventSetCharacterAttributes:
		h.handleSetCharacterAttributes(e)
	case model.EventSetAllSpawnZones:
		h.handleSetAllSpawnZones(e)
	case model.EventSetAllMobsList:
		h.handleSetAllMobsList(e)
	case model.EventSetAllMobsAttributes:
		h.handleSetAllMobsAttributes(e)
	case model.EventSetAllMobsSkills:
		h.handleSetAllMobsSkills(e)
	case model.EventSetAllItemsList:
		h.handleSetAllItemsList(e)
	case model.EventSetMobLootInfo:
		h.handleSetMobLootInfo(e)
	case model.EventSetExpLevelTable:
		h.handleSetExpLevelTable(e)
	default:
		h.log.Debug("dispatch: no handler for event kind", "kind", e.Kind)
	}
}

func reqContext(e model.Event) protocol.RequestContext {
	return protocol.RequestContext{
		ClientID:     e.ClientID,
		RequestID:    e.RequestID,
		ClientSendMs: e.ClientSendMs,
		ServerRecvMs: e.ServerRecvMs,
	}
}

func (h *EventHandler) respond(clientID int64, eventType string, req protocol.RequestContext, body any) {
	client, ok := h.clients.Get(clientID)
	if !ok || !client.Socket().IsOpen() {
		return
	}
	line, err := h.responses.Success(eventType, req, body, h.clock.NowMs())
	if err != nil {
		h.log.Error("dispatch: marshal success response failed", "eventType", eventType, "error", err)
		return
	}
	if err := client.Socket().Send(line); err != nil {
		h.log.Debug("dispatch: send failed", "clientId", clientID, "error", err)
	}
}

func (h *EventHandler) respondError(clientID int64, eventType string, req protocol.RequestContext, code, message string) {
	client, ok := h.clients.Get(clientID)
	if !ok || !client.Socket().IsOpen() {
		return
	}
	line, err := h.responses.Error(eventType, req, code, message, h.clock.NowMs())
	if err != nil {
		h.log.Error("dispatch: marshal error response failed", "eventType", eventType, "error", err)
		return
	}
	if err := client.Socket().Send(line); err != nil {
		h.log.Debug("dispatch: send failed", "clientId", clientID, "error", err)
	}
}

// broadcast fans a line out to every currently-open client session. Used
// both directly (moveCharacter) and by the Sink implementations below.
func (h *EventHandler) broadcast(eventType string, body any) {
	line, err := h.responses.Broadcast(eventType, body, h.clock.NowMs())
	if err != nil {
		h.log.Error("dispatch: marshal broadcast failed", "eventType", eventType, "error", err)
		return
	}
	for _, c := range h.clients.All() {
		if c.Socket().IsOpen() {
			_ = c.Socket().Send(line)
		}
	}
}

// unicastToCharacter resolves characterID's owning client (if any, if
// joined) and sends it a single push line — used for events that belong to
// one player only (inventory updates, skill initialization) rather than a
// true fan-out broadcast.
func (h *EventHandler) unicastToCharacter(characterID int64, eventType string, body any) {
	char, ok := h.characters.Get(characterID)
	if !ok || char.ClientID == 0 {
		return
	}
	client, ok := h.clients.Get(char.ClientID)
	if !ok || !client.Socket().IsOpen() {
		return
	}
	line, err := h.responses.Broadcast(eventType, body, h.clock.NowMs())
	if err != nil {
		h.log.Error("dispatch: marshal unicast push failed", "eventType", eventType, "error", err)
		return
	}
	_ = client.Socket().Send(line)
}

// ---- client-facing handlers ----

// handleJoinClient processes joinGameClient. The socket itself was already
// registered by EventDispatcher (the only place that still has it in hand);
// this just resolves the characterId, preferring the body's id over
// whatever the registration already carries.
func (h *EventHandler) handleJoinClient(e model.Event) {
	payload, _ := e.Payload.(JoinClientPayload)
	client, ok := h.clients.Get(e.ClientID)
	if !ok {
		h.log.Warn("dispatch: joinGameClient for unregistered client", "clientId", e.ClientID)
		return
	}

	characterID := client.CharacterID()
	if payload.CharacterID != 0 {
		characterID = payload.CharacterID
	}
	if characterID != 0 {
		if err := h.clients.SetCharacterID(e.ClientID, characterID); err != nil {
			h.log.Warn("dispatch: joinGameClient set characterId failed", "clientId", e.ClientID, "error", err)
		}
	}

	h.respond(e.ClientID, "joinGameClient", reqContext(e), map[string]any{
		"clientId":    e.ClientID,
		"characterId": characterID,
	})
}

// handleJoinCharacter processes joinGameCharacter: attaches the client to an
// already-replicated character (characters arrive via SET_CHARACTER_DATA
// upstream, not created here) and plants its initial position.
func (h *EventHandler) handleJoinCharacter(e model.Event) {
	payload, _ := e.Payload.(JoinCharacterPayload)
	if _, ok := h.characters.Get(payload.CharacterID); !ok {
		h.respondError(e.ClientID, "joinGameCharacter", reqContext(e), model.ErrorCodeNotFound, "character not found")
		return
	}

	pos := model.NewPosition(payload.PosX, payload.PosY, payload.PosZ, payload.RotZ)
	var skills map[string]model.Skill
	err := h.characters.Mutate(payload.CharacterID, func(c *model.Character) {
		c.ClientID = e.ClientID
		c.Position = pos
		skills = c.Skills
	})
	if err != nil {
		h.respondError(e.ClientID, "joinGameCharacter", reqContext(e), model.ErrorCodeNotFound, "character not found")
		return
	}
	if err := h.clients.SetCharacterID(e.ClientID, payload.CharacterID); err != nil {
		h.log.Warn("dispatch: joinGameCharacter set characterId failed", "clientId", e.ClientID, "error", err)
	}

	h.respond(e.ClientID, "joinGameCharacter", reqContext(e), map[string]any{
		"characterId": payload.CharacterID,
		"position":    pos,
	})
	h.unicastToCharacter(payload.CharacterID, "initializePlayerSkills", map[string]any{
		"characterId": payload.CharacterID,
		"skills":      skills,
	})
}

// handleMoveCharacter processes moveCharacter.
func (h *EventHandler) handleMoveCharacter(e model.Event) {
	payload, _ := e.Payload.(MoveCharacterPayload)
	pos := model.NewPosition(payload.PosX, payload.PosY, payload.PosZ, payload.RotZ)
	if err := h.characters.Mutate(payload.CharacterID, func(c *model.Character) { c.Position = pos }); err != nil {
		h.respondError(e.ClientID, "moveCharacter", reqContext(e), model.ErrorCodeNotFound, "character not found")
		return
	}

	body := map[string]any{"characterId": payload.CharacterID, "position": pos}
	h.respond(e.ClientID, "moveCharacter", reqContext(e), body)
	h.broadcast("moveCharacter", body)
}

// handlePing answers pingClient. Pings reach it from the ping queue, which
// the transport layer's fast path (DispatchPing) feeds.
func (h *EventHandler) handlePing(e model.Event) {
	h.respond(e.ClientID, "pingClient", reqContext(e), struct{}{})
}

// handleDisconnectClient processes DISCONNECT_CLIENT: the socket is already
// gone by the time this runs, so the only cleanup left is detaching the
// character that was controlling it, preserving the invariant that a live
// character's clientId (if non-zero) always resolves in ClientRegistry.
func (h *EventHandler) handleDisconnectClient(e model.Event) {
	for _, c := range h.characters.All() {
		if c.ClientID != e.ClientID {
			continue
		}
		characterID := c.CharacterID
		if err := h.characters.Mutate(characterID, func(ch *model.Character) { ch.ClientID = 0 }); err != nil {
			h.log.Warn("dispatch: disconnect cleanup failed", "characterId", characterID, "error", err)
		}
		h.skills.InterruptSkill(characterID, model.InterruptPlayerCancelled)
		h.harvest.CancelHarvest(characterID)
		break
	}
}

func (h *EventHandler) handleGetSpawnZones(e model.Event) {
	h.respond(e.ClientID, "getSpawnZones", reqContext(e), map[string]any{"zones": h.zones.All()})
}

func (h *EventHandler) handleGetConnectedClients(e model.Event) {
	clients := h.clients.All()
	summaries := make([]map[string]any, 0, len(clients))
	for _, c := range clients {
		summaries = append(summaries, map[string]any{
			"clientId":    c.ClientID(),
			"characterId": c.CharacterID(),
		})
	}
	h.respond(e.ClientID, "getConnectedCharacters", reqContext(e), map[string]any{"clients": summaries})
}

// handlePlayerAttack processes playerAttack. The actual cast/cooldown state
// machine lives in combat.SkillEngine; this just resolves the casterId and
// turns the outcome into a response — the InitiationBroadcast fan-out
// happens independently via the EventSink wiring.
func (h *EventHandler) handlePlayerAttack(e model.Event) {
	payload, _ := e.Payload.(PlayerAttackPayload)
	client, ok := h.clients.Get(e.ClientID)
	if !ok {
		return
	}
	casterID := client.CharacterID()
	if casterID == 0 {
		h.respondError(e.ClientID, "playerAttack", reqContext(e), model.ErrorCodeValidationFailed, "no character joined")
		return
	}

	result, err := h.skills.InitiateSkill(casterID, payload.SkillSlug, payload.TargetID, payload.TargetType, h.clock.NowMs())
	if err != nil {
		h.respondError(e.ClientID, "playerAttack", reqContext(e), model.ErrorCodeValidationFailed, err.Error())
		return
	}
	h.respond(e.ClientID, "playerAttack", reqContext(e), result)
}

func (h *EventHandler) handleInterruptAction(e model.Event) {
	payload, _ := e.Payload.(InterruptActionPayload)
	client, ok := h.clients.Get(e.ClientID)
	if !ok {
		return
	}
	h.skills.InterruptSkill(client.CharacterID(), payload.Reason)
	h.respond(e.ClientID, "interruptAction", reqContext(e), struct{}{})
}

func (h *EventHandler) handleHarvestStart(e model.Event) {
	payload, _ := e.Payload.(HarvestStartPayload)
	client, ok := h.clients.Get(e.ClientID)
	if !ok {
		return
	}
	pos := model.Position{X: payload.PosX, Y: payload.PosY, Z: payload.PosZ}
	session, err := h.harvest.StartHarvest(client.CharacterID(), payload.CorpseUID, pos, h.clock.NowMs())
	if err != nil {
		h.respondError(e.ClientID, "harvestStart", reqContext(e), model.ErrorCodeHarvestFailed, err.Error())
		return
	}
	h.respond(e.ClientID, "harvestStart", reqContext(e), session)
}

func (h *EventHandler) handleHarvestCancel(e model.Event) {
	client, ok := h.clients.Get(e.ClientID)
	if !ok {
		return
	}
	h.harvest.CancelHarvest(client.CharacterID())
	h.respond(e.ClientID, "harvestCancel", reqContext(e), struct{}{})
}

func (h *EventHandler) handleGetNearbyCorpses(e model.Event) {
	payload, _ := e.Payload.(NearbyQueryPayload)
	radius := payload.Radius
	if radius <= 0 {
		radius = defaultNearbyRadius
	}
	pos := model.Position{X: payload.PosX, Y: payload.PosY, Z: payload.PosZ}
	h.respond(e.ClientID, "getNearbyCorpses", reqContext(e), map[string]any{"corpses": h.harvestStore.Near(pos, radius)})
}

func (h *EventHandler) handleCorpseLootPickup(e model.Event) {
	payload, _ := e.Payload.(CorpseLootPickupPayload)
	client, ok := h.clients.Get(e.ClientID)
	if !ok {
		return
	}
	characterID := client.CharacterID()
	pos := model.Position{X: payload.PosX, Y: payload.PosY, Z: payload.PosZ}

	type pickupResult struct {
		ItemID   int64  `json:"itemId"`
		Quantity int32  `json:"quantity"`
		Error    string `json:"error,omitempty"`
	}
	results := make([]pickupResult, 0, len(payload.Items))
	for _, item := range payload.Items {
		qty, err := h.harvest.PickupCorpseLoot(characterID, payload.CorpseUID, item.ItemID, item.Quantity, pos, h.inventory)
		if err != nil {
			results = append(results, pickupResult{ItemID: item.ItemID, Error: err.Error()})
			continue
		}
		results = append(results, pickupResult{ItemID: item.ItemID, Quantity: qty})
	}

	body := map[string]any{"corpseUid": payload.CorpseUID, "results": results}
	h.respond(e.ClientID, "corpseLootPickup", reqContext(e), body)
	h.broadcast("corpseLootPickup", body)
}

func (h *EventHandler) handleCorpseLootInspect(e model.Event) {
	payload, _ := e.Payload.(CorpseLootInspectPayload)
	corpse, ok := h.harvestStore.Corpse(payload.CorpseUID)
	if !ok {
		h.respondError(e.ClientID, "corpseLootInspect", reqContext(e), model.ErrorCodeCorpseNotFound, "corpse not found")
		return
	}
	h.respond(e.ClientID, "corpseLootInspect", reqContext(e), map[string]any{
		"corpseUid": corpse.MobUID,
		"loot":      corpse.AvailableLoot,
	})
}

func (h *EventHandler) handleItemPickup(e model.Event) {
	payload, _ := e.Payload.(ItemPickupPayload)
	client, ok := h.clients.Get(e.ClientID)
	if !ok {
		return
	}
	pos := model.Position{X: payload.PosX, Y: payload.PosY, Z: payload.PosZ}
	item, err := h.loot.PickupDroppedItem(payload.ItemUID, client.CharacterID(), pos)
	if err != nil {
		h.respondError(e.ClientID, "pickupDroppedItem", reqContext(e), model.ErrorCodePickupFailed, err.Error())
		return
	}
	h.respond(e.ClientID, "pickupDroppedItem", reqContext(e), item)
}

func (h *EventHandler) handleGetNearbyItems(e model.Event) {
	payload, _ := e.Payload.(NearbyQueryPayload)
	radius := payload.Radius
	if radius <= 0 {
		radius = defaultNearbyRadius
	}
	pos := model.Position{X: payload.PosX, Y: payload.PosY, Z: payload.PosZ}
	h.respond(e.ClientID, "getNearbyItems", reqContext(e), map[string]any{"items": h.lootStore.Near(pos, radius)})
}

func (h *EventHandler) handleGetPlayerInventory(e model.Event) {
	client, ok := h.clients.Get(e.ClientID)
	if !ok {
		return
	}
	h.respond(e.ClientID, "getPlayerInventory", reqContext(e), map[string]any{"items": h.inventory.List(client.CharacterID())})
}

// handleSpawnBroadcast processes SPAWN_MOBS_IN_ZONE: the scheduler already
// ran sim/spawn.Engine.SpawnMobsInZone and pushed the result here purely to
// have an ingress worker send the broadcast.
func (h *EventHandler) handleSpawnBroadcast(e model.Event) {
	payload, ok := e.Payload.(SpawnBroadcastPayload)
	if !ok || len(payload.Spawned) == 0 {
		return
	}
	h.broadcast("spawnMobsInZone", map[string]any{"zoneId": payload.ZoneID, "mobs": payload.Spawned})
}

// handleMobsMoved processes the scheduler's per-zone movement tick result
// the same way handleSpawnBroadcast does — the tick itself already ran on
// the scheduler goroutine, this only has an ingress worker send the
// broadcast.
func (h *EventHandler) handleMobsMoved(e model.Event) {
	payload, ok := e.Payload.(MovementBroadcastPayload)
	if !ok || len(payload.Changed) == 0 {
		return
	}
	h.broadcast("mobsMoved", map[string]any{"zoneId": payload.ZoneID, "mobs": payload.Changed})
}

// ---- upstream replication handlers ----

func (h *EventHandler) handleSetChunkData(e model.Event) {
	if p, ok := e.Payload.(*model.ChunkData); ok {
		h.chunks.Upsert(p)
	}
}

func (h *EventHandler) handleSetCharacterData(e model.Event) {
	if p, ok := e.Payload.(*model.Character); ok {
		h.characters.Upsert(p)
	}
}

func (h *EventHandler) handleSetCharacterAttributes(e model.Event) {
	p, ok := e.Payload.(CharacterAttributesPayload)
	if !ok {
		return
	}
	_ = h.characters.Mutate(p.CharacterID, func(c *model.Character) {
		for k, v := range p.Attributes {
			c.Attributes[k] = v
		}
	})
}

func (h *EventHandler) handleSetAllSpawnZones(e model.Event) {
	if p, ok := e.Payload.([]*model.SpawnZone); ok {
		h.zones.ReplaceAll(p)
	}
}

func (h *EventHandler) handleSetAllMobsList(e model.Event) {
	if p, ok := e.Payload.([]*model.MobTemplate); ok {
		h.mobTemplates.ReplaceAll(p)
	}
}

func (h *EventHandler) handleSetAllMobsAttributes(e model.Event) {
	if p, ok := e.Payload.(MobAttributesPayload); ok {
		h.mobTemplates.MergeAttributes(p.MobID, p.Attributes)
	}
}

func (h *EventHandler) handleSetAllMobsSkills(e model.Event) {
	if p, ok := e.Payload.(MobSkillsPayload); ok {
		h.mobTemplates.MergeSkills(p.MobID, p.Skills)
	}
}

func (h *EventHandler) handleSetAllItemsList(e model.Event) {
	if p, ok := e.Payload.([]*model.ItemTemplate); ok {
		h.items.ReplaceAllTemplates(p)
	}
}

func (h *EventHandler) handleSetMobLootInfo(e model.Event) {
	if p, ok := e.Payload.(MobLootInfoPayload); ok {
		h.items.SetMobLootInfo(p.MobID, p.Entries)
	}
}

func (h *EventHandler) handleSetExpLevelTable(e model.Event) {
	if p, ok := e.Payload.(map[int32]int64); ok {
		h.expTable.Set(p)
	}
}

// ---- combat.EventSink ----

func (h *EventHandler) PublishInitiation(b combat.InitiationBroadcast) {
	effect := h.skillEffectType(b.CasterID, b.SkillSlug)
	h.broadcast(string(effect)+"Initiation", map[string]any{
		"casterId":   b.CasterID,
		"skillSlug":  b.SkillSlug,
		"targetId":   b.TargetID,
		"targetType": b.TargetType,
		"castMs":     b.CastMs,
	})
	h.broadcast("combatAnimation", map[string]any{
		"casterId":  b.CasterID,
		"skillSlug": b.SkillSlug,
		"targetId":  b.TargetID,
	})
}

func (h *EventHandler) PublishExecution(b combat.ExecutionBroadcast) {
	effect := h.skillEffectType(b.CasterID, b.SkillSlug)
	h.broadcast(string(effect)+"Result", map[string]any{
		"casterId":   b.CasterID,
		"targetId":   b.TargetID,
		"skillSlug":  b.SkillSlug,
		"result":     b.Result,
		"casterMp":   b.CasterMP,
		"targetHp":   b.TargetHP,
		"targetDied": b.TargetDied,
	})
}

// skillEffectType resolves a skill's effect type from whichever actor knows
// it — a character's learned skills first, then, if casterID is a mob
// instance, the skills of that mob's own template. Defaults to
// damage, the common case, if the skill can't be found (e.g. it was
// already removed from the template between cast and broadcast).
func (h *EventHandler) skillEffectType(casterID int64, slug string) model.SkillEffectType {
	if c, ok := h.characters.Get(casterID); ok {
		if s, ok := c.Skills[slug]; ok {
			return s.SkillEffectType
		}
	}
	if m, ok := h.mobs.Get(casterID); ok {
		if t, ok := h.mobTemplates.Get(m.MobID); ok {
			if s, ok := t.Skills[slug]; ok {
				return s.SkillEffectType
			}
		}
	}
	return model.SkillEffectDamage
}

// ---- harvest.Sink ----

func (h *EventHandler) PublishHarvestStart(characterID, corpseUID int64) {
	h.broadcast("harvestStartBroadcast", map[string]any{"characterId": characterID, "corpseUid": corpseUID})
}

func (h *EventHandler) PublishHarvestComplete(characterID, corpseUID int64, loot []model.InventoryEntry) {
	h.broadcast("harvestCompleteBroadcast", map[string]any{"characterId": characterID, "corpseUid": corpseUID})
	h.unicastToCharacter(characterID, "harvestComplete", map[string]any{"corpseUid": corpseUID, "loot": loot})
}

func (h *EventHandler) PublishHarvestCancel(characterID, corpseUID int64) {
	h.broadcast("harvestCancelBroadcast", map[string]any{"characterId": characterID, "corpseUid": corpseUID})
}

// ---- loot.Sink ----

func (h *EventHandler) PublishItemDrop(item *model.DroppedItem) {
	h.broadcast("itemDrop", item)
}

// ---- experience.Sink ----

func (h *EventHandler) PublishExperienceUpdate(characterID int64, oldExp, newExp int64, delta int64, reason string) {
	h.broadcast("experience_update", map[string]any{
		"characterId": characterID,
		"oldExp":      oldExp,
		"newExp":      newExp,
		"delta":       delta,
		"reason":      reason,
	})
}

func (h *EventHandler) PublishLevelUp(characterID int64, oldLevel, newLevel int32, newAbilities []string) {
	h.broadcast("levelUp", map[string]any{
		"characterId":  characterID,
		"oldLevel":     oldLevel,
		"newLevel":     newLevel,
		"newAbilities": newAbilities,
	})
}

func (h *EventHandler) PublishStatsUpdate(characterID int64, maxHealth, maxMana, currentHealth, currentMana int32) {
	h.broadcast("stats_update", map[string]any{
		"characterId":   characterID,
		"maxHealth":     maxHealth,
		"maxMana":       maxMana,
		"currentHealth": currentHealth,
		"currentMana":   currentMana,
	})
}

// ---- registry.InventoryNotifier ----

func (h *EventHandler) NotifyInventoryUpdate(characterID int64, entries []model.InventoryEntry) {
	h.unicastToCharacter(characterID, "inventoryUpdate", map[string]any{"characterId": characterID, "items": entries})
}
