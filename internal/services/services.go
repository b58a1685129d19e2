// Package services builds the process-wide GameServices bundle: every
// registry and simulation engine, constructed in dependency order and
// wired to the dispatch layer, exactly as spec.md's global-mutable-state
// note lays out ("Logger → registries → engines, passed by reference, no
// hidden statics except the atomic UID counters"). cmd/chunkserver builds
// one of these at startup and nothing else touches `new` on a registry or
// engine type again.
package services

import (
	"log/slog"
	"os"

	"github.com/StoreStation/chunkserver/internal/dispatch"
	"github.com/StoreStation/chunkserver/internal/eventqueue"
	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/sim/combat"
	"github.com/StoreStation/chunkserver/internal/sim/experience"
	"github.com/StoreStation/chunkserver/internal/sim/harvest"
	"github.com/StoreStation/chunkserver/internal/sim/loot"
	"github.com/StoreStation/chunkserver/internal/sim/movement"
	"github.com/StoreStation/chunkserver/internal/sim/spawn"
)

// mobDeathInteractionRadius is how close a character must stand to a fresh
// corpse to open it, passed straight to harvest.Engine.CreateCorpseOnDeath.
const mobDeathInteractionRadius = 150

// fallbackExpPerLevel backs a mob template whose BaseStats never carried an
// explicit "exp" entry — upstream replication is expected to always supply
// one, this only keeps a kill from granting zero experience if it doesn't.
const fallbackExpPerLevel = 10

// GameServices is every process-wide singleton, constructed once at
// startup and passed by reference into the transport/dispatch/scheduler
// layers. Nothing outside this package calls `New*Registry`/`New*Engine`.
type GameServices struct {
	Log *slog.Logger

	UIDs *idgen.Counter

	// Tier 1: registries with no dependency on one another.
	MobTemplates *registry.MobTemplateRegistry
	Items        *registry.ItemRegistry
	ExpTable     *registry.ExperienceTableCache
	Clients      *registry.ClientRegistry
	Characters   *registry.CharacterRegistry
	Chunks       *registry.ChunkRegistry

	// Tier 2: registries built on tier 1.
	Mobs      *registry.MobInstanceRegistry
	Zones     *registry.SpawnZoneRegistry
	Inventory *registry.InventoryStore
	Loot      *registry.LootStore
	Harvest   *registry.HarvestStore

	// Tier 3: simulation engines built on tiers 1-2.
	Skills     *combat.SkillEngine
	Movement   *movement.Engine
	HarvestEng *harvest.Engine
	LootEng    *loot.Engine
	Experience *experience.Engine
	Spawn      *spawn.Engine

	// Queues and the dispatch layer sit on top of everything above.
	Ingress *eventqueue.Queue
	Ping    *eventqueue.Queue

	Dispatcher *dispatch.EventDispatcher
	Handler    *dispatch.EventHandler
}

// QueueSizes configures the queues' capacities; zero fields fall back to
// eventqueue.DefaultCapacity. Client and upstream events share one ingress
// queue, drained by the same ingress workers; IngressClient and IngressUpstream
// are summed to size that shared queue, letting the config keep its two
// named capacities without actually splitting the queue.
type QueueSizes struct {
	IngressClient   int
	IngressUpstream int
	Ping            int
}

// New builds the full GameServices bundle in the order spec.md's
// construction-order note specifies, wiring every engine's Sink/Notifier
// back to Handler once Handler itself exists — Handler is the last thing
// built, since it is the one component that depends on every engine.
func New(clock idgen.Clock, queues QueueSizes, log *slog.Logger) *GameServices {
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	s := &GameServices{Log: log, UIDs: &idgen.Counter{}}

	// Tier 1.
	s.MobTemplates = registry.NewMobTemplateRegistry()
	s.Items = registry.NewItemRegistry()
	s.ExpTable = registry.NewExperienceTableCache()
	s.Clients = registry.NewClientRegistry()
	s.Characters = registry.NewCharacterRegistry()
	s.Chunks = registry.NewChunkRegistry()

	// Tier 2.
	s.Mobs = registry.NewMobInstanceRegistry()
	s.Zones = registry.NewSpawnZoneRegistry()
	s.Loot = registry.NewLootStore()
	s.Harvest = registry.NewHarvestStore()
	s.Inventory = registry.NewInventoryStore(nil) // notifier wired once Handler exists

	// Tier 3.
	s.Skills = combat.NewSkillEngine(s.Characters, s.Mobs, s.MobTemplates)
	s.Movement = movement.NewEngine(s.Zones, s.Mobs, s.MobTemplates, s.Characters, s.Skills, log)
	s.HarvestEng = harvest.NewEngine(s.Harvest, s.Items, log)
	s.LootEng = loot.NewEngine(s.Items, s.Loot, s.Inventory, log)
	s.Experience = experience.NewEngine(s.Characters, s.ExpTable, clock)
	s.Spawn = spawn.NewEngine(s.Zones, s.MobTemplates, s.Mobs, s.UIDs, log)

	s.Skills.SetAggroNotifier(s.Movement)

	// Queues and dispatch.
	s.Ingress = eventqueue.New("ingress", orDefault(queues.IngressClient+queues.IngressUpstream), log)
	s.Ping = eventqueue.New("ping", orDefault(queues.Ping), log)
	s.Dispatcher = dispatch.NewEventDispatcher(s.Ingress, s.Ping, s.Clients, clock, log)
	s.Handler = dispatch.NewEventHandler(dispatch.Deps{
		Clients:      s.Clients,
		Characters:   s.Characters,
		Chunks:       s.Chunks,
		MobTemplates: s.MobTemplates,
		Mobs:         s.Mobs,
		Zones:        s.Zones,
		Items:        s.Items,
		Inventory:    s.Inventory,
		LootStore:    s.Loot,
		HarvestStore: s.Harvest,
		ExpTable:     s.ExpTable,
		Skills:       s.Skills,
		Harvest:      s.HarvestEng,
		Loot:         s.LootEng,
		Experience:   s.Experience,
		Clock:        clock,
		Log:          log,
	})

	// Handler implements every engine's Sink/Notifier interface — wire them
	// now that Handler is built, breaking the construction-order cycle the
	// same way SetSink/SetAggroNotifier/SetMobDeathHandler exist for.
	s.Skills.SetSink(s.Handler)
	s.HarvestEng.SetSink(s.Handler)
	s.LootEng.SetSink(s.Handler)
	s.Experience.SetSink(s.Handler)
	s.Inventory.SetNotifier(s.Handler)
	s.Skills.SetMobDeathHandler(&mobDeathHandler{s: s, clock: clock})

	return s
}

func orDefault(n int) int {
	if n <= 0 {
		return eventqueue.DefaultCapacity
	}
	return n
}

// mobDeathHandler implements combat.MobDeathHandler, fanning a mob's death
// out to corpse creation, ground loot, and the killer's experience grant —
// the three things spec.md's mob-death walkthrough (§4.11) says happen
// together, kept as one small composite rather than having SkillEngine
// depend on three engines directly.
type mobDeathHandler struct {
	s     *GameServices
	clock idgen.Clock
}

func (h *mobDeathHandler) HandleMobDeath(mobUID int64, pos model.Position, killerCharacterID int64) {
	inst, ok := h.s.Mobs.Get(mobUID)
	if !ok {
		return
	}
	template, ok := h.s.MobTemplates.Get(inst.MobID)
	if !ok {
		return
	}

	nowMs := h.clock.NowMs()
	h.s.HarvestEng.CreateCorpseOnDeath(inst.MobID, mobUID, pos, mobDeathInteractionRadius, nowMs)
	h.s.LootEng.GenerateLootOnMobDeath(inst.MobID, mobUID, pos, nowMs)

	if killerCharacterID == 0 {
		return
	}
	killer, ok := h.s.Characters.Get(killerCharacterID)
	if !ok {
		return
	}
	baseExp, ok := template.BaseStats["exp"]
	if !ok {
		baseExp = template.Level * fallbackExpPerLevel
	}
	gain := experience.CalculateMobExperience(template.Level, killer.Level, int64(baseExp))
	if err := h.s.Experience.Grant(killerCharacterID, gain, "mob_kill", mobUID); err != nil {
		h.s.Log.Warn("services: experience grant failed", "characterId", killerCharacterID, "mobUid", mobUID, "error", err)
	}
}
