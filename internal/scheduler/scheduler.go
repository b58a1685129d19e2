// Package scheduler runs the periodic simulation ticks — mob spawning,
// mob movement/AI, ongoing-action resolution, harvest progress, and the
// combined corpse/item cleanup sweep — each on its own ticker, same as the
// teacher's RespawnTaskManager/VisibilityManager run their own interval
// loops under one errgroup in cmd/gameserver.
//
// The engines each tick calls update the registries directly from the
// scheduler goroutine. The spawn and movement ticks route their broadcast
// payloads through dispatch.EventDispatcher.PushInternal; the ongoing-action
// and harvest ticks broadcast through the engines' own sinks.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/StoreStation/chunkserver/internal/config"
	"github.com/StoreStation/chunkserver/internal/dispatch"
	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/sim/combat"
	"github.com/StoreStation/chunkserver/internal/sim/harvest"
	"github.com/StoreStation/chunkserver/internal/sim/loot"
	"github.com/StoreStation/chunkserver/internal/sim/movement"
	"github.com/StoreStation/chunkserver/internal/sim/spawn"
)

// ItemMaxAgeMs and CorpseMaxAgeMs bound how long a dropped item or corpse
// lingers before the cleanup task sweeps it, absent a configured override.
const (
	ItemMaxAgeMs   = 300_000
	CorpseMaxAgeMs = harvest.DefaultCorpseMaxAgeMs
)

// Scheduler owns the five periodic tasks. Each has its own ticker, but all
// five are serviced by the single Run goroutine, so a slow tick on one
// (e.g. movement across many zones) delays the others until it returns.
type Scheduler struct {
	cfg config.SchedulerConfig

	zones *registry.SpawnZoneRegistry
	mobs  *registry.MobInstanceRegistry
	items *registry.LootStore

	spawner  *spawn.Engine
	mover    *movement.Engine
	skills   *combat.SkillEngine
	harvests *harvest.Engine

	dispatcher *dispatch.EventDispatcher
	clock      idgen.Clock
	log        *slog.Logger
}

// New builds a Scheduler. Every engine/registry pointer is shared with the
// rest of the process — the scheduler only ever calls into them through
// their own public, concurrency-safe methods.
func New(
	cfg config.SchedulerConfig,
	zones *registry.SpawnZoneRegistry,
	mobs *registry.MobInstanceRegistry,
	items *registry.LootStore,
	spawner *spawn.Engine,
	mover *movement.Engine,
	skills *combat.SkillEngine,
	harvests *harvest.Engine,
	dispatcher *dispatch.EventDispatcher,
	clock idgen.Clock,
	log *slog.Logger,
) *Scheduler {
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		cfg: cfg, zones: zones, mobs: mobs, items: items,
		spawner: spawner, mover: mover, skills: skills, harvests: harvests,
		dispatcher: dispatcher, clock: clock, log: log,
	}
}

// Run starts all five ticks and blocks until ctx is canceled. Intended to be
// launched from an errgroup goroutine the way the teacher launches its
// respawn/visibility/attack-stance managers.
func (s *Scheduler) Run(ctx context.Context) error {
	spawnTicker := time.NewTicker(durationMs(s.cfg.SpawnIntervalMs, 15*time.Second))
	moveTicker := time.NewTicker(durationMs(s.cfg.MovementIntervalMs, 3*time.Second))
	actionTicker := time.NewTicker(durationMs(s.cfg.OngoingActionIntervalMs, 200*time.Millisecond))
	harvestTicker := time.NewTicker(durationMs(s.cfg.HarvestIntervalMs, 500*time.Millisecond))
	cleanupTicker := time.NewTicker(durationMs(s.cfg.CleanupIntervalMs, 60*time.Second))
	defer spawnTicker.Stop()
	defer moveTicker.Stop()
	defer actionTicker.Stop()
	defer harvestTicker.Stop()
	defer cleanupTicker.Stop()

	s.log.Info("scheduler started",
		"spawnInterval", s.cfg.SpawnIntervalMs,
		"movementInterval", s.cfg.MovementIntervalMs,
		"actionInterval", s.cfg.OngoingActionIntervalMs,
		"harvestInterval", s.cfg.HarvestIntervalMs,
		"cleanupInterval", s.cfg.CleanupIntervalMs)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return nil
		case <-spawnTicker.C:
			s.tickSpawn()
		case <-moveTicker.C:
			s.tickMovement()
		case <-actionTicker.C:
			s.tickOngoingActions()
		case <-harvestTicker.C:
			s.tickHarvest()
		case <-cleanupTicker.C:
			s.tickCleanup()
		}
	}
}

// tickSpawn fills every zone up to its target population. One malformed
// zone (unknown template, full already) never stops the others — each
// zone's error is logged and skipped.
func (s *Scheduler) tickSpawn() {
	for _, zone := range s.zones.All() {
		spawned, err := s.spawner.SpawnMobsInZone(zone.ZoneID)
		if err != nil {
			s.log.Debug("scheduler: spawn tick failed", "zoneId", zone.ZoneID, "error", err)
			continue
		}
		if len(spawned) == 0 {
			continue
		}
		s.dispatcher.PushInternal(model.Event{
			Kind:    model.EventSpawnMobsInZone,
			Payload: dispatch.SpawnBroadcastPayload{ZoneID: zone.ZoneID, Spawned: spawned},
		})
	}
}

// tickMovement advances every zone's mob AI/movement state machine one
// step. Broadcasting changed positions is left to the dispatch layer the
// same way spawn results are — this tick only produces the diff.
func (s *Scheduler) tickMovement() {
	nowMs := s.clock.NowMs()
	for _, zone := range s.zones.All() {
		changed := s.mover.MoveMobsInZone(zone.ZoneID, nowMs)
		if len(changed) == 0 {
			continue
		}
		s.dispatcher.PushInternal(model.Event{
			Kind:    model.EventMobsMoved,
			Payload: dispatch.MovementBroadcastPayload{ZoneID: zone.ZoneID, Changed: changed},
		})
	}
}

// tickOngoingActions resolves any cast whose execution time has elapsed.
// SkillEngine.UpdateOngoingActions drives its own EventSink calls
// synchronously, so there is nothing further to route here.
func (s *Scheduler) tickOngoingActions() {
	s.skills.UpdateOngoingActions(s.clock.NowMs())
}

// tickHarvest resolves any harvest session whose completion time has
// elapsed. Like UpdateOngoingActions, harvest.Engine calls its Sink
// directly.
func (s *Scheduler) tickHarvest() {
	s.harvests.UpdateHarvestProgress(s.clock.NowMs())
}

// tickCleanup sweeps aged-out corpses and dropped items. Neither produces a
// client-facing broadcast in the original protocol — clients simply stop
// seeing them on the next nearby query — so nothing is routed through the
// dispatcher here.
func (s *Scheduler) tickCleanup() {
	nowMs := s.clock.NowMs()
	if removed := s.harvests.CleanupOldCorpses(nowMs, CorpseMaxAgeMs); len(removed) > 0 {
		s.log.Debug("scheduler: corpses swept", "count", len(removed))
	}
	if removed := s.items.Sweep(nowMs, ItemMaxAgeMs); len(removed) > 0 {
		s.log.Debug("scheduler: dropped items swept", "count", len(removed))
	}
}

func durationMs(ms int64, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
