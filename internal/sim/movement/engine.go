// Package movement implements the per-zone mob movement tick and the mob
// aggro state machine (IDLE/CHASING/ATTACKING/RETURNING).
package movement

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/sim/combat"
)

const (
	minStepBase = 80
	maxStepBase = 140
	minJitter   = 0.85
	maxJitter   = 1.2

	minMoveCooldownMs = 7000
	extraCooldownRate = 10 // 1/extraCooldownRate chance of an additional cooldown bump

	borderBiasMinDeg = 30
	borderBiasMaxDeg = 100

	rotationJitterDeg = 5

	candidateDirections = 4
	blendFactorMin      = 0.2
	blendFactorMax      = 0.6

	defaultAggroRange  = 500
	defaultAttackRange = 150
	attackCooldownMs   = 1500
)

// AI keeps scratch state per mob: combat state, cooldowns, direction. All of
// it lives on model.MobInstance itself and is persisted through
// MobInstanceRegistry.UpdateAIState, so Engine carries no per-mob map of its
// own.
type Engine struct {
	zones      *registry.SpawnZoneRegistry
	instances  *registry.MobInstanceRegistry
	templates  *registry.MobTemplateRegistry
	characters *registry.CharacterRegistry
	skills     *combat.SkillEngine
	log        *slog.Logger
}

// NewEngine builds a movement Engine. log may be nil, in which case a
// discarding logger is used.
func NewEngine(zones *registry.SpawnZoneRegistry, instances *registry.MobInstanceRegistry, templates *registry.MobTemplateRegistry, characters *registry.CharacterRegistry, skills *combat.SkillEngine, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{zones: zones, instances: instances, templates: templates, characters: characters, skills: skills, log: log}
}

// NotifyMobAttacked implements combat.AggroNotifier: a player landing damage
// on a mob forces that mob into CHASING against the attacker, regardless of
// its current state.
func (e *Engine) NotifyMobAttacked(mobUID, attackerCharacterID int64) {
	err := e.instances.UpdateAIState(mobUID, func(inst *model.MobInstance) {
		if inst.IsDead {
			return
		}
		inst.CombatState = model.CombatChasing
		inst.TargetPlayerID = attackerCharacterID
	})
	if err != nil {
		e.log.Warn("movement: notify attacked on unknown mob", "uid", mobUID, "error", err)
	}
}

// MoveMobsInZone runs one movement/aggro tick for every alive mob in zoneID,
// returning the instances whose position or combat state changed so the
// caller can broadcast them.
func (e *Engine) MoveMobsInZone(zoneID int64, nowMs int64) []*model.MobInstance {
	zone, ok := e.zones.Get(zoneID)
	if !ok {
		return nil
	}

	mobs := e.instances.InZone(zoneID)
	changed := make([]*model.MobInstance, 0, len(mobs))

	for _, mob := range mobs {
		if !mob.IsAlive() {
			continue
		}
		before := *mob
		e.tickMob(zone, mob, mobs, nowMs)
		if *mob != before {
			if err := e.persist(mob); err != nil {
				e.log.Warn("movement: persist tick failed", "uid", mob.UID, "error", err)
				continue
			}
			changed = append(changed, mob)
		}
	}
	return changed
}

func (e *Engine) persist(mob *model.MobInstance) error {
	return e.instances.UpdateAIState(mob.UID, func(inst *model.MobInstance) {
		*inst = *mob
	})
}

// tickMob advances one mob's aggro state machine, then runs movement
// selection for states that move under it (IDLE/CHASING/RETURNING).
func (e *Engine) tickMob(zone *model.SpawnZone, mob *model.MobInstance, zoneMobs []*model.MobInstance, nowMs int64) {
	switch mob.CombatState {
	case model.CombatIdle:
		e.tickIdle(zone, mob, zoneMobs, nowMs)
	case model.CombatChasing:
		e.tickChasing(zone, mob, zoneMobs, nowMs)
	case model.CombatAttacking:
		e.tickAttacking(zone, mob, nowMs)
	case model.CombatReturning:
		e.tickReturning(zone, mob, zoneMobs, nowMs)
	default:
		mob.CombatState = model.CombatIdle
	}
}

func (e *Engine) tickIdle(zone *model.SpawnZone, mob *model.MobInstance, zoneMobs []*model.MobInstance, nowMs int64) {
	if target, ok := e.nearestAggroTarget(mob); ok {
		mob.CombatState = model.CombatChasing
		mob.TargetPlayerID = target.CharacterID
		return
	}
	e.moveWithinZone(zone, mob, zoneMobs, nowMs)
}

func (e *Engine) tickChasing(zone *model.SpawnZone, mob *model.MobInstance, zoneMobs []*model.MobInstance, nowMs int64) {
	target, ok := e.characters.Get(mob.TargetPlayerID)
	if !ok || !target.IsAlive() {
		e.startReturning(mob)
		return
	}
	if e.strayedTooFar(zone, mob) || mob.Position.DistanceXY(target.Position) > zone.LeashDistance {
		e.startReturning(mob)
		return
	}

	attackRange := e.attackRange(mob)
	if mob.Position.DistanceXY(target.Position) <= attackRange && nowMs >= mob.NextAttackTimeMs {
		mob.CombatState = model.CombatAttacking
		return
	}

	e.moveToward(mob, target.Position, zoneMobs, nowMs)
}

func (e *Engine) tickAttacking(zone *model.SpawnZone, mob *model.MobInstance, nowMs int64) {
	target, ok := e.characters.Get(mob.TargetPlayerID)
	if !ok || !target.IsAlive() {
		e.startReturning(mob)
		return
	}
	if e.strayedTooFar(zone, mob) || mob.Position.DistanceXY(target.Position) > zone.LeashDistance {
		e.startReturning(mob)
		return
	}
	if mob.Position.DistanceXY(target.Position) > e.attackRange(mob) {
		mob.CombatState = model.CombatChasing
		return
	}
	if nowMs < mob.NextAttackTimeMs {
		return
	}

	if e.skills != nil && e.skills.AIAttack(mob.UID, target.CharacterID, nowMs) {
		mob.NextAttackTimeMs = nowMs + attackCooldownMs
	}
	mob.CombatState = model.CombatChasing
}

func (e *Engine) tickReturning(zone *model.SpawnZone, mob *model.MobInstance, zoneMobs []*model.MobInstance, nowMs int64) {
	if zone.Box.Contains(mob.Position.X, mob.Position.Y) {
		mob.CombatState = model.CombatIdle
		mob.TargetPlayerID = 0
		return
	}
	e.moveToward(mob, mob.SpawnPosition, zoneMobs, nowMs)
}

func (e *Engine) startReturning(mob *model.MobInstance) {
	mob.CombatState = model.CombatReturning
}

func (e *Engine) strayedTooFar(zone *model.SpawnZone, mob *model.MobInstance) bool {
	return mob.Position.DistanceXY(mob.SpawnPosition) > zone.LeashDistance
}

func (e *Engine) attackRange(mob *model.MobInstance) float64 {
	if t, ok := e.templates.Get(mob.MobID); ok {
		if r, ok := t.BaseStats["attack_range"]; ok && r > 0 {
			return float64(r)
		}
	}
	return defaultAttackRange
}

func (e *Engine) aggroRange(mob *model.MobInstance) float64 {
	if t, ok := e.templates.Get(mob.MobID); ok {
		if r, ok := t.BaseStats["aggro_range"]; ok && r > 0 {
			return float64(r)
		}
	}
	return defaultAggroRange
}

// nearestAggroTarget scans every joined character for the closest one inside
// mob's aggro range.
func (e *Engine) nearestAggroTarget(mob *model.MobInstance) (*model.Character, bool) {
	aggroRange := e.aggroRange(mob)
	var best *model.Character
	bestDist := math.MaxFloat64
	for _, c := range e.characters.All() {
		if !c.IsAlive() {
			continue
		}
		dist := mob.Position.DistanceXY(c.Position)
		if dist > aggroRange {
			continue
		}
		if dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best, best != nil
}

// moveWithinZone runs the border-biased wander used while IDLE, clamped to
// the zone's box.
func (e *Engine) moveWithinZone(zone *model.SpawnZone, mob *model.MobInstance, zoneMobs []*model.MobInstance, nowMs int64) {
	if nowMs < mob.NextMoveTimeMs {
		return
	}

	atBorder := zone.Box.DistanceToBorder(mob.Position.X, mob.Position.Y) < zone.ThresholdPercent*zone.Box.MaxSize()
	step := e.stepSize(zone, mob)

	var committed bool
	lastAngle := 0.0
	for i := 0; i < candidateDirections; i++ {
		angle := e.candidateAngle(zone, mob, atBorder)
		lastAngle = angle
		nx := mob.Position.X + step*math.Cos(angle*math.Pi/180)
		ny := mob.Position.Y + step*math.Sin(angle*math.Pi/180)

		if !zone.Box.Contains(nx, ny) {
			continue
		}
		if e.tooClose(mob, zoneMobs, nx, ny, zone.MinSeparationDistance) {
			continue
		}

		e.commitMove(mob, nx, ny, angle)
		committed = true
		break
	}

	if !committed {
		blend := blendFactorMin + rand.Float64()*(blendFactorMax-blendFactorMin)
		dirX := mob.MovementDirX*(1-blend) + math.Cos(lastAngle*math.Pi/180)*blend
		dirY := mob.MovementDirY*(1-blend) + math.Sin(lastAngle*math.Pi/180)*blend
		nx, ny := zone.Box.Clamp(mob.Position.X+dirX*step, mob.Position.Y+dirY*step)
		angle := math.Atan2(dirY, dirX) * 180 / math.Pi
		e.commitMove(mob, nx, ny, angle)
	}

	e.pushNextMoveTime(mob, nowMs)
}

// moveToward drives the mob a single step toward dest. Used by CHASING and
// RETURNING, neither of which clamps to the zone's AABB: CHASING may leave
// the spawn box entirely, and RETURNING's destination is the spawn point
// itself.
func (e *Engine) moveToward(mob *model.MobInstance, dest model.Position, zoneMobs []*model.MobInstance, nowMs int64) {
	if nowMs < mob.NextMoveTimeMs {
		return
	}
	dx := dest.X - mob.Position.X
	dy := dest.Y - mob.Position.Y
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		e.pushNextMoveTime(mob, nowMs)
		return
	}

	step := mob.StepMultiplier * minStepBase
	if step > dist {
		step = dist
	}
	angle := math.Atan2(dy, dx) * 180 / math.Pi
	nx := mob.Position.X + step*math.Cos(angle*math.Pi/180)
	ny := mob.Position.Y + step*math.Sin(angle*math.Pi/180)

	if e.tooClose(mob, zoneMobs, nx, ny, 0) {
		e.pushNextMoveTime(mob, nowMs)
		return
	}

	e.commitMove(mob, nx, ny, angle)
	e.pushNextMoveTime(mob, nowMs)
}

func (e *Engine) tooClose(mob *model.MobInstance, zoneMobs []*model.MobInstance, x, y float64, minSeparation float64) bool {
	if minSeparation <= 0 {
		return false
	}
	for _, other := range zoneMobs {
		if other.UID == mob.UID || !other.IsAlive() {
			continue
		}
		if (model.Position{X: x, Y: y}).DistanceXY(other.Position) < minSeparation {
			return true
		}
	}
	return false
}

func (e *Engine) candidateAngle(zone *model.SpawnZone, mob *model.MobInstance, atBorder bool) float64 {
	if !atBorder {
		return rand.Float64() * 360
	}
	toCenter := math.Atan2(zone.Box.CenterY-mob.Position.Y, zone.Box.CenterX-mob.Position.X) * 180 / math.Pi
	bias := borderBiasMinDeg + rand.Float64()*(borderBiasMaxDeg-borderBiasMinDeg)
	if rand.IntN(2) == 0 {
		bias = -bias
	}
	return toCenter + bias
}

func (e *Engine) stepSize(zone *model.SpawnZone, mob *model.MobInstance) float64 {
	base := minStepBase + rand.Float64()*(maxStepBase-minStepBase)
	jitter := minJitter + rand.Float64()*(maxJitter-minJitter)
	raw := base * mob.StepMultiplier * jitter

	lower := zone.MinMoveDistance * 0.75
	upper := math.Min((zone.Box.SizeX+zone.Box.SizeY)*0.08, 450)
	return clampFloat(raw, lower, upper)
}

func clampFloat(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *Engine) commitMove(mob *model.MobInstance, x, y, angleDeg float64) {
	dx := x - mob.Position.X
	dy := y - mob.Position.Y
	if norm := math.Hypot(dx, dy); norm > 0 {
		mob.MovementDirX = dx / norm
		mob.MovementDirY = dy / norm
	}
	rot := angleDeg + (rand.Float64()*2-1)*rotationJitterDeg
	mob.Position = model.NewPosition(x, y, mob.Position.Z, rot)
}

func (e *Engine) pushNextMoveTime(mob *model.MobInstance, nowMs int64) {
	speed := mob.SpeedMultiplier
	if speed <= 0 {
		speed = 1
	}
	delay := int64(minMoveCooldownMs / speed)
	if delay < minMoveCooldownMs {
		delay = minMoveCooldownMs
	}
	if rand.IntN(extraCooldownRate) == 0 {
		delay += minMoveCooldownMs / 2
	}
	mob.NextMoveTimeMs = nowMs + delay
}
