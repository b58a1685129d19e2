package combat

import (
	"errors"
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
)

// InitiationBroadcast is emitted when a cast begins.
type InitiationBroadcast struct {
	CasterID   int64
	SkillSlug  string
	TargetID   int64
	TargetType model.TargetType
	CastMs     int64
}

// ExecutionBroadcast is emitted when a cast resolves.
type ExecutionBroadcast struct {
	CasterID   int64
	TargetID   int64
	SkillSlug  string
	Result     model.DamageResult
	CasterMP   int32
	TargetHP   int32
	TargetDied bool
}

// EventSink receives the broadcasts SkillEngine produces. Implemented by the
// dispatch layer, which turns these into protocol responses.
type EventSink interface {
	PublishInitiation(InitiationBroadcast)
	PublishExecution(ExecutionBroadcast)
}

// AggroNotifier is notified whenever a player damages a mob, so
// sim/movement's aggro state machine can react.
type AggroNotifier interface {
	NotifyMobAttacked(mobUID, attackerCharacterID int64)
}

// MobDeathHandler is notified when a mob instance's health reaches zero, so
// sim/harvest and sim/loot can create a corpse and roll drops.
type MobDeathHandler interface {
	HandleMobDeath(mobUID int64, pos model.Position, killerCharacterID int64)
}

// SkillEngine implements initiateSkill/executeSkill/interruptSkill and the
// updateOngoingActions tick.
type SkillEngine struct {
	characters *registry.CharacterRegistry
	mobs       *registry.MobInstanceRegistry
	templates  *registry.MobTemplateRegistry
	calc       Calculator

	sink    EventSink
	aggro   AggroNotifier
	onDeath MobDeathHandler

	mu        sync.RWMutex
	ongoing   map[int64]*model.OngoingAction // casterID -> action
	cooldowns map[int64]map[string]int64     // casterID -> skillSlug -> readyAtMs
}

// NewSkillEngine constructs a SkillEngine. sink/aggro/onDeath may be set
// later via SetSink/SetAggroNotifier/SetMobDeathHandler to break
// construction-order cycles with the dispatch and harvest/loot layers.
func NewSkillEngine(characters *registry.CharacterRegistry, mobs *registry.MobInstanceRegistry, templates *registry.MobTemplateRegistry) *SkillEngine {
	return &SkillEngine{
		characters: characters,
		mobs:       mobs,
		templates:  templates,
		calc:       NewCalculator(),
		ongoing:    make(map[int64]*model.OngoingAction),
		cooldowns:  make(map[int64]map[string]int64),
	}
}

// SetSink wires the broadcast sink.
func (e *SkillEngine) SetSink(sink EventSink) { e.sink = sink }

// SetAggroNotifier wires the aggro notifier.
func (e *SkillEngine) SetAggroNotifier(n AggroNotifier) { e.aggro = n }

// SetMobDeathHandler wires the mob death handler.
func (e *SkillEngine) SetMobDeathHandler(h MobDeathHandler) { e.onDeath = h }

type actorView struct {
	found      bool
	isMob      bool
	alive      bool
	position   model.Position
	attributes AttributeSet
	currentMP  int32
}

// resolveActor looks up a caster or target, trying CharacterRegistry first
// (player via CharacterRegistry, else mob via MobInstanceRegistry).
func (e *SkillEngine) resolveActor(id int64) actorView {
	if c, ok := e.characters.Get(id); ok {
		return actorView{
			found:      true,
			alive:      c.IsAlive(),
			position:   c.Position,
			attributes: AttributeSet(c.Attributes),
			currentMP:  c.CurrentMana,
		}
	}
	if m, ok := e.mobs.Get(id); ok {
		attrs := AttributeSet{}
		if t, ok := e.templates.Get(m.MobID); ok {
			attrs = AttributeSet(t.Attributes)
		}
		return actorView{
			found:      true,
			isMob:      true,
			alive:      m.IsAlive(),
			position:   m.Position,
			attributes: attrs,
			currentMP:  m.CurrentMana,
		}
	}
	return actorView{}
}

func (e *SkillEngine) lookupCharacterSkill(casterID int64, slug string) (model.Skill, bool) {
	c, ok := e.characters.Get(casterID)
	if !ok {
		return model.Skill{}, false
	}
	s, ok := c.Skills[slug]
	return s, ok
}

// InitiateSkill runs the initiateSkill validation chain for a player
// caster, looking the skill up on the caster's own CharacterRegistry entry.
func (e *SkillEngine) InitiateSkill(casterID int64, skillSlug string, targetID int64, targetType model.TargetType, nowMs int64) (model.InitiationResult, error) {
	skill, ok := e.lookupCharacterSkill(casterID, skillSlug)
	if !ok {
		return model.InitiationResult{}, errors.New(model.ErrorCodeNotFound)
	}
	return e.initiate(casterID, skill, targetID, targetType, false, nowMs)
}

// InitiateSkillWithDefinition is InitiateSkill for a caller that already has
// the resolved model.Skill in hand. Used by the mob AI attack path, which
// pulls the skill from MobTemplateRegistry rather than CharacterRegistry.
func (e *SkillEngine) InitiateSkillWithDefinition(casterID int64, skill model.Skill, targetID int64, targetType model.TargetType, casterIsMob bool, nowMs int64) (model.InitiationResult, error) {
	return e.initiate(casterID, skill, targetID, targetType, casterIsMob, nowMs)
}

func (e *SkillEngine) initiate(casterID int64, skill model.Skill, targetID int64, targetType model.TargetType, casterIsMob bool, nowMs int64) (model.InitiationResult, error) {
	caster := e.resolveActor(casterID)
	if !caster.found {
		return model.InitiationResult{}, errors.New(model.ErrorCodeNotFound)
	}
	if e.cooldownActive(casterID, skill.Slug, nowMs) {
		return model.InitiationResult{}, errors.New(model.ErrorCodeValidationFailed)
	}
	if caster.currentMP < skill.CostMP {
		return model.InitiationResult{}, errors.New(model.ErrorCodeValidationFailed)
	}

	target := e.resolveActor(targetID)
	if !target.found || !target.alive {
		return model.InitiationResult{}, errors.New(model.ErrorCodeNotFound)
	}
	if targetType == model.TargetTypeSelf && casterID != targetID {
		return model.InitiationResult{}, errors.New(model.ErrorCodeValidationFailed)
	}
	if caster.position.DistanceXY(target.position) > skill.MaxRange*100 {
		return model.InitiationResult{}, errors.New(model.ErrorCodeValidationFailed)
	}

	state := model.ActionCasting
	if skill.CastMs == 0 {
		state = model.ActionExecuting
	}

	e.mu.Lock()
	if existing, ok := e.ongoing[casterID]; ok && existing.State != model.ActionCompleted {
		e.mu.Unlock()
		return model.InitiationResult{}, errors.New(model.ErrorCodeAlreadyCasting)
	}
	e.ongoing[casterID] = &model.OngoingAction{
		CasterID:    casterID,
		SkillSlug:   skill.Slug,
		TargetID:    targetID,
		TargetType:  targetType,
		StartTimeMs: nowMs,
		EndTimeMs:   nowMs + skill.CastMs,
		State:       state,
	}
	e.mu.Unlock()

	if e.sink != nil {
		e.sink.PublishInitiation(InitiationBroadcast{
			CasterID:   casterID,
			SkillSlug:  skill.Slug,
			TargetID:   targetID,
			TargetType: targetType,
			CastMs:     skill.CastMs,
		})
	}

	result := model.InitiationResult{Success: true, CastMs: skill.CastMs, TargetID: targetID, SkillSlug: skill.Slug}
	if skill.CastMs == 0 {
		e.executeSkill(casterID, skill, casterIsMob, nowMs)
	}
	return result, nil
}

func (e *SkillEngine) cooldownActive(casterID int64, slug string, nowMs int64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	readyAt, ok := e.cooldowns[casterID][slug]
	return ok && readyAt > nowMs
}

// executeSkill runs the executeSkill step: deduct mana, resolve
// damage/heal, apply to target, set cooldown, clear the ongoing action, and
// broadcast the result.
func (e *SkillEngine) executeSkill(casterID int64, skill model.Skill, casterIsMob bool, nowMs int64) {
	e.mu.Lock()
	action, ok := e.ongoing[casterID]
	if !ok {
		e.mu.Unlock()
		return
	}
	targetID := action.TargetID
	targetType := action.TargetType
	e.mu.Unlock()

	casterAttrs, casterMP := e.deductMana(casterID, skill.CostMP)
	target := e.resolveActor(targetID)

	var result model.DamageResult
	var finalHP int32
	var targetDied bool

	if target.alive {
		if skill.SkillEffectType == model.SkillEffectHeal {
			result, finalHP = e.applyHeal(targetID, targetType, skill, casterAttrs)
		} else {
			result = e.calc.Resolve(skill, casterAttrs, target.attributes, casterIsMob)
			finalHP, targetDied = e.applyDamage(targetID, targetType, result.Damage)
			if !result.Missed && targetType == model.TargetTypeMob && e.aggro != nil {
				e.aggro.NotifyMobAttacked(targetID, casterID)
			}
			if targetDied && targetType == model.TargetTypeMob && e.onDeath != nil {
				e.onDeath.HandleMobDeath(targetID, target.position, casterID)
			}
		}
	}

	e.mu.Lock()
	e.setCooldownLocked(casterID, skill.Slug, nowMs+skill.CooldownMs)
	delete(e.ongoing, casterID)
	e.mu.Unlock()

	if e.sink != nil {
		e.sink.PublishExecution(ExecutionBroadcast{
			CasterID:   casterID,
			TargetID:   targetID,
			SkillSlug:  skill.Slug,
			Result:     result,
			CasterMP:   casterMP,
			TargetHP:   finalHP,
			TargetDied: targetDied,
		})
	}
}

func (e *SkillEngine) deductMana(casterID int64, cost int32) (AttributeSet, int32) {
	if c, ok := e.characters.Get(casterID); ok {
		var newMP int32
		_ = e.characters.Mutate(casterID, func(ch *model.Character) {
			ch.CurrentMana = clampNonNegative(ch.CurrentMana - cost)
			newMP = ch.CurrentMana
		})
		return AttributeSet(c.Attributes), newMP
	}
	if m, ok := e.mobs.Get(casterID); ok {
		newMP := clampNonNegative(m.CurrentMana - cost)
		_ = e.mobs.UpdateMana(casterID, newMP)
		attrs := AttributeSet{}
		if t, ok := e.templates.Get(m.MobID); ok {
			attrs = AttributeSet(t.Attributes)
		}
		return attrs, newMP
	}
	return AttributeSet{}, 0
}

func (e *SkillEngine) applyDamage(targetID int64, targetType model.TargetType, damage int32) (finalHP int32, died bool) {
	if targetType == model.TargetTypeMob {
		m, ok := e.mobs.Get(targetID)
		if !ok {
			return 0, false
		}
		newHP := clampNonNegative(m.CurrentHealth - damage)
		res, err := e.mobs.UpdateHealth(targetID, newHP)
		if err != nil {
			return 0, false
		}
		return newHP, res.MobDied
	}
	var newHP int32
	_ = e.characters.Mutate(targetID, func(c *model.Character) {
		c.CurrentHealth = clampNonNegative(c.CurrentHealth - damage)
		newHP = c.CurrentHealth
	})
	return newHP, newHP <= 0
}

func (e *SkillEngine) applyHeal(targetID int64, targetType model.TargetType, skill model.Skill, casterAttrs AttributeSet) (model.DamageResult, int32) {
	heal := int32(skill.FlatAdd + casterAttrs.get(skill.ScaleStat)*skill.Coeff)
	if targetType == model.TargetTypeMob {
		m, ok := e.mobs.Get(targetID)
		if !ok {
			return model.DamageResult{}, 0
		}
		newHP := m.CurrentHealth + heal
		if newHP > m.MaxHealth {
			newHP = m.MaxHealth
		}
		_, _ = e.mobs.UpdateHealth(targetID, newHP)
		return model.DamageResult{Damage: heal}, newHP
	}
	var newHP int32
	_ = e.characters.Mutate(targetID, func(c *model.Character) {
		c.CurrentHealth += heal
		if c.CurrentHealth > c.MaxHealth {
			c.CurrentHealth = c.MaxHealth
		}
		newHP = c.CurrentHealth
	})
	return model.DamageResult{Damage: heal}, newHP
}

func clampNonNegative(v int32) int32 {
	if v < 0 {
		return 0
	}
	return v
}

func (e *SkillEngine) setCooldownLocked(casterID int64, slug string, readyAtMs int64) {
	if e.cooldowns[casterID] == nil {
		e.cooldowns[casterID] = make(map[string]int64)
	}
	e.cooldowns[casterID][slug] = readyAtMs
}

// AIAttack picks the best usable
// skill from the mob's template (not on cooldown, in range of targetID, with
// enough mana) by a score favoring high-coefficient damage with low
// cooldown, then initiates it. Called by sim/movement when a mob's aggro
// state machine transitions into ATTACKING. Returns false if the mob has no
// usable skill right now.
func (e *SkillEngine) AIAttack(mobUID, targetCharacterID int64, nowMs int64) bool {
	mob, ok := e.mobs.Get(mobUID)
	if !ok {
		return false
	}
	template, ok := e.templates.Get(mob.MobID)
	if !ok {
		return false
	}
	target, ok := e.characters.Get(targetCharacterID)
	if !ok || !target.IsAlive() {
		return false
	}

	skill, ok := e.bestUsableSkill(mobUID, mob, template, target, nowMs)
	if !ok {
		return false
	}
	// Mob attacks are always zero-cast, so they execute inline and never
	// sit in the ongoing-action ticker.
	skill.CastMs = 0
	_, err := e.InitiateSkillWithDefinition(mobUID, skill, targetCharacterID, model.TargetTypePlayer, true, nowMs)
	return err == nil
}

func (e *SkillEngine) bestUsableSkill(mobUID int64, mob *model.MobInstance, template *model.MobTemplate, target *model.Character, nowMs int64) (model.Skill, bool) {
	var best model.Skill
	bestScore := -1.0
	found := false

	for _, skill := range template.Skills {
		if mob.CurrentMana < skill.CostMP {
			continue
		}
		if e.cooldownActive(mobUID, skill.Slug, nowMs) {
			continue
		}
		if mob.Position.DistanceXY(target.Position) > skill.MaxRange*100 {
			continue
		}
		cooldown := float64(skill.CooldownMs)
		if cooldown <= 0 {
			cooldown = 1
		}
		score := skill.Coeff / cooldown
		if !found || score > bestScore {
			best, bestScore, found = skill, score, true
		}
	}
	return best, found
}

// InterruptSkill erases casterID's ongoing action.
// Mana is deliberately not refunded on interrupt.
func (e *SkillEngine) InterruptSkill(casterID int64, reason model.InterruptReason) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.ongoing[casterID]; !ok {
		return
	}
	delete(e.ongoing, casterID)
}

// OngoingAction returns a copy of casterID's in-flight action, if any.
func (e *SkillEngine) OngoingAction(casterID int64) (model.OngoingAction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.ongoing[casterID]
	if !ok {
		return model.OngoingAction{}, false
	}
	return a.Clone(), true
}

// UpdateOngoingActions is the scheduler tick: every CASTING action whose
// endTime has passed transitions to EXECUTING and runs. Mob attacks never
// reach this path. They are modeled as zero-cast skills that execute inline
// in initiate(), sidestepping a double-execution pitfall where the ticker
// and an instant-cast path would otherwise both try to run the same attack.
func (e *SkillEngine) UpdateOngoingActions(nowMs int64) {
	e.mu.Lock()
	var due []model.OngoingAction
	for _, action := range e.ongoing {
		if action.State == model.ActionCasting && nowMs >= action.EndTimeMs {
			action.State = model.ActionExecuting
			due = append(due, action.Clone())
		}
	}
	e.mu.Unlock()

	for _, action := range due {
		skill, ok := e.lookupCharacterSkill(action.CasterID, action.SkillSlug)
		if !ok {
			continue
		}
		e.executeSkill(action.CasterID, skill, false, nowMs)
	}
}
