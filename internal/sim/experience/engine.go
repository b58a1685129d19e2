// Package experience implements the level/experience grant pipeline: delta
// application, level-from-exp resolution against the replicated experience
// table (falling back to the local formula), level-up stat bonuses, and the
// mob-kill/death-penalty experience formulas.
package experience

import (
	"fmt"

	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
)

// MaxLevel caps level growth; experience beyond the level-100 requirement is
// clamped rather than banked.
const MaxLevel int32 = 100

// abilityUnlockInterval grants a new ability slug every 5th level.
const abilityUnlockInterval = 5

// Sink receives the broadcasts a grant produces. Implemented by the dispatch
// layer.
type Sink interface {
	PublishExperienceUpdate(characterID int64, oldExp, newExp int64, delta int64, reason string)
	PublishLevelUp(characterID int64, oldLevel, newLevel int32, newAbilities []string)
	PublishStatsUpdate(characterID int64, maxHealth, maxMana, currentHealth, currentMana int32)
}

// Engine implements grant/levelFromExp and the mob-experience formulas.
type Engine struct {
	characters *registry.CharacterRegistry
	table      *registry.ExperienceTableCache
	sink       Sink
	clock      idgen.Clock
	stats      *statsNotifier
}

// NewEngine builds an experience Engine. sink may be wired later via SetSink.
func NewEngine(characters *registry.CharacterRegistry, table *registry.ExperienceTableCache, clock idgen.Clock) *Engine {
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	return &Engine{characters: characters, table: table, clock: clock, stats: newStatsNotifier()}
}

// SetSink wires the broadcast sink, breaking the construction-order cycle
// with the dispatch layer.
func (e *Engine) SetSink(sink Sink) { e.sink = sink }

// Grant applies a signed experience delta to characterID, resolves the
// resulting level (capped at MaxLevel, which also clamps the banked exp to
// exactly what MaxLevel requires), applies level-up bonuses for every level
// crossed, and broadcasts experience_update, levelUp (on level-up), and
// stats_update (on level-up).
func (e *Engine) Grant(characterID int64, delta int64, reason string, sourceID int64) error {
	var oldExp, newExp int64
	var oldLevel, newLevel int32
	var newAbilities []string
	var maxHealth, maxMana, curHealth, curMana int32
	leveledUp := false

	err := e.characters.Mutate(characterID, func(c *model.Character) {
		oldExp = c.CurrentExp
		oldLevel = c.Level

		newExp = oldExp + delta
		if newExp < 0 {
			newExp = 0
		}

		newLevel = e.levelFromExp(newExp)
		if newLevel > MaxLevel {
			newLevel = MaxLevel
		}
		capExp := e.requiredExp(MaxLevel)
		if newLevel == MaxLevel && newExp > capExp {
			newExp = capExp
		}

		c.CurrentExp = newExp
		c.Level = newLevel
		c.ExpForNextLevel = e.requiredExp(newLevel + 1)

		if newLevel > oldLevel {
			leveledUp = true
			delta := newLevel - oldLevel
			c.MaxHealth += 10 * delta
			c.MaxMana += 5 * delta
			c.CurrentHealth = c.MaxHealth
			c.CurrentMana = c.MaxMana
			for lvl := oldLevel + 1; lvl <= newLevel; lvl++ {
				if lvl%abilityUnlockInterval == 0 {
					newAbilities = append(newAbilities, fmt.Sprintf("ability_tier_%d", lvl/abilityUnlockInterval))
				}
			}
		}
		maxHealth, maxMana, curHealth, curMana = c.MaxHealth, c.MaxMana, c.CurrentHealth, c.CurrentMana
	})
	if err != nil {
		return fmt.Errorf("experience: grant: %w", err)
	}

	if e.sink == nil {
		return nil
	}
	e.sink.PublishExperienceUpdate(characterID, oldExp, newExp, delta, reason)
	if leveledUp {
		e.sink.PublishLevelUp(characterID, oldLevel, newLevel, newAbilities)
		if e.stats.due(characterID, e.clock.NowMs()) {
			e.sink.PublishStatsUpdate(characterID, maxHealth, maxMana, curHealth, curMana)
		}
	}
	return nil
}

func (e *Engine) requiredExp(level int32) int64 {
	if e.table != nil && e.table.Loaded() {
		return e.table.RequiredExp(level)
	}
	return (&model.ExperienceTable{}).RequiredExp(level)
}

// levelFromExp resolves the highest level whose cumulative requirement does
// not exceed exp, linear-scanning up to MaxLevel (the table is small and this
// runs once per grant, not per tick).
func (e *Engine) levelFromExp(exp int64) int32 {
	level := int32(1)
	for candidate := int32(2); candidate <= MaxLevel; candidate++ {
		if e.requiredExp(candidate) > exp {
			break
		}
		level = candidate
	}
	return level
}

// levelDiffModifier scales mob experience by how far the mob's level sits
// from the killer's: heavily under-leveled mobs are worth little, heavily
// over-leveled mobs are worth a capped bonus.
func levelDiffModifier(diff int32) float64 {
	switch {
	case diff <= -10:
		return 0.1
	case diff <= -5:
		return 0.5
	case diff < 5:
		return 1.0
	case diff < 10:
		return 1.5
	default:
		return 2.0
	}
}

// CalculateMobExperience returns the experience a charLevel character earns
// for killing a mobLevel mob worth baseExp at even level.
func CalculateMobExperience(mobLevel, charLevel int32, baseExp int64) int64 {
	modifier := levelDiffModifier(mobLevel - charLevel)
	return int64(float64(baseExp) * modifier)
}

// CalculateDeathPenalty returns the experience lost on death: 10% of current
// experience, but never enough to drop the character below the experience
// required for the previous level (RequiredExp(level-1)).
func CalculateDeathPenalty(currentExp int64, level int32, table *registry.ExperienceTableCache) int64 {
	var floorExp int64
	if table != nil && table.Loaded() {
		floorExp = table.RequiredExp(level - 1)
	} else {
		floorExp = (&model.ExperienceTable{}).RequiredExp(level - 1)
	}
	tenPercent := int64(0.10 * float64(currentExp))
	available := currentExp - floorExp
	if available < 0 {
		available = 0
	}
	if tenPercent < available {
		return tenPercent
	}
	return available
}
