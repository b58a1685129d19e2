// Package combat implements skill initiation/execution and damage
// resolution: skill initiation/execution (SkillEngine) and damage resolution (Calculator).
package combat

import (
	"math"
	"math/rand/v2"

	"github.com/StoreStation/chunkserver/internal/model"
)

// AttributeSet is the minimal attribute view CombatCalculator needs from
// either a Character or a MobInstance's template.
type AttributeSet map[string]int32

func (a AttributeSet) get(slug string) float64 { return float64(a[slug]) }

// MobFixedMissChance and MobFixedCritChance are the flat rates mobs use
// instead of the accuracy/evasion and crit_chance formulas.
const (
	MobFixedMissChance      = 0.05
	MobFixedCritMultiplier  = 2.0
	MobFixedCritChance      = 0.15
	DefaultCritMultiplier   = 2.0
	MinHitChance            = 0.05
	MaxHitChance            = 0.95
	BaseHitChance           = 0.95
	AccuracyEvasionWeight   = 0.01
	MaxDefenseMitigation    = 0.75
	DefenseMitigationWeight = 0.01
)

// Calculator resolves a single skill application between an attacker and a
// target attribute set.
type Calculator struct{}

// NewCalculator returns a Calculator. Stateless; exists for symmetry with
// the rest of the package's constructors.
func NewCalculator() Calculator { return Calculator{} }

// Resolve computes a DamageResult for skill cast by an attacker with
// attackerAttrs against a target with targetAttrs. attackerIsMob selects the
// fixed mob miss/crit rates instead of the accuracy/evasion/crit_chance
// formulas.
func (Calculator) Resolve(skill model.Skill, attackerAttrs, targetAttrs AttributeSet, attackerIsMob bool) model.DamageResult {
	if rollMiss(attackerAttrs, targetAttrs, attackerIsMob) {
		return model.DamageResult{Missed: true}
	}

	scaleValue := attackerAttrs.get(skill.ScaleStat)
	base := math.Max(1, skill.FlatAdd+scaleValue*skill.Coeff)

	crit := rollCrit(attackerAttrs, attackerIsMob)
	if crit {
		mult := attackerAttrs.get("crit_multiplier")
		if mult <= 0 {
			mult = DefaultCritMultiplier
		}
		if attackerIsMob {
			mult = MobFixedCritMultiplier
		}
		base *= mult
	}

	blocked := false
	if blockChance := targetAttrs.get("block_chance") / 100; blockChance > 0 && rand.Float64() < blockChance {
		blocked = true
		blockValue := targetAttrs.get("block_value")
		base = math.Max(0, base-blockValue)
	}

	defenseStat := "physical_defense"
	if skill.School == model.SchoolMagical {
		defenseStat = "magical_defense"
	}
	mitigation := clamp(targetAttrs.get(defenseStat)*DefenseMitigationWeight, 0, MaxDefenseMitigation)
	final := math.Max(1, math.Round(base*(1-mitigation)))

	return model.DamageResult{
		Crit:    crit,
		Blocked: blocked,
		Damage:  int32(final),
	}
}

func rollMiss(attackerAttrs, targetAttrs AttributeSet, attackerIsMob bool) bool {
	if attackerIsMob {
		return rand.Float64() < MobFixedMissChance
	}
	hitChance := clamp(BaseHitChance+(attackerAttrs.get("accuracy")-targetAttrs.get("evasion"))*AccuracyEvasionWeight, MinHitChance, MaxHitChance)
	return rand.Float64() >= hitChance
}

func rollCrit(attackerAttrs AttributeSet, attackerIsMob bool) bool {
	if attackerIsMob {
		return rand.Float64() < MobFixedCritChance
	}
	critChance := attackerAttrs.get("crit_chance") / 100
	return rand.Float64() < critChance
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
