package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/sim/combat"
)

func basicAttack() model.Skill {
	return model.Skill{
		Slug:            "basic_attack",
		CastMs:          0,
		CooldownMs:      1000,
		CostMP:          10,
		MaxRange:        1,
		Coeff:           1,
		FlatAdd:         5,
		ScaleStat:       "strength",
		SkillEffectType: model.SkillEffectDamage,
		School:          model.SchoolPhysical,
	}
}

// rollUntilHit re-resolves until a non-miss lands, bounded so a genuine bug
// that always misses still fails the test instead of hanging.
func rollUntilHit(t *testing.T, calc combat.Calculator, skill model.Skill, attacker, target combat.AttributeSet, attackerIsMob bool) model.DamageResult {
	t.Helper()
	for i := 0; i < 200; i++ {
		result := calc.Resolve(skill, attacker, target, attackerIsMob)
		if !result.Missed {
			return result
		}
	}
	t.Fatal("resolve missed 200 times in a row")
	return model.DamageResult{}
}

func TestResolveNoMitigationHitsExpectedDamage(t *testing.T) {
	calc := combat.NewCalculator()
	attacker := combat.AttributeSet{"strength": 100, "accuracy": 1000, "crit_chance": 0}
	target := combat.AttributeSet{"evasion": 0, "physical_defense": 0}

	result := rollUntilHit(t, calc, basicAttack(), attacker, target, false)

	assert.EqualValues(t, 105, result.Damage, "flatAdd(5) + strength(100)*coeff(1)")
}

func TestResolveDefenseMitigatesAndFloorsAtOne(t *testing.T) {
	calc := combat.NewCalculator()
	attacker := combat.AttributeSet{"strength": 1, "accuracy": 1000, "crit_chance": 0}
	skill := basicAttack()
	skill.FlatAdd = 1
	skill.Coeff = 0

	target := combat.AttributeSet{"physical_defense": 1000} // clamps to 75% mitigation

	result := rollUntilHit(t, calc, skill, attacker, target, false)

	assert.GreaterOrEqual(t, result.Damage, int32(1), "damage never rounds below 1")
}

func TestResolveMobUsesFixedMissAndCritRates(t *testing.T) {
	calc := combat.NewCalculator()
	skill := basicAttack()
	attacker := combat.AttributeSet{"strength": 50}
	target := combat.AttributeSet{}

	missed, hit := 0, 0
	for i := 0; i < 500; i++ {
		result := calc.Resolve(skill, attacker, target, true)
		if result.Missed {
			missed++
		} else {
			hit++
		}
	}
	assert.Greater(t, hit, 0)
	// fixed 5% miss rate: over 500 rolls we expect some but not most to miss.
	assert.Less(t, missed, hit)
}

func TestResolveMagicalSchoolUsesMagicalDefense(t *testing.T) {
	calc := combat.NewCalculator()
	skill := basicAttack()
	skill.School = model.SchoolMagical
	attacker := combat.AttributeSet{"strength": 0, "accuracy": 1000, "crit_chance": 0}
	skill.FlatAdd = 100
	skill.Coeff = 0

	noDefense := rollUntilHit(t, calc, skill, attacker, combat.AttributeSet{"physical_defense": 1000}, false)
	withMagicalDefense := rollUntilHit(t, calc, skill, attacker, combat.AttributeSet{"magical_defense": 1000}, false)

	assert.Equal(t, int32(100), noDefense.Damage, "physical_defense should not mitigate a magical skill")
	assert.Less(t, withMagicalDefense.Damage, noDefense.Damage)
}
