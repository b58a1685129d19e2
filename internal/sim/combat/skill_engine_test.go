package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/sim/combat"
)

func newTestEngine() (*combat.SkillEngine, *registry.CharacterRegistry, *registry.MobInstanceRegistry, *registry.MobTemplateRegistry) {
	characters := registry.NewCharacterRegistry()
	mobs := registry.NewMobInstanceRegistry()
	templates := registry.NewMobTemplateRegistry()
	return combat.NewSkillEngine(characters, mobs, templates), characters, mobs, templates
}

func joinedPlayer(characters *registry.CharacterRegistry, id int64) *model.Character {
	c := model.NewCharacter(id, id, "p", "fighter", "human")
	c.CurrentHealth, c.MaxHealth = 100, 100
	c.CurrentMana, c.MaxMana = 100, 100
	c.Attributes["strength"] = 100
	c.Attributes["accuracy"] = 1000
	c.Skills["basic_attack"] = model.Skill{
		Slug:            "basic_attack",
		CastMs:          0,
		CooldownMs:      1000,
		CostMP:          10,
		MaxRange:        5,
		Coeff:           1,
		FlatAdd:         5,
		ScaleStat:       "strength",
		SkillEffectType: model.SkillEffectDamage,
		School:          model.SchoolPhysical,
	}
	characters.Upsert(c)
	return c
}

func spawnedMob(mobs *registry.MobInstanceRegistry, uid int64) *model.MobInstance {
	m := &model.MobInstance{
		UID:           uid,
		MobID:         1,
		ZoneID:        1,
		CurrentHealth: 100,
		MaxHealth:     100,
		CombatState:   model.CombatIdle,
	}
	_ = mobs.Register(m)
	return m
}

func TestInitiateSkillRejectsUnknownSkill(t *testing.T) {
	engine, characters, mobs, _ := newTestEngine()
	joinedPlayer(characters, 1)
	spawnedMob(mobs, 200)

	_, err := engine.InitiateSkill(1, "does_not_exist", 200, model.TargetTypeMob, 1000)
	assert.Error(t, err)
}

func TestInitiateSkillRejectsOutOfRange(t *testing.T) {
	engine, characters, mobs, _ := newTestEngine()
	joinedPlayer(characters, 1)
	m := spawnedMob(mobs, 200)
	m.Position = model.NewPosition(10000, 0, 0, 0)
	require.NoError(t, mobs.UpdatePosition(200, m.Position))

	_, err := engine.InitiateSkill(1, "basic_attack", 200, model.TargetTypeMob, 1000)
	assert.Error(t, err)
}

func TestInitiateSkillInstantExecutesInlineAndSetsCooldown(t *testing.T) {
	engine, characters, mobs, _ := newTestEngine()
	joinedPlayer(characters, 1)
	spawnedMob(mobs, 200)
	// enough health that the first hit leaves the mob alive for the recast.
	require.NoError(t, mobs.UpdateAIState(200, func(m *model.MobInstance) { m.CurrentHealth, m.MaxHealth = 1000, 1000 }))

	result, err := engine.InitiateSkill(1, "basic_attack", 200, model.TargetTypeMob, 1000)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.EqualValues(t, 0, result.CastMs)

	// executed inline: mana is already deducted and the action cleared.
	_, stillOngoing := engine.OngoingAction(1)
	assert.False(t, stillOngoing)

	c, ok := characters.Get(1)
	require.True(t, ok)
	assert.EqualValues(t, 90, c.CurrentMana)

	// cooldown active: a second cast attempt fails before 1000ms pass.
	_, err = engine.InitiateSkill(1, "basic_attack", 200, model.TargetTypeMob, 1500)
	assert.Error(t, err)

	// cooldown elapsed: a cast at t=2001 should succeed again.
	_, err = engine.InitiateSkill(1, "basic_attack", 200, model.TargetTypeMob, 2001)
	assert.NoError(t, err)
}

func TestInitiateSkillRejectsInsufficientMana(t *testing.T) {
	engine, characters, mobs, _ := newTestEngine()
	c := joinedPlayer(characters, 1)
	c.CurrentMana = 0
	characters.Upsert(c)
	spawnedMob(mobs, 200)

	_, err := engine.InitiateSkill(1, "basic_attack", 200, model.TargetTypeMob, 1000)
	assert.Error(t, err)
}

func TestInitiateSkillCastingBlocksSecondCastUntilComplete(t *testing.T) {
	engine, characters, mobs, _ := newTestEngine()
	c := joinedPlayer(characters, 1)
	c.Skills["fireball"] = model.Skill{
		Slug: "fireball", CastMs: 2000, CooldownMs: 3000, CostMP: 10,
		MaxRange: 5, Coeff: 1, FlatAdd: 5, ScaleStat: "strength",
		SkillEffectType: model.SkillEffectDamage, School: model.SchoolMagical,
	}
	characters.Upsert(c)
	spawnedMob(mobs, 200)

	_, err := engine.InitiateSkill(1, "fireball", 200, model.TargetTypeMob, 1000)
	require.NoError(t, err)

	_, err = engine.InitiateSkill(1, "fireball", 200, model.TargetTypeMob, 1500)
	assert.Error(t, err, "casting should block a second initiation before it completes")

	action, ok := engine.OngoingAction(1)
	require.True(t, ok)
	assert.Equal(t, model.ActionCasting, action.State)

	engine.UpdateOngoingActions(3001)
	_, ok = engine.OngoingAction(1)
	assert.False(t, ok, "the action should be cleared once executeSkill runs")
}

func TestInterruptSkillClearsOngoingActionWithoutManaRefund(t *testing.T) {
	engine, characters, mobs, _ := newTestEngine()
	c := joinedPlayer(characters, 1)
	c.Skills["fireball"] = model.Skill{
		Slug: "fireball", CastMs: 2000, CooldownMs: 3000, CostMP: 10,
		MaxRange: 5, Coeff: 1, FlatAdd: 5, ScaleStat: "strength",
		SkillEffectType: model.SkillEffectDamage, School: model.SchoolMagical,
	}
	characters.Upsert(c)
	spawnedMob(mobs, 200)

	_, err := engine.InitiateSkill(1, "fireball", 200, model.TargetTypeMob, 1000)
	require.NoError(t, err)

	manaBefore, _ := characters.Get(1)
	engine.InterruptSkill(1, model.InterruptMovement)

	_, ok := engine.OngoingAction(1)
	assert.False(t, ok)

	manaAfter, _ := characters.Get(1)
	assert.Equal(t, manaBefore.CurrentMana, manaAfter.CurrentMana, "mana is not refunded on interrupt")
}

func TestAIAttackPicksUsableSkillAndDamagesTarget(t *testing.T) {
	engine, characters, mobs, templates := newTestEngine()
	player := joinedPlayer(characters, 1)
	player.Position = model.NewPosition(0, 0, 0, 0)
	characters.Upsert(player)

	spawnedMob(mobs, 200)
	templates.ReplaceAll([]*model.MobTemplate{{
		MobID: 1,
		Skills: map[string]model.Skill{
			"claw": {
				Slug: "claw", CastMs: 0, CooldownMs: 1000, CostMP: 0,
				MaxRange: 5, Coeff: 1, FlatAdd: 10, ScaleStat: "strength",
				SkillEffectType: model.SkillEffectDamage, School: model.SchoolPhysical,
			},
		},
		Attributes: map[string]int32{"strength": 10},
	}})

	ok := engine.AIAttack(200, 1, 1000)
	assert.True(t, ok)

	// mob attacks miss a fixed fraction of the time; attack again once the
	// cooldown has passed until one lands.
	c, found := characters.Get(1)
	for i := int64(1); i < 50 && found && c.CurrentHealth == 100; i++ {
		engine.AIAttack(200, 1, 1000+i*1000)
		c, found = characters.Get(1)
	}
	require.True(t, found)
	assert.Less(t, c.CurrentHealth, int32(100), "AI attack should have damaged the player")
}

func TestAIAttackFailsWithNoUsableSkill(t *testing.T) {
	engine, characters, mobs, templates := newTestEngine()
	joinedPlayer(characters, 1)
	spawnedMob(mobs, 200)
	templates.ReplaceAll([]*model.MobTemplate{{MobID: 1, Skills: map[string]model.Skill{}}})

	ok := engine.AIAttack(200, 1, 1000)
	assert.False(t, ok)
}
