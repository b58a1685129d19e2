package model

// SkillEffectType classifies what a skill does on execution.
type SkillEffectType string

const (
	SkillEffectDamage SkillEffectType = "damage"
	SkillEffectHeal   SkillEffectType = "heal"
	SkillEffectBuff   SkillEffectType = "buff"
	SkillEffectDebuff SkillEffectType = "debuff"
)

// School distinguishes which defense stat a damage skill is mitigated by.
type School string

const (
	SchoolPhysical School = "physical"
	SchoolMagical  School = "magical"
)

// Skill is a single castable ability, either learned by a character or
// granted to a mob template.
type Skill struct {
	Slug           string
	Name           string
	CastMs         int64
	CooldownMs     int64
	GCDMs          int64
	CostMP         int32
	MaxRange       float64 // in game-units / 100, per spec's ×100 range check
	Coeff          float64
	FlatAdd        float64
	ScaleStat      string // attribute slug, e.g. "strength"
	SkillEffectType SkillEffectType
	School         School
}

// TargetType enumerates who initiateSkill may legally target.
type TargetType string

const (
	TargetTypeSelf      TargetType = "SELF"
	TargetTypePlayer    TargetType = "PLAYER"
	TargetTypeMob       TargetType = "MOB"
)

// OngoingActionState is the state machine for a single in-flight cast.
type OngoingActionState string

const (
	ActionInitiated  OngoingActionState = "INITIATED"
	ActionCasting    OngoingActionState = "CASTING"
	ActionExecuting  OngoingActionState = "EXECUTING"
	ActionCompleted  OngoingActionState = "COMPLETED"
	ActionInterrupted OngoingActionState = "INTERRUPTED"
	ActionFailed     OngoingActionState = "FAILED"
)

// InterruptReason records why an ongoing action was cut short.
type InterruptReason string

const (
	InterruptPlayerCancelled  InterruptReason = "PLAYER_CANCELLED"
	InterruptMovement         InterruptReason = "MOVEMENT"
	InterruptDamageTaken      InterruptReason = "DAMAGE_TAKEN"
	InterruptTargetLost       InterruptReason = "TARGET_LOST"
	InterruptResourceDepleted InterruptReason = "RESOURCE_DEPLETED"
	InterruptDeath            InterruptReason = "DEATH"
	InterruptStunEffect       InterruptReason = "STUN_EFFECT"
)

// OngoingAction is the single in-flight cast/channel for one caster.
// At most one exists per casterId at any time (the invariant that at most one ongoing action exists per caster).
type OngoingAction struct {
	CasterID        int64
	SkillSlug       string
	TargetID        int64
	TargetType      TargetType
	StartTimeMs     int64
	EndTimeMs       int64
	State           OngoingActionState
	InterruptReason InterruptReason
}

// Clone returns a value copy (OngoingAction has no pointer fields, but the
// method exists so callers never need to care).
func (a OngoingAction) Clone() OngoingAction { return a }
