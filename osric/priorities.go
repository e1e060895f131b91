package osric

// Command types.
const (
	CommandAttack      = "attack"
	CommandMove        = "move"
	CommandSystemShock = "system-shock"
	CommandDeathSave   = "death-save"
)

// Effect tags carried on rule results.
const (
	EffectHit         = "hit"
	EffectMiss        = "miss"
	EffectDamage      = "damage"
	EffectUnconscious = "unconscious"
	EffectDeath       = "death"
	EffectMove        = "move"
)

// Rule names.
const (
	RuleAttackRoll  = "attack-roll"
	RuleDamageRoll  = "damage-roll"
	RuleApplyDamage = "apply-damage"

	RuleMovementRate  = "movement-rate"
	RuleDistanceCheck = "distance-check"
	RuleApplyMovement = "apply-movement"

	RuleSystemShockRoll    = "system-shock-roll"
	RuleSystemShockOutcome = "system-shock-outcome"

	RuleDeathSaveRoll    = "death-save-roll"
	RuleDeathSaveOutcome = "death-save-outcome"
)

// Rule priorities, one block per command type. Gaps leave room for
// scripted rules to slot in between.
const (
	PriorityAttackRoll  = 10
	PriorityDamageRoll  = 20
	PriorityApplyDamage = 30

	PriorityMovementRate  = 10
	PriorityDistanceCheck = 20
	PriorityApplyMovement = 30

	PrioritySurvivalRoll    = 10
	PrioritySurvivalOutcome = 20
)
