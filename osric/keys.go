package osric

import "github.com/nathoo/osricore/engine/state"

// AttackContext is written by AttackCommand before its chain runs.
type AttackContext struct {
	Attacker string
	Target   string
	Weapon   string // item entity id; empty for the attacker's own damage
	Bonus    int
}

// AttackRoll is the to-hit outcome.
type AttackRoll struct {
	Natural int
	Total   int
	Needed  int
	Hit     bool
}

// DamageRoll is the rolled damage for a hit.
type DamageRoll struct {
	Dice  string
	Rolls []int
	Total int
}

// MoveRequest is written by MoveCommand before its chain runs.
type MoveRequest struct {
	Mover    string
	Distance int
}

// SurvivalCheck is written by SurvivalCommand before its chain runs.
type SurvivalCheck struct {
	Subject string
	Reason  string
}

// SurvivalRoll is a percentile or d20 survival outcome.
type SurvivalRoll struct {
	Roll     int
	Target   int
	Survived bool
}

// Temporary keys shared by the content rules. Producers and consumers
// refer to these values only.
var (
	AttackContextKey = state.NewKey[AttackContext]("osric.attack.context")
	AttackRollKey    = state.NewKey[AttackRoll]("osric.attack.roll")
	DamageRollKey    = state.NewKey[DamageRoll]("osric.attack.damage")

	MoveRequestKey  = state.NewKey[MoveRequest]("osric.move.request")
	MovementRateKey = state.NewKey[int]("osric.move.rate")

	SurvivalCheckKey = state.NewKey[SurvivalCheck]("osric.survival.check")
	SurvivalRollKey  = state.NewKey[SurvivalRoll]("osric.survival.roll")
)
