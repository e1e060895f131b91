package osric

import (
	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/types"
)

// Creature statuses stored in the "status" prop.
const (
	StatusAlive       = "alive"
	StatusUnconscious = "unconscious"
	StatusDead        = "dead"
)

// DeathThreshold is the hit point total at or below which a creature dies.
const DeathThreshold = -10

// Status returns ent's status, defaulting to alive.
func Status(ent types.Entity) string {
	if s, ok := state.StringProp(ent, "status"); ok && s != "" {
		return s
	}
	return StatusAlive
}

// Conscious reports whether ent can act: not dead, not unconscious, and
// above zero hit points when it tracks them.
func Conscious(ent types.Entity) bool {
	switch Status(ent) {
	case StatusDead, StatusUnconscious:
		return false
	}
	if hp, ok := state.IntProp(ent, "hp"); ok && hp <= 0 {
		return false
	}
	return true
}

// StatusFor maps a hit point total to the status it implies.
func StatusFor(hp int) string {
	switch {
	case hp <= DeathThreshold:
		return StatusDead
	case hp <= 0:
		return StatusUnconscious
	default:
		return StatusAlive
	}
}

func intProp(ent types.Entity, prop string, def int) int {
	if v, ok := state.IntProp(ent, prop); ok {
		return v
	}
	return def
}
