// Package script implements rules declared as data in scenario scripts: a
// list of conditions gating a list of effects. A compiled RuleDef becomes an
// engine.Rule and joins the chain of its command type like any Go rule.
package script

import (
	"reflect"

	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/types"
)

// EvalCondition evaluates a single condition for cmd.
func EvalCondition(c types.Condition, gc *engine.GameContext, cmd engine.Command) bool {
	switch c.Type {
	case "actor_prop":
		return propMatches(gc, cmd.ActorID(), c.Params)

	case "target_prop":
		targets := cmd.TargetIDs()
		if len(targets) == 0 {
			return false
		}
		return propMatches(gc, targets[0], c.Params)

	case "temp_set":
		key, _ := c.Params["key"].(string)
		return gc.Temporary().Has(key)

	case "temp_not":
		key, _ := c.Params["key"].(string)
		return !gc.Temporary().Has(key)

	case "has_entity":
		ref, _ := c.Params["entity"].(string)
		ids := entityRefs(ref, cmd)
		if len(ids) == 0 {
			return false
		}
		return engine.EntitiesPresent(gc, ids...)

	case "not":
		if c.Inner == nil {
			return true
		}
		return !EvalCondition(*c.Inner, gc, cmd)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAllConditions(conditions []types.Condition, gc *engine.GameContext, cmd engine.Command) bool {
	for _, c := range conditions {
		if !EvalCondition(c, gc, cmd) {
			return false
		}
	}
	return true
}

// propMatches compares an entity property with params["value"] using
// params["op"]: "==" (default), "~=", ">", ">=", "<", "<=". Ordering
// operators only hold for numbers.
func propMatches(gc *engine.GameContext, id string, params map[string]any) bool {
	prop, _ := params["prop"].(string)
	expected := params["value"]
	op, _ := params["op"].(string)

	ent, ok := gc.Entity(id)
	if !ok {
		return false
	}
	actual, ok := ent.Props[prop]
	if !ok {
		if op == "~=" {
			return expected != nil
		}
		return expected == nil
	}

	switch op {
	case "", "==":
		return equal(actual, expected)
	case "~=":
		return !equal(actual, expected)
	}

	a, aok := toFloat(actual)
	b, bok := toFloat(expected)
	if !aok || !bok {
		return false
	}
	switch op {
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	default:
		return false
	}
}

// equal compares numbers by value regardless of their Go type.
func equal(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toInt converts an any value to int, handling float64 from Lua.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
