package script

import (
	"fmt"
	"strings"

	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/engine/dice"
	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/types"
)

// Apply runs effects in order and folds them into one rule result. Every
// effect type is one atomic operation.
//
// Entity references in effect parameters are "actor", "target" (the first
// target), "targets" (all of them), or a literal entity id.
func Apply(gc *engine.GameContext, cmd engine.Command, roller dice.Roller, effects []types.Effect) (types.Result, error) {
	var (
		messages []string
		tags     []string
		damage   []int
		data     = map[string]any{}
		failed   bool
		failMsg  string
		critical bool
		stop     bool
	)

effectLoop:
	for _, eff := range effects {
		switch eff.Type {
		case "say":
			text, _ := eff.Params["text"].(string)
			messages = append(messages, interpolate(text, gc, cmd))

		case "tag":
			tag, _ := eff.Params["tag"].(string)
			tags = append(tags, tag)

		case "damage":
			ref, _ := eff.Params["target"].(string)
			for _, id := range entityRefs(ref, cmd) {
				amount, err := amountOf(eff.Params["amount"], roller)
				if err != nil {
					return types.Result{}, err
				}
				if err := gc.UpdateEntity(id, func(e types.Entity) types.Entity {
					hp, _ := state.IntProp(e, "hp")
					return state.WithProp(e, "hp", hp-amount)
				}); err != nil {
					return types.Result{}, err
				}
				damage = append(damage, amount)
				data["damage"] = amount
			}

		case "set_temp":
			key, _ := eff.Params["key"].(string)
			gc.Temporary().SetValue(key, eff.Params["value"])

		case "set_prop":
			ref, _ := eff.Params["entity"].(string)
			prop, _ := eff.Params["prop"].(string)
			for _, id := range entityRefs(ref, cmd) {
				if err := gc.UpdateEntity(id, func(e types.Entity) types.Entity {
					return state.WithProp(e, prop, eff.Params["value"])
				}); err != nil {
					return types.Result{}, err
				}
			}

		case "add_prop":
			ref, _ := eff.Params["entity"].(string)
			prop, _ := eff.Params["prop"].(string)
			amount, err := amountOf(eff.Params["amount"], roller)
			if err != nil {
				return types.Result{}, err
			}
			for _, id := range entityRefs(ref, cmd) {
				if err := gc.UpdateEntity(id, func(e types.Entity) types.Entity {
					v, _ := state.IntProp(e, prop)
					return state.WithProp(e, prop, v+amount)
				}); err != nil {
					return types.Result{}, err
				}
			}

		case "fail":
			msg, _ := eff.Params["message"].(string)
			failed = true
			failMsg = interpolate(msg, gc, cmd)
			critical, _ = eff.Params["critical"].(bool)
			break effectLoop

		case "stop":
			stop = true
			break effectLoop

		default:
			return types.Result{}, fmt.Errorf("unknown effect type %q", eff.Type)
		}
	}

	opts := []engine.ResultOption{engine.WithEffects(tags...), engine.WithDamage(damage...)}
	if len(data) > 0 {
		opts = append(opts, engine.WithData(data))
	}
	if stop {
		opts = append(opts, engine.StopChain())
	}
	if failed {
		if critical {
			opts = append(opts, engine.Critical())
		}
		if failMsg == "" {
			failMsg = strings.Join(messages, " ")
		}
		return engine.Failure(failMsg, opts...), nil
	}
	return engine.Success(strings.Join(messages, " "), opts...), nil
}

// amountOf reads a fixed amount or rolls a dice expression such as "1d6+1".
func amountOf(v any, roller dice.Roller) (int, error) {
	if s, ok := v.(string); ok {
		out, err := dice.RollNotation(roller, s)
		if err != nil {
			return 0, err
		}
		return out.Total, nil
	}
	return toInt(v), nil
}

func entityRefs(ref string, cmd engine.Command) []string {
	switch strings.Trim(ref, "{}") {
	case "", "actor":
		return []string{cmd.ActorID()}
	case "target":
		targets := cmd.TargetIDs()
		if len(targets) == 0 {
			return nil
		}
		return targets[:1]
	case "targets":
		return cmd.TargetIDs()
	default:
		return []string{ref}
	}
}

// interpolate replaces {actor}, {target}, {actor.name}, {target.name},
// {actor.<prop>}, {target.<prop>} and {temp.<key>} in text.
func interpolate(text string, gc *engine.GameContext, cmd engine.Command) string {
	if !strings.Contains(text, "{") {
		return text
	}
	target := ""
	if t := cmd.TargetIDs(); len(t) > 0 {
		target = t[0]
	}
	text = replaceEntity(text, "actor", cmd.ActorID(), gc)
	text = replaceEntity(text, "target", target, gc)

	for _, key := range gc.Temporary().Keys() {
		placeholder := "{temp." + key + "}"
		if strings.Contains(text, placeholder) {
			v, _ := gc.Temporary().Value(key)
			text = strings.ReplaceAll(text, placeholder, fmt.Sprintf("%v", v))
		}
	}
	return text
}

func replaceEntity(text, role, id string, gc *engine.GameContext) string {
	text = strings.ReplaceAll(text, "{"+role+"}", id)
	prefix := "{" + role + "."
	if !strings.Contains(text, prefix) {
		return text
	}
	ent, _ := gc.Entity(id)
	text = strings.ReplaceAll(text, prefix+"name}", displayName(ent, id))
	for prop, v := range ent.Props {
		text = strings.ReplaceAll(text, prefix+prop+"}", fmt.Sprintf("%v", v))
	}
	return text
}

func displayName(ent types.Entity, id string) string {
	if ent.Name != "" {
		return ent.Name
	}
	return id
}
