package osric

import (
	"context"
	"fmt"

	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/engine/dice"
	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/types"
)

// Defaults used when a combatant lacks the prop.
const (
	DefaultTHAC0       = 20
	DefaultArmourClass = 10
	DefaultDamage      = "1d2"
)

func chainConfig() *types.ChainConfig {
	return &types.ChainConfig{StopOnFailure: true, MergeResults: true, ClearTemporary: true}
}

// AttackPipeline rolls to hit, rolls damage and applies it.
func AttackPipeline(roller dice.Roller) engine.Pipeline {
	return engine.Pipeline{
		CommandType: CommandAttack,
		Config:      chainConfig(),
		Stages: []engine.Stage{
			{
				Name:     RuleAttackRoll,
				Priority: PriorityAttackRoll,
				When:     hasTemp(AttackContextKey),
				Do:       attackRoll(roller),
			},
			{
				Name:     RuleDamageRoll,
				Priority: PriorityDamageRoll,
				Requires: []string{RuleAttackRoll},
				When:     hasTemp(AttackContextKey),
				Do:       damageRoll(roller),
			},
			{
				Name:     RuleApplyDamage,
				Priority: PriorityApplyDamage,
				Requires: []string{RuleDamageRoll},
				When:     hasTemp(AttackContextKey),
				Do:       applyDamage,
			},
		},
	}
}

func hasTemp[T any](k state.Key[T]) func(*engine.GameContext, engine.Command) bool {
	return func(gc *engine.GameContext, _ engine.Command) bool {
		_, ok := engine.GetTemporary(gc, k)
		return ok
	}
}

// attackRoll needs d20 + bonus >= THAC0 - target AC. A natural 20 always
// hits and a natural 1 always misses.
func attackRoll(roller dice.Roller) func(context.Context, *engine.GameContext, engine.Command) (types.Result, error) {
	return func(_ context.Context, gc *engine.GameContext, _ engine.Command) (types.Result, error) {
		ac, err := engine.RequireTemporary(gc, AttackContextKey)
		if err != nil {
			return types.Result{}, err
		}
		attacker, ok := gc.Entity(ac.Attacker)
		if !ok {
			return types.Result{}, fmt.Errorf("attacker %q: %w", ac.Attacker, state.ErrUnknownEntity)
		}
		target, ok := gc.Entity(ac.Target)
		if !ok {
			return types.Result{}, fmt.Errorf("target %q: %w", ac.Target, state.ErrUnknownEntity)
		}

		bonus := ac.Bonus
		if ac.Weapon != "" {
			if weapon, ok := gc.Entity(ac.Weapon); ok {
				bonus += intProp(weapon, "hit_bonus", 0)
			}
		}
		natural := roller.Roll(20)
		roll := AttackRoll{
			Natural: natural,
			Total:   natural + bonus,
			Needed:  intProp(attacker, "thac0", DefaultTHAC0) - intProp(target, "ac", DefaultArmourClass),
		}
		switch natural {
		case 20:
			roll.Hit = true
		case 1:
			roll.Hit = false
		default:
			roll.Hit = roll.Total >= roll.Needed
		}
		engine.SetTemporary(gc, AttackRollKey, roll)

		data := map[string]any{"natural": roll.Natural, "total": roll.Total, "needed": roll.Needed}
		if !roll.Hit {
			return engine.Failure(
				fmt.Sprintf("%s misses %s (%d vs %d)", attacker.Name, target.Name, roll.Total, roll.Needed),
				engine.WithData(data), engine.WithEffects(EffectMiss),
			), nil
		}
		return engine.Success(
			fmt.Sprintf("%s hits %s (%d vs %d)", attacker.Name, target.Name, roll.Total, roll.Needed),
			engine.WithData(data), engine.WithEffects(EffectHit),
		), nil
	}
}

// damageRoll uses the weapon's damage dice, then the attacker's, then 1d2.
func damageRoll(roller dice.Roller) func(context.Context, *engine.GameContext, engine.Command) (types.Result, error) {
	return func(_ context.Context, gc *engine.GameContext, _ engine.Command) (types.Result, error) {
		ac, err := engine.RequireTemporary(gc, AttackContextKey)
		if err != nil {
			return types.Result{}, err
		}
		roll, err := engine.RequireTemporary(gc, AttackRollKey)
		if err != nil {
			return types.Result{}, err
		}
		if !roll.Hit {
			return engine.Success("no damage", engine.StopChain()), nil
		}
		notation := DefaultDamage
		if attacker, ok := gc.Entity(ac.Attacker); ok {
			if d, ok := state.StringProp(attacker, "damage"); ok {
				notation = d
			}
		}
		if ac.Weapon != "" {
			if weapon, ok := gc.Entity(ac.Weapon); ok {
				if d, ok := state.StringProp(weapon, "damage"); ok {
					notation = d
				}
			}
		}
		out, err := dice.RollNotation(roller, notation)
		if err != nil {
			return types.Result{}, fmt.Errorf("%s: %w", RuleDamageRoll, err)
		}
		total := max(out.Total, 1)
		engine.SetTemporary(gc, DamageRollKey, DamageRoll{Dice: notation, Rolls: out.Rolls, Total: total})
		return engine.Success(
			fmt.Sprintf("damage %s", out),
			engine.WithData(map[string]any{"dice": notation, "rolls": out.Rolls, "total": total}),
		), nil
	}
}

func applyDamage(_ context.Context, gc *engine.GameContext, _ engine.Command) (types.Result, error) {
	ac, err := engine.RequireTemporary(gc, AttackContextKey)
	if err != nil {
		return types.Result{}, err
	}
	dmg, err := engine.RequireTemporary(gc, DamageRollKey)
	if err != nil {
		return types.Result{}, err
	}

	var hp int
	var name string
	err = gc.UpdateEntity(ac.Target, func(ent types.Entity) types.Entity {
		hp = intProp(ent, "hp", 0) - dmg.Total
		name = ent.Name
		ent = state.WithProp(ent, "hp", hp)
		return state.WithProp(ent, "status", StatusFor(hp))
	})
	if err != nil {
		return types.Result{}, err
	}

	status := StatusFor(hp)
	effects := []string{EffectDamage}
	msg := fmt.Sprintf("%s takes %d damage (%d hp left)", name, dmg.Total, hp)
	switch status {
	case StatusDead:
		effects = append(effects, EffectDeath)
		msg = fmt.Sprintf("%s takes %d damage and dies", name, dmg.Total)
	case StatusUnconscious:
		effects = append(effects, EffectUnconscious)
		msg = fmt.Sprintf("%s takes %d damage and falls unconscious", name, dmg.Total)
	}
	return engine.Success(msg,
		engine.WithDamage(dmg.Total),
		engine.WithEffects(effects...),
		engine.WithData(map[string]any{"hp": hp, "status": status}),
	), nil
}
