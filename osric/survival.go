package osric

import (
	"context"
	"fmt"

	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/engine/dice"
	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/types"
)

// DefaultDeathSave is the d20 target for creatures without "save_death".
const DefaultDeathSave = 16

// systemShock is the percentage chance to survive by constitution score.
var systemShock = map[int]int{
	3: 35, 4: 40, 5: 45, 6: 50, 7: 55, 8: 60, 9: 65, 10: 70,
	11: 75, 12: 80, 13: 85, 14: 88, 15: 91, 16: 95, 17: 97, 18: 99,
}

// SystemShockChance returns the survival percentage for a constitution
// score, clamping scores outside 3..18.
func SystemShockChance(con int) int {
	con = min(max(con, 3), 18)
	return systemShock[con]
}

// SystemShockPipeline rolls percentile dice against the constitution table.
func SystemShockPipeline(roller dice.Roller) engine.Pipeline {
	return survivalPipeline(CommandSystemShock, RuleSystemShockRoll, RuleSystemShockOutcome,
		func(ent types.Entity) (int, bool) {
			roll := roller.Roll(100)
			return roll, roll <= SystemShockChance(intProp(ent, "con", 10))
		},
		func(ent types.Entity) int { return SystemShockChance(intProp(ent, "con", 10)) },
	)
}

// DeathSavePipeline rolls a d20 that must meet the subject's save.
func DeathSavePipeline(roller dice.Roller) engine.Pipeline {
	return survivalPipeline(CommandDeathSave, RuleDeathSaveRoll, RuleDeathSaveOutcome,
		func(ent types.Entity) (int, bool) {
			roll := roller.Roll(20)
			return roll, roll >= intProp(ent, "save_death", DefaultDeathSave)
		},
		func(ent types.Entity) int { return intProp(ent, "save_death", DefaultDeathSave) },
	)
}

func survivalPipeline(kind, rollRule, outcomeRule string, roll func(types.Entity) (int, bool), target func(types.Entity) int) engine.Pipeline {
	return engine.Pipeline{
		CommandType: kind,
		Config:      chainConfig(),
		Stages: []engine.Stage{
			{
				Name:     rollRule,
				Priority: PrioritySurvivalRoll,
				When:     hasTemp(SurvivalCheckKey),
				Do: func(_ context.Context, gc *engine.GameContext, _ engine.Command) (types.Result, error) {
					check, err := engine.RequireTemporary(gc, SurvivalCheckKey)
					if err != nil {
						return types.Result{}, err
					}
					ent, ok := gc.Entity(check.Subject)
					if !ok {
						return types.Result{}, fmt.Errorf("subject %q: %w", check.Subject, state.ErrUnknownEntity)
					}
					n, ok := roll(ent)
					sr := SurvivalRoll{Roll: n, Target: target(ent), Survived: ok}
					engine.SetTemporary(gc, SurvivalRollKey, sr)
					return engine.Success(fmt.Sprintf("%s rolls %d against %d", ent.Name, sr.Roll, sr.Target),
						engine.WithData(map[string]any{"roll": sr.Roll, "target": sr.Target})), nil
				},
			},
			{
				Name:     outcomeRule,
				Priority: PrioritySurvivalOutcome,
				Requires: []string{rollRule},
				When:     hasTemp(SurvivalCheckKey),
				Do:       survivalOutcome(kind),
			},
		},
	}
}

// survivalOutcome kills the subject on a failed roll. The failure is
// critical.
func survivalOutcome(kind string) func(context.Context, *engine.GameContext, engine.Command) (types.Result, error) {
	return func(_ context.Context, gc *engine.GameContext, _ engine.Command) (types.Result, error) {
		check, err := engine.RequireTemporary(gc, SurvivalCheckKey)
		if err != nil {
			return types.Result{}, err
		}
		sr, err := engine.RequireTemporary(gc, SurvivalRollKey)
		if err != nil {
			return types.Result{}, err
		}
		ent, ok := gc.Entity(check.Subject)
		if !ok {
			return types.Result{}, fmt.Errorf("subject %q: %w", check.Subject, state.ErrUnknownEntity)
		}
		data := map[string]any{"survived": sr.Survived}
		if check.Reason != "" {
			data["reason"] = check.Reason
		}
		if sr.Survived {
			return engine.Success(fmt.Sprintf("%s survives the %s", ent.Name, kind),
				engine.WithData(data)), nil
		}
		if err := gc.UpdateEntity(check.Subject, func(e types.Entity) types.Entity {
			return state.WithProp(e, "status", StatusDead)
		}); err != nil {
			return types.Result{}, err
		}
		return engine.Failure(fmt.Sprintf("%s fails the %s and dies", ent.Name, kind),
			engine.Critical(), engine.WithEffects(EffectDeath), engine.WithData(data)), nil
	}
}
