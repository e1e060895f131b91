package script

import (
	"context"
	"fmt"

	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/engine/dice"
	"github.com/nathoo/osricore/types"
)

// Rule adapts a RuleDef to engine.Rule.
type Rule struct {
	def    types.RuleDef
	roller dice.Roller
}

// NewRule wraps def. roller serves dice expressions in damage and add_prop
// effects.
func NewRule(def types.RuleDef, roller dice.Roller) *Rule {
	return &Rule{def: def, roller: roller}
}

func (r *Rule) Name() string { return r.def.ID }

func (r *Rule) Priority() int {
	if r.def.Priority == 0 {
		return engine.DefaultPriority
	}
	return r.def.Priority
}

func (r *Rule) Prerequisites() []string {
	return append([]string(nil), r.def.Requires...)
}

func (r *Rule) CanApply(gc *engine.GameContext, cmd engine.Command) bool {
	return EvalAllConditions(r.def.Conditions, gc, cmd)
}

func (r *Rule) Apply(_ context.Context, gc *engine.GameContext, cmd engine.Command) (types.Result, error) {
	return Apply(gc, cmd, r.roller, r.def.Effects)
}

// Install registers a scenario's rules with eng. Rules join the existing
// chain for their command type; a type without one gets a new chain using
// the scenario's chain config for it, or the engine default.
func Install(eng *engine.RuleEngine, sc *types.Scenario, roller dice.Roller) error {
	for _, def := range sc.Rules {
		r := NewRule(def, roller)
		if eng.AddRuleToChain(def.Command, r) {
			continue
		}
		if _, ok := eng.Chain(def.Command); ok {
			return fmt.Errorf("install rule %q: chain %q rejected it", def.ID, def.Command)
		}

		var cfg *types.ChainConfig
		if c, ok := sc.Chains[def.Command]; ok {
			cfg = &c
		}
		if _, err := eng.CreateRuleChain(def.Command, cfg, r); err != nil {
			return fmt.Errorf("install rule %q: %w", def.ID, err)
		}
	}
	return nil
}

// Populate stores every scenario entity in gc.
func Populate(gc *engine.GameContext, sc *types.Scenario) {
	for _, ent := range sc.Entities {
		gc.SetEntity(ent.ID, ent)
	}
}
