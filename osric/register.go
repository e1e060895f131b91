// Package osric implements the core combat, movement and survival
// mechanics as rule chains for the engine.
package osric

import (
	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/engine/dice"
)

// Pipelines returns every built-in pipeline, all rolling on roller.
func Pipelines(roller dice.Roller) []engine.Pipeline {
	return []engine.Pipeline{
		AttackPipeline(roller),
		MovePipeline(),
		SystemShockPipeline(roller),
		DeathSavePipeline(roller),
	}
}

// Register installs every built-in pipeline on eng.
func Register(eng *engine.RuleEngine, roller dice.Roller) error {
	for _, p := range Pipelines(roller) {
		if err := eng.RegisterPipeline(p); err != nil {
			return err
		}
	}
	return nil
}
