package osric

import (
	"context"
	"fmt"

	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/engine/state"
	"github.com/nathoo/osricore/types"
)

// DefaultMovement is the unencumbered base rate in feet per round.
const DefaultMovement = 120

// encumbrance bands: carried weight up to Limit pounds keeps Percent of the
// base rate. Heavier loads cannot move.
var encumbrance = []struct {
	Limit   int
	Percent int
}{
	{35, 100},
	{70, 75},
	{105, 50},
	{150, 25},
}

// MovementRate applies the encumbrance bands to a base rate.
func MovementRate(base, carried int) int {
	for _, band := range encumbrance {
		if carried <= band.Limit {
			return base * band.Percent / 100
		}
	}
	return 0
}

// MovePipeline computes the mover's rate, checks the distance and moves it.
func MovePipeline() engine.Pipeline {
	return engine.Pipeline{
		CommandType: CommandMove,
		Config:      chainConfig(),
		Stages: []engine.Stage{
			{
				Name:     RuleMovementRate,
				Priority: PriorityMovementRate,
				When:     hasTemp(MoveRequestKey),
				Do:       movementRate,
			},
			{
				Name:     RuleDistanceCheck,
				Priority: PriorityDistanceCheck,
				Requires: []string{RuleMovementRate},
				When:     hasTemp(MoveRequestKey),
				Do:       distanceCheck,
			},
			{
				Name:     RuleApplyMovement,
				Priority: PriorityApplyMovement,
				Requires: []string{RuleDistanceCheck},
				When:     hasTemp(MoveRequestKey),
				Do:       applyMovement,
			},
		},
	}
}

func movementRate(_ context.Context, gc *engine.GameContext, _ engine.Command) (types.Result, error) {
	req, err := engine.RequireTemporary(gc, MoveRequestKey)
	if err != nil {
		return types.Result{}, err
	}
	mover, ok := gc.Entity(req.Mover)
	if !ok {
		return types.Result{}, fmt.Errorf("mover %q: %w", req.Mover, state.ErrUnknownEntity)
	}
	rate := MovementRate(intProp(mover, "movement", DefaultMovement), intProp(mover, "encumbrance", 0))
	engine.SetTemporary(gc, MovementRateKey, rate)
	return engine.Success(fmt.Sprintf("%s can move %d ft", mover.Name, rate),
		engine.WithData(map[string]any{"rate": rate})), nil
}

func distanceCheck(_ context.Context, gc *engine.GameContext, _ engine.Command) (types.Result, error) {
	req, err := engine.RequireTemporary(gc, MoveRequestKey)
	if err != nil {
		return types.Result{}, err
	}
	rate, err := engine.RequireTemporary(gc, MovementRateKey)
	if err != nil {
		return types.Result{}, err
	}
	if req.Distance > rate {
		return engine.Failure(fmt.Sprintf("cannot move %d ft, limit is %d ft", req.Distance, rate),
			engine.WithData(map[string]any{"distance": req.Distance})), nil
	}
	return engine.Success(fmt.Sprintf("%d ft is within %d ft", req.Distance, rate),
		engine.WithData(map[string]any{"distance": req.Distance})), nil
}

// applyMovement adds the distance to the mover's "position" prop.
func applyMovement(_ context.Context, gc *engine.GameContext, _ engine.Command) (types.Result, error) {
	req, err := engine.RequireTemporary(gc, MoveRequestKey)
	if err != nil {
		return types.Result{}, err
	}
	var pos int
	var name string
	err = gc.UpdateEntity(req.Mover, func(ent types.Entity) types.Entity {
		pos = intProp(ent, "position", 0) + req.Distance
		name = ent.Name
		return state.WithProp(ent, "position", pos)
	})
	if err != nil {
		return types.Result{}, err
	}
	return engine.Success(fmt.Sprintf("%s moves %d ft", name, req.Distance),
		engine.WithEffects(EffectMove),
		engine.WithData(map[string]any{"position": pos})), nil
}
