package osric

import (
	"context"
	"strconv"

	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/engine/parser"
	"github.com/nathoo/osricore/types"
)

// AttackCommand is one melee or missile attack against a single target.
type AttackCommand struct {
	engine.BaseCommand
	weapon string
	bonus  int
}

// NewAttackCommand validates its parameters; bonus is a situational to-hit
// modifier.
func NewAttackCommand(attacker, target, weapon string, bonus int) (*AttackCommand, error) {
	c := engine.NewChecks(CommandAttack)
	c.Require(attacker != "", "attacker is required")
	c.Require(target != "", "target is required")
	c.Require(attacker == "" || attacker != target, "%s cannot attack itself", attacker)
	c.Require(bonus >= -10 && bonus <= 10, "bonus %d is outside -10..10", bonus)
	if err := c.Err(); err != nil {
		return nil, err
	}
	return &AttackCommand{
		BaseCommand: engine.NewBaseCommand(CommandAttack, attacker, target),
		weapon:      weapon,
		bonus:       bonus,
	}, nil
}

func (c *AttackCommand) RequiredRules() []string {
	return []string{RuleAttackRoll, RuleDamageRoll, RuleApplyDamage}
}

// CanExecute requires a conscious attacker and a target that is not dead.
func (c *AttackCommand) CanExecute(gc *engine.GameContext) bool {
	attacker, ok := gc.Entity(c.ActorID())
	if !ok || !Conscious(attacker) {
		return false
	}
	target, ok := gc.Entity(c.TargetIDs()[0])
	return ok && Status(target) != StatusDead
}

func (c *AttackCommand) Prepare(gc *engine.GameContext) error {
	engine.SetTemporary(gc, AttackContextKey, AttackContext{
		Attacker: c.ActorID(),
		Target:   c.TargetIDs()[0],
		Weapon:   c.weapon,
		Bonus:    c.bonus,
	})
	return nil
}

func (c *AttackCommand) Execute(ctx context.Context, gc *engine.GameContext) (types.Result, error) {
	return engine.Dispatch(ctx, gc, c)
}

// MoveCommand moves an actor a distance in feet this round.
type MoveCommand struct {
	engine.BaseCommand
	distance int
}

// NewMoveCommand validates its parameters.
func NewMoveCommand(mover string, distance int) (*MoveCommand, error) {
	c := engine.NewChecks(CommandMove)
	c.Require(mover != "", "mover is required")
	c.Require(distance > 0, "distance must be positive, got %d", distance)
	if err := c.Err(); err != nil {
		return nil, err
	}
	return &MoveCommand{
		BaseCommand: engine.NewBaseCommand(CommandMove, mover),
		distance:    distance,
	}, nil
}

func (c *MoveCommand) RequiredRules() []string {
	return []string{RuleMovementRate, RuleDistanceCheck, RuleApplyMovement}
}

func (c *MoveCommand) CanExecute(gc *engine.GameContext) bool {
	mover, ok := gc.Entity(c.ActorID())
	return ok && Conscious(mover)
}

func (c *MoveCommand) Prepare(gc *engine.GameContext) error {
	engine.SetTemporary(gc, MoveRequestKey, MoveRequest{Mover: c.ActorID(), Distance: c.distance})
	return nil
}

func (c *MoveCommand) Execute(ctx context.Context, gc *engine.GameContext) (types.Result, error) {
	return engine.Dispatch(ctx, gc, c)
}

// SurvivalCommand is a system shock or death save for one subject. Failure
// is critical: the subject dies.
type SurvivalCommand struct {
	engine.BaseCommand
	reason string
}

// NewSystemShockCommand builds a percentile system shock check.
func NewSystemShockCommand(subject, reason string) (*SurvivalCommand, error) {
	return newSurvivalCommand(CommandSystemShock, subject, reason)
}

// NewDeathSaveCommand builds a saving throw versus death.
func NewDeathSaveCommand(subject, reason string) (*SurvivalCommand, error) {
	return newSurvivalCommand(CommandDeathSave, subject, reason)
}

func newSurvivalCommand(kind, subject, reason string) (*SurvivalCommand, error) {
	c := engine.NewChecks(kind)
	c.Require(subject != "", "subject is required")
	if err := c.Err(); err != nil {
		return nil, err
	}
	return &SurvivalCommand{BaseCommand: engine.NewBaseCommand(kind, subject), reason: reason}, nil
}

func (c *SurvivalCommand) RequiredRules() []string {
	if c.Type() == CommandDeathSave {
		return []string{RuleDeathSaveRoll, RuleDeathSaveOutcome}
	}
	return []string{RuleSystemShockRoll, RuleSystemShockOutcome}
}

// CanExecute only requires a subject that is still alive; unconscious
// characters roll too.
func (c *SurvivalCommand) CanExecute(gc *engine.GameContext) bool {
	ent, ok := gc.Entity(c.ActorID())
	return ok && Status(ent) != StatusDead
}

func (c *SurvivalCommand) Prepare(gc *engine.GameContext) error {
	engine.SetTemporary(gc, SurvivalCheckKey, SurvivalCheck{Subject: c.ActorID(), Reason: c.reason})
	return nil
}

func (c *SurvivalCommand) Execute(ctx context.Context, gc *engine.GameContext) (types.Result, error) {
	return engine.Dispatch(ctx, gc, c)
}

// Factories returns a command factory per command type for input built by
// the parser.
func Factories() map[string]engine.Factory {
	return map[string]engine.Factory{
		CommandAttack:      attackFromRequest,
		CommandMove:        moveFromRequest,
		CommandSystemShock: survivalFromRequest(NewSystemShockCommand),
		CommandDeathSave:   survivalFromRequest(NewDeathSaveCommand),
	}
}

func attackFromRequest(req types.Request) (engine.Command, error) {
	bonus, err := intParam(req, "bonus", 0)
	if err != nil {
		return nil, err
	}
	weapon := req.Params[parser.WithParam]
	if w, ok := req.Params["weapon"]; ok {
		weapon = w
	}
	cmd, err := NewAttackCommand(req.Actor, first(req.Targets), weapon, bonus)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func moveFromRequest(req types.Request) (engine.Command, error) {
	name := parser.AmountParam
	if _, ok := req.Params["distance"]; ok {
		name = "distance"
	}
	distance, err := intParam(req, name, 0)
	if err != nil {
		return nil, err
	}
	cmd, err := NewMoveCommand(req.Actor, distance)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func survivalFromRequest(build func(subject, reason string) (*SurvivalCommand, error)) engine.Factory {
	return func(req types.Request) (engine.Command, error) {
		cmd, err := build(req.Actor, req.Params["reason"])
		if err != nil {
			return nil, err
		}
		return cmd, nil
	}
}

func intParam(req types.Request, name string, def int) (int, error) {
	raw, ok := req.Params[name]
	if !ok {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c := engine.NewChecks(req.Verb)
		c.Require(false, "%s must be a number, got %q", name, raw)
		return 0, c.Err()
	}
	return v, nil
}

func first(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
