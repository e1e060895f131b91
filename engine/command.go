package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/nathoo/osricore/types"
)

// Command is a validated unit of actor intent. Implementations validate their
// parameters in their constructor and return an error instead of a value
// when the parameters are invalid.
type Command interface {
	ID() string
	Type() string
	ActorID() string
	TargetIDs() []string
	// InvolvedEntities is the actor followed by the targets.
	InvolvedEntities() []string
	// RequiredRules names the rules this command expects its chain to run.
	// Checked by RuleEngine.ValidateCommand, never at processing time.
	RequiredRules() []string

	// CanExecute is a side-effect-free precondition check.
	CanExecute(gc *GameContext) bool
	// Execute runs the command, normally by delegating to the rule engine
	// exposed by gc.
	Execute(ctx context.Context, gc *GameContext) (types.Result, error)
}

// Factory builds a command from a resolved request. It returns a
// *ValidationError when the request parameters are invalid.
type Factory func(req types.Request) (Command, error)

// Preparer is implemented by commands that write a payload into the
// temporary store before their chain runs. The engine calls Prepare after
// CanExecute succeeds.
type Preparer interface {
	Prepare(gc *GameContext) error
}

// BaseCommand carries the identity every command shares. Embed it and
// implement the remaining Command methods.
type BaseCommand struct {
	id      string
	kind    string
	actor   string
	targets []string
}

// NewBaseCommand builds the shared identity for a command of type kind.
func NewBaseCommand(kind, actor string, targets ...string) BaseCommand {
	return BaseCommand{
		id:      uuid.NewString(),
		kind:    kind,
		actor:   actor,
		targets: append([]string(nil), targets...),
	}
}

func (b BaseCommand) ID() string      { return b.id }
func (b BaseCommand) Type() string    { return b.kind }
func (b BaseCommand) ActorID() string { return b.actor }

// TargetIDs returns a copy of the target list.
func (b BaseCommand) TargetIDs() []string {
	return append([]string(nil), b.targets...)
}

func (b BaseCommand) InvolvedEntities() []string {
	return append([]string{b.actor}, b.targets...)
}

// Dispatch hands cmd to the rule engine attached to gc. Commands call it
// from Execute.
func Dispatch(ctx context.Context, gc *GameContext, cmd Command) (types.Result, error) {
	eng := gc.RuleEngine()
	if eng == nil {
		return types.Result{}, &ConfigError{CommandType: cmd.Type(), Err: ErrNoEngine}
	}
	return eng.Process(ctx, cmd, gc)
}

// EntitiesPresent reports whether every id exists in gc. Commands use it in
// CanExecute.
func EntitiesPresent(gc *GameContext, ids ...string) bool {
	for _, id := range ids {
		if id == "" || !gc.HasEntity(id) {
			return false
		}
	}
	return true
}
