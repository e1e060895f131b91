package script

import (
	"context"

	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/types"
)

// Command is the command built for verbs that only scripted rules handle.
// It carries the request parameters so conditions and effects can read them
// from the temporary store under "param.<name>".
type Command struct {
	engine.BaseCommand
	params map[string]string
}

// NewCommand builds a command from a resolved request.
func NewCommand(req types.Request) (*Command, error) {
	c := engine.NewChecks(req.Verb)
	c.Require(req.Verb != "", "verb is required")
	c.Require(req.Actor != "", "actor is required")
	if err := c.Err(); err != nil {
		return nil, err
	}
	params := make(map[string]string, len(req.Params))
	for k, v := range req.Params {
		params[k] = v
	}
	return &Command{
		BaseCommand: engine.NewBaseCommand(req.Verb, req.Actor, req.Targets...),
		params:      params,
	}, nil
}

func (c *Command) RequiredRules() []string { return nil }

// CanExecute requires the actor and every target to exist.
func (c *Command) CanExecute(gc *engine.GameContext) bool {
	return engine.EntitiesPresent(gc, c.InvolvedEntities()...)
}

// Prepare exposes the request parameters to scripted rules.
func (c *Command) Prepare(gc *engine.GameContext) error {
	for k, v := range c.params {
		gc.Temporary().SetValue("param."+k, v)
	}
	return nil
}

func (c *Command) Execute(ctx context.Context, gc *engine.GameContext) (types.Result, error) {
	return engine.Dispatch(ctx, gc, c)
}
