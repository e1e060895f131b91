package engine

import (
	"context"

	"github.com/nathoo/osricore/types"
)

// spyRule records the order rules run in through a shared log.
type spyRule struct {
	name     string
	priority int
	requires []string
	applies  bool
	result   types.Result
	err      error
	panicVal any
	log      *[]string
}

func (r *spyRule) Name() string            { return r.name }
func (r *spyRule) Priority() int           { return r.priority }
func (r *spyRule) Prerequisites() []string { return r.requires }

func (r *spyRule) CanApply(*GameContext, Command) bool { return r.applies }

func (r *spyRule) Apply(context.Context, *GameContext, Command) (types.Result, error) {
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
	if r.panicVal != nil {
		panic(r.panicVal)
	}
	return r.result, r.err
}

func okRule(name string, priority int, log *[]string) *spyRule {
	return &spyRule{name: name, priority: priority, applies: true, result: Success(name), log: log}
}

// testCommand is a command whose precondition is fixed at construction.
type testCommand struct {
	BaseCommand
	allowed  bool
	required []string
	prepared *bool
}

func newTestCommand(kind string, allowed bool) *testCommand {
	return &testCommand{BaseCommand: NewBaseCommand(kind, "fighter", "goblin"), allowed: allowed}
}

func (c *testCommand) RequiredRules() []string     { return c.required }
func (c *testCommand) CanExecute(*GameContext) bool { return c.allowed }

func (c *testCommand) Execute(ctx context.Context, gc *GameContext) (types.Result, error) {
	return Dispatch(ctx, gc, c)
}

type preparedCommand struct {
	*testCommand
	prepareErr error
}

func (c *preparedCommand) Prepare(gc *GameContext) error {
	*c.prepared = true
	return c.prepareErr
}

func testConfig() types.EngineConfig {
	cfg := DefaultConfig()
	cfg.EnableLogging = false
	return cfg
}
