package engine

import (
	"context"

	"github.com/nathoo/osricore/types"
)

// DefaultPriority is used by stages that do not set one.
const DefaultPriority = 100

// Rule is one gated piece of mechanic logic. Rules are stateless: anything
// that varies per command lives in the GameContext's temporary store, so
// one Rule value can serve every command routed to its chain.
type Rule interface {
	Name() string
	// Priority orders rules within a chain; lower runs earlier.
	Priority() int
	// Prerequisites names rules that must be registered somewhere in the
	// engine. Checked by RuleEngine.Validate only.
	Prerequisites() []string
	// CanApply must be fast and free of side effects.
	CanApply(gc *GameContext, cmd Command) bool
	// Apply performs the effect. A returned error is a wiring or programming
	// bug; in-model negative outcomes are Failure results.
	Apply(ctx context.Context, gc *GameContext, cmd Command) (types.Result, error)
}

// Stage declares a rule as data: a predicate and an effect with a name and
// a position in its pipeline.
type Stage struct {
	Name     string
	Priority int
	Requires []string
	When     func(gc *GameContext, cmd Command) bool
	Do       func(ctx context.Context, gc *GameContext, cmd Command) (types.Result, error)
}

// Pipeline is the ordered set of stages for one command type. Config, when
// set, overrides the engine's default chain configuration.
type Pipeline struct {
	CommandType string
	Config      *types.ChainConfig
	Stages      []Stage
}

// NewRule turns a stage into a Rule. A zero Priority becomes DefaultPriority
// and a nil When always applies.
func NewRule(s Stage) Rule {
	if s.Priority == 0 {
		s.Priority = DefaultPriority
	}
	return stageRule{s}
}

type stageRule struct {
	s Stage
}

func (r stageRule) Name() string  { return r.s.Name }
func (r stageRule) Priority() int { return r.s.Priority }

func (r stageRule) Prerequisites() []string {
	return append([]string(nil), r.s.Requires...)
}

func (r stageRule) CanApply(gc *GameContext, cmd Command) bool {
	if r.s.When == nil {
		return true
	}
	return r.s.When(gc, cmd)
}

func (r stageRule) Apply(ctx context.Context, gc *GameContext, cmd Command) (types.Result, error) {
	if r.s.Do == nil {
		return Success(r.s.Name), nil
	}
	return r.s.Do(ctx, gc, cmd)
}
