// Package session ties one game context, one rule engine and the command
// factories together and turns input lines into processed commands.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nathoo/osricore/config"
	"github.com/nathoo/osricore/engine"
	"github.com/nathoo/osricore/engine/dice"
	"github.com/nathoo/osricore/engine/parser"
	"github.com/nathoo/osricore/engine/resolve"
	"github.com/nathoo/osricore/loader"
	"github.com/nathoo/osricore/observe"
	"github.com/nathoo/osricore/osric"
	"github.com/nathoo/osricore/script"
	"github.com/nathoo/osricore/types"
)

var (
	// ErrEmptyInput is returned by Step for a blank line.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnknownCommand is returned by Step for a verb with no factory and
	// no registered chain.
	ErrUnknownCommand = errors.New("unknown command")
)

// Session is a single-writer game: every Step runs on the caller's
// goroutine against one GameContext.
type Session struct {
	id        string
	title     string
	eng       *engine.RuleEngine
	gc        *engine.GameContext
	factories map[string]engine.Factory
	roller    dice.Roller
	logger    *slog.Logger
}

type options struct {
	logger   *slog.Logger
	inst     *observe.Metrics
	roller   dice.Roller
	scenario *types.Scenario
}

// Option customizes a Session.
type Option func(*options)

// WithLogger sets the base logger for the session and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithInstruments records engine metrics on m.
func WithInstruments(m *observe.Metrics) Option {
	return func(o *options) { o.inst = m }
}

// WithRoller replaces the seeded RNG. The roller is owned by the session.
func WithRoller(r dice.Roller) Option {
	return func(o *options) { o.roller = r }
}

// WithScenario installs sc instead of loading cfg.Session.Scripts.
func WithScenario(sc *types.Scenario) Option {
	return func(o *options) { o.scenario = sc }
}

// New builds a session from cfg: the built-in content pack, then the
// scenario's entities and scripted rules. The engine is validated before
// the session is returned.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.roller == nil {
		seed := cfg.Session.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		o.roller = dice.NewRNG(seed)
	}

	s := &Session{
		id:        uuid.NewString(),
		roller:    o.roller,
		factories: osric.Factories(),
	}
	s.logger = o.logger.With(slog.String("session_id", s.id))

	engOpts := []engine.Option{engine.WithLogger(s.logger)}
	if o.inst != nil {
		engOpts = append(engOpts, engine.WithInstruments(o.inst))
	}
	s.eng = engine.New(cfg.ToEngineConfig(), engOpts...)
	s.gc = engine.NewGameContext(s.eng)

	defaults := cfg.ToEngineConfig().DefaultChain
	for _, p := range osric.Pipelines(s.roller) {
		base := defaults
		if p.Config != nil {
			base = *p.Config
		}
		if cc, ok := cfg.ChainOverride(p.CommandType, base); ok {
			p.Config = &cc
		}
		if err := s.eng.RegisterPipeline(p); err != nil {
			return nil, fmt.Errorf("session: register %s: %w", p.CommandType, err)
		}
	}

	sc := o.scenario
	if sc == nil && cfg.Session.Scripts != "" {
		loaded, err := loader.Load(cfg.Session.Scripts, loader.Options{
			KnownCommands: s.eng.CommandTypes(),
			KnownRules:    registeredRules(s.eng),
			Logger:        s.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		sc = loaded
	}
	if sc != nil {
		if err := s.install(cfg, sc); err != nil {
			return nil, err
		}
	}

	if err := s.eng.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	attrs := []any{slog.String("title", s.title)}
	if seed, _, ok := s.Dice(); ok {
		attrs = append(attrs, slog.Int64("seed", seed))
	}
	s.logger.Info("session ready", append(attrs,
		slog.Int("entities", s.gc.Entities().Len()),
		slog.Any("commands", s.eng.CommandTypes()),
	)...)
	return s, nil
}

// install adds a scenario's entities and rules. Chain settings from cfg are
// applied over the scenario's own, or over the engine default when the
// scenario declares none.
func (s *Session) install(cfg *config.Config, sc *types.Scenario) error {
	scoped := *sc
	scoped.Chains = maps.Clone(sc.Chains)
	if scoped.Chains == nil {
		scoped.Chains = map[string]types.ChainConfig{}
	}
	defaults := cfg.ToEngineConfig().DefaultChain
	for _, name := range cfg.ChainTypes() {
		base, ok := scoped.Chains[name]
		if !ok {
			base = defaults
		}
		scoped.Chains[name], _ = cfg.ChainOverride(name, base)
	}
	if err := script.Install(s.eng, &scoped, s.roller); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	script.Populate(s.gc, &scoped)
	s.title = sc.Title
	return nil
}

func registeredRules(eng *engine.RuleEngine) []string {
	var names []string
	for _, t := range eng.CommandTypes() {
		chain, _ := eng.Chain(t)
		for _, r := range chain.Rules() {
			names = append(names, r.Name())
		}
	}
	return names
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Title is the loaded scenario's title, if any.
func (s *Session) Title() string { return s.title }

// Engine returns the session's rule engine.
func (s *Session) Engine() *engine.RuleEngine { return s.eng }

// Context returns the session's game context.
func (s *Session) Context() *engine.GameContext { return s.gc }

// Dice reports the seed and number of dice rolled so far. ok is false when
// the session rolls on a roller other than the seeded RNG.
func (s *Session) Dice() (seed, rolls int64, ok bool) {
	rng, ok := s.roller.(*dice.RNG)
	if !ok {
		return 0, 0, false
	}
	return rng.Seed(), rng.Position(), true
}

// Metrics returns a snapshot of the engine's metrics.
func (s *Session) Metrics() types.Metrics { return s.eng.Metrics() }

// Output is the outcome of one Step.
type Output struct {
	Request   types.Request
	CommandID string
	Result    types.Result
}

// Lines renders the result for a terminal.
func (o Output) Lines() []string {
	return Format(o.Result)
}

// Step parses line, resolves names against the game context, builds the
// command and executes it. Input problems (unknown verb, unknown name,
// invalid parameters) are returned as errors alongside the parsed request;
// so are configuration errors, including a chain missing one of the
// command's required rules.
func (s *Session) Step(ctx context.Context, line string) (Output, error) {
	req := parser.Parse(line)
	out := Output{Request: req}
	if req.Verb == "" {
		return out, ErrEmptyInput
	}

	cmd, err := s.Command(req)
	if err != nil {
		return out, err
	}
	out.CommandID = cmd.ID()
	if err := s.eng.ValidateCommand(cmd); err != nil {
		if !engine.IsConfigError(err) {
			err = &engine.ConfigError{CommandType: cmd.Type(), Err: err}
		}
		return out, err
	}

	res, err := cmd.Execute(ctx, s.gc)
	if err != nil {
		return out, err
	}
	out.Result = res
	return out, nil
}

// Command resolves req and builds its command. Verbs without a factory fall
// back to a scripted command when a chain is registered for them.
func (s *Session) Command(req types.Request) (engine.Command, error) {
	resolved, err := resolve.Resolve(s.gc.Entities(), req)
	if err != nil {
		return nil, err
	}
	if with, ok := resolved.Params[parser.WithParam]; ok {
		id, err := resolve.Name(s.gc.Entities(), with)
		if err != nil {
			return nil, err
		}
		resolved.Params = maps.Clone(resolved.Params)
		resolved.Params[parser.WithParam] = id
	}

	if factory, ok := s.factories[resolved.Verb]; ok {
		return factory(resolved)
	}
	if _, ok := s.eng.Chain(resolved.Verb); ok {
		cmd, err := script.NewCommand(resolved)
		if err != nil {
			return nil, err
		}
		return cmd, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, resolved.Verb)
}

// Format renders a result as terminal lines: the message, then any damage
// dealt.
func Format(res types.Result) []string {
	var lines []string
	if res.Message != "" {
		lines = append(lines, res.Message)
	}
	if len(res.Damage) > 0 {
		parts := make([]string, len(res.Damage))
		for i, d := range res.Damage {
			parts[i] = fmt.Sprint(d)
		}
		lines = append(lines, "Damage: "+strings.Join(parts, ", "))
	}
	if res.Critical {
		lines = append(lines, "Critical failure.")
	}
	return lines
}
