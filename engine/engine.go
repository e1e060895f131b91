// Package engine provides the command/rule orchestration core: commands,
// rules, rule chains, the game context they share, and the rule engine that
// routes each command to its chain and tracks metrics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathoo/osricore/observe"
	"github.com/nathoo/osricore/types"
)

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() types.EngineConfig {
	return types.EngineConfig{
		DefaultChain: types.ChainConfig{
			StopOnFailure:  false,
			MergeResults:   true,
			ClearTemporary: false,
		},
		EnableLogging:    true,
		EnableMetrics:    true,
		CriticalCommands: []string{"system-shock", "death-save"},
	}
}

// RuleEngine owns the command type → chain registry and the engine metrics.
// Each instance is independent; sessions that must not share metrics use
// separate engines.
type RuleEngine struct {
	cfg      types.EngineConfig
	chains   map[string]*RuleChain
	critical map[string]bool
	stats    *rollingStats
	logger   *slog.Logger
	inst     *observe.Metrics
	now      func() time.Time
}

// Option customizes a RuleEngine.
type Option func(*RuleEngine)

// WithLogger sets the logger used when logging is enabled.
func WithLogger(l *slog.Logger) Option {
	return func(e *RuleEngine) { e.logger = l }
}

// WithInstruments records OpenTelemetry metrics alongside the built-in ones.
func WithInstruments(m *observe.Metrics) Option {
	return func(e *RuleEngine) { e.inst = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *RuleEngine) { e.now = now }
}

// New creates an engine with no chains registered.
func New(cfg types.EngineConfig, opts ...Option) *RuleEngine {
	e := &RuleEngine{
		cfg:      cfg,
		chains:   map[string]*RuleChain{},
		critical: map[string]bool{},
		stats:    newRollingStats(),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, t := range cfg.CriticalCommands {
		e.critical[t] = true
	}
	for _, opt := range opts {
		opt(e)
	}
	if !cfg.EnableLogging {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Config returns the engine configuration.
func (e *RuleEngine) Config() types.EngineConfig {
	return e.cfg
}

// RegisterRuleChain stores chain for commandType, replacing any previous
// chain. An empty chain is a configuration error and is not stored.
func (e *RuleEngine) RegisterRuleChain(commandType string, chain *RuleChain) error {
	if commandType == "" {
		return &ConfigError{Err: errors.New("command type is empty")}
	}
	if chain == nil || chain.Len() == 0 {
		return &ConfigError{CommandType: commandType, Err: ErrEmptyChain}
	}
	e.chains[commandType] = chain
	return nil
}

// CreateRuleChain builds a chain from rules and registers it. A nil cfg uses
// the engine's default chain configuration.
func (e *RuleEngine) CreateRuleChain(commandType string, cfg *types.ChainConfig, rules ...Rule) (*RuleChain, error) {
	c := e.cfg.DefaultChain
	if cfg != nil {
		c = *cfg
	}
	chain, err := NewRuleChain(c, rules...)
	if err != nil {
		return nil, fmt.Errorf("create chain %q: %w", commandType, err)
	}
	if err := e.RegisterRuleChain(commandType, chain); err != nil {
		return nil, err
	}
	return chain, nil
}

// RegisterPipeline creates and registers the chain described by p.
func (e *RuleEngine) RegisterPipeline(p Pipeline) error {
	rules := make([]Rule, len(p.Stages))
	for i, s := range p.Stages {
		rules[i] = NewRule(s)
	}
	_, err := e.CreateRuleChain(p.CommandType, p.Config, rules...)
	return err
}

// AddRuleToChain adds r to the chain for commandType. It reports false when
// no chain is registered for the type or the chain rejects the rule.
func (e *RuleEngine) AddRuleToChain(commandType string, r Rule) bool {
	chain, ok := e.chains[commandType]
	if !ok {
		return false
	}
	return chain.AddRule(r) == nil
}

// RemoveRuleFromChain removes the rule called name from the chain for
// commandType. Removing a chain's last rule is refused with ErrEmptyChain.
func (e *RuleEngine) RemoveRuleFromChain(commandType, name string) error {
	chain, ok := e.chains[commandType]
	if !ok {
		return &ConfigError{CommandType: commandType, Err: ErrNoChain}
	}
	if !chain.Has(name) {
		return fmt.Errorf("remove rule %q from %s: not registered", name, commandType)
	}
	if chain.Len() == 1 {
		return &ConfigError{CommandType: commandType, Err: ErrEmptyChain}
	}
	chain.removeRule(name)
	return nil
}

// Chain returns the chain registered for commandType.
func (e *RuleEngine) Chain(commandType string) (*RuleChain, bool) {
	c, ok := e.chains[commandType]
	return c, ok
}

// CommandTypes returns the registered command types, sorted.
func (e *RuleEngine) CommandTypes() []string {
	out := make([]string, 0, len(e.chains))
	for t := range e.chains {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IsCritical reports whether a failure of commandType halts a batch.
func (e *RuleEngine) IsCritical(commandType string) bool {
	return e.critical[commandType]
}

// Process runs cmd end to end: precondition, chain lookup, preparation,
// chain execution, metrics.
//
// A false precondition is an ordinary failure result and the chain is never
// invoked. A missing chain is a *ConfigError returned as err. Every other
// error or panic raised by the command or its rules is converted into a
// failure result.
func (e *RuleEngine) Process(ctx context.Context, cmd Command, gc *GameContext) (res types.Result, err error) {
	ctx, span := observe.StartSpan(ctx, "engine.process", trace.WithAttributes(
		attribute.String("command_type", cmd.Type()),
		attribute.String("command_id", cmd.ID()),
	))
	defer span.End()

	log := observe.LoggerFrom(ctx, e.logger).With(
		slog.String("command_type", cmd.Type()),
		slog.String("command_id", cmd.ID()),
		slog.String("actor", cmd.ActorID()),
	)

	start := e.now()
	e.beginCommand()
	defer func() {
		e.finishCommand(ctx, cmd.Type(), res, err, e.now().Sub(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	log.Debug("processing command", slog.Any("targets", cmd.TargetIDs()))

	ok, perr := safeCanExecute(cmd, gc)
	if perr != nil {
		log.Warn("precondition check failed unexpectedly", slog.Any("error", perr))
		return Failure(perr.Error()), nil
	}
	if !ok {
		log.Info("command precondition not met")
		return Failure(fmt.Sprintf("%s cannot be executed", cmd.Type())), nil
	}

	chain, found := e.chains[cmd.Type()]
	if !found {
		err := &ConfigError{CommandType: cmd.Type(), Err: ErrNoChain}
		log.Error("no rule chain for command", slog.Any("error", err))
		return types.Result{}, err
	}
	if chain.Len() == 0 {
		err := &ConfigError{CommandType: cmd.Type(), Err: ErrEmptyChain}
		log.Error("rule chain for command is empty", slog.Any("error", err))
		return types.Result{}, err
	}

	if p, ok := cmd.(Preparer); ok {
		if perr := safePrepare(p, gc); perr != nil {
			if IsConfigError(perr) {
				return types.Result{}, perr
			}
			log.Warn("command preparation failed", slog.Any("error", perr))
			return Failure(perr.Error()), nil
		}
	}

	e.recordChainUsage(cmd.Type())
	run, err := chain.Run(ctx, gc, cmd)
	if err != nil {
		log.Error("rule chain configuration error", slog.Any("error", err))
		return types.Result{}, err
	}
	e.recordSteps(ctx, run, log)

	log.Debug("rule chain executed",
		slog.Any("executed", run.Executed()),
		slog.Any("skipped", run.Skipped),
		slog.Bool("stopped", run.Stopped),
		slog.String("kind", string(run.Result.Kind)),
	)
	return run.Result, nil
}

// ProcessBatch processes cmds in order against gc. When a command whose type
// is on the critical list fails, the remaining commands are not processed.
// The returned slice holds one result per processed command.
func (e *RuleEngine) ProcessBatch(ctx context.Context, cmds []Command, gc *GameContext) ([]types.Result, error) {
	results := make([]types.Result, 0, len(cmds))
	for i, cmd := range cmds {
		res, err := e.Process(ctx, cmd, gc)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		if Failed(res) && e.IsCritical(cmd.Type()) {
			e.logger.Info("critical command failed; halting batch",
				slog.String("command_type", cmd.Type()),
				slog.Int("remaining", len(cmds)-i-1),
			)
			break
		}
	}
	return results, nil
}

// Validate checks the registry at startup: at least one chain, no empty
// chain, and every rule prerequisite registered somewhere.
func (e *RuleEngine) Validate() error {
	ve := &ValidationError{Subject: "rule engine"}
	if len(e.chains) == 0 {
		ve.Problems = append(ve.Problems, "no rule chains registered")
	}

	known := map[string]bool{}
	for _, chain := range e.chains {
		for _, r := range chain.rules {
			known[r.Name()] = true
		}
	}

	for _, t := range e.CommandTypes() {
		chain := e.chains[t]
		if chain.Len() == 0 {
			ve.Problems = append(ve.Problems, fmt.Sprintf("chain %q has no rules", t))
		}
		for _, r := range chain.rules {
			for _, pre := range r.Prerequisites() {
				if !known[pre] {
					ve.Problems = append(ve.Problems, fmt.Sprintf(
						"rule %q in chain %q requires unregistered rule %q", r.Name(), t, pre))
				}
			}
		}
	}

	if len(ve.Problems) > 0 {
		return ve
	}
	return nil
}

// ValidateCommand checks that the chain for cmd's type carries every rule
// the command declares it needs.
func (e *RuleEngine) ValidateCommand(cmd Command) error {
	chain, ok := e.chains[cmd.Type()]
	if !ok {
		return &ConfigError{CommandType: cmd.Type(), Err: ErrNoChain}
	}
	ve := &ValidationError{Subject: cmd.Type()}
	for _, name := range cmd.RequiredRules() {
		if !chain.Has(name) {
			ve.Problems = append(ve.Problems, fmt.Sprintf("required rule %q is not registered", name))
		}
	}
	if len(ve.Problems) > 0 {
		return ve
	}
	return nil
}

func (e *RuleEngine) recordSteps(ctx context.Context, run ChainRun, log *slog.Logger) {
	for _, s := range run.Steps {
		if s.Err != nil {
			log.Warn("rule failed unexpectedly", slog.String("rule", s.Rule), slog.Any("error", s.Err))
		}
		if e.inst == nil || !e.cfg.EnableMetrics {
			continue
		}
		e.inst.RecordRule(ctx, s.Rule, string(s.Result.Kind))
		if s.Err != nil {
			e.inst.RecordRuleError(ctx, s.Rule)
		}
	}
}

func safeCanExecute(cmd Command, gc *GameContext) (ok bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{where: "CanExecute", value: v}
		}
	}()
	return cmd.CanExecute(gc), nil
}

func safePrepare(p Preparer, gc *GameContext) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{where: "Prepare", value: v}
		}
	}()
	return p.Prepare(gc)
}
