package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nathoo/osricore/types"
)

// RuleChain is the ordered collection of rules registered for one command
// type.
type RuleChain struct {
	cfg   types.ChainConfig
	rules []Rule // registration order
}

// NewRuleChain creates a chain with cfg and the given rules.
func NewRuleChain(cfg types.ChainConfig, rules ...Rule) (*RuleChain, error) {
	c := &RuleChain{cfg: cfg}
	for _, r := range rules {
		if err := c.AddRule(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AddRule appends r. Rule names are unique within a chain.
func (c *RuleChain) AddRule(r Rule) error {
	if r == nil {
		return errors.New("add rule: nil rule")
	}
	if r.Name() == "" {
		return errors.New("add rule: rule has no name")
	}
	if c.Has(r.Name()) {
		return fmt.Errorf("add rule: duplicate rule name %q", r.Name())
	}
	c.rules = append(c.rules, r)
	return nil
}

// removeRule removes the rule called name. It reports whether one was removed.
// Registered chains are edited through RuleEngine.RemoveRuleFromChain, which
// keeps at least one rule.
func (c *RuleChain) removeRule(name string) bool {
	for i, r := range c.rules {
		if r.Name() == name {
			c.rules = append(c.rules[:i], c.rules[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether a rule called name is registered.
func (c *RuleChain) Has(name string) bool {
	for _, r := range c.rules {
		if r.Name() == name {
			return true
		}
	}
	return false
}

// Rules returns the rules in registration order.
func (c *RuleChain) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Len returns the number of registered rules.
func (c *RuleChain) Len() int {
	return len(c.rules)
}

// Config returns the chain configuration.
func (c *RuleChain) Config() types.ChainConfig {
	return c.cfg
}

// StepOutcome records one executed rule.
type StepOutcome struct {
	Rule   string
	Result types.Result
	Err    error // set when the rule errored; Result holds the converted failure
}

// ChainRun is the detailed outcome of one chain execution.
type ChainRun struct {
	Result  types.Result
	Steps   []StepOutcome
	Skipped []string // rules whose CanApply returned false
	Stopped bool     // applicable rules were left unexecuted
}

// Executed returns the names of the rules that ran, in order.
func (r ChainRun) Executed() []string {
	names := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		names[i] = s.Rule
	}
	return names
}

// Execute runs the chain and returns only the folded result.
func (c *RuleChain) Execute(ctx context.Context, gc *GameContext, cmd Command) (types.Result, error) {
	run, err := c.Run(ctx, gc, cmd)
	return run.Result, err
}

// Run executes the applicable rules one at a time in ascending priority
// (registration order breaks ties) and folds their results.
//
// Folding: effects and damage concatenate; each rule's data is stored under
// its own name; any failure makes the chain a failure carrying the most
// recent failure message. With MergeResults disabled the first executed
// rule's result is the chain result.
//
// A rule error or panic becomes a critical failure for that rule. Only
// configuration errors are returned as errors.
func (c *RuleChain) Run(ctx context.Context, gc *GameContext, cmd Command) (run ChainRun, err error) {
	if c.cfg.ClearTemporary {
		defer gc.Temporary().Clear()
	}

	applicable := make([]Rule, 0, len(c.rules))
	for _, r := range c.rules {
		ok, cerr := safeCanApply(r, gc, cmd)
		if cerr != nil {
			step := c.errorStep(r, cerr)
			run.Steps = append(run.Steps, step)
			run.Result = step.Result
			return run, nil
		}
		if ok {
			applicable = append(applicable, r)
		} else {
			run.Skipped = append(run.Skipped, r.Name())
		}
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Priority() < applicable[j].Priority()
	})

	if len(applicable) == 0 {
		run.Result = Success(fmt.Sprintf("no applicable rules for %s", cmd.Type()))
		return run, nil
	}

	var (
		effects  []string
		damage   []int
		data     = map[string]any{}
		failed   bool
		critical bool
		failMsg  string
		lastMsg  string
		stop     bool
	)

	for i, r := range applicable {
		res, aerr := safeApply(ctx, r, gc, cmd)
		step := StepOutcome{Rule: r.Name(), Result: res}
		if aerr != nil {
			if IsConfigError(aerr) {
				return run, aerr
			}
			step = c.errorStep(r, aerr)
			res = step.Result
		}
		run.Steps = append(run.Steps, step)

		if !c.cfg.MergeResults {
			if res.Data != nil {
				res.Data = map[string]any{r.Name(): res.Data}
			}
			run.Result = res
			run.Stopped = i < len(applicable)-1
			return run, nil
		}

		effects = append(effects, res.Effects...)
		damage = append(damage, res.Damage...)
		if res.Data != nil {
			data[r.Name()] = res.Data
		}
		lastMsg = res.Message
		if Failed(res) {
			failed = true
			failMsg = res.Message
			critical = critical || res.Critical
		}

		if res.Critical || res.StopChain || (Failed(res) && c.cfg.StopOnFailure) {
			stop = true
			run.Stopped = i < len(applicable)-1
			break
		}
	}

	var result types.Result
	if failed {
		result = types.Result{Kind: types.KindFailure, Message: failMsg, Critical: critical}
	} else {
		result = types.Result{Kind: types.KindSuccess, Message: lastMsg}
	}
	result.Effects = effects
	result.Damage = damage
	if len(data) > 0 {
		result.Data = data
	}
	result.StopChain = stop || critical
	run.Result = result
	return run, nil
}

func (c *RuleChain) errorStep(r Rule, err error) StepOutcome {
	return StepOutcome{
		Rule:   r.Name(),
		Result: Failure(fmt.Sprintf("rule %s: %v", r.Name(), err), Critical()),
		Err:    err,
	}
}

func safeCanApply(r Rule, gc *GameContext, cmd Command) (ok bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{where: "CanApply", value: v}
		}
	}()
	return r.CanApply(gc, cmd), nil
}

func safeApply(ctx context.Context, r Rule, gc *GameContext, cmd Command) (res types.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{where: "Apply", value: v}
		}
	}()
	return r.Apply(ctx, gc, cmd)
}
