// Package types defines the shared data structures for the osricore engine.
// This package contains only type definitions; it holds no logic.
package types

import "time"

// Kind discriminates a Result.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
)

// Result is the outcome of a rule, a rule chain, or a whole command.
// The same shape is used at every level.
type Result struct {
	Kind    Kind
	Message string
	Data    map[string]any
	Effects []string
	Damage  []int

	// StopChain ends the remaining rules of the current chain invocation.
	StopChain bool
	// Critical is only meaningful on failures and always implies StopChain.
	Critical bool
}

// Entity is a snapshot of a game actor or item. The core treats Props as
// opaque; rule content gives them meaning.
type Entity struct {
	ID    string
	Kind  string // "character", "monster", "item"
	Name  string
	Props map[string]any
}

// ChainConfig controls how a rule chain folds and terminates.
type ChainConfig struct {
	StopOnFailure  bool
	MergeResults   bool
	ClearTemporary bool
}

// EngineConfig configures a rule engine instance.
type EngineConfig struct {
	DefaultChain     ChainConfig
	EnableLogging    bool
	EnableMetrics    bool
	CriticalCommands []string // command types whose failure halts a batch
}

// Metrics is a snapshot of rule engine counters.
type Metrics struct {
	CommandsProcessed    int
	AverageExecutionTime time.Duration
	SuccessRate          float64
	RuleChainUsage       map[string]int
}

// Request is the parsed representation of an input line.
type Request struct {
	Verb    string
	Actor   string
	Targets []string
	Params  map[string]string
}

// Effect is one atomic operation performed by a scripted rule.
type Effect struct {
	Type   string
	Params map[string]any
}

// Condition is a predicate that must be true for a scripted rule to apply.
type Condition struct {
	Type   string         // "actor_prop", "target_prop", "temp_set", "temp_not", "has_entity", "not"
	Params map[string]any // condition-specific parameters
	Inner  *Condition     // for Not(): the negated inner condition
}

// RuleDef is a rule declared in a scenario script.
type RuleDef struct {
	ID          string
	Command     string // command type whose chain the rule joins
	Priority    int
	Requires    []string
	Conditions  []Condition
	Effects     []Effect
	SourceOrder int
}

// Scenario is everything a scenario script declares.
type Scenario struct {
	Title    string
	Entities []Entity
	Rules    []RuleDef
	Chains   map[string]ChainConfig
}
