package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration sentinels. They mean the engine was wired incorrectly and
// are never absorbed into a failure result.
var (
	ErrNoChain    = errors.New("no rule chain registered")
	ErrEmptyChain = errors.New("rule chain has no rules")
	ErrNoEngine   = errors.New("game context has no rule engine")
)

// ConfigError wraps a configuration sentinel with the command type involved.
type ConfigError struct {
	CommandType string
	Err         error
}

func (e *ConfigError) Error() string {
	if e.CommandType == "" {
		return "engine configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("engine configuration: %s for command type %q", e.Err, e.CommandType)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// ValidationError collects every problem found while validating command
// parameters or engine wiring.
type ValidationError struct {
	Subject  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed with %d problem(s):\n  %s",
		e.Subject, len(e.Problems), strings.Join(e.Problems, "\n  "))
}

// Checks accumulates parameter problems for one command constructor.
//
//	c := engine.NewChecks("attack")
//	c.Require(p.Weapon != "", "weapon is required")
//	if err := c.Err(); err != nil { return nil, err }
type Checks struct {
	subject  string
	problems []string
}

// NewChecks starts a problem list for subject.
func NewChecks(subject string) *Checks {
	return &Checks{subject: subject}
}

// Require records problem when ok is false.
func (c *Checks) Require(ok bool, format string, args ...any) {
	if !ok {
		c.problems = append(c.problems, fmt.Sprintf(format, args...))
	}
}

// Err returns a *ValidationError if any problem was recorded, else nil.
func (c *Checks) Err() error {
	if len(c.problems) == 0 {
		return nil
	}
	return &ValidationError{Subject: c.subject, Problems: append([]string(nil), c.problems...)}
}

// panicError carries a recovered panic value out of a rule or command.
type panicError struct {
	where string
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.where, e.value)
}
