// Package dice provides the deterministic random source rule content rolls
// against, plus standard dice notation ("1d8+1", "d20", "3d6-2").
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

var (
	// ErrInvalidNotation is returned for notation that is not NdS[+/-M].
	ErrInvalidNotation = errors.New("invalid dice notation")
	// ErrInvalidDice is returned for a zero or negative count or side count.
	ErrInvalidDice = errors.New("dice count and sides must be positive")
)

// Roller is the random source rules depend on.
type Roller interface {
	// Roll returns an integer in [1, sides].
	Roll(sides int) int
}

// RNG wraps math/rand.Rand with position tracking. Position increments with
// every die rolled; a transcript records it next to the seed.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a deterministic RNG from seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Roll returns an integer in [1, sides].
func (r *RNG) Roll(sides int) int {
	r.pos++
	return r.src.Intn(sides) + 1
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 { return r.seed }

// Position returns the number of dice rolled since creation.
func (r *RNG) Position() int64 { return r.pos }

// Fixed replays a scripted sequence of rolls, cycling when exhausted. It
// ignores the requested side count; tests use it to force outcomes.
type Fixed struct {
	values []int
	next   int
}

// NewFixed returns a roller that yields values in order.
func NewFixed(values ...int) *Fixed {
	return &Fixed{values: values}
}

func (f *Fixed) Roll(int) int {
	if len(f.values) == 0 {
		return 1
	}
	v := f.values[f.next%len(f.values)]
	f.next++
	return v
}

// Expr is a parsed dice expression: Count dice with Sides sides plus
// Modifier.
type Expr struct {
	Count    int
	Sides    int
	Modifier int
}

// Parse reads NdS, dS, NdS+M or NdS-M. Whitespace and case are ignored.
func Parse(notation string) (Expr, error) {
	s := strings.ToLower(strings.ReplaceAll(notation, " ", ""))
	d := strings.IndexByte(s, 'd')
	if d < 0 {
		return Expr{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}

	e := Expr{Count: 1}
	if d > 0 {
		n, err := strconv.Atoi(s[:d])
		if err != nil {
			return Expr{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
		}
		e.Count = n
	}

	rest := s[d+1:]
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		m, err := strconv.Atoi(rest[i:])
		if err != nil {
			return Expr{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
		}
		e.Modifier = m
		rest = rest[:i]
	}
	sides, err := strconv.Atoi(rest)
	if err != nil {
		return Expr{}, fmt.Errorf("%w: %q", ErrInvalidNotation, notation)
	}
	e.Sides = sides

	if e.Count <= 0 || e.Sides <= 0 {
		return Expr{}, fmt.Errorf("%w: %q", ErrInvalidDice, notation)
	}
	return e, nil
}

// MustParse is Parse for notation known at compile time.
func MustParse(notation string) Expr {
	e, err := Parse(notation)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Expr) String() string {
	s := fmt.Sprintf("%dd%d", e.Count, e.Sides)
	switch {
	case e.Modifier > 0:
		s += fmt.Sprintf("+%d", e.Modifier)
	case e.Modifier < 0:
		s += strconv.Itoa(e.Modifier)
	}
	return s
}

// Outcome is one evaluated expression.
type Outcome struct {
	Expr  Expr
	Rolls []int
	Total int
}

func (o Outcome) String() string {
	parts := make([]string, len(o.Rolls))
	for i, r := range o.Rolls {
		parts[i] = strconv.Itoa(r)
	}
	return fmt.Sprintf("%s [%s] = %d", o.Expr, strings.Join(parts, ","), o.Total)
}

// Roll evaluates e against r.
func (e Expr) Roll(r Roller) Outcome {
	out := Outcome{Expr: e, Rolls: make([]int, e.Count)}
	for i := range e.Count {
		v := r.Roll(e.Sides)
		out.Rolls[i] = v
		out.Total += v
	}
	out.Total += e.Modifier
	return out
}

// RollNotation parses notation and rolls it against r.
func RollNotation(r Roller, notation string) (Outcome, error) {
	e, err := Parse(notation)
	if err != nil {
		return Outcome{}, err
	}
	return e.Roll(r), nil
}
