package domain

import (
	"fmt"
	"math"
)

// Rule decides whether a set of variable substitutions satisfies a
// parametrized question. Predicate is the shipped implementation; the
// interface keeps the formula grammar pluggable.
type Rule interface {
	Holds(vars map[string]float64) (bool, error)
}

// Predicate kinds.
const (
	PredicateEquals = "equals" // one variable vs Expected within tolerance
	PredicateRange  = "range"  // one variable within [Min, Max]
	PredicateLinear = "linear" // sum(Terms[k]*vars[k]) + Constant vs Expected
)

// Predicate is a stored correctness rule for parametrized questions. A single
// tagged struct rather than an interface hierarchy so it round-trips through
// JSONB and Redis unchanged.
type Predicate struct {
	Kind     string `json:"kind"`
	Variable string `json:"variable,omitempty"`

	Expected  float64 `json:"expected,omitempty"`
	Tolerance float64 `json:"tolerance,omitempty"`
	// Relative interprets Tolerance as a fraction of Expected instead of an
	// absolute delta.
	Relative bool `json:"relative,omitempty"`

	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`

	Terms    map[string]float64 `json:"terms,omitempty"`
	Constant float64            `json:"constant,omitempty"`
}

// Holds evaluates the predicate against the supplied variables. Missing
// required variables are reported via ErrMalformedQuestion: silent
// incorrect-by-default would hide authoring bugs.
func (p *Predicate) Holds(vars map[string]float64) (bool, error) {
	switch p.Kind {
	case PredicateEquals:
		v, ok := vars[p.Variable]
		if !ok {
			return false, fmt.Errorf("%w: variable %q not supplied", ErrMalformedQuestion, p.Variable)
		}
		return p.withinTolerance(v), nil
	case PredicateRange:
		v, ok := vars[p.Variable]
		if !ok {
			return false, fmt.Errorf("%w: variable %q not supplied", ErrMalformedQuestion, p.Variable)
		}
		return v >= p.Min && v <= p.Max, nil
	case PredicateLinear:
		sum := p.Constant
		for name, coef := range p.Terms {
			v, ok := vars[name]
			if !ok {
				return false, fmt.Errorf("%w: variable %q not supplied", ErrMalformedQuestion, name)
			}
			sum += coef * v
		}
		return p.compare(sum), nil
	}
	return false, fmt.Errorf("%w: unknown predicate kind %q", ErrMalformedQuestion, p.Kind)
}

func (p *Predicate) withinTolerance(v float64) bool {
	return p.compare(v)
}

// compare checks a computed value against Expected. Exact equality is used
// only for zero-tolerance integral expectations; everything else goes through
// an absolute or relative tolerance to avoid floating-point false negatives.
func (p *Predicate) compare(v float64) bool {
	tol := p.Tolerance
	if p.Relative {
		tol = math.Abs(p.Expected) * p.Tolerance
	}
	if tol == 0 {
		if p.Expected == math.Trunc(p.Expected) {
			return v == p.Expected
		}
		tol = 1e-9
	}
	return math.Abs(v-p.Expected) <= tol
}
