// Package dice evaluates standard tabletop dice expressions such as "d20",
// "2d6+3" or "4d8-1" for skill checks the narrator or an MCP client asks
// for.
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Limits on a single expression.
const (
	MaxCount    = 100
	MaxSides    = 1000
	MaxModifier = 1000
)

// ErrInvalidExpression is returned by [Parse] for malformed input.
var ErrInvalidExpression = errors.New("dice: invalid expression")

// Expr is a parsed NdS±M expression.
type Expr struct {
	Count    int `json:"count"`
	Sides    int `json:"sides"`
	Modifier int `json:"modifier"`
}

var exprRe = regexp.MustCompile(`^(\d*)d(\d+)(?:([+-])(\d+))?$`)

// Parse parses expr. The count defaults to 1; matching is case-insensitive
// and ignores surrounding and inner spaces.
func Parse(expr string) (Expr, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(expr), " ", ""))
	m := exprRe.FindStringSubmatch(norm)
	if m == nil {
		return Expr{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}
	e := Expr{Count: 1}
	if m[1] != "" {
		e.Count, _ = strconv.Atoi(m[1])
	}
	e.Sides, _ = strconv.Atoi(m[2])
	if m[4] != "" {
		e.Modifier, _ = strconv.Atoi(m[4])
		if m[3] == "-" {
			e.Modifier = -e.Modifier
		}
	}
	switch {
	case e.Count < 1 || e.Count > MaxCount:
		return Expr{}, fmt.Errorf("%w: %q: dice count must be between 1 and %d", ErrInvalidExpression, expr, MaxCount)
	case e.Sides < 1 || e.Sides > MaxSides:
		return Expr{}, fmt.Errorf("%w: %q: sides must be between 1 and %d", ErrInvalidExpression, expr, MaxSides)
	case e.Modifier < -MaxModifier || e.Modifier > MaxModifier:
		return Expr{}, fmt.Errorf("%w: %q: modifier must be between -%d and %d", ErrInvalidExpression, expr, MaxModifier, MaxModifier)
	}
	return e, nil
}

// String renders e in canonical form, e.g. "2d6+3".
func (e Expr) String() string {
	s := fmt.Sprintf("%dd%d", e.Count, e.Sides)
	switch {
	case e.Modifier > 0:
		s += "+" + strconv.Itoa(e.Modifier)
	case e.Modifier < 0:
		s += strconv.Itoa(e.Modifier)
	}
	return s
}

// Min is the smallest possible total.
func (e Expr) Min() int { return e.Count + e.Modifier }

// Max is the largest possible total.
func (e Expr) Max() int { return e.Count*e.Sides + e.Modifier }

// Result is one evaluated roll.
type Result struct {
	Expression string `json:"expression"`
	Rolls      []int  `json:"rolls"`
	Modifier   int    `json:"modifier"`
	Total      int    `json:"total"`
}

// Roller rolls dice. It is safe for concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a Roller drawing from src, or from a randomly seeded
// source when src is nil.
func NewRoller(src rand.Source) *Roller {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Roller{rng: rand.New(src)}
}

// Roll parses and evaluates expr.
func (r *Roller) Roll(expr string) (Result, error) {
	e, err := Parse(expr)
	if err != nil {
		return Result{}, err
	}
	return r.RollExpr(e), nil
}

// RollExpr evaluates a parsed expression.
func (r *Roller) RollExpr(e Expr) Result {
	res := Result{Expression: e.String(), Rolls: make([]int, e.Count), Modifier: e.Modifier, Total: e.Modifier}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range e.Count {
		v := r.rng.IntN(e.Sides) + 1
		res.Rolls[i] = v
		res.Total += v
	}
	return res
}
