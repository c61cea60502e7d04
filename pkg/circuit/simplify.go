package circuit

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/pkg/gate"
)

// Simplify compresses the circuit without changing the function it
// computes: constant sub-expressions are folded, unreachable gates removed,
// commutative inputs put in canonical order and equivalent gates merged.
// A finalized circuit is left untouched.
func (c *Circuit) Simplify() error {
	if c.finalized {
		return nil
	}
	if err := c.foldConstants(); err != nil {
		return err
	}
	c.eliminateDeadGates()
	c.canonicalize()
	c.mergeEquivalentGates()
	return nil
}

/* ===== Pass 1: constant folding ===== */

// foldConstants replaces every addition or product gate whose upstream cone
// is free of t and integration gates by a single constant gate holding the
// evaluated value.
func (c *Circuit) foldConstants() error {
	memo := make(map[string]int)
	folded := make(map[string]float64)
	for _, name := range c.GateNames() {
		g := c.gates[name]
		if g.Kind != gate.Add && g.Kind != gate.Prod {
			continue
		}
		if !c.isConstExpr(name, memo) {
			continue
		}
		v, err := c.evalConstExpr(name, folded)
		if err != nil {
			return err
		}
		folded[name] = v
	}
	for name, v := range folded {
		c.gates[name] = gate.NewConstant(v)
		c.finalized = false
	}
	return nil
}

func (c *Circuit) evalConstExpr(name string, cache map[string]float64) (float64, error) {
	if v, ok := cache[name]; ok {
		return v, nil
	}
	g := c.gates[name]
	if g == nil {
		return 0, errors.Errorf("%s: constant folding reached unknown gate %q", c.errLocation(), name)
	}
	if g.Kind == gate.Constant {
		return g.Value, nil
	}
	x, err := c.evalConstExpr(g.X, cache)
	if err != nil {
		return 0, err
	}
	y, err := c.evalConstExpr(g.Y, cache)
	if err != nil {
		return 0, err
	}
	v := g.Eval(x, y)
	cache[name] = v
	return v, nil
}

/* ===== Pass 2: dead-code elimination ===== */

// eliminateDeadGates erases every gate unreachable from the output by input
// edges.
func (c *Circuit) eliminateDeadGates() {
	reachable := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if name == gate.Time || reachable[name] {
			return
		}
		g := c.gates[name]
		if g == nil {
			return
		}
		reachable[name] = true
		if g.Binary() {
			visit(g.X)
			visit(g.Y)
		}
	}
	visit(c.output)
	for _, name := range c.GateNames() {
		if !reachable[name] {
			c.EraseGate(name)
		}
	}
}

/* ===== Pass 3: canonicalization ===== */

// canonicalize orders the inputs of the commutative gates lexicographically
// so that structurally equal gates compare equal.
func (c *Circuit) canonicalize() {
	for _, g := range c.gates {
		if g.Kind != gate.Add && g.Kind != gate.Prod {
			continue
		}
		if g.X > g.Y {
			g.X, g.Y = g.Y, g.X
		}
	}
}

/* ===== Pass 4: common-subexpression elimination ===== */

// preferUserDefined orders gate names so that user-defined ones (no leading
// underscore) come first; merged gates keep the first name of their class.
func preferUserDefined(names []string) {
	sort.Slice(names, func(i, j int) bool {
		x, y := names[i], names[j]
		xGen := len(x) > 0 && x[0] == '_'
		yGen := len(y) > 0 && y[0] == '_'
		if xGen != yGen {
			return yGen
		}
		return x < y
	})
}

// sameGate reports whether loser computes the same thing as keeper. Inputs
// are compared after substituting the loser's own name by the keeper's, so
// that self-referential gates (x = int x dt) merge with their copies.
// Integration gates additionally require equal initial values, otherwise
// merging would change the solution.
func (c *Circuit) sameGate(keeper, loser string) bool {
	g1 := c.gates[keeper]
	g2 := c.gates[loser]
	subst := func(input string) string {
		if input == loser {
			return keeper
		}
		return input
	}
	if subst(g2.X) != g1.X || subst(g2.Y) != g1.Y {
		return false
	}
	if g1.Kind == gate.Int {
		v1, ok1 := c.values[keeper]
		v2, ok2 := c.values[loser]
		if ok1 != ok2 || v1 != v2 {
			return false
		}
	}
	return true
}

// mergeEquivalentGates iterates to fixpoint: equal-valued constants merge,
// then binary gates with identical inputs (and, for integration gates,
// identical initial values) merge, consumers are rewritten and the losers
// erased. User-defined names survive merges.
func (c *Circuit) mergeEquivalentGates() {
	c.mergeConstants()

	byKind := func(k gate.Kind) []string {
		var names []string
		for _, name := range c.GateNames() {
			if c.gates[name].Kind == k {
				names = append(names, name)
			}
		}
		preferUserDefined(names)
		return names
	}

	for {
		c.canonicalize()
		renames := make(map[string]string)
		for _, k := range []gate.Kind{gate.Add, gate.Prod, gate.Int} {
			names := byKind(k)
			for i := 0; i < len(names); i++ {
				if _, gone := renames[names[i]]; gone {
					continue
				}
				for j := i + 1; j < len(names); j++ {
					if _, gone := renames[names[j]]; gone {
						continue
					}
					if c.sameGate(names[i], names[j]) {
						renames[names[j]] = names[i]
					}
				}
			}
		}
		if len(renames) == 0 {
			return
		}
		c.applyRenames(renames)
	}
}

// mergeConstants collapses constant gates with equal values onto one gate.
func (c *Circuit) mergeConstants() {
	var names []string
	for _, name := range c.GateNames() {
		if c.gates[name].Kind == gate.Constant {
			names = append(names, name)
		}
	}
	preferUserDefined(names)
	renames := make(map[string]string)
	for i := 0; i < len(names); i++ {
		if _, gone := renames[names[i]]; gone {
			continue
		}
		for j := i + 1; j < len(names); j++ {
			if _, gone := renames[names[j]]; gone {
				continue
			}
			if c.gates[names[i]].Value == c.gates[names[j]].Value {
				renames[names[j]] = names[i]
			}
		}
	}
	if len(renames) > 0 {
		c.applyRenames(renames)
	}
}

// applyRenames rewrites all consumers according to renames, fixes up the
// output and erases the merged-away gates.
func (c *Circuit) applyRenames(renames map[string]string) {
	for _, g := range c.gates {
		if !g.Binary() {
			continue
		}
		if to, ok := renames[g.X]; ok {
			g.X = to
		}
		if to, ok := renames[g.Y]; ok {
			g.Y = to
		}
	}
	if to, ok := renames[c.output]; ok {
		c.output = to
	}
	for _, loser := range sortedKeys(renames) {
		c.EraseGate(loser)
	}
}
