package circuit

import (
	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/pkg/gate"
)

// Rewrite ranks for pending integration gates. Lower ranks rewrite without
// branching or with less graph growth and are treated first.
const (
	rankIntOverInt = iota // variable input is an already-normalized Int
	rankIntOverProd
	rankIntOverAdd
	rankStuck
)

func (c *Circuit) rewriteRank(name string) int {
	g := c.gates[name]
	y := c.gates[g.Y]
	if y == nil {
		return rankStuck
	}
	switch y.Kind {
	case gate.Int:
		if y.Y == gate.Time {
			return rankIntOverInt
		}
		return rankStuck
	case gate.Prod:
		return rankIntOverProd
	case gate.Add:
		return rankIntOverAdd
	}
	return rankStuck
}

// popPending removes and returns the best pending gate: smallest rewrite
// rank, ties broken lexicographically. The rank of a pending gate changes as
// the circuit is rewritten, so the choice is recomputed at every pop rather
// than kept in a heap.
func popPending(c *Circuit, pending map[string]bool) string {
	best := ""
	bestRank := 0
	for _, name := range c.GateNames() {
		if !pending[name] {
			continue
		}
		rank := c.rewriteRank(name)
		if best == "" || rank < bestRank {
			best, bestRank = name, rank
		}
	}
	delete(pending, best)
	return best
}

// Normalize rewrites the circuit until every integration gate integrates
// with respect to t. Initial values are propagated heuristically: when a
// gate is split in two, each successor receives half the parent's value.
func (c *Circuit) Normalize() error {
	if c.finalized {
		return nil
	}
	pending := make(map[string]bool)
	for _, name := range c.GateNames() {
		g := c.gates[name]
		if g.Kind == gate.Int && g.Y != gate.Time {
			pending[name] = true
		}
	}

	constMemo := make(map[string]int)
	for len(pending) > 0 {
		name := popPending(c, pending)
		g := c.gates[name]
		y := c.gates[g.Y]
		if y == nil {
			return errors.Errorf("%s: cannot normalize, integration gate %q integrates with respect to unknown gate %q", c.errLocation(), name, g.Y)
		}

		switch {
		// Case 1: int W d(int U dt) becomes int (U*W) dt.
		case y.Kind == gate.Int && y.Y == gate.Time:
			prod, err := c.addGate("", gate.NewProd(y.X, g.X), false)
			if err != nil {
				return err
			}
			g.X = prod
			g.Y = gate.Time
			constMemo = make(map[string]int)

		// Case 2: the variable input is a product U*V.
		case y.Kind == gate.Prod:
			u, v := y.X, y.Y
			// 2a: a constant factor moves into the integrand, since
			// d(c*V) = c dV.
			cGate, other, ok := c.splitConstOperand(u, v, constMemo)
			if ok {
				prod, err := c.addGate("", gate.NewProd(cGate, g.X), false)
				if err != nil {
					return err
				}
				g.X = prod
				g.Y = other
				if other != gate.Time {
					pending[name] = true
				}
				continue
			}
			// 2b: integration by parts, int W d(UV) = int (UW) dV + int (WV) dU.
			p1, err := c.addGate("", gate.NewProd(u, g.X), false)
			if err != nil {
				return err
			}
			p2, err := c.addGate("", gate.NewProd(g.X, v), false)
			if err != nil {
				return err
			}
			if err := c.splitIntGate(name, p1, v, p2, u, pending); err != nil {
				return err
			}
			constMemo = make(map[string]int)

		// Case 3: the variable input is a sum U+V.
		case y.Kind == gate.Add:
			u, v := y.X, y.Y
			// 3a: a constant summand vanishes, since d(U+c) = dU.
			_, other, ok := c.splitConstOperand(u, v, constMemo)
			if ok {
				g.Y = other
				if other != gate.Time {
					pending[name] = true
				}
				continue
			}
			// 3b: int W d(U+V) = int W dU + int W dV.
			if err := c.splitIntGate(name, g.X, u, g.X, v, pending); err != nil {
				return err
			}
			constMemo = make(map[string]int)

		default:
			return errors.Errorf("%s: cannot normalize, integration gate %q integrates with respect to %s gate %q", c.errLocation(), name, y.Kind, g.Y)
		}
	}
	return nil
}

// splitIntGate replaces the integration gate name by the sum of two fresh
// integration gates int x1 d(y1) and int x2 d(y2), giving each half of the
// parent's initial value and enqueueing the ones still not over t.
func (c *Circuit) splitIntGate(name, x1, y1, x2, y2 string, pending map[string]bool) error {
	parentValue, hasValue := c.values[name]
	delete(c.values, name)

	i1, err := c.addGate("", gate.NewInt(x1, y1), false)
	if err != nil {
		return err
	}
	i2, err := c.addGate("", gate.NewInt(x2, y2), false)
	if err != nil {
		return err
	}
	if hasValue {
		c.values[i1] = 0.5 * parentValue
		c.values[i2] = 0.5 * parentValue
	}
	if y1 != gate.Time {
		pending[i1] = true
	}
	if y2 != gate.Time {
		pending[i2] = true
	}
	c.gates[name] = gate.NewAdd(i1, i2)
	return nil
}

// splitConstOperand reports whether exactly the constant-sub-expression side
// of a pair of operands can be singled out, returning (constant side, other
// side). When both sides are constant sub-expressions the whole variable
// input is one, which is the non-normalizable case, so false is returned.
func (c *Circuit) splitConstOperand(u, v string, memo map[string]int) (string, string, bool) {
	uConst := c.isConstExpr(u, memo)
	vConst := c.isConstExpr(v, memo)
	switch {
	case uConst && !vConst:
		return u, v, true
	case vConst && !uConst:
		return v, u, true
	}
	return "", "", false
}

const (
	coneUnknown = iota
	coneVisiting
	coneConst
	coneVarying
)

// isConstExpr reports whether the entire upstream cone of a gate contains
// only constant, addition and product gates: no t and no integration gate.
// Results are memoized in memo, which callers invalidate when the graph
// changes.
func (c *Circuit) isConstExpr(name string, memo map[string]int) bool {
	if name == gate.Time {
		return false
	}
	switch memo[name] {
	case coneConst:
		return true
	case coneVarying, coneVisiting:
		return false
	}
	g := c.gates[name]
	if g == nil {
		return false
	}
	if g.Kind == gate.Constant {
		memo[name] = coneConst
		return true
	}
	if g.Kind == gate.Int {
		memo[name] = coneVarying
		return false
	}
	memo[name] = coneVisiting // cycles through Add/Prod are not constant
	res := c.isConstExpr(g.X, memo) && c.isConstExpr(g.Y, memo)
	if res {
		memo[name] = coneConst
	} else {
		memo[name] = coneVarying
	}
	return res
}
