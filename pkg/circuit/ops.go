package circuit

import (
	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/pkg/gate"
	"github.com/flebeau/GPAClib/pkg/util"
)

// The composition operators build new circuits by value: the receivers are
// never mutated. Colliding gate names are renamed to fresh ones before the
// two graphs are spliced, so every binary input keeps naming an existing
// gate or t.

func (c *Circuit) requireOutput() error {
	if c.output == "" {
		return errors.Errorf("%s: operation on a circuit with no defined output", c.errLocation())
	}
	return nil
}

// combine splices b into a copy of a and joins the two outputs with a fresh
// gate of kind k.
func (c *Circuit) combine(other *Circuit, k gate.Kind) (*Circuit, error) {
	if err := c.requireOutput(); err != nil {
		return nil, err
	}
	if err := other.requireOutput(); err != nil {
		return nil, err
	}
	res := c.Clone()
	res.EnsureUniqueNames(other)
	oldOutput := res.Output()
	res.CopyFrom(other)
	joined, err := res.addGate("", &gate.Gate{Kind: k, X: oldOutput, Y: other.Output()}, false)
	if err != nil {
		return nil, err
	}
	res.SetOutput(joined)
	return res, nil
}

// Plus returns the circuit computing c(t) + other(t).
func (c *Circuit) Plus(other *Circuit) (*Circuit, error) {
	return c.combine(other, gate.Add)
}

// Times returns the circuit computing c(t) * other(t).
func (c *Circuit) Times(other *Circuit) (*Circuit, error) {
	return c.combine(other, gate.Prod)
}

// Minus returns the circuit computing c(t) - other(t).
func (c *Circuit) Minus(other *Circuit) (*Circuit, error) {
	neg, err := other.TimesConst(-1)
	if err != nil {
		return nil, err
	}
	return c.Plus(neg)
}

// DividedBy returns the circuit computing c(t) / other(t), through the
// reciprocal of other. It fails when other(0) = 0.
func (c *Circuit) DividedBy(other *Circuit) (*Circuit, error) {
	inv, err := other.Reciprocal()
	if err != nil {
		return nil, err
	}
	return c.Times(inv)
}

// Integrate returns the circuit computing the integral of c with respect to
// other, with the given initial value. The result is usually not
// normalized.
func (c *Circuit) Integrate(other *Circuit, value float64) (*Circuit, error) {
	res, err := c.combine(other, gate.Int)
	if err != nil {
		return nil, err
	}
	if err := res.SetInitValue(res.Output(), value); err != nil {
		return nil, err
	}
	return res, nil
}

// findConstant returns the name of a constant gate holding value, if any.
func (c *Circuit) findConstant(value float64) (string, bool) {
	for _, name := range c.GateNames() {
		g := c.gates[name]
		if g.Kind == gate.Constant && g.Value == value {
			return name, true
		}
	}
	return "", false
}

// scalarOp reuses an existing constant gate of the right value when there
// is one, so repeated scalar operations do not pile up duplicates.
func (c *Circuit) scalarOp(value float64, k gate.Kind) (*Circuit, error) {
	if err := c.requireOutput(); err != nil {
		return nil, err
	}
	res := c.Clone()
	cst, ok := res.findConstant(value)
	if !ok {
		var err error
		cst, err = res.addGate("", gate.NewConstant(value), false)
		if err != nil {
			return nil, err
		}
	}
	out, err := res.addGate("", &gate.Gate{Kind: k, X: res.Output(), Y: cst}, false)
	if err != nil {
		return nil, err
	}
	res.SetOutput(out)
	return res, nil
}

// PlusConst returns the circuit computing c(t) + value.
func (c *Circuit) PlusConst(value float64) (*Circuit, error) {
	return c.scalarOp(value, gate.Add)
}

// TimesConst returns the circuit computing value * c(t).
func (c *Circuit) TimesConst(value float64) (*Circuit, error) {
	return c.scalarOp(value, gate.Prod)
}

/* ===== Composition ===== */

// Compose returns the circuit computing c(other(t)). When either side is
// the identity the other is cloned. Otherwise other is spliced under a copy
// of c, initial values of c's integration gates are re-based to the inner
// starting point other(0) by a pre-simulation, every t reference in the
// c-portion is substituted by other's output, and the result is normalized
// (the substitution generally denormalizes the integration gates).
func (c *Circuit) Compose(other *Circuit) (*Circuit, error) {
	if err := c.requireOutput(); err != nil {
		return nil, err
	}
	if err := other.requireOutput(); err != nil {
		return nil, err
	}
	if other.Output() == gate.Time {
		return c.Clone(), nil
	}
	if c.output == gate.Time {
		return other.Clone(), nil
	}

	res := other.Clone()
	res.EnsureUniqueNames(c)
	innerOutput := res.Output()
	res.CopyFrom(c)

	if vals, ok := c.rebaseInitValues(other); ok {
		res.ImportValues(vals)
	}

	for _, name := range c.GateNames() {
		g := res.gates[name]
		if g == nil || !g.Binary() {
			continue
		}
		if g.X == gate.Time {
			g.X = innerOutput
		}
		if g.Y == gate.Time {
			g.Y = innerOutput
		}
	}
	res.SetOutput(c.Output())
	if err := res.Normalize(); err != nil {
		return nil, err
	}
	return res, nil
}

// rebaseInitValues computes the initial values the integration gates of c
// should carry once c's argument starts at inner(0) instead of 0: a
// finalized clone of c is integrated from 0 to inner(0) and the final state
// is keyed by c's gate names. A negative inner(0) integrates backwards.
// Composition remains usable on circuits that cannot be pre-simulated
// (missing initial values); those keep their values, with a warning.
func (c *Circuit) rebaseInitValues(inner *Circuit) (map[string]float64, bool) {
	t0, err := inner.EvalAt(0)
	if err != nil {
		util.Warnf(c.errLocation(), "composition: cannot evaluate inner circuit at 0, keeping initial values as-is: %v", err)
		return nil, false
	}
	if t0 == 0 {
		return nil, false
	}
	cl := c.Clone()
	if err := cl.Finalize(false); err != nil {
		util.Warnf(c.errLocation(), "composition: cannot pre-simulate outer circuit, keeping initial values as-is: %v", err)
		return nil, false
	}
	if len(cl.IntGates()) == 0 {
		return nil, false
	}
	cl.InitConstValues()
	y, err := cl.StateVector()
	if err != nil {
		return nil, false
	}
	dt := 0.001
	if t0 < 0 {
		dt = -dt
	}
	y, err = cl.rk4Integrate(y, 0, t0, dt)
	if err != nil {
		util.Warnf(c.errLocation(), "composition: pre-simulation failed, keeping initial values as-is: %v", err)
		return nil, false
	}
	vals := make(map[string]float64, len(y))
	for i, name := range cl.IntGates() {
		vals[name] = y[i]
	}
	return vals, true
}

/* ===== Derivation ===== */

// Derivate returns the circuit computing the derivative of c with respect
// to t. The clone is normalized first so that every integration gate
// differentiates to its integrand; constant sub-expressions of the result
// are folded away by the final simplification.
func (c *Circuit) Derivate() (*Circuit, error) {
	if err := c.requireOutput(); err != nil {
		return nil, err
	}
	res := c.Clone()
	if c.output == gate.Time {
		one, err := res.addGate("", gate.NewConstant(1), false)
		if err != nil {
			return nil, err
		}
		res.SetOutput(one)
		return res, nil
	}
	if err := res.Normalize(); err != nil {
		return nil, err
	}

	memo := make(map[string]string)
	constGate := func(v float64) (string, error) {
		if name, ok := res.findConstant(v); ok {
			return name, nil
		}
		return res.addGate("", gate.NewConstant(v), false)
	}
	var deriv func(name string) (string, error)
	deriv = func(name string) (string, error) {
		if name == gate.Time {
			return constGate(1)
		}
		if d, ok := memo[name]; ok {
			return d, nil
		}
		g := res.gates[name]
		if g == nil {
			return "", errors.Errorf("%s: derivation reached unknown gate %q", c.errLocation(), name)
		}
		var d string
		var err error
		switch g.Kind {
		case gate.Constant:
			d, err = constGate(0)
		case gate.Int:
			// (int f dt)' = f
			d = g.X
		case gate.Add:
			// (x + y)' = x' + y'
			var dx, dy string
			if dx, err = deriv(g.X); err != nil {
				return "", err
			}
			if dy, err = deriv(g.Y); err != nil {
				return "", err
			}
			d, err = res.addGate("", gate.NewAdd(dx, dy), false)
		case gate.Prod:
			// (x * y)' = x'y + xy'
			var dx, dy, p1, p2 string
			if dx, err = deriv(g.X); err != nil {
				return "", err
			}
			if dy, err = deriv(g.Y); err != nil {
				return "", err
			}
			if p1, err = res.addGate("", gate.NewProd(dx, g.Y), false); err != nil {
				return "", err
			}
			if p2, err = res.addGate("", gate.NewProd(g.X, dy), false); err != nil {
				return "", err
			}
			d, err = res.addGate("", gate.NewAdd(p1, p2), false)
		}
		if err != nil {
			return "", err
		}
		memo[name] = d
		return d, nil
	}

	out, err := deriv(res.Output())
	if err != nil {
		return nil, err
	}
	res.SetOutput(out)
	if err := res.Simplify(); err != nil {
		return nil, err
	}
	return res, nil
}

/* ===== Inversion ===== */

// Reciprocal returns the circuit computing 1/c(t), built from the identity
// z' = -c' z^2 with z(0) = 1/c(0). It fails when c(0) = 0.
func (c *Circuit) Reciprocal() (*Circuit, error) {
	if err := c.requireOutput(); err != nil {
		return nil, err
	}
	c0, err := c.EvalAt(0)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: inversion needs the value at 0", c.errLocation())
	}
	if c0 == 0 {
		return nil, errors.Errorf("%s: cannot invert a circuit whose value at 0 is 0", c.errLocation())
	}
	res, err := c.Derivate()
	if err != nil {
		return nil, err
	}
	neg, ok := res.findConstant(-1)
	if !ok {
		if neg, err = res.addGate("", gate.NewConstant(-1), false); err != nil {
			return nil, err
		}
	}
	z := res.NewGateName()
	m1, err := res.addGate("", gate.NewProd(neg, res.Output()), false)
	if err != nil {
		return nil, err
	}
	m2, err := res.addGate("", gate.NewProd(m1, z), false)
	if err != nil {
		return nil, err
	}
	m3, err := res.addGate("", gate.NewProd(m2, z), false)
	if err != nil {
		return nil, err
	}
	if _, err = res.addGate(z, gate.NewInt(m3, gate.Time), false); err != nil {
		return nil, err
	}
	if err := res.SetInitValue(z, 1/c0); err != nil {
		return nil, err
	}
	res.SetOutput(z)
	return res, nil
}

/* ===== Iteration ===== */

// Iterate returns the n-fold self-composition of c, using binary
// exponentiation of the composition operator. Iterate(0) is the identity.
func (c *Circuit) Iterate(n uint) (*Circuit, error) {
	if err := c.requireOutput(); err != nil {
		return nil, err
	}
	if n == 0 {
		id := NewWithOptions(c.name+"^0", c.validation, false)
		id.SetOutput(gate.Time)
		return id, nil
	}
	if n == 1 {
		return c.Clone(), nil
	}
	half, err := c.Iterate(n / 2)
	if err != nil {
		return nil, err
	}
	sq, err := half.Compose(half)
	if err != nil {
		return nil, err
	}
	if n%2 == 0 {
		return sq, nil
	}
	return c.Compose(sq)
}
