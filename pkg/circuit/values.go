package circuit

import (
	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/pkg/gate"
)

// ResetNonIntValues drops every cached value except those of constant and
// integration gates, preparing the table for a fresh propagation pass.
func (c *Circuit) ResetNonIntValues() {
	for _, name := range c.GateNames() {
		g := c.gates[name]
		if g.Kind == gate.Int || g.Kind == gate.Constant {
			continue
		}
		delete(c.values, name)
	}
	delete(c.values, gate.Time)
}

// InitConstValues seeds the value table with the constant gates.
func (c *Circuit) InitConstValues() {
	for name, g := range c.gates {
		if g.Kind == gate.Constant {
			c.values[name] = g.Value
		}
	}
}

// ComputeValues propagates known values through the addition and product
// gates until every gate has one. Constant and integration gates must
// already be seeded. Reaching the fixpoint with an unvalued gate left means
// the circuit closes a purely algebraic cycle, which has no sound
// semantics.
func (c *Circuit) ComputeValues(t float64) error {
	c.values[gate.Time] = t

	names := c.GateNames()
	changed := true
	for changed {
		changed = false
		for _, name := range names {
			if _, done := c.values[name]; done {
				continue
			}
			g := c.gates[name]
			if g.Kind != gate.Add && g.Kind != gate.Prod {
				continue
			}
			x, okX := c.values[g.X]
			y, okY := c.values[g.Y]
			if okX && okY {
				c.values[name] = g.Eval(x, y)
				changed = true
			}
		}
	}
	for _, name := range names {
		if _, ok := c.values[name]; !ok {
			return errors.Errorf("%s: failed to compute values, gate %q never received one (algebraic cycle?)", c.errLocation(), name)
		}
	}
	return nil
}

// StateVector returns the initial values of the integration gates in
// IntGates order.
func (c *Circuit) StateVector() ([]float64, error) {
	if !c.finalized {
		return nil, errors.Errorf("%s: circuit is not finalized", c.errLocation())
	}
	y := make([]float64, len(c.intGates))
	for i, name := range c.intGates {
		v, ok := c.values[name]
		if !ok {
			return nil, errors.Errorf("%s: integration gate %q has no value", c.errLocation(), name)
		}
		y[i] = v
	}
	return y, nil
}

// Derivatives evaluates the vector field of the finalized circuit: the
// state y is written to the integration gates, values propagate through the
// graph at time t, and dydt receives the value of each integration gate's
// integrand. Both slices have length len(IntGates()).
func (c *Circuit) Derivatives(y, dydt []float64, t float64) error {
	c.ResetNonIntValues()
	for i, name := range c.intGates {
		c.values[name] = y[i]
	}
	if err := c.ComputeValues(t); err != nil {
		return err
	}
	for i, name := range c.intGates {
		dydt[i] = c.values[c.gates[name].X]
	}
	return nil
}

// OutputValue reads the output gate's value after a propagation pass.
func (c *Circuit) OutputValue() (float64, error) {
	v, ok := c.values[c.output]
	if !ok {
		return 0, errors.Errorf("%s: output gate %q has no computed value", c.errLocation(), c.output)
	}
	return v, nil
}

// EvalAt computes the circuit's output from its initial state at time t.
// This is exact at t = 0 and, for circuits without integration gates, at
// every t; elsewhere the integration gates keep their initial values, so
// the result is not the simulated trajectory.
func (c *Circuit) EvalAt(t float64) (float64, error) {
	cl := c.Clone()
	if err := cl.Finalize(false); err != nil {
		return 0, err
	}
	cl.InitConstValues()
	cl.ResetNonIntValues()
	if err := cl.ComputeValues(t); err != nil {
		return 0, err
	}
	return cl.OutputValue()
}

// rk4Integrate advances the finalized circuit's state from a to b with the
// classical fixed-step fourth-order Runge-Kutta scheme. dt carries the sign
// of b-a. The value table is left holding the propagation results of the
// final point, and the final state vector is returned.
func (c *Circuit) rk4Integrate(y []float64, a, b, dt float64) ([]float64, error) {
	n := len(y)
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	tmp := make([]float64, n)

	steps := int((b-a)/dt + 0.5)
	if steps < 1 {
		steps = 1
	}
	h := (b - a) / float64(steps)
	t := a
	for s := 0; s < steps; s++ {
		if err := c.Derivatives(y, k1, t); err != nil {
			return nil, err
		}
		for i := range tmp {
			tmp[i] = y[i] + 0.5*h*k1[i]
		}
		if err := c.Derivatives(tmp, k2, t+0.5*h); err != nil {
			return nil, err
		}
		for i := range tmp {
			tmp[i] = y[i] + 0.5*h*k2[i]
		}
		if err := c.Derivatives(tmp, k3, t+0.5*h); err != nil {
			return nil, err
		}
		for i := range tmp {
			tmp[i] = y[i] + h*k3[i]
		}
		if err := c.Derivatives(tmp, k4, t+h); err != nil {
			return nil, err
		}
		for i := range y {
			y[i] += h / 6.0 * (k1[i] + 2.0*k2[i] + 2.0*k3[i] + k4[i])
		}
		t = a + float64(s+1)*h
	}
	if err := c.Derivatives(y, k1, b); err != nil {
		return nil, err
	}
	return y, nil
}
