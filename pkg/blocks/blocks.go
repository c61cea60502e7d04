// Package blocks is the builtin circuit library: small fixed circuits for
// the usual analog functions, ready to be combined with the circuit
// operators. Every block sets its output and the initial values of its
// integration gates.
package blocks

import (
	"math"
	"strconv"

	"github.com/flebeau/GPAClib/pkg/circuit"
	"github.com/flebeau/GPAClib/pkg/gate"
)

// newBlock starts a builtin circuit. Builtins use reserved-free names and
// are marked as blocks so their name survives cloning.
func newBlock(name string) *circuit.Circuit {
	return circuit.NewWithOptions(name, true, true)
}

// mustAdd panics on insertion errors, which for the fixed builtin graphs
// would be programming errors in this package.
func mustAdd(err error) {
	if err != nil {
		panic(err)
	}
}

// Constant is the circuit holding a single constant gate.
// Use the scalar operators instead when combining with other circuits.
func Constant(value float64) *circuit.Circuit {
	c := newBlock("Const")
	_, err := c.AddConstantGate("c", value)
	mustAdd(err)
	c.SetOutput("c")
	return c
}

// Identity computes t.
func Identity() *circuit.Circuit {
	c := newBlock("Id")
	c.SetOutput(gate.Time)
	return c
}

// Exp computes e^t from exp' = exp, exp(0) = 1.
func Exp() *circuit.Circuit {
	c := newBlock("Exp")
	_, err := c.AddIntGate("exp", "exp", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("exp", 1))
	c.SetOutput("exp")
	return c
}

// Sin computes sin(t) through the coupled pair sin' = cos, cos' = -sin.
func Sin() *circuit.Circuit {
	c := newBlock("Sin")
	_, err := c.AddConstantGate("sin_c", -1)
	mustAdd(err)
	_, err = c.AddProdGate("sin_P", "sin", "sin_c")
	mustAdd(err)
	_, err = c.AddIntGate("cos", "sin_P", gate.Time)
	mustAdd(err)
	_, err = c.AddIntGate("sin", "cos", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("cos", 1))
	mustAdd(c.SetInitValue("sin", 0))
	c.SetOutput("sin")
	return c
}

// Cos is the same pair as Sin with the other output.
func Cos() *circuit.Circuit {
	c := newBlock("Cos")
	_, err := c.AddConstantGate("cos_c", -1)
	mustAdd(err)
	_, err = c.AddProdGate("cos_P", "sin", "cos_c")
	mustAdd(err)
	_, err = c.AddIntGate("cos", "cos_P", gate.Time)
	mustAdd(err)
	_, err = c.AddIntGate("sin", "cos", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("cos", 1))
	mustAdd(c.SetInitValue("sin", 0))
	c.SetOutput("cos")
	return c
}

// Tan computes tan(t) from tan' = 1 + tan².
func Tan() *circuit.Circuit {
	c := newBlock("Tan")
	_, err := c.AddConstantGate("c", 1)
	mustAdd(err)
	_, err = c.AddProdGate("tan2", "tan", "tan")
	mustAdd(err)
	_, err = c.AddAddGate("add", "c", "tan2")
	mustAdd(err)
	_, err = c.AddIntGate("tan", "add", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("tan", 0))
	c.SetOutput("tan")
	return c
}

// Arctan computes arctan(t); der carries 1/(1+t²) via der' = -2t der².
func Arctan() *circuit.Circuit {
	c := newBlock("Arctan")
	_, err := c.AddConstantGate("c", -2)
	mustAdd(err)
	_, err = c.AddIntGate("der", "p3", gate.Time)
	mustAdd(err)
	_, err = c.AddProdGate("p1", "c", gate.Time)
	mustAdd(err)
	_, err = c.AddProdGate("p2", "der", "der")
	mustAdd(err)
	_, err = c.AddProdGate("p3", "p1", "p2")
	mustAdd(err)
	_, err = c.AddIntGate("arctan", "der", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("der", 1))
	mustAdd(c.SetInitValue("arctan", 0))
	c.SetOutput("arctan")
	return c
}

// Tanh computes tanh(t) from tanh' = 1 - tanh².
func Tanh() *circuit.Circuit {
	c := newBlock("Tanh")
	_, err := c.AddConstantGate("one", 1)
	mustAdd(err)
	_, err = c.AddConstantGate("neg", -1)
	mustAdd(err)
	_, err = c.AddProdGate("sq", "tanh", "tanh")
	mustAdd(err)
	_, err = c.AddProdGate("nsq", "neg", "sq")
	mustAdd(err)
	_, err = c.AddAddGate("rhs", "one", "nsq")
	mustAdd(err)
	_, err = c.AddIntGate("tanh", "rhs", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("tanh", 0))
	c.SetOutput("tanh")
	return c
}

// Inverse computes 1/(1+t) from inv' = -inv².
func Inverse() *circuit.Circuit {
	c := newBlock("Inverse")
	_, err := c.AddConstantGate("c", -1)
	mustAdd(err)
	_, err = c.AddProdGate("p", "inv", "inv")
	mustAdd(err)
	_, err = c.AddProdGate("p2", "c", "p")
	mustAdd(err)
	_, err = c.AddIntGate("inv", "p2", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("inv", 1))
	c.SetOutput("inv")
	return c
}

// Sqrt computes sqrt(1+t), shifted off the singularity at 0 like Inverse:
// y' = z/2 and z' = -z³/2 keep z = 1/y.
func Sqrt() *circuit.Circuit {
	c := newBlock("Sqrt")
	_, err := c.AddConstantGate("h", 0.5)
	mustAdd(err)
	_, err = c.AddConstantGate("nh", -0.5)
	mustAdd(err)
	_, err = c.AddProdGate("yp", "h", "z")
	mustAdd(err)
	_, err = c.AddProdGate("z2", "z", "z")
	mustAdd(err)
	_, err = c.AddProdGate("z3", "z", "z2")
	mustAdd(err)
	_, err = c.AddProdGate("zp", "nh", "z3")
	mustAdd(err)
	_, err = c.AddIntGate("sqrt", "yp", gate.Time)
	mustAdd(err)
	_, err = c.AddIntGate("z", "zp", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("sqrt", 1))
	mustAdd(c.SetInitValue("z", 1))
	c.SetOutput("sqrt")
	return c
}

// Exp2 computes e^(t²) from y' = 2ty.
func Exp2() *circuit.Circuit {
	c := newBlock("Exp2")
	_, err := c.AddConstantGate("two", 2)
	mustAdd(err)
	_, err = c.AddProdGate("tt", "two", gate.Time)
	mustAdd(err)
	_, err = c.AddProdGate("rhs", "tt", "exp2")
	mustAdd(err)
	_, err = c.AddIntGate("exp2", "rhs", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("exp2", 1))
	c.SetOutput("exp2")
	return c
}

// L2 is a smooth 0 to 1 switch, the logistic solution of y' = αy(1-y)
// with y(0) = 1/2.
func L2(alpha float64) *circuit.Circuit {
	c := newBlock("L2")
	_, err := c.AddConstantGate("a", alpha)
	mustAdd(err)
	_, err = c.AddConstantGate("neg", -1)
	mustAdd(err)
	_, err = c.AddProdGate("sq", "l2", "l2")
	mustAdd(err)
	_, err = c.AddProdGate("nsq", "neg", "sq")
	mustAdd(err)
	_, err = c.AddAddGate("diff", "l2", "nsq")
	mustAdd(err)
	_, err = c.AddProdGate("rhs", "a", "diff")
	mustAdd(err)
	_, err = c.AddIntGate("l2", "rhs", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("l2", 0.5))
	c.SetOutput("l2")
	return c
}

// PowerPower2 computes t^(2^n) by repeated squaring of t².
func PowerPower2(n uint) *circuit.Circuit {
	c := newBlock("PP2" + strconv.FormatUint(uint64(n), 10))
	if n == 0 {
		_, err := c.AddConstantGate("c1", 1)
		mustAdd(err)
		c.SetOutput("c1")
		return c
	}
	_, err := c.AddProdGate("P1", gate.Time, gate.Time)
	mustAdd(err)
	c.SetOutput("P1")
	for i := uint(0); i < n-1; i++ {
		sq, err := c.Times(c)
		mustAdd(err)
		sq.Rename(c.Name())
		c = sq
	}
	return c
}

// Polynomial computes a0 + a1 t + a2 t² + ... by Horner's method. The
// coefficients are given in increasing degree order.
func Polynomial(coeffs []float64) *circuit.Circuit {
	if len(coeffs) == 0 {
		return Constant(0)
	}
	c := newBlock("Poly")
	_, err := c.AddConstantGate("c", coeffs[len(coeffs)-1])
	mustAdd(err)
	c.SetOutput("c")
	for i := len(coeffs) - 2; i >= 0; i-- {
		next, err := c.Times(Identity())
		mustAdd(err)
		if coeffs[i] != 0 {
			next, err = next.PlusConst(coeffs[i])
			mustAdd(err)
		}
		next.Rename(c.Name())
		c = next
	}
	return c
}

/* ===== Composite blocks ===== */

// Round approximates rounding to the nearest integer with the smooth
// function t - sin(2πt)/(2π), which fixes the integers and flattens
// between them.
func Round() (*circuit.Circuit, error) {
	inner, err := Identity().TimesConst(2 * math.Pi)
	if err != nil {
		return nil, err
	}
	s, err := Sin().Compose(inner)
	if err != nil {
		return nil, err
	}
	s, err = s.TimesConst(-1 / (2 * math.Pi))
	if err != nil {
		return nil, err
	}
	res, err := Identity().Plus(s)
	if err != nil {
		return nil, err
	}
	res.Rename("Round")
	return res, nil
}

// Sgn approximates the sign of t by tanh(μt).
func Sgn(mu float64) (*circuit.Circuit, error) {
	scaled, err := Identity().TimesConst(mu)
	if err != nil {
		return nil, err
	}
	res, err := Tanh().Compose(scaled)
	if err != nil {
		return nil, err
	}
	res.Rename("Sgn")
	return res, nil
}

// Abs approximates |t| by sqrt(t² + δ²), which behaves on both sides of 0:
// with z = 1/y, y' = tz and z' = -tz³. A tanh-based version saturates in
// floating point once |t| is a few multiples of δ and cannot come back.
func Abs(delta float64) *circuit.Circuit {
	c := newBlock("Abs")
	_, err := c.AddConstantGate("neg", -1)
	mustAdd(err)
	_, err = c.AddProdGate("yp", gate.Time, "z")
	mustAdd(err)
	_, err = c.AddProdGate("z2", "z", "z")
	mustAdd(err)
	_, err = c.AddProdGate("z3", "z", "z2")
	mustAdd(err)
	_, err = c.AddProdGate("tz3", gate.Time, "z3")
	mustAdd(err)
	_, err = c.AddProdGate("zp", "neg", "tz3")
	mustAdd(err)
	_, err = c.AddIntGate("abs", "yp", gate.Time)
	mustAdd(err)
	_, err = c.AddIntGate("z", "zp", gate.Time)
	mustAdd(err)
	mustAdd(c.SetInitValue("abs", delta))
	mustAdd(c.SetInitValue("z", 1/delta))
	c.SetOutput("abs")
	return c
}

// Ip1 is a smooth Heaviside step, (1 + tanh(μt))/2.
func Ip1(mu float64) (*circuit.Circuit, error) {
	sg, err := Sgn(mu)
	if err != nil {
		return nil, err
	}
	half, err := sg.TimesConst(0.5)
	if err != nil {
		return nil, err
	}
	res, err := half.PlusConst(0.5)
	if err != nil {
		return nil, err
	}
	res.Rename("Ip1")
	return res, nil
}

// Upsilon is a rectangular signal of period 1: the smoothed sign of
// sin(2πt), scaled to swing between 0 and 1.
func Upsilon() (*circuit.Circuit, error) {
	inner, err := Identity().TimesConst(2 * math.Pi)
	if err != nil {
		return nil, err
	}
	s, err := Sin().Compose(inner)
	if err != nil {
		return nil, err
	}
	// Amplitude 8 keeps tanh clear of float64 saturation at the plateaus,
	// so the state can follow the carrier back down.
	sharp, err := s.TimesConst(8)
	if err != nil {
		return nil, err
	}
	sq, err := Tanh().Compose(sharp)
	if err != nil {
		return nil, err
	}
	half, err := sq.TimesConst(0.5)
	if err != nil {
		return nil, err
	}
	res, err := half.PlusConst(0.5)
	if err != nil {
		return nil, err
	}
	res.Rename("Upsilon")
	return res, nil
}

// Lxh is a smooth indicator of the interval [0, 1]: a step up at 0
// multiplied by a step down at 1.
func Lxh(mu float64) (*circuit.Circuit, error) {
	up, err := Ip1(mu)
	if err != nil {
		return nil, err
	}
	// 1 - t feeds the mirrored step.
	mirrored, err := Identity().TimesConst(-1)
	if err != nil {
		return nil, err
	}
	mirrored, err = mirrored.PlusConst(1)
	if err != nil {
		return nil, err
	}
	down, err := up.Compose(mirrored)
	if err != nil {
		return nil, err
	}
	res, err := up.Times(down)
	if err != nil {
		return nil, err
	}
	res.Rename("Lxh")
	return res, nil
}

// Select switches between the constants c and d as t crosses the midpoint
// of [a, b], with transition width governed by delta.
func Select(a, b, delta, cVal, dVal float64) (*circuit.Circuit, error) {
	shifted, err := Identity().PlusConst(-(a + b) / 2)
	if err != nil {
		return nil, err
	}
	step, err := Ip1(1 / delta)
	if err != nil {
		return nil, err
	}
	step, err = step.Compose(shifted)
	if err != nil {
		return nil, err
	}
	ramp, err := step.TimesConst(dVal - cVal)
	if err != nil {
		return nil, err
	}
	res, err := ramp.PlusConst(cVal)
	if err != nil {
		return nil, err
	}
	res.Rename("Select")
	return res, nil
}

// Max computes a smooth maximum, (A + B + |A - B|)/2 with the Abs
// approximation.
func Max(a, b *circuit.Circuit, delta float64) (*circuit.Circuit, error) {
	diff, err := a.Minus(b)
	if err != nil {
		return nil, err
	}
	absDiff, err := Abs(delta).Compose(diff)
	if err != nil {
		return nil, err
	}
	sum, err := a.Plus(b)
	if err != nil {
		return nil, err
	}
	total, err := sum.Plus(absDiff)
	if err != nil {
		return nil, err
	}
	res, err := total.TimesConst(0.5)
	if err != nil {
		return nil, err
	}
	res.Rename("Max")
	return res, nil
}
