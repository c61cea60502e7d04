package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flebeau/GPAClib/pkg/gate"
)

// identityCircuit returns a circuit whose output is t.
func identityCircuit() *Circuit {
	c := NewWithOptions("Id", true, true)
	c.SetOutput(gate.Time)
	return c
}

// linearCircuit builds c0 + c1*t as a plain algebraic circuit.
func linearCircuit(c0, c1 float64) *Circuit {
	c := New("lin")
	if _, err := c.AddConstantGate("a", c1); err != nil {
		panic(err)
	}
	if _, err := c.AddProdGate("p", "a", "t"); err != nil {
		panic(err)
	}
	out := "p"
	if c0 != 0 {
		if _, err := c.AddConstantGate("b", c0); err != nil {
			panic(err)
		}
		if _, err := c.AddAddGate("s", "p", "b"); err != nil {
			panic(err)
		}
		out = "s"
	}
	c.SetOutput(out)
	return c
}

func TestPlusBuildsAdditionOfOutputs(t *testing.T) {
	a := linearCircuit(0, 2)
	b := linearCircuit(1, 3)
	sum, err := a.Plus(b)
	require.NoError(t, err)

	out := sum.Gate(sum.Output())
	require.NotNil(t, out)
	assert.Equal(t, gate.Add, out.Kind)
	v, err := sum.EvalAt(2)
	require.NoError(t, err)
	assert.InDelta(t, (2*2)+(1+3*2), v, 1e-12)
}

func TestTimes(t *testing.T) {
	a := linearCircuit(1, 1) // 1 + t
	prod, err := a.Times(linearCircuit(0, 2))
	require.NoError(t, err)
	v, err := prod.EvalAt(3)
	require.NoError(t, err)
	assert.InDelta(t, (1+3)*6, v, 1e-12)
}

func TestMinus(t *testing.T) {
	a := linearCircuit(0, 5)
	diff, err := a.Minus(linearCircuit(0, 2))
	require.NoError(t, err)
	v, err := diff.EvalAt(2)
	require.NoError(t, err)
	assert.InDelta(t, 6, v, 1e-12)
}

func TestOperationsNeedOutputs(t *testing.T) {
	a := New("empty")
	_, err := a.Plus(linearCircuit(0, 1))
	assert.Error(t, err)
	_, err = linearCircuit(0, 1).Times(a)
	assert.Error(t, err)
	_, err = a.Derivate()
	assert.Error(t, err)
}

func TestScalarOpsReuseConstants(t *testing.T) {
	a := linearCircuit(0, 2) // has constant 2
	res, err := a.PlusConst(2)
	require.NoError(t, err)
	assert.Equal(t, 1, countKind(res, gate.Constant), "an existing constant gate with the value is reused")

	res2, err := a.PlusConst(7)
	require.NoError(t, err)
	assert.Equal(t, 2, countKind(res2, gate.Constant))

	v, err := res.EvalAt(3)
	require.NoError(t, err)
	assert.InDelta(t, 8, v, 1e-12)
}

func TestTimesConst(t *testing.T) {
	a := linearCircuit(0, 2)
	res, err := a.TimesConst(-1)
	require.NoError(t, err)
	v, err := res.EvalAt(4)
	require.NoError(t, err)
	assert.InDelta(t, -8, v, 1e-12)
}

func TestComposeWithIdentityClones(t *testing.T) {
	a := linearCircuit(1, 2)

	right, err := a.Compose(identityCircuit())
	require.NoError(t, err)
	assert.Equal(t, a.Size(), right.Size())
	assert.Equal(t, a.Output(), right.Output())

	left, err := identityCircuit().Compose(a)
	require.NoError(t, err)
	assert.Equal(t, a.Size(), left.Size())
	assert.Equal(t, a.Output(), left.Output())
}

func TestComposeAlgebraic(t *testing.T) {
	// (2t) o (t + 1) = 2t + 2
	outer := linearCircuit(0, 2)
	inner := linearCircuit(1, 1)
	comp, err := outer.Compose(inner)
	require.NoError(t, err)
	v, err := comp.EvalAt(3)
	require.NoError(t, err)
	assert.InDelta(t, 8, v, 1e-12)
}

func TestIntegrate(t *testing.T) {
	// int t d(t) with value 0 at 0 is t^2/2; its variable input is t.
	id := identityCircuit()
	c, err := id.Integrate(identityCircuit(), 0)
	require.NoError(t, err)
	out := c.Gate(c.Output())
	require.NotNil(t, out)
	assert.Equal(t, gate.Int, out.Kind)
	assert.Equal(t, gate.Time, out.Y)
	v, ok := c.InitValue(c.Output())
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestDerivateOfPolynomial(t *testing.T) {
	// d/dt of t^2 is 2t.
	square := New("sq")
	_, err := square.AddProdGate("p", "t", "t")
	require.NoError(t, err)
	square.SetOutput("p")

	d, err := square.Derivate()
	require.NoError(t, err)
	for _, tv := range []float64{0, 1, 2.5, 4} {
		v, err := d.EvalAt(tv)
		require.NoError(t, err)
		assert.InDelta(t, 2*tv, v, 1e-12, "at t=%g", tv)
	}
}

func TestDerivateOfIntGate(t *testing.T) {
	// The derivative of g = int g dt is its integrand, g itself.
	c := exponentialCircuit("exp")
	d, err := c.Derivate()
	require.NoError(t, err)
	v, err := d.EvalAt(0)
	require.NoError(t, err)
	assert.InDelta(t, 1, v, 1e-12)
}

func TestReciprocalFailsAtZero(t *testing.T) {
	a := linearCircuit(0, 1) // value 0 at t=0
	_, err := a.Reciprocal()
	assert.Error(t, err)
}

func TestReciprocalShape(t *testing.T) {
	a := linearCircuit(1, 1) // 1 + t
	inv, err := a.Reciprocal()
	require.NoError(t, err)
	out := inv.Gate(inv.Output())
	require.NotNil(t, out)
	assert.Equal(t, gate.Int, out.Kind)
	v, ok := inv.InitValue(inv.Output())
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-12)
}

func TestIterate(t *testing.T) {
	id, err := linearCircuit(0, 1).Iterate(0)
	require.NoError(t, err)
	assert.Equal(t, gate.Time, id.Output())

	// (t^2) iterated twice is t^4.
	square := New("sq")
	_, err = square.AddProdGate("p", "t", "t")
	require.NoError(t, err)
	square.SetOutput("p")
	fourth, err := square.Iterate(2)
	require.NoError(t, err)
	v, err := fourth.EvalAt(2)
	require.NoError(t, err)
	assert.InDelta(t, 16, v, 1e-12)

	eighth, err := square.Iterate(3)
	require.NoError(t, err)
	v, err = eighth.EvalAt(2)
	require.NoError(t, err)
	assert.InDelta(t, 256, v, 1e-12)
}

func TestComposePropagatesInitValues(t *testing.T) {
	// exp o (1 + t) = e^(1+t): the pre-simulation rebases exp(0) to e.
	exp := exponentialCircuit("exp")
	inner := linearCircuit(1, 1)
	comp, err := exp.Compose(inner)
	require.NoError(t, err)
	require.NoError(t, comp.Finalize(true))

	v, err := comp.EvalAt(0)
	require.NoError(t, err)
	assert.InDelta(t, 2.718281828, v, 1e-3)
}
