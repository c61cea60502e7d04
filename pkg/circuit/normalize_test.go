package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flebeau/GPAClib/pkg/gate"
)

func intGateNames(c *Circuit) []string {
	var names []string
	for _, name := range c.GateNames() {
		if c.Gate(name).Kind == gate.Int {
			names = append(names, name)
		}
	}
	return names
}

func assertNormalized(t *testing.T, c *Circuit) {
	t.Helper()
	for _, name := range intGateNames(c) {
		assert.Equal(t, gate.Time, c.Gate(name).Y, "gate %q not normalized", name)
	}
}

// Case 1: integrating with respect to an already-normalized integration
// gate folds the chain rule into a product.
func TestNormalizeIntOverInt(t *testing.T) {
	c := New("n1")
	_, err := c.AddConstantGate("u", 2)
	require.NoError(t, err)
	_, err = c.AddIntGate("y", "u", "t")
	require.NoError(t, err)
	_, err = c.AddIntGate("g", "u", "y")
	require.NoError(t, err)
	require.NoError(t, c.SetInitValue("y", 0))
	require.NoError(t, c.SetInitValue("g", 1))
	c.SetOutput("g")

	require.NoError(t, c.Normalize())
	assertNormalized(t, c)

	g := c.Gate("g")
	require.Equal(t, gate.Int, g.Kind)
	prod := c.Gate(g.X)
	require.NotNil(t, prod)
	assert.Equal(t, gate.Prod, prod.Kind)
	assert.Equal(t, "u", prod.X)
	assert.Equal(t, "u", prod.Y)
	// The rewritten gate keeps its initial value.
	v, ok := c.InitValue("g")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
}

// Case 2a: a constant factor of the variable input moves into the
// integrand.
func TestNormalizeConstantFactor(t *testing.T) {
	c := New("n2a")
	_, err := c.AddConstantGate("k", 3)
	require.NoError(t, err)
	_, err = c.AddIntGate("v", "k", "t")
	require.NoError(t, err)
	_, err = c.AddProdGate("y", "k", "v")
	require.NoError(t, err)
	_, err = c.AddIntGate("g", "v", "y")
	require.NoError(t, err)
	require.NoError(t, c.SetInitValue("v", 0))
	require.NoError(t, c.SetInitValue("g", 0))
	c.SetOutput("g")

	require.NoError(t, c.Normalize())
	assertNormalized(t, c)
	// g remains a single integration gate: no split was needed.
	assert.Equal(t, gate.Int, c.Gate("g").Kind)
}

// Case 2b: a genuine product variable input splits the gate in two, with
// half the initial value on each successor.
func TestNormalizeProductSplit(t *testing.T) {
	c := New("n2b")
	_, err := c.AddConstantGate("one", 1)
	require.NoError(t, err)
	_, err = c.AddIntGate("u", "one", "t")
	require.NoError(t, err)
	_, err = c.AddIntGate("v", "one", "t")
	require.NoError(t, err)
	_, err = c.AddProdGate("y", "u", "v")
	require.NoError(t, err)
	_, err = c.AddIntGate("g", "u", "y")
	require.NoError(t, err)
	require.NoError(t, c.SetInitValue("u", 0))
	require.NoError(t, c.SetInitValue("v", 0))
	require.NoError(t, c.SetInitValue("g", 1))
	c.SetOutput("g")

	require.NoError(t, c.Normalize())
	assertNormalized(t, c)

	g := c.Gate("g")
	require.Equal(t, gate.Add, g.Kind, "split gate becomes an addition")
	vx, okx := c.InitValue(g.X)
	vy, oky := c.InitValue(g.Y)
	require.True(t, okx)
	require.True(t, oky)
	assert.Equal(t, 0.5, vx)
	assert.Equal(t, 0.5, vy)
}

// Case 3a: a constant summand of the variable input is dropped.
func TestNormalizeConstantSummand(t *testing.T) {
	c := New("n3a")
	_, err := c.AddConstantGate("k", 5)
	require.NoError(t, err)
	_, err = c.AddIntGate("u", "k", "t")
	require.NoError(t, err)
	_, err = c.AddAddGate("y", "u", "k")
	require.NoError(t, err)
	_, err = c.AddIntGate("g", "u", "y")
	require.NoError(t, err)
	require.NoError(t, c.SetInitValue("u", 0))
	require.NoError(t, c.SetInitValue("g", 0))
	c.SetOutput("g")

	require.NoError(t, c.Normalize())
	assertNormalized(t, c)
	g := c.Gate("g")
	assert.Equal(t, gate.Int, g.Kind)
	assert.Equal(t, "u", c.Gate(g.X).Y, "after dropping the constant, case 1 rewrote over u")
}

// Case 3b: a sum variable input splits linearly.
func TestNormalizeSumSplit(t *testing.T) {
	c := New("n3b")
	_, err := c.AddConstantGate("one", 1)
	require.NoError(t, err)
	_, err = c.AddIntGate("u", "one", "t")
	require.NoError(t, err)
	_, err = c.AddIntGate("v", "one", "t")
	require.NoError(t, err)
	_, err = c.AddAddGate("y", "u", "v")
	require.NoError(t, err)
	_, err = c.AddIntGate("g", "one", "y")
	require.NoError(t, err)
	require.NoError(t, c.SetInitValue("u", 0))
	require.NoError(t, c.SetInitValue("v", 0))
	require.NoError(t, c.SetInitValue("g", 4))
	c.SetOutput("g")

	require.NoError(t, c.Normalize())
	assertNormalized(t, c)
	g := c.Gate("g")
	require.Equal(t, gate.Add, g.Kind)
	vx, _ := c.InitValue(g.X)
	vy, _ := c.InitValue(g.Y)
	assert.Equal(t, 2.0, vx)
	assert.Equal(t, 2.0, vy)
}

// An integration gate over a bare constant cannot be rewritten; Finalize
// reports the failure instead of crashing.
func TestNormalizeFailureOverConstant(t *testing.T) {
	c := NewWithOptions("bad", false, false)
	_, err := c.AddConstantGate("k", 5)
	require.NoError(t, err)
	_, err = c.AddIntGate("g", "k", "k")
	require.NoError(t, err)
	require.NoError(t, c.SetInitValue("g", 0))
	c.SetOutput("g")

	err = c.Finalize(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot normalize")
}

// Normalization leaves an already-normalized circuit alone.
func TestNormalizeNoop(t *testing.T) {
	c := New("noop")
	_, err := c.AddIntGate("g", "g", "t")
	require.NoError(t, err)
	require.NoError(t, c.SetInitValue("g", 1))
	c.SetOutput("g")
	before := c.String()
	require.NoError(t, c.Normalize())
	assert.Equal(t, before, c.String())
}
