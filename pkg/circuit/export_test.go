package circuit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDotShapes(t *testing.T) {
	c := exponentialCircuit("exp")
	dot := c.ToDot()

	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "node [shape = box];")
	assert.Contains(t, dot, "∫")
	assert.Contains(t, dot, "peripheries = 2", "output gate is double-bordered")
	assert.Contains(t, dot, "color = red")
	// The variable edge of a normalized integration gate is implied.
	assert.NotContains(t, dot, `"t" -> "exp"`)
	assert.Contains(t, dot, `"exp" -> "exp";`)
}

func TestToDotDashedVariableEdge(t *testing.T) {
	c := New("raw")
	_, err := c.AddIntGate("u", "u", "t")
	require.NoError(t, err)
	_, err = c.AddIntGate("g", "u", "u")
	require.NoError(t, err)
	c.SetOutput("g")
	dot := c.ToDot()
	assert.Contains(t, dot, `"u" -> "g" [style = dashed];`)
}

func TestToDotConstantLabels(t *testing.T) {
	c := New("consts")
	_, err := c.AddConstantGate("k", 2.5)
	require.NoError(t, err)
	_, err = c.AddProdGate("p", "k", "t")
	require.NoError(t, err)
	c.SetOutput("p")
	dot := c.ToDot()
	assert.Contains(t, dot, `node [label = "2.5"]`)
	assert.Contains(t, dot, `node [label = "×"]`)
	assert.Contains(t, dot, `node [label = "t"]; t;`)
}

func TestStringRoundTripShape(t *testing.T) {
	c := New("Sample")
	_, err := c.AddConstantGate("k", -1)
	require.NoError(t, err)
	_, err = c.AddProdGate("p", "k", "g")
	require.NoError(t, err)
	_, err = c.AddIntGate("g", "p", "t")
	require.NoError(t, err)
	require.NoError(t, c.SetInitValue("g", 0.5))
	c.SetOutput("g")

	s := c.String()
	assert.True(t, strings.HasPrefix(s, "Circuit Sample:\n"))
	assert.Contains(t, s, "k: -1")
	assert.Contains(t, s, "p: k * g")
	assert.Contains(t, s, "g: int p d(t) | 0.5")
	assert.True(t, strings.HasSuffix(s, ";\n"))
	// The output gate comes last.
	lines := strings.Split(strings.TrimSpace(s), "\n")
	assert.Contains(t, lines[len(lines)-2], "g: int p d(t)")
}

func TestLaTeXOfExponential(t *testing.T) {
	c := exponentialCircuit("exp")
	require.NoError(t, c.Finalize(true))
	tex, err := c.ToLaTeX()
	require.NoError(t, err)
	assert.Contains(t, tex, "x_{1}' = x_{1}")
	assert.Contains(t, tex, "x_{1}(0) = 1")
	assert.Contains(t, tex, "y = x_{1}")
}

func TestLaTeXPolynomialOutput(t *testing.T) {
	c := New("poly")
	_, err := c.AddConstantGate("one", 1)
	require.NoError(t, err)
	_, err = c.AddProdGate("sq", "t", "t")
	require.NoError(t, err)
	_, err = c.AddAddGate("s", "sq", "one")
	require.NoError(t, err)
	c.SetOutput("s")
	require.NoError(t, c.Finalize(true))

	tex, err := c.ToLaTeX()
	require.NoError(t, err)
	assert.Contains(t, tex, "t^{2}")
	assert.Contains(t, tex, "y = ")
}

func TestLaTeXRequiresFinalized(t *testing.T) {
	c := exponentialCircuit("exp")
	_, err := c.ToLaTeX()
	assert.Error(t, err)
}

func TestLaTeXCollectsLikeTerms(t *testing.T) {
	// t*t + t*t renders as 2t^2 once simplified structurally or as the
	// collected monomial sum otherwise.
	c := New("like")
	_, err := c.AddProdGate("a", "t", "t")
	require.NoError(t, err)
	_, err = c.AddProdGate("b", "t", "t")
	require.NoError(t, err)
	_, err = c.AddAddGate("s", "a", "b")
	require.NoError(t, err)
	c.SetOutput("s")
	require.NoError(t, c.Finalize(false))

	tex, err := c.ToLaTeX()
	require.NoError(t, err)
	assert.Contains(t, tex, "2t^{2}")
}
