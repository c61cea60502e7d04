package blocks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flebeau/GPAClib/pkg/analysis"
	"github.com/flebeau/GPAClib/pkg/circuit"
)

// valueAt finalizes the block and integrates it from 0 to tv, returning the
// final output value.
func valueAt(t *testing.T, ckt *circuit.Circuit, tv float64) float64 {
	t.Helper()
	require.NoError(t, ckt.Finalize(true))
	tr := analysis.NewTransient(0, tv, 0.001)
	require.NoError(t, tr.Setup(ckt))
	require.NoError(t, tr.Execute())
	_, values := tr.Output()
	require.NotEmpty(t, values)
	return values[len(values)-1]
}

func TestPrimitiveBlocks(t *testing.T) {
	tests := []struct {
		name  string
		build func() *circuit.Circuit
		at    float64
		want  float64
		tol   float64
	}{
		{"Exp", Exp, 1, math.E, 1e-4},
		{"Sin", Sin, 1.2, math.Sin(1.2), 1e-4},
		{"Cos", Cos, 1.2, math.Cos(1.2), 1e-4},
		{"Tan", Tan, 0.5, math.Tan(0.5), 1e-4},
		{"Arctan", Arctan, 2, math.Atan(2), 1e-4},
		{"Tanh", Tanh, 1, math.Tanh(1), 1e-4},
		{"Inverse", Inverse, 1, 0.5, 1e-4},
		{"Sqrt", Sqrt, 1, math.Sqrt2, 1e-4},
		{"Exp2", Exp2, 1, math.E, 1e-3},
		{"L2", func() *circuit.Circuit { return L2(10) }, 1, 1 / (1 + math.Exp(-10)), 1e-3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := valueAt(t, tt.build(), tt.at)
			assert.InDelta(t, tt.want, got, tt.tol)
		})
	}
}

func TestIdentity(t *testing.T) {
	id := Identity()
	assert.Equal(t, "t", id.Output())
	v, err := id.EvalAt(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
}

func TestConstantBlock(t *testing.T) {
	c := Constant(4.25)
	v, err := c.EvalAt(17)
	require.NoError(t, err)
	assert.Equal(t, 4.25, v)
}

func TestPolynomialHorner(t *testing.T) {
	// 1 + t^2 (seed: coefficients [1, 0, 1])
	poly := Polynomial([]float64{1, 0, 1})
	v, err := poly.EvalAt(3)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	// 2 - t + 3t^3
	poly = Polynomial([]float64{2, -1, 0, 3})
	v, err = poly.EvalAt(2)
	require.NoError(t, err)
	assert.InDelta(t, 2-2+3*8, v, 1e-12)

	zero := Polynomial(nil)
	v, err = zero.EvalAt(5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestRound(t *testing.T) {
	r, err := Round()
	require.NoError(t, err)
	// t - sin(2*pi*t)/(2*pi) fixes the integers.
	got := valueAt(t, r, 2)
	assert.InDelta(t, 2, got, 1e-3)
}

func TestSgnIp1Abs(t *testing.T) {
	s, err := Sgn(8)
	require.NoError(t, err)
	assert.InDelta(t, 1, valueAt(t, s, 1), 1e-3)

	step, err := Ip1(8)
	require.NoError(t, err)
	assert.InDelta(t, 1, valueAt(t, step, 1), 1e-3)

	abs := Abs(0.05)
	assert.InDelta(t, 1, valueAt(t, abs, 1), 1e-2)
}

func TestUpsilonRectangular(t *testing.T) {
	u, err := Upsilon()
	require.NoError(t, err)
	require.NoError(t, u.Finalize(true))
	tr := analysis.NewTransient(0, 0.75, 0.0005)
	require.NoError(t, tr.Setup(u))
	require.NoError(t, tr.Execute())
	times, values := tr.Output()
	var quarter, threeQuarter float64
	for i, tv := range times {
		if math.Abs(tv-0.25) < 1e-9 {
			quarter = values[i]
		}
		if math.Abs(tv-0.75) < 1e-9 {
			threeQuarter = values[i]
		}
	}
	assert.InDelta(t, 1, quarter, 1e-2, "high plateau")
	assert.InDelta(t, 0, threeQuarter, 1e-2, "low plateau")
}

func TestLxhIndicator(t *testing.T) {
	l, err := Lxh(8)
	require.NoError(t, err)
	assert.InDelta(t, 1, valueAt(t, l, 0.5), 1e-2, "inside [0,1]")

	l2, err := Lxh(8)
	require.NoError(t, err)
	assert.InDelta(t, 0, valueAt(t, l2, 2), 1e-2, "outside [0,1]")
}

func TestSelect(t *testing.T) {
	sel, err := Select(0, 1, 0.05, 3, 7)
	require.NoError(t, err)
	assert.InDelta(t, 7, valueAt(t, sel, 2), 1e-2, "past the midpoint the second value wins")
}

func TestMax(t *testing.T) {
	m, err := Max(Identity(), Polynomial([]float64{1}), 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 3, valueAt(t, m, 3), 5e-2, "max(t, 1) at t=3")
}

func TestMod10Coefficients(t *testing.T) {
	coeffs, err := mod10Coefficients()
	require.NoError(t, err)
	require.Len(t, coeffs, 10)
	for k := 0; k < 10; k++ {
		row := mod10Basis(float64(k))
		sum := 0.0
		for j := range row {
			sum += coeffs[j] * row[j]
		}
		assert.InDelta(t, float64(k), sum, 1e-8, "interpolation at %d", k)
	}
}

func TestMod10Circuit(t *testing.T) {
	m, err := Mod10()
	require.NoError(t, err)
	v, err := m.EvalAt(0)
	require.NoError(t, err)
	assert.InDelta(t, 0, v, 1e-6)

	got := valueAt(t, m, 3)
	assert.InDelta(t, 3, got, 5e-2, "interpolation hits k at the integers")
}
