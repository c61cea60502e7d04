package blocks

import (
	"math"

	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/pkg/circuit"
	"github.com/flebeau/GPAClib/pkg/matrix"
)

// mod10Points is the number of interpolation points: Mod10 agrees with
// k mod 10 on the integers 0..9 and is 10-periodic.
const mod10Points = 10

// mod10Basis evaluates the trigonometric interpolation basis at t:
// 1, cos(ωt), sin(ωt), ..., cos(4ωt), sin(4ωt), cos(5ωt) with ω = 2π/10.
// The last mode is the Nyquist one, whose sine vanishes at the nodes.
func mod10Basis(t float64) [mod10Points]float64 {
	w := 2 * math.Pi / mod10Points
	var row [mod10Points]float64
	row[0] = 1
	for j := 1; j <= 4; j++ {
		row[2*j-1] = math.Cos(float64(j) * w * t)
		row[2*j] = math.Sin(float64(j) * w * t)
	}
	row[9] = math.Cos(5 * w * t)
	return row
}

// mod10Coefficients solves the 10x10 interpolation system with the sparse
// LU solver. This runs once, offline, when the block is built.
func mod10Coefficients() ([]float64, error) {
	sys, err := matrix.NewLinearSystem(mod10Points)
	if err != nil {
		return nil, errors.Wrap(err, "Mod10 interpolation system")
	}
	defer sys.Destroy()
	for k := 0; k < mod10Points; k++ {
		row := mod10Basis(float64(k))
		for j := 0; j < mod10Points; j++ {
			if err := sys.AddElement(k+1, j+1, row[j]); err != nil {
				return nil, err
			}
		}
		if err := sys.AddRHS(k+1, float64(k)); err != nil {
			return nil, err
		}
	}
	solution, err := sys.Solve()
	if err != nil {
		return nil, errors.Wrap(err, "Mod10 interpolation system")
	}
	coeffs := make([]float64, mod10Points)
	copy(coeffs, solution[1:mod10Points+1])
	return coeffs, nil
}

// Mod10 computes the 10-periodic trigonometric interpolation of k mod 10 at
// the integers: a0 + sum_j (a_j cos(jωt) + b_j sin(jωt)) + a5 cos(5ωt).
func Mod10() (*circuit.Circuit, error) {
	coeffs, err := mod10Coefficients()
	if err != nil {
		return nil, err
	}
	w := 2 * math.Pi / mod10Points

	res := Constant(coeffs[0])
	addMode := func(block *circuit.Circuit, freq, coeff float64) error {
		if coeff == 0 {
			return nil
		}
		scaled, err := Identity().TimesConst(freq)
		if err != nil {
			return err
		}
		mode, err := block.Compose(scaled)
		if err != nil {
			return err
		}
		mode, err = mode.TimesConst(coeff)
		if err != nil {
			return err
		}
		res, err = res.Plus(mode)
		return err
	}
	for j := 1; j <= 4; j++ {
		if err := addMode(Cos(), float64(j)*w, coeffs[2*j-1]); err != nil {
			return nil, err
		}
		if err := addMode(Sin(), float64(j)*w, coeffs[2*j]); err != nil {
			return nil, err
		}
	}
	if err := addMode(Cos(), 5*w, coeffs[9]); err != nil {
		return nil, err
	}
	res.Rename("Mod10")
	return res, nil
}
