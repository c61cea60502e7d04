// Package matrix wraps the edp1096/sparse LU solver behind a small
// real-valued linear-system type. The block library uses it to solve the
// interpolation systems some builtin circuits need at construction time.
package matrix

import (
	"github.com/pkg/errors"

	"github.com/edp1096/sparse"
)

// LinearSystem is an n x n real system A x = b. Indices are 1-based, as in
// the underlying solver.
type LinearSystem struct {
	Size   int
	matrix *sparse.Matrix
	rhs    []float64
	config *sparse.Configuration
}

func NewLinearSystem(size int) (*LinearSystem, error) {
	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}
	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, errors.Wrap(err, "creating sparse matrix")
	}
	return &LinearSystem{
		Size:   size,
		matrix: mat,
		rhs:    make([]float64, size+1), // 1-based indexing
		config: config,
	}, nil
}

func (m *LinearSystem) AddElement(i, j int, value float64) error {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		return errors.Errorf("matrix index out of bounds (i=%d, j=%d, size=%d)", i, j, m.Size)
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
	return nil
}

func (m *LinearSystem) AddRHS(i int, value float64) error {
	if i <= 0 || i > m.Size {
		return errors.Errorf("rhs index out of bounds (i=%d, size=%d)", i, m.Size)
	}
	m.rhs[i] += value
	return nil
}

// Solve factors the matrix and returns the solution, 1-based.
func (m *LinearSystem) Solve() ([]float64, error) {
	if err := m.matrix.Factor(); err != nil {
		return nil, errors.Wrap(err, "matrix factorization failed")
	}
	solution, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return nil, errors.Wrap(err, "matrix solve failed")
	}
	return solution, nil
}

func (m *LinearSystem) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
	}
}
