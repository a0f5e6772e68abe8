package matrix

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/edp1096/resistor-network/internal/consts"
	"github.com/edp1096/sparse"
)

var ErrSingular = errors.New("matrix: singular")

// JacobianMatrix is a real square system solved by sparse LU factorization.
type JacobianMatrix struct {
	Size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
	maxAbs   float64
	err      error
}

func NewMatrix(size int) (*JacobianMatrix, error) {
	config := &sparse.Configuration{
		Real:           true,
		Complex:        false,
		Expandable:     true,
		Translate:      false,
		ModifiedNodal:  false,
		TiesMultiplier: 5,
		PrinterWidth:   140,
		Annotate:       0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %v", err)
	}

	return &JacobianMatrix{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1), // 1-based indexing
		solution: make([]float64, size+1),
	}, nil
}

// AddElement accumulates value at (i, j). Zero values are not stored so an
// all-zero row or column stays structurally empty.
func (m *JacobianMatrix) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		if m.err == nil {
			m.err = fmt.Errorf("matrix index out of bounds (i=%d, j=%d, size=%d)", i, j, m.Size)
		}
		return
	}
	if value == 0 {
		return
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
	m.maxAbs = math.Max(m.maxAbs, math.Abs(value))
}

func (m *JacobianMatrix) AddRHS(i int, value float64) {
	if i <= 0 || i > m.Size {
		if m.err == nil {
			m.err = fmt.Errorf("rhs index out of bounds (i=%d, size=%d)", i, m.Size)
		}
		return
	}
	m.rhs[i] += value
}

func (m *JacobianMatrix) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
	m.maxAbs = 0
	m.err = nil
}

// Solve factors the matrix and solves for the loaded right hand side. A pivot
// smaller than PIVOT_TOL relative to the largest entry counts as singular.
func (m *JacobianMatrix) Solve() error {
	if m.err != nil {
		return m.err
	}
	if m.maxAbs == 0 {
		return fmt.Errorf("%w: all entries are zero", ErrSingular)
	}

	if err := m.matrix.Factor(); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}

	for i := 1; i <= m.Size; i++ {
		diag := m.matrix.Diags[i] // reciprocal of the pivot after factoring
		if diag == nil || diag.Real == 0 || math.IsNaN(diag.Real) {
			return fmt.Errorf("%w: no pivot at step %d", ErrSingular, i)
		}
		if pivot := 1 / diag.Real; math.Abs(pivot) <= consts.PIVOT_TOL*m.maxAbs {
			return fmt.Errorf("%w: pivot %g at step %d", ErrSingular, pivot, i)
		}
	}

	solution, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %v", err)
	}
	for i := 1; i <= m.Size; i++ {
		if math.IsNaN(solution[i]) || math.IsInf(solution[i], 0) {
			return fmt.Errorf("%w: non-finite solution at %d", ErrSingular, i)
		}
	}
	m.solution = solution

	return nil
}

// Solution returns the last solution, 0-based.
func (m *JacobianMatrix) Solution() []float64 {
	return append([]float64(nil), m.solution[1:]...)
}

func (m *JacobianMatrix) RHS() []float64 {
	return append([]float64(nil), m.rhs[1:]...)
}

// PrintSystem writes the non-zero equations, one row per line. Call it
// before Solve; factoring overwrites the entries.
func (m *JacobianMatrix) PrintSystem(w io.Writer) {
	rows := make([][]float64, m.Size+1)
	for i := range rows {
		rows[i] = make([]float64, m.Size+1)
	}
	for j := 1; j <= m.Size; j++ {
		for e := m.matrix.FirstInCol[j]; e != nil; e = e.NextInCol {
			rows[e.Row][j] = e.Real
		}
	}

	fmt.Fprintf(w, "Jacobian (%dx%d):\n", m.Size, m.Size)
	for i := 1; i <= m.Size; i++ {
		fmt.Fprintf(w, "  row %d:", i)
		for j := 1; j <= m.Size; j++ {
			if value := rows[i][j]; value != 0 {
				fmt.Fprintf(w, " %+g*dx%d", value, j)
			}
		}
		fmt.Fprintf(w, " = %g\n", m.rhs[i])
	}
}

func (m *JacobianMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}
