// Package matrix wraps the sparse LU solver behind the 1-based MNA system
// used by the assembler. Ground (node 0) is excluded; callers stamp rows
// and columns 1..Size.
package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
	"github.com/pkg/errors"
)

// SingularError reports a factorization failure. The system has no unique
// solution, typically from a floating subcircuit or a shorted source loop.
type SingularError struct {
	Size int
	Err  error
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("singular system (%d unknowns): %v", e.Size, e.Err)
}

func (e *SingularError) Unwrap() error { return e.Err }

type System struct {
	Size int

	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
}

func NewSystem(size int) (*System, error) {
	// Translate keeps GetElement usable after Factor reorders the
	// matrix; the system is restamped on every Newton iteration.
	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		Translate:      true,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, errors.Wrap(err, "creating sparse matrix")
	}

	return &System{
		Size:     size,
		matrix:   mat,
		rhs:      make([]float64, size+1), // 1-based
		solution: make([]float64, size+1),
	}, nil
}

// SetupElements touches every position once so the sparse structure is
// allocated before the first factorization.
func (m *System) SetupElements() {
	for i := 1; i <= m.Size; i++ {
		for j := 1; j <= m.Size; j++ {
			m.matrix.GetElement(int64(i), int64(j))
		}
	}
}

func (m *System) AddElement(i, j int, value float64) {
	if i <= 0 || j <= 0 || i > m.Size || j > m.Size {
		return
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
}

func (m *System) AddRHS(i int, value float64) {
	if i <= 0 || i > m.Size {
		return
	}
	m.rhs[i] += value
}

// LoadGmin adds a small conductance on the diagonal to keep otherwise
// floating nodes solvable.
func (m *System) LoadGmin(gmin float64) {
	for i := 1; i <= m.Size; i++ {
		if diag := m.matrix.Diags[i]; diag != nil {
			diag.Real += gmin
		}
	}
}

func (m *System) Clear() {
	m.matrix.Clear()
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

// Solve factors and solves the stamped system. The returned slice is
// 1-based with index 0 unused.
func (m *System) Solve() ([]float64, error) {
	if err := m.matrix.Factor(); err != nil {
		return nil, &SingularError{Size: m.Size, Err: err}
	}
	sol, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return nil, &SingularError{Size: m.Size, Err: err}
	}
	m.solution = sol
	return m.solution, nil
}

func (m *System) RHS() []float64 { return m.rhs }
func (m *System) Solution() []float64 { return m.solution }

func (m *System) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
	}
}
