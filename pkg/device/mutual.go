package device

import (
	"math"

	"github.com/pkg/errors"
)

// Mutual couples two inductors by name. It stamps only the off-diagonal
// mutual terms; each inductor keeps its own self-inductance stamp. Port
// order of the local block is l1 ports, l1 branch, l2 ports, l2 branch.
type Mutual struct {
	BaseDevice
	l1Name string
	l2Name string
	coeff  float64
	dt     float64

	l1 *Inductor
	l2 *Inductor

	jac [][]float64
	beq []float64
}

func NewMutual(l1, l2 string, coeff float64) (*Mutual, error) {
	if coeff <= 0 || coeff > 1 {
		return nil, &ParamError{Device: "mutual", Param: "k", Reason: "must be in (0, 1]"}
	}
	return &Mutual{l1Name: l1, l2Name: l2, coeff: coeff}, nil
}

func (m *Mutual) InductorNames() (string, string) { return m.l1Name, m.l2Name }

// SetInductorNames rebinds the coupled inductors, used when flattening
// subcircuits mangles device names.
func (m *Mutual) SetInductorNames(l1, l2 string) { m.l1Name, m.l2Name = l1, l2 }

func (m *Mutual) Connect(ckt Circuit) error {
	l1, ok := ckt.FindDevice(m.l1Name).(*Inductor)
	if !ok {
		return errors.Errorf("mutual %s: inductor %s not found", m.Name(), m.l1Name)
	}
	l2, ok := ckt.FindDevice(m.l2Name).(*Inductor)
	if !ok {
		return errors.Errorf("mutual %s: inductor %s not found", m.Name(), m.l2Name)
	}
	m.l1, m.l2 = l1, l2
	m.jac, m.beq = stamps(6)
	return nil
}

func (m *Mutual) Start(dt float64) error {
	// the coupled inductors may connect after this device; their branch
	// nodes exist only once every Connect has run, so bind them here
	m.nodes = append(append([]int{}, m.l1.Nodes()...), m.l2.Nodes()...)
	m.dt = dt
	mu := m.coeff * math.Sqrt(m.l1.Value()*m.l2.Value())
	m.jac[2][5] = -(mu / dt)
	m.jac[5][2] = -(mu / dt)
	return nil
}

func (m *Mutual) Step(st *Status) error {
	i1 := m.at(st.History, 2)
	i2 := m.at(st.History, 5)
	mu := m.coeff * math.Sqrt(m.l1.Value()*m.l2.Value())
	m.beq[2] = -(mu / m.dt) * i2
	m.beq[5] = -(mu / m.dt) * i1
	return nil
}

func (m *Mutual) Jac() [][]float64 { return m.jac }
func (m *Mutual) Beq() []float64 { return m.beq }

var _ Device = (*Mutual)(nil)
