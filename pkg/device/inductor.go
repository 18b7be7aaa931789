package device

// Inductor introduces a branch-current unknown on an internal node. The
// branch row enforces v1 - v2 - (L/dt)*i = -(L/dt)*i_prev under backward
// Euler; the port rows add and remove the branch current.
type Inductor struct {
	BaseDevice
	value float64
	res   float64 // series resistance
	dt    float64

	jac [][]float64
	beq []float64
}

func NewInductor(n1, n2 string, value float64) (*Inductor, error) {
	if value <= 0 {
		return nil, &ParamError{Device: "inductor", Param: "value", Reason: "must be positive"}
	}
	l := &Inductor{value: value}
	l.SetNodeNames([]string{n1, n2})
	return l, nil
}

func (l *Inductor) Value() float64 { return l.value }

// SetResistance adds a series winding resistance to the branch equation.
func (l *Inductor) SetResistance(res float64) { l.res = res }

func (l *Inductor) Connect(ckt Circuit) error {
	l.connectPorts(ckt, 1)
	l.jac, l.beq = stamps(3)
	return nil
}

func (l *Inductor) Start(dt float64) error {
	l.dt = dt
	l.jac[0][2] = 1
	l.jac[1][2] = -1
	l.jac[2][0] = 1
	l.jac[2][1] = -1
	l.jac[2][2] = -(l.res + l.value/dt)
	return nil
}

func (l *Inductor) Step(st *Status) error {
	iPrev := l.at(st.History, 2)
	l.beq[2] = -(l.value / l.dt) * iPrev
	return nil
}

// CurrentNode exposes the branch current for probes and history.
func (l *Inductor) CurrentNode() (int, float64) { return l.nodes[2], 1.0 }

func (l *Inductor) Jac() [][]float64 { return l.jac }
func (l *Inductor) Beq() []float64 { return l.beq }

var (
	_ Device        = (*Inductor)(nil)
	_ CurrentSensor = (*Inductor)(nil)
)
