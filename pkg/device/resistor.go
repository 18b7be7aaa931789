package device

type Resistor struct {
	BaseDevice
	value float64

	jac [][]float64
	beq []float64
}

func NewResistor(n1, n2 string, value float64) (*Resistor, error) {
	if value == 0 {
		return nil, &ParamError{Device: "resistor", Param: "value", Reason: "must not be zero"}
	}
	r := &Resistor{value: value}
	r.SetNodeNames([]string{n1, n2})
	return r, nil
}

func (r *Resistor) Value() float64 { return r.value }

func (r *Resistor) Connect(ckt Circuit) error {
	r.connectPorts(ckt, 0)
	r.jac, r.beq = stamps(2)
	return nil
}

func (r *Resistor) Start(dt float64) error {
	g := 1.0 / r.value
	r.jac[0][0] = g
	r.jac[0][1] = -g
	r.jac[1][0] = -g
	r.jac[1][1] = g
	return nil
}

func (r *Resistor) Step(st *Status) error { return nil }

func (r *Resistor) Jac() [][]float64 { return r.jac }
func (r *Resistor) Beq() []float64 { return r.beq }

var _ Device = (*Resistor)(nil)
