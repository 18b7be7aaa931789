package device

// Capacitor uses the backward-Euler companion model: a conductance C/dt in
// parallel with a current source driven by the previous step's voltage.
type Capacitor struct {
	BaseDevice
	value float64
	geq   float64

	jac [][]float64
	beq []float64
}

func NewCapacitor(n1, n2 string, value float64) (*Capacitor, error) {
	if value <= 0 {
		return nil, &ParamError{Device: "capacitor", Param: "value", Reason: "must be positive"}
	}
	c := &Capacitor{value: value}
	c.SetNodeNames([]string{n1, n2})
	return c, nil
}

func (c *Capacitor) Value() float64 { return c.value }

func (c *Capacitor) Connect(ckt Circuit) error {
	c.connectPorts(ckt, 0)
	c.jac, c.beq = stamps(2)
	return nil
}

func (c *Capacitor) Start(dt float64) error {
	c.geq = c.value / dt
	c.jac[0][0] = c.geq
	c.jac[0][1] = -c.geq
	c.jac[1][0] = -c.geq
	c.jac[1][1] = c.geq
	return nil
}

func (c *Capacitor) Step(st *Status) error {
	vh := c.AcrossHistory(st, 0, 1)
	c.beq[0] = c.geq * vh
	c.beq[1] = -c.geq * vh
	return nil
}

func (c *Capacitor) Jac() [][]float64 { return c.jac }
func (c *Capacitor) Beq() []float64 { return c.beq }

var _ Device = (*Capacitor)(nil)
