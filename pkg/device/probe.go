package device

import "fmt"

// VoltageProbe observes a net pair without stamping anything. It exists so
// schematic scope blocks have a device to bind to; connecting it forces
// both nets to exist in the node table.
type VoltageProbe struct {
	BaseDevice
	jac [][]float64
	beq []float64
}

func NewVoltageProbe(n1, n2 string) *VoltageProbe {
	p := &VoltageProbe{}
	p.SetNodeNames([]string{n1, n2})
	return p
}

func (p *VoltageProbe) Connect(ckt Circuit) error {
	p.connectPorts(ckt, 0)
	p.jac, p.beq = stamps(2)
	return nil
}

func (p *VoltageProbe) Start(dt float64) error { return nil }
func (p *VoltageProbe) Step(st *Status) error { return nil }
func (p *VoltageProbe) Jac() [][]float64 { return p.jac }
func (p *VoltageProbe) Beq() []float64 { return p.beq }

// Keys names the history channels this probe observes.
func (p *VoltageProbe) Keys() []string {
	return []string{fmt.Sprintf("V(%s)", p.nodeNames[0]), fmt.Sprintf("V(%s)", p.nodeNames[1])}
}

// CurrentProbe is a zero-volt source in series with the measured branch.
type CurrentProbe struct {
	VoltageSource
}

func NewCurrentProbe(n1, n2 string) *CurrentProbe {
	p := &CurrentProbe{}
	p.SetNodeNames([]string{n1, n2})
	return p
}

var (
	_ Device        = (*VoltageProbe)(nil)
	_ Device        = (*CurrentProbe)(nil)
	_ CurrentSensor = (*CurrentProbe)(nil)
)
