package device

import (
	"gospyce/pkg/stimulus"

	"github.com/pkg/errors"
)

// VoltageSource is an ideal source with a branch-current unknown. A
// zero-valued source doubles as an ammeter.
type VoltageSource struct {
	BaseDevice
	dc   float64
	stim stimulus.Stimulus

	jac [][]float64
	beq []float64
}

func NewVoltageSource(n1, n2 string, dc float64) *VoltageSource {
	v := &VoltageSource{dc: dc}
	v.SetNodeNames([]string{n1, n2})
	return v
}

// NewVoltageSourceStim drives the source from a waveform instead of a
// constant.
func NewVoltageSourceStim(n1, n2 string, stim stimulus.Stimulus) *VoltageSource {
	v := &VoltageSource{stim: stim}
	v.SetNodeNames([]string{n1, n2})
	return v
}

func (v *VoltageSource) Voltage(t float64) float64 {
	if v.stim != nil {
		return v.stim.Value(t)
	}
	return v.dc
}

func (v *VoltageSource) Connect(ckt Circuit) error {
	v.connectPorts(ckt, 1)
	v.jac, v.beq = stamps(3)
	return nil
}

func (v *VoltageSource) Start(dt float64) error {
	if v.jac == nil {
		return errors.Errorf("voltage source %s started before Connect", v.Name())
	}
	if v.stim != nil {
		v.stim.Start(dt)
	}
	v.jac[0][2] = 1
	v.jac[1][2] = -1
	v.jac[2][0] = 1
	v.jac[2][1] = -1
	v.beq[2] = v.Voltage(0)
	return nil
}

func (v *VoltageSource) Step(st *Status) error {
	v.beq[2] = v.Voltage(st.Time)
	return nil
}

// CurrentNode reports the branch current flowing from the positive port
// through the source.
func (v *VoltageSource) CurrentNode() (int, float64) { return v.nodes[2], 1.0 }

func (v *VoltageSource) Jac() [][]float64 { return v.jac }
func (v *VoltageSource) Beq() []float64 { return v.beq }

var (
	_ Device        = (*VoltageSource)(nil)
	_ CurrentSensor = (*VoltageSource)(nil)
)
