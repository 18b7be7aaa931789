package device

import "gospyce/pkg/stimulus"

// CurrentSource drives its stamped current into the first port.
type CurrentSource struct {
	BaseDevice
	dc   float64
	stim stimulus.Stimulus

	jac [][]float64
	beq []float64
}

func NewCurrentSource(n1, n2 string, dc float64) *CurrentSource {
	i := &CurrentSource{dc: dc}
	i.SetNodeNames([]string{n1, n2})
	return i
}

func NewCurrentSourceStim(n1, n2 string, stim stimulus.Stimulus) *CurrentSource {
	i := &CurrentSource{stim: stim}
	i.SetNodeNames([]string{n1, n2})
	return i
}

func (i *CurrentSource) Current(t float64) float64 {
	if i.stim != nil {
		return i.stim.Value(t)
	}
	return i.dc
}

func (i *CurrentSource) Connect(ckt Circuit) error {
	i.connectPorts(ckt, 0)
	i.jac, i.beq = stamps(2)
	return nil
}

func (i *CurrentSource) Start(dt float64) error {
	if i.stim != nil {
		i.stim.Start(dt)
	}
	cur := i.Current(0)
	i.beq[0] = cur
	i.beq[1] = -cur
	return nil
}

func (i *CurrentSource) Step(st *Status) error {
	cur := i.Current(st.Time)
	i.beq[0] = cur
	i.beq[1] = -cur
	return nil
}

func (i *CurrentSource) Jac() [][]float64 { return i.jac }
func (i *CurrentSource) Beq() []float64 { return i.beq }

var _ Device = (*CurrentSource)(nil)
