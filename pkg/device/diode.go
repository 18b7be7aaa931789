package device

import (
	"math"

	"gospyce/internal/consts"

	"github.com/pkg/errors"
)

const (
	// diodeVmax clamps the junction voltage before the exponential so the
	// linearization never overflows.
	diodeVmax = 0.8

	defaultIsat = 1.0e-9
	defaultGmin = 1.0e-12
)

// Diode relinearizes on every Newton iteration around the latest iterate.
type Diode struct {
	BaseDevice
	isat  float64
	gmin  float64
	vt    float64
	model string

	jac [][]float64
	beq []float64
}

func NewDiode(n1, n2 string) *Diode {
	d := &Diode{isat: defaultIsat, gmin: defaultGmin}
	d.vt = consts.BOLTZMANN * (consts.KELVIN + consts.TNOM) / consts.CHARGE
	d.SetNodeNames([]string{n1, n2})
	return d
}

// SetModel names a .model card to pull parameters from at connect time.
func (d *Diode) SetModel(name string) { d.model = name }

func (d *Diode) SetIsat(isat float64) error {
	if isat <= 0 {
		return &ParamError{Device: "diode", Param: "is", Reason: "must be positive"}
	}
	d.isat = isat
	return nil
}

func (d *Diode) Connect(ckt Circuit) error {
	d.connectPorts(ckt, 0)
	d.jac, d.beq = stamps(2)
	if d.model == "" {
		return nil
	}
	params, ok := ckt.ModelParams(d.model)
	if !ok {
		return errors.Errorf("diode %s: model %s not defined", d.Name(), d.model)
	}
	if isat, ok := params["is"]; ok {
		if err := d.SetIsat(isat); err != nil {
			return err
		}
	}
	return nil
}

func (d *Diode) Start(dt float64) error { return nil }

func (d *Diode) Step(st *Status) error { return nil }

func (d *Diode) MinorStep(k int, st *Status) error {
	v := d.Across(st, 0, 1)
	if v > diodeVmax {
		v = diodeVmax
	}
	e := math.Exp(v / d.vt)
	g := d.isat / d.vt * e
	ieq := d.isat * (e - 1.0)
	b := ieq - g*v

	geq := g + d.gmin
	d.jac[0][0] = geq
	d.jac[0][1] = -geq
	d.jac[1][0] = -geq
	d.jac[1][1] = geq
	d.beq[0] = -b
	d.beq[1] = b
	return nil
}

func (d *Diode) Jac() [][]float64 { return d.jac }
func (d *Diode) Beq() []float64 { return d.beq }

var (
	_ Device    = (*Diode)(nil)
	_ NonLinear = (*Diode)(nil)
)
