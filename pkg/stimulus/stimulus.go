// Package stimulus provides time-dependent source waveforms.
//
// A Stimulus is a pure function of time. Start resolves parameters that
// default to the simulation timestep; after Start, Value may be called any
// number of times in any order and never advances internal state.
package stimulus

import (
	"fmt"
	"math"
	"sort"
)

type Stimulus interface {
	Start(dt float64)
	Value(t float64) float64
}

// ParamError reports an invalid waveform parameter at construction time.
type ParamError struct {
	Stimulus string
	Param    string
	Reason   string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: parameter %s: %s", e.Stimulus, e.Param, e.Reason)
}

// Sin is a damped sinusoid. Before the delay the value holds at the offset.
type Sin struct {
	Offset  float64 // vo
	Amp     float64 // va
	Freq    float64 // Hz
	Delay   float64 // s
	Damping float64 // 1/s
	Phase   float64 // rad
}

func NewSin(vo, va, freq, delay, damping, phase float64) (*Sin, error) {
	if freq <= 0 {
		return nil, &ParamError{Stimulus: "sin", Param: "freq", Reason: "must be positive"}
	}
	if damping < 0 {
		return nil, &ParamError{Stimulus: "sin", Param: "damping", Reason: "must not be negative"}
	}
	return &Sin{Offset: vo, Amp: va, Freq: freq, Delay: delay, Damping: damping, Phase: phase}, nil
}

func (s *Sin) Start(dt float64) {}

func (s *Sin) Value(t float64) float64 {
	if t < s.Delay {
		return s.Offset
	}
	te := t - s.Delay
	return s.Offset + s.Amp*math.Exp(-s.Damping*te)*math.Sin(2.0*math.Pi*s.Freq*te+s.Phase)
}

// Pulse is a periodic trapezoidal pulse train. Zero rise/fall times resolve
// to the simulation timestep at Start; a zero width resolves to the period.
type Pulse struct {
	V1     float64
	V2     float64
	Delay  float64
	Rise   float64
	Fall   float64
	Width  float64
	Period float64
}

func NewPulse(v1, v2, delay, rise, fall, width, period float64) (*Pulse, error) {
	if period <= 0 {
		return nil, &ParamError{Stimulus: "pulse", Param: "period", Reason: "must be positive"}
	}
	if rise < 0 || fall < 0 || width < 0 {
		return nil, &ParamError{Stimulus: "pulse", Param: "rise/fall/width", Reason: "must not be negative"}
	}
	return &Pulse{V1: v1, V2: v2, Delay: delay, Rise: rise, Fall: fall, Width: width, Period: period}, nil
}

func (p *Pulse) Start(dt float64) {
	if p.Rise == 0 {
		p.Rise = dt
	}
	if p.Fall == 0 {
		p.Fall = dt
	}
	if p.Width == 0 {
		p.Width = p.Period
	}
}

func (p *Pulse) Value(t float64) float64 {
	if t < p.Delay {
		return p.V1
	}
	tc := math.Mod(t-p.Delay, p.Period)
	switch {
	case tc < p.Rise:
		return p.V1 + (p.V2-p.V1)*tc/p.Rise
	case tc < p.Rise+p.Width:
		return p.V2
	case tc < p.Rise+p.Width+p.Fall:
		return p.V2 + (p.V1-p.V2)*(tc-p.Rise-p.Width)/p.Fall
	default:
		return p.V1
	}
}

// PwlPoint is one breakpoint of a piecewise-linear waveform.
type PwlPoint struct {
	T float64
	V float64
}

// Pwl interpolates linearly between breakpoints and holds the first and
// last values outside their range.
type Pwl struct {
	Points []PwlPoint
}

func NewPwl(points []PwlPoint) (*Pwl, error) {
	if len(points) < 2 {
		return nil, &ParamError{Stimulus: "pwl", Param: "points", Reason: "need at least two points"}
	}
	if !sort.SliceIsSorted(points, func(i, j int) bool { return points[i].T < points[j].T }) {
		return nil, &ParamError{Stimulus: "pwl", Param: "points", Reason: "times must be strictly increasing"}
	}
	for i := 1; i < len(points); i++ {
		if points[i].T == points[i-1].T {
			return nil, &ParamError{Stimulus: "pwl", Param: "points", Reason: "times must be strictly increasing"}
		}
	}
	pts := make([]PwlPoint, len(points))
	copy(pts, points)
	return &Pwl{Points: pts}, nil
}

func (p *Pwl) Start(dt float64) {}

func (p *Pwl) Value(t float64) float64 {
	pts := p.Points
	if t <= pts[0].T {
		return pts[0].V
	}
	last := pts[len(pts)-1]
	if t >= last.T {
		return last.V
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].T > t })
	a, b := pts[i-1], pts[i]
	return a.V + (b.V-a.V)*(t-a.T)/(b.T-a.T)
}

// Exp is a double-exponential rise and fall. Unset time constants resolve
// to the simulation timestep and an unset fall delay to rise delay plus dt.
type Exp struct {
	V1     float64
	V2     float64
	Delay1 float64
	Tau1   float64
	Delay2 float64
	Tau2   float64
	hasTd2 bool
}

func NewExp(v1, v2, td1, tau1, td2, tau2 float64) (*Exp, error) {
	if tau1 < 0 || tau2 < 0 {
		return nil, &ParamError{Stimulus: "exp", Param: "tau", Reason: "must not be negative"}
	}
	if td2 != 0 && td2 < td1 {
		return nil, &ParamError{Stimulus: "exp", Param: "td2", Reason: "must not precede td1"}
	}
	return &Exp{V1: v1, V2: v2, Delay1: td1, Tau1: tau1, Delay2: td2, Tau2: tau2, hasTd2: td2 != 0}, nil
}

func (e *Exp) Start(dt float64) {
	if e.Tau1 == 0 {
		e.Tau1 = dt
	}
	if e.Tau2 == 0 {
		e.Tau2 = dt
	}
	if !e.hasTd2 {
		e.Delay2 = e.Delay1 + dt
	}
}

func (e *Exp) Value(t float64) float64 {
	if t < e.Delay1 {
		return e.V1
	}
	v := e.V1 + (e.V2-e.V1)*(1.0-math.Exp(-(t-e.Delay1)/e.Tau1))
	if t < e.Delay2 {
		return v
	}
	return v + (e.V1-e.V2)*(1.0-math.Exp(-(t-e.Delay2)/e.Tau2))
}

var (
	_ Stimulus = (*Sin)(nil)
	_ Stimulus = (*Pulse)(nil)
	_ Stimulus = (*Pwl)(nil)
	_ Stimulus = (*Exp)(nil)
)
