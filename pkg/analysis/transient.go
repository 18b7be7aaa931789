// Package analysis runs the fixed-step backward-Euler transient loop with
// a Newton-Raphson iteration per timestep.
package analysis

import (
	"context"
	"fmt"
	"math"

	"gospyce/pkg/device"
	"gospyce/pkg/matrix"
	"gospyce/pkg/netlist"

	"github.com/pkg/errors"
)

type State int

const (
	StateInitializing State = iota
	StateStepping
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateStepping:
		return "stepping"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// ConvergenceError reports a timestep whose Newton iteration did not settle
// within the iteration limit. History up to the previous timestep survives.
type ConvergenceError struct {
	Time       float64
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("no convergence at t=%g after %d iterations", e.Time, e.Iterations)
}

const (
	defaultMaxIter = 100
	defaultTol     = 1e-6
)

type Transient struct {
	Dt    float64
	Tstop float64

	// MaxIter and Tol bound the Newton iteration per timestep.
	MaxIter int
	Tol     float64
	// Gmin, when positive, is loaded on every diagonal to aid convergence.
	Gmin float64

	state   State
	history *History
}

func NewTransient(dt, tstop float64) (*Transient, error) {
	if dt <= 0 {
		return nil, errors.Errorf("timestep must be positive, got %g", dt)
	}
	if tstop <= 0 || tstop < dt {
		return nil, errors.Errorf("stop time must cover at least one step, got %g", tstop)
	}
	return &Transient{
		Dt:      dt,
		Tstop:   tstop,
		MaxIter: defaultMaxIter,
		Tol:     defaultTol,
		state:   StateInitializing,
		history: NewHistory(),
	}, nil
}

func (tr *Transient) State() State { return tr.state }
func (tr *Transient) History() *History { return tr.history }

// Run executes the transient analysis over the netlist. The context is
// checked between timesteps; cancellation fails the run but keeps the
// history gathered so far.
func (tr *Transient) Run(ctx context.Context, nl *netlist.Netlist) error {
	if err := nl.Connect(); err != nil {
		tr.state = StateFailed
		return err
	}
	devices := nl.Devices()
	for _, dev := range devices {
		if err := dev.Start(tr.Dt); err != nil {
			tr.state = StateFailed
			return errors.Wrapf(err, "starting %s", dev.Name())
		}
	}

	size := nl.NumNodes()
	sys, err := matrix.NewSystem(size)
	if err != nil {
		tr.state = StateFailed
		return err
	}
	defer sys.Destroy()
	sys.SetupElements()

	nonlinear := false
	for _, dev := range devices {
		if _, ok := dev.(device.NonLinear); ok {
			nonlinear = true
			break
		}
	}

	across := make([]float64, size+1)
	histVec := make([]float64, size+1)

	tr.state = StateStepping
	steps := int(math.Floor(tr.Tstop/tr.Dt + 0.5))
	for n := 0; n <= steps; n++ {
		if err := ctx.Err(); err != nil {
			tr.state = StateFailed
			return errors.Wrap(err, "transient cancelled")
		}
		t := float64(n) * tr.Dt
		st := &device.Status{Time: t, TimeStep: tr.Dt, Across: across, History: histVec}

		if err := tr.solveStep(nl, sys, devices, st, nonlinear, across); err != nil {
			tr.state = StateFailed
			return err
		}

		copy(histVec, across)
		tr.history.Append(t, nl.Solution(across))
	}
	tr.state = StateDone
	return nil
}

// solveStep runs the Newton iteration for one timestep, leaving the
// converged solution in across.
func (tr *Transient) solveStep(nl *netlist.Netlist, sys *matrix.System, devices []device.Device, st *device.Status, nonlinear bool, across []float64) error {
	for _, dev := range devices {
		if err := dev.Step(st); err != nil {
			return errors.Wrapf(err, "stepping %s", dev.Name())
		}
	}

	for k := 0; k < tr.MaxIter; k++ {
		for _, dev := range devices {
			nld, ok := dev.(device.NonLinear)
			if !ok {
				continue
			}
			if err := nld.MinorStep(k, st); err != nil {
				return errors.Wrapf(err, "linearizing %s", dev.Name())
			}
		}

		nl.Stamp(sys)
		if tr.Gmin > 0 {
			sys.LoadGmin(tr.Gmin)
		}
		x, err := sys.Solve()
		if err != nil {
			return err
		}

		maxDelta := 0.0
		for i := 1; i <= sys.Size; i++ {
			if d := math.Abs(x[i] - across[i]); d > maxDelta {
				maxDelta = d
			}
			across[i] = x[i]
		}

		// a purely linear system is exact after one solve
		if !nonlinear || maxDelta <= tr.Tol {
			return nil
		}
	}
	return &ConvergenceError{Time: st.Time, Iterations: tr.MaxIter}
}
