// Package device defines the device contract and the primitive devices.
//
// A device owns a small dense stamp: a local Jacobian block and an
// equivalent-source vector indexed by its own port order. The netlist
// assembler sums those blocks into the global system each iteration, so a
// device never touches the sparse matrix directly.
package device

import "fmt"

// Circuit is the netlist surface a device sees while connecting.
type Circuit interface {
	// NodeIndex resolves an external net name, creating the net if new.
	// Ground aliases ("0", "gnd", "ground") resolve to 0.
	NodeIndex(name string) int
	// InternalNode allocates a private node, e.g. a branch-current unknown.
	InternalNode(owner string) int
	// FindDevice looks up a registered device by name.
	FindDevice(name string) Device
	// ModelParams returns the parameter set of a .model card.
	ModelParams(name string) (map[string]float64, bool)
}

// Status carries the solver state a device reads while stamping.
// Across is the latest Newton iterate and History the last converged
// solution, both indexed by global node number with ground at index 0.
type Status struct {
	Time     float64
	TimeStep float64
	Across   []float64
	History  []float64
}

type Device interface {
	Name() string
	SetName(name string)
	// Nodes returns resolved global node indices, external ports first,
	// internal nodes after. Valid after Connect.
	Nodes() []int
	NodeNames() []string
	// SetNodeNames rebinds the external net names before Connect, used
	// when flattening subcircuits into a parent netlist.
	SetNodeNames(names []string)
	Connect(ckt Circuit) error
	// Start stamps the time-invariant part of the companion model.
	Start(dt float64) error
	// Step refreshes the stamp for a new timestep from history and time.
	Step(st *Status) error
	Jac() [][]float64
	Beq() []float64
}

// NonLinear devices relinearize on every Newton iteration.
type NonLinear interface {
	MinorStep(k int, st *Status) error
}

// CurrentSensor devices expose a solved branch current. The device current
// is scale times the solution entry at the returned node.
type CurrentSensor interface {
	CurrentNode() (node int, scale float64)
}

// ParamError reports an invalid device parameter at construction time.
type ParamError struct {
	Device string
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: parameter %s: %s", e.Device, e.Param, e.Reason)
}

// BaseDevice carries the bookkeeping shared by every device.
type BaseDevice struct {
	name      string
	nodeNames []string
	nodes     []int
}

func (d *BaseDevice) Name() string { return d.name }
func (d *BaseDevice) SetName(name string) { d.name = name }
func (d *BaseDevice) Nodes() []int { return d.nodes }
func (d *BaseDevice) NodeNames() []string { return d.nodeNames }

func (d *BaseDevice) SetNodeNames(names []string) { d.nodeNames = names }

// connectPorts resolves the external names and appends internal branch
// nodes, one per extra slot.
func (d *BaseDevice) connectPorts(ckt Circuit, internals int) {
	d.nodes = make([]int, 0, len(d.nodeNames)+internals)
	for _, name := range d.nodeNames {
		d.nodes = append(d.nodes, ckt.NodeIndex(name))
	}
	for i := 0; i < internals; i++ {
		d.nodes = append(d.nodes, ckt.InternalNode(d.name))
	}
}

// stamps allocates an n x n Jacobian block and equivalent-source vector.
func stamps(n int) ([][]float64, []float64) {
	jac := make([][]float64, n)
	for i := range jac {
		jac[i] = make([]float64, n)
	}
	return jac, make([]float64, n)
}

// at reads the solution entry for port p, ground and out-of-range as zero.
func (d *BaseDevice) at(x []float64, p int) float64 {
	n := d.nodes[p]
	if n <= 0 || n >= len(x) {
		return 0
	}
	return x[n]
}

// Across is the voltage between two ports in the latest Newton iterate.
func (d *BaseDevice) Across(st *Status, p, q int) float64 {
	return d.at(st.Across, p) - d.at(st.Across, q)
}

// AcrossHistory is the port voltage at the last converged timestep.
func (d *BaseDevice) AcrossHistory(st *Status, p, q int) float64 {
	return d.at(st.History, p) - d.at(st.History, q)
}
