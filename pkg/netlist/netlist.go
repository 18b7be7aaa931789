// Package netlist holds the flat circuit description: the node table, the
// ordered device registry, subcircuit definitions, and the assembler that
// sums device stamps into the global system.
package netlist

import (
	"fmt"
	"strings"

	"gospyce/pkg/device"
	"gospyce/pkg/matrix"

	"github.com/pkg/errors"
)

// TranSpec is the transient request attached by a .tran card.
type TranSpec struct {
	Step float64
	Stop float64
}

type Netlist struct {
	Title string
	Tran  *TranSpec

	names   []string
	devices map[string]device.Device

	nodes     map[string]int
	nodeNames []string // index -> canonical name, 0 is ground
	internal  map[int]bool

	models  map[string]map[string]float64
	subckts map[string]*Subckt

	connected bool
}

func New(title string) *Netlist {
	return &Netlist{
		Title:     title,
		devices:   map[string]device.Device{},
		nodes:     map[string]int{},
		nodeNames: []string{"0"},
		internal:  map[int]bool{},
		models:    map[string]map[string]float64{},
		subckts:   map[string]*Subckt{},
	}
}

// Device registers a device under a unique name. Registration order is
// preserved; stamping and connection iterate in this order.
func (nl *Netlist) Device(name string, dev device.Device) error {
	if _, dup := nl.devices[name]; dup {
		return errors.Errorf("duplicate device name %s", name)
	}
	dev.SetName(name)
	nl.names = append(nl.names, name)
	nl.devices[name] = dev
	return nil
}

// MustDevice registers and panics on a duplicate name, for hand-built decks.
func (nl *Netlist) MustDevice(name string, dev device.Device) {
	if err := nl.Device(name, dev); err != nil {
		panic(err)
	}
}

func (nl *Netlist) Devices() []device.Device {
	out := make([]device.Device, 0, len(nl.names))
	for _, name := range nl.names {
		out = append(out, nl.devices[name])
	}
	return out
}

func (nl *Netlist) FindDevice(name string) device.Device { return nl.devices[name] }

// Model registers a .model parameter card.
func (nl *Netlist) Model(name string, params map[string]float64) {
	nl.models[strings.ToLower(name)] = params
}

func (nl *Netlist) ModelParams(name string) (map[string]float64, bool) {
	p, ok := nl.models[strings.ToLower(name)]
	return p, ok
}

func isGround(name string) bool {
	switch strings.ToLower(name) {
	case "0", "gnd", "ground":
		return true
	}
	return false
}

// NodeIndex resolves an external net name, creating the net on first
// reference. Ground aliases map to node 0.
func (nl *Netlist) NodeIndex(name string) int {
	if isGround(name) {
		return 0
	}
	if idx, ok := nl.nodes[name]; ok {
		return idx
	}
	idx := len(nl.nodeNames)
	nl.nodes[name] = idx
	nl.nodeNames = append(nl.nodeNames, name)
	return idx
}

// InternalNode allocates a private node for a device branch unknown.
// Internal nodes have no name-table entry and are excluded from the
// default voltage history.
func (nl *Netlist) InternalNode(owner string) int {
	idx := len(nl.nodeNames)
	nl.nodeNames = append(nl.nodeNames, fmt.Sprintf("%s#branch", owner))
	nl.internal[idx] = true
	return idx
}

// NumNodes counts unknowns, ground excluded.
func (nl *Netlist) NumNodes() int { return len(nl.nodeNames) - 1 }

func (nl *Netlist) NodeName(idx int) string { return nl.nodeNames[idx] }

func (nl *Netlist) IsInternal(idx int) bool { return nl.internal[idx] }

// Connect flattens subcircuit instances and resolves every device's nodes.
func (nl *Netlist) Connect() error {
	if nl.connected {
		return nil
	}
	if err := nl.flatten(); err != nil {
		return err
	}
	for _, name := range nl.names {
		if err := nl.devices[name].Connect(nl); err != nil {
			return errors.Wrapf(err, "connecting %s", name)
		}
	}
	nl.connected = true
	return nil
}

// Stamp clears the system and sums every device's local block into it.
func (nl *Netlist) Stamp(sys *matrix.System) {
	sys.Clear()
	for _, name := range nl.names {
		dev := nl.devices[name]
		nodes := dev.Nodes()
		jac := dev.Jac()
		beq := dev.Beq()
		for i := range jac {
			ni := nodes[i]
			if ni == 0 {
				continue
			}
			for j := range jac[i] {
				if v := jac[i][j]; v != 0 {
					sys.AddElement(ni, nodes[j], v)
				}
			}
		}
		for i := range beq {
			if v := beq[i]; v != 0 {
				sys.AddRHS(nodes[i], v)
			}
		}
	}
}

// Solution snapshots a solved vector as named values: V(net) for every
// external net and I(dev) for every current sensor.
func (nl *Netlist) Solution(x []float64) map[string]float64 {
	out := make(map[string]float64)
	for idx := 1; idx < len(nl.nodeNames); idx++ {
		if nl.internal[idx] {
			continue
		}
		var v float64
		if idx < len(x) {
			v = x[idx]
		}
		out[fmt.Sprintf("V(%s)", nl.nodeNames[idx])] = v
	}
	for _, name := range nl.names {
		sensor, ok := nl.devices[name].(device.CurrentSensor)
		if !ok {
			continue
		}
		node, scale := sensor.CurrentNode()
		var i float64
		if node > 0 && node < len(x) {
			i = scale * x[node]
		}
		out[fmt.Sprintf("I(%s)", name)] = i
	}
	return out
}

var _ device.Circuit = (*Netlist)(nil)
