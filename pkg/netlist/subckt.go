package netlist

import (
	"gospyce/pkg/device"

	"github.com/pkg/errors"
)

// Builder constructs a fresh inner device each time a subcircuit is
// expanded, so multiple instances never share stamp state.
type Builder func() (device.Device, error)

// Subckt is a reusable circuit fragment with named ports. Inner devices
// are registered as builders and instantiated per expansion.
type Subckt struct {
	Name  string
	Ports []string

	names    []string
	builders map[string]Builder
}

func NewSubckt(name string, ports ...string) *Subckt {
	return &Subckt{Name: name, Ports: ports, builders: map[string]Builder{}}
}

func (s *Subckt) Device(name string, build Builder) error {
	if _, dup := s.builders[name]; dup {
		return errors.Errorf("subckt %s: duplicate device name %s", s.Name, name)
	}
	s.names = append(s.names, name)
	s.builders[name] = build
	return nil
}

// Subckt registers a definition on the netlist.
func (nl *Netlist) Subckt(s *Subckt) error {
	if _, dup := nl.subckts[s.Name]; dup {
		return errors.Errorf("duplicate subckt %s", s.Name)
	}
	nl.subckts[s.Name] = s
	return nil
}

// Instance binds a subcircuit definition's ports to parent nets. It is
// expanded away during Connect and never stamps anything itself.
type Instance struct {
	device.BaseDevice
	subckt string
}

func NewInstance(subckt string, nodes ...string) *Instance {
	x := &Instance{subckt: subckt}
	x.SetNodeNames(nodes)
	return x
}

func (x *Instance) Connect(ckt device.Circuit) error {
	return errors.Errorf("instance %s of %s was not flattened", x.Name(), x.subckt)
}

func (x *Instance) Start(dt float64) error { return nil }
func (x *Instance) Step(st *device.Status) error { return nil }
func (x *Instance) Jac() [][]float64 { return nil }
func (x *Instance) Beq() []float64 { return nil }

var _ device.Device = (*Instance)(nil)

const maxFlattenDepth = 32

// flatten expands subcircuit instances in registration order, mangling
// inner device names as "<instance>_<inner>" and mapping inner nets to
// parent nets (ports) or to fresh instance-scoped nets.
func (nl *Netlist) flatten() error {
	for depth := 0; ; depth++ {
		if depth > maxFlattenDepth {
			return errors.Errorf("subckt nesting exceeds %d levels (recursive definition?)", maxFlattenDepth)
		}
		expanded := false
		names := make([]string, 0, len(nl.names))
		for _, name := range nl.names {
			x, ok := nl.devices[name].(*Instance)
			if !ok {
				names = append(names, name)
				continue
			}
			expanded = true
			delete(nl.devices, name)
			inner, err := nl.expandInstance(x)
			if err != nil {
				return err
			}
			names = append(names, inner...)
		}
		nl.names = names
		if !expanded {
			return nil
		}
	}
}

func (nl *Netlist) expandInstance(x *Instance) ([]string, error) {
	def, ok := nl.subckts[x.subckt]
	if !ok {
		return nil, errors.Errorf("instance %s: subckt %s not defined", x.Name(), x.subckt)
	}
	outer := x.NodeNames()
	if len(outer) != len(def.Ports) {
		return nil, errors.Errorf("instance %s: %d nodes for %d ports of %s",
			x.Name(), len(outer), len(def.Ports), x.subckt)
	}
	portMap := make(map[string]string, len(def.Ports))
	for i, p := range def.Ports {
		portMap[p] = outer[i]
	}
	mapNet := func(inner string) string {
		if net, ok := portMap[inner]; ok {
			return net
		}
		if isGround(inner) {
			return "0"
		}
		return x.Name() + "_" + inner
	}

	var added []string
	for _, innerName := range def.names {
		dev, err := def.builders[innerName]()
		if err != nil {
			return nil, errors.Wrapf(err, "instance %s: building %s", x.Name(), innerName)
		}
		mangled := x.Name() + "_" + innerName

		nets := dev.NodeNames()
		mapped := make([]string, len(nets))
		for i, n := range nets {
			mapped[i] = mapNet(n)
		}
		dev.SetNodeNames(mapped)

		if m, ok := dev.(*device.Mutual); ok {
			l1, l2 := m.InductorNames()
			m.SetInductorNames(x.Name()+"_"+l1, x.Name()+"_"+l2)
		}

		if _, dup := nl.devices[mangled]; dup {
			return nil, errors.Errorf("instance %s: expanded name %s collides", x.Name(), mangled)
		}
		dev.SetName(mangled)
		nl.devices[mangled] = dev
		added = append(added, mangled)
	}
	return added, nil
}
