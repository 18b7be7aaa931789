// Package schematic describes a drawing-level circuit: blocks with ports,
// connection points, and the connectors that join them. Extraction turns
// the drawing into numbered electrical nets and builds a netlist from the
// block engines.
//
// Records live in index-referenced arenas on the Schematic rather than in
// pointer graphs, so extraction is a pure function of the arena contents.
package schematic

import (
	"fmt"

	"gospyce/pkg/device"
)

type BlockKind int

const (
	// Primitive blocks build a single device through their Engine.
	Primitive BlockKind = iota
	// Subcircuit blocks expand into a named subckt definition.
	Subcircuit
)

// Engine builds a primitive block's device once nets are assigned, one net
// name per declared port in port order.
type Engine func(nets []string) (device.Device, error)

type Port struct {
	Ground bool
}

type Block struct {
	Name   string
	Kind   BlockKind
	Ports  []Port
	Engine Engine
	Subckt string // definition name for Subcircuit blocks
}

// Point is one connection point: either a block port (Block >= 0) or a
// free junction. Ground marks a ground-symbol point.
type Point struct {
	Block  int
	Port   int
	Ground bool
}

// Connector is a wire: the set of points it joins.
type Connector struct {
	Points []int
}

type Schematic struct {
	Blocks     []Block
	Points     []Point
	Connectors []Connector
}

func New() *Schematic { return &Schematic{} }

// AddBlock declares a primitive block and returns its index.
func (s *Schematic) AddBlock(name string, engine Engine, ports ...Port) int {
	s.Blocks = append(s.Blocks, Block{Name: name, Kind: Primitive, Ports: ports, Engine: engine})
	return len(s.Blocks) - 1
}

// AddSubcircuit declares a block expanding to a subckt definition.
func (s *Schematic) AddSubcircuit(name, subckt string, ports ...Port) int {
	s.Blocks = append(s.Blocks, Block{Name: name, Kind: Subcircuit, Ports: ports, Subckt: subckt})
	return len(s.Blocks) - 1
}

// PortPoint places a connection point on a block port and returns its index.
func (s *Schematic) PortPoint(block, port int) int {
	s.Points = append(s.Points, Point{Block: block, Port: port})
	return len(s.Points) - 1
}

// Junction places a free wire junction.
func (s *Schematic) Junction() int {
	s.Points = append(s.Points, Point{Block: -1})
	return len(s.Points) - 1
}

// GroundPoint places a ground symbol.
func (s *Schematic) GroundPoint() int {
	s.Points = append(s.Points, Point{Block: -1, Ground: true})
	return len(s.Points) - 1
}

// Wire joins points with a connector and returns the connector index.
func (s *Schematic) Wire(points ...int) int {
	s.Connectors = append(s.Connectors, Connector{Points: points})
	return len(s.Connectors) - 1
}

// FloatingPortError reports a port reference extraction cannot resolve.
type FloatingPortError struct {
	Block  string
	Port   int
	Reason string
}

func (e *FloatingPortError) Error() string {
	return fmt.Sprintf("block %s port %d: %s", e.Block, e.Port, e.Reason)
}
