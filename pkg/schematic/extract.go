package schematic

import (
	"strconv"

	"gospyce/pkg/netlist"

	"github.com/pkg/errors"
)

// Extraction is the net assignment of one schematic. Net "0" is ground;
// the remaining nets are numbered in first-encountered connector order.
type Extraction struct {
	NumNets int
	// BlockNets holds one net name per declared port, per block.
	BlockNets [][]string
}

// unionFind over connector indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		// keep the smaller root so group identity follows connector order
		if rb < ra {
			ra, rb = rb, ra
		}
		uf.parent[rb] = ra
	}
}

// Extract assigns a net to every declared block port:
//
//  1. each connector seeds its own group,
//  2. groups sharing a connection point merge to a fixpoint,
//  3. a group touching a ground point is net 0, and all such groups unify,
//  4. a declared port with no wired point grounds itself,
//  5. remaining groups are numbered 1..N in connector order.
//
// Running Extract again on an unchanged schematic yields the same result.
func (s *Schematic) Extract() (*Extraction, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	// point -> connectors touching it
	touching := make(map[int][]int)
	for ci, c := range s.Connectors {
		for _, pi := range c.Points {
			touching[pi] = append(touching[pi], ci)
		}
	}

	uf := newUnionFind(len(s.Connectors))
	for _, cis := range touching {
		for i := 1; i < len(cis); i++ {
			uf.union(cis[0], cis[i])
		}
	}

	// ground groups
	grounded := make(map[int]bool)
	for ci, c := range s.Connectors {
		for _, pi := range c.Points {
			if s.pointGrounded(pi) {
				grounded[uf.find(ci)] = true
			}
		}
	}

	// number live groups in connector order
	netOf := make(map[int]int)
	next := 1
	for ci := range s.Connectors {
		root := uf.find(ci)
		if grounded[root] {
			continue
		}
		if _, seen := netOf[root]; !seen {
			netOf[root] = next
			next++
		}
	}

	// port -> point
	portPoint := make(map[[2]int]int)
	for pi, pt := range s.Points {
		if pt.Block >= 0 {
			portPoint[[2]int{pt.Block, pt.Port}] = pi
		}
	}

	ext := &Extraction{NumNets: next - 1, BlockNets: make([][]string, len(s.Blocks))}
	for bi, b := range s.Blocks {
		nets := make([]string, len(b.Ports))
		for port := range b.Ports {
			nets[port] = s.portNet(portPoint, touching, uf, netOf, grounded, bi, port)
		}
		ext.BlockNets[bi] = nets
	}
	return ext, nil
}

func (s *Schematic) portNet(portPoint map[[2]int]int, touching map[int][]int, uf *unionFind, netOf map[int]int, grounded map[int]bool, block, port int) string {
	if s.Blocks[block].Ports[port].Ground {
		return "0"
	}
	pi, ok := portPoint[[2]int{block, port}]
	if !ok {
		// no point on this port: it grounds itself
		return "0"
	}
	if s.Points[pi].Ground {
		return "0"
	}
	cis := touching[pi]
	if len(cis) == 0 {
		return "0"
	}
	root := uf.find(cis[0])
	if grounded[root] {
		return "0"
	}
	return strconv.Itoa(netOf[root])
}

func (s *Schematic) pointGrounded(pi int) bool {
	pt := s.Points[pi]
	if pt.Ground {
		return true
	}
	return pt.Block >= 0 && s.Blocks[pt.Block].Ports[pt.Port].Ground
}

func (s *Schematic) validate() error {
	seen := make(map[[2]int]bool)
	for _, pt := range s.Points {
		if pt.Block < 0 {
			continue
		}
		if pt.Block >= len(s.Blocks) {
			return &FloatingPortError{Block: strconv.Itoa(pt.Block), Port: pt.Port, Reason: "point names an undeclared block"}
		}
		b := s.Blocks[pt.Block]
		if pt.Port < 0 || pt.Port >= len(b.Ports) {
			return &FloatingPortError{Block: b.Name, Port: pt.Port, Reason: "point names an undeclared port"}
		}
		key := [2]int{pt.Block, pt.Port}
		if seen[key] {
			return &FloatingPortError{Block: b.Name, Port: pt.Port, Reason: "port has more than one connection point"}
		}
		seen[key] = true
	}
	for ci, c := range s.Connectors {
		for _, pi := range c.Points {
			if pi < 0 || pi >= len(s.Points) {
				return errors.Errorf("connector %d references point %d out of range", ci, pi)
			}
		}
	}
	return nil
}

// Build extracts the schematic and registers every block on the netlist.
// Subcircuit blocks become instances of definitions already registered on
// the netlist.
func (s *Schematic) Build(nl *netlist.Netlist) (*Extraction, error) {
	ext, err := s.Extract()
	if err != nil {
		return nil, err
	}
	for bi, b := range s.Blocks {
		nets := ext.BlockNets[bi]
		switch b.Kind {
		case Primitive:
			if b.Engine == nil {
				return nil, errors.Errorf("block %s has no engine", b.Name)
			}
			dev, err := b.Engine(nets)
			if err != nil {
				return nil, errors.Wrapf(err, "building block %s", b.Name)
			}
			if err := nl.Device(b.Name, dev); err != nil {
				return nil, err
			}
		case Subcircuit:
			if err := nl.Device(b.Name, netlist.NewInstance(b.Subckt, nets...)); err != nil {
				return nil, err
			}
		}
	}
	return ext, nil
}
