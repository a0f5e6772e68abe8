package circuit

import (
	"fmt"

	"github.com/edp1096/resistor-network/pkg/device"
)

type slotRef struct {
	slot int
	sign float64
}

type loopEquation struct {
	name  string
	edges []Edge
}

// System is the residual function of a Network. Loop edges are resolved once
// in NewSystem; element values are read on every evaluation so a source can
// be changed between solves without rebuilding.
type System struct {
	net    *Network
	loops  []loopEquation
	slotOf map[*device.Resistor]slotRef
	size   int
}

func NewSystem(net *Network) (*System, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}

	s := &System{
		net:    net,
		loops:  make([]loopEquation, 0, len(net.Loops)),
		slotOf: make(map[*device.Resistor]slotRef),
		size:   net.NumUnknowns(),
	}

	for i, slot := range net.Slots {
		for _, b := range slot.Bindings {
			r, err := net.GetResistorByName(b.Resistor)
			if err != nil {
				return nil, err
			}
			s.slotOf[r] = slotRef{slot: i, sign: b.Sign}
		}
	}

	for _, l := range net.Loops {
		eq := loopEquation{name: l.Name, edges: make([]Edge, len(l.Nodes))}
		for i, from := range l.Nodes {
			to := l.Nodes[(i+1)%len(l.Nodes)]
			e, err := net.ResolveEdge(from, to)
			if err != nil {
				return nil, &EdgeError{Loop: l.Name, From: from, To: to, Err: err}
			}
			eq.edges[i] = e
		}
		s.loops = append(s.loops, eq)
	}

	return s, nil
}

func (s *System) Size() int { return s.size }

func (s *System) Network() *Network { return s.net }

func (s *System) checkSize(x []float64) error {
	if len(x) != s.size {
		return fmt.Errorf("%w: got %d currents, network has %d unknowns", ErrDimensionMismatch, len(x), s.size)
	}
	return nil
}

func (s *System) current(r *device.Resistor, x []float64) float64 {
	ref := s.slotOf[r]
	return ref.sign * x[ref.slot]
}

// Residuals returns the loop voltage sums followed by the node current sums.
// All entries are zero when x satisfies Kirchhoff's laws.
func (s *System) Residuals(x []float64) ([]float64, error) {
	if err := s.checkSize(x); err != nil {
		return nil, err
	}

	f := make([]float64, 0, s.size)
	f = append(f, s.loopDrops(x)...)
	f = append(f, s.nodeCurrents(x)...)

	if len(f) != s.size {
		return nil, fmt.Errorf("%w: %d residuals for %d unknowns", ErrDimensionMismatch, len(f), s.size)
	}
	return f, nil
}

func (s *System) LoopVoltageDrops(x []float64) ([]float64, error) {
	if err := s.checkSize(x); err != nil {
		return nil, err
	}
	return s.loopDrops(x), nil
}

func (s *System) NodeCurrents(x []float64) ([]float64, error) {
	if err := s.checkSize(x); err != nil {
		return nil, err
	}
	return s.nodeCurrents(x), nil
}

func (s *System) loopDrops(x []float64) []float64 {
	drops := make([]float64, len(s.loops))
	for i, eq := range s.loops {
		sum := 0.0
		for _, e := range eq.edges {
			current := 0.0
			if e.Resistor != nil {
				current = s.current(e.Resistor, x)
			}
			sum += e.contribution(current)
		}
		drops[i] = sum
	}
	return drops
}

func (s *System) nodeCurrents(x []float64) []float64 {
	sums := make([]float64, len(s.net.Nodes))
	for i, node := range s.net.Nodes {
		for _, t := range node.Terms {
			sums[i] += t.Sign * x[t.Slot]
		}
	}
	return sums
}

// Apply stores the currents of x on every bound resistor.
func (s *System) Apply(x []float64) error {
	if err := s.checkSize(x); err != nil {
		return err
	}
	for r := range s.slotOf {
		r.Current = s.current(r, x)
	}
	return nil
}

// LoopEdges lists the resolved edges of loop i in traversal order.
func (s *System) LoopEdges(i int) []Edge {
	return append([]Edge(nil), s.loops[i].edges...)
}
